package db

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// TopicEmbedding pairs a topic ID with its deserialized embedding vector.
type TopicEmbedding struct {
	ID        int64
	Embedding []float32
}

// EncodeEmbedding converts a vector to little-endian float32 bytes.
// Each value takes 4 bytes; there is no length prefix.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("encoding embedding: empty vector")
	}
	data := make([]byte, len(vec)*4)
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("encoding embedding: non-finite value at %d", i)
		}
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return data, nil
}

// DecodeEmbedding converts little-endian float32 bytes back to a vector.
// A blob whose length is not a multiple of 4 is rejected.
func DecodeEmbedding(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decoding embedding: empty blob")
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("decoding embedding: blob length %d is not a multiple of 4", len(data))
	}
	result := make([]float32, len(data)/4)
	for i := range result {
		result[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return result, nil
}

// TopicEmbeddings returns every topic's embedding in creation order.
func (d *DB) TopicEmbeddings(ctx context.Context) ([]TopicEmbedding, error) {
	return topicEmbeddings(ctx, d.conn)
}

// TopicEmbeddings returns every topic's embedding in creation order.
func (t *Tx) TopicEmbeddings(ctx context.Context) ([]TopicEmbedding, error) {
	return topicEmbeddings(ctx, t.tx)
}

func topicEmbeddings(ctx context.Context, q querier) ([]TopicEmbedding, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, embedding FROM topics ORDER BY id")
	if err != nil {
		return nil, storeErr("loading topic embeddings", err)
	}
	defer rows.Close()

	var result []TopicEmbedding
	for rows.Next() {
		var id int64
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, storeErr("scanning topic embedding", err)
		}
		vec, err := DecodeEmbedding(data)
		if err != nil {
			return nil, fmt.Errorf("topic %d: %w", id, err)
		}
		result = append(result, TopicEmbedding{ID: id, Embedding: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("loading topic embeddings", err)
	}
	return result, nil
}
