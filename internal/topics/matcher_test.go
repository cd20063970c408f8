package topics

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsegin/trends/internal/db"
	"pulsegin/trends/internal/embed"
	"pulsegin/trends/internal/review"
)

// fakeEmbedder returns fixed vectors per text
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vec, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("no vector for " + text)
	}
	return vec, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func openStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.CreateDB(filepath.Join(t.TempDir(), "trends.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// unit returns a 2-d unit vector whose cosine with (1, 0) is sim.
func unit(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func TestMatchOrCreate_Scenario(t *testing.T) {
	store := openStore(t)
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"delivery delay":      {1, 0},
		"late delivery again": unit(0.9),
		"wrong items":         unit(0.2),
	}}
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m, err := NewMatcher(store, emb, DefaultThreshold, WithClock(clk.now))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := m.MatchOrCreate(ctx, "delivery delay", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.TopicID)
	assert.True(t, first.IsNew)

	before, err := store.GetTopic(ctx, 1)
	require.NoError(t, err)

	second, err := m.MatchOrCreate(ctx, "late delivery again", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.TopicID)
	assert.False(t, second.IsNew)
	assert.InDelta(t, 0.9, second.Similarity, 1e-4)

	after, err := store.GetTopic(ctx, 1)
	require.NoError(t, err)
	assert.True(t, after.LastSeen.After(before.LastSeen), "last_seen should advance on match")
	assert.Equal(t, "delivery delay", after.Label)
	assert.Equal(t, before.Embedding, after.Embedding)

	third, err := m.MatchOrCreate(ctx, "wrong items", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), third.TopicID)
	assert.True(t, third.IsNew)
}

func TestMatchOrCreate_ThresholdBoundary(t *testing.T) {
	for _, tc := range []struct {
		name      string
		threshold float64
		wantNew   bool
	}{
		{"at threshold matches", 0.6, false},
		{"just above similarity creates", 0.61, true},
		{"zero threshold matches", 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := openStore(t)
			emb := &fakeEmbedder{vectors: map[string][]float32{
				"base":  {1, 0},
				"probe": {3, 4}, // cosine 0.6
			}}
			m, err := NewMatcher(store, emb, tc.threshold)
			require.NoError(t, err)
			ctx := context.Background()

			_, err = m.MatchOrCreate(ctx, "base", "")
			require.NoError(t, err)
			got, err := m.MatchOrCreate(ctx, "probe", "")
			require.NoError(t, err)
			assert.Equal(t, tc.wantNew, got.IsNew)
		})
	}
}

func TestMatchOrCreate_TieGoesToEarliestTopic(t *testing.T) {
	store := openStore(t)
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"a":     {1, 0},
		"b":     {0, 1},
		"probe": {1, 1},
	}}
	m, err := NewMatcher(store, emb, 0.9)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.MatchOrCreate(ctx, "a", "")
	require.NoError(t, err)
	_, err = m.MatchOrCreate(ctx, "b", "")
	require.NoError(t, err)

	// probe is equally close (0.707) to both topics; lower the bar to match.
	m.threshold = 0.7
	got, err := m.MatchOrCreate(ctx, "probe", "")
	require.NoError(t, err)
	assert.False(t, got.IsNew)
	assert.Equal(t, int64(1), got.TopicID)
}

func TestMatchOrCreate_IDsMonotonicNoGaps(t *testing.T) {
	store := openStore(t)
	vectors := map[string][]float32{}
	names := []string{"t0", "t1", "t2", "t3", "t4"}
	for i, n := range names {
		v := make([]float32, len(names))
		v[i] = 1
		vectors[n] = v
	}
	m, err := NewMatcher(store, &fakeEmbedder{vectors: vectors}, DefaultThreshold)
	require.NoError(t, err)

	for i, n := range names {
		got, err := m.MatchOrCreate(context.Background(), n, "desc "+n)
		require.NoError(t, err)
		assert.True(t, got.IsNew)
		assert.Equal(t, int64(i+1), got.TopicID)
	}

	topics, err := store.AllTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, len(names))
	assert.Equal(t, "desc t3", topics[3].Description)
}

func TestMatchOrCreate_EmbeddingFailureWritesNothing(t *testing.T) {
	store := openStore(t)
	emb := &fakeEmbedder{err: errors.New("model offline")}
	m, err := NewMatcher(store, emb, DefaultThreshold)
	require.NoError(t, err)

	_, err = m.MatchOrCreate(context.Background(), "delivery delay", "")
	require.Error(t, err)

	n, err := store.CountTopics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMatchOrCreate_DimensionMismatch(t *testing.T) {
	store := openStore(t)
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"two":   {1, 0},
		"three": {1, 0, 0},
	}}
	m, err := NewMatcher(store, emb, DefaultThreshold)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.MatchOrCreate(ctx, "two", "")
	require.NoError(t, err)
	_, err = m.MatchOrCreate(ctx, "three", "")
	require.ErrorIs(t, err, db.ErrDimensionMismatch)

	n, _ := store.CountTopics(ctx)
	assert.Equal(t, 1, n)
}

func TestMatchOrCreate_ConcurrentDuplicatesCreateOneTopic(t *testing.T) {
	store := openStore(t)
	emb := &fakeEmbedder{vectors: map[string][]float32{"same": {1, 0}}}
	m, err := NewMatcher(store, emb, DefaultThreshold)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.MatchOrCreate(context.Background(), "same", ""); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := store.CountTopics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMatchOrCreate_WithHashEmbedder(t *testing.T) {
	store := openStore(t)
	h, err := embed.NewHashEmbedder(384)
	require.NoError(t, err)
	m, err := NewMatcher(store, h, DefaultThreshold)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := m.MatchOrCreate(ctx, "Delivery delay or late delivery", "")
	require.NoError(t, err)
	b, err := m.MatchOrCreate(ctx, "delivery delay or late delivery", "")
	require.NoError(t, err)
	assert.Equal(t, a.TopicID, b.TopicID)
	assert.False(t, b.IsNew)
}

func TestNewMatcher_Validation(t *testing.T) {
	store := openStore(t)
	emb := &fakeEmbedder{}
	_, err := NewMatcher(nil, emb, 0.75)
	require.Error(t, err)
	_, err = NewMatcher(store, nil, 0.75)
	require.Error(t, err)
	_, err = NewMatcher(store, emb, 1.5)
	require.Error(t, err)
}

func TestComputeStaleness(t *testing.T) {
	store := openStore(t)
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"old": {1, 0},
		"new": {0, 1},
	}}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	current := start
	m, err := NewMatcher(store, emb, DefaultThreshold, WithClock(func() time.Time { return current }))
	require.NoError(t, err)
	ctx := context.Background()

	old, err := m.MatchOrCreate(ctx, "old", "")
	require.NoError(t, err)
	require.NoError(t, store.IncrementOccurrence(ctx, old.TopicID, "2024-01-01"))
	require.NoError(t, store.IncrementOccurrence(ctx, old.TopicID, "2024-01-01"))

	current = start.Add(20 * 24 * time.Hour)
	_, err = m.MatchOrCreate(ctx, "new", "")
	require.NoError(t, err)

	report, err := ComputeStaleness(ctx, store, start.Add(25*24*time.Hour), 14)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalTopics)
	require.Equal(t, 1, report.StaleTopicCount)
	assert.Equal(t, old.TopicID, report.StaleTopics[0].ID)
	assert.Equal(t, int64(25), report.StaleTopics[0].DaysSinceSeen)
	assert.Equal(t, int64(2), report.StaleTopics[0].RetainedCount)

	_, err = ComputeStaleness(ctx, store, start, -1)
	require.Error(t, err)
}

func TestMatchOrCreate_PunctuationOnlySummariesShareTopic(t *testing.T) {
	store := openStore(t)
	emb, err := embed.NewHashEmbedder(384)
	require.NoError(t, err)
	m, err := NewMatcher(store, emb, DefaultThreshold)
	require.NoError(t, err)
	ctx := context.Background()

	summary := review.NewExtractor().Understand("!!!", nil).Summary
	require.Equal(t, "!!!", summary)

	first, err := m.MatchOrCreate(ctx, summary, "")
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	for range 2 {
		again, err := m.MatchOrCreate(ctx, summary, "")
		require.NoError(t, err)
		assert.False(t, again.IsNew)
		assert.Equal(t, first.TopicID, again.TopicID)
	}

	n, err := store.CountTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
