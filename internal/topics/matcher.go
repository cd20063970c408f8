package topics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pulsegin/trends/internal/db"
	"pulsegin/trends/internal/embed"
	"pulsegin/trends/internal/similarity"
)

// DefaultThreshold is the minimum cosine similarity for a summary to join an
// existing topic.
const DefaultThreshold = 0.75

// Match is the outcome of MatchOrCreate.
type Match struct {
	TopicID int64 `json:"topic_id"`
	IsNew   bool  `json:"is_new"`
	// Similarity to the chosen topic; 1 for a newly created topic.
	Similarity float64 `json:"similarity"`
}

// Matcher assigns summaries to topics by embedding similarity
type Matcher struct {
	store     *db.DB
	embedder  embed.Embedder
	threshold float64
	now       func() time.Time
	logger    zerolog.Logger

	mu sync.Mutex
}

// Option configures a Matcher
type Option func(*Matcher)

// WithClock overrides the timestamp source for created_at and last_seen.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

// WithLogger attaches a logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// NewMatcher creates a matcher over store using embedder. threshold must be
// within [-1, 1].
func NewMatcher(store *db.DB, embedder embed.Embedder, threshold float64, opts ...Option) (*Matcher, error) {
	if store == nil {
		return nil, fmt.Errorf("matcher: store is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("matcher: embedder is nil")
	}
	if threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("matcher: threshold must be between -1 and 1 (got %.2f)", threshold)
	}

	m := &Matcher{
		store:     store,
		embedder:  embedder,
		threshold: threshold,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Threshold returns the configured similarity threshold
func (m *Matcher) Threshold() float64 { return m.threshold }

// MatchOrCreate embeds summary and either assigns it to the most similar
// stored topic (similarity >= threshold, earliest topic on ties) or creates a
// new topic labelled with summary. summary must be non-empty.
//
// The scan and the resulting write run in one transaction while holding the
// matcher lock, so two near-duplicate summaries can never both create a topic.
// An embedding or store failure leaves no topic written.
func (m *Matcher) MatchOrCreate(ctx context.Context, summary, description string) (Match, error) {
	vec, err := m.embedder.Embed(ctx, summary)
	if err != nil {
		return Match{}, fmt.Errorf("embedding summary: %w", err)
	}
	if len(vec) == 0 {
		return Match{}, fmt.Errorf("embedding summary: %w: empty vector", embed.ErrEmbeddingUnavailable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var result Match
	err = m.store.InTx(ctx, func(tx *db.Tx) error {
		candidates, err := tx.TopicEmbeddings(ctx)
		if err != nil {
			return err
		}
		if len(candidates) > 0 && len(candidates[0].Embedding) != len(vec) {
			return fmt.Errorf("%w: summary has %d dimensions, stored topics have %d",
				db.ErrDimensionMismatch, len(vec), len(candidates[0].Embedding))
		}

		now := m.now()
		best, ok := similarity.BestMatch(vec, candidates)
		if ok && best.Similarity >= m.threshold {
			if err := tx.TouchTopic(ctx, best.ID, now); err != nil {
				return err
			}
			result = Match{TopicID: best.ID, Similarity: best.Similarity}
			return nil
		}

		id, err := tx.InsertTopic(ctx, summary, description, vec, now)
		if err != nil {
			return err
		}
		result = Match{TopicID: id, IsNew: true, Similarity: 1}
		if ok {
			m.logger.Debug().
				Int64("topic_id", id).
				Int64("closest_topic_id", best.ID).
				Float64("closest_similarity", best.Similarity).
				Msg("created topic")
		}
		return nil
	})
	if err != nil {
		return Match{}, fmt.Errorf("matching summary: %w", err)
	}
	return result, nil
}
