package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pulsegin/trends/internal/db"
	"pulsegin/trends/internal/review"
	"pulsegin/trends/internal/topics"
	"pulsegin/trends/internal/trends"
)

// Options tune one ingestion pass
type Options struct {
	// WindowDays is the retention window applied by cleanup
	WindowDays int
	// CleanupHorizonDays: cleanup runs only when the newest review is at most
	// this many days old
	CleanupHorizonDays int
	// SkipCleanup disables eviction after ingestion
	SkipCleanup bool
	// DescriptionRunes is the length of the review excerpt stored on new topics
	DescriptionRunes int
	// ProgressEvery logs progress after this many processed reviews; 0 disables
	ProgressEvery int
}

// Stats summarises one ingestion pass
type Stats struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	NewTopics int    `json:"new_topics"`
	Matched   int    `json:"matched"`
	MaxDate   string `json:"max_date,omitempty"`

	Cleanup CleanupResult `json:"cleanup"`
}

// CleanupResult records what the post-ingestion eviction did
type CleanupResult struct {
	Ran       bool   `json:"ran"`
	Reference string `json:"reference,omitempty"`
	DaysAgo   int    `json:"days_ago"`
	Evicted   int64  `json:"evicted"`
}

// Driver feeds reviews through the extractor, matcher and ledger
type Driver struct {
	store     *db.DB
	extractor *review.Extractor
	matcher   *topics.Matcher
	ledger    *trends.Ledger
	opts      Options
	now       func() time.Time
	logger    zerolog.Logger
}

// DriverOption configures a Driver
type DriverOption func(*Driver)

// WithClock overrides the clock used for run timestamps and the cleanup decision.
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) { d.now = now }
}

// WithLogger attaches a logger
func WithLogger(logger zerolog.Logger) DriverOption {
	return func(d *Driver) { d.logger = logger }
}

// NewDriver wires the ingestion components together.
func NewDriver(store *db.DB, extractor *review.Extractor, matcher *topics.Matcher, ledger *trends.Ledger, opts Options, options ...DriverOption) (*Driver, error) {
	if store == nil || extractor == nil || matcher == nil || ledger == nil {
		return nil, fmt.Errorf("driver: store, extractor, matcher and ledger are required")
	}
	if opts.WindowDays < 1 {
		return nil, fmt.Errorf("driver: window must be at least 1 day (got %d)", opts.WindowDays)
	}
	d := &Driver{
		store:     store,
		extractor: extractor,
		matcher:   matcher,
		ledger:    ledger,
		opts:      opts,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, o := range options {
		o(d)
	}
	return d, nil
}

// Run processes every review from src, applies the cleanup policy and
// records the run under sourceName. Any embedding or store failure stops the
// run; occurrences recorded before the failure are kept.
func (d *Driver) Run(ctx context.Context, sourceName string, src Source) (*Stats, error) {
	stats := &Stats{RunID: uuid.NewString()}
	started := d.now()
	log := d.logger.With().Str("run_id", stats.RunID).Str("source", sourceName).Logger()
	log.Info().Msg("ingestion started")

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rev, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}

		if rev.Date == "" || strings.TrimSpace(rev.Text) == "" {
			stats.Skipped++
			log.Debug().Int("line", rev.Line).Msg("skipping review without date or text")
			continue
		}

		if err := d.process(ctx, rev, stats); err != nil {
			return stats, fmt.Errorf("review on line %d: %w", rev.Line, err)
		}

		if d.opts.ProgressEvery > 0 && stats.Processed%d.opts.ProgressEvery == 0 {
			log.Info().
				Int("processed", stats.Processed).
				Int("new_topics", stats.NewTopics).
				Int("matched", stats.Matched).
				Msg("progress")
		}
	}

	log.Info().
		Int("processed", stats.Processed).
		Int("skipped", stats.Skipped).
		Int("new_topics", stats.NewTopics).
		Int("matched", stats.Matched).
		Msg("ingestion complete")

	if err := d.cleanup(ctx, stats, log); err != nil {
		return stats, err
	}

	run := db.IngestRun{
		ID:         stats.RunID,
		Source:     sourceName,
		StartedAt:  started,
		FinishedAt: d.now(),
		Processed:  stats.Processed,
		Skipped:    stats.Skipped,
		NewTopics:  stats.NewTopics,
		Matched:    stats.Matched,
		MaxDate:    stats.MaxDate,
	}
	if err := d.store.InsertIngestRun(ctx, run); err != nil {
		return stats, err
	}
	return stats, nil
}

func (d *Driver) process(ctx context.Context, rev Review, stats *Stats) error {
	u := d.extractor.Understand(rev.Text, rev.Rating)

	m, err := d.matcher.MatchOrCreate(ctx, u.Summary, excerpt(rev.Text, d.opts.DescriptionRunes))
	if err != nil {
		return err
	}
	if m.IsNew {
		stats.NewTopics++
	} else {
		stats.Matched++
	}

	if err := d.ledger.RecordOccurrence(ctx, m.TopicID, rev.Date); err != nil {
		return err
	}

	stats.Processed++
	if rev.Date > stats.MaxDate {
		stats.MaxDate = rev.Date
	}
	return nil
}

// cleanup evicts relative to the later of the newest review date and today,
// but only when the newest review falls within the cleanup horizon. Older
// imports are historical and left intact.
func (d *Driver) cleanup(ctx context.Context, stats *Stats, log zerolog.Logger) error {
	if d.opts.SkipCleanup {
		log.Info().Msg("cleanup disabled")
		return nil
	}
	if stats.MaxDate == "" {
		log.Info().Msg("no data to clean up")
		return nil
	}

	ref, daysAgo, ok, err := CleanupReference(stats.MaxDate, d.now(), d.opts.CleanupHorizonDays)
	if err != nil {
		return err
	}
	stats.Cleanup.DaysAgo = daysAgo
	if !ok {
		log.Info().
			Str("max_date", stats.MaxDate).
			Int("days_ago", daysAgo).
			Msg("skipping cleanup of historical data")
		return nil
	}

	n, err := d.ledger.EvictOlderThan(ctx, ref, d.opts.WindowDays)
	if err != nil {
		return err
	}
	stats.Cleanup = CleanupResult{Ran: true, Reference: ref, DaysAgo: daysAgo, Evicted: n}
	log.Info().
		Str("reference", ref).
		Int("window_days", d.opts.WindowDays).
		Int64("evicted", n).
		Msg("cleaned up old occurrences")
	return nil
}

// CleanupReference decides whether post-ingestion eviction should run for
// data whose newest date is maxDate. It returns the eviction reference date
// (the later of maxDate and now's day), how many days before now maxDate lies,
// and whether that is within horizonDays.
func CleanupReference(maxDate string, now time.Time, horizonDays int) (string, int, bool, error) {
	newest, err := trends.ParseDate(maxDate)
	if err != nil {
		return "", 0, false, err
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)

	daysAgo := int(today.Sub(newest).Hours() / 24)
	if daysAgo > horizonDays {
		return "", daysAgo, false, nil
	}

	ref := today
	if newest.After(today) {
		ref = newest
	}
	return trends.FormatDate(ref), daysAgo, true, nil
}

func excerpt(text string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
