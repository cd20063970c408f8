package trends

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsegin/trends/internal/db"
)

func newLedger(t *testing.T) (*Ledger, *db.DB) {
	t.Helper()
	store, err := db.CreateDB(filepath.Join(t.TempDir(), "trends.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	today := func() time.Time { return time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC) }
	l, err := NewLedger(store, today)
	require.NoError(t, err)
	return l, store
}

func addTopic(t *testing.T, store *db.DB, label string) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	require.NoError(t, store.InTx(ctx, func(tx *db.Tx) error {
		var err error
		id, err = tx.InsertTopic(ctx, label, "", []float32{1, 0}, time.Now())
		return err
	}))
	return id
}

func record(t *testing.T, l *Ledger, id int64, dates ...string) {
	t.Helper()
	for _, d := range dates {
		require.NoError(t, l.RecordOccurrence(context.Background(), id, d))
	}
}

func TestBuildReport_Scenario(t *testing.T) {
	l, store := newLedger(t)
	id := addTopic(t, store, "TopicLabel1")
	record(t, l, id, "2024-01-01", "2024-01-01", "2024-01-02")

	report, err := l.BuildReport(context.Background(), "2024-01-02", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, report.Dates)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "TopicLabel1", report.Rows[0].Label)
	assert.Equal(t, []int64{2, 1}, report.Rows[0].Counts)
	assert.Equal(t, int64(3), report.Rows[0].Total)

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf))
	assert.Equal(t, "Topic,2024-01-01,2024-01-02\nTopicLabel1,2,1\n", buf.String())
}

func TestBuildReport_ZeroFilledColumnsAndOrdering(t *testing.T) {
	l, store := newLedger(t)
	zeta := addTopic(t, store, "zeta")
	alpha := addTopic(t, store, "alpha")
	mid := addTopic(t, store, "mid")
	outside := addTopic(t, store, "outside")

	record(t, l, zeta, "2024-01-03", "2024-01-05")
	record(t, l, alpha, "2024-01-01", "2024-01-05")
	record(t, l, mid, "2024-01-02", "2024-01-02", "2024-01-04")
	record(t, l, outside, "2023-12-31", "2024-01-06")

	report, err := l.BuildReport(context.Background(), "2024-01-05", 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}, report.Dates)
	require.Len(t, report.Rows, 3)
	// mid has the highest total; alpha and zeta tie and stay in label order.
	assert.Equal(t, []string{"mid", "alpha", "zeta"}, labels(report.Rows))
	assert.Equal(t, []int64{0, 2, 0, 1, 0}, report.Rows[0].Counts)
	assert.Equal(t, []int64{1, 0, 0, 0, 1}, report.Rows[1].Counts)
	assert.Equal(t, []int64{0, 0, 1, 0, 1}, report.Rows[2].Counts)

	top := report.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, "mid", top[0].Label)
	assert.Len(t, report.Top(10), 3)
	assert.Equal(t, []int64{1, 2, 1, 1, 2}, report.Totals())
}

func TestBuildReport_DuplicateLabelsStaySeparate(t *testing.T) {
	l, store := newLedger(t)
	a := addTopic(t, store, "same")
	b := addTopic(t, store, "same")
	record(t, l, a, "2024-01-01")
	record(t, l, b, "2024-01-01", "2024-01-01")

	report, err := l.BuildReport(context.Background(), "2024-01-01", 1)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, b, report.Rows[0].TopicID)
	assert.Equal(t, a, report.Rows[1].TopicID)
}

func TestBuildReport_DefaultEndIsMaxDate(t *testing.T) {
	l, store := newLedger(t)
	id := addTopic(t, store, "late delivery")
	record(t, l, id, "2024-02-27", "2024-02-29")

	report, err := l.BuildReport(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29"}, report.Dates)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, []int64{1, 0, 1}, report.Rows[0].Counts)
}

func TestBuildReport_EmptyLedger(t *testing.T) {
	l, _ := newLedger(t)

	report, err := l.BuildReport(context.Background(), "", 2)
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Equal(t, []string{"2024-03-09", "2024-03-10"}, report.Dates)
	assert.Equal(t, []string{"Topic"}, report.Header())

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf))
	assert.Equal(t, "Topic\n", buf.String())
}

func TestBuildReport_Validation(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	_, err := l.BuildReport(ctx, "2024-13-01", 7)
	require.ErrorIs(t, err, ErrMalformedDate)

	_, err = l.BuildReport(ctx, "2024-01-01", 0)
	require.Error(t, err)
}

func TestRecordOccurrence_MalformedDateWritesNothing(t *testing.T) {
	l, store := newLedger(t)
	id := addTopic(t, store, "x")

	for _, bad := range []string{"", "2024/01/01", "01-02-2024", "2024-02-30", "yesterday"} {
		err := l.RecordOccurrence(context.Background(), id, bad)
		require.ErrorIs(t, err, ErrMalformedDate, "date %q", bad)
	}

	all, err := store.AllOccurrences(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecordOccurrence_UnknownTopic(t *testing.T) {
	l, _ := newLedger(t)
	err := l.RecordOccurrence(context.Background(), 404, "2024-01-01")
	require.ErrorIs(t, err, db.ErrTopicNotFound)
}

func TestEvictOlderThan_Scenario(t *testing.T) {
	l, store := newLedger(t)
	id := addTopic(t, store, "payment issue")
	record(t, l, id, "2023-12-15", "2024-01-01", "2024-01-02", "2024-01-02", "2024-02-01")
	ctx := context.Background()

	n, err := l.EvictOlderThan(ctx, "2024-02-01", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	once, err := store.AllOccurrences(ctx)
	require.NoError(t, err)
	assert.Equal(t, []db.Occurrence{
		{TopicID: id, Date: "2024-01-02", Count: 2},
		{TopicID: id, Date: "2024-02-01", Count: 1},
	}, once)

	n, err = l.EvictOlderThan(ctx, "2024-02-01", 30)
	require.NoError(t, err)
	assert.Zero(t, n)

	twice, err := store.AllOccurrences(ctx)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestEvictOlderThan_Validation(t *testing.T) {
	l, store := newLedger(t)
	id := addTopic(t, store, "x")
	record(t, l, id, "2020-01-01")
	ctx := context.Background()

	_, err := l.EvictOlderThan(ctx, "not-a-date", 30)
	require.ErrorIs(t, err, ErrMalformedDate)
	_, err = l.EvictOlderThan(ctx, "2024-01-01", 0)
	require.Error(t, err)

	all, err := store.AllOccurrences(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDateRange(t *testing.T) {
	start, _ := ParseDate("2024-02-28")
	end, _ := ParseDate("2024-03-01")
	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01"}, DateRange(start, end))
	assert.Empty(t, DateRange(end, start))
}

func labels(rows []ReportRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Label
	}
	return out
}
