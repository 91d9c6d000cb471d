package metrics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/promptwheel/internal/domain"
)

func recordWithMetrics(l *Ledger, templateID uuid.UUID, versionID *uuid.UUID, metrics map[string]any) uuid.UUID {
	usageID := l.RecordUsage(templateID, versionID, "u1", nil)
	if metrics != nil {
		l.RecordPerformance(usageID, metrics, nil)
	}
	return usageID
}

func TestAggregateForTemplate(t *testing.T) {
	l := NewLedger()
	templateID := uuid.New()
	versionID := uuid.New()

	recordWithMetrics(l, templateID, &versionID, map[string]any{"latency": 2.0})
	recordWithMetrics(l, templateID, &versionID, map[string]any{"latency": 4.0})
	recordWithMetrics(l, templateID, nil, map[string]any{"latency": 6.0})
	// Usage without a performance record still counts toward usage totals.
	recordWithMetrics(l, templateID, &versionID, nil)

	agg := l.AggregateForTemplate(templateID, time.Time{}, time.Time{})

	assert.Equal(t, 4, agg.UsageCount)
	require.Contains(t, agg.Metrics, "latency")
	latency := agg.Metrics["latency"]
	assert.Equal(t, 2.0, latency.Min)
	assert.Equal(t, 6.0, latency.Max)
	assert.InDelta(t, 4.0, latency.Avg, 1e-9)
	assert.Equal(t, 3, latency.Count)

	assert.Equal(t, 3, agg.VersionDistribution[versionID.String()])
	assert.Equal(t, 1, agg.VersionDistribution[domain.UnknownVersionKey])
}

func TestAggregateSkipsNonNumericValues(t *testing.T) {
	l := NewLedger()
	templateID := uuid.New()
	versionID := uuid.New()

	recordWithMetrics(l, templateID, &versionID, map[string]any{
		"latency": 1.5,
		"label":   "good",
	})
	recordWithMetrics(l, templateID, &versionID, map[string]any{
		"latency": int64(3),
	})

	agg := l.AggregateForTemplate(templateID, time.Time{}, time.Time{})

	assert.NotContains(t, agg.Metrics, "label")
	latency := agg.Metrics["latency"]
	assert.Equal(t, 2, latency.Count)
	assert.InDelta(t, 2.25, latency.Avg, 1e-9)
	// Non-numeric reports still count as usage.
	assert.Equal(t, 2, agg.UsageCount)
}

func TestRecordPerformanceOverwrites(t *testing.T) {
	l := NewLedger()
	templateID := uuid.New()
	versionID := uuid.New()

	usageID := l.RecordUsage(templateID, &versionID, "u1", nil)
	l.RecordPerformance(usageID, map[string]any{"score": 1.0}, nil)
	l.RecordPerformance(usageID, map[string]any{"score": 9.0}, nil)

	agg := l.AggregateForTemplate(templateID, time.Time{}, time.Time{})
	score := agg.Metrics["score"]
	assert.Equal(t, 1, score.Count)
	assert.Equal(t, 9.0, score.Avg)
}

func TestOrphanedPerformanceIsIgnored(t *testing.T) {
	l := NewLedger()
	templateID := uuid.New()

	l.RecordPerformance(uuid.New(), map[string]any{"score": 5.0}, nil)

	agg := l.AggregateForTemplate(templateID, time.Time{}, time.Time{})
	assert.Equal(t, 0, agg.UsageCount)
	assert.Empty(t, agg.Metrics)
}

// agedLedger builds a ledger whose records carry explicit timestamps by
// restoring a hand-built snapshot.
func agedLedger(templateID uuid.UUID, versionID uuid.UUID, ages ...time.Duration) *Ledger {
	now := time.Now().UTC()
	snap := domain.NewSnapshot()
	for _, age := range ages {
		usageID := uuid.New()
		v := versionID
		snap.Usage[templateID] = append(snap.Usage[templateID], &domain.UsageRecord{
			ID:         usageID,
			TemplateID: templateID,
			VersionID:  &v,
			UserID:     "u1",
			Timestamp:  now.Add(-age),
		})
		snap.Performance[usageID] = &domain.PerformanceRecord{
			UsageID:   usageID,
			Metrics:   map[string]any{"score": 1.0},
			Timestamp: now.Add(-age),
		}
	}
	l := NewLedger()
	l.Restore(snap)
	return l
}

func TestDefaultWindowExcludesOldRecords(t *testing.T) {
	templateID := uuid.New()
	versionID := uuid.New()
	l := agedLedger(templateID, versionID,
		time.Hour,
		10*24*time.Hour,
		45*24*time.Hour,
	)

	agg := l.AggregateForTemplate(templateID, time.Time{}, time.Time{})
	assert.Equal(t, 2, agg.UsageCount)
	assert.Equal(t, 2, agg.Metrics["score"].Count)

	// An explicit window that reaches back far enough sees everything.
	agg = l.AggregateForTemplate(templateID, time.Now().UTC().Add(-60*24*time.Hour), time.Time{})
	assert.Equal(t, 3, agg.UsageCount)
}

func TestCompareVersions(t *testing.T) {
	l := NewLedger()
	templateID := uuid.New()
	a := uuid.New()
	b := uuid.New()

	recordWithMetrics(l, templateID, &a, map[string]any{"score": 2.0, "latency": 100.0})
	recordWithMetrics(l, templateID, &a, map[string]any{"score": 4.0})
	recordWithMetrics(l, templateID, &b, map[string]any{"score": 8.0})
	recordWithMetrics(l, templateID, nil, map[string]any{"score": 100.0})

	out := l.CompareVersions(templateID, []uuid.UUID{a, b}, []string{"score"}, time.Time{}, time.Time{})
	require.Len(t, out, 2)

	assert.Equal(t, 2, out[a].UsageCount)
	assert.InDelta(t, 3.0, out[a].Metrics["score"].Avg, 1e-9)
	// latency was not requested.
	assert.NotContains(t, out[a].Metrics, "latency")

	assert.Equal(t, 1, out[b].UsageCount)
	assert.Equal(t, 8.0, out[b].Metrics["score"].Avg)
}

func TestRecommend(t *testing.T) {
	l := NewLedger()
	templateID := uuid.New()
	fast := uuid.New()
	slow := uuid.New()

	for i := 0; i < 3; i++ {
		recordWithMetrics(l, templateID, &fast, map[string]any{"latency": 10.0})
		recordWithMetrics(l, templateID, &slow, map[string]any{"latency": 50.0})
	}

	best, ok := l.Recommend(templateID, "latency", false, 1)
	require.True(t, ok)
	assert.Equal(t, fast, best)

	best, ok = l.Recommend(templateID, "latency", true, 1)
	require.True(t, ok)
	assert.Equal(t, slow, best)
}

func TestRecommendMinUsageThreshold(t *testing.T) {
	l := NewLedger()
	templateID := uuid.New()
	popular := uuid.New()
	sparse := uuid.New()

	for i := 0; i < 5; i++ {
		recordWithMetrics(l, templateID, &popular, map[string]any{"score": 1.0})
	}
	// Higher score but too few samples to qualify.
	recordWithMetrics(l, templateID, &sparse, map[string]any{"score": 10.0})

	best, ok := l.Recommend(templateID, "score", true, 5)
	require.True(t, ok)
	assert.Equal(t, popular, best)
}

func TestRecommendNoCandidates(t *testing.T) {
	l := NewLedger()
	templateID := uuid.New()
	versionID := uuid.New()

	_, ok := l.Recommend(templateID, "score", true, 1)
	assert.False(t, ok)

	// Usage exists but no numeric samples of the requested metric.
	recordWithMetrics(l, templateID, &versionID, map[string]any{"label": "good"})
	_, ok = l.Recommend(templateID, "score", true, 1)
	assert.False(t, ok)
}

func TestLedgerSnapshotRoundTrip(t *testing.T) {
	l := NewLedger()
	templateID := uuid.New()
	versionID := uuid.New()

	usageID := recordWithMetrics(l, templateID, &versionID, map[string]any{"score": 3.0})

	snap := domain.NewSnapshot()
	l.SnapshotInto(snap)

	restored := NewLedger()
	restored.Restore(snap)

	agg := restored.AggregateForTemplate(templateID, time.Time{}, time.Time{})
	assert.Equal(t, 1, agg.UsageCount)
	assert.Equal(t, 3.0, agg.Metrics["score"].Avg)

	// Overwriting in the restored ledger must not touch the original.
	restored.RecordPerformance(usageID, map[string]any{"score": 99.0}, nil)
	agg = l.AggregateForTemplate(templateID, time.Time{}, time.Time{})
	assert.Equal(t, 3.0, agg.Metrics["score"].Avg)
}
