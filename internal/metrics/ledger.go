// Package metrics records prompt usage and performance outcomes and
// computes time-windowed aggregates over them.
package metrics

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isaacphi/promptwheel/internal/domain"
)

// DefaultWindow is the trailing aggregation window applied when callers
// omit time bounds.
const DefaultWindow = 30 * 24 * time.Hour

// Ledger stores usage records grouped by template and performance records
// keyed by usage id. The two maps are locked independently so performance
// reports never contend with render-path usage recording.
type Ledger struct {
	usageMu sync.RWMutex
	usage   map[uuid.UUID][]*domain.UsageRecord

	perfMu      sync.RWMutex
	performance map[uuid.UUID]*domain.PerformanceRecord
}

func NewLedger() *Ledger {
	return &Ledger{
		usage:       make(map[uuid.UUID][]*domain.UsageRecord),
		performance: make(map[uuid.UUID]*domain.PerformanceRecord),
	}
}

// RecordUsage stores a usage event and returns its handle.
func (l *Ledger) RecordUsage(templateID uuid.UUID, versionID *uuid.UUID, userID string, context map[string]any) uuid.UUID {
	record := &domain.UsageRecord{
		ID:         uuid.New(),
		TemplateID: templateID,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
		Context:    copyAnyMap(context),
	}
	if versionID != nil {
		v := *versionID
		record.VersionID = &v
	}

	l.usageMu.Lock()
	l.usage[templateID] = append(l.usage[templateID], record)
	l.usageMu.Unlock()

	return record.ID
}

// RecordPerformance attaches metric outcomes to a usage handle, replacing
// any earlier record for the same handle. The handle is not validated;
// orphaned records are stored and simply never join a usage record.
func (l *Ledger) RecordPerformance(usageID uuid.UUID, metrics map[string]any, feedback map[string]any) {
	record := &domain.PerformanceRecord{
		UsageID:   usageID,
		Metrics:   copyAnyMap(metrics),
		Feedback:  copyAnyMap(feedback),
		Timestamp: time.Now().UTC(),
	}

	l.perfMu.Lock()
	l.performance[usageID] = record
	l.perfMu.Unlock()
}

// window fills in the default bounds: end defaults to now, start to a
// trailing 30-day window before end.
func window(start, end time.Time) (time.Time, time.Time) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.Add(-DefaultWindow)
	}
	return start, end
}

type accumulator struct {
	min, max, sum float64
	count         int
}

func (a *accumulator) add(v float64) {
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.count++
}

func (a *accumulator) aggregate() domain.MetricAggregate {
	return domain.MetricAggregate{
		Min:   a.min,
		Max:   a.max,
		Avg:   a.sum / float64(a.count),
		Count: a.count,
	}
}

// numeric extracts a float64 from the value kinds that survive JSON
// round-trips plus the plain Go numeric types. Strings and everything else
// are excluded from aggregation.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func (l *Ledger) usageInWindow(templateID uuid.UUID, start, end time.Time) []*domain.UsageRecord {
	l.usageMu.RLock()
	defer l.usageMu.RUnlock()

	var out []*domain.UsageRecord
	for _, record := range l.usage[templateID] {
		if !record.Timestamp.Before(start) && !record.Timestamp.After(end) {
			out = append(out, record)
		}
	}
	return out
}

func (l *Ledger) performanceFor(usageID uuid.UUID) (*domain.PerformanceRecord, bool) {
	l.perfMu.RLock()
	defer l.perfMu.RUnlock()
	record, ok := l.performance[usageID]
	return record, ok
}

// AggregateForTemplate joins every usage record in the window against its
// performance record (if any) and folds numeric metric values into
// min/max/avg/count summaries. Non-numeric values still count toward the
// version distribution through their usage record.
func (l *Ledger) AggregateForTemplate(templateID uuid.UUID, start, end time.Time) domain.TemplateMetrics {
	start, end = window(start, end)
	records := l.usageInWindow(templateID, start, end)

	accs := make(map[string]*accumulator)
	distribution := make(map[string]int)

	for _, record := range records {
		key := domain.UnknownVersionKey
		if record.VersionID != nil {
			key = record.VersionID.String()
		}
		distribution[key]++

		perf, ok := l.performanceFor(record.ID)
		if !ok {
			continue
		}
		for metric, value := range perf.Metrics {
			v, ok := numeric(value)
			if !ok {
				continue
			}
			acc := accs[metric]
			if acc == nil {
				acc = &accumulator{}
				accs[metric] = acc
			}
			acc.add(v)
		}
	}

	out := domain.TemplateMetrics{
		TemplateID:          templateID,
		Start:               start,
		End:                 end,
		UsageCount:          len(records),
		Metrics:             make(map[string]domain.MetricAggregate, len(accs)),
		VersionDistribution: distribution,
	}
	for metric, acc := range accs {
		out.Metrics[metric] = acc.aggregate()
	}
	return out
}

// CompareVersions computes the same join per version id. metricKeys, when
// non-empty, restricts which metrics are aggregated.
func (l *Ledger) CompareVersions(templateID uuid.UUID, versionIDs []uuid.UUID, metricKeys []string, start, end time.Time) map[uuid.UUID]domain.VersionMetrics {
	start, end = window(start, end)
	records := l.usageInWindow(templateID, start, end)

	wanted := make(map[string]bool, len(metricKeys))
	for _, key := range metricKeys {
		wanted[key] = true
	}

	byVersion := make(map[uuid.UUID][]*domain.UsageRecord)
	for _, record := range records {
		if record.VersionID == nil {
			continue
		}
		byVersion[*record.VersionID] = append(byVersion[*record.VersionID], record)
	}

	out := make(map[uuid.UUID]domain.VersionMetrics, len(versionIDs))
	for _, versionID := range versionIDs {
		versionRecords := byVersion[versionID]
		accs := make(map[string]*accumulator)

		for _, record := range versionRecords {
			perf, ok := l.performanceFor(record.ID)
			if !ok {
				continue
			}
			for metric, value := range perf.Metrics {
				if len(wanted) > 0 && !wanted[metric] {
					continue
				}
				v, ok := numeric(value)
				if !ok {
					continue
				}
				acc := accs[metric]
				if acc == nil {
					acc = &accumulator{}
					accs[metric] = acc
				}
				acc.add(v)
			}
		}

		vm := domain.VersionMetrics{
			UsageCount: len(versionRecords),
			Metrics:    make(map[string]domain.MetricAggregate, len(accs)),
		}
		for metric, acc := range accs {
			vm.Metrics[metric] = acc.aggregate()
		}
		out[versionID] = vm
	}
	return out
}

// Recommend picks the version with the extremal average of metricKey over
// the default window, ignoring versions with fewer than minUsageCount
// usages or no numeric samples of the metric. Ties resolve to whichever
// candidate map iteration reaches first; callers must not rely on a
// specific winner for exact ties.
func (l *Ledger) Recommend(templateID uuid.UUID, metricKey string, higherIsBetter bool, minUsageCount int) (uuid.UUID, bool) {
	aggregate := l.AggregateForTemplate(templateID, time.Time{}, time.Time{})

	var candidates []uuid.UUID
	for key, count := range aggregate.VersionDistribution {
		if count < minUsageCount {
			continue
		}
		if key == domain.UnknownVersionKey {
			continue
		}
		id, err := uuid.Parse(key)
		if err != nil {
			continue
		}
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return uuid.Nil, false
	}

	perVersion := l.CompareVersions(templateID, candidates, []string{metricKey}, time.Time{}, time.Time{})

	var best uuid.UUID
	var bestAvg float64
	found := false
	for _, id := range candidates {
		agg, ok := perVersion[id].Metrics[metricKey]
		if !ok || agg.Count == 0 {
			continue
		}
		better := !found ||
			(higherIsBetter && agg.Avg > bestAvg) ||
			(!higherIsBetter && agg.Avg < bestAvg)
		if better {
			best = id
			bestAvg = agg.Avg
			found = true
		}
	}
	return best, found
}

// SnapshotInto copies the ledger's records into snap for persistence.
func (l *Ledger) SnapshotInto(snap *domain.Snapshot) {
	l.usageMu.RLock()
	for templateID, records := range l.usage {
		out := make([]*domain.UsageRecord, len(records))
		for i, record := range records {
			c := copyUsage(record)
			out[i] = &c
		}
		snap.Usage[templateID] = out
	}
	l.usageMu.RUnlock()

	l.perfMu.RLock()
	for usageID, record := range l.performance {
		c := copyPerformance(record)
		snap.Performance[usageID] = &c
	}
	l.perfMu.RUnlock()
}

// Restore replaces the ledger's contents with the snapshot's.
func (l *Ledger) Restore(snap *domain.Snapshot) {
	usage := make(map[uuid.UUID][]*domain.UsageRecord, len(snap.Usage))
	for templateID, records := range snap.Usage {
		out := make([]*domain.UsageRecord, len(records))
		for i, record := range records {
			c := copyUsage(record)
			out[i] = &c
		}
		usage[templateID] = out
	}
	performance := make(map[uuid.UUID]*domain.PerformanceRecord, len(snap.Performance))
	for usageID, record := range snap.Performance {
		c := copyPerformance(record)
		performance[usageID] = &c
	}

	l.usageMu.Lock()
	l.usage = usage
	l.usageMu.Unlock()

	l.perfMu.Lock()
	l.performance = performance
	l.perfMu.Unlock()
}

func copyUsage(r *domain.UsageRecord) domain.UsageRecord {
	out := *r
	if r.VersionID != nil {
		v := *r.VersionID
		out.VersionID = &v
	}
	out.Context = copyAnyMap(r.Context)
	return out
}

func copyPerformance(r *domain.PerformanceRecord) domain.PerformanceRecord {
	out := *r
	out.Metrics = copyAnyMap(r.Metrics)
	out.Feedback = copyAnyMap(r.Feedback)
	return out
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
