package domain

import (
	"time"

	"github.com/google/uuid"
)

// VersionContent is the renderable payload of a version. It is copied at
// version-creation time and never mutated afterwards.
type VersionContent struct {
	Template      string            `json:"template" yaml:"template"`
	DefaultValues map[string]string `json:"default_values" yaml:"default_values"`
}

// Clone returns a deep copy so a stored version can never be changed through
// a map the caller still holds.
func (c VersionContent) Clone() VersionContent {
	out := VersionContent{Template: c.Template}
	if c.DefaultValues != nil {
		out.DefaultValues = make(map[string]string, len(c.DefaultValues))
		for k, v := range c.DefaultValues {
			out.DefaultValues[k] = v
		}
	}
	return out
}

// Template owns a lineage of versions. Its Template/DefaultValues fields
// mirror the currently active version's content.
type Template struct {
	ID            uuid.UUID         `json:"template_id" yaml:"template_id"`
	Name          string            `json:"name" yaml:"name"`
	Description   string            `json:"description" yaml:"description"`
	Template      string            `json:"template" yaml:"template"`
	DefaultValues map[string]string `json:"default_values" yaml:"default_values"`
	CreatedAt     time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" yaml:"updated_at"`
}

// Version is an immutable snapshot of a template's content, numbered
// sequentially within its template.
type Version struct {
	ID          uuid.UUID      `json:"version_id" yaml:"version_id"`
	TemplateID  uuid.UUID      `json:"template_id" yaml:"template_id"`
	Sequence    int            `json:"version" yaml:"version"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Content     VersionContent `json:"content" yaml:"content"`
	CreatedBy   string         `json:"created_by" yaml:"created_by"`
	CreatedAt   time.Time      `json:"created_at" yaml:"created_at"`
	Active      bool           `json:"is_active" yaml:"is_active"`
}

// TemplateSummary is the listing view of a template.
type TemplateSummary struct {
	ID             uuid.UUID `json:"template_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	VersionCount   int       `json:"version_count"`
	ActiveSequence int       `json:"active_version"` // 0 when no version is active
}

// UsageRecord marks a single render of a template. The ID is the usage
// handle returned to callers.
type UsageRecord struct {
	ID         uuid.UUID      `json:"usage_id"`
	TemplateID uuid.UUID      `json:"template_id"`
	VersionID  *uuid.UUID     `json:"version_id"`
	UserID     string         `json:"user_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Context    map[string]any `json:"context,omitempty"`
}

// PerformanceRecord holds metric outcomes for exactly one usage record.
// Recording again for the same usage id replaces the previous record.
type PerformanceRecord struct {
	UsageID   uuid.UUID      `json:"usage_id"`
	Metrics   map[string]any `json:"metrics"`
	Feedback  map[string]any `json:"feedback,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Experiment is a weighted, sticky allocation of users to a subset of a
// template's versions. Weights are normalized to sum to 1.
type Experiment struct {
	TemplateID  uuid.UUID            `json:"template_id"`
	VersionIDs  []uuid.UUID          `json:"versions"`
	Weights     []float64            `json:"weights"`
	Allocations map[string]uuid.UUID `json:"allocations"`
	StartedAt   time.Time            `json:"started_at"`
}

// MetricAggregate summarizes the numeric values of one metric.
type MetricAggregate struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// UnknownVersionKey is used in version distributions for usage records that
// were resolved outside the version system.
const UnknownVersionKey = "unknown"

// TemplateMetrics is the windowed aggregate for a template.
type TemplateMetrics struct {
	TemplateID          uuid.UUID                  `json:"template_id"`
	Start               time.Time                  `json:"start"`
	End                 time.Time                  `json:"end"`
	UsageCount          int                        `json:"usage_count"`
	Metrics             map[string]MetricAggregate `json:"metrics"`
	VersionDistribution map[string]int             `json:"version_distribution"`
}

// VersionMetrics is the windowed aggregate for a single version.
type VersionMetrics struct {
	UsageCount int                        `json:"usage_count"`
	Metrics    map[string]MetricAggregate `json:"metrics"`
}

// Snapshot is the persisted state: the three logical documents handled by a
// repository.SnapshotStore. Experiments are not persisted; they live only
// while explicitly started.
type Snapshot struct {
	Templates   map[uuid.UUID]*Template          `json:"templates"`
	Versions    map[uuid.UUID][]*Version         `json:"versions"`
	Usage       map[uuid.UUID][]*UsageRecord     `json:"usage_data"`
	Performance map[uuid.UUID]*PerformanceRecord `json:"performance_data"`
}

// NewSnapshot returns an empty snapshot with all maps initialized.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Templates:   make(map[uuid.UUID]*Template),
		Versions:    make(map[uuid.UUID][]*Version),
		Usage:       make(map[uuid.UUID][]*UsageRecord),
		Performance: make(map[uuid.UUID]*PerformanceRecord),
	}
}
