// Package service orchestrates template versioning, experiments, and
// metrics behind one API.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isaacphi/promptwheel/internal/abtest"
	"github.com/isaacphi/promptwheel/internal/config"
	"github.com/isaacphi/promptwheel/internal/domain"
	"github.com/isaacphi/promptwheel/internal/metrics"
	"github.com/isaacphi/promptwheel/internal/repository"
	"github.com/isaacphi/promptwheel/internal/template"
	"github.com/isaacphi/promptwheel/internal/version"
)

type PromptService struct {
	store     *version.Store
	allocator *abtest.Allocator
	ledger    *metrics.Ledger
	snapshots repository.SnapshotStore
	logger    *slog.Logger

	autoSave      bool
	minUsageCount int

	// Serializes snapshot writes; in-memory state has its own locks.
	saveMu sync.Mutex
}

// NewPromptService loads any existing snapshot from snapshots and builds the
// service on top of it. A store with no saved data starts empty; saved data
// that cannot be decoded is an error.
func NewPromptService(ctx context.Context, snapshots repository.SnapshotStore, cfg *config.ConfigSchema, logger *slog.Logger) (*PromptService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	snap, err := snapshots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	store := version.NewStore()
	store.Restore(snap)

	ledger := metrics.NewLedger()
	ledger.Restore(snap)

	s := &PromptService{
		store:         store,
		allocator:     abtest.NewAllocator(store),
		ledger:        ledger,
		snapshots:     snapshots,
		logger:        logger,
		autoSave:      cfg.Storage.AutoSave,
		minUsageCount: cfg.Experiments.MinUsageCount,
	}

	logger.Debug("prompt service initialized",
		"templates", len(snap.Templates),
		"autoSave", s.autoSave,
	)
	return s, nil
}

// CreateTemplate creates a template with its initial active version.
func (s *PromptService) CreateTemplate(ctx context.Context, name, description, body string, defaults map[string]string) (uuid.UUID, error) {
	id := s.store.CreateTemplate(name, description, body, defaults)
	s.logger.Info("created template", "template", id, "name", name)
	return id, s.persist(ctx)
}

// CreateVersion appends a version to a template's history.
func (s *PromptService) CreateVersion(ctx context.Context, templateID uuid.UUID, params version.CreateVersionParams) (uuid.UUID, error) {
	id, err := s.store.CreateVersion(templateID, params)
	if err != nil {
		return uuid.Nil, err
	}
	s.logger.Info("created version", "template", templateID, "version", id, "active", params.SetActive)
	return id, s.persist(ctx)
}

// SetActiveVersion makes the given version the template's active one.
func (s *PromptService) SetActiveVersion(ctx context.Context, templateID, versionID uuid.UUID) error {
	if err := s.store.SetActiveVersion(templateID, versionID); err != nil {
		return err
	}
	s.logger.Info("activated version", "template", templateID, "version", versionID)
	return s.persist(ctx)
}

func (s *PromptService) GetTemplate(templateID uuid.UUID) (domain.Template, error) {
	return s.store.GetTemplate(templateID)
}

func (s *PromptService) ListTemplates() []domain.TemplateSummary {
	return s.store.ListTemplates()
}

func (s *PromptService) ListVersions(templateID uuid.UUID) ([]domain.Version, error) {
	return s.store.ListVersions(templateID)
}

func (s *PromptService) GetVersion(templateID, versionID uuid.UUID) (domain.Version, error) {
	return s.store.Version(templateID, versionID)
}

// UpdateTemplate changes template metadata. Nil keeps the current value.
func (s *PromptService) UpdateTemplate(ctx context.Context, templateID uuid.UUID, name, description *string) error {
	if err := s.store.UpdateTemplate(templateID, name, description); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DeleteTemplate removes a template, its versions, and any running
// experiment. Recorded usage stays in the ledger.
func (s *PromptService) DeleteTemplate(ctx context.Context, templateID uuid.UUID) error {
	if !s.store.DeleteTemplate(templateID) {
		return domain.TemplateNotFoundError{ID: templateID}
	}
	s.allocator.Stop(templateID)
	s.logger.Info("deleted template", "template", templateID)
	return s.persist(ctx)
}

// RenderPrompt renders a template for a user and records the usage. The
// version is resolved in order: the user's experiment assignment, then the
// active version, then the latest version. The returned id is the usage
// handle for later performance reports.
func (s *PromptService) RenderPrompt(ctx context.Context, templateID uuid.UUID, variables map[string]any, userID string, usageContext map[string]any) (string, uuid.UUID, error) {
	v, err := s.resolveVersion(templateID, userID)
	if err != nil {
		return "", uuid.Nil, err
	}

	rendered, err := template.Render(v.Content.Template, v.Content.DefaultValues, variables)
	if err != nil {
		return "", uuid.Nil, err
	}

	versionID := v.ID
	usageID := s.ledger.RecordUsage(templateID, &versionID, userID, usageContext)
	s.logger.Debug("rendered prompt", "template", templateID, "version", versionID, "usage", usageID)
	return rendered, usageID, nil
}

func (s *PromptService) resolveVersion(templateID uuid.UUID, userID string) (domain.Version, error) {
	if userID != "" && s.allocator.IsRunning(templateID) {
		versionID, err := s.allocator.Allocate(templateID, userID)
		if err == nil {
			return s.store.Version(templateID, versionID)
		}
		// The experiment stopped between the check and the draw; fall
		// through to normal resolution.
	}

	active, ok, err := s.store.ActiveVersion(templateID)
	if err != nil {
		return domain.Version{}, err
	}
	if ok {
		return active, nil
	}
	return s.store.LatestVersion(templateID)
}

// RecordPerformance attaches metrics and feedback to a usage handle,
// replacing any earlier report for the same handle.
func (s *PromptService) RecordPerformance(ctx context.Context, usageID uuid.UUID, metricValues map[string]any, feedback map[string]any) error {
	s.ledger.RecordPerformance(usageID, metricValues, feedback)
	return s.persist(ctx)
}

// TemplateMetrics aggregates usage and performance for a template. Zero
// times select a trailing 30-day window.
func (s *PromptService) TemplateMetrics(templateID uuid.UUID, start, end time.Time) (domain.TemplateMetrics, error) {
	if _, err := s.store.GetTemplate(templateID); err != nil {
		return domain.TemplateMetrics{}, err
	}
	return s.ledger.AggregateForTemplate(templateID, start, end), nil
}

// CompareVersions aggregates metrics per version. Every requested version
// must belong to the template.
func (s *PromptService) CompareVersions(templateID uuid.UUID, versionIDs []uuid.UUID, metricKeys []string, start, end time.Time) (map[uuid.UUID]domain.VersionMetrics, error) {
	for _, versionID := range versionIDs {
		if !s.store.HasVersion(templateID, versionID) {
			return nil, domain.VersionNotFoundError{TemplateID: templateID, VersionID: versionID}
		}
	}
	return s.ledger.CompareVersions(templateID, versionIDs, metricKeys, start, end), nil
}

// StartAbTest begins an experiment across the given versions. Omitted
// weights split traffic evenly.
func (s *PromptService) StartAbTest(templateID uuid.UUID, versionIDs []uuid.UUID, weights []float64) error {
	if _, err := s.store.GetTemplate(templateID); err != nil {
		return err
	}
	if err := s.allocator.Start(templateID, versionIDs, weights); err != nil {
		return err
	}
	s.logger.Info("started experiment", "template", templateID, "versions", len(versionIDs))
	return nil
}

// StopAbTest ends the experiment. A non-nil winner is activated.
func (s *PromptService) StopAbTest(ctx context.Context, templateID uuid.UUID, winner *uuid.UUID) error {
	if !s.allocator.Stop(templateID) {
		return domain.NoActiveExperimentError{TemplateID: templateID}
	}
	s.logger.Info("stopped experiment", "template", templateID)
	if winner != nil {
		return s.SetActiveVersion(ctx, templateID, *winner)
	}
	return nil
}

// ExperimentStatus returns the running experiment, if any.
func (s *PromptService) ExperimentStatus(templateID uuid.UUID) (domain.Experiment, bool) {
	return s.allocator.Experiment(templateID)
}

// OptimizePrompt activates the version with the best average of metricKey,
// if one qualifies. It reports the chosen version and whether a switch
// happened.
func (s *PromptService) OptimizePrompt(ctx context.Context, templateID uuid.UUID, metricKey string, higherIsBetter bool) (uuid.UUID, bool, error) {
	if _, err := s.store.GetTemplate(templateID); err != nil {
		return uuid.Nil, false, err
	}

	best, ok := s.ledger.Recommend(templateID, metricKey, higherIsBetter, s.minUsageCount)
	if !ok {
		s.logger.Info("no recommendation available", "template", templateID, "metric", metricKey)
		return uuid.Nil, false, nil
	}

	if err := s.SetActiveVersion(ctx, templateID, best); err != nil {
		return uuid.Nil, false, err
	}
	s.logger.Info("optimized template", "template", templateID, "metric", metricKey, "version", best)
	return best, true, nil
}

// Save writes a snapshot regardless of the autoSave setting.
func (s *PromptService) Save(ctx context.Context) error {
	return s.save(ctx)
}

func (s *PromptService) persist(ctx context.Context) error {
	if !s.autoSave {
		return nil
	}
	return s.save(ctx)
}

func (s *PromptService) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snap := domain.NewSnapshot()
	s.store.SnapshotInto(snap)
	s.ledger.SnapshotInto(snap)

	if err := s.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
