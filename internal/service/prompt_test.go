package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/promptwheel/internal/config"
	"github.com/isaacphi/promptwheel/internal/domain"
	"github.com/isaacphi/promptwheel/internal/repository/jsonfile"
	"github.com/isaacphi/promptwheel/internal/version"
)

func testConfig() *config.ConfigSchema {
	return &config.ConfigSchema{
		Storage:     config.Storage{Backend: "file", AutoSave: true},
		Experiments: config.Experiments{MinUsageCount: 2},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*PromptService, string) {
	t.Helper()
	dir := t.TempDir()
	return newTestServiceAt(t, dir), dir
}

func newTestServiceAt(t *testing.T, dir string) *PromptService {
	t.Helper()
	store, err := jsonfile.New(dir)
	require.NoError(t, err)
	svc, err := NewPromptService(context.Background(), store, testConfig(), quietLogger())
	require.NoError(t, err)
	return svc
}

func TestRenderPromptActiveVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "greeting", "", "Hello {{name}}, welcome to {{place}}", map[string]string{"place": "the app"})
	require.NoError(t, err)

	rendered, usageID, err := svc.RenderPrompt(ctx, id, map[string]any{"name": "Ada"}, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada, welcome to the app", rendered)
	assert.NotEqual(t, uuid.Nil, usageID)
}

func TestRenderPromptMissingVariableRecordsNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "greeting", "", "Hello {{name}}", nil)
	require.NoError(t, err)

	_, _, err = svc.RenderPrompt(ctx, id, nil, "u1", nil)
	assert.True(t, domain.IsMissingVariables(err))

	m, err := svc.TemplateMetrics(id, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, m.UsageCount)
}

func TestRenderPromptUnknownTemplate(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.RenderPrompt(context.Background(), uuid.New(), nil, "u1", nil)
	assert.True(t, domain.IsTemplateNotFound(err))
}

func TestRenderPromptFallsBackToLatest(t *testing.T) {
	// Build a snapshot where no version is flagged active, as an import
	// from an external system might produce.
	dir := t.TempDir()
	store, err := jsonfile.New(dir)
	require.NoError(t, err)

	templateID := uuid.New()
	now := time.Now().UTC()
	snap := domain.NewSnapshot()
	snap.Templates[templateID] = &domain.Template{ID: templateID, Name: "t", Template: "old", CreatedAt: now, UpdatedAt: now}
	snap.Versions[templateID] = []*domain.Version{
		{ID: uuid.New(), TemplateID: templateID, Sequence: 1, Content: domain.VersionContent{Template: "old"}, CreatedAt: now},
		{ID: uuid.New(), TemplateID: templateID, Sequence: 2, Content: domain.VersionContent{Template: "newest"}, CreatedAt: now},
	}
	require.NoError(t, store.Save(context.Background(), snap))

	svc := newTestServiceAt(t, dir)
	rendered, _, err := svc.RenderPrompt(context.Background(), templateID, nil, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, "newest", rendered)
}

func TestRenderPromptPrefersExperimentAssignment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "t", "", "control", nil)
	require.NoError(t, err)

	challenger, err := svc.CreateVersion(ctx, id, version.CreateVersionParams{Body: "challenger"})
	require.NoError(t, err)

	// Route all experiment traffic to the challenger while the control
	// version stays active.
	require.NoError(t, svc.StartAbTest(id, []uuid.UUID{challenger}, nil))

	rendered, _, err := svc.RenderPrompt(ctx, id, nil, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, "challenger", rendered)

	// Anonymous renders bypass the experiment.
	rendered, _, err = svc.RenderPrompt(ctx, id, nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "control", rendered)
}

func TestStopAbTestActivatesWinner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "t", "", "v1", nil)
	require.NoError(t, err)
	v2, err := svc.CreateVersion(ctx, id, version.CreateVersionParams{Body: "v2"})
	require.NoError(t, err)

	require.NoError(t, svc.StartAbTest(id, []uuid.UUID{v2}, nil))
	require.NoError(t, svc.StopAbTest(ctx, id, &v2))

	tmpl, err := svc.GetTemplate(id)
	require.NoError(t, err)
	assert.Equal(t, "v2", tmpl.Template)

	err = svc.StopAbTest(ctx, id, nil)
	assert.True(t, domain.IsNoActiveExperiment(err))
}

func TestRecordPerformanceFlowsIntoMetrics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "t", "", "body", nil)
	require.NoError(t, err)

	_, usageID, err := svc.RenderPrompt(ctx, id, nil, "u1", map[string]any{"channel": "test"})
	require.NoError(t, err)
	require.NoError(t, svc.RecordPerformance(ctx, usageID, map[string]any{"score": 4.0}, map[string]any{"comment": "fine"}))

	m, err := svc.TemplateMetrics(id, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.UsageCount)
	assert.Equal(t, 4.0, m.Metrics["score"].Avg)
}

func TestOptimizePromptActivatesBestVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "t", "", "v1", nil)
	require.NoError(t, err)
	versions, err := svc.ListVersions(id)
	require.NoError(t, err)
	v1 := versions[0].ID
	v2, err := svc.CreateVersion(ctx, id, version.CreateVersionParams{Body: "v2"})
	require.NoError(t, err)

	record := func(versionID uuid.UUID, user string, score float64) {
		require.NoError(t, svc.StartAbTest(id, []uuid.UUID{versionID}, nil))
		_, usageID, err := svc.RenderPrompt(ctx, id, nil, user, nil)
		require.NoError(t, err)
		require.NoError(t, svc.RecordPerformance(ctx, usageID, map[string]any{"score": score}, nil))
		require.NoError(t, svc.StopAbTest(ctx, id, nil))
	}

	record(v1, "a", 1.0)
	record(v1, "b", 2.0)
	record(v2, "c", 8.0)
	record(v2, "d", 9.0)

	best, switched, err := svc.OptimizePrompt(ctx, id, "score", true)
	require.NoError(t, err)
	assert.True(t, switched)
	assert.Equal(t, v2, best)

	tmpl, err := svc.GetTemplate(id)
	require.NoError(t, err)
	assert.Equal(t, "v2", tmpl.Template)
}

func TestOptimizePromptBelowThreshold(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "t", "", "body", nil)
	require.NoError(t, err)

	// One sample is below the configured minimum of two.
	_, usageID, err := svc.RenderPrompt(ctx, id, nil, "u1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.RecordPerformance(ctx, usageID, map[string]any{"score": 1.0}, nil))

	_, switched, err := svc.OptimizePrompt(ctx, id, "score", true)
	require.NoError(t, err)
	assert.False(t, switched)
}

func TestStateSurvivesRestart(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "t", "desc", "body", nil)
	require.NoError(t, err)
	_, usageID, err := svc.RenderPrompt(ctx, id, nil, "u1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.RecordPerformance(ctx, usageID, map[string]any{"score": 3.0}, nil))

	reopened := newTestServiceAt(t, dir)

	tmpl, err := reopened.GetTemplate(id)
	require.NoError(t, err)
	assert.Equal(t, "body", tmpl.Template)

	m, err := reopened.TemplateMetrics(id, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.UsageCount)
	assert.Equal(t, 3.0, m.Metrics["score"].Avg)
}

func TestDeleteTemplateStopsExperiment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "t", "", "body", nil)
	require.NoError(t, err)
	versions, err := svc.ListVersions(id)
	require.NoError(t, err)
	require.NoError(t, svc.StartAbTest(id, []uuid.UUID{versions[0].ID}, nil))

	require.NoError(t, svc.DeleteTemplate(ctx, id))

	_, running := svc.ExperimentStatus(id)
	assert.False(t, running)

	err = svc.DeleteTemplate(ctx, id)
	assert.True(t, domain.IsTemplateNotFound(err))
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateTemplate(ctx, "greeting", "says hi", "Hi {{name}}", map[string]string{"name": "there"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "greeting.yaml")
	require.NoError(t, svc.ExportTemplate(id, path))

	imported, err := svc.ImportTemplate(ctx, path)
	require.NoError(t, err)

	tmpl, err := svc.GetTemplate(imported)
	require.NoError(t, err)
	assert.Equal(t, "greeting", tmpl.Name)
	assert.Equal(t, "Hi {{name}}", tmpl.Template)
	assert.Equal(t, map[string]string{"name": "there"}, tmpl.DefaultValues)
}
