package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/promptwheel/internal/domain"
)

func sampleSnapshot() *domain.Snapshot {
	now := time.Now().UTC().Truncate(time.Second)
	templateID := uuid.New()
	versionID := uuid.New()
	usageID := uuid.New()

	snap := domain.NewSnapshot()
	snap.Templates[templateID] = &domain.Template{
		ID:            templateID,
		Name:          "greeting",
		Template:      "Hi {{name}}",
		DefaultValues: map[string]string{"name": "there"},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	snap.Versions[templateID] = []*domain.Version{{
		ID:         versionID,
		TemplateID: templateID,
		Sequence:   1,
		Name:       "Initial Version",
		Content: domain.VersionContent{
			Template:      "Hi {{name}}",
			DefaultValues: map[string]string{"name": "there"},
		},
		CreatedBy: "system",
		CreatedAt: now,
		Active:    true,
	}}
	snap.Usage[templateID] = []*domain.UsageRecord{{
		ID:         usageID,
		TemplateID: templateID,
		VersionID:  &versionID,
		UserID:     "u1",
		Timestamp:  now,
	}}
	snap.Performance[usageID] = &domain.PerformanceRecord{
		UsageID:   usageID,
		Metrics:   map[string]any{"score": 4.5},
		Timestamp: now,
	}
	return snap
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	snap := sampleSnapshot()
	require.NoError(t, store.Save(context.Background(), snap))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, snap.Templates, loaded.Templates)
	assert.Equal(t, snap.Versions, loaded.Versions)
	assert.Equal(t, snap.Usage, loaded.Usage)
	assert.Equal(t, snap.Performance, loaded.Performance)
}

func TestLoadEmptyDirectory(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Templates)
	assert.Empty(t, snap.Versions)
	assert.Empty(t, snap.Usage)
	assert.Empty(t, snap.Performance)
}

func TestLoadCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates.json"), []byte("{not json"), 0o644))

	_, err = store.Load(context.Background())
	assert.ErrorContains(t, err, "templates.json")
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), sampleSnapshot()))

	// Saving an empty snapshot must not leave stale records behind.
	require.NoError(t, store.Save(context.Background(), domain.NewSnapshot()))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Templates)
	assert.Empty(t, loaded.Usage)
}
