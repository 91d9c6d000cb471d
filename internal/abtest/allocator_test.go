package abtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/promptwheel/internal/domain"
)

// fakeChecker accepts any version listed for a template.
type fakeChecker struct {
	versions map[uuid.UUID][]uuid.UUID
}

func (f *fakeChecker) HasVersion(templateID, versionID uuid.UUID) bool {
	for _, id := range f.versions[templateID] {
		if id == versionID {
			return true
		}
	}
	return false
}

func newFixture(t *testing.T, versionCount int) (*Allocator, uuid.UUID, []uuid.UUID) {
	t.Helper()
	templateID := uuid.New()
	versions := make([]uuid.UUID, versionCount)
	for i := range versions {
		versions[i] = uuid.New()
	}
	checker := &fakeChecker{versions: map[uuid.UUID][]uuid.UUID{templateID: versions}}
	return NewAllocator(checker), templateID, versions
}

func TestStartValidatesMembership(t *testing.T) {
	a, templateID, versions := newFixture(t, 2)

	err := a.Start(templateID, []uuid.UUID{versions[0], uuid.New()}, nil)
	assert.True(t, domain.IsVersionNotFound(err))
	assert.False(t, a.IsRunning(templateID))

	require.NoError(t, a.Start(templateID, versions, nil))
	assert.True(t, a.IsRunning(templateID))
}

func TestStartInvalidWeights(t *testing.T) {
	a, templateID, versions := newFixture(t, 2)

	tests := []struct {
		name    string
		weights []float64
	}{
		{"length mismatch", []float64{1.0}},
		{"negative weight", []float64{0.5, -0.5}},
		{"all zero", []float64{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Start(templateID, versions, tt.weights)
			assert.True(t, domain.IsInvalidWeights(err))
		})
	}
}

func TestStartNormalizesWeights(t *testing.T) {
	a, templateID, versions := newFixture(t, 2)
	require.NoError(t, a.Start(templateID, versions, []float64{3, 1}))

	exp, ok := a.Experiment(templateID)
	require.True(t, ok)
	assert.InDelta(t, 0.75, exp.Weights[0], 1e-9)
	assert.InDelta(t, 0.25, exp.Weights[1], 1e-9)
}

func TestStickyAllocation(t *testing.T) {
	a, templateID, versions := newFixture(t, 2)
	require.NoError(t, a.Start(templateID, versions, []float64{0.5, 0.5}))

	first, err := a.Allocate(templateID, "u1")
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, err := a.Allocate(templateID, "u1")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestWeightedAllocationConverges(t *testing.T) {
	a, templateID, versions := newFixture(t, 2)
	require.NoError(t, a.Start(templateID, versions, []float64{0.9, 0.1}))

	const users = 5000
	counts := make(map[uuid.UUID]int)
	for i := 0; i < users; i++ {
		v, err := a.Allocate(templateID, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		counts[v]++
	}

	share := float64(counts[versions[0]]) / users
	// Wide tolerance; at n=5000 the standard deviation of the share is
	// about 0.004, so 0.05 leaves plenty of room.
	assert.InDelta(t, 0.9, share, 0.05)
}

func TestAllocateWithoutExperiment(t *testing.T) {
	a, templateID, _ := newFixture(t, 2)

	_, err := a.Allocate(templateID, "u1")
	assert.True(t, domain.IsNoActiveExperiment(err))
}

func TestStopDiscardsAllocations(t *testing.T) {
	a, templateID, versions := newFixture(t, 2)
	require.NoError(t, a.Start(templateID, versions, nil))

	_, err := a.Allocate(templateID, "u1")
	require.NoError(t, err)

	assert.True(t, a.Stop(templateID))
	assert.False(t, a.Stop(templateID))
	assert.False(t, a.IsRunning(templateID))

	_, err = a.Allocate(templateID, "u1")
	assert.True(t, domain.IsNoActiveExperiment(err))
}

func TestRestartResetsAllocations(t *testing.T) {
	a, templateID, versions := newFixture(t, 2)
	require.NoError(t, a.Start(templateID, versions, nil))
	_, err := a.Allocate(templateID, "u1")
	require.NoError(t, err)

	// Restart with a single candidate; the old sticky table must be gone.
	require.NoError(t, a.Start(templateID, versions[:1], nil))
	v, err := a.Allocate(templateID, "u1")
	require.NoError(t, err)
	assert.Equal(t, versions[0], v)
}
