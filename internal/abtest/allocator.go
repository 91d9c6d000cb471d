// Package abtest assigns users to template versions for running experiments.
// Assignments are sticky: once a user draws a version it never changes for
// the experiment's lifetime.
package abtest

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isaacphi/promptwheel/internal/domain"
)

// VersionChecker reports version membership; satisfied by *version.Store.
type VersionChecker interface {
	HasVersion(templateID, versionID uuid.UUID) bool
}

type experiment struct {
	mu          sync.Mutex
	versionIDs  []uuid.UUID
	weights     []float64 // normalized, cumulative lookup is done at draw time
	allocations map[string]uuid.UUID
	startedAt   time.Time
}

// Allocator manages at most one experiment per template.
type Allocator struct {
	mu          sync.RWMutex
	experiments map[uuid.UUID]*experiment

	checker VersionChecker

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewAllocator(checker VersionChecker) *Allocator {
	return &Allocator{
		experiments: make(map[uuid.UUID]*experiment),
		checker:     checker,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins an experiment over the given versions. Omitted weights mean a
// uniform split. Supplied weights must match the version list, be
// non-negative, and not all zero; they are normalized by their sum.
// Restarting replaces any running experiment and its allocation table.
func (a *Allocator) Start(templateID uuid.UUID, versionIDs []uuid.UUID, weights []float64) error {
	if len(versionIDs) == 0 {
		return domain.InvalidWeightsError{Reason: "no versions to test"}
	}
	for _, id := range versionIDs {
		if !a.checker.HasVersion(templateID, id) {
			return domain.VersionNotFoundError{TemplateID: templateID, VersionID: id}
		}
	}

	if weights == nil {
		weights = make([]float64, len(versionIDs))
		for i := range weights {
			weights[i] = 1.0 / float64(len(versionIDs))
		}
	}
	if len(weights) != len(versionIDs) {
		return domain.InvalidWeightsError{Reason: "weights must match versions"}
	}

	var total float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return domain.InvalidWeightsError{Reason: "weights must be non-negative finite numbers"}
		}
		total += w
	}
	if total <= 0 {
		return domain.InvalidWeightsError{Reason: "weights must not all be zero"}
	}

	normalized := make([]float64, len(weights))
	for i, w := range weights {
		normalized[i] = w / total
	}

	exp := &experiment{
		versionIDs:  append([]uuid.UUID(nil), versionIDs...),
		weights:     normalized,
		allocations: make(map[string]uuid.UUID),
		startedAt:   time.Now().UTC(),
	}

	a.mu.Lock()
	a.experiments[templateID] = exp
	a.mu.Unlock()

	return nil
}

// IsRunning reports whether an experiment is active for the template.
func (a *Allocator) IsRunning(templateID uuid.UUID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.experiments[templateID]
	return ok
}

// Allocate returns the version assigned to userID, drawing a fresh one on
// first contact. The sticky lookup, not the random source, is what makes
// repeated calls deterministic.
func (a *Allocator) Allocate(templateID uuid.UUID, userID string) (uuid.UUID, error) {
	a.mu.RLock()
	exp, ok := a.experiments[templateID]
	a.mu.RUnlock()
	if !ok {
		return uuid.Nil, domain.NoActiveExperimentError{TemplateID: templateID}
	}

	exp.mu.Lock()
	defer exp.mu.Unlock()

	if existing, ok := exp.allocations[userID]; ok {
		return existing, nil
	}

	chosen := exp.versionIDs[a.draw(exp.weights)]
	exp.allocations[userID] = chosen
	return chosen, nil
}

// draw picks an index by a uniform sample in [0,1) over cumulative weights.
func (a *Allocator) draw(weights []float64) int {
	a.rngMu.Lock()
	r := a.rng.Float64()
	a.rngMu.Unlock()

	var cum float64
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	// Floating rounding can leave cum marginally below 1.
	return len(weights) - 1
}

// Stop discards the experiment and its allocation table. It never touches
// the active version; the orchestrator decides whether a winner gets
// activated. Returns false if nothing was running.
func (a *Allocator) Stop(templateID uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.experiments[templateID]; !ok {
		return false
	}
	delete(a.experiments, templateID)
	return true
}

// Experiment returns a copy of the running experiment for inspection.
func (a *Allocator) Experiment(templateID uuid.UUID) (domain.Experiment, bool) {
	a.mu.RLock()
	exp, ok := a.experiments[templateID]
	a.mu.RUnlock()
	if !ok {
		return domain.Experiment{}, false
	}

	exp.mu.Lock()
	defer exp.mu.Unlock()
	out := domain.Experiment{
		TemplateID:  templateID,
		VersionIDs:  append([]uuid.UUID(nil), exp.versionIDs...),
		Weights:     append([]float64(nil), exp.weights...),
		Allocations: make(map[string]uuid.UUID, len(exp.allocations)),
		StartedAt:   exp.startedAt,
	}
	for user, v := range exp.allocations {
		out.Allocations[user] = v
	}
	return out, true
}
