// Package version owns template lineages and their activation state.
package version

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isaacphi/promptwheel/internal/domain"
)

// Store holds every template and its version history. The registry map has
// its own lock; each template's state is locked independently so operations
// on different templates do not contend.
type Store struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]*templateState
}

type templateState struct {
	mu       sync.RWMutex
	template domain.Template
	versions []*domain.Version
	active   *domain.Version
	nextSeq  int
}

func NewStore() *Store {
	return &Store{templates: make(map[uuid.UUID]*templateState)}
}

// CreateVersionParams are the optional knobs for CreateVersion. A nil
// Defaults map means "inherit the previous version's defaults".
type CreateVersionParams struct {
	Body        string
	Defaults    map[string]string
	Name        string
	Description string
	CreatedBy   string
	SetActive   bool
}

// CreateTemplate creates a template together with its first version, which
// starts out active.
func (s *Store) CreateTemplate(name, description, body string, defaults map[string]string) uuid.UUID {
	now := time.Now().UTC()
	content := domain.VersionContent{Template: body, DefaultValues: defaults}.Clone()

	tmpl := domain.Template{
		ID:            uuid.New(),
		Name:          name,
		Description:   description,
		Template:      content.Template,
		DefaultValues: content.Clone().DefaultValues,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	initial := &domain.Version{
		ID:          uuid.New(),
		TemplateID:  tmpl.ID,
		Sequence:    1,
		Name:        "Initial Version",
		Description: "Initial version of the template",
		Content:     content,
		CreatedBy:   "system",
		CreatedAt:   now,
		Active:      true,
	}

	state := &templateState{
		template: tmpl,
		versions: []*domain.Version{initial},
		active:   initial,
		nextSeq:  2,
	}

	s.mu.Lock()
	s.templates[tmpl.ID] = state
	s.mu.Unlock()

	return tmpl.ID
}

func (s *Store) state(templateID uuid.UUID) (*templateState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.templates[templateID]
	return state, ok
}

// CreateVersion appends a new version to a template's lineage. Sequence
// numbers keep increasing even if earlier versions disappear with their
// template. With SetActive the template's denormalized body/defaults are
// synced to the new content in the same critical section.
func (s *Store) CreateVersion(templateID uuid.UUID, params CreateVersionParams) (uuid.UUID, error) {
	state, ok := s.state(templateID)
	if !ok {
		return uuid.Nil, domain.TemplateNotFoundError{ID: templateID}
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	content := domain.VersionContent{Template: params.Body, DefaultValues: params.Defaults}
	if content.DefaultValues == nil && len(state.versions) > 0 {
		content.DefaultValues = state.versions[len(state.versions)-1].Content.DefaultValues
	}
	content = content.Clone()

	seq := state.nextSeq
	state.nextSeq++

	name := params.Name
	if name == "" {
		name = fmt.Sprintf("Version %d", seq)
	}
	createdBy := params.CreatedBy
	if createdBy == "" {
		createdBy = "system"
	}

	v := &domain.Version{
		ID:          uuid.New(),
		TemplateID:  templateID,
		Sequence:    seq,
		Name:        name,
		Description: params.Description,
		Content:     content,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}
	state.versions = append(state.versions, v)

	if params.SetActive {
		state.activateLocked(v)
	}

	return v.ID, nil
}

// activateLocked flips the active flag atomically and mirrors the new
// content onto the template. Caller holds state.mu.
func (ts *templateState) activateLocked(v *domain.Version) {
	if ts.active != nil {
		ts.active.Active = false
	}
	v.Active = true
	ts.active = v

	ts.template.Template = v.Content.Template
	ts.template.DefaultValues = v.Content.Clone().DefaultValues
	ts.template.UpdatedAt = time.Now().UTC()
}

// SetActiveVersion activates the given version. At most one version per
// template is ever active.
func (s *Store) SetActiveVersion(templateID, versionID uuid.UUID) error {
	state, ok := s.state(templateID)
	if !ok {
		return domain.TemplateNotFoundError{ID: templateID}
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	for _, v := range state.versions {
		if v.ID == versionID {
			state.activateLocked(v)
			return nil
		}
	}
	return domain.VersionNotFoundError{TemplateID: templateID, VersionID: versionID}
}

// HasVersion reports whether versionID belongs to templateID.
func (s *Store) HasVersion(templateID, versionID uuid.UUID) bool {
	state, ok := s.state(templateID)
	if !ok {
		return false
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	for _, v := range state.versions {
		if v.ID == versionID {
			return true
		}
	}
	return false
}

// Version returns a copy of the given version.
func (s *Store) Version(templateID, versionID uuid.UUID) (domain.Version, error) {
	state, ok := s.state(templateID)
	if !ok {
		return domain.Version{}, domain.TemplateNotFoundError{ID: templateID}
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	for _, v := range state.versions {
		if v.ID == versionID {
			return copyVersion(v), nil
		}
	}
	return domain.Version{}, domain.VersionNotFoundError{TemplateID: templateID, VersionID: versionID}
}

// ActiveVersion returns the active version, if any.
func (s *Store) ActiveVersion(templateID uuid.UUID) (domain.Version, bool, error) {
	state, ok := s.state(templateID)
	if !ok {
		return domain.Version{}, false, domain.TemplateNotFoundError{ID: templateID}
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	if state.active == nil {
		return domain.Version{}, false, nil
	}
	return copyVersion(state.active), true, nil
}

// LatestVersion returns the most recently created version.
func (s *Store) LatestVersion(templateID uuid.UUID) (domain.Version, error) {
	state, ok := s.state(templateID)
	if !ok {
		return domain.Version{}, domain.TemplateNotFoundError{ID: templateID}
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	if len(state.versions) == 0 {
		return domain.Version{}, domain.NoVersionsError{TemplateID: templateID}
	}
	return copyVersion(state.versions[len(state.versions)-1]), nil
}

// ListVersions returns copies of a template's versions in creation order.
func (s *Store) ListVersions(templateID uuid.UUID) ([]domain.Version, error) {
	state, ok := s.state(templateID)
	if !ok {
		return nil, domain.TemplateNotFoundError{ID: templateID}
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	out := make([]domain.Version, len(state.versions))
	for i, v := range state.versions {
		out[i] = copyVersion(v)
	}
	return out, nil
}

// GetTemplate returns a copy of the template.
func (s *Store) GetTemplate(templateID uuid.UUID) (domain.Template, error) {
	state, ok := s.state(templateID)
	if !ok {
		return domain.Template{}, domain.TemplateNotFoundError{ID: templateID}
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	return copyTemplate(&state.template), nil
}

// UpdateTemplate updates a template's metadata, not its content. Nil means
// keep the current value.
func (s *Store) UpdateTemplate(templateID uuid.UUID, name, description *string) error {
	state, ok := s.state(templateID)
	if !ok {
		return domain.TemplateNotFoundError{ID: templateID}
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if name != nil {
		state.template.Name = *name
	}
	if description != nil {
		state.template.Description = *description
	}
	state.template.UpdatedAt = time.Now().UTC()
	return nil
}

// ListTemplates returns summaries sorted by creation time.
func (s *Store) ListTemplates() []domain.TemplateSummary {
	s.mu.RLock()
	states := make([]*templateState, 0, len(s.templates))
	for _, state := range s.templates {
		states = append(states, state)
	}
	s.mu.RUnlock()

	out := make([]domain.TemplateSummary, 0, len(states))
	for _, state := range states {
		state.mu.RLock()
		summary := domain.TemplateSummary{
			ID:           state.template.ID,
			Name:         state.template.Name,
			Description:  state.template.Description,
			CreatedAt:    state.template.CreatedAt,
			VersionCount: len(state.versions),
		}
		if state.active != nil {
			summary.ActiveSequence = state.active.Sequence
		}
		state.mu.RUnlock()
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// DeleteTemplate removes a template and its whole lineage. Returns false if
// the template is unknown.
func (s *Store) DeleteTemplate(templateID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[templateID]; !ok {
		return false
	}
	delete(s.templates, templateID)
	return true
}

// SnapshotInto copies the store's state into snap for persistence.
func (s *Store) SnapshotInto(snap *domain.Snapshot) {
	s.mu.RLock()
	states := make(map[uuid.UUID]*templateState, len(s.templates))
	for id, state := range s.templates {
		states[id] = state
	}
	s.mu.RUnlock()

	for id, state := range states {
		state.mu.RLock()
		tmpl := copyTemplate(&state.template)
		snap.Templates[id] = &tmpl
		versions := make([]*domain.Version, len(state.versions))
		for i, v := range state.versions {
			vc := copyVersion(v)
			versions[i] = &vc
		}
		state.mu.RUnlock()
		snap.Versions[id] = versions
	}
}

// Restore replaces the store's state with the snapshot's. The active pointer
// and next sequence number are rebuilt from the version lists.
func (s *Store) Restore(snap *domain.Snapshot) {
	templates := make(map[uuid.UUID]*templateState, len(snap.Templates))
	for id, tmpl := range snap.Templates {
		state := &templateState{
			template: copyTemplate(tmpl),
			nextSeq:  1,
		}
		for _, v := range snap.Versions[id] {
			vc := copyVersion(v)
			state.versions = append(state.versions, &vc)
			if vc.Sequence >= state.nextSeq {
				state.nextSeq = vc.Sequence + 1
			}
			if vc.Active {
				state.active = state.versions[len(state.versions)-1]
			}
		}
		sort.Slice(state.versions, func(i, j int) bool {
			return state.versions[i].Sequence < state.versions[j].Sequence
		})
		templates[id] = state
	}

	s.mu.Lock()
	s.templates = templates
	s.mu.Unlock()
}

func copyVersion(v *domain.Version) domain.Version {
	out := *v
	out.Content = v.Content.Clone()
	return out
}

func copyTemplate(t *domain.Template) domain.Template {
	out := *t
	if t.DefaultValues != nil {
		out.DefaultValues = make(map[string]string, len(t.DefaultValues))
		for k, v := range t.DefaultValues {
			out.DefaultValues[k] = v
		}
	}
	return out
}
