// Package tui provides an interactive dashboard over templates, their
// versions, and their recent metrics.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/isaacphi/promptwheel/internal/config"
	"github.com/isaacphi/promptwheel/internal/domain"
	"github.com/isaacphi/promptwheel/internal/service"
	"github.com/isaacphi/promptwheel/internal/ui/tui/styles"
)

type viewState int

const (
	stateTemplateList viewState = iota
	stateTemplateDetail
)

type templateItem struct {
	summary domain.TemplateSummary
}

func (i templateItem) Title() string {
	if i.summary.ActiveSequence > 0 {
		return fmt.Sprintf("%s (v%d active)", i.summary.Name, i.summary.ActiveSequence)
	}
	return i.summary.Name
}

func (i templateItem) Description() string {
	return fmt.Sprintf("%d versions, created %s",
		i.summary.VersionCount, i.summary.CreatedAt.Format("2006-01-02"))
}

func (i templateItem) FilterValue() string { return i.summary.Name }

type templatesLoadedMsg struct{ items []list.Item }

type detailLoadedMsg struct {
	template   domain.Template
	versions   []domain.Version
	metrics    domain.TemplateMetrics
	experiment *domain.Experiment
}

type errMsg struct{ err error }

type Model struct {
	state  viewState
	svc    *service.PromptService
	keymap config.KeyMap

	list   list.Model
	detail detailLoadedMsg
	err    error

	width  int
	height int
}

func NewModel(svc *service.PromptService, keymap config.KeyMap) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Templates"
	l.Styles.Title = styles.TitleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return Model{
		state:  stateTemplateList,
		svc:    svc,
		keymap: keymap,
		list:   l,
	}
}

// Run starts the dashboard and blocks until the user quits.
func Run(svc *service.PromptService, keymap config.KeyMap) error {
	p := tea.NewProgram(NewModel(svc, keymap), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.loadTemplates
}

func (m Model) loadTemplates() tea.Msg {
	summaries := m.svc.ListTemplates()
	items := make([]list.Item, len(summaries))
	for i, summary := range summaries {
		items[i] = templateItem{summary: summary}
	}
	return templatesLoadedMsg{items: items}
}

func (m Model) loadDetail(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		tmpl, err := m.svc.GetTemplate(id)
		if err != nil {
			return errMsg{err}
		}
		versions, err := m.svc.ListVersions(id)
		if err != nil {
			return errMsg{err}
		}
		metrics, err := m.svc.TemplateMetrics(id, time.Time{}, time.Time{})
		if err != nil {
			return errMsg{err}
		}
		msg := detailLoadedMsg{template: tmpl, versions: versions, metrics: metrics}
		if exp, running := m.svc.ExperimentStatus(id); running {
			msg.experiment = &exp
		}
		return msg
	}
}

// pressed reports whether the key matches the configured bindings for the
// action, falling back to the defaults when none are configured.
func (m Model) pressed(key tea.KeyMsg, action string, fallback ...string) bool {
	keys := m.keymap.GetKeys(action)
	if len(keys) == 0 {
		keys = fallback
	}
	pressed := key.String()
	for _, k := range keys {
		if k == pressed {
			return true
		}
	}
	return false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		frameW, frameH := styles.DocStyle.GetFrameSize()
		m.list.SetSize(msg.Width-frameW, msg.Height-frameH)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || m.pressed(msg, config.KeyActionQuit, "q") {
			return m, tea.Quit
		}
		if m.pressed(msg, config.KeyActionRefresh, "r") {
			if m.state == stateTemplateDetail {
				return m, m.loadDetail(m.detail.template.ID)
			}
			return m, m.loadTemplates
		}

		switch m.state {
		case stateTemplateList:
			if m.pressed(msg, config.KeyActionSelect, "enter") {
				if item, ok := m.list.SelectedItem().(templateItem); ok {
					return m, m.loadDetail(item.summary.ID)
				}
			}
		case stateTemplateDetail:
			if m.pressed(msg, config.KeyActionBack, "esc") {
				m.state = stateTemplateList
				m.err = nil
				return m, m.loadTemplates
			}
		}

	case templatesLoadedMsg:
		m.list.SetItems(msg.items)
		return m, nil

	case detailLoadedMsg:
		m.state = stateTemplateDetail
		m.detail = msg
		m.err = nil
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.err != nil {
		return styles.DocStyle.Render(fmt.Sprintf("Error: %v\n\n%s", m.err,
			styles.HelpStyle.Render("esc: back  q: quit")))
	}

	switch m.state {
	case stateTemplateDetail:
		return styles.DocStyle.Render(m.detailView())
	default:
		help := styles.HelpStyle.Render("enter: open  r: refresh  q: quit")
		return styles.DocStyle.Render(m.list.View() + "\n" + help)
	}
}

func (m Model) detailView() string {
	var b strings.Builder
	d := m.detail

	b.WriteString(styles.HeaderStyle.Render(d.template.Name))
	b.WriteString("\n")
	if d.template.Description != "" {
		b.WriteString(d.template.Description + "\n")
	}
	b.WriteString(styles.LabelStyle.Render(d.template.ID.String()) + "\n\n")

	b.WriteString(styles.HeaderStyle.Render("Versions") + "\n")
	for _, v := range d.versions {
		line := fmt.Sprintf("  v%d %s", v.Sequence, v.Name)
		if v.Active {
			line = styles.ActiveStyle.Render(line + " (active)")
		}
		b.WriteString(line + "\n")
	}

	if d.experiment != nil {
		b.WriteString("\n" + styles.HeaderStyle.Render("Experiment") + "\n")
		b.WriteString(fmt.Sprintf("  %d versions, %d users since %s\n",
			len(d.experiment.VersionIDs),
			len(d.experiment.Allocations),
			d.experiment.StartedAt.Format("15:04:05")))
	}

	b.WriteString("\n" + styles.HeaderStyle.Render("Metrics (30 days)") + "\n")
	b.WriteString(fmt.Sprintf("  %d usages\n", d.metrics.UsageCount))
	names := make([]string, 0, len(d.metrics.Metrics))
	for name := range d.metrics.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		agg := d.metrics.Metrics[name]
		b.WriteString(fmt.Sprintf("  %s: avg %.3f (min %.3f, max %.3f, n=%d)\n",
			name, agg.Avg, agg.Min, agg.Max, agg.Count))
	}

	b.WriteString("\n" + styles.HelpStyle.Render("esc: back  r: refresh  q: quit"))
	return b.String()
}
