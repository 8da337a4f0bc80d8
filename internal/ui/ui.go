package ui

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mfx/internal/mirror"
	"github.com/desertthunder/mfx/internal/models"
	"github.com/desertthunder/mfx/internal/registry"
	"github.com/desertthunder/mfx/internal/shared"
)

// ViewState represents the current view in the panel.
type ViewState int

const (
	ExperimentListView ViewState = iota
	RunListView
)

// Model represents the panel application state.
type Model struct {
	ctx            context.Context
	view           ViewState
	dataset        *registry.Dataset
	engine         *mirror.Engine
	width          int
	height         int
	experimentList list.Model
	experiments    []*models.ExperimentRecord
	urls           map[string]string
	runList        list.Model
	selected       *models.ExperimentRecord
	err            error
	help           help.Model
	keys           keyMap
}

// experimentItem wraps [models.ExperimentRecord] to implement list.Item.
type experimentItem struct {
	record *models.ExperimentRecord
}

func (i experimentItem) FilterValue() string { return i.record.ExperimentName }
func (i experimentItem) Title() string       { return i.record.ExperimentName }
func (i experimentItem) Description() string {
	return fmt.Sprintf("%d runs • ID %s", len(i.record.Runs), i.record.ExperimentID)
}

// runItem wraps [models.RunRecord] to implement list.Item.
type runItem struct {
	record *models.RunRecord
}

func (i runItem) FilterValue() string { return i.record.RunName }
func (i runItem) Title() string       { return i.record.RunName }
func (i runItem) Description() string {
	if len(i.record.Metrics) == 0 {
		return i.record.RunID
	}

	keys := make([]string, 0, len(i.record.Metrics))
	for k := range i.record.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	desc := ""
	for _, k := range keys {
		if desc != "" {
			desc += " • "
		}
		desc += fmt.Sprintf("%s=%g", k, i.record.Metrics[k])
	}
	return desc
}

type recordsLoadedMsg struct {
	experiments []*models.ExperimentRecord
	urls        map[string]string
	err         error
}

type runsLoadedMsg struct {
	runs []*models.RunRecord
	err  error
}

// NewModel creates a new panel model over the given dataset.
func NewModel(ctx context.Context, dataset *registry.Dataset, engine *mirror.Engine) *Model {
	return &Model{
		ctx:     ctx,
		view:    ExperimentListView,
		dataset: dataset,
		engine:  engine,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init initializes the panel by loading mirrored experiments from the registry.
func (m *Model) Init() tea.Cmd {
	return m.loadExperiments()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.experimentList.Width() == 0 {
			m.experimentList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.runList.Width() == 0 {
			m.runList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ExperimentListView:
			return m.handleExperimentListKeys(msg)
		case RunListView:
			return m.handleRunListKeys(msg)
		}

	case recordsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.experiments = msg.experiments
		m.urls = msg.urls
		items := make([]list.Item, len(msg.experiments))
		for i, rec := range msg.experiments {
			items[i] = experimentItem{record: rec}
		}
		m.experimentList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.experimentList.Title = fmt.Sprintf("Experiments in '%s'", m.dataset.Name())
		m.experimentList.SetSize(m.width-4, m.height-8)
		return m, nil

	case runsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ExperimentListView
			return m, nil
		}
		items := make([]list.Item, len(msg.runs))
		for i, rec := range msg.runs {
			items[i] = runItem{record: rec}
		}
		m.runList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.runList.Title = fmt.Sprintf("Runs in '%s'", m.selected.ExperimentName)
		m.runList.SetSize(m.width-4, m.height-8)
		m.view = RunListView
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the panel based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ExperimentListView:
		return m.renderExperimentList()
	case RunListView:
		return m.renderRunList()
	default:
		return ""
	}
}

func (m *Model) handleExperimentListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		if item, ok := m.experimentList.SelectedItem().(experimentItem); ok {
			m.selected = item.record
			return m, m.loadRuns(item.record)
		}
	case "o":
		if item, ok := m.experimentList.SelectedItem().(experimentItem); ok {
			if url, found := m.urls[item.record.ExperimentName]; found {
				// Browser launch failures surface on quit, not mid-render
				if err := shared.OpenBrowser(url); err != nil {
					m.err = err
				}
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.experimentList, cmd = m.experimentList.Update(msg)
	return m, cmd
}

func (m *Model) handleRunListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ExperimentListView
		return m, nil
	}

	var cmd tea.Cmd
	m.runList, cmd = m.runList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ExperimentListView:
		m.experimentList, cmd = m.experimentList.Update(msg)
	case RunListView:
		m.runList, cmd = m.runList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadExperiments() tea.Cmd {
	return func() tea.Msg {
		infos, err := m.dataset.ListRunInfos(models.MethodExperiment)
		if err != nil {
			return recordsLoadedMsg{err: err}
		}

		experiments := make([]*models.ExperimentRecord, 0, len(infos))
		for _, info := range infos {
			if rec, ok := info.Config.(*models.ExperimentRecord); ok {
				experiments = append(experiments, rec)
			}
		}

		links, err := m.engine.ExperimentLinks(m.dataset)
		if err != nil {
			return recordsLoadedMsg{err: err}
		}
		urls := make(map[string]string, len(links.URLs))
		for _, link := range links.URLs {
			urls[link.Name] = link.URL
		}

		return recordsLoadedMsg{experiments: experiments, urls: urls}
	}
}

func (m *Model) loadRuns(exp *models.ExperimentRecord) tea.Cmd {
	return func() tea.Msg {
		runs := make([]*models.RunRecord, 0, len(exp.Runs))
		for _, name := range exp.Runs {
			info, err := m.dataset.GetRunInfo(shared.NormalizeRunKey(name))
			if err != nil {
				return runsLoadedMsg{err: err}
			}
			rec, ok := info.Config.(*models.RunRecord)
			if !ok {
				return runsLoadedMsg{err: fmt.Errorf("record %q is not a run record", name)}
			}
			runs = append(runs, rec)
		}
		return runsLoadedMsg{runs: runs}
	}
}

func (m *Model) renderExperimentList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.open, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.experimentList.View(), helpView)
}

func (m *Model) renderRunList() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.runList.View(), helpView)
}
