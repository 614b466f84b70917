package form

import (
	"context"
	"errors"
	"strconv"
	"unicode"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nao1215/boorucrawl/internal/model"
	"github.com/nao1215/boorucrawl/internal/runner"
)

// MaxSuggestions is the number of completions shown under the search field.
const MaxSuggestions = 8

// defaultPickerHeight is used until the terminal size is known.
const defaultPickerHeight = 20

// Completer suggests full replacements for the search term.
type Completer interface {
	Complete(input string) []string
}

// RunFinishedMsg is delivered once when a run started from the form ends.
type RunFinishedMsg struct {
	Result runner.Result
}

type field int

const (
	fieldSource field = iota
	fieldSearch
	fieldResize
	fieldTagging
	fieldMaxCount
	fieldOutput
	fieldBrowse
	fieldStart
	fieldCount
)

type dialogKind int

const (
	dialogInfo dialogKind = iota
	dialogWarning
	dialogError
)

type dialog struct {
	kind dialogKind
	text string
}

// Model is the bubbletea model of the form.
type Model struct {
	ctx       context.Context
	ctrl      *Controller
	completer Completer
	help      help.Model

	focus    field
	search   textinput.Model
	resize   textinput.Model
	maxCount textinput.Model
	output   textinput.Model

	suggestions []string
	selected    int

	browsing bool
	picker   filepicker.Model

	dialog *dialog
	width  int
	height int
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithCompleter enables search term completion.
func WithCompleter(c Completer) ModelOption {
	return func(m *Model) {
		m.completer = c
	}
}

// NewModel creates the form model for ctrl. Runs started from the form
// use ctx, so cancelling it stops an active run.
func NewModel(ctx context.Context, ctrl *Controller, opts ...ModelOption) Model {
	params := ctrl.Params()

	search := textinput.New()
	search.Placeholder = "blue_hair"
	search.CharLimit = ctrl.SearchCharLimit()
	search.Width = 40
	search.SetValue(params.SearchTerm)

	resize := textinput.New()
	resize.CharLimit = 5
	resize.Width = 6
	resize.SetValue(strconv.Itoa(params.ResizeSize))

	maxCount := textinput.New()
	maxCount.CharLimit = 4
	maxCount.Width = 6
	maxCount.SetValue(strconv.Itoa(params.MaxCount))

	output := textinput.New()
	output.Placeholder = "select a directory"
	output.Width = 40
	output.SetValue(params.OutputPath)

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		help:     help.New(),
		focus:    fieldSearch,
		search:   search,
		resize:   resize,
		maxCount: maxCount,
		output:   output,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.search.Focus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		if m.browsing {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}
		return m, nil

	case RunFinishedMsg:
		text := m.ctrl.Finish(msg.Result)
		kind := dialogInfo
		if msg.Result.Err != nil {
			kind = dialogError
		}
		m.dialog = &dialog{kind: kind, text: text}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.dialog != nil {
			if key.Matches(msg, keys.Dismiss) {
				m.dialog = nil
			}
			return m, nil
		}
		if m.browsing {
			return m.updatePicker(msg)
		}
		return m.handleKey(msg)
	}

	if m.browsing {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	return m.updateInput(msg)
}

// handleKey processes a key press on the form itself.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focus == fieldSearch && len(m.suggestions) > 0 {
		switch {
		case key.Matches(msg, keys.Up):
			m.selected = (m.selected + len(m.suggestions) - 1) % len(m.suggestions)
			return m, nil
		case key.Matches(msg, keys.Down):
			m.selected = (m.selected + 1) % len(m.suggestions)
			return m, nil
		case key.Matches(msg, keys.Next), key.Matches(msg, keys.Accept):
			m.acceptSuggestion()
			return m, nil
		case key.Matches(msg, keys.Quit):
			m.suggestions = nil
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Start):
		return m.start()
	case key.Matches(msg, keys.Browse):
		return m.openPicker()
	case key.Matches(msg, keys.Next):
		return m.setFocus((m.focus + 1) % fieldCount)
	case key.Matches(msg, keys.Prev):
		return m.setFocus((m.focus + fieldCount - 1) % fieldCount)
	}

	switch m.focus {
	case fieldSource:
		switch {
		case key.Matches(msg, keys.Right), key.Matches(msg, keys.Toggle), key.Matches(msg, keys.Accept):
			m.changeSource(m.ctrl.Params().Source.Next())
		case key.Matches(msg, keys.Left):
			m.changeSource(m.ctrl.Params().Source.Prev())
		}
		return m, nil
	case fieldTagging:
		if key.Matches(msg, keys.Toggle, keys.Accept, keys.Left, keys.Right) {
			m.ctrl.SetEnableTagging(!m.ctrl.Params().EnableTagging)
		}
		return m, nil
	case fieldResize, fieldMaxCount:
		switch {
		case key.Matches(msg, keys.Up):
			m.step(1)
			return m, nil
		case key.Matches(msg, keys.Down):
			m.step(-1)
			return m, nil
		case key.Matches(msg, keys.Accept):
			m.commitNumbers()
			return m, nil
		}
		if msg.Type == tea.KeyRunes && !allDigits(msg.Runes) {
			return m, nil
		}
	case fieldBrowse:
		if key.Matches(msg, keys.Accept) {
			return m.openPicker()
		}
		return m, nil
	case fieldStart:
		if key.Matches(msg, keys.Accept) {
			return m.start()
		}
		return m, nil
	}

	return m.updateInput(msg)
}

// updateInput forwards msg to the focused text input and syncs the
// controller with its value.
func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case fieldSearch:
		before := m.search.Value()
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != before {
			m.ctrl.SetSearchTerm(m.search.Value())
			m.refreshSuggestions()
		}
	case fieldResize:
		m.resize, cmd = m.resize.Update(msg)
	case fieldMaxCount:
		m.maxCount, cmd = m.maxCount.Update(msg)
	case fieldOutput:
		m.output, cmd = m.output.Update(msg)
		m.ctrl.SetOutputPath(m.output.Value())
	}
	return m, cmd
}

// setFocus moves focus to f, committing the numeric fields on the way.
func (m Model) setFocus(f field) (tea.Model, tea.Cmd) {
	m.commitNumbers()
	m.suggestions = nil

	m.search.Blur()
	m.resize.Blur()
	m.maxCount.Blur()
	m.output.Blur()

	m.focus = f
	var cmd tea.Cmd
	switch f {
	case fieldSearch:
		cmd = m.search.Focus()
	case fieldResize:
		cmd = m.resize.Focus()
	case fieldMaxCount:
		cmd = m.maxCount.Focus()
	case fieldOutput:
		cmd = m.output.Focus()
	}
	return m, cmd
}

// changeSource selects src and re-applies the search term ceiling.
func (m *Model) changeSource(src model.Source) {
	m.ctrl.SetSource(src)
	m.search.CharLimit = m.ctrl.SearchCharLimit()
	m.search.SetValue(m.ctrl.Params().SearchTerm)
}

// refreshSuggestions recomputes completions for the search field.
func (m *Model) refreshSuggestions() {
	m.selected = 0
	m.suggestions = nil
	if m.completer == nil {
		return
	}
	suggestions := m.completer.Complete(m.search.Value())
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	m.suggestions = suggestions
}

// acceptSuggestion replaces the search term with the selected completion.
func (m *Model) acceptSuggestion() {
	m.ctrl.SetSearchTerm(m.suggestions[m.selected])
	m.search.SetValue(m.ctrl.Params().SearchTerm)
	m.search.CursorEnd()
	m.suggestions = nil
	m.selected = 0
}

// step nudges the focused numeric field by delta.
func (m *Model) step(delta int) {
	m.commitNumbers()
	params := m.ctrl.Params()
	if m.focus == fieldResize {
		m.ctrl.SetResizeSize(params.ResizeSize + delta)
	} else {
		m.ctrl.SetMaxCount(params.MaxCount + delta)
	}
	m.syncNumbers()
}

// commitNumbers parses the numeric inputs into the controller. Values that
// do not parse keep the previous setting; the rest are clamped.
func (m *Model) commitNumbers() {
	if n, err := strconv.Atoi(m.resize.Value()); err == nil {
		m.ctrl.SetResizeSize(n)
	}
	if n, err := strconv.Atoi(m.maxCount.Value()); err == nil {
		m.ctrl.SetMaxCount(n)
	}
	m.syncNumbers()
}

func (m *Model) syncNumbers() {
	params := m.ctrl.Params()
	m.resize.SetValue(strconv.Itoa(params.ResizeSize))
	m.maxCount.SetValue(strconv.Itoa(params.MaxCount))
}

// start saves the fields and launches a run, or shows why it cannot.
func (m Model) start() (tea.Model, tea.Cmd) {
	m.commitNumbers()
	m.suggestions = nil

	done, err := m.ctrl.Start(m.ctx)
	switch {
	case errors.Is(err, runner.ErrRunInProgress):
		return m, nil
	case errors.Is(err, ErrEmptyOutputPath), errors.Is(err, ErrTooManyWords):
		m.dialog = &dialog{kind: dialogWarning, text: WarningMessage(err)}
		return m, nil
	case err != nil:
		m.dialog = &dialog{kind: dialogError, text: FinishedMessage(err)}
		return m, nil
	}
	return m, waitForResult(done)
}

// waitForResult blocks on the run's channel off the event loop.
func waitForResult(done <-chan runner.Result) tea.Cmd {
	return func() tea.Msg {
		return RunFinishedMsg{Result: <-done}
	}
}

// openPicker shows the directory picker.
func (m Model) openPicker() (tea.Model, tea.Cmd) {
	fp := filepicker.New()
	fp.DirAllowed = true
	fp.FileAllowed = false
	fp.CurrentDirectory = m.ctrl.BrowseStartDir()

	height := m.height
	if height == 0 {
		height = defaultPickerHeight
	}
	fp, _ = fp.Update(tea.WindowSizeMsg{Width: m.width, Height: height})

	m.picker = fp
	m.browsing = true
	return m, m.picker.Init()
}

// updatePicker handles keys while the directory picker is open.
func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.browsing = false
		return m, nil
	case key.Matches(msg, keys.PickHere):
		m.setOutput(m.picker.CurrentDirectory)
		return m, nil
	}

	// Path is only set when an allowed entry, a directory here, is chosen.
	before := m.picker.Path
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if m.picker.Path != "" && m.picker.Path != before {
		m.setOutput(m.picker.Path)
		return m, nil
	}
	return m, cmd
}

// setOutput stores a picked directory and closes the picker.
func (m *Model) setOutput(path string) {
	m.ctrl.SetOutputPath(path)
	m.output.SetValue(path)
	m.browsing = false
}

func allDigits(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
