package form

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/boorucrawl/internal/model"
)

// HelpNote is the static note shown under the form.
const HelpNote = "Note: progress is written to the log file."

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Margin(1, 0, 1, 0)
	labelStyle = lipgloss.NewStyle().
			Width(14)
	focusedLabelStyle = labelStyle.
				Foreground(lipgloss.Color("62")).
				Bold(true)
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
	suggestionStyle = lipgloss.NewStyle().
			PaddingLeft(16).
			Foreground(lipgloss.Color("245"))
	selectedSuggestionStyle = suggestionStyle.
				Foreground(lipgloss.Color("62")).
				Bold(true)
	buttonStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	focusedButtonStyle = buttonStyle.
				BorderForeground(lipgloss.Color("62"))
	disabledButtonStyle = buttonStyle.
				Foreground(lipgloss.Color("240"))
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Margin(1, 0, 0, 0)
	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Margin(1, 0, 0, 0)
)

var dialogColors = map[dialogKind]lipgloss.Color{
	dialogInfo:    lipgloss.Color("62"),
	dialogWarning: lipgloss.Color("214"),
	dialogError:   lipgloss.Color("196"),
}

var dialogTitles = map[dialogKind]string{
	dialogInfo:    "Information",
	dialogWarning: "Warning",
	dialogError:   "Error",
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("boorucrawl"))
	b.WriteString("\n")

	if m.dialog != nil {
		b.WriteString(m.dialogView())
		return b.String()
	}

	if m.browsing {
		b.WriteString("Select the output directory\n\n")
		b.WriteString(m.picker.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("⏎ open/select • . use this directory • esc cancel"))
		return b.String()
	}

	params := m.ctrl.Params()

	b.WriteString(m.row(fieldSource, "Source", sourceView(params.Source)))
	b.WriteString(m.row(fieldSearch, "Search term", m.search.View()))
	for i, s := range m.suggestions {
		style := suggestionStyle
		if i == m.selected {
			style = selectedSuggestionStyle
		}
		b.WriteString(style.Render(s))
		b.WriteString("\n")
	}
	b.WriteString(m.row(fieldResize, "Resize size",
		m.resize.View()+hintStyle.Render(fmt.Sprintf(" (%d-%d)", model.MinResizeSize, model.MaxResizeSize))))
	b.WriteString(m.row(fieldTagging, "Tagging", checkbox(params.EnableTagging)))
	b.WriteString(m.row(fieldMaxCount, "Max count",
		m.maxCount.View()+hintStyle.Render(fmt.Sprintf(" (%d-%d)", model.MinMaxCount, model.MaxMaxCount))))
	b.WriteString(m.row(fieldOutput, "Output path", m.output.View()))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.button(fieldBrowse, "Browse", false),
		" ",
		m.button(fieldStart, m.startLabel(), m.ctrl.Running()),
	))
	b.WriteString("\n")

	b.WriteString(noteStyle.Render(HelpNote))
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m Model) row(f field, label, value string) string {
	style := labelStyle
	if m.focus == f {
		style = focusedLabelStyle
	}
	return style.Render(label+":") + value + "\n"
}

func (m Model) button(f field, label string, disabled bool) string {
	switch {
	case disabled:
		return disabledButtonStyle.Render(label)
	case m.focus == f:
		return focusedButtonStyle.Render(label)
	default:
		return buttonStyle.Render(label)
	}
}

func (m Model) startLabel() string {
	if m.ctrl.Running() {
		return "Running..."
	}
	return "Start"
}

func (m Model) dialogView() string {
	color := dialogColors[m.dialog.kind]
	title := lipgloss.NewStyle().Bold(true).Foreground(color).Render(dialogTitles[m.dialog.kind])
	body := title + "\n\n" + m.dialog.text + "\n\n" + hintStyle.Render("⏎ OK")
	return dialogStyle.BorderForeground(color).Render(body)
}

func sourceView(selected model.Source) string {
	parts := make([]string, 0, len(model.Sources))
	for _, src := range model.Sources {
		if src == selected {
			parts = append(parts, "(•) "+src.String())
		} else {
			parts = append(parts, "( ) "+src.String())
		}
	}
	return strings.Join(parts, "  ")
}

func checkbox(checked bool) string {
	if checked {
		return "[x] enabled"
	}
	return "[ ] enabled"
}
