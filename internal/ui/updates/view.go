package updates

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/vitrix/updates-center/internal/action"
	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/theme"
)

// View renders the header, the feed and the status bar.
func (m Model) View() string {
	var content string
	switch {
	case m.showHelp:
		content = m.renderHelp()
	case m.err != nil:
		content = m.renderError()
	case m.loading && len(m.items) == 0:
		content = theme.ListItemStyle.Render(m.spinner.View() + " Loading updates...")
	case len(m.items) == 0:
		content = theme.ListItemStyle.Render("You're all caught up.")
	default:
		content = m.renderFeed()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		content,
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := theme.HeaderStyle.Render("Updates")

	status := fmt.Sprintf("%d new", len(m.items))
	if m.loading {
		status = m.spinner.View() + " " + status
	}
	if name := m.center.Viewer().Name; name != "" {
		status = name + " · " + status
	}
	right := theme.HeaderStyle.Render(status)

	return joinFilled(m.width, title, right, theme.HeaderStyle)
}

func (m Model) renderStatusBar() string {
	text := m.help.ShortHelpView(m.keys.ShortHelp())
	switch {
	case m.notice != "":
		text = m.notice
	case len(m.failed) == 1:
		text = fmt.Sprintf("1 source unavailable (%s)", m.failed[0])
	case len(m.failed) > 1:
		text = fmt.Sprintf("%d sources unavailable (%s)", len(m.failed), strings.Join(m.failed, ", "))
	}
	return joinFilled(m.width, theme.StatusBarStyle.Render(text), "", theme.StatusBarStyle)
}

func (m Model) renderError() string {
	msg := lipgloss.JoinVertical(
		lipgloss.Left,
		theme.ErrorStyle.Render("Couldn't load your updates."),
		theme.DetailStyle.Render(m.err.Error()),
		"",
		theme.HelpStyle.Render("Press R to try again."),
	)
	return theme.ListItemStyle.Render(msg)
}

func (m Model) renderHelp() string {
	h := m.help
	h.ShowAll = true
	return theme.PanelStyle.Width(max(m.width-4, 20)).Render(
		lipgloss.JoinVertical(lipgloss.Left, "Keyboard Shortcuts", "", h.View(m.keys)),
	)
}

func (m Model) renderFeed() string {
	var rows []string
	for i, n := range m.items {
		rows = append(rows, m.renderItem(n, i == m.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderItem(n model.Notification, selected bool) string {
	width := max(m.width-4, 20)

	hint := theme.HintStyle(n.Hint).Render(n.Hint.Icon + " " + n.Kind.Label())
	when := theme.DetailStyle.Render(humanize.RelTime(n.Timestamp, m.now(), "ago", "from now"))
	head := fmt.Sprintf("%s  %s  %s", hint, n.Title, when)

	details, truncated := clip(n.Details, width, m.collapsedLines, m.expanded[n.ID])
	lines := []string{head}
	if details != "" {
		lines = append(lines, theme.DetailStyle.Render(details))
	}
	if truncated {
		lines = append(lines, theme.HelpStyle.Render("enter to read more"))
	} else if selected && action.RequiresExpanded(n.Kind) && !m.expanded[n.ID] {
		lines = append(lines, theme.HelpStyle.Render("enter to expand, then d to dismiss"))
	}

	block := strings.Join(lines, "\n")
	if selected {
		return theme.SelectedItemStyle.Render(block)
	}
	return theme.ListItemStyle.Render(block)
}

// clip wraps details to width and, unless expanded, keeps the first limit
// lines. It reports whether lines were dropped.
func clip(details string, width, limit int, expanded bool) (string, bool) {
	if details == "" {
		return "", false
	}
	wrapped := lipgloss.NewStyle().Width(width).Render(details)
	lines := strings.Split(wrapped, "\n")
	if expanded || len(lines) <= limit {
		return wrapped, false
	}
	kept := lines[:limit]
	kept[limit-1] = strings.TrimRight(kept[limit-1], " ") + "…"
	return strings.Join(kept, "\n"), true
}

// joinFilled places left and right on one line of the given width, filling
// the gap with style's background.
func joinFilled(width int, left, right string, style lipgloss.Style) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}
