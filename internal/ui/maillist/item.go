package maillist

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/theme"
)

// MailItem wraps a model.Message so it can be used in a bubbles/list.
type MailItem struct {
	Message  model.Message
	Selected bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i MailItem) FilterValue() string {
	return i.Message.Subject + " " + i.Message.Sender
}

// ItemDelegate implements list.ItemDelegate for rendering message rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single message row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	mail, ok := item.(MailItem)
	if !ok {
		return
	}
	msg := mail.Message

	checkbox := "[ ]"
	if mail.Selected {
		checkbox = "[x]"
	}

	seen := "●"
	if msg.Seen {
		seen = " "
	}

	attach := " "
	if len(msg.Attachments) > 0 {
		attach = "📎"
	}

	sender := truncate(msg.Sender, 20)
	subject := truncate(msg.Subject, 48)
	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(msg.Timestamp)

	line := fmt.Sprintf("%s %s %s %-20s %s %s %s",
		checkbox, seen, theme.FlagIndicator(msg.Flagged),
		sender, subject, attach, timeStr)

	if !msg.Seen {
		line = theme.UnseenItemStyle.Render(line)
	}

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// truncate shortens s to at most n runes, appending an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
