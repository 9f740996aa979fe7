// Package maillist renders one paginated page of the current folder as a
// selectable message list.
package maillist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/webmail/internal/keys"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/theme"
)

// MessagesMsg replaces the list contents with a freshly derived page.
type MessagesMsg struct {
	Messages   []model.Message
	Selected   map[string]bool
	Pagination model.Pagination
}

// OpenMessageMsg is sent when the user opens a message.
type OpenMessageMsg struct {
	Message model.Message
}

// ToggleSelectMsg is sent when the user checks or unchecks a message.
type ToggleSelectMsg struct {
	MessageID string
}

// PageChangeMsg is sent when the user pages forward or back.
type PageChangeMsg struct {
	Page int
}

// Model is the message list component.
type Model struct {
	list       list.Model
	keys       *keys.KeyMap
	pagination model.Pagination
	width      int
	height     int
}

// New creates an empty message list.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Selected returns the message under the cursor.
func (m Model) Selected() (model.Message, bool) {
	item, ok := m.list.SelectedItem().(MailItem)
	if !ok {
		return model.Message{}, false
	}
	return item.Message, true
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MessagesMsg:
		items := make([]list.Item, len(msg.Messages))
		for i, message := range msg.Messages {
			items[i] = MailItem{
				Message:  message,
				Selected: msg.Selected[message.MessageID],
			}
		}
		m.pagination = msg.Pagination
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		item, ok := m.list.SelectedItem().(MailItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return OpenMessageMsg{Message: item.Message}
		}

	case key.Matches(msg, m.keys.ToggleSelect):
		item, ok := m.list.SelectedItem().(MailItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return ToggleSelectMsg{MessageID: item.Message.MessageID}
		}

	case key.Matches(msg, m.keys.NextPage):
		if m.pagination.CurrentPage < m.pagination.TotalPages {
			page := m.pagination.CurrentPage + 1
			return m, func() tea.Msg { return PageChangeMsg{Page: page} }
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if m.pagination.CurrentPage > 1 {
			page := m.pagination.CurrentPage - 1
			return m, func() tea.Msg { return PageChangeMsg{Page: page} }
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the message list with a pagination footer.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	footer := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Padding(0, 2).
		Render(m.paginationLine())

	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), footer)
}

func (m Model) paginationLine() string {
	p := m.pagination
	if p.Total == 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d of %d · page %d/%d",
		p.From, p.To, p.Total, p.CurrentPage, p.TotalPages)
}

func (m Model) renderEmptyState() string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render("No emails in this folder.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
