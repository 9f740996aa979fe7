// Package sidebar renders the folder navigation panel with per-folder
// message and unread counts.
package sidebar

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/theme"
)

// FolderSelectedMsg is sent when the user switches to another folder.
type FolderSelectedMsg struct {
	Folder model.Folder
}

// folders lists the sidebar entries in display order: the stored folders
// plus the derived starred view.
var folders = []model.Folder{
	model.FolderInbox,
	model.FolderStarred,
	model.FolderDraft,
	model.FolderSent,
	model.FolderArchive,
	model.FolderJunk,
	model.FolderDeleted,
}

// labels maps folders to their display names.
var labels = map[model.Folder]string{
	model.FolderInbox:   "Inbox",
	model.FolderStarred: "Starred",
	model.FolderDraft:   "Drafts",
	model.FolderSent:    "Sent",
	model.FolderArchive: "Archive",
	model.FolderJunk:    "Junk",
	model.FolderDeleted: "Trash",
}

// Model is the folder sidebar component.
type Model struct {
	cursor  int
	active  model.Folder
	counts  map[model.Folder]int
	unread  map[model.Folder]int
	width   int
	height  int
	focused bool
}

// New creates a sidebar with the inbox active.
func New(width, height int) Model {
	return Model{
		active: model.FolderInbox,
		counts: make(map[model.Folder]int),
		unread: make(map[model.Folder]int),
		width:  width,
		height: height,
	}
}

// SetCounts updates the per-folder totals and unread counts.
func (m *Model) SetCounts(counts, unread map[model.Folder]int) {
	m.counts = counts
	m.unread = unread
}

// SetFocused toggles keyboard focus on the sidebar.
func (m *Model) SetFocused(focused bool) {
	m.focused = focused
}

// Active returns the currently selected folder.
func (m Model) Active() model.Folder {
	return m.active
}

// Select moves the active folder directly, keeping the cursor in step.
func (m *Model) Select(folder model.Folder) {
	for i, f := range folders {
		if f == folder.Normalize() {
			m.cursor = i
			m.active = f
			return
		}
	}
}

// Next advances the active folder, wrapping around.
func (m *Model) Next() tea.Cmd {
	m.cursor = (m.cursor + 1) % len(folders)
	m.active = folders[m.cursor]
	return m.selected()
}

// Prev moves to the previous folder, wrapping around.
func (m *Model) Prev() tea.Cmd {
	m.cursor = (m.cursor - 1 + len(folders)) % len(folders)
	m.active = folders[m.cursor]
	return m.selected()
}

func (m Model) selected() tea.Cmd {
	folder := m.active
	return func() tea.Msg {
		return FolderSelectedMsg{Folder: folder}
	}
}

// Update handles key input while the sidebar is focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}

	switch key.String() {
	case "j", "down":
		return m, m.Next()
	case "k", "up":
		return m, m.Prev()
	}
	return m, nil
}

// View renders the folder list with counts.
func (m Model) View() string {
	var b strings.Builder

	for i, f := range folders {
		label := labels[f]
		count := m.counts[f]

		line := fmt.Sprintf("%-8s", label)
		if f == model.FolderInbox || f == model.FolderJunk {
			if unread := m.unread[f]; unread > 0 {
				line += theme.FolderStyle(f).Render(fmt.Sprintf("%d", unread))
			}
		} else if count > 0 {
			line += lipgloss.NewStyle().
				Foreground(theme.ColorGray).
				Render(fmt.Sprintf("%d", count))
		}

		if i == m.cursor {
			line = theme.SelectedItemStyle.Render(line)
		} else {
			line = theme.ListItemStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Render(b.String())
}

// SetSize updates the sidebar dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
