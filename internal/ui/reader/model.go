// Package reader renders an opened email: headers, body, and the
// attachment list with download and preview shortcuts.
package reader

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/webmail/internal/attachment"
	"github.com/nhle/webmail/internal/keys"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// ReplyMsg asks the parent to open the composer in reply mode.
type ReplyMsg struct {
	Original model.Message
}

// ForwardMsg asks the parent to open the composer in forward mode.
type ForwardMsg struct {
	Original model.Message
}

// DownloadAttachmentMsg asks the parent to download the given attachment.
type DownloadAttachmentMsg struct {
	UID      int
	Filename string
}

// Model is the email reader component.
type Model struct {
	message    *model.Message
	viewport   viewport.Model
	keys       *keys.KeyMap
	attCursor  int
	width      int
	height     int
}

// New creates an empty reader.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// SetMessage sets the message being displayed and re-renders the content.
func (m *Model) SetMessage(msg model.Message) {
	m.message = &msg
	m.attCursor = 0
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Update handles messages for the reader view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(keyMsg, m.keys.Reply):
			if m.message != nil {
				original := *m.message
				return m, func() tea.Msg { return ReplyMsg{Original: original} }
			}

		case key.Matches(keyMsg, m.keys.Forward):
			if m.message != nil {
				original := *m.message
				return m, func() tea.Msg { return ForwardMsg{Original: original} }
			}

		case keyMsg.String() == "o":
			if att, ok := m.currentAttachment(); ok {
				uid := m.message.UID
				filename := att.Filename
				return m, func() tea.Msg {
					return DownloadAttachmentMsg{UID: uid, Filename: filename}
				}
			}

		case keyMsg.String() == "n":
			if m.message != nil && m.attCursor < len(m.message.Attachments)-1 {
				m.attCursor++
				m.viewport.SetContent(m.renderContent())
			}
			return m, nil

		case keyMsg.String() == "N":
			if m.attCursor > 0 {
				m.attCursor--
				m.viewport.SetContent(m.renderContent())
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) currentAttachment() (model.Attachment, bool) {
	if m.message == nil || len(m.message.Attachments) == 0 {
		return model.Attachment{}, false
	}
	return m.message.Attachments[m.attCursor], true
}

// View renders the reader view.
func (m Model) View() string {
	if m.message == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No email selected")
	}
	return m.viewport.View()
}

// renderContent builds the full reader content string for the viewport.
func (m Model) renderContent() string {
	msg := m.message
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(msg.Subject))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf("%s  %s",
		metaStyle.Render("From:"),
		valStyle.Render(fmt.Sprintf("%s <%s>", msg.Sender, msg.SenderMail))))

	if len(msg.Recipients) > 0 {
		addrs := make([]string, len(msg.Recipients))
		for i, r := range msg.Recipients {
			addrs[i] = r.Email
		}
		sections = append(sections, fmt.Sprintf("%s    %s",
			metaStyle.Render("To:"),
			valStyle.Render(strings.Join(addrs, ", "))))
	}

	sections = append(sections, fmt.Sprintf("%s  %s",
		metaStyle.Render("Date:"),
		valStyle.Render(msg.Timestamp)))

	if msg.Flagged {
		sections = append(sections, theme.FlagIndicator(true)+" starred")
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", min(m.width-4, 80)))
	sections = append(sections, "", separator, "")

	body := msg.Body.Text
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No content")
	}
	sections = append(sections, body)

	if len(msg.Attachments) > 0 {
		sections = append(sections, "", separator, "")

		headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
		sections = append(sections, headerStyle.Render(
			fmt.Sprintf("Attachments (%d)", len(msg.Attachments))))
		sections = append(sections, "")

		for i, att := range msg.Attachments {
			line := fmt.Sprintf("%s %s  %s",
				attachment.Icon(att.Filename),
				att.Filename,
				metaStyle.Render(attachment.FormatSize(att.Size)))
			if i == m.attCursor {
				line = theme.SelectedItemStyle.Render(line)
			} else {
				line = theme.ListItemStyle.Render(line)
			}
			sections = append(sections, line)
		}

		sections = append(sections, "")
		sections = append(sections, theme.HelpStyle.Render("n/N select attachment · o download"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the reader dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.message != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
