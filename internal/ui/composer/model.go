// Package composer is the form for writing, replying to, forwarding, and
// resuming draft emails.
package composer

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/webmail/internal/compose"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/theme"
)

// Mode distinguishes the composer entry points.
type Mode int

const (
	ModeNew Mode = iota
	ModeReply
	ModeForward
	ModeEditDraft
)

// SendMsg is dispatched when the user submits the form for sending.
type SendMsg struct {
	Draft *compose.Draft
}

// SaveDraftMsg is dispatched when the user saves the form as a draft.
type SaveDraftMsg struct {
	Draft *compose.Draft
}

// CancelMsg is dispatched when the user abandons the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	to      string
	subject string
	body    string
	send    bool
}

// Model is the Bubble Tea model for the compose form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	draft  *compose.Draft
	mode   Mode
	width  int
	height int
}

// New creates a new composer model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// StartNew initializes the form for a blank email.
func (m *Model) StartNew() tea.Cmd {
	return m.start(ModeNew, &compose.Draft{})
}

// StartReply initializes the form prefilled as a reply.
func (m *Model) StartReply(original model.Message) tea.Cmd {
	return m.start(ModeReply, compose.NewReply(original))
}

// StartForward initializes the form prefilled as a forward.
func (m *Model) StartForward(original model.Message) tea.Cmd {
	return m.start(ModeForward, compose.NewForward(original))
}

// StartEditDraft initializes the form from a stored draft.
func (m *Model) StartEditDraft(original model.Message) tea.Cmd {
	return m.start(ModeEditDraft, compose.FromDraft(original))
}

func (m *Model) start(mode Mode, draft *compose.Draft) tea.Cmd {
	m.mode = mode
	m.draft = draft
	m.fb.to = draft.To
	m.fb.subject = draft.Subject
	m.fb.body = draft.Body
	m.fb.send = true
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the composer.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the compose form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Email"
	switch m.mode {
	case ModeReply:
		titleText = "Reply"
	case ModeForward:
		titleText = "Forward"
	case ModeEditDraft:
		titleText = "Edit Draft"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the composer dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("To").
				Placeholder("recipient@example.com").
				Value(&m.fb.to),
			huh.NewInput().
				Title("Subject").
				Placeholder("Subject").
				Value(&m.fb.subject),
			huh.NewText().
				Title("Body").
				Value(&m.fb.body),
			huh.NewConfirm().
				Title("Action").
				Affirmative("Send").
				Negative("Save draft").
				Value(&m.fb.send).
				Inline(true),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// handleSubmit copies the bound values back into the draft and dispatches
// it. Validation is deliberately left to the parent: the send path runs
// compose.Draft.Validate before any network call, while drafts are saved
// as-is.
func (m Model) handleSubmit() tea.Cmd {
	draft := m.draft
	draft.To = m.fb.to
	draft.Subject = m.fb.subject
	draft.Body = m.fb.body

	if m.fb.send {
		return func() tea.Msg { return SendMsg{Draft: draft} }
	}
	return func() tea.Msg { return SaveDraftMsg{Draft: draft} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}
