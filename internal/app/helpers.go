package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/webmail/internal/compose"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/ui/maillist"
)

// loginResultMsg carries the outcome of a login attempt.
type loginResultMsg struct {
	err error
}

// loadedMsg carries the outcome of a snapshot load.
type loadedMsg struct {
	err error
}

// actionDoneMsg signals that a mutating mailbox action has settled.
type actionDoneMsg struct{}

// notificationMsg wraps a store notification for the status bar.
type notificationMsg struct {
	n model.Notification
}

// sendResultMsg carries the outcome of a send or save-draft.
type sendResultMsg struct {
	err         error
	successText string
}

// doLogin authenticates against the gateway.
func (m Model) doLogin(email, password string) tea.Cmd {
	gw := m.gw
	return func() tea.Msg {
		_, err := gw.Login(context.Background(), email, password)
		return loginResultMsg{err: err}
	}
}

// loadFolder switches the sidebar and loads the given folder view.
func (m *Model) loadFolder(folder model.Folder, page int, force bool) tea.Cmd {
	m.sidebar.Select(folder)
	store := m.store
	perPage := m.store.PerPage()
	return func() tea.Msg {
		err := store.Load(context.Background(), folder, page, perPage, force)
		return loadedMsg{err: err}
	}
}

// syncFromStore pushes the store's current state into the sidebar and
// the message list.
func (m *Model) syncFromStore() tea.Cmd {
	m.sidebar.SetCounts(m.store.FolderCounts(), m.store.UnreadCounts())

	selected := make(map[string]bool)
	for _, id := range m.store.Selected() {
		selected[id] = true
	}

	msg := maillist.MessagesMsg{
		Messages:   m.store.Messages(),
		Selected:   selected,
		Pagination: m.store.Pagination(),
	}
	return func() tea.Msg { return msg }
}

// waitForNotification subscribes to the store's notification channel.
func (m Model) waitForNotification() tea.Cmd {
	ch := m.store.Notifications()
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg{n: n}
	}
}

// actionIDs returns the messages an action applies to: the checked
// selection when non-empty, otherwise the message under the cursor.
func (m Model) actionIDs() []string {
	if selected := m.store.Selected(); len(selected) > 0 {
		return selected
	}
	if msg, ok := m.mailList.Selected(); ok {
		return []string{msg.MessageID}
	}
	return nil
}

// runAction executes a blocking mailbox action off the UI goroutine.
func (m Model) runAction(fn func(ids []string)) tea.Cmd {
	ids := m.actionIDs()
	return func() tea.Msg {
		fn(ids)
		return actionDoneMsg{}
	}
}

func (m Model) markRead(ids []string) {
	m.store.MarkRead(context.Background(), ids)
}

func (m Model) markUnread(ids []string) {
	m.store.MarkUnread(context.Background(), ids)
}

func (m Model) emptyTrash() {
	m.store.DeleteAllTrash(context.Background())
}

// toggleStar flags or unflags the targeted messages, following the
// cursor message's current state.
func (m Model) toggleStar() tea.Cmd {
	cursor, ok := m.mailList.Selected()
	if !ok {
		return nil
	}
	store := m.store
	return m.runAction(func(ids []string) {
		if cursor.Flagged {
			store.Unflag(context.Background(), ids)
		} else {
			store.Flag(context.Background(), ids)
		}
	})
}

// deleteOrTrash moves messages to the trash, or deletes them permanently
// when already viewing the trash.
func (m Model) deleteOrTrash() tea.Cmd {
	store := m.store
	if m.sidebar.Active() == model.FolderDeleted {
		return m.runAction(func(ids []string) {
			store.Delete(context.Background(), ids)
		})
	}
	return m.runAction(func(ids []string) {
		store.Move(context.Background(), ids, model.FolderDeleted)
	})
}

// startMove opens the target-folder picker for the targeted messages.
func (m *Model) startMove() tea.Cmd {
	ids := m.actionIDs()
	if len(ids) == 0 {
		return nil
	}

	active := m.sidebar.Active()
	var opts []huh.Option[string]
	for _, f := range model.StoredFolders {
		if f == active {
			continue
		}
		opts = append(opts, huh.NewOption(string(f), string(f)))
	}

	m.moveIDs = ids
	m.moveFb.target = ""
	m.moveForm = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Move to folder").
				Options(opts...).
				Value(&m.moveFb.target),
		),
	).WithWidth(40)

	m.previousView = m.currentView
	m.currentView = ViewMove
	return m.moveForm.Init()
}

// updateMoveForm drives the target-folder picker.
func (m Model) updateMoveForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.moveForm == nil {
		m.currentView = ViewList
		return m, nil
	}

	mdl, cmd := m.moveForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.moveForm = f
	}

	if m.moveForm.State == huh.StateCompleted {
		target := model.Folder(m.moveFb.target)
		ids := m.moveIDs
		store := m.store
		m.currentView = ViewList
		m.moveForm = nil
		return m, func() tea.Msg {
			store.Move(context.Background(), ids, target)
			return actionDoneMsg{}
		}
	}
	if m.moveForm.State == huh.StateAborted {
		m.currentView = ViewList
		m.moveForm = nil
		return m, nil
	}

	return m, cmd
}

// sendDraft validates and sends the composed message.
func (m Model) sendDraft(draft *compose.Draft) tea.Cmd {
	gw := m.gw
	return func() tea.Msg {
		if err := draft.Send(context.Background(), gw); err != nil {
			return sendResultMsg{err: err}
		}
		return sendResultMsg{successText: "Email sent"}
	}
}

// saveDraft stores the composed message as a draft.
func (m Model) saveDraft(draft *compose.Draft) tea.Cmd {
	gw := m.gw
	return func() tea.Msg {
		if err := draft.Save(context.Background(), gw); err != nil {
			return sendResultMsg{err: err}
		}
		return sendResultMsg{successText: "Draft saved"}
	}
}

// downloadAttachment fetches an attachment into the download directory.
// The store reports the outcome through its notification channel.
func (m Model) downloadAttachment(uid int, filename string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		_, _ = store.DownloadAttachment(context.Background(), uid, filename)
		return actionDoneMsg{}
	}
}
