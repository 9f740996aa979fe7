// Package app wires the mailbox store, gateway, and background poller
// into the root Bubble Tea model and routes between views.
package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/webmail/internal/gateway"
	"github.com/nhle/webmail/internal/keys"
	"github.com/nhle/webmail/internal/mailbox"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/session"
	appsync "github.com/nhle/webmail/internal/sync"
	"github.com/nhle/webmail/internal/theme"
	"github.com/nhle/webmail/internal/ui"
	"github.com/nhle/webmail/internal/ui/composer"
	helpview "github.com/nhle/webmail/internal/ui/help"
	loginview "github.com/nhle/webmail/internal/ui/login"
	"github.com/nhle/webmail/internal/ui/maillist"
	"github.com/nhle/webmail/internal/ui/reader"
	"github.com/nhle/webmail/internal/ui/sidebar"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewList
	ViewReader
	ViewCompose
	ViewMove
	ViewHelp
)

// moveBindings holds the move form's target folder on the heap so huh's
// Value() pointer stays valid across model copies.
type moveBindings struct {
	target string
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and access to the mailbox store.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	gw           *gateway.Client
	store        *mailbox.Store
	sess         session.Store
	keys         *keys.KeyMap
	poller       *appsync.Poller

	loginView    loginview.Model
	sidebar      sidebar.Model
	mailList     maillist.Model
	reader       reader.Model
	composerView composer.Model
	helpView     helpview.Model

	moveForm *huh.Form
	moveFb   *moveBindings
	moveIDs  []string

	notification *model.Notification
	ready        bool
}

// New creates the root application model.
func New(gw *gateway.Client, store *mailbox.Store, sess session.Store, poller *appsync.Poller) Model {
	k := keys.DefaultKeyMap()

	return Model{
		currentView:  ViewLogin,
		gw:           gw,
		store:        store,
		sess:         sess,
		keys:         k,
		poller:       poller,
		loginView:    loginview.New(80, 24),
		sidebar:      sidebar.New(22, 24),
		mailList:     maillist.New(k, 80, 24),
		reader:       reader.New(k, 80, 24),
		composerView: composer.New(80, 24),
		helpView:     helpview.New(k, 80, 24),
		moveFb:       &moveBindings{},
	}
}

// Init either resumes the stored session or shows the login form.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForNotification()}

	if _, ok := m.sess.RefreshToken(); ok {
		cmds = append(cmds, m.enterMailbox()...)
	} else {
		cmds = append(cmds, m.loginView.Start(""))
	}
	return tea.Batch(cmds...)
}

// enterMailbox switches to the list view and kicks off the initial load
// and the background poller.
func (m *Model) enterMailbox() []tea.Cmd {
	m.currentView = ViewList
	return []tea.Cmd{
		m.loadFolder(model.FolderInbox, 1, false),
		m.poller.Start(),
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		mainWidth := m.layout.MainWidth()
		contentHeight := m.layout.ContentHeight()
		m.loginView.SetSize(msg.Width, contentHeight)
		m.sidebar.SetSize(m.layout.SidebarWidth(), contentHeight)
		m.mailList.SetSize(mainWidth, contentHeight)
		m.reader.SetSize(mainWidth, contentHeight)
		m.composerView.SetSize(msg.Width, contentHeight)
		m.helpView.SetSize(msg.Width, contentHeight)
		return m.updateActiveView(msg)

	case loginview.SubmitMsg:
		return m, m.doLogin(msg.Email, msg.Password)

	case loginview.CancelMsg:
		m.poller.Stop()
		return m, tea.Quit

	case loginResultMsg:
		if msg.err != nil {
			return m, m.loginView.Start(fmt.Sprintf("Login failed: %v", msg.err))
		}
		return m, tea.Batch(m.enterMailbox()...)

	case loadedMsg:
		if msg.err != nil && m.sessionGone() {
			return m, m.showLogin("Session expired, please login again")
		}
		if msg.err == nil && m.currentView == ViewLogin {
			// First load after resuming a stored session.
			m.currentView = ViewList
		}
		return m, m.syncFromStore()

	case actionDoneMsg:
		return m, m.syncFromStore()

	case notificationMsg:
		m.notification = &msg.n
		cmds := []tea.Cmd{m.waitForNotification(), m.syncFromStore()}
		if msg.n.Severity == model.SeverityError && m.sessionGone() {
			cmds = append(cmds, m.showLogin("Session expired, please login again"))
		}
		return m, tea.Batch(cmds...)

	case appsync.ResultMsg:
		cmds := []tea.Cmd{m.poller.WaitForNextResult(), m.syncFromStore()}
		if msg.AuthExpired {
			cmds = append(cmds, m.showLogin("Session expired, please login again"))
		} else if msg.NewInboxCount > 0 {
			m.notification = &model.Notification{
				Message:  fmt.Sprintf("%d new email(s)", msg.NewInboxCount),
				Severity: model.SeverityInfo,
			}
		}
		return m, tea.Batch(cmds...)

	case sidebar.FolderSelectedMsg:
		return m, m.loadFolder(msg.Folder, 1, false)

	case maillist.PageChangeMsg:
		m.store.SetPage(msg.Page)
		return m, m.syncFromStore()

	case maillist.ToggleSelectMsg:
		m.store.ToggleSelect(msg.MessageID)
		return m, m.syncFromStore()

	case maillist.OpenMessageMsg:
		return m.openMessage(msg.Message)

	case reader.BackMsg:
		m.currentView = ViewList
		return m, m.syncFromStore()

	case reader.ReplyMsg:
		m.previousView = m.currentView
		m.currentView = ViewCompose
		return m, m.composerView.StartReply(msg.Original)

	case reader.ForwardMsg:
		m.previousView = m.currentView
		m.currentView = ViewCompose
		return m, m.composerView.StartForward(msg.Original)

	case reader.DownloadAttachmentMsg:
		return m, m.downloadAttachment(msg.UID, msg.Filename)

	case composer.SendMsg:
		m.currentView = ViewList
		return m, m.sendDraft(msg.Draft)

	case composer.SaveDraftMsg:
		m.currentView = ViewList
		return m, m.saveDraft(msg.Draft)

	case composer.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case sendResultMsg:
		if msg.err != nil {
			m.notification = &model.Notification{
				Message:  fmt.Sprintf("%v", msg.err),
				Severity: model.SeverityError,
			}
			return m, nil
		}
		m.notification = &model.Notification{
			Message:  msg.successText,
			Severity: model.SeveritySuccess,
		}
		// Sent mail and saved drafts only exist server-side, so pull a
		// fresh snapshot.
		return m, m.loadFolder(m.sidebar.Active(), m.store.CurrentPage(), true)

	case tea.KeyMsg:
		if handled, mdl, cmd := m.handleGlobalKeys(msg); handled {
			return mdl, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that apply regardless of the focused
// component. Form views (login, compose, move) receive all input.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.poller.Stop()
		return true, m, tea.Quit
	}

	switch m.currentView {
	case ViewLogin, ViewCompose, ViewMove:
		return false, m, nil
	}

	switch msg.String() {
	case "q":
		if m.currentView == ViewList {
			m.poller.Stop()
			return true, m, tea.Quit
		}

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return true, m, nil

	case "tab":
		if m.currentView == ViewList {
			return true, m, m.sidebar.Next()
		}

	case "shift+tab":
		if m.currentView == ViewList {
			return true, m, m.sidebar.Prev()
		}

	case "r":
		if m.currentView == ViewList {
			return true, m, tea.Batch(
				m.loadFolder(m.sidebar.Active(), m.store.CurrentPage(), true),
				m.poller.RefreshNow(),
			)
		}

	case "c":
		if m.currentView == ViewList {
			m.previousView = m.currentView
			m.currentView = ViewCompose
			return true, m, m.composerView.StartNew()
		}

	case "m":
		if m.currentView == ViewList {
			return true, m, m.runAction(func(ids []string) { m.markRead(ids) })
		}

	case "u":
		if m.currentView == ViewList {
			return true, m, m.runAction(func(ids []string) { m.markUnread(ids) })
		}

	case "s":
		if m.currentView == ViewList {
			return true, m, m.toggleStar()
		}

	case "v":
		if m.currentView == ViewList {
			return true, m, m.startMove()
		}

	case "d":
		if m.currentView == ViewList {
			return true, m, m.deleteOrTrash()
		}

	case "D":
		if m.currentView == ViewList && m.sidebar.Active() == model.FolderDeleted {
			return true, m, m.runAction(func([]string) { m.emptyTrash() })
		}
	}

	return false, m, nil
}

// openMessage routes an opened message: drafts resume in the composer,
// everything else opens in the reader and is marked read on first open.
func (m Model) openMessage(msg model.Message) (tea.Model, tea.Cmd) {
	if msg.Folder.Normalize() == model.FolderDraft {
		m.previousView = m.currentView
		m.currentView = ViewCompose
		return m, m.composerView.StartEditDraft(msg)
	}

	m.previousView = m.currentView
	m.currentView = ViewReader
	m.reader.SetMessage(msg)

	if !msg.Seen {
		id := msg.MessageID
		return m, m.runAction(func([]string) { m.markRead([]string{id}) })
	}
	return m, nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewList:
		m.mailList, cmd = m.mailList.Update(msg)
	case ViewReader:
		m.reader, cmd = m.reader.Update(msg)
	case ViewCompose:
		m.composerView, cmd = m.composerView.Update(msg)
	case ViewMove:
		return m.updateMoveForm(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) headerTitle() string {
	if user := m.sess.User(); user != "" {
		return "Webmail – " + user
	}
	return "Webmail"
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewReader:
		return m.reader.View()
	case ViewCompose:
		return m.composerView.View()
	case ViewMove:
		if m.moveForm != nil {
			return m.moveForm.View()
		}
		return ""
	case ViewHelp:
		return m.helpView.View()
	default:
		return ui.JoinSidebar(m.sidebar.View(), m.mailList.View())
	}
}

// syncStatus returns a short string describing the poller state.
func (m Model) syncStatus() string {
	switch m.poller.Status().State {
	case appsync.Running:
		return "syncing"
	case appsync.Errored:
		return "⚠ offline"
	default:
		if m.store.InFlight() {
			return "working"
		}
		return "idle"
	}
}

// statusLine shows the latest notification, falling back to key hints.
func (m Model) statusLine() string {
	if m.notification != nil {
		return theme.NotificationStyle(m.notification.Severity).
			Render(m.notification.Message)
	}

	switch m.currentView {
	case ViewLogin:
		return "enter submit | esc quit"
	case ViewReader:
		return "esc back | a reply | f forward | n/N attachment | o download"
	case ViewCompose:
		return "enter next field | esc cancel"
	case ViewMove:
		return "enter move | esc cancel"
	case ViewHelp:
		return "? close help"
	default:
		return "q quit | ? help | c compose | tab folder | space select | m read | s star | d delete"
	}
}

// sessionGone reports whether the stored session has been cleared, which
// the gateway does after an unrecoverable auth failure.
func (m Model) sessionGone() bool {
	_, hasAccess := m.sess.AccessToken()
	_, hasRefresh := m.sess.RefreshToken()
	return !hasAccess && !hasRefresh
}

func (m *Model) showLogin(notice string) tea.Cmd {
	m.poller.Stop()
	m.currentView = ViewLogin
	return m.loginView.Start(notice)
}
