package mailbox

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/webmail/internal/gateway"
	"github.com/nhle/webmail/internal/model"
)

// Gateway is the slice of the mail API the store depends on. The concrete
// implementation is gateway.Client; tests substitute a fake.
type Gateway interface {
	FetchAll(ctx context.Context, forceRefresh bool) (map[string][]model.Message, error)
	MarkRead(ctx context.Context, folder model.Folder, messageID string) error
	MarkUnread(ctx context.Context, folder model.Folder, messageID string) error
	Flag(ctx context.Context, folder model.Folder, messageID string) error
	Unflag(ctx context.Context, folder model.Folder, messageID string) error
	Move(ctx context.Context, folder model.Folder, messageIDs []string, target model.Folder) error
	DeletePermanent(ctx context.Context, messageIDs []string) error
	DeletePermanentAll(ctx context.Context) error
	DownloadAttachment(ctx context.Context, uid int, filename string) (*gateway.AttachmentData, error)
	PreviewAttachment(ctx context.Context, uid int, filename string) (*gateway.Preview, error)
}

// Store is the single source of truth for mailbox contents and the only
// component that calls the gateway for mutations.
//
// actionMu is held for the full duration of every mutating action,
// network round-trip included, so overlapping actions queue instead of
// clobbering the engine's single rollback slot. stateMu guards the fields
// themselves so views keep rendering while an action is in flight.
type Store struct {
	actionMu sync.Mutex
	stateMu  sync.RWMutex

	gw     Gateway
	engine *Engine

	snapshot   []model.Message
	view       []model.Message
	pagination model.Pagination
	folder     model.Folder
	page       int
	perPage    int
	selected   map[string]bool
	inFlight   bool
	loaded     bool

	downloadDir string
	notifyCh    chan model.Notification
}

// NewStore creates a mailbox store backed by the given gateway.
func NewStore(gw Gateway, perPage int, downloadDir string) *Store {
	if perPage <= 0 {
		perPage = 20
	}
	return &Store{
		gw:          gw,
		engine:      NewEngine(),
		folder:      model.FolderInbox,
		page:        1,
		perPage:     perPage,
		selected:    make(map[string]bool),
		downloadDir: downloadDir,
		notifyCh:    make(chan model.Notification, 16),
	}
}

// Notifications returns the channel of transient action outcomes. Every
// mutating action emits exactly one notification, success or failure.
func (s *Store) Notifications() <-chan model.Notification {
	return s.notifyCh
}

// notify emits a notification without blocking a slow consumer.
func (s *Store) notify(severity model.Severity, message string) {
	n := model.Notification{
		ID:        uuid.New().String(),
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	}
	select {
	case s.notifyCh <- n:
	default:
	}
}

// setInFlight flips the advisory flag views use to disable controls.
func (s *Store) setInFlight(v bool) {
	s.stateMu.Lock()
	s.inFlight = v
	s.stateMu.Unlock()
}

// Load ensures the snapshot is populated (fetching everything from the
// gateway when empty or when forceRefresh is set) and recomputes the
// current folder view and pagination. A fetch failure emits an error
// notification and leaves prior state untouched.
func (s *Store) Load(ctx context.Context, folder model.Folder, page, perPage int, forceRefresh bool) error {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	s.setInFlight(true)
	defer s.setInFlight(false)

	s.stateMu.RLock()
	needFetch := !s.loaded || forceRefresh
	s.stateMu.RUnlock()

	var snapshot []model.Message
	if needFetch {
		byFolder, err := s.gw.FetchAll(ctx, forceRefresh)
		if err != nil {
			s.notify(model.SeverityError, classify("Failed to load emails", err))
			return err
		}

		// Flatten the folder → messages map into one snapshot, tagging
		// every message with its source folder.
		snapshot = make([]model.Message, 0)
		for name, msgs := range byFolder {
			for _, m := range msgs {
				m.Folder = model.Folder(name).Normalize()
				snapshot = append(snapshot, m)
			}
		}
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if needFetch {
		s.snapshot = snapshot
		s.loaded = true
		s.engine.Clear()
	}

	if folder.Normalize() != s.folder {
		// Selection is scoped to the viewed folder.
		s.selected = make(map[string]bool)
	}
	s.folder = folder.Normalize()
	if page > 0 {
		s.page = page
	}
	if perPage > 0 {
		s.perPage = perPage
	}

	s.recompute()
	return nil
}

// Refresh re-fetches the mailbox and recomputes the current folder view,
// keeping the current page and page size.
func (s *Store) Refresh(ctx context.Context, folder model.Folder) error {
	return s.Load(ctx, folder, s.CurrentPage(), s.PerPage(), true)
}

// recompute re-derives the folder view and pagination from the snapshot.
// Callers must hold stateMu.
func (s *Store) recompute() {
	filtered := filterByFolder(s.snapshot, s.folder)
	s.view, s.pagination = paginate(filtered, s.page, s.perPage)
	s.page = s.pagination.CurrentPage
}

// MarkRead marks the given messages as seen, one gateway call per message.
func (s *Store) MarkRead(ctx context.Context, ids []string) {
	s.perMessage(ctx, ActionMarkRead, ids, s.gw.MarkRead,
		func(n int) string { return fmt.Sprintf("Marked %d email(s) as read", n) },
		"Failed to mark as read")
}

// MarkUnread marks the given messages as unseen. Gateways without the
// endpoint fail the whole action with an explanatory notification.
func (s *Store) MarkUnread(ctx context.Context, ids []string) {
	s.perMessage(ctx, ActionMarkUnread, ids, s.gw.MarkUnread,
		func(n int) string { return fmt.Sprintf("Marked %d email(s) as unread", n) },
		"Failed to mark as unread")
}

// Flag stars the given messages.
func (s *Store) Flag(ctx context.Context, ids []string) {
	s.perMessage(ctx, ActionFlag, ids, s.gw.Flag,
		func(n int) string { return fmt.Sprintf("Flagged %d email(s)", n) },
		"Failed to flag email")
}

// Unflag removes the star from the given messages.
func (s *Store) Unflag(ctx context.Context, ids []string) {
	s.perMessage(ctx, ActionUnflag, ids, s.gw.Unflag,
		func(n int) string { return fmt.Sprintf("Unflagged %d email(s)", n) },
		"Failed to unflag email")
}

// perMessage runs a single-message gateway operation sequentially over
// the affected identifiers, short-circuiting on the first failure. The
// gateway has no batch endpoint for these operations, and state is only
// mutated after every call has succeeded: reflecting each call as it
// lands would leave visual drift across N sequential calls on a partial
// failure.
func (s *Store) perMessage(
	ctx context.Context,
	action Action,
	ids []string,
	call func(context.Context, model.Folder, string) error,
	successMsg func(int) string,
	failureMsg string,
) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	s.setInFlight(true)
	defer s.setInFlight(false)

	keys := s.resolveKeys(ids)

	for i, key := range keys {
		if err := call(ctx, key.Folder, key.MessageID); err != nil {
			msg := classify(failureMsg, err)
			if i > 0 {
				msg = fmt.Sprintf("%s (%d of %d completed)", msg, i, len(keys))
			}
			s.notify(model.SeverityError, msg)
			s.rollback()
			return
		}
	}

	s.notify(model.SeveritySuccess, successMsg(len(keys)))
	s.commit(action, keys, Payload{})
}

// Move relocates the given messages into the target folder with one
// batched gateway call per source folder. Messages already stored in the
// target are dropped from the request; if none remain the whole action
// is a no-op with no network effect.
func (s *Store) Move(ctx context.Context, ids []string, target model.Folder) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	s.setInFlight(true)
	defer s.setInFlight(false)

	target = target.Normalize()

	keys := make([]model.MessageKey, 0, len(ids))
	for _, key := range s.resolveKeys(ids) {
		if key.Folder != target {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}

	for _, group := range groupByFolder(keys) {
		idsInFolder := make([]string, len(group))
		for i, k := range group {
			idsInFolder[i] = k.MessageID
		}
		if err := s.gw.Move(ctx, group[0].Folder, idsInFolder, target); err != nil {
			s.notify(model.SeverityError, classify("Failed to move email", err))
			s.rollback()
			return
		}
	}

	s.notify(model.SeveritySuccess, fmt.Sprintf("Moved %d email(s) to %s", len(keys), target))
	s.commit(ActionMove, keys, Payload{TargetFolder: target})
}

// Delete permanently removes the given messages with one batched call.
func (s *Store) Delete(ctx context.Context, ids []string) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	s.setInFlight(true)
	defer s.setInFlight(false)

	keys := s.resolveKeys(ids)

	if err := s.gw.DeletePermanent(ctx, ids); err != nil {
		s.notify(model.SeverityError, classify("Failed to delete email", err))
		s.rollback()
		return
	}

	s.notify(model.SeveritySuccess, fmt.Sprintf("Deleted %d email(s)", len(ids)))
	s.commit(ActionDelete, keys, Payload{})
}

// DeleteAllTrash permanently empties the deleted folder.
func (s *Store) DeleteAllTrash(ctx context.Context) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	s.setInFlight(true)
	defer s.setInFlight(false)

	if err := s.gw.DeletePermanentAll(ctx); err != nil {
		s.notify(model.SeverityError, classify("Failed to empty trash", err))
		s.rollback()
		return
	}

	s.notify(model.SeveritySuccess, "Emptied trash")
	s.commit(ActionDeleteAll, nil, Payload{})
}

// commit applies the confirmed action through the engine, adopts the new
// snapshot, clears the rollback slot, and re-derives the paginated view.
func (s *Store) commit(action Action, keys []model.MessageKey, payload Payload) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	newSnapshot, _ := s.engine.Apply(s.snapshot, s.view, action, keys, payload)
	s.snapshot = newSnapshot
	s.engine.Clear()

	// Moved or deleted messages no longer exist in this folder; drop
	// them from the selection.
	switch action {
	case ActionMove, ActionDelete:
		for _, k := range keys {
			delete(s.selected, k.MessageID)
		}
	case ActionDeleteAll:
		s.selected = make(map[string]bool)
	}

	s.recompute()
}

// rollback restores the last saved state pair, if any mutation had been
// applied before the failure.
func (s *Store) rollback() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if snapshot, view, ok := s.engine.Rollback(); ok {
		s.snapshot = snapshot
		s.view = view
		s.engine.Clear()
		s.recompute()
	}
}

// resolveKeys maps message IDs to composite keys. In a stored folder the
// viewed folder is the key's folder; in the derived starred view each
// message's real folder is looked up in the snapshot, since the gateway
// only understands stored folders.
func (s *Store) resolveKeys(ids []string) []model.MessageKey {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	keys := make([]model.MessageKey, 0, len(ids))
	for _, id := range ids {
		if s.folder == model.FolderStarred {
			for _, m := range s.snapshot {
				if m.Flagged && m.MessageID == id {
					keys = append(keys, m.Key())
					break
				}
			}
			continue
		}
		keys = append(keys, model.MessageKey{Folder: s.folder, MessageID: id})
	}
	return keys
}

// groupByFolder partitions keys by their folder, preserving order.
func groupByFolder(keys []model.MessageKey) [][]model.MessageKey {
	var order []model.Folder
	grouped := make(map[model.Folder][]model.MessageKey)
	for _, k := range keys {
		if _, ok := grouped[k.Folder]; !ok {
			order = append(order, k.Folder)
		}
		grouped[k.Folder] = append(grouped[k.Folder], k)
	}
	out := make([][]model.MessageKey, len(order))
	for i, f := range order {
		out[i] = grouped[f]
	}
	return out
}

// classify appends an explanation for the well-known HTTP failure modes
// to a base failure message.
func classify(base string, err error) string {
	if gateway.IsAuthError(err) {
		return base + " – session expired, please login again"
	}
	switch gateway.StatusCode(err) {
	case http.StatusUnauthorized:
		return base + " – session expired, please login again"
	case http.StatusNotFound:
		return base + " – endpoint not found"
	case http.StatusInternalServerError:
		return base + " – server error"
	}
	return base
}

// DownloadAttachment fetches an attachment and writes it into the
// configured download directory, returning the written path.
func (s *Store) DownloadAttachment(ctx context.Context, uid int, filename string) (string, error) {
	att, err := s.gw.DownloadAttachment(ctx, uid, filename)
	if err != nil {
		s.notify(model.SeverityError, classify("Failed to download attachment", err))
		return "", err
	}

	if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	path := filepath.Join(s.downloadDir, filepath.Base(att.Filename))
	if err := os.WriteFile(path, att.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing attachment %s: %w", path, err)
	}

	s.notify(model.SeveritySuccess, fmt.Sprintf("Downloaded %s", att.Filename))
	return path, nil
}

// PreviewAttachment fetches attachment content for inline display. The
// caller must route a FallbackDownload result to DownloadAttachment.
func (s *Store) PreviewAttachment(ctx context.Context, uid int, filename string) (*gateway.Preview, error) {
	return s.gw.PreviewAttachment(ctx, uid, filename)
}
