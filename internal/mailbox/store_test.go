package mailbox_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/gateway"
	"github.com/nhle/webmail/internal/mailbox"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/tests/testutil"
)

// seedFolders builds a small mailbox with messages spread across folders.
func seedFolders() map[string][]model.Message {
	return map[string][]model.Message{
		"inbox": {
			msg(model.FolderInbox, "m1", false, false),
			msg(model.FolderInbox, "m2", true, false),
			msg(model.FolderInbox, "m3", false, true),
		},
		"sent": {
			msg(model.FolderSent, "s1", true, true),
		},
		"deleted": {
			msg(model.FolderDeleted, "d1", true, false),
			msg(model.FolderDeleted, "d2", true, false),
			msg(model.FolderDeleted, "d3", true, false),
		},
		"archive": {
			msg(model.FolderArchive, "a1", true, false),
		},
	}
}

func newTestStore(t *testing.T) (*mailbox.Store, *testutil.FakeGateway) {
	t.Helper()

	gw := testutil.NewFakeGateway()
	gw.Folders = seedFolders()
	s := mailbox.NewStore(gw, 20, t.TempDir())
	return s, gw
}

// nextNotification reads the next emitted notification or fails the test.
func nextNotification(t *testing.T, s *mailbox.Store) model.Notification {
	t.Helper()

	select {
	case n := <-s.Notifications():
		return n
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
		return model.Notification{}
	}
}

func assertNoNotification(t *testing.T, s *mailbox.Store) {
	t.Helper()

	select {
	case n := <-s.Notifications():
		t.Fatalf("unexpected notification: %q", n.Message)
	default:
	}
}

func TestLoadTagsMessagesWithSourceFolder(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	for _, m := range s.Snapshot() {
		assert.True(t, m.Folder.IsStored(), "every message carries its source folder")
	}
	assert.Len(t, s.Messages(), 3)
	assert.Equal(t, 3, s.Pagination().Total)
}

func TestLoadFailureLeavesStateUntouched(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))
	before := s.Snapshot()

	gw.Err["FetchAll"] = errors.New("connection refused")
	err := s.Load(context.Background(), model.FolderInbox, 1, 20, true)
	require.Error(t, err)

	n := nextNotification(t, s)
	assert.Equal(t, model.SeverityError, n.Severity)
	assert.Empty(t, cmp.Diff(before, s.Snapshot()))
}

func TestLoadCachedSnapshotSkipsFetch(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))
	require.NoError(t, s.Load(context.Background(), model.FolderSent, 1, 20, false))

	fetches := 0
	for _, call := range gw.CallLog() {
		if call == "FetchAll(force=false)" || call == "FetchAll(force=true)" {
			fetches++
		}
	}
	assert.Equal(t, 1, fetches, "switching folders must not re-fetch")
}

func TestFolderPartitionProperty(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	seen := make(map[model.MessageKey]int)
	totalAcrossFolders := 0
	for _, folder := range model.StoredFolders {
		require.NoError(t, s.Load(context.Background(), folder, 1, 100, false))
		for _, m := range s.Messages() {
			seen[m.Key()]++
			totalAcrossFolders++
		}
	}

	assert.Len(t, seen, len(s.Snapshot()), "stored folders partition the snapshot")
	assert.Equal(t, len(s.Snapshot()), totalAcrossFolders)
	for key, count := range seen {
		assert.Equal(t, 1, count, "message %v appears in exactly one stored folder view", key)
	}

	// The starred view overlaps the stored folders: it holds every
	// flagged message regardless of its folder.
	require.NoError(t, s.Load(context.Background(), model.FolderStarred, 1, 100, false))
	starred := s.Messages()
	require.Len(t, starred, 2)
	folders := map[model.Folder]bool{}
	for _, m := range starred {
		assert.True(t, m.Flagged)
		folders[m.Folder] = true
	}
	assert.True(t, folders[model.FolderInbox])
	assert.True(t, folders[model.FolderSent])
}

func TestPaginationTotalsAndReconstruction(t *testing.T) {
	gw := testutil.NewFakeGateway()
	var want []string
	var inbox []model.Message
	for i := 1; i <= 25; i++ {
		id := fmt.Sprintf("m%02d", i)
		inbox = append(inbox, msg(model.FolderInbox, id, false, false))
		want = append(want, id)
	}
	gw.Folders = map[string][]model.Message{"inbox": inbox}
	s := mailbox.NewStore(gw, 10, t.TempDir())

	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 10, false))
	p := s.Pagination()
	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 1, p.From)
	assert.Equal(t, 10, p.To)

	// Concatenating all pages reconstructs the filtered view exactly.
	var got []string
	for page := 1; page <= p.TotalPages; page++ {
		s.SetPage(page)
		for _, m := range s.Messages() {
			got = append(got, m.MessageID)
		}
	}
	assert.Equal(t, want, got)

	s.SetPage(3)
	p = s.Pagination()
	assert.Equal(t, 21, p.From)
	assert.Equal(t, 25, p.To)
}

func TestMarkReadSuccess(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	s.MarkRead(context.Background(), []string{"m1"})

	n := nextNotification(t, s)
	assert.Equal(t, model.SeveritySuccess, n.Severity)
	assert.Contains(t, n.Message, "1")

	m, ok := s.MessageByID(model.FolderInbox, "m1")
	require.True(t, ok)
	assert.True(t, m.Seen)
	assert.False(t, s.InFlight())
	assert.Contains(t, gw.CallLog(), "MarkRead(inbox,m1)")
}

func TestSequentialFanOutOrder(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	s.MarkRead(context.Background(), []string{"m1", "m2", "m3"})
	nextNotification(t, s)

	var markCalls []string
	for _, call := range gw.CallLog() {
		if call == "MarkRead(inbox,m1)" || call == "MarkRead(inbox,m2)" || call == "MarkRead(inbox,m3)" {
			markCalls = append(markCalls, call)
		}
	}
	assert.Equal(t, []string{
		"MarkRead(inbox,m1)",
		"MarkRead(inbox,m2)",
		"MarkRead(inbox,m3)",
	}, markCalls, "per-message calls are issued strictly in order")
}

func TestMidSequenceFailureReportsPartialCompletion(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))
	before := s.Snapshot()

	gw.ErrOnID["m3"] = errors.New("boom")
	s.MarkRead(context.Background(), []string{"m1", "m2", "m3"})

	n := nextNotification(t, s)
	assert.Equal(t, model.SeverityError, n.Severity)
	assert.Contains(t, n.Message, "2 of 3 completed")

	// Confirmed-then-reflect: nothing was committed locally, so the
	// snapshot is exactly what it was before the action.
	assert.Empty(t, cmp.Diff(before, s.Snapshot()))
	assert.False(t, s.InFlight())
}

func TestBulkDeleteFailureRollsBack(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderDeleted, 1, 20, false))
	beforeSnapshot := s.Snapshot()
	beforeView := s.Messages()

	gw.Err["DeletePermanent"] = errors.New("boom")
	s.Delete(context.Background(), []string{"d1", "d2", "d3"})

	n := nextNotification(t, s)
	assert.Equal(t, model.SeverityError, n.Severity)
	assert.Empty(t, cmp.Diff(beforeSnapshot, s.Snapshot()),
		"failed delete must leave the snapshot bit-for-bit identical")
	assert.Empty(t, cmp.Diff(beforeView, s.Messages()))
	assert.False(t, s.InFlight())
}

func TestDeleteSuccessRemovesMessages(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderDeleted, 1, 20, false))

	s.Delete(context.Background(), []string{"d1", "d2"})
	n := nextNotification(t, s)
	assert.Equal(t, model.SeveritySuccess, n.Severity)
	assert.Contains(t, n.Message, "2")

	require.Len(t, s.Messages(), 1)
	assert.Equal(t, "d3", s.Messages()[0].MessageID)
}

func TestDeleteAllTrash(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderDeleted, 1, 20, false))

	s.DeleteAllTrash(context.Background())
	nextNotification(t, s)

	assert.Contains(t, gw.CallLog(), "DeletePermanentAll()")
	assert.Empty(t, s.Messages())
	assert.Len(t, s.Snapshot(), 5, "other folders are untouched")
}

func TestMoveRemovesFromSourceViewAndAppearsInTarget(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	s.Move(context.Background(), []string{"m1"}, model.FolderArchive)
	n := nextNotification(t, s)
	assert.Equal(t, model.SeveritySuccess, n.Severity)

	for _, m := range s.Messages() {
		assert.NotEqual(t, "m1", m.MessageID, "moved message must leave the source view")
	}

	assert.Contains(t, gw.CallLog(), "Move(inbox,[m1],archive)")

	require.NoError(t, s.Load(context.Background(), model.FolderArchive, 1, 20, false))
	ids := make([]string, 0)
	for _, m := range s.Messages() {
		ids = append(ids, m.MessageID)
	}
	assert.Contains(t, ids, "m1", "moved message must appear in the target view")
}

func TestMoveToSameFolderIsNoOp(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderArchive, 1, 20, false))
	before := s.Snapshot()
	callsBefore := len(gw.CallLog())

	s.Move(context.Background(), []string{"a1"}, model.FolderArchive)

	assertNoNotification(t, s)
	assert.Len(t, gw.CallLog(), callsBefore, "no gateway call for a same-folder move")
	assert.Empty(t, cmp.Diff(before, s.Snapshot()))
}

func TestMoveFailureRollsBack(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))
	before := s.Snapshot()

	gw.Err["Move"] = &gateway.StatusError{Code: 500, Op: "POST /emails/move", Message: "boom"}
	s.Move(context.Background(), []string{"m1"}, model.FolderJunk)

	n := nextNotification(t, s)
	assert.Equal(t, model.SeverityError, n.Severity)
	assert.Contains(t, n.Message, "server error")
	assert.Empty(t, cmp.Diff(before, s.Snapshot()))
}

func TestStarredDerivation(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	// Flagging never changes the stored folder, only starred membership.
	s.Flag(context.Background(), []string{"m1"})
	nextNotification(t, s)

	m, ok := s.MessageByID(model.FolderInbox, "m1")
	require.True(t, ok)
	assert.True(t, m.Flagged)
	assert.Equal(t, model.FolderInbox, m.Folder)

	require.NoError(t, s.Load(context.Background(), model.FolderStarred, 1, 20, false))
	assert.Len(t, s.Messages(), 3, "newly flagged message joins the starred view immediately")

	assert.Equal(t, 3, s.FolderCounts()[model.FolderStarred])
}

func TestStarredViewResolvesRealFolders(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderStarred, 1, 20, false))

	// m3 lives in inbox, s1 in sent; the gateway must be addressed with
	// the stored folders, not the derived view name.
	s.Unflag(context.Background(), []string{"m3", "s1"})
	nextNotification(t, s)

	log := gw.CallLog()
	assert.Contains(t, log, "Unflag(inbox,m3)")
	assert.Contains(t, log, "Unflag(sent,s1)")

	require.NoError(t, s.Load(context.Background(), model.FolderStarred, 1, 20, false))
	assert.Empty(t, s.Messages())
}

func TestMarkUnreadUnsupportedGateway(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	gw.Err["MarkUnread"] = gateway.ErrMarkUnreadUnsupported
	s.MarkUnread(context.Background(), []string{"m2"})

	n := nextNotification(t, s)
	assert.Equal(t, model.SeverityError, n.Severity)

	m, _ := s.MessageByID(model.FolderInbox, "m2")
	assert.True(t, m.Seen, "unsupported operation must not fake local state")
}

func TestSelectionScopedToFolder(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	s.ToggleSelect("m1")
	s.ToggleSelect("m2")
	assert.ElementsMatch(t, []string{"m1", "m2"}, s.Selected())

	s.ToggleSelect("m2")
	assert.Equal(t, []string{"m1"}, s.Selected())

	// Changing folders clears the selection.
	require.NoError(t, s.Load(context.Background(), model.FolderSent, 1, 20, false))
	assert.Empty(t, s.Selected())
}

func TestSelectionDroppedAfterMove(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	s.ToggleSelect("m1")
	s.Move(context.Background(), []string{"m1"}, model.FolderArchive)
	nextNotification(t, s)

	assert.Empty(t, s.Selected())
}

func TestOverlappingActionsSerialize(t *testing.T) {
	s, gw := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))
	gw.Delay = 5 * time.Millisecond

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Flag(context.Background(), []string{"m1", "m2"})
	}()
	go func() {
		defer wg.Done()
		s.Unflag(context.Background(), []string{"m1", "m2"})
	}()
	wg.Wait()

	// Both actions completed with one notification each.
	nextNotification(t, s)
	nextNotification(t, s)

	// The per-message calls of one action must not interleave with the
	// other action's calls.
	var ops []string
	for _, call := range gw.CallLog() {
		switch {
		case strings.HasPrefix(call, "Unflag("):
			ops = append(ops, "Unflag")
		case strings.HasPrefix(call, "Flag("):
			ops = append(ops, "Flag")
		}
	}
	require.Len(t, ops, 4)
	assert.Equal(t, ops[0], ops[1], "first action's calls are contiguous")
	assert.Equal(t, ops[2], ops[3], "second action's calls are contiguous")
}

func TestUnreadCounts(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Load(context.Background(), model.FolderInbox, 1, 20, false))

	counts := s.UnreadCounts()
	assert.Equal(t, 2, counts[model.FolderInbox])
	assert.Zero(t, counts[model.FolderSent])

	s.MarkRead(context.Background(), []string{"m1", "m3"})
	nextNotification(t, s)
	assert.Zero(t, s.UnreadCounts()[model.FolderInbox])
}

func TestDownloadAttachmentWritesFile(t *testing.T) {
	s, gw := newTestStore(t)
	gw.Attachments["7/report.pdf"] = []byte("pdf-bytes")

	path, err := s.DownloadAttachment(context.Background(), 7, "report.pdf")
	require.NoError(t, err)
	assert.FileExists(t, path)

	n := nextNotification(t, s)
	assert.Equal(t, model.SeveritySuccess, n.Severity)
}

func TestPreviewFallbackThenDownload(t *testing.T) {
	s, gw := newTestStore(t)
	gw.Attachments["7/report.xlsx"] = []byte("xlsx-bytes")

	preview, err := s.PreviewAttachment(context.Background(), 7, "report.xlsx")
	require.NoError(t, err)
	assert.True(t, preview.FallbackDownload)
	assert.Empty(t, gw.CallLog(), "fallback preview must not touch the network")

	_, err = s.DownloadAttachment(context.Background(), 7, "report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"DownloadAttachment(7/report.xlsx)"}, gw.CallLog(),
		"the explicit download is the only network effect")
}
