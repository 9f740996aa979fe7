package mailbox_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/mailbox"
	"github.com/nhle/webmail/internal/model"
)

func msg(folder model.Folder, id string, seen, flagged bool) model.Message {
	return model.Message{
		MessageID: id,
		Folder:    folder,
		Subject:   "subject " + id,
		Seen:      seen,
		Flagged:   flagged,
	}
}

func keysOf(msgs ...model.Message) []model.MessageKey {
	keys := make([]model.MessageKey, len(msgs))
	for i, m := range msgs {
		keys[i] = m.Key()
	}
	return keys
}

func TestEngineMarkRead(t *testing.T) {
	m1 := msg(model.FolderInbox, "m1", false, false)
	m2 := msg(model.FolderInbox, "m2", false, false)
	m3 := msg(model.FolderSent, "m3", false, false)
	snapshot := []model.Message{m1, m2, m3}
	view := []model.Message{m1, m2}

	e := mailbox.NewEngine()
	newSnap, newView := e.Apply(snapshot, view, mailbox.ActionMarkRead, keysOf(m1), mailbox.Payload{})

	assert.True(t, newSnap[0].Seen)
	assert.False(t, newSnap[1].Seen, "unaffected message must keep its seen state")
	assert.False(t, newSnap[2].Seen)
	assert.True(t, newView[0].Seen)
	assert.False(t, newView[1].Seen)

	// Inputs are not mutated.
	assert.False(t, snapshot[0].Seen)
	assert.False(t, view[0].Seen)
}

func TestEngineMarkUnread(t *testing.T) {
	m1 := msg(model.FolderInbox, "m1", true, false)
	snapshot := []model.Message{m1}

	e := mailbox.NewEngine()
	newSnap, _ := e.Apply(snapshot, snapshot, mailbox.ActionMarkUnread, keysOf(m1), mailbox.Payload{})

	assert.False(t, newSnap[0].Seen)
}

func TestEngineFlagDoesNotTouchFolder(t *testing.T) {
	m1 := msg(model.FolderArchive, "m1", true, false)
	snapshot := []model.Message{m1}

	e := mailbox.NewEngine()
	newSnap, _ := e.Apply(snapshot, snapshot, mailbox.ActionFlag, keysOf(m1), mailbox.Payload{})

	assert.True(t, newSnap[0].Flagged)
	assert.Equal(t, model.FolderArchive, newSnap[0].Folder,
		"flagging changes starred membership only, never the stored folder")

	newSnap, _ = e.Apply(newSnap, newSnap, mailbox.ActionUnflag, keysOf(newSnap[0]), mailbox.Payload{})
	assert.False(t, newSnap[0].Flagged)
	assert.Equal(t, model.FolderArchive, newSnap[0].Folder)
}

func TestEngineMoveReassignsSnapshotAndDropsFromView(t *testing.T) {
	m1 := msg(model.FolderInbox, "m1", true, false)
	m2 := msg(model.FolderInbox, "m2", true, false)
	snapshot := []model.Message{m1, m2}
	view := []model.Message{m1, m2}

	e := mailbox.NewEngine()
	newSnap, newView := e.Apply(snapshot, view, mailbox.ActionMove, keysOf(m1),
		mailbox.Payload{TargetFolder: model.FolderArchive})

	assert.Equal(t, model.FolderArchive, newSnap[0].Folder)
	assert.Equal(t, model.FolderInbox, newSnap[1].Folder)
	require.Len(t, newView, 1, "moved message leaves the current view")
	assert.Equal(t, "m2", newView[0].MessageID)
}

func TestEngineDelete(t *testing.T) {
	m1 := msg(model.FolderDeleted, "m1", true, false)
	m2 := msg(model.FolderDeleted, "m2", true, false)
	snapshot := []model.Message{m1, m2}
	view := []model.Message{m1, m2}

	e := mailbox.NewEngine()
	newSnap, newView := e.Apply(snapshot, view, mailbox.ActionDelete, keysOf(m2), mailbox.Payload{})

	require.Len(t, newSnap, 1)
	assert.Equal(t, "m1", newSnap[0].MessageID)
	require.Len(t, newView, 1)
	assert.Equal(t, "m1", newView[0].MessageID)
}

func TestEngineDeleteAllEmptiesTrashOnly(t *testing.T) {
	trash := msg(model.FolderDeleted, "m1", true, false)
	kept := msg(model.FolderInbox, "m2", true, false)
	snapshot := []model.Message{trash, kept}
	view := []model.Message{trash}

	e := mailbox.NewEngine()
	newSnap, newView := e.Apply(snapshot, view, mailbox.ActionDeleteAll, nil, mailbox.Payload{})

	require.Len(t, newSnap, 1)
	assert.Equal(t, "m2", newSnap[0].MessageID)
	assert.Empty(t, newView)
}

func TestEngineUnknownActionIsIdentity(t *testing.T) {
	m1 := msg(model.FolderInbox, "m1", false, false)
	snapshot := []model.Message{m1}

	e := mailbox.NewEngine()
	newSnap, newView := e.Apply(snapshot, snapshot, mailbox.Action("fling"), keysOf(m1), mailbox.Payload{})

	assert.Empty(t, cmp.Diff(snapshot, newSnap))
	assert.Empty(t, cmp.Diff(snapshot, newView))
}

func TestEngineCompositeKeyScoping(t *testing.T) {
	// Same message ID in two folders: only the addressed copy changes.
	inbox := msg(model.FolderInbox, "dup", false, false)
	junk := msg(model.FolderJunk, "dup", false, false)
	snapshot := []model.Message{inbox, junk}

	e := mailbox.NewEngine()
	newSnap, _ := e.Apply(snapshot, nil, mailbox.ActionMarkRead, keysOf(inbox), mailbox.Payload{})

	assert.True(t, newSnap[0].Seen)
	assert.False(t, newSnap[1].Seen, "identical IDs in other folders must be untouched")
}

func TestEngineRollbackSingleSlot(t *testing.T) {
	m1 := msg(model.FolderInbox, "m1", false, false)
	m2 := msg(model.FolderInbox, "m2", false, false)
	snapshot := []model.Message{m1, m2}
	view := []model.Message{m1, m2}

	e := mailbox.NewEngine()

	_, _, ok := e.Rollback()
	assert.False(t, ok, "empty slot reports no rollback state")

	first, _ := e.Apply(snapshot, view, mailbox.ActionMarkRead, keysOf(m1), mailbox.Payload{})

	savedSnap, savedView, ok := e.Rollback()
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(snapshot, savedSnap), "rollback must return the pre-action snapshot")
	assert.Empty(t, cmp.Diff(view, savedView))

	// A second apply before Clear overwrites the slot.
	e.Apply(first, first, mailbox.ActionFlag, keysOf(m2), mailbox.Payload{})
	savedSnap, _, ok = e.Rollback()
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(first, savedSnap))

	e.Clear()
	_, _, ok = e.Rollback()
	assert.False(t, ok)
}
