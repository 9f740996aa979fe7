// Package mailbox owns the in-memory mailbox model: the full message
// snapshot across all folders, the current folder's paginated view, the
// selection set, and the optimistic-update machinery that keeps local
// state consistent with the remote gateway.
package mailbox

import "github.com/nhle/webmail/internal/model"

// Action names a snapshot transformation the engine knows how to apply.
type Action string

const (
	ActionMarkRead   Action = "markAsRead"
	ActionMarkUnread Action = "markAsUnread"
	ActionFlag       Action = "flagEmail"
	ActionUnflag     Action = "unflagEmail"
	ActionMove       Action = "moveEmail"
	ActionDelete     Action = "deleteEmails"
	ActionDeleteAll  Action = "deletePermanentAll"
)

// Payload carries action-specific parameters; only moves use it.
type Payload struct {
	TargetFolder model.Folder
}

// Engine computes the next mailbox state for a confirmed action without
// another round-trip, retaining exactly one prior state pair for rollback.
// It is not an undo stack: a second Apply before Clear overwrites the slot.
type Engine struct {
	saved *savedState
}

type savedState struct {
	snapshot []model.Message
	view     []model.Message
}

// NewEngine returns an engine with an empty rollback slot.
func NewEngine() *Engine {
	return &Engine{}
}

// Apply captures the current (snapshot, view) pair into the rollback slot
// and returns the pair transformed by the named action. Unknown actions
// are the identity transformation.
func (e *Engine) Apply(
	snapshot, view []model.Message,
	action Action,
	affected []model.MessageKey,
	payload Payload,
) (newSnapshot, newView []model.Message) {
	e.saved = &savedState{
		snapshot: copyMessages(snapshot),
		view:     copyMessages(view),
	}

	keys := make(map[model.MessageKey]bool, len(affected))
	for _, k := range affected {
		keys[k] = true
	}

	switch action {
	case ActionMarkRead, ActionMarkUnread:
		seen := action == ActionMarkRead
		return mapAffected(snapshot, keys, func(m model.Message) model.Message {
				m.Seen = seen
				return m
			}), mapAffected(view, keys, func(m model.Message) model.Message {
				m.Seen = seen
				return m
			})

	case ActionFlag, ActionUnflag:
		flagged := action == ActionFlag
		return mapAffected(snapshot, keys, func(m model.Message) model.Message {
				m.Flagged = flagged
				return m
			}), mapAffected(view, keys, func(m model.Message) model.Message {
				m.Flagged = flagged
				return m
			})

	case ActionMove:
		// The snapshot keeps the messages under their new folder; the
		// current view drops them since they no longer belong to it.
		return mapAffected(snapshot, keys, func(m model.Message) model.Message {
			m.Folder = payload.TargetFolder.Normalize()
			return m
		}), dropAffected(view, keys)

	case ActionDelete:
		return dropAffected(snapshot, keys), dropAffected(view, keys)

	case ActionDeleteAll:
		kept := make([]model.Message, 0, len(snapshot))
		for _, m := range snapshot {
			if m.Folder.Normalize() != model.FolderDeleted {
				kept = append(kept, m)
			}
		}
		return kept, []model.Message{}
	}

	return snapshot, view
}

// Rollback returns the saved prior state, or ok=false when the slot is
// empty (no optimistic mutation pending).
func (e *Engine) Rollback() (snapshot, view []model.Message, ok bool) {
	if e.saved == nil {
		return nil, nil, false
	}
	return e.saved.snapshot, e.saved.view, true
}

// Clear discards the saved prior state after a confirmed commit.
func (e *Engine) Clear() {
	e.saved = nil
}

// copyMessages returns an independent copy of the message slice.
func copyMessages(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}

// mapAffected returns a new slice with fn applied to every message whose
// composite key is in the affected set.
func mapAffected(
	msgs []model.Message,
	keys map[model.MessageKey]bool,
	fn func(model.Message) model.Message,
) []model.Message {
	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		if keys[m.Key()] {
			out[i] = fn(m)
		} else {
			out[i] = m
		}
	}
	return out
}

// dropAffected returns a new slice without the affected messages.
func dropAffected(msgs []model.Message, keys map[model.MessageKey]bool) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if !keys[m.Key()] {
			out = append(out, m)
		}
	}
	return out
}
