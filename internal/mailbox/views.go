package mailbox

import "github.com/nhle/webmail/internal/model"

// Messages returns a copy of the current folder view (one page).
func (s *Store) Messages() []model.Message {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return copyMessages(s.view)
}

// Snapshot returns a copy of the full mailbox snapshot.
func (s *Store) Snapshot() []model.Message {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return copyMessages(s.snapshot)
}

// Pagination returns the current pagination descriptor.
func (s *Store) Pagination() model.Pagination {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.pagination
}

// Folder returns the currently viewed folder.
func (s *Store) Folder() model.Folder {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.folder
}

// CurrentPage returns the current page number.
func (s *Store) CurrentPage() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.page
}

// PerPage returns the current page size.
func (s *Store) PerPage() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.perPage
}

// InFlight reports whether a mutating action is currently awaiting
// network settlement. Views use it to disable controls.
func (s *Store) InFlight() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.inFlight
}

// Loaded reports whether the snapshot has been fetched at least once.
func (s *Store) Loaded() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.loaded
}

// SetPage moves the current folder view to the given page.
func (s *Store) SetPage(page int) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if page > 0 {
		s.page = page
		s.recompute()
	}
}

// SetPerPage changes the page size and re-derives the view.
func (s *Store) SetPerPage(perPage int) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if perPage > 0 {
		s.perPage = perPage
		s.recompute()
	}
}

// ToggleSelect adds the message to the selection set, or removes it when
// already selected.
func (s *Store) ToggleSelect(id string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.selected[id] {
		delete(s.selected, id)
	} else {
		s.selected[id] = true
	}
}

// IsSelected reports whether the message is in the selection set.
func (s *Store) IsSelected(id string) bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.selected[id]
}

// Selected returns the IDs currently checked for bulk action, in view order.
func (s *Store) Selected() []string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	out := make([]string, 0, len(s.selected))
	for _, m := range s.view {
		if s.selected[m.MessageID] {
			out = append(out, m.MessageID)
		}
	}
	return out
}

// ClearSelection empties the selection set.
func (s *Store) ClearSelection() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.selected = make(map[string]bool)
}

// MessageByID finds a message by its composite key.
func (s *Store) MessageByID(folder model.Folder, id string) (model.Message, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	key := model.MessageKey{Folder: folder.Normalize(), MessageID: id}
	for _, m := range s.snapshot {
		if m.Key() == key {
			return m, true
		}
	}
	return model.Message{}, false
}

// FolderCounts returns the number of messages per stored folder, plus the
// flagged count under the starred view.
func (s *Store) FolderCounts() map[model.Folder]int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	counts := make(map[model.Folder]int)
	for _, m := range s.snapshot {
		counts[m.Folder.Normalize()]++
		if m.Flagged {
			counts[model.FolderStarred]++
		}
	}
	return counts
}

// UnreadCounts returns the number of unseen messages per stored folder.
func (s *Store) UnreadCounts() map[model.Folder]int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	counts := make(map[model.Folder]int)
	for _, m := range s.snapshot {
		if !m.Seen {
			counts[m.Folder.Normalize()]++
		}
	}
	return counts
}
