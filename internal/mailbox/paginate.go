package mailbox

import "github.com/nhle/webmail/internal/model"

// filterByFolder projects the snapshot onto a single folder view. The
// starred view is the live flagged subset across all folders; every other
// folder is an exact, case-insensitive match.
func filterByFolder(snapshot []model.Message, folder model.Folder) []model.Message {
	target := folder.Normalize()
	out := make([]model.Message, 0, len(snapshot))
	for _, m := range snapshot {
		if target == model.FolderStarred {
			if m.Flagged {
				out = append(out, m)
			}
			continue
		}
		if m.Folder.Normalize() == target {
			out = append(out, m)
		}
	}
	return out
}

// paginate slices one page out of a filtered view and derives the full
// pagination descriptor from its length.
func paginate(filtered []model.Message, page, perPage int) ([]model.Message, model.Pagination) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}

	total := len(filtered)
	totalPages := (total + perPage - 1) / perPage

	// Keep the page inside the valid range when the view shrinks.
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	view := make([]model.Message, end-start)
	copy(view, filtered[start:end])

	from := 0
	if total > 0 {
		from = start + 1
	}

	return view, model.Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		TotalPages:  totalPages,
		From:        from,
		To:          end,
	}
}
