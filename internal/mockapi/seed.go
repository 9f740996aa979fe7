package mockapi

import (
	"github.com/nhle/webmail/internal/model"
)

// seed fills the mailbox with demo data covering every folder and a
// couple of attachments.
func (s *Server) seed() {
	uid := func() int {
		u := s.nextUID
		s.nextUID++
		return u
	}

	reportUID := uid()
	s.attachments[attachmentKey(reportUID, "report.pdf")] = []byte("%PDF-1.4 demo report")
	s.attachments[attachmentKey(reportUID, "chart.png")] = []byte("\x89PNG demo chart")

	s.folders[string(model.FolderInbox)] = []model.Message{
		{
			UID:        reportUID,
			MessageID:  "inbox-1",
			Folder:     model.FolderInbox,
			Sender:     "Ana Pereira",
			SenderMail: "ana@example.com",
			Subject:    "Quarterly numbers",
			Preview:    "Numbers attached, have a look before Friday.",
			Timestamp:  "2026-08-28 09:15",
			Flagged:    true,
			Body:       model.Body{Text: "Numbers attached, have a look before Friday.\n\nAna"},
			Attachments: []model.Attachment{
				{Filename: "report.pdf", Size: 20, MimeType: "application/pdf"},
				{Filename: "chart.png", Size: 14, MimeType: "image/png"},
			},
		},
		{
			UID:        uid(),
			MessageID:  "inbox-2",
			Folder:     model.FolderInbox,
			Sender:     "Build Bot",
			SenderMail: "ci@example.com",
			Subject:    "Nightly build passed",
			Preview:    "All 412 tests green.",
			Timestamp:  "2026-08-29 03:02",
			Seen:       true,
			Body:       model.Body{Text: "All 412 tests green."},
		},
		{
			UID:        uid(),
			MessageID:  "inbox-3",
			Folder:     model.FolderInbox,
			Sender:     "Bo Lindqvist",
			SenderMail: "bo@example.com",
			Subject:    "Lunch?",
			Preview:    "Thursday works for me.",
			Timestamp:  "2026-08-29 11:40",
			Body:       model.Body{Text: "Thursday works for me."},
		},
	}

	s.folders[string(model.FolderSent)] = []model.Message{
		{
			UID:       uid(),
			MessageID: "sent-1",
			Folder:    model.FolderSent,
			Sender:    "me",
			Subject:   "Re: Quarterly numbers",
			Preview:   "Looks good, one question on page 3.",
			Timestamp: "2026-08-28 10:05",
			Seen:      true,
			Recipients: []model.Recipient{
				{Email: "ana@example.com"},
			},
			Body: model.Body{Text: "Looks good, one question on page 3."},
		},
	}

	s.folders[string(model.FolderDraft)] = []model.Message{
		{
			UID:       uid(),
			MessageID: "draft-1",
			DraftID:   "draft-1",
			Folder:    model.FolderDraft,
			Sender:    "me",
			Subject:   "Offsite agenda",
			Preview:   "Still collecting topics.",
			Timestamp: "2026-08-27 16:20",
			Seen:      true,
			Body:      model.Body{Text: "Still collecting topics."},
		},
	}

	s.folders[string(model.FolderArchive)] = []model.Message{
		{
			UID:        uid(),
			MessageID:  "archive-1",
			Folder:     model.FolderArchive,
			Sender:     "HR",
			SenderMail: "hr@example.com",
			Subject:    "Benefits enrollment closed",
			Timestamp:  "2026-07-01 08:00",
			Seen:       true,
			Body:       model.Body{Text: "Enrollment for this year is closed."},
		},
	}

	s.folders[string(model.FolderJunk)] = []model.Message{
		{
			UID:        uid(),
			MessageID:  "junk-1",
			Folder:     model.FolderJunk,
			Sender:     "Prize Dept",
			SenderMail: "winner@example.net",
			Subject:    "You have won",
			Timestamp:  "2026-08-25 22:13",
			Body:       model.Body{Text: "Claim your prize now."},
		},
	}

	s.folders[string(model.FolderDeleted)] = []model.Message{
		{
			UID:        uid(),
			MessageID:  "trash-1",
			Folder:     model.FolderDeleted,
			Sender:     "Old List",
			SenderMail: "list@example.org",
			Subject:    "Digest #1042",
			Timestamp:  "2026-08-20 06:00",
			Seen:       true,
			Body:       model.Body{Text: "This week's digest."},
		},
	}
}
