package model

import "strings"

// Folder identifies a server-side partition of the mailbox.
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderDraft   Folder = "draft"
	FolderSent    Folder = "sent"
	FolderArchive Folder = "archive"
	FolderJunk    Folder = "junk"
	FolderDeleted Folder = "deleted"

	// FolderStarred is a client-derived view over all flagged messages.
	// It is never a storage partition: membership follows the Flagged
	// bit of each message regardless of its real folder.
	FolderStarred Folder = "starred"
)

// StoredFolders lists the real (server-side) folders in sidebar order.
var StoredFolders = []Folder{
	FolderInbox,
	FolderDraft,
	FolderSent,
	FolderArchive,
	FolderJunk,
	FolderDeleted,
}

// Normalize lower-cases a folder name so comparisons are case-insensitive,
// matching the upstream API which is not consistent about casing.
func (f Folder) Normalize() Folder {
	return Folder(strings.ToLower(string(f)))
}

// IsStored reports whether f is a real server-side folder
// (as opposed to the derived starred view).
func (f Folder) IsStored() bool {
	switch f.Normalize() {
	case FolderInbox, FolderDraft, FolderSent, FolderArchive, FolderJunk, FolderDeleted:
		return true
	}
	return false
}

// Recipient is a single addressee of a message.
type Recipient struct {
	Email string `json:"email"`
}

// Body holds the message content in its available representations.
// Either part may be empty.
type Body struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// Attachment describes a file stored with a received message.
type Attachment struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	MimeType    string `json:"mime_type"`
	DownloadURL string `json:"download_url"`
}

// Message is a single mail item.
//
// MessageID is stable across folders but is NOT guaranteed unique across
// distinct messages; (Folder, MessageID) is the minimum safe composite key.
// UID is the numeric identifier used for attachment retrieval.
type Message struct {
	UID         int          `json:"uid"`
	MessageID   string       `json:"messageId"`
	DraftID     string       `json:"draftId,omitempty"`
	Folder      Folder       `json:"folder"`
	Sender      string       `json:"sender"`
	SenderMail  string       `json:"senderEmail"`
	Subject     string       `json:"subject"`
	Preview     string       `json:"preview"`
	Timestamp   string       `json:"timestamp"`
	Seen        bool         `json:"seen"`
	Flagged     bool         `json:"flagged"`
	Answered    bool         `json:"answered"`
	Recipients  []Recipient  `json:"recipients"`
	Body        Body         `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Key returns the composite identity of the message within the mailbox.
func (m Message) Key() MessageKey {
	return MessageKey{Folder: m.Folder.Normalize(), MessageID: m.MessageID}
}

// MessageKey is the composite identity of a message: the folder it is
// stored in plus its message ID.
type MessageKey struct {
	Folder    Folder
	MessageID string
}

// Pagination describes one page of a folder view. Every field is derived
// from the filtered view length; nothing here is hand-maintained.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
	From        int `json:"from"`
	To          int `json:"to"`
}
