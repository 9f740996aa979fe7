// Package compose builds outgoing messages: blank, reply, forward, or
// resumed from a server-side draft. It validates locally before any
// network call so a half-filled form never reaches the gateway.
package compose

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nhle/webmail/internal/gateway"
	"github.com/nhle/webmail/internal/model"
)

// MaxAttachmentSize caps individual uploads, mirroring the server limit.
const MaxAttachmentSize = 10 << 20

// Sender is the slice of the gateway compose needs.
type Sender interface {
	Send(ctx context.Context, msg gateway.OutgoingMessage) (string, error)
	SaveDraft(ctx context.Context, msg gateway.OutgoingMessage) (string, error)
}

// FieldErrors maps a form field name to its validation message.
type FieldErrors map[string]string

// Error implements error so a failed validation can travel an error path.
func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "invalid draft: " + strings.Join(parts, "; ")
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Draft is an in-progress outgoing message.
type Draft struct {
	To      string
	Subject string
	Body    string

	// Attachments are files picked locally for this draft.
	Attachments []gateway.FileAttachment

	// StoredAttachments names files already uploaded with a resumed
	// draft that should be kept on send.
	StoredAttachments []string

	// DraftID is set when this draft resumes a server-side one, so
	// sending replaces it instead of creating a sibling.
	DraftID string

	// InReplyTo holds the replied-to message ID, letting the server set
	// the answered flag on the original.
	InReplyTo string
}

// NewReply prefills a draft answering the given message.
func NewReply(original model.Message) *Draft {
	return &Draft{
		To:      original.SenderMail,
		Subject: "Re: " + original.Subject,
		Body: fmt.Sprintf("\n\n---\nOn %s, %s wrote:\n%s",
			original.Timestamp, original.Sender, original.Body.Text),
		InReplyTo: original.MessageID,
	}
}

// NewForward prefills a draft forwarding the given message. The recipient
// is left empty for the user to fill in.
func NewForward(original model.Message) *Draft {
	return &Draft{
		Subject: "Fwd: " + original.Subject,
		Body: fmt.Sprintf("\n\n---\nForwarded message:\nFrom: %s <%s>\nDate: %s\nSubject: %s\n\n%s",
			original.Sender, original.SenderMail, original.Timestamp,
			original.Subject, original.Body.Text),
	}
}

// FromDraft resumes a server-side draft for further editing. Attachments
// already stored with the draft are carried by name.
func FromDraft(original model.Message) *Draft {
	d := &Draft{
		Subject: original.Subject,
		Body:    original.Body.Text,
		DraftID: original.DraftID,
	}
	if len(original.Recipients) > 0 {
		d.To = original.Recipients[0].Email
	}
	for _, att := range original.Attachments {
		d.StoredAttachments = append(d.StoredAttachments, att.Filename)
	}
	return d
}

// AddAttachment attaches a local file, rejecting oversized uploads.
func (d *Draft) AddAttachment(filename string, data []byte) error {
	if int64(len(data)) > MaxAttachmentSize {
		return fmt.Errorf("attachment %s exceeds the 10MB limit", filename)
	}
	d.Attachments = append(d.Attachments, gateway.FileAttachment{
		Filename: filename,
		Data:     data,
	})
	return nil
}

// Validate checks the draft is sendable: exactly one valid recipient
// address and a non-empty subject. A nil return means valid.
func (d *Draft) Validate() FieldErrors {
	errs := make(FieldErrors)

	to := strings.TrimSpace(d.To)
	switch {
	case to == "":
		errs["to"] = "Recipient email is required"
	case !validRecipient(to):
		errs["to"] = "Enter a single valid email address"
	}

	if strings.TrimSpace(d.Subject) == "" {
		errs["subject"] = "Subject is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validRecipient accepts exactly one well-formed address; comma- or
// semicolon-separated lists are rejected.
func validRecipient(to string) bool {
	parts := strings.FieldsFunc(to, func(r rune) bool {
		return r == ',' || r == ';'
	})
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			addrs = append(addrs, p)
		}
	}
	return len(addrs) == 1 && emailPattern.MatchString(addrs[0])
}

// Send validates the draft and submits it. Validation failures return a
// FieldErrors without touching the gateway.
func (d *Draft) Send(ctx context.Context, s Sender) error {
	if errs := d.Validate(); errs != nil {
		return errs
	}
	if _, err := s.Send(ctx, d.outgoing()); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

// Save stores the draft server-side. Drafts are saved as-is: incomplete
// fields are the point of a draft, so no validation applies.
func (d *Draft) Save(ctx context.Context, s Sender) error {
	if _, err := s.SaveDraft(ctx, d.outgoing()); err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

func (d *Draft) outgoing() gateway.OutgoingMessage {
	return gateway.OutgoingMessage{
		To:                strings.TrimSpace(d.To),
		Subject:           strings.TrimSpace(d.Subject),
		Body:              d.Body,
		Attachments:       d.Attachments,
		StoredAttachments: d.StoredAttachments,
		DraftID:           d.DraftID,
		InReplyTo:         d.InReplyTo,
	}
}
