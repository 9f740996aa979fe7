package gateway

import (
	"errors"
	"fmt"

	"github.com/nhle/webmail/internal/model"
)

// AuthError indicates that the session is no longer valid: either the
// refresh flow failed or the server rejected a refreshed token. The
// session has been cleared by the time this error is returned.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session expired: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusError carries the HTTP status of a failed gateway call so callers
// can classify the failure (401, 404, 500, ...).
type StatusError struct {
	Code    int
	Op      string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Code, e.Message)
}

// StatusCode extracts the HTTP status from err, or 0 when err does not
// carry one (e.g., a transport failure).
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

// ErrMarkUnreadUnsupported is returned by MarkUnread when the deployment
// does not expose the mark-as-unread endpoint. Not every variant of the
// upstream API has it; the capability is configured explicitly instead of
// being faked client-side.
var ErrMarkUnreadUnsupported = errors.New("mark-as-unread is not supported by this gateway")

// User identifies the authenticated mailbox owner.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// tokenPair is the credential pair issued by login and refresh.
type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// loginResponse is the body returned by POST /login and POST /refresh.
type loginResponse struct {
	User   User      `json:"user"`
	Tokens tokenPair `json:"tokens"`
}

// fetchAllResponse is the body returned by GET /emails/all: all messages
// grouped by folder name.
type fetchAllResponse struct {
	Status  string                     `json:"status"`
	Data    map[string][]model.Message `json:"data"`
	Message string                     `json:"message"`
	Err     string                     `json:"error"`
}

// statusResponse is the generic mutation acknowledgement body.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// deleteResponse is the body returned by the permanent delete endpoints.
type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// errorBody is the shape of an upstream error payload.
type errorBody struct {
	Message string `json:"message"`
	Err     string `json:"error"`
}

// FileAttachment is a new file uploaded with a send or save-draft call.
type FileAttachment struct {
	Filename string
	Data     []byte
}

// OutgoingMessage is the payload of a send call. StoredAttachments
// reference files already held by the server (draft attachments); DraftID
// and InReplyTo tie the send to an existing draft or message.
type OutgoingMessage struct {
	To                string
	Subject           string
	Body              string
	Attachments       []FileAttachment
	StoredAttachments []string
	DraftID           string
	InReplyTo         string
}

// AttachmentData is the downloaded content of a stored attachment.
type AttachmentData struct {
	Filename string
	MimeType string
	Data     []byte
}

// Preview is the result of a preview call. When FallbackDownload is set
// the file's extension is outside the previewable allow-list and no
// network call was made; the caller should download instead.
type Preview struct {
	Filename         string
	MimeType         string
	Data             []byte
	FallbackDownload bool
}
