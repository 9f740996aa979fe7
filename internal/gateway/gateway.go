package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/nhle/webmail/internal/model"
)

// Login authenticates with the mail API and stores the issued token pair
// and user in the session. Login is the only call (besides refresh) that
// carries no bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return User{}, fmt.Errorf("marshaling login request: %w", err)
	}

	resp, respBody, err := c.send(ctx, http.MethodPost, "/login", payload, "application/json", "")
	if err != nil {
		return User{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return User{}, statusError("POST /login", resp.StatusCode, respBody)
	}

	var parsed loginResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return User{}, fmt.Errorf("unmarshaling login response: %w", err)
	}
	if parsed.Tokens.AccessToken == "" {
		return User{}, fmt.Errorf("login response carried no access token")
	}

	if err := c.session.SetTokens(parsed.Tokens.AccessToken, parsed.Tokens.RefreshToken); err != nil {
		return User{}, fmt.Errorf("storing tokens: %w", err)
	}
	if err := c.session.SetUser(parsed.User.Email); err != nil {
		return User{}, fmt.Errorf("storing user: %w", err)
	}

	return parsed.User, nil
}

// Logout clears the local session first and then tells the server to
// revoke the token, best effort. A failed revocation still leaves the
// client logged out.
func (c *Client) Logout(ctx context.Context) error {
	token, hadToken := c.session.AccessToken()
	if err := c.session.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if !hadToken {
		return nil
	}

	// Best effort: the local session is already gone.
	_, _, _ = c.send(ctx, http.MethodPost, "/logout", nil, "", token)
	return nil
}

// FetchAll retrieves every message grouped by folder name. When
// forceRefresh is set the server bypasses its cache.
func (c *Client) FetchAll(ctx context.Context, forceRefresh bool) (map[string][]model.Message, error) {
	path := "/emails/all"
	if forceRefresh {
		path += "?refresh=true"
	}

	var parsed fetchAllResponse
	if err := c.get(ctx, path, &parsed); err != nil {
		return nil, fmt.Errorf("fetching all emails: %w", err)
	}
	if parsed.Status != "success" {
		msg := parsed.Err
		if msg == "" {
			msg = parsed.Message
		}
		if msg == "" {
			msg = "failed to fetch emails"
		}
		return nil, fmt.Errorf("fetching all emails: %s", msg)
	}

	return parsed.Data, nil
}

// markRequest is the body of the per-message flag/seen mutations. These
// endpoints accept exactly one message per call.
type markRequest struct {
	Folder    string `json:"folder"`
	MessageID string `json:"message_id"`
}

// MarkRead marks a single message as seen.
func (c *Client) MarkRead(ctx context.Context, folder model.Folder, messageID string) error {
	var resp statusResponse
	err := c.post(ctx, "/emails/mark-as-read", markRequest{
		Folder:    string(folder),
		MessageID: messageID,
	}, &resp)
	if err != nil {
		return fmt.Errorf("marking %s as read: %w", messageID, err)
	}
	return nil
}

// MarkUnread marks a single message as unseen. Deployments without the
// endpoint report ErrMarkUnreadUnsupported instead of faking the call.
func (c *Client) MarkUnread(ctx context.Context, folder model.Folder, messageID string) error {
	if !c.caps.MarkUnread {
		return ErrMarkUnreadUnsupported
	}

	var resp statusResponse
	err := c.post(ctx, "/emails/mark-as-unread", markRequest{
		Folder:    string(folder),
		MessageID: messageID,
	}, &resp)
	if err != nil {
		return fmt.Errorf("marking %s as unread: %w", messageID, err)
	}
	return nil
}

// Flag stars a single message.
func (c *Client) Flag(ctx context.Context, folder model.Folder, messageID string) error {
	var resp statusResponse
	err := c.post(ctx, "/emails/flag", markRequest{
		Folder:    string(folder),
		MessageID: messageID,
	}, &resp)
	if err != nil {
		return fmt.Errorf("flagging %s: %w", messageID, err)
	}
	return nil
}

// Unflag removes the star from a single message.
func (c *Client) Unflag(ctx context.Context, folder model.Folder, messageID string) error {
	var resp statusResponse
	err := c.post(ctx, "/emails/unflag", markRequest{
		Folder:    string(folder),
		MessageID: messageID,
	}, &resp)
	if err != nil {
		return fmt.Errorf("unflagging %s: %w", messageID, err)
	}
	return nil
}

// Move relocates a batch of messages from one folder to another.
func (c *Client) Move(ctx context.Context, folder model.Folder, messageIDs []string, target model.Folder) error {
	body := struct {
		Folder       string   `json:"folder"`
		MessageIDs   []string `json:"message_ids"`
		TargetFolder string   `json:"target_folder"`
	}{
		Folder:       string(folder),
		MessageIDs:   messageIDs,
		TargetFolder: string(target),
	}

	var resp statusResponse
	if err := c.post(ctx, "/emails/move", body, &resp); err != nil {
		return fmt.Errorf("moving %d message(s) to %s: %w", len(messageIDs), target, err)
	}
	if resp.Status != "success" {
		return fmt.Errorf("moving %d message(s) to %s: %s", len(messageIDs), target, resp.Message)
	}
	return nil
}

// DeletePermanent permanently removes a batch of messages.
func (c *Client) DeletePermanent(ctx context.Context, messageIDs []string) error {
	body := struct {
		MessageIDs []string `json:"messageIds"`
	}{MessageIDs: messageIDs}

	var resp deleteResponse
	if err := c.delete(ctx, "/emails/deletePermanent", body, &resp); err != nil {
		return fmt.Errorf("deleting %d message(s): %w", len(messageIDs), err)
	}
	if !resp.Success {
		return fmt.Errorf("deleting %d message(s): %s", len(messageIDs), resp.Message)
	}
	return nil
}

// DeletePermanentAll permanently empties the deleted folder.
func (c *Client) DeletePermanentAll(ctx context.Context) error {
	var resp deleteResponse
	if err := c.delete(ctx, "/emails/delete-permanent-all", nil, &resp); err != nil {
		return fmt.Errorf("emptying trash: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("emptying trash: %s", resp.Message)
	}
	return nil
}

// Send submits an outgoing message as a multipart form, including new
// file uploads and references to attachments already stored server-side.
func (c *Client) Send(ctx context.Context, msg OutgoingMessage) (string, error) {
	form, contentType, err := buildComposeForm(msg, true)
	if err != nil {
		return "", err
	}

	var resp statusResponse
	if err := c.doMultipart(ctx, "/emails/send", form, contentType, &resp); err != nil {
		return "", fmt.Errorf("sending email: %w", err)
	}
	return resp.Message, nil
}

// SaveDraft stores the message as a draft. Empty fields are omitted from
// the form; a draft may be arbitrarily incomplete.
func (c *Client) SaveDraft(ctx context.Context, msg OutgoingMessage) (string, error) {
	form, contentType, err := buildComposeForm(msg, false)
	if err != nil {
		return "", err
	}

	var resp statusResponse
	if err := c.doMultipart(ctx, "/emails/draft", form, contentType, &resp); err != nil {
		return "", fmt.Errorf("saving draft: %w", err)
	}
	return resp.Message, nil
}

// buildComposeForm assembles the multipart body shared by send and
// save-draft. Send always writes the core fields; draft skips empty ones.
func buildComposeForm(msg OutgoingMessage, includeEmpty bool) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	writeField := func(name, value string) error {
		if value == "" && !includeEmpty {
			return nil
		}
		return w.WriteField(name, value)
	}

	if err := writeField("to", msg.To); err != nil {
		return nil, "", fmt.Errorf("writing form field: %w", err)
	}
	if err := writeField("subject", msg.Subject); err != nil {
		return nil, "", fmt.Errorf("writing form field: %w", err)
	}
	if err := writeField("body", msg.Body); err != nil {
		return nil, "", fmt.Errorf("writing form field: %w", err)
	}

	if msg.DraftID != "" {
		if err := w.WriteField("draft_id", msg.DraftID); err != nil {
			return nil, "", fmt.Errorf("writing form field: %w", err)
		}
	}
	if msg.InReplyTo != "" {
		if err := w.WriteField("message_id", msg.InReplyTo); err != nil {
			return nil, "", fmt.Errorf("writing form field: %w", err)
		}
	}

	if len(msg.StoredAttachments) > 0 {
		refs, err := json.Marshal(msg.StoredAttachments)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling stored attachments: %w", err)
		}
		if err := w.WriteField("stored_attachments", string(refs)); err != nil {
			return nil, "", fmt.Errorf("writing form field: %w", err)
		}
	}

	for _, att := range msg.Attachments {
		part, err := w.CreateFormFile("attachments[]", att.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %s: %w", att.Filename, err)
		}
		if _, err := part.Write(att.Data); err != nil {
			return nil, "", fmt.Errorf("writing form file %s: %w", att.Filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing multipart form: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// doMultipart posts a prebuilt multipart body with the same auth and
// refresh-retry behavior as do.
func (c *Client) doMultipart(ctx context.Context, path string, form []byte, contentType string, result interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	resp, respBody, err := c.send(ctx, http.MethodPost, path, form, contentType, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		token, err = c.refresh(ctx)
		if err != nil {
			return err
		}
		resp, respBody, err = c.send(ctx, http.MethodPost, path, form, contentType, token)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			_ = c.session.Clear()
			return &AuthError{Message: "request rejected after token refresh"}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("POST "+path, resp.StatusCode, respBody)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from POST %s: %w", path, err)
	}
	return nil
}

// attachmentPath builds the download/preview URL for a stored attachment.
func attachmentPath(kind string, uid int, filename string) string {
	return fmt.Sprintf("/emails/attachments/%d/%s/%s", uid, kind, url.PathEscape(filename))
}
