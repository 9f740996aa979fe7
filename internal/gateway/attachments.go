package gateway

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// previewableExts is the fixed allow-list of file extensions the preview
// endpoint can render inline. Anything else falls back to download.
var previewableExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".mov":  true,
	".mp4":  true,
}

// IsPreviewable reports whether the file's extension is inside the
// preview allow-list.
func IsPreviewable(filename string) bool {
	return previewableExts[strings.ToLower(filepath.Ext(filename))]
}

// DownloadAttachment fetches the raw content of a stored attachment by
// the owning message's UID and the attachment filename.
func (c *Client) DownloadAttachment(ctx context.Context, uid int, filename string) (*AttachmentData, error) {
	data, mimeType, err := c.fetchBinary(ctx, attachmentPath("download", uid, filename))
	if err != nil {
		return nil, fmt.Errorf("downloading attachment %s: %w", filename, err)
	}

	return &AttachmentData{
		Filename: filename,
		MimeType: mimeType,
		Data:     data,
	}, nil
}

// PreviewAttachment fetches attachment content for inline display. Files
// outside the preview allow-list are answered locally with a
// fallback-to-download signal and never hit the network.
func (c *Client) PreviewAttachment(ctx context.Context, uid int, filename string) (*Preview, error) {
	if !IsPreviewable(filename) {
		return &Preview{Filename: filename, FallbackDownload: true}, nil
	}

	data, mimeType, err := c.fetchBinary(ctx, attachmentPath("preview", uid, filename))
	if err != nil {
		return nil, fmt.Errorf("previewing attachment %s: %w", filename, err)
	}

	return &Preview{
		Filename: filename,
		MimeType: mimeType,
		Data:     data,
	}, nil
}

// fetchBinary performs an authenticated GET for a binary body, with the
// same single refresh-and-retry as the JSON path.
func (c *Client) fetchBinary(ctx context.Context, path string) ([]byte, string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, "", err
	}

	resp, body, err := c.send(ctx, http.MethodGet, path, nil, "", token)
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		token, err = c.refresh(ctx)
		if err != nil {
			return nil, "", err
		}
		resp, body, err = c.send(ctx, http.MethodGet, path, nil, "", token)
		if err != nil {
			return nil, "", err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			_ = c.session.Clear()
			return nil, "", &AuthError{Message: "request rejected after token refresh"}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", statusError("GET "+path, resp.StatusCode, body)
	}

	return body, resp.Header.Get("Content-Type"), nil
}
