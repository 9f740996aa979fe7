package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/gateway"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/session"
)

// newTestClient wires a client against the given handler with a session
// that already holds a valid token pair.
func newTestClient(t *testing.T, handler http.Handler) (*gateway.Client, *session.MemoryStore) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := session.NewMemoryStore()
	require.NoError(t, sess.SetTokens("valid-token", "refresh-token"))

	client := gateway.NewClient(srv.URL, sess, 5*time.Second, gateway.Capabilities{MarkUnread: true})
	return client, sess
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchAllGroupsByFolder(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails/all", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"data": map[string][]model.Message{
				"inbox": {{UID: 1, MessageID: "m1", Subject: "hello"}},
				"sent":  {{UID: 2, MessageID: "m2", Subject: "re: hello"}},
			},
		})
	})

	client, _ := newTestClient(t, handler)

	folders, err := client.FetchAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "Bearer valid-token", gotAuth)
	assert.Len(t, folders["inbox"], 1)
	assert.Len(t, folders["sent"], 1)
	assert.Equal(t, "m1", folders["inbox"][0].MessageID)
}

func TestFetchAllForceRefreshParam(t *testing.T) {
	var gotRefresh string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRefresh = r.URL.Query().Get("refresh")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"data":   map[string][]model.Message{},
		})
	})

	client, _ := newTestClient(t, handler)

	_, err := client.FetchAll(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "true", gotRefresh)
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	var refreshCalls, markCalls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			require.Equal(t, "Bearer refresh-token", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"tokens": map[string]string{
					"access_token":  "fresh-token",
					"refresh_token": "fresh-refresh",
				},
			})
		case "/emails/mark-as-read":
			atomic.AddInt32(&markCalls, 1)
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	client, sess := newTestClient(t, handler)

	err := client.MarkRead(context.Background(), model.FolderInbox, "m1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&markCalls), "original call plus one retry")

	access, ok := sess.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "fresh-token", access, "refreshed token must be stored")
}

func TestSecondUnauthorizedClearsSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"tokens": map[string]string{
					"access_token":  "still-bad",
					"refresh_token": "refresh-token",
				},
			})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
		}
	})

	client, sess := newTestClient(t, handler)

	err := client.MarkRead(context.Background(), model.FolderInbox, "m1")
	require.Error(t, err)
	assert.True(t, gateway.IsAuthError(err))

	_, ok := sess.AccessToken()
	assert.False(t, ok, "session must be cleared after the retry is rejected")
}

func TestRefreshFailureClearsSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh":
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh_token_expired"})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
		}
	})

	client, sess := newTestClient(t, handler)

	err := client.MarkRead(context.Background(), model.FolderInbox, "m1")
	require.Error(t, err)
	assert.True(t, gateway.IsAuthError(err))

	_, ok := sess.RefreshToken()
	assert.False(t, ok)
}

func TestRefreshIsSingleFlight(t *testing.T) {
	var refreshCalls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			time.Sleep(200 * time.Millisecond) // hold concurrent callers on the same flight
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"tokens": map[string]string{
					"access_token":  "fresh-token",
					"refresh_token": "fresh-refresh",
				},
			})
		case "/emails/flag":
			writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	client, sess := newTestClient(t, handler)

	// Expire the stored access token so every caller needs a refresh.
	past := time.Now().Add(-2 * session.TokenTTL)
	sess.Now = func() time.Time { return past }
	require.NoError(t, sess.SetTokens("stale", "refresh-token"))
	sess.Now = time.Now

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Flag(context.Background(), model.FolderInbox, "m1")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls),
		"concurrent expired-token requests must share one refresh")
}

func TestMarkUnreadCapabilityFlag(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	sess := session.NewMemoryStore()
	require.NoError(t, sess.SetTokens("valid-token", "refresh-token"))
	client := gateway.NewClient(srv.URL, sess, 5*time.Second, gateway.Capabilities{MarkUnread: false})

	err := client.MarkUnread(context.Background(), model.FolderInbox, "m1")
	assert.ErrorIs(t, err, gateway.ErrMarkUnreadUnsupported)
	assert.Zero(t, atomic.LoadInt32(&calls), "unsupported operation must not hit the network")
}

func TestMoveSendsBatchedBody(t *testing.T) {
	var got struct {
		Folder       string   `json:"folder"`
		MessageIDs   []string `json:"message_ids"`
		TargetFolder string   `json:"target_folder"`
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails/move", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})

	client, _ := newTestClient(t, handler)

	err := client.Move(context.Background(), model.FolderInbox, []string{"m1", "m2"}, model.FolderArchive)
	require.NoError(t, err)
	assert.Equal(t, "inbox", got.Folder)
	assert.Equal(t, []string{"m1", "m2"}, got.MessageIDs)
	assert.Equal(t, "archive", got.TargetFolder)
}

func TestDeletePermanentReportsServerFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "mailbox is locked",
		})
	})

	client, _ := newTestClient(t, handler)

	err := client.DeletePermanent(context.Background(), []string{"m1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox is locked")
}

func TestStatusErrorClassification(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})

	client, _ := newTestClient(t, handler)

	err := client.Flag(context.Background(), model.FolderInbox, "m1")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, gateway.StatusCode(err))
}

func TestPreviewFallbackSkipsNetwork(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	client, _ := newTestClient(t, handler)

	preview, err := client.PreviewAttachment(context.Background(), 10, "report.xlsx")
	require.NoError(t, err)
	assert.True(t, preview.FallbackDownload)
	assert.Zero(t, atomic.LoadInt32(&calls), "non-previewable file must be answered locally")
}

func TestPreviewAllowedExtension(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails/attachments/10/preview/photo.png", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	})

	client, _ := newTestClient(t, handler)

	preview, err := client.PreviewAttachment(context.Background(), 10, "photo.png")
	require.NoError(t, err)
	assert.False(t, preview.FallbackDownload)
	assert.Equal(t, "image/png", preview.MimeType)
	assert.Equal(t, []byte("png-bytes"), preview.Data)
}

func TestSendBuildsMultipartForm(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails/send", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "you@example.com", r.FormValue("to"))
		assert.Equal(t, "hi", r.FormValue("subject"))
		assert.Equal(t, "<p>hello</p>", r.FormValue("body"))
		assert.Equal(t, "draft-7", r.FormValue("draft_id"))
		assert.Equal(t, `["old.pdf"]`, r.FormValue("stored_attachments"))

		files := r.MultipartForm.File["attachments[]"]
		require.Len(t, files, 1)
		assert.Equal(t, "new.txt", files[0].Filename)

		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "sent"})
	})

	client, _ := newTestClient(t, handler)

	msg, err := client.Send(context.Background(), gateway.OutgoingMessage{
		To:                "you@example.com",
		Subject:           "hi",
		Body:              "<p>hello</p>",
		DraftID:           "draft-7",
		StoredAttachments: []string{"old.pdf"},
		Attachments: []gateway.FileAttachment{
			{Filename: "new.txt", Data: []byte("text")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sent", msg)
}

func TestLoginStoresSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"), "login must not carry a bearer token")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"user": map[string]string{"name": "Me", "email": "me@example.com"},
			"tokens": map[string]string{
				"access_token":  "issued",
				"refresh_token": "issued-refresh",
			},
		})
	})

	srv := httptest.NewServer(handler)
	defer srv.Close()

	sess := session.NewMemoryStore()
	client := gateway.NewClient(srv.URL, sess, 5*time.Second, gateway.Capabilities{MarkUnread: true})

	user, err := client.Login(context.Background(), "me@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", user.Email)

	access, ok := sess.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "issued", access)
	assert.Equal(t, "me@example.com", sess.User())
}
