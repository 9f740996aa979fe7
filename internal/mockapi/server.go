// Package mockapi is an in-memory mail API server implementing the wire
// contract the gateway client consumes. It exists for local development
// and end-to-end testing without a real mail backend.
package mockapi

import (
	"encoding/json"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nhle/webmail/internal/model"
)

// tokenTTL mirrors the production access-token lifetime.
const tokenTTL = time.Hour

// Server is an in-memory mail backend.
type Server struct {
	mu sync.Mutex

	folders     map[string][]model.Message
	attachments map[string][]byte

	accessTokens  map[string]time.Time
	refreshTokens map[string]bool

	nextUID int
}

// New returns a server seeded with a small demo mailbox.
func New() *Server {
	s := &Server{
		folders:       make(map[string][]model.Message),
		attachments:   make(map[string][]byte),
		accessTokens:  make(map[string]time.Time),
		refreshTokens: make(map[string]bool),
		nextUID:       1,
	}
	s.seed()
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/login", s.handleLogin)
	r.POST("/refresh", s.handleRefresh)
	r.POST("/logout", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})

	emails := r.Group("/emails", s.requireAuth)
	{
		emails.GET("/all", s.handleFetchAll)
		emails.POST("/mark-as-read", s.handleMark(func(m *model.Message) { m.Seen = true }))
		emails.POST("/mark-as-unread", s.handleMark(func(m *model.Message) { m.Seen = false }))
		emails.POST("/flag", s.handleMark(func(m *model.Message) { m.Flagged = true }))
		emails.POST("/unflag", s.handleMark(func(m *model.Message) { m.Flagged = false }))
		emails.POST("/move", s.handleMove)
		emails.DELETE("/deletePermanent", s.handleDeletePermanent)
		emails.DELETE("/delete-permanent-all", s.handleDeleteAll)
		emails.POST("/send", s.handleCompose(true))
		emails.POST("/draft", s.handleCompose(false))
		emails.GET("/attachments/:uid/download/:filename", s.handleAttachment)
		emails.GET("/attachments/:uid/preview/:filename", s.handleAttachment)
	}

	return r
}

// issueTokens mints a fresh access/refresh pair.
func (s *Server) issueTokens() (string, string) {
	access := uuid.New().String()
	refresh := uuid.New().String()
	s.accessTokens[access] = time.Now()
	s.refreshTokens[refresh] = true
	return access, refresh
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	s.mu.Lock()
	access, refresh := s.issueTokens()
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{"name": strings.Split(req.Email, "@")[0], "email": req.Email},
		"tokens": gin.H{
			"access_token":  access,
			"refresh_token": refresh,
		},
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	token := bearerToken(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.refreshTokens[token] {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid refresh token"})
		return
	}
	delete(s.refreshTokens, token)
	access, refresh := s.issueTokens()

	c.JSON(http.StatusOK, gin.H{
		"tokens": gin.H{
			"access_token":  access,
			"refresh_token": refresh,
		},
	})
}

// requireAuth rejects requests without a live access token.
func (s *Server) requireAuth(c *gin.Context) {
	token := bearerToken(c)

	s.mu.Lock()
	issued, ok := s.accessTokens[token]
	if ok && time.Since(issued) > tokenTTL {
		delete(s.accessTokens, token)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}
	c.Next()
}

func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

func (s *Server) handleFetchAll(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   s.folders,
	})
}

// handleMark builds a handler applying fn to the addressed message.
func (s *Server) handleMark(fn func(*model.Message)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Folder    string `json:"folder"`
			MessageID string `json:"message_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "folder and message_id are required"})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		msgs := s.folders[strings.ToLower(req.Folder)]
		for i := range msgs {
			if msgs[i].MessageID == req.MessageID {
				fn(&msgs[i])
				c.JSON(http.StatusOK, gin.H{"status": "success"})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "message not found"})
	}
}

func (s *Server) handleMove(c *gin.Context) {
	var req struct {
		Folder       string   `json:"folder"`
		MessageIDs   []string `json:"message_ids"`
		TargetFolder string   `json:"target_folder"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.MessageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "folder, message_ids and target_folder are required"})
		return
	}

	source := strings.ToLower(req.Folder)
	target := strings.ToLower(req.TargetFolder)
	wanted := make(map[string]bool, len(req.MessageIDs))
	for _, id := range req.MessageIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []model.Message
	moved := 0
	for _, m := range s.folders[source] {
		if wanted[m.MessageID] {
			m.Folder = model.Folder(target)
			s.folders[target] = append(s.folders[target], m)
			moved++
			continue
		}
		kept = append(kept, m)
	}
	s.folders[source] = kept

	if moved == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "no matching messages in folder"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) handleDeletePermanent(c *gin.Context) {
	var req struct {
		MessageIDs []string `json:"messageIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.MessageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "messageIds is required"})
		return
	}

	wanted := make(map[string]bool, len(req.MessageIDs))
	for _, id := range req.MessageIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for folder, msgs := range s.folders {
		var kept []model.Message
		for _, m := range msgs {
			if !wanted[m.MessageID] {
				kept = append(kept, m)
			}
		}
		s.folders[folder] = kept
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDeleteAll(c *gin.Context) {
	s.mu.Lock()
	s.folders[string(model.FolderDeleted)] = nil
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCompose accepts the multipart send/draft form. Sent messages land
// in the sent folder; drafts land in the draft folder, replacing any
// draft with the same draft_id.
func (s *Server) handleCompose(send bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "expected multipart form"})
			return
		}

		get := func(key string) string {
			if vals := form.Value[key]; len(vals) > 0 {
				return vals[0]
			}
			return ""
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		uid := s.nextUID
		s.nextUID++

		msg := model.Message{
			UID:       uid,
			MessageID: uuid.New().String(),
			Sender:    "me",
			Subject:   get("subject"),
			Timestamp: time.Now().Format("2006-01-02 15:04"),
			Seen:      true,
			Body:      model.Body{Text: get("body")},
		}
		if to := get("to"); to != "" {
			msg.Recipients = []model.Recipient{{Email: to}}
		}
		if stored := get("stored_attachments"); stored != "" {
			var names []string
			if json.Unmarshal([]byte(stored), &names) == nil {
				for _, name := range names {
					msg.Attachments = append(msg.Attachments, model.Attachment{Filename: name})
				}
			}
		}
		for _, fh := range form.File["attachments[]"] {
			f, err := fh.Open()
			if err != nil {
				continue
			}
			data := make([]byte, fh.Size)
			_, _ = f.Read(data)
			f.Close()
			s.attachments[attachmentKey(uid, fh.Filename)] = data
			msg.Attachments = append(msg.Attachments, model.Attachment{
				Filename: fh.Filename,
				Size:     fh.Size,
			})
		}

		if send {
			msg.Folder = model.FolderSent
			if draftID := get("draft_id"); draftID != "" {
				s.removeDraft(draftID)
			}
			s.folders[string(model.FolderSent)] = append(s.folders[string(model.FolderSent)], msg)
			c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Email sent"})
			return
		}

		msg.Folder = model.FolderDraft
		msg.DraftID = get("draft_id")
		if msg.DraftID == "" {
			msg.DraftID = uuid.New().String()
		} else {
			s.removeDraft(msg.DraftID)
		}
		s.folders[string(model.FolderDraft)] = append(s.folders[string(model.FolderDraft)], msg)
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Draft saved"})
	}
}

// removeDraft drops the draft with the given ID. Callers must hold mu.
func (s *Server) removeDraft(draftID string) {
	var kept []model.Message
	for _, m := range s.folders[string(model.FolderDraft)] {
		if m.DraftID != draftID {
			kept = append(kept, m)
		}
	}
	s.folders[string(model.FolderDraft)] = kept
}

func (s *Server) handleAttachment(c *gin.Context) {
	uid, err := strconv.Atoi(c.Param("uid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid uid"})
		return
	}
	filename := c.Param("filename")

	s.mu.Lock()
	data, ok := s.attachments[attachmentKey(uid, filename)]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "attachment not found"})
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}

func attachmentKey(uid int, filename string) string {
	return strconv.Itoa(uid) + "/" + filename
}
