package api

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"warehousebot/internal/flow"
	"warehousebot/internal/staging"
	"warehousebot/internal/worker"
)

// Handler wires HTTP routes to the per-user worker mailboxes. The
// messaging gateway delivers one user turn per request and relays the
// replies back to the chat.
type Handler struct {
	workers *worker.Manager
	files   *staging.Area
	started time.Time
}

func NewHandler(workers *worker.Manager, files *staging.Area) *Handler {
	return &Handler{workers: workers, files: files, started: time.Now()}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/turns", h.textTurn)
	api.POST("/turns/upload", h.uploadTurn)
	api.DELETE("/sessions/:user_id", h.resetSession)
	api.GET("/status", h.status)
}

type turnRequest struct {
	UserID int64  `json:"user_id"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
}

// textTurn handles command and plain-text turns.
func (h *Handler) textTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.UserID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	kind := flow.KindText
	switch req.Kind {
	case "", "text":
		if strings.HasPrefix(strings.TrimSpace(req.Text), "/") {
			kind = flow.KindCommand
		}
	case "command":
		kind = flow.KindCommand
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be text or command"})
		return
	}

	replies := h.workers.Submit(c.Request.Context(), req.UserID, flow.Input{Kind: kind, Text: req.Text})
	if replies == nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "turn not processed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

const maxUploadBytes = 20 << 20 // 20 MB

var allowedContentTypes = []string{
	"image/",
	"application/pdf",
	"application/zip", // xlsx detects as zip
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/octet-stream", // legacy xls
}

func isAllowedContentType(ct string) bool {
	for _, allowed := range allowedContentTypes {
		if strings.HasPrefix(ct, allowed) {
			return true
		}
	}
	return false
}

// uploadTurn handles photo and document turns: the attachment is staged
// locally, then the turn is submitted with the staged path.
func (h *Handler) uploadTurn(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	userID, err := strconv.ParseInt(c.PostForm("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	kind := flow.KindPhoto
	switch c.PostForm("kind") {
	case "", "photo":
	case "document":
		kind = flow.KindDocument
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be photo or document"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	_ = f.Close()
	contentType := http.DetectContentType(buf[:n])
	if !isAllowedContentType(contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}
	if kind == flow.KindPhoto && !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo turns require an image"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	fileName := filepath.Base(file.Filename)
	staged, err := h.files.Stage(string(kind), fileName, src)
	_ = src.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store file failed"})
		return
	}

	replies := h.workers.Submit(c.Request.Context(), userID, flow.Input{
		Kind:     kind,
		Text:     c.PostForm("caption"),
		FilePath: staged,
		FileName: fileName,
	})
	if replies == nil {
		h.files.Remove(staged)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "turn not processed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

// resetSession tears down one user's mailbox and draft. The gateway calls
// this when a chat is closed or blocked.
func (h *Handler) resetSession(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	h.workers.Reset(userID)
	c.Status(http.StatusNoContent)
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"active_sessions": h.workers.ActiveSessions(),
		"uptime":          time.Since(h.started).Round(time.Second).String(),
	})
}
