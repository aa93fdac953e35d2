package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/middleware"
	"github.com/tieubaoca/pdfchat-be/storage"
	"github.com/tieubaoca/pdfchat-be/types"
	"github.com/tieubaoca/pdfchat-be/utils"
)

type Ingester interface {
	Ingest(ctx context.Context, req types.IngestRequest, progress chan<- types.ProcessingDocumentStatus) (*types.Document, error)
}

type DocumentManager interface {
	List(ctx context.Context, ownerID string, page, limit int) (*types.DocumentList, error)
	Get(ctx context.Context, ownerID, id string) (*types.Document, error)
	Delete(ctx context.Context, ownerID, id string) error
	CreateChat(ctx context.Context, ownerID, documentID, title string) (*types.Chat, error)
	ListChats(ctx context.Context, ownerID, documentID string) ([]types.Chat, error)
	ListMessages(ctx context.Context, ownerID, chatID string) ([]types.Message, error)
}

type DocumentHandler struct {
	store          storage.ObjectStore
	ingester       Ingester
	documents      DocumentManager
	maxUploadBytes int64
	log            zerolog.Logger
}

func NewDocumentHandler(store storage.ObjectStore, ingester Ingester, documents DocumentManager, maxUploadBytes int64, log zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:          store,
		ingester:       ingester,
		documents:      documents,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "document_handler").Logger(),
	}
}

// Upload stores a PDF and ingests it. Clients asking for text/event-stream
// get progress events followed by a done or error event.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "Invalid file")
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" {
		writeError(c, types.NewError(types.KindInvalidInput, types.CodeUnsupportedFile, "only PDF files are supported"))
		return
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		badRequest(c, "File too large")
		return
	}

	locator, err := h.store.Put(c.Request.Context(), header.Filename, file, header.Size)
	if err != nil {
		writeError(c, types.NewError(types.KindPersistence, types.CodeStoreFailed, "failed to store upload").WithCause(err))
		return
	}
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = utils.FileNameWithoutExt(header.Filename)
	}
	req := types.IngestRequest{Locator: locator, Name: name, OwnerID: middleware.UserID(c)}
	h.log.Info().Str("locator", locator).Str("owner_id", req.OwnerID).Msg("upload stored")

	if !strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		doc, err := h.ingester.Ingest(c.Request.Context(), req, nil)
		if err != nil {
			writeError(c, err)
			return
		}
		respond(c, http.StatusCreated, doc)
		return
	}

	type result struct {
		doc *types.Document
		err error
	}
	ctx := c.Request.Context()
	progress := make(chan types.ProcessingDocumentStatus)
	done := make(chan result, 1)
	go func() {
		doc, err := h.ingester.Ingest(ctx, req, progress)
		done <- result{doc: doc, err: err}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	for {
		select {
		case <-ctx.Done():
			return
		case status := <-progress:
			c.SSEvent("progress", status)
			c.Writer.Flush()
		case res := <-done:
			if res.err != nil {
				c.SSEvent("error", types.DataResponse{Status: false, Message: publicMessage(res.err)})
			} else {
				c.SSEvent("done", types.DataResponse{Status: true, Data: res.doc})
			}
			c.Writer.Flush()
			return
		}
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.documents.List(c.Request.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Message: "Document deleted"})
}

func (h *DocumentHandler) CreateChat(c *gin.Context) {
	var req types.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}
	chat, err := h.documents.CreateChat(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, chat)
}

func (h *DocumentHandler) ListChats(c *gin.Context) {
	chats, err := h.documents.ListChats(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, chats)
}

func (h *DocumentHandler) ListMessages(c *gin.Context) {
	messages, err := h.documents.ListMessages(c.Request.Context(), middleware.UserID(c), c.Param("chat_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, messages)
}

func publicMessage(err error) string {
	if e, ok := types.AsError(err); ok {
		return e.Message
	}
	return "internal server error"
}
