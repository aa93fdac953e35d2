package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/middleware"
	"github.com/tieubaoca/pdfchat-be/types"
)

// StreamErrorTrailer carries the error code when a streamed answer fails
// after the first fragment was written.
const StreamErrorTrailer = "X-Stream-Error"

type Answerer interface {
	Answer(ctx context.Context, req types.AnswerRequest) (<-chan types.Fragment, error)
	Ask(ctx context.Context, userID string, req types.AskRequest) (*types.AskResponse, error)
}

type ChatHandler struct {
	chat Answerer
	log  zerolog.Logger
}

func NewChatHandler(chat Answerer, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chat: chat,
		log:  log.With().Str("component", "chat_handler").Logger(),
	}
}

// HandleChat streams the answer as plain text.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req types.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	req.UserID = middleware.UserID(c)

	fragments, err := h.chat.Answer(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	started := false
	start := func() {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Trailer", StreamErrorTrailer)
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		started = true
	}
	for f := range fragments {
		if f.Err != nil {
			if !started {
				writeError(c, f.Err)
				continue
			}
			h.log.Warn().Err(f.Err).Str("document_id", req.DocumentID).Msg("answer stream interrupted")
			c.Writer.Header().Set(StreamErrorTrailer, errorCode(f.Err))
			continue
		}
		if !started {
			start()
		}
		if _, err := c.Writer.WriteString(f.Text); err != nil {
			h.log.Debug().Err(err).Msg("client went away")
			continue
		}
		c.Writer.Flush()
	}
	if !started && !c.IsAborted() {
		start()
	}
}

// HandleQuery answers once and returns JSON.
func (h *ChatHandler) HandleQuery(c *gin.Context) {
	var req types.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	resp, err := h.chat.Ask(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}
