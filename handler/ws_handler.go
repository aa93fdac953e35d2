package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/middleware"
	"github.com/tieubaoca/pdfchat-be/types"
)

const (
	wsReadLimit = 512 * 1024
	wsPongWait  = 60 * time.Second
	wsWriteWait = 10 * time.Second
)

// WSHandler serves chat over a websocket. Requests on one socket are
// answered in order; closing the socket cancels the answer in flight.
type WSHandler struct {
	chat     Answerer
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(chat Answerer, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log.With().Str("component", "ws_handler").Logger(),
	}
}

func (h *WSHandler) HandleChat(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()
	userID := middleware.UserID(c)

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	requests := make(chan types.WebsocketRequest)
	go func() {
		defer cancel()
		defer close(requests)
		for {
			var req types.WebsocketRequest
			if err := conn.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug().Err(err).Msg("websocket read error")
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(wsPongWait))
			select {
			case requests <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	for req := range requests {
		var err error
		switch req.Type {
		case types.TypeWebsocketPing:
			err = h.write(conn, types.WebSocketResponse{Type: types.TypeWebsocketPong})
		case types.TypeWebsocketChat:
			payload := req.Payload
			payload.UserID = userID
			err = h.answer(ctx, conn, payload)
		default:
			err = h.write(conn, types.WebSocketResponse{
				Type:    types.TypeWebsocketError,
				Payload: types.WebSocketErrorPayload{Code: "invalid_type", Message: "unknown message type " + req.Type},
			})
		}
		if err != nil {
			h.log.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
}

func (h *WSHandler) answer(ctx context.Context, conn *websocket.Conn, req types.AnswerRequest) error {
	fragments, err := h.chat.Answer(ctx, req)
	if err != nil {
		return h.writeErr(conn, err)
	}
	var answer strings.Builder
	for f := range fragments {
		if f.Err != nil {
			return h.writeErr(conn, f.Err)
		}
		answer.WriteString(f.Text)
		if err := h.write(conn, types.WebSocketResponse{
			Type:    types.TypeWebsocketChunk,
			Payload: types.WebSocketChunkPayload{Text: f.Text},
		}); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return h.write(conn, types.WebSocketResponse{
		Type:    types.TypeWebsocketDone,
		Payload: types.WebSocketDonePayload{Message: answer.String()},
	})
}

func (h *WSHandler) writeErr(conn *websocket.Conn, err error) error {
	h.log.Warn().Err(err).Msg("websocket answer failed")
	payload := types.WebSocketErrorPayload{Code: errorCode(err), Message: publicMessage(err)}
	if e, ok := types.AsError(err); ok {
		payload.Retryable = e.Retryable()
	}
	return h.write(conn, types.WebSocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: payload,
	})
}

func (h *WSHandler) write(conn *websocket.Conn, msg types.WebSocketResponse) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}
