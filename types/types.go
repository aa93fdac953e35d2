package types

const (
	TypeWebsocketPing  = "ping"
	TypeWebsocketPong  = "pong"
	TypeWebsocketChat  = "chat"
	TypeWebsocketChunk = "chunk"
	TypeWebsocketDone  = "done"
	TypeWebsocketError = "error"
)

type WebsocketRequest struct {
	Type    string        `json:"type"`
	Payload AnswerRequest `json:"payload"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type WebSocketChunkPayload struct {
	Text string `json:"text"`
}

type WebSocketDonePayload struct {
	Message string `json:"message"`
}

type WebSocketErrorPayload struct {
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
