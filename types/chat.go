package types

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Chat is a conversation bound to one document.
type Chat struct {
	ID         string `json:"id" bson:"_id"`
	DocumentID string `json:"document_id" bson:"document_id"`
	UserID     string `json:"user_id" bson:"user_id"`
	Title      string `json:"title" bson:"title"`
	CreatedAt  int64  `json:"created_at" bson:"created_at"`
}

// Message is one persisted turn of a chat.
type Message struct {
	ID         string `json:"id" bson:"_id"`
	ChatID     string `json:"chat_id" bson:"chat_id"`
	DocumentID string `json:"document_id" bson:"document_id"`
	Role       string `json:"role" bson:"role"`
	Content    string `json:"content" bson:"content"`
	CreatedAt  int64  `json:"created_at" bson:"created_at"`
}

// ChatMessage is a prompt part handed to a generation model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Fragment is a piece of a streamed answer. A fragment with Err set is
// always the last one on its channel.
type Fragment struct {
	Text string
	Err  error
}

type AnswerRequest struct {
	DocumentID string `json:"document_id"`
	ChatID     string `json:"chat_id,omitempty"`
	Question   string `json:"question"`
	UserID     string `json:"-"`
}

type AskRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id,omitempty"`
}

type AskResponse struct {
	Question         string `json:"question"`
	Answer           string `json:"answer"`
	DocumentName     string `json:"document_name"`
	DocumentID       string `json:"document_id"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

type CreateChatRequest struct {
	Title string `json:"title"`
}
