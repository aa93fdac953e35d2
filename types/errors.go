package types

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindEmbedding     ErrorKind = "embedding"
	KindIngestion     ErrorKind = "ingestion"
	KindRetrieval     ErrorKind = "retrieval"
	KindGeneration    ErrorKind = "generation"
	KindNotFound      ErrorKind = "not_found"
	KindInvalidInput  ErrorKind = "invalid_input"
	KindPersistence   ErrorKind = "persistence"
)

const (
	CodeMissingCredentials   = "missing_credentials"
	CodeInvalidConfig        = "invalid_config"
	CodeSourceFetchFailed    = "source_fetch_failed"
	CodeExtractionFailed     = "extraction_failed"
	CodeEmbeddingFailed      = "embedding_failed"
	CodeIndexWriteFailed     = "index_write_failed"
	CodeIndexQueryFailed     = "index_query_failed"
	CodePersistFailed        = "persist_failed"
	CodeServiceUnavailable   = "service_unavailable"
	CodeStreamInterrupted    = "stream_interrupted"
	CodeDocumentNotFound     = "document_not_found"
	CodeConversationNotFound = "conversation_not_found"
	CodeEmptyQuestion        = "empty_question"
	CodeUnsupportedFile      = "unsupported_file"
	CodeStoreFailed          = "store_failed"
)

// Error is the typed failure surfaced by the pipeline components.
type Error struct {
	Kind       ErrorKind
	Code       string
	Stage      string
	Namespace  string
	DocumentID string
	Message    string
	Cause      error
}

func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Stage != "" {
		fmt.Fprintf(&b, " [%s]", e.Stage)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.DocumentID != "" {
		fmt.Fprintf(&b, " (document %s)", e.DocumentID)
	}
	if e.Namespace != "" {
		fmt.Fprintf(&b, " (namespace %s)", e.Namespace)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

func (e *Error) WithNamespace(namespace string) *Error {
	e.Namespace = namespace
	return e
}

func (e *Error) WithDocument(documentID string) *Error {
	e.DocumentID = documentID
	return e
}

// Retryable reports whether the caller may try the same operation again.
// Nothing in the service retries on its own.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindEmbedding, KindRetrieval, KindGeneration:
		return true
	}
	return false
}

// AsError returns the outermost *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// HasCode reports whether any *Error in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
