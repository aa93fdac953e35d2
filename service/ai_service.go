package service

import (
	"context"

	"github.com/tieubaoca/pdfchat-be/types"
)

// Generator produces answers from a prompt made of chat messages. A leading
// system message carries instructions; the last message is the user turn.
type Generator interface {
	Generate(ctx context.Context, messages []types.ChatMessage) (string, error)
	// Stream returns a channel closed when generation ends. A failure is
	// delivered as a final fragment with Err set.
	Stream(ctx context.Context, messages []types.ChatMessage) (<-chan types.Fragment, error)
}

// sendFragment delivers f unless ctx is done first.
func sendFragment(ctx context.Context, out chan<- types.Fragment, f types.Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
