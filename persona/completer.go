package persona

import (
	"context"
	"errors"
)

// ErrRemoteUnavailable means the remote completion path cannot serve this request.
// Generators recover from it locally; it never reaches the end user.
var ErrRemoteUnavailable = errors.New("persona: remote completion unavailable")

// ErrInsufficientHistory is returned by callers that enforce MinTrainingMessages.
var ErrInsufficientHistory = errors.New("persona: not enough messages to train on")

// Turn is one role-tagged transcript entry sent to a remote model.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest is everything a remote model needs to answer as the profiled person.
type CompletionRequest struct {
	System     string
	Transcript []Turn
	Message    string
}

// Completer produces a reply remotely. Any error sends the generator to its local path.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// NullCompleter is the offline Completer: it always reports ErrRemoteUnavailable.
type NullCompleter struct{}

func (NullCompleter) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrRemoteUnavailable
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
