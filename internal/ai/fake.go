package ai

import (
	"context"
	"sync"
)

// FakeCompleter is a scripted Completer for tests and offline runs.
type FakeCompleter struct {
	mu      sync.Mutex
	Respond func(system, user string) (string, error)
	calls   []FakeCall
}

// FakeCall records one CompleteJSON invocation.
type FakeCall struct {
	System string
	User   string
}

var _ Completer = (*FakeCompleter)(nil)

func (f *FakeCompleter) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{System: system, User: user})
	respond := f.Respond
	f.mu.Unlock()

	if respond == nil {
		return "", ErrEmptyResponse
	}
	return respond(system, user)
}

// Calls returns a copy of the recorded calls.
func (f *FakeCompleter) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
