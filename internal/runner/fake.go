package runner

import (
	"context"
	"strings"
	"sync"
)

// Response is a canned reply for Fake.
type Response struct {
	Result Result
	Err    error
}

// Fake records every command and answers from Responses, keyed by the
// rendered command line ("git status --porcelain"). Unknown commands succeed
// with empty output unless Default is set.
type Fake struct {
	mu        sync.Mutex
	Responses map[string]Response
	Default   *Response
	// Hook, when set, runs before the canned response is returned.
	Hook  func(cmd Command)
	calls []Command
}

// Run implements Runner.
func (f *Fake) Run(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	resp, ok := f.Responses[cmd.String()]
	if !ok && f.Default != nil {
		resp, ok = *f.Default, true
	}
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		hook(cmd)
	}
	if !ok {
		return Result{}, nil
	}
	return resp.Result, resp.Err
}

// Calls returns the commands seen so far.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// Lines returns Calls rendered as command lines.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Ran reports whether a command line starting with prefix was run.
func (f *Fake) Ran(prefix string) bool {
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
