package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Response is one scripted answer of a Fake.
type Response struct {
	Text string
	Err  error
}

// Reply scripts a JSON answer. v is marshalled unless it is already a string.
func Reply(v any) Response {
	if s, ok := v.(string); ok {
		return Response{Text: s}
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("completion: marshal scripted reply: %v", err))
	}
	return Response{Text: string(b)}
}

// Fail scripts an error.
func Fail(err error) Response { return Response{Err: err} }

// Fake is a deterministic Model for tests and offline runs. Responses are
// scripted per call name and consumed in order; the last one repeats.
type Fake struct {
	mu      sync.Mutex
	scripts map[string][]Response
	calls   []Request
}

func NewFake() *Fake {
	return &Fake{scripts: make(map[string][]Response)}
}

// Script queues responses for call name and returns f for chaining.
func (f *Fake) Script(name string, responses ...Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[name] = append(f.scripts[name], responses...)
	return f
}

func (f *Fake) Generate(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	queue := f.scripts[req.Name]
	var resp Response
	switch len(queue) {
	case 0:
		f.mu.Unlock()
		return "", &TransportError{Call: req.Name, Err: fmt.Errorf("fake: no response scripted for %q", req.Name)}
	case 1:
		resp = queue[0]
	default:
		resp = queue[0]
		f.scripts[req.Name] = queue[1:]
	}
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return resp.Text, resp.Err
}

// Calls returns a copy of every request received so far.
func (f *Fake) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

// CallCount returns how many requests named name were received.
func (f *Fake) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}
