package capture

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/model"
)

// State is the lifecycle position of a single exchange.
type State int32

const (
	StatePending State = iota
	StateBodyCaptured
	StateComplete
	// StateAbandoned is terminal: the handler chain never finished (panic), nothing is persisted.
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateBodyCaptured:
		return "BODY_CAPTURED"
	case StateComplete:
		return "COMPLETE"
	case StateAbandoned:
		return "ABANDONED"
	default:
		return "UNKNOWN"
	}
}

var ErrAbandoned = errors.New("exchange abandoned before completion")

// Result is frozen the moment the exchange completes.
type Result struct {
	Status     int
	Body       []byte
	Truncated  bool
	Elapsed    time.Duration
	FinishedAt time.Time
	// HandlerError / HandlerErrors come from errors the handlers attached to the gin context.
	HandlerError  string
	HandlerErrors string
	// UserID is the identity an upstream auth layer left on the request, if any.
	UserID string
}

// Exchange tracks one request/response cycle from interceptor install to completion.
type Exchange struct {
	ID      string
	Start   time.Time
	Request model.RequestContext

	mu        sync.Mutex
	state     State
	body      bytes.Buffer
	maxBody   int
	truncated bool
	custom    *model.PartialRecord
	result    Result

	done     chan struct{}
	doneOnce sync.Once
}

// NewExchange starts an exchange in PENDING. maxBody <= 0 keeps the whole response body.
func NewExchange(id string, start time.Time, req model.RequestContext, maxBody int) *Exchange {
	return &Exchange{
		ID:      id,
		Start:   start,
		Request: req,
		maxBody: maxBody,
		done:    make(chan struct{}),
	}
}

func (e *Exchange) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// recordBody stores a copy of what the handler sent. It never touches the bytes on their way to the client.
func (e *Exchange) recordBody(p []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state >= StateComplete {
		return
	}
	e.state = StateBodyCaptured
	if e.maxBody > 0 {
		room := e.maxBody - e.body.Len()
		if room <= 0 {
			e.truncated = e.truncated || len(p) > 0
			return
		}
		if len(p) > room {
			p = p[:room]
			e.truncated = true
		}
	}
	e.body.Write(p)
}

// Write records p as response body. It lets anything holding the exchange act as the
// response sink, not only the gin writer.
func (e *Exchange) Write(p []byte) (int, error) {
	e.recordBody(p)
	return len(p), nil
}

// Attach merges application supplied fields into the eventual record.
// Later calls win for scalar fields; metadata keys are merged.
func (e *Exchange) Attach(p model.PartialRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.custom == nil {
		cp := p
		cp.Metadata = copyMap(p.Metadata)
		e.custom = &cp
		return
	}
	cur := e.custom
	meta := copyMap(cur.Metadata)
	for k, v := range p.Metadata {
		meta[k] = v
	}
	merged := p
	merged.Metadata = meta
	if merged.UserID == "" {
		merged.UserID = cur.UserID
	}
	if merged.APIMethod == "" {
		merged.APIMethod = cur.APIMethod
	}
	if merged.Headers == nil {
		merged.Headers = cur.Headers
	}
	if merged.IP == "" {
		merged.IP = cur.IP
	}
	if merged.UserAgent == "" {
		merged.UserAgent = cur.UserAgent
	}
	if merged.ResponseMessage == "" {
		merged.ResponseMessage = cur.ResponseMessage
	}
	e.custom = &merged
}

// Custom returns the application supplied fields, if any were attached.
func (e *Exchange) Custom() (model.PartialRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.custom == nil {
		return model.PartialRecord{}, false
	}
	cp := *e.custom
	cp.Metadata = copyMap(e.custom.Metadata)
	return cp, true
}

// Completion is what the host framework knows once the handler chain has returned.
type Completion struct {
	Status        int
	HandlerError  string
	HandlerErrors string
	UserID        string
	At            time.Time
}

// Complete finalises timing and status. Only the first call (Complete or Abandon) has any effect.
func (e *Exchange) Complete(done Completion) bool {
	fired := false
	e.doneOnce.Do(func() {
		e.mu.Lock()
		elapsed := done.At.Sub(e.Start)
		if elapsed < 0 {
			elapsed = 0
		}
		e.result = Result{
			Status:        done.Status,
			Body:          append([]byte(nil), e.body.Bytes()...),
			Truncated:     e.truncated,
			Elapsed:       elapsed,
			FinishedAt:    done.At,
			HandlerError:  done.HandlerError,
			HandlerErrors: done.HandlerErrors,
			UserID:        done.UserID,
		}
		e.state = StateComplete
		e.mu.Unlock()
		close(e.done)
		fired = true
	})
	return fired
}

// Abandon marks an exchange that will never complete.
func (e *Exchange) Abandon() bool {
	fired := false
	e.doneOnce.Do(func() {
		e.mu.Lock()
		e.state = StateAbandoned
		e.mu.Unlock()
		close(e.done)
		fired = true
	})
	return fired
}

// Done is closed exactly once, when the exchange completes or is abandoned.
func (e *Exchange) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until completion. Every caller observes the same Result.
func (e *Exchange) Wait(ctx context.Context) (Result, error) {
	select {
	case <-e.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateAbandoned {
		return Result{}, ErrAbandoned
	}
	return e.result, nil
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
