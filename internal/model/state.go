package model

import "sync"

// OpState is the console's current operation, modeled as a closed union so
// that an invalid combination (say, submitting while uploading) cannot be
// represented.
type OpState interface {
	opState()
	Label() string
}

type Idle struct{}

type Fetching struct{}

type Submitting struct{}

// Uploading carries the field (slot prefix) currently being pushed.
type Uploading struct {
	Field string
}

func (Idle) opState()       {}
func (Fetching) opState()   {}
func (Submitting) opState() {}
func (Uploading) opState()  {}

func (Idle) Label() string       { return "idle" }
func (Fetching) Label() string   { return "fetching" }
func (Submitting) Label() string { return "submitting" }
func (u Uploading) Label() string {
	return "uploading:" + u.Field
}

// StateTracker holds the current OpState behind a mutex so request handlers
// can report it.
type StateTracker struct {
	mu  sync.RWMutex
	cur OpState
}

func NewStateTracker() *StateTracker {
	return &StateTracker{cur: Idle{}}
}

func (t *StateTracker) Set(s OpState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cur = s
}

func (t *StateTracker) Current() OpState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cur
}
