package pipeline

import (
	"sync"
	"time"
)

// Outcome is the result of one stage of one run.
type Outcome struct {
	Command    string    `json:"command"`
	RunID      string    `json:"run_id"`
	Stage      string    `json:"stage"`
	OK         bool      `json:"ok"`
	Code       string    `json:"code,omitempty"`
	Summary    string    `json:"summary"`
	DurationMS int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// Board keeps the latest outcome of every stage, in first-seen order.
// It is safe for concurrent use.
type Board struct {
	mu     sync.RWMutex
	order  []string
	latest map[string]Outcome
}

func NewBoard() *Board {
	return &Board{latest: make(map[string]Outcome)}
}

// Record stores o as the latest outcome for its command and stage.
func (b *Board) Record(o Outcome) {
	if b == nil {
		return
	}
	key := o.Command + "/" + o.Stage
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.latest[key]; !ok {
		b.order = append(b.order, key)
	}
	b.latest[key] = o
}

// Snapshot returns a copy of the latest outcomes.
func (b *Board) Snapshot() []Outcome {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Outcome, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, b.latest[k])
	}
	return out
}
