package auditmock

import (
	"context"
	"sync"

	domain "ncd-admin-backend/internal/domain/audit"
)

var _ domain.Recorder = (*Recorder)(nil)

// Recorder keeps entries in memory, synchronously.
type Recorder struct {
	mu      sync.Mutex
	Entries []domain.Entry
	Actors  []domain.Actor
}

func (r *Recorder) Record(_ context.Context, actor domain.Actor, e domain.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, e)
	r.Actors = append(r.Actors, actor)
}

func (r *Recorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Action)
	}
	return out
}
