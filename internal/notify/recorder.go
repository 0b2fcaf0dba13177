package notify

import (
	"context"
	"sync"
)

// Recorder is a Dispatcher that keeps every notification in memory, for tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
	// Err, when set, is returned from every Dispatch after recording.
	Err error
}

func (r *Recorder) Dispatch(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.Err
}

// Sent returns a copy of the recorded notifications
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// ByTemplate returns the recorded notifications for one template
func (r *Recorder) ByTemplate(template string) []Notification {
	var out []Notification
	for _, n := range r.Sent() {
		if n.Template == template {
			out = append(out, n)
		}
	}
	return out
}
