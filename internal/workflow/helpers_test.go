package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"invoicedesk/internal/workflow"
)

var epoch = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

// recorder captures navigation, notifications and confirmation sleeps in
// the order they happen.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) ToDetail(id int64)     { r.add(fmt.Sprintf("detail:%d", id)) }
func (r *recorder) ToList()               { r.add("list") }
func (r *recorder) Notify(message string) { r.add("notify:" + message) }

// sleepRecordingClock reports confirmation sleeps to a recorder.
type sleepRecordingClock struct {
	*workflow.FakeClock
	rec *recorder
}

func (c sleepRecordingClock) Sleep(ctx context.Context, d time.Duration) error {
	c.rec.add("sleep:" + d.String())
	return c.FakeClock.Sleep(ctx, d)
}
