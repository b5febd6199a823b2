package table

import (
	"context"
	"sync"
	"time"

	"vista/internal/query"
	"vista/internal/view"
)

type fakeSource struct {
	mu      sync.Mutex
	reads   []query.ReadRequest
	deletes []query.DeleteRequest

	readFn    func(req query.ReadRequest) (query.ReadResult, error)
	deleteRes query.DeleteResult
	deleteErr error
}

func (f *fakeSource) Read(_ context.Context, req query.ReadRequest) (query.ReadResult, error) {
	f.mu.Lock()
	f.reads = append(f.reads, req)
	fn := f.readFn
	f.mu.Unlock()
	if fn == nil {
		return query.ReadResult{Data: []query.Row{{"id": 1, "email": "bob@example.com"}}, Count: 1}, nil
	}
	return fn(req)
}

func (f *fakeSource) Delete(_ context.Context, req query.DeleteRequest) (query.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, req)
	return f.deleteRes, f.deleteErr
}

func (f *fakeSource) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reads)
}

func (f *fakeSource) lastRead() query.ReadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[len(f.reads)-1]
}

type inbox struct {
	mu   sync.Mutex
	list []Notification
}

func (i *inbox) Notify(n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.list = append(i.list, n)
}

func (i *inbox) all() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Notification(nil), i.list...)
}

type navRecorder struct {
	paths []string
}

func (n *navRecorder) Navigate(path string) { n.paths = append(n.paths, path) }

type answer bool

func (a answer) Confirm(context.Context, string) (bool, error) { return bool(a), nil }

type fakeViews struct {
	deleted   []string
	triggered int
	err       error
}

func (v *fakeViews) Delete(_ context.Context, id string) error {
	if v.err != nil {
		return v.err
	}
	v.deleted = append(v.deleted, id)
	return nil
}

func (v *fakeViews) TriggerChanges() { v.triggered++ }

type refreshRecorder struct {
	ids []string
}

func (r *refreshRecorder) Refresh(_ context.Context, id string) { r.ids = append(r.ids, id) }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func scenarioView() *view.Descriptor {
	return &view.Descriptor{
		ID:    "1",
		Name:  "Accounts",
		Table: "accounts",
		Columns: []view.Column{
			{Name: "id", Key: "PRI"},
			{Name: "email", Searchable: true},
		},
		Permissions: view.Permissions{Update: true, Delete: true},
		Filters: []view.Filter{{
			Name:  "Active",
			Where: []query.WhereClause{query.Eq("status", "active")},
		}},
	}
}
