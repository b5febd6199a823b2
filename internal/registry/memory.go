package registry

import (
	"context"
	"fmt"
	"sync"

	"vista/internal/view"
)

// Memory: реестр в памяти процесса.
type Memory struct {
	*Notifier
	mu    sync.RWMutex
	views map[string]*view.Descriptor
}

func NewMemory(views map[string]*view.Descriptor) *Memory {
	m := &Memory{Notifier: NewNotifier(), views: make(map[string]*view.Descriptor, len(views))}
	for id, d := range views {
		m.views[id] = d
	}
	return m
}

func (m *Memory) List(context.Context) ([]*view.Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return view.Sorted(m.views), nil
}

func (m *Memory) Get(_ context.Context, id string) (*view.Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.views[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	return d, nil
}

func (m *Memory) Put(_ context.Context, d *view.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[d.ID] = d
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.views[id]; !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	delete(m.views, id)
	return nil
}

// Replace подменяет весь каталог (перезагрузка с диска) и оповещает подписчиков.
func (m *Memory) Replace(views map[string]*view.Descriptor) {
	m.mu.Lock()
	m.views = make(map[string]*view.Descriptor, len(views))
	for id, d := range views {
		m.views[id] = d
	}
	m.mu.Unlock()
	m.TriggerChanges()
}
