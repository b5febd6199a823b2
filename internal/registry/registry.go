// Package registry хранит описания видов и оповещает подписчиков об изменениях списка.
package registry

import (
	"context"
	"errors"
	"sync"

	"vista/internal/view"
)

var ErrViewNotFound = errors.New("view not found")

type Registry interface {
	List(ctx context.Context) ([]*view.Descriptor, error)
	Get(ctx context.Context, id string) (*view.Descriptor, error)
	Put(ctx context.Context, d *view.Descriptor) error
	Delete(ctx context.Context, id string) error
	// TriggerChanges помечает список видов устаревшим для всех подписчиков.
	TriggerChanges()
	Subscribe() chan struct{}
	Unsubscribe(ch chan struct{})
}

// Notifier рассылает пустые сигналы подписчикам; получатель сам перечитывает реестр.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[chan struct{}]struct{})}
}

// Subscribe возвращает канал сигналов. Обязательно вызвать Unsubscribe.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Broadcast не блокируется: полный канал уже содержит непрочитанный сигнал.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *Notifier) TriggerChanges() { n.Broadcast() }
