package api

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"vista/internal/registry"
	"vista/internal/table"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrConfirmationNotFound = errors.New("confirmation not found or expired")
)

// idGen: монотонные ulid; ulid.MonotonicEntropy не потокобезопасен.
type idGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDGen() *idGen {
	return &idGen{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *idGen) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// Inbox копит уведомления до следующего запроса клиента.
type Inbox struct {
	mu   sync.Mutex
	list []table.Notification
}

func (i *Inbox) Notify(n table.Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.list = append(i.list, n)
}

// Drain отдаёт накопленное и очищает ящик.
func (i *Inbox) Drain() []table.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.list
	i.list = nil
	if out == nil {
		out = []table.Notification{}
	}
	return out
}

// redirect запоминает последний переход; HTTP-клиент выполняет его сам.
type redirect struct {
	mu   sync.Mutex
	path string
}

func (r *redirect) Navigate(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

func (r *redirect) take() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.path
	r.path = ""
	return p
}

type sessionEntry struct {
	ID      string
	Session *table.Session
	Inbox   *Inbox
	nav     *redirect
}

// Sessions: открытые таблицы по id.
type Sessions struct {
	mu    sync.RWMutex
	items map[string]*sessionEntry
	ids   *idGen
}

func NewSessions() *Sessions {
	return &Sessions{items: make(map[string]*sessionEntry), ids: newIDGen()}
}

func (s *Sessions) add(sess *table.Session, inbox *Inbox, nav *redirect) *sessionEntry {
	e := &sessionEntry{ID: s.ids.next(), Session: sess, Inbox: inbox, nav: nav}
	s.mu.Lock()
	s.items[e.ID] = e
	s.mu.Unlock()
	return e
}

func (s *Sessions) get(id string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (s *Sessions) remove(id string) error {
	s.mu.Lock()
	e, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.Session.Close()
	return nil
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Prune закрывает сессии видов, которых больше нет в реестре.
func (s *Sessions) Prune(ctx context.Context, reg registry.Registry) (int, error) {
	views, err := reg.List(ctx)
	if err != nil {
		return 0, err
	}
	alive := make(map[string]bool, len(views))
	for _, d := range views {
		alive[d.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	closed := 0
	for id, e := range s.items {
		if alive[e.Session.View().ID] {
			continue
		}
		e.Session.Close()
		delete(s.items, id)
		closed++
	}
	return closed, nil
}

// pendingEntry: действие, ожидающее POST /api/confirmations/:cid.
type pendingEntry struct {
	ID        string
	Action    *table.PendingAction
	SessionID string
	Inbox     *Inbox
	nav       *redirect
	Expires   time.Time
}

// Confirmations хранит ожидающие действия не дольше ttl.
type Confirmations struct {
	mu    sync.Mutex
	items map[string]*pendingEntry
	ttl   time.Duration
	ids   *idGen
	now   func() time.Time
}

func NewConfirmations(ttl time.Duration) *Confirmations {
	return &Confirmations{items: make(map[string]*pendingEntry), ttl: ttl, ids: newIDGen(), now: time.Now}
}

func (c *Confirmations) put(a *table.PendingAction, sessionID string, inbox *Inbox, nav *redirect) *pendingEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	p := &pendingEntry{
		ID:        c.ids.next(),
		Action:    a,
		SessionID: sessionID,
		Inbox:     inbox,
		nav:       nav,
		Expires:   c.now().Add(c.ttl),
	}
	c.items[p.ID] = p
	return p
}

// take забирает действие; второй take того же id вернёт ErrConfirmationNotFound.
func (c *Confirmations) take(id string) (*pendingEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	delete(c.items, id)
	if !ok || !c.now().Before(p.Expires) {
		return nil, ErrConfirmationNotFound
	}
	return p, nil
}

func (c *Confirmations) sweepLocked() {
	now := c.now()
	for id, p := range c.items {
		if !now.Before(p.Expires) {
			delete(c.items, id)
		}
	}
}
