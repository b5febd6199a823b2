package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vista/internal/query"
	"vista/internal/view"
)

func catalog() map[string]*view.Descriptor {
	off := false
	return map[string]*view.Descriptor{
		"1": {
			ID: "1", Name: "Accounts", Table: "accounts",
			Columns: []view.Column{
				{Name: "id", Key: "PRI"},
				{Name: "email", Searchable: true},
				{Name: "secret", Enabled: &off},
			},
			Permissions: view.Permissions{Update: true, Delete: true},
			Subview:     &view.Subview{Enabled: true},
			Filters: []view.Filter{{Name: "Active", Where: []query.WhereClause{query.Eq("status", "active")}}},
		},
		"2": {ID: "2", Name: "Orders", Table: "orders", Columns: []view.Column{{Name: "id", Key: "1"}}},
		"3": {ID: "3", Name: "orders", Table: "orders_archive", Columns: []view.Column{{Name: "id", Key: "1"}}},
	}
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, "", zerolog.Nop()), mr, rdb
}

func registries(t *testing.T) map[string]Registry {
	r, _, _ := newTestRedis(t)
	require.NoError(t, r.Seed(context.Background(), catalog()))
	return map[string]Registry{
		"memory": NewMemory(catalog()),
		"redis":  r,
	}
}

func TestRegistryCRUD(t *testing.T) {
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			all, err := r.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "1", all[0].ID)

			d, err := r.Get(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, "accounts", d.Table)
			assert.True(t, d.HasSubview())
			assert.Equal(t, []string{"id", "email"}, d.EnabledColumns())
			pk, ok := d.PrimaryKey()
			assert.True(t, ok)
			assert.Equal(t, "id", pk)
			_, ok = d.Filter("active")
			assert.True(t, ok)

			_, err = r.Get(ctx, "nope")
			assert.ErrorIs(t, err, ErrViewNotFound)

			require.NoError(t, r.Put(ctx, &view.Descriptor{ID: "9", Name: "Extra", Table: "extra"}))
			d, err = r.Get(ctx, "9")
			require.NoError(t, err)
			assert.Equal(t, "Extra", d.Name)

			require.NoError(t, r.Delete(ctx, "9"))
			assert.ErrorIs(t, r.Delete(ctx, "9"), ErrViewNotFound)
		})
	}
}

func TestResolve(t *testing.T) {
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			d, err := Resolve(ctx, r, "1")
			require.NoError(t, err)
			assert.Equal(t, "Accounts", d.Name)

			d, err = Resolve(ctx, r, " accounts ")
			require.NoError(t, err)
			assert.Equal(t, "1", d.ID)

			_, err = Resolve(ctx, r, "ORDERS")
			assert.ErrorIs(t, err, ErrViewNotFound)

			_, err = Resolve(ctx, r, "")
			assert.ErrorIs(t, err, ErrViewNotFound)
		})
	}
}

func waitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal")
	}
}

func TestNotifier(t *testing.T) {
	n := NewNotifier()
	a := n.Subscribe()
	b := n.Subscribe()

	n.Broadcast()
	n.Broadcast() // второй сигнал склеивается с первым
	waitSignal(t, a)
	waitSignal(t, b)
	select {
	case <-a:
		t.Fatal("signals should coalesce")
	default:
	}

	n.Unsubscribe(a)
	n.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)
	n.Broadcast()
	waitSignal(t, b)
}

func TestMemoryReplaceTriggersChanges(t *testing.T) {
	m := NewMemory(catalog())
	ch := m.Subscribe()
	defer m.Unsubscribe(ch)

	m.Replace(map[string]*view.Descriptor{"x": {ID: "x", Table: "x"}})
	waitSignal(t, ch)

	all, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "x", all[0].ID)
}

func TestRedisWatchAcrossInstances(t *testing.T) {
	first, mr, _ := newTestRedis(t)
	rdb2 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb2.Close() })
	second := NewRedis(rdb2, "", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, second.Watch(ctx))

	ch := second.Subscribe()
	defer second.Unsubscribe(ch)

	local := first.Subscribe()
	defer first.Unsubscribe(local)

	first.TriggerChanges()
	waitSignal(t, local)
	waitSignal(t, ch)
}

func TestRedisStoresJSON(t *testing.T) {
	r, mr, _ := newTestRedis(t)
	require.NoError(t, r.Put(context.Background(), &view.Descriptor{ID: "7", Name: "Seven", Table: "seven"}))

	raw := mr.HGet(DefaultKey, "7")
	assert.Contains(t, raw, `"table":"seven"`)

	mr.HSet(DefaultKey, "broken", "{")
	_, err := r.List(context.Background())
	assert.Error(t, err)
}

func TestSync(t *testing.T) {
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ch := r.Subscribe()
			defer r.Unsubscribe(ch)

			next := map[string]*view.Descriptor{
				"2": {ID: "2", Name: "Orders v2", Table: "orders"},
				"9": {ID: "9", Name: "Invoices", Table: "invoices"},
			}
			removed, err := Sync(ctx, r, next)
			require.NoError(t, err)
			assert.Equal(t, 2, removed)
			waitSignal(t, ch)

			all, err := r.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "Orders v2", all[0].Name)
			assert.Equal(t, "9", all[1].ID)
		})
	}
}
