package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vista/internal/view"
)

const DefaultKey = "vista:views"

// Redis хранит виды JSON'ом в хэше key; изменения списка публикуются в key+":changed",
// чтобы другие экземпляры сервиса тоже сбросили свои списки.
type Redis struct {
	*Notifier
	rdb *redis.Client
	key string
	log zerolog.Logger
}

func NewRedis(rdb *redis.Client, key string, logger zerolog.Logger) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{Notifier: NewNotifier(), rdb: rdb, key: key, log: logger}
}

func (r *Redis) channel() string { return r.key + ":changed" }

func (r *Redis) List(ctx context.Context) ([]*view.Descriptor, error) {
	all, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("registry: hgetall: %w", err)
	}
	views := make(map[string]*view.Descriptor, len(all))
	for id, raw := range all {
		var d view.Descriptor
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("registry: decode %s: %w", id, err)
		}
		views[id] = &d
	}
	return view.Sorted(views), nil
}

func (r *Redis) Get(ctx context.Context, id string) (*view.Descriptor, error) {
	raw, err := r.rdb.HGet(ctx, r.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: hget: %w", err)
	}
	var d view.Descriptor
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", id, err)
	}
	return &d, nil
}

func (r *Redis) Put(ctx context.Context, d *view.Descriptor) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.key, d.ID, raw).Err(); err != nil {
		return fmt.Errorf("registry: hset: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.HDel(ctx, r.key, id).Result()
	if err != nil {
		return fmt.Errorf("registry: hdel: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	return nil
}

// Seed записывает каталог, не трогая виды, которых в нём нет.
func (r *Redis) Seed(ctx context.Context, views map[string]*view.Descriptor) error {
	for _, d := range view.Sorted(views) {
		if err := r.Put(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// TriggerChanges оповещает локальных подписчиков и публикует сигнал для остальных экземпляров.
func (r *Redis) TriggerChanges() {
	r.Broadcast()
	if err := r.rdb.Publish(context.Background(), r.channel(), "changed").Err(); err != nil {
		r.log.Warn().Err(err).Msg("registry: publish changes")
	}
}

// Watch пересылает сигналы других экземпляров локальным подписчикам до отмены ctx.
// Возвращается после того, как подписка подтверждена.
func (r *Redis) Watch(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("registry: subscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				r.Broadcast()
			}
		}
	}()
	return nil
}
