package registry

import (
	"context"
	"fmt"

	"vista/internal/view"
)

// Sync приводит реестр к каталогу views: новые и изменённые виды записываются,
// отсутствующие в каталоге удаляются. Подписчики оповещаются один раз в конце.
func Sync(ctx context.Context, r Registry, views map[string]*view.Descriptor) (removed int, err error) {
	current, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, d := range view.Sorted(views) {
		if err := r.Put(ctx, d); err != nil {
			return removed, fmt.Errorf("registry: put %s: %w", d.ID, err)
		}
	}
	for _, d := range current {
		if _, keep := views[d.ID]; keep {
			continue
		}
		if err := r.Delete(ctx, d.ID); err != nil {
			return removed, fmt.Errorf("registry: delete %s: %w", d.ID, err)
		}
		removed++
	}
	r.TriggerChanges()
	return removed, nil
}
