package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vista/internal/view"
)

// Resolve ищет вид по id, а если такого нет — по имени без учёта регистра.
// Имя должно быть уникальным, иначе вид считается не найденным.
func Resolve(ctx context.Context, r Registry, ref string) (*view.Descriptor, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrViewNotFound)
	}
	d, err := r.Get(ctx, ref)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrViewNotFound) {
		return nil, err
	}

	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var found *view.Descriptor
	for _, v := range all {
		if !strings.EqualFold(v.Name, ref) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: name %q is ambiguous", ErrViewNotFound, ref)
		}
		found = v
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, ref)
	}
	return found, nil
}
