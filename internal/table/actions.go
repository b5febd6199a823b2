package table

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"

	"vista/internal/query"
	"vista/internal/request"
)

var ErrActionDone = errors.New("action already executed")

type ActionKind string

const (
	ActionDeleteRow  ActionKind = "delete_row"
	ActionDeleteView ActionKind = "delete_view"
)

// PendingAction: разрушительное действие, ожидающее подтверждения.
// Отказ от подтверждения — просто не вызывать Execute.
type PendingAction struct {
	Kind   ActionKind
	Prompt string
	ViewID string

	run  func(ctx context.Context) error
	done atomic.Bool
}

// Execute выполняет действие; повторный вызов возвращает ErrActionDone.
func (p *PendingAction) Execute(ctx context.Context) error {
	if !p.done.CompareAndSwap(false, true) {
		return ErrActionDone
	}
	return p.run(ctx)
}

func (s *Session) warnNoPrimaryKey() {
	s.opts.Notifier.Notify(Notification{
		Severity: SeverityWarning,
		Title:    "Warning",
		Message:  "View has no primary key column",
	})
}

// EditPath: адрес формы редактирования строки.
func EditPath(viewID, pk string, value any) string {
	return fmt.Sprintf("/views/%s/view/edit/%s/%s",
		url.PathEscape(viewID), url.PathEscape(pk), url.PathEscape(fmt.Sprint(value)))
}

// EditRow переходит к редактированию строки i.
func (s *Session) EditRow(i int) (string, error) {
	if !s.view.Permissions.Update {
		return "", ErrNotPermitted
	}
	row, err := s.Row(i)
	if err != nil {
		return "", err
	}
	pk, ok := s.view.PrimaryKey()
	if !ok {
		s.warnNoPrimaryKey()
		return "", ErrNoPrimaryKey
	}
	path := EditPath(s.view.ID, pk, row[pk])
	s.opts.Navigator.Navigate(path)
	return path, nil
}

// PrepareDeleteRow фиксирует строку i и её ключ; запрос уйдёт только из Execute.
func (s *Session) PrepareDeleteRow(i int) (*PendingAction, error) {
	if !s.view.Permissions.Delete {
		return nil, ErrNotPermitted
	}
	row, err := s.Row(i)
	if err != nil {
		return nil, err
	}
	req, err := request.DeleteRow(s.view, row)
	if err != nil {
		if errors.Is(err, request.ErrNoPrimaryKey) {
			s.warnNoPrimaryKey()
		}
		return nil, err
	}
	return &PendingAction{
		Kind:   ActionDeleteRow,
		Prompt: "Are you sure you want to delete this record?",
		ViewID: s.view.ID,
		run:    func(ctx context.Context) error { return s.executeDelete(ctx, req) },
	}, nil
}

func (s *Session) executeDelete(ctx context.Context, req query.DeleteRequest) error {
	res, err := s.src.Delete(ctx, req)
	if err == nil && res.Failed() {
		err = errors.New(res.Error)
	}
	if err != nil {
		deletesTotal.WithLabelValues(s.view.ID, "failed").Inc()
		s.log.Error().Err(err).Str("table", req.Table).Msg("delete failed")
		s.opts.Notifier.Notify(Notification{Severity: SeverityDanger, Title: "Error", Message: err.Error()})
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	if res.Valid {
		deletesTotal.WithLabelValues(s.view.ID, "deleted").Inc()
		s.opts.Notifier.Notify(Notification{
			Severity: SeveritySuccess,
			Title:    "Success",
			Message:  "Update completed successfully",
		})
	} else {
		deletesTotal.WithLabelValues(s.view.ID, "noop").Inc()
	}
	s.log.Info().Str("table", req.Table).Bool("valid", res.Valid).Msg("row deleted")
	return s.reset(ctx)
}

// DeleteRow: удаление строки с подтверждением через c.
func (s *Session) DeleteRow(ctx context.Context, i int, c Confirmer) error {
	p, err := s.PrepareDeleteRow(i)
	if err != nil {
		return err
	}
	return confirmAndRun(ctx, p, c)
}

// PrepareDeleteView готовит удаление всего вида из реестра.
func (s *Session) PrepareDeleteView() (*PendingAction, error) {
	return PrepareDeleteView(s.view.ID, s.opts)
}

func (s *Session) DeleteView(ctx context.Context, c Confirmer) error {
	p, err := s.PrepareDeleteView()
	if err != nil {
		return err
	}
	return confirmAndRun(ctx, p, c)
}

// PrepareDeleteView не требует открытой таблицы: вид удаляется по id.
func PrepareDeleteView(viewID string, opts Options) (*PendingAction, error) {
	if opts.Views == nil {
		return nil, ErrNotPermitted
	}
	notifier, navigator := opts.Notifier, opts.Navigator
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if navigator == nil {
		navigator = nopNavigator{}
	}
	return &PendingAction{
		Kind:   ActionDeleteView,
		Prompt: "Are you sure you want to delete this view?",
		ViewID: viewID,
		run: func(ctx context.Context) error {
			if err := opts.Views.Delete(ctx, viewID); err != nil {
				notifier.Notify(Notification{Severity: SeverityDanger, Title: "Error", Message: err.Error()})
				return err
			}
			opts.Views.TriggerChanges()
			opts.Logger.Info().Str("view", viewID).Msg("view deleted")
			navigator.Navigate(AccountsPath)
			return nil
		},
	}, nil
}

func confirmAndRun(ctx context.Context, p *PendingAction, c Confirmer) error {
	ok, err := c.Confirm(ctx, p.Prompt)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return p.Execute(ctx)
}
