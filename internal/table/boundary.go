// Package table хранит состояние таблицы вида: пагинация, поиск, фильтр, проекция
// результата и действия над строками.
package table

import (
	"context"
	"errors"

	"vista/internal/request"
)

var (
	ErrInvalidLimit = errors.New("limit must be positive")
	ErrNotPermitted = errors.New("action not permitted for this view")
	ErrNoPrimaryKey = request.ErrNoPrimaryKey
	ErrRowNotFound  = errors.New("row not found")
	ErrNoSubview    = errors.New("view has no subview")
	ErrClosed       = errors.New("session closed")
	ErrDeleteFailed = errors.New("delete failed")

	ErrFilterNotFound = errors.New("filter not found")
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Notification: всплывающее сообщение.
type Notification struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

type Notifier interface {
	Notify(n Notification)
}

type Navigator interface {
	Navigate(path string)
}

// Confirmer спрашивает пользователя да/нет. false без ошибки — отказ.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Refresher вызывается после полной (первой) загрузки вида, например для
// перерисовки виджетов страницы.
type Refresher interface {
	Refresh(ctx context.Context, viewID string)
}

// ViewDeleter: часть реестра видов, нужная для удаления вида.
type ViewDeleter interface {
	Delete(ctx context.Context, id string) error
	TriggerChanges()
}

// AccountsPath: куда уходим после удаления вида.
const AccountsPath = "/accounts"

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}
