package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vista/internal/datasource"
	"vista/internal/query"
	"vista/internal/registry"
	"vista/internal/table"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrViewNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrConfirmationNotFound),
		errors.Is(err, table.ErrRowNotFound),
		errors.Is(err, table.ErrFilterNotFound):
		return http.StatusNotFound
	case errors.Is(err, table.ErrInvalidLimit),
		errors.Is(err, table.ErrInvalidPage),
		errors.Is(err, table.ErrNoSubview),
		errors.Is(err, query.ErrUnsupportedOperator),
		errors.Is(err, datasource.ErrUnknownColumn):
		return http.StatusBadRequest
	case errors.Is(err, table.ErrNoPrimaryKey):
		return http.StatusUnprocessableEntity
	case errors.Is(err, table.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, table.ErrActionDone):
		return http.StatusConflict
	case errors.Is(err, table.ErrClosed):
		return http.StatusGone
	case errors.Is(err, table.ErrDeleteFailed),
		errors.Is(err, datasource.ErrUnknownTable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
