// Package middleware adapts the Keyrunes authorization guards to Echo so
// services embedding the SDK can protect routes declaratively.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	keyrunes "github.com/keyrunes/keyrunes-go"
)

// DefaultSubjectParam is the route parameter / context key the subject id is
// read from when not overridden.
const DefaultSubjectParam = "user_id"

// Option adjusts middleware behaviour.
type Option func(*options)

type options struct {
	client   keyrunes.Authorizer
	param    string
	anyGroup bool
}

// WithClient pins the middleware to an explicit client instead of the
// process-wide global one.
func WithClient(client keyrunes.Authorizer) Option {
	return func(o *options) { o.client = client }
}

// WithSubjectParam changes where the subject id is looked up: first the
// route parameter of that name, then the echo context key (as set by an
// upstream auth middleware).
func WithSubjectParam(name string) Option {
	return func(o *options) { o.param = name }
}

// AnyGroup relaxes RequireGroup to pass when the subject belongs to at least
// one of the listed groups.
func AnyGroup() Option {
	return func(o *options) { o.anyGroup = true }
}

// RequireGroup enforces group membership before the route handler runs.
func RequireGroup(groupIDs []string, opts ...Option) echo.MiddlewareFunc {
	o := applyOptions(opts)
	guard := keyrunes.RequireGroup(groupIDs, o.guardOptions()...)
	return gate(guard, o.param)
}

// RequireAdmin enforces the subject's admin flag before the route handler
// runs.
func RequireAdmin(opts ...Option) echo.MiddlewareFunc {
	o := applyOptions(opts)
	guard := keyrunes.RequireAdmin(o.guardOptions()...)
	return gate(guard, o.param)
}

func applyOptions(opts []Option) options {
	o := options{param: DefaultSubjectParam}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) guardOptions() []keyrunes.GuardOption {
	var gopts []keyrunes.GuardOption
	if o.client != nil {
		gopts = append(gopts, keyrunes.WithClient(o.client))
	}
	if o.anyGroup {
		gopts = append(gopts, keyrunes.AnyGroup())
	}
	return gopts
}

// gate runs the guard's check with a no-op inner function, then delegates to
// the real handler only on success. Handler errors are never re-mapped.
func gate(guard keyrunes.Guard, param string) echo.MiddlewareFunc {
	check := guard(func(context.Context, string) error { return nil })
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := subjectID(c, param)
			if err := check(c.Request().Context(), userID); err != nil {
				return httpError(err)
			}
			return next(c)
		}
	}
}

// subjectID resolves the principal being authorized: the route parameter
// first, then the context key injected by upstream auth middleware.
func subjectID(c echo.Context, param string) string {
	if id := c.Param(param); id != "" {
		return id
	}
	id, _ := c.Get(param).(string)
	return id
}

// httpError maps SDK errors to deterministic HTTP statuses in a consistent
// envelope.
func httpError(err error) error {
	switch {
	case errors.Is(err, keyrunes.ErrAuthorization):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, keyrunes.ErrAuthentication):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, keyrunes.ErrUserNotFound), errors.Is(err, keyrunes.ErrGroupNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, keyrunes.ErrNetwork):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		// Configuration mistakes and unexpected service errors are the
		// embedding service's fault, not the caller's.
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
