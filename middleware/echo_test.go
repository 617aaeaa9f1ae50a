package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	keyrunes "github.com/keyrunes/keyrunes-go"
)

type stubAuthorizer struct {
	hasGroupFn func(userID, groupID string) (bool, error)
	getUserFn  func(userID string) (*keyrunes.User, error)
}

func (s *stubAuthorizer) HasGroup(_ context.Context, userID, groupID string) (bool, error) {
	if s.hasGroupFn == nil {
		return false, nil
	}
	return s.hasGroupFn(userID, groupID)
}

func (s *stubAuthorizer) GetUser(_ context.Context, userID string) (*keyrunes.User, error) {
	if s.getUserFn == nil {
		return nil, keyrunes.ErrUserNotFound
	}
	return s.getUserFn(userID)
}

func newContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestRequireGroup_AllowsFromParam(t *testing.T) {
	stub := &stubAuthorizer{hasGroupFn: func(userID, groupID string) (bool, error) {
		return userID == "user123" && groupID == "admins", nil
	}}

	c, rec := newContext(t)
	c.SetParamNames("user_id")
	c.SetParamValues("user123")

	called := false
	mw := RequireGroup([]string{"admins"}, WithClient(stub))
	handler := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireGroup_Forbids(t *testing.T) {
	stub := &stubAuthorizer{}

	c, _ := newContext(t)
	c.SetParamNames("user_id")
	c.SetParamValues("user123")

	mw := RequireGroup([]string{"admins"}, WithClient(stub))
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if code := httpStatus(t, handler(c)); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireGroup_AnyGroup(t *testing.T) {
	stub := &stubAuthorizer{hasGroupFn: func(_, groupID string) (bool, error) {
		return groupID == "moderators", nil
	}}

	c, rec := newContext(t)
	c.Set("user_id", "user123") // upstream auth middleware style

	mw := RequireGroup([]string{"admins", "moderators"}, WithClient(stub), AnyGroup())
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireGroup_MissingSubject(t *testing.T) {
	stub := &stubAuthorizer{}

	c, _ := newContext(t)

	mw := RequireGroup([]string{"admins"}, WithClient(stub))
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	// Setup mistake, not a denial: 500, never 403.
	if code := httpStatus(t, handler(c)); code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
}

func TestRequireGroup_CustomSubjectParam(t *testing.T) {
	stub := &stubAuthorizer{hasGroupFn: func(userID, _ string) (bool, error) {
		return userID == "target-7", nil
	}}

	c, rec := newContext(t)
	c.SetParamNames("target_user")
	c.SetParamValues("target-7")

	mw := RequireGroup([]string{"admins"}, WithClient(stub), WithSubjectParam("target_user"))
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAdmin_Allows(t *testing.T) {
	stub := &stubAuthorizer{getUserFn: func(userID string) (*keyrunes.User, error) {
		return &keyrunes.User{ID: userID, Username: "adminuser",
			Email: "admin@example.com", IsActive: true, IsAdmin: true}, nil
	}}

	c, rec := newContext(t)
	c.Set("user_id", "admin123")

	mw := RequireAdmin(WithClient(stub))
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAdmin_ForbidsNonAdmin(t *testing.T) {
	stub := &stubAuthorizer{getUserFn: func(userID string) (*keyrunes.User, error) {
		return &keyrunes.User{ID: userID, Username: "testuser",
			Email: "testuser@example.com", IsActive: true}, nil
	}}

	c, _ := newContext(t)
	c.Set("user_id", "user123")

	mw := RequireAdmin(WithClient(stub))
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if code := httpStatus(t, handler(c)); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAdmin_UnknownUser(t *testing.T) {
	stub := &stubAuthorizer{} // GetUser returns ErrUserNotFound

	c, _ := newContext(t)
	c.Set("user_id", "ghost")

	mw := RequireAdmin(WithClient(stub))
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if code := httpStatus(t, handler(c)); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestHandlerErrorsNotRemapped(t *testing.T) {
	stub := &stubAuthorizer{hasGroupFn: func(string, string) (bool, error) {
		return true, nil
	}}

	c, _ := newContext(t)
	c.Set("user_id", "user123")

	handlerErr := echo.NewHTTPError(http.StatusTeapot, "short and stout")
	mw := RequireGroup([]string{"admins"}, WithClient(stub))
	handler := mw(func(c echo.Context) error {
		return handlerErr
	})

	if err := handler(c); !errors.Is(err, handlerErr) {
		t.Fatalf("handler error must pass through untouched, got %v", err)
	}
}
