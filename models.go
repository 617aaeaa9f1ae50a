package keyrunes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultNamespace is used when a request payload does not name one.
const DefaultNamespace = "public"

// adminGroup is the group whose membership implies admin status.
const adminGroup = "admins"

var validate = validator.New()

// User is an account as reported by the Keyrunes service, either from an
// HTTP response or from decoded token claims. Value object: construct once,
// do not mutate.
type User struct {
	ID         string            `json:"id"`
	Username   string            `json:"username"`
	Email      string            `json:"email" validate:"required,email"`
	Groups     []string          `json:"groups,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at,omitzero"`
	UpdatedAt  time.Time         `json:"updated_at,omitzero"`
	IsActive   bool              `json:"is_active"`
	IsAdmin    bool              `json:"is_admin"`
}

// HasGroup reports whether the user's group list names groupID. This only
// consults the snapshot held in the struct; Client.HasGroup asks the service.
func (u *User) HasGroup(groupID string) bool {
	for _, g := range u.Groups {
		if g == groupID {
			return true
		}
	}
	return false
}

// Group is a named collection conferring access.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Token is the result of a successful login.
type Token struct {
	AccessToken  string `json:"access_token" validate:"required"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// UserRegistration is the payload for registering a regular user. Namespace
// qualifies the endpoint path and is not part of the JSON body.
type UserRegistration struct {
	Username   string            `json:"username" validate:"required,min=3,max=50"`
	Email      string            `json:"email" validate:"required,email"`
	Password   string            `json:"password" validate:"required,min=8"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Namespace  string            `json:"-"`
}

// Validate checks the registration against its field constraints. It never
// performs network I/O.
func (r *UserRegistration) Validate() error {
	return wrapValidation(validate.Struct(r))
}

// AdminRegistration is a UserRegistration plus the admin key required by the
// admin registration endpoint.
type AdminRegistration struct {
	UserRegistration
	AdminKey string `json:"admin_key" validate:"required"`
}

func (r *AdminRegistration) Validate() error {
	return wrapValidation(validate.Struct(r))
}

// LoginCredentials identify a user for login. Identity may be a username or
// an email address.
type LoginCredentials struct {
	Identity  string `json:"identity" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Namespace string `json:"-"`
}

func (c *LoginCredentials) Validate() error {
	return wrapValidation(validate.Struct(c))
}

// GroupCheck is the result of a single group-membership query.
type GroupCheck struct {
	UserID    string    `json:"user_id"`
	GroupID   string    `json:"group_id"`
	HasAccess bool      `json:"has_access"`
	CheckedAt time.Time `json:"checked_at"`
}

// NewGroupCheck builds a GroupCheck stamped with the current time.
func NewGroupCheck(userID, groupID string, hasAccess bool) GroupCheck {
	return GroupCheck{
		UserID:    userID,
		GroupID:   groupID,
		HasAccess: hasAccess,
		CheckedAt: time.Now().UTC(),
	}
}

// wrapValidation converts go-playground validation errors into a single
// ErrValidation-wrapped error with human-readable field messages.
func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldError(fe))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
