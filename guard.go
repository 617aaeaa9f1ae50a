package keyrunes

import (
	"context"
	"fmt"
	"strings"
)

// Authorizer is the slice of the Client the guards consume. *Client
// satisfies it; tests substitute stubs.
type Authorizer interface {
	HasGroup(ctx context.Context, userID, groupID string) (bool, error)
	GetUser(ctx context.Context, userID string) (*User, error)
}

// GuardFunc is a unit of work gated by a guard. The subject id is an
// explicit parameter: callers state who is acting rather than having the
// guard infer it from call-site shape.
type GuardFunc func(ctx context.Context, userID string) error

// Guard wraps a GuardFunc with an authorization precondition. Guards
// compose; with g1(g2(fn)), g1 checks first.
type Guard func(GuardFunc) GuardFunc

// GuardOption adjusts guard behaviour.
type GuardOption func(*guardOptions)

type guardOptions struct {
	client    Authorizer
	allGroups bool
}

// WithClient pins the guard to an explicit client. Without it the guard
// resolves the process-wide global client at each invocation.
func WithClient(client Authorizer) GuardOption {
	return func(o *guardOptions) { o.client = client }
}

// AnyGroup relaxes RequireGroup to succeed when the subject belongs to at
// least one of the listed groups, instead of all of them.
func AnyGroup() GuardOption {
	return func(o *guardOptions) { o.allGroups = false }
}

// RequireGroup returns a Guard enforcing group membership before the wrapped
// function runs. Groups are checked in declared order; in the default
// all-groups mode the first missing group fails the call immediately and the
// remaining groups are not consulted. Denials are ErrAuthorization; a
// missing client or empty subject id is ErrConfiguration.
func RequireGroup(groupIDs []string, opts ...GuardOption) Guard {
	o := guardOptions{allGroups: true}
	for _, opt := range opts {
		opt(&o)
	}

	return func(fn GuardFunc) GuardFunc {
		return func(ctx context.Context, userID string) error {
			client, err := resolveClient(o.client)
			if err != nil {
				return err
			}
			if userID == "" {
				return fmt.Errorf("%w: subject id not provided", ErrConfiguration)
			}

			if o.allGroups {
				for _, groupID := range groupIDs {
					ok, err := client.HasGroup(ctx, userID, groupID)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("%w: user %q does not have required group %q",
							ErrAuthorization, userID, groupID)
					}
				}
			} else {
				granted := false
				for _, groupID := range groupIDs {
					ok, err := client.HasGroup(ctx, userID, groupID)
					if err != nil {
						return err
					}
					if ok {
						granted = true
						break
					}
				}
				if !granted {
					return fmt.Errorf("%w: user %q does not belong to any of the required groups [%s]",
						ErrAuthorization, userID, strings.Join(groupIDs, ", "))
				}
			}

			return fn(ctx, userID)
		}
	}
}

// RequireAdmin returns a Guard that fetches the subject and requires its
// admin flag. Client errors (unknown user, network failure) propagate
// unchanged.
func RequireAdmin(opts ...GuardOption) Guard {
	o := guardOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return func(fn GuardFunc) GuardFunc {
		return func(ctx context.Context, userID string) error {
			client, err := resolveClient(o.client)
			if err != nil {
				return err
			}
			if userID == "" {
				return fmt.Errorf("%w: subject id not provided", ErrConfiguration)
			}

			user, err := client.GetUser(ctx, userID)
			if err != nil {
				return err
			}
			if !user.IsAdmin {
				return fmt.Errorf("%w: user %q does not have admin privileges",
					ErrAuthorization, userID)
			}

			return fn(ctx, userID)
		}
	}
}

// resolveClient picks the explicit client when one was bound, else the
// global client. Resolution happens per invocation so guards declared before
// Configure still work.
func resolveClient(explicit Authorizer) (Authorizer, error) {
	if explicit != nil {
		return explicit, nil
	}
	if global := GlobalClient(); global != nil {
		return global, nil
	}
	return nil, fmt.Errorf("%w: keyrunes client not provided and no global client configured",
		ErrConfiguration)
}
