package keyrunes

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// decodeClaims extracts the claims of a bearer token without verifying its
// signature. The SDK never holds the service's signing secret; the claims are
// trusted because the token came from the service over the authenticated
// channel.
func decodeClaims(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	return claims, nil
}

// userFromClaims resolves a User from decoded token claims. The subject id
// comes from the standard "sub" claim.
func userFromClaims(claims jwt.MapClaims) (*User, error) {
	sub, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)
	email, _ := claims["email"].(string)
	if sub == "" && username == "" {
		return nil, fmt.Errorf("%w: token claims carry no identity", ErrAuthentication)
	}

	groups := claimStrings(claims["groups"])
	user := &User{
		ID:       sub,
		Username: username,
		Email:    email,
		Groups:   groups,
		IsActive: true,
		IsAdmin:  containsString(groups, adminGroup),
	}
	if err := wrapValidation(validate.Struct(user)); err != nil {
		return nil, err
	}
	return user, nil
}

// claimStrings converts a decoded JSON claim into a string slice, preserving
// order. Non-string elements are skipped.
func claimStrings(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
