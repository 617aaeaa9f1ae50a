// Package keyrunes is a Go client SDK for the Keyrunes authorization
// service. It wraps the service's HTTP API (register user/admin, login,
// fetch user, check group membership) behind typed models, maps response
// statuses into a small error taxonomy, and provides composable
// authorization guards that gate a function on group membership or admin
// status.
//
// Basic usage:
//
//	client := keyrunes.New(keyrunes.Options{
//		BaseURL:         "https://keyrunes.example.com",
//		OrganizationKey: os.Getenv("KEYRUNES_ORG_KEY"),
//	})
//	defer client.Close()
//
//	user, err := client.RegisterUser(ctx, keyrunes.UserRegistration{
//		Username:   "johndoe",
//		Email:      "john@example.com",
//		Password:   "securepass123",
//		Attributes: map[string]string{"department": "Engineering"},
//	})
//
//	token, err := client.Login(ctx, keyrunes.LoginCredentials{
//		Identity: "john@example.com",
//		Password: "securepass123",
//	})
//
// After Login the client holds the bearer token; GetCurrentUser resolves
// the authenticated identity from the token claims without a further
// network call.
//
// Guards wrap a function with an authorization precondition:
//
//	deleteUser := keyrunes.RequireGroup([]string{"admins"},
//		keyrunes.WithClient(client),
//	)(func(ctx context.Context, userID string) error {
//		// runs only when userID belongs to "admins"
//		return nil
//	})
//	err := deleteUser(ctx, user.ID)
//
// Configure installs a process-wide client so guards can omit WithClient:
//
//	keyrunes.Configure(keyrunes.Options{BaseURL: "https://keyrunes.example.com"})
//
//	sensitive := keyrunes.RequireGroup([]string{"admins", "verified"})(op) // ALL groups
//	moderate := keyrunes.RequireGroup([]string{"admins", "moderators"},
//		keyrunes.AnyGroup(),
//	)(op) // ANY group
//	adminOnly := keyrunes.RequireAdmin()(op)
//
// Guards compose; the outer guard checks first:
//
//	guarded := keyrunes.RequireAdmin()(keyrunes.RequireGroup([]string{"superusers"})(op))
//
// The middleware subpackage exposes the same guards as Echo middleware for
// services that want to protect routes instead of functions.
package keyrunes
