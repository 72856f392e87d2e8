package auth

import (
	"context"

	"github.com/mmynk/splitwose/internal/models"
)

// Authenticator verifies who a caller is. Register and Authenticate return
// the stored user so the caller can issue a session token for it.
type Authenticator interface {
	// Register creates a new account. Emails are unique ignoring letter case.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user whose email and credential match.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential reports whether credential is acceptable for a new account.
	ValidateCredential(credential string) error
}
