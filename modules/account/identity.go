package account

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dangtiendungai/Twibby/modules/twofactor"
	"github.com/dangtiendungai/Twibby/pkg/session"
)

// NewIdentityResolver builds the identity resolver the feature modules take:
// session cookie to user ID, then a user lookup for the email label. It
// prefers the session already placed on the context by the middleware and
// falls back to reading the cookie itself.
func NewIdentityResolver(sessions *session.Manager, users UserStorage) twofactor.IdentityResolver {
	return func(r *http.Request) (twofactor.Identity, error) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			var err error
			sess, err = sessions.Get(r.Context(), r)
			if err != nil {
				return twofactor.Identity{}, twofactor.ErrUnauthenticated
			}
		}
		if !sess.IsAuthenticated() {
			return twofactor.Identity{}, twofactor.ErrUnauthenticated
		}

		user, err := users.GetUserByID(r.Context(), *sess.UserID)
		if err != nil {
			return twofactor.Identity{}, twofactor.ErrUnauthenticated
		}

		return twofactor.Identity{UserID: user.ID, Email: user.Email}, nil
	}
}

// NewEmailLookup adapts the user storage for the pre-login two-factor check,
// which only needs an email to user ID mapping.
func NewEmailLookup(users UserStorage) twofactor.EmailLookup {
	return func(ctx context.Context, email string) (uuid.UUID, error) {
		user, err := users.GetUserByEmail(ctx, email)
		if err != nil {
			return uuid.Nil, err
		}
		return user.ID, nil
	}
}
