package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dangtiendungai/Twibby/pkg/session"
)

// Mountable is anything that exposes its routes as an http.Handler.
type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services to mount in the account module.
// Each service is optional and is only mounted when provided.
type RouterOptions struct {
	// Sessions attaches the session to the request context for everything
	// under the account routes.
	Sessions *session.Manager

	// TwoFactor mounts the two-factor settings under /settings/2fa.
	TwoFactor Mountable
}

// Router creates the account module router.
//
// Example:
//
//	twoFactorHandler := twofactor.NewHandler(svc, resolver)
//
//	r := chi.NewRouter()
//	r.Mount("/", account.Router(account.RouterOptions{
//	    Sessions:  sessionMgr,
//	    TwoFactor: twoFactorHandler,
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.Sessions != nil {
		r.Use(opts.Sessions.Middleware)
	}

	r.Route("/settings", func(settings chi.Router) {
		if opts.TwoFactor != nil {
			settings.Mount("/2fa", opts.TwoFactor.Handle())
		}
	})

	return r
}
