package twofactor

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dangtiendungai/Twibby/core"
	"github.com/dangtiendungai/Twibby/pkg/binder"
	"github.com/dangtiendungai/Twibby/pkg/ratelimiter"
)

// IdentityResolver extracts the authenticated identity from a request.
// It returns ErrUnauthenticated when the request carries no valid session.
type IdentityResolver func(r *http.Request) (Identity, error)

// Handler exposes the two-factor service over HTTP.
type Handler struct {
	service *Service
	resolve IdentityResolver
	limiter *ratelimiter.Bucket
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithRateLimiter bounds code submissions per user on the enable and verify
// routes, and pre-login checks per client IP. Without it those routes are
// unthrottled.
func WithRateLimiter(b *ratelimiter.Bucket) HandlerOption {
	return func(h *Handler) { h.limiter = b }
}

// NewHandler creates the HTTP handler for the two-factor module.
func NewHandler(service *Service, resolve IdentityResolver, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, resolve: resolve}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle returns the module router, meant to be mounted at /settings/2fa.
// Every route except /check-user requires an authenticated session.
func (h *Handler) Handle() http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.withIdentity)

		r.Post("/generate", h.generate)
		r.Post("/disable", h.disable)
		r.Get("/status", h.status)

		r.Group(func(r chi.Router) {
			if h.limiter != nil {
				r.Use(ratelimiter.Middleware(h.limiter, userRateLimitKey))
			}
			r.Post("/enable", h.enable)
			r.Post("/verify", h.verify)
		})
	})

	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(ratelimiter.Middleware(h.limiter, clientRateLimitKey))
		}
		r.Post("/check-user", h.checkUser)
	})

	return r
}

type identityContextKey struct{}

// withIdentity resolves the caller once per request and stashes the identity
// on the context, where both the rate limiter key and the handlers read it.
func (h *Handler) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.resolve(r)
		if err != nil {
			core.Render(w, r, core.JSONError(core.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityContextKey{}, identity)))
	})
}

func identityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}

// userRateLimitKey buckets code submissions per user.
func userRateLimitKey(r *http.Request) string {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		return ""
	}
	return "2fa:" + identity.UserID.String()
}

// clientRateLimitKey buckets pre-login checks per client IP, the only stable
// handle an unauthenticated caller has.
func clientRateLimitKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return ""
	}
	return "2fa:check:" + host
}

type codeRequest struct {
	Code string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		core.Render(w, r, core.JSONError(core.ErrUnauthorized))
		return
	}

	data, err := h.service.Generate(r.Context(), identity)
	if err != nil {
		core.Render(w, r, core.JSONError(err))
		return
	}

	core.Render(w, r, core.JSON(data))
}

func (h *Handler) enable(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		core.Render(w, r, core.JSONError(core.ErrUnauthorized))
		return
	}

	var req codeRequest
	if err := binder.JSON(r, &req); err != nil {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	if err := h.service.Enable(r.Context(), identity, req.Code); err != nil {
		switch {
		case errors.Is(err, ErrNotProvisioned):
			core.Render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "not_provisioned")))
		case errors.Is(err, ErrInvalidCode):
			core.Render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "invalid_code")))
		default:
			core.Render(w, r, core.JSONError(err))
		}
		return
	}

	core.Render(w, r, core.JSON(map[string]bool{"success": true}))
}

// verify collapses every domain failure into one response so a caller
// guessing codes cannot distinguish "no enrollment" from "wrong code".
func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		core.Render(w, r, core.JSONError(core.ErrUnauthorized))
		return
	}

	var req codeRequest
	if err := binder.JSON(r, &req); err != nil {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	if err := h.service.Verify(r.Context(), identity, req.Code); err != nil {
		switch {
		case errors.Is(err, ErrNotProvisioned),
			errors.Is(err, ErrNotEnabled),
			errors.Is(err, ErrInvalidCode):
			core.Render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "verification_failed")))
		default:
			core.Render(w, r, core.JSONError(err))
		}
		return
	}

	core.Render(w, r, core.JSON(map[string]bool{"success": true}))
}

func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		core.Render(w, r, core.JSONError(core.ErrUnauthorized))
		return
	}

	if err := h.service.Disable(r.Context(), identity); err != nil {
		core.Render(w, r, core.JSONError(err))
		return
	}

	core.Render(w, r, core.JSON(map[string]bool{"success": true}))
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		core.Render(w, r, core.JSONError(core.ErrUnauthorized))
		return
	}

	enabled, err := h.service.Status(r.Context(), identity)
	if err != nil {
		core.Render(w, r, core.JSONError(err))
		return
	}

	core.Render(w, r, core.JSON(map[string]bool{"enabled": enabled}))
}

// checkUser is the pre-login check the login form calls to decide whether to
// ask for a code. It never distinguishes unknown emails from accounts
// without two-factor.
func (h *Handler) checkUser(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := binder.JSON(r, &req); err != nil {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}
	if req.Email == "" {
		core.Render(w, r, core.JSONError(core.NewHTTPError(http.StatusBadRequest, "email_required")))
		return
	}

	required, err := h.service.RequiredForEmail(r.Context(), req.Email)
	if err != nil {
		core.Render(w, r, core.JSONError(err))
		return
	}

	core.Render(w, r, core.JSON(map[string]bool{"requires_2fa": required}))
}
