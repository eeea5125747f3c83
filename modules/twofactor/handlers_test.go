package twofactor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangtiendungai/Twibby/modules/twofactor"
	"github.com/dangtiendungai/Twibby/pkg/ratelimiter"
	"github.com/dangtiendungai/Twibby/pkg/secrets"
)

func newTestHandler(t *testing.T, identity twofactor.Identity, opts ...twofactor.HandlerOption) (http.Handler, *twofactor.Service) {
	t.Helper()

	cipher, err := secrets.NewCipher([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	lookup := func(_ context.Context, email string) (uuid.UUID, error) {
		if email == identity.Email {
			return identity.UserID, nil
		}
		return uuid.Nil, errors.New("no such user")
	}

	svc := twofactor.NewService(newFakeStorage(), cipher,
		twofactor.WithClock(func() time.Time { return testTime }),
		twofactor.WithEmailLookup(lookup),
	)

	resolver := func(r *http.Request) (twofactor.Identity, error) {
		if r.Header.Get("Authorization") == "" {
			return twofactor.Identity{}, twofactor.ErrUnauthenticated
		}
		return identity, nil
	}

	return twofactor.NewHandler(svc, resolver, opts...).Handle(), svc
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "session")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorKey(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHandlerRequiresAuth(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t, testIdentity())

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/generate"},
		{http.MethodPost, "/enable"},
		{http.MethodPost, "/verify"},
		{http.MethodPost, "/disable"},
		{http.MethodGet, "/status"},
	}

	for _, route := range routes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.Equal(t, "unauthorized", errorKey(t, rec), route.path)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t, testIdentity())

	rec := doJSON(t, h, http.MethodPost, "/generate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Secret     string `json:"secret"`
		OtpauthURL string `json:"otpauth_url"`
		QRCode     string `json:"qr_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Secret)
	assert.Contains(t, body.OtpauthURL, "otpauth://totp/")
	assert.True(t, strings.HasPrefix(body.QRCode, "data:image/png;base64,"))
}

func TestEnableEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("not provisioned", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, testIdentity())

		rec := doJSON(t, h, http.MethodPost, "/enable", `{"code":"123456"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "not_provisioned", errorKey(t, rec))
	})

	t.Run("invalid code", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, testIdentity())

		require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/generate", "").Code)

		rec := doJSON(t, h, http.MethodPost, "/enable", `{"code":"000000"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_code", errorKey(t, rec))
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, testIdentity())

		rec := doJSON(t, h, http.MethodPost, "/enable", `{"code":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", errorKey(t, rec))
	})

	t.Run("valid code", func(t *testing.T) {
		t.Parallel()
		identity := testIdentity()
		h, _ := newTestHandler(t, identity)

		gen := doJSON(t, h, http.MethodPost, "/generate", "")
		require.Equal(t, http.StatusOK, gen.Code)

		var data struct {
			Secret string `json:"secret"`
		}
		require.NoError(t, json.Unmarshal(gen.Body.Bytes(), &data))

		code := codeAt(t, data.Secret, testTime)
		rec := doJSON(t, h, http.MethodPost, "/enable", `{"code":"`+code+`"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())

		status := doJSON(t, h, http.MethodGet, "/status", "")
		assert.JSONEq(t, `{"enabled":true}`, status.Body.String())
	})
}

func TestVerifyEndpointCollapsesFailures(t *testing.T) {
	t.Parallel()

	t.Run("not provisioned", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, testIdentity())

		rec := doJSON(t, h, http.MethodPost, "/verify", `{"code":"123456"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "verification_failed", errorKey(t, rec))
	})

	t.Run("pending enrollment", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, testIdentity())

		require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/generate", "").Code)

		rec := doJSON(t, h, http.MethodPost, "/verify", `{"code":"123456"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "verification_failed", errorKey(t, rec))
	})

	t.Run("wrong code on enabled account", func(t *testing.T) {
		t.Parallel()
		identity := testIdentity()
		h, svc := newTestHandler(t, identity)

		data, err := svc.Generate(context.Background(), identity)
		require.NoError(t, err)
		require.NoError(t, svc.Enable(context.Background(), identity, codeAt(t, data.Secret, testTime)))

		rec := doJSON(t, h, http.MethodPost, "/verify", `{"code":"000000"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "verification_failed", errorKey(t, rec))
	})

	t.Run("valid code", func(t *testing.T) {
		t.Parallel()
		identity := testIdentity()
		h, svc := newTestHandler(t, identity)

		data, err := svc.Generate(context.Background(), identity)
		require.NoError(t, err)
		require.NoError(t, svc.Enable(context.Background(), identity, codeAt(t, data.Secret, testTime)))

		code := codeAt(t, data.Secret, testTime.Add(30*time.Second))
		rec := doJSON(t, h, http.MethodPost, "/verify", `{"code":"`+code+`"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	})
}

func TestDisableEndpoint(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t, testIdentity())

	// Never enrolled; still succeeds.
	rec := doJSON(t, h, http.MethodPost, "/disable", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	status := doJSON(t, h, http.MethodGet, "/status", "")
	assert.JSONEq(t, `{"enabled":false}`, status.Body.String())
}

// checkUser posts to /check-user without any session credentials.
func checkUser(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/check-user", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCheckUserEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("enabled account", func(t *testing.T) {
		t.Parallel()
		identity := testIdentity()
		h, svc := newTestHandler(t, identity)

		data, err := svc.Generate(context.Background(), identity)
		require.NoError(t, err)
		require.NoError(t, svc.Enable(context.Background(), identity, codeAt(t, data.Secret, testTime)))

		rec := checkUser(t, h, `{"email":"`+identity.Email+`"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"requires_2fa":true}`, rec.Body.String())
	})

	t.Run("pending enrollment", func(t *testing.T) {
		t.Parallel()
		identity := testIdentity()
		h, svc := newTestHandler(t, identity)

		_, err := svc.Generate(context.Background(), identity)
		require.NoError(t, err)

		rec := checkUser(t, h, `{"email":"`+identity.Email+`"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"requires_2fa":false}`, rec.Body.String())
	})

	t.Run("unknown email indistinguishable from disabled", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, testIdentity())

		rec := checkUser(t, h, `{"email":"nobody@example.com"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"requires_2fa":false}`, rec.Body.String())
	})

	t.Run("missing email", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, testIdentity())

		rec := checkUser(t, h, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "email_required", errorKey(t, rec))
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, testIdentity())

		rec := checkUser(t, h, `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", errorKey(t, rec))
	})
}

func TestCheckUserRateLimit(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()
	t.Cleanup(store.Close)

	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       2,
		RefillRate:     2,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	h, _ := newTestHandler(t, testIdentity(), twofactor.WithRateLimiter(bucket))

	for range 2 {
		rec := checkUser(t, h, `{"email":"nobody@example.com"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := checkUser(t, h, `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestIdentityResolvedOncePerRequest(t *testing.T) {
	t.Parallel()

	cipher, err := secrets.NewCipher([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	identity := testIdentity()
	svc := twofactor.NewService(newFakeStorage(), cipher,
		twofactor.WithClock(func() time.Time { return testTime }),
	)

	var calls int
	resolver := func(r *http.Request) (twofactor.Identity, error) {
		calls++
		return identity, nil
	}

	store := ratelimiter.NewMemoryStore()
	t.Cleanup(store.Close)
	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       10,
		RefillRate:     10,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	h := twofactor.NewHandler(svc, resolver, twofactor.WithRateLimiter(bucket)).Handle()

	// The rate-limited routes key the limiter by identity; that must reuse
	// the one resolution done by the middleware.
	rec := doJSON(t, h, http.MethodPost, "/enable", `{"code":"000000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, calls)

	rec = doJSON(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestCodeSubmissionRateLimit(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()
	t.Cleanup(store.Close)

	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       2,
		RefillRate:     2,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	h, _ := newTestHandler(t, testIdentity(), twofactor.WithRateLimiter(bucket))

	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/generate", "").Code)

	for range 2 {
		rec := doJSON(t, h, http.MethodPost, "/enable", `{"code":"000000"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/verify", `{"code":"000000"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Routes outside the limited group stay reachable.
	status := doJSON(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, status.Code)
}
