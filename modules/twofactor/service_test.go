package twofactor_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangtiendungai/Twibby/modules/twofactor"
	"github.com/dangtiendungai/Twibby/pkg/secrets"
	"github.com/dangtiendungai/Twibby/pkg/totp"
)

// fakeStorage is an in-memory Storage for service tests.
type fakeStorage struct {
	mu      sync.Mutex
	records map[uuid.UUID]*twofactor.Record
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{records: make(map[uuid.UUID]*twofactor.Record)}
}

func (f *fakeStorage) Get(_ context.Context, userID uuid.UUID) (*twofactor.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return nil, twofactor.ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeStorage) Upsert(_ context.Context, userID uuid.UUID, encryptedSecret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	rec, ok := f.records[userID]
	if !ok {
		f.records[userID] = &twofactor.Record{
			UserID:    userID,
			Secret:    encryptedSecret,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	}
	rec.Secret = encryptedSecret
	rec.Enabled = false
	rec.LastCounter = 0
	rec.UpdatedAt = now
	return nil
}

func (f *fakeStorage) Enable(_ context.Context, userID uuid.UUID, lastCounter int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return twofactor.ErrRecordNotFound
	}
	rec.Enabled = true
	rec.LastCounter = lastCounter
	rec.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStorage) AdvanceCounter(_ context.Context, userID uuid.UUID, lastCounter int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return twofactor.ErrRecordNotFound
	}
	if lastCounter > rec.LastCounter {
		rec.LastCounter = lastCounter
	}
	rec.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, userID)
	return nil
}

var testTime = time.Date(2026, time.March, 14, 15, 9, 26, 0, time.UTC)

func newTestService(t *testing.T) (*twofactor.Service, *fakeStorage) {
	t.Helper()

	cipher, err := secrets.NewCipher([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	storage := newFakeStorage()
	svc := twofactor.NewService(storage, cipher,
		twofactor.WithIssuer("Twibby"),
		twofactor.WithClock(func() time.Time { return testTime }),
	)
	return svc, storage
}

func testIdentity() twofactor.Identity {
	return twofactor.Identity{UserID: uuid.New(), Email: "ada@example.com"}
}

// codeAt derives the code an authenticator app would show at the given time.
func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, at)
	require.NoError(t, err)
	return code
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, storage := newTestService(t)
	identity := testIdentity()

	data, err := svc.Generate(ctx, identity)
	require.NoError(t, err)

	assert.Regexp(t, totp.SecretKeyRegex, data.Secret)
	assert.Contains(t, data.OtpauthURL, "otpauth://totp/")
	assert.Contains(t, data.OtpauthURL, "issuer=Twibby")
	assert.Contains(t, data.OtpauthURL, "ada%40example.com")
	assert.True(t, strings.HasPrefix(data.QRCode, "data:image/png;base64,"))

	// Pending until confirmed.
	enabled, err := svc.Status(ctx, identity)
	require.NoError(t, err)
	assert.False(t, enabled)

	// Secret is not stored in plaintext.
	rec, err := storage.Get(ctx, identity.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, data.Secret, rec.Secret)
	assert.NotContains(t, rec.Secret, data.Secret)
}

func TestEnable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid code enables", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		identity := testIdentity()

		data, err := svc.Generate(ctx, identity)
		require.NoError(t, err)

		require.NoError(t, svc.Enable(ctx, identity, codeAt(t, data.Secret, testTime)))

		enabled, err := svc.Status(ctx, identity)
		require.NoError(t, err)
		assert.True(t, enabled)
	})

	t.Run("adjacent steps accepted", func(t *testing.T) {
		t.Parallel()

		for _, offset := range []time.Duration{-30 * time.Second, 30 * time.Second} {
			svc, _ := newTestService(t)
			identity := testIdentity()

			data, err := svc.Generate(ctx, identity)
			require.NoError(t, err)

			assert.NoError(t, svc.Enable(ctx, identity, codeAt(t, data.Secret, testTime.Add(offset))))
		}
	})

	t.Run("steps outside window rejected", func(t *testing.T) {
		t.Parallel()

		for _, offset := range []time.Duration{-60 * time.Second, 60 * time.Second} {
			svc, _ := newTestService(t)
			identity := testIdentity()

			data, err := svc.Generate(ctx, identity)
			require.NoError(t, err)

			err = svc.Enable(ctx, identity, codeAt(t, data.Secret, testTime.Add(offset)))
			assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
		}
	})

	t.Run("re-confirmation needs a fresh code", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		identity := testIdentity()

		data, err := svc.Generate(ctx, identity)
		require.NoError(t, err)

		code := codeAt(t, data.Secret, testTime)
		require.NoError(t, svc.Enable(ctx, identity, code))

		// The accepted code is burned by the replay guard.
		assert.ErrorIs(t, svc.Enable(ctx, identity, code), twofactor.ErrInvalidCode)

		// A code from the next step re-confirms fine.
		assert.NoError(t, svc.Enable(ctx, identity, codeAt(t, data.Secret, testTime.Add(30*time.Second))))

		enabled, err := svc.Status(ctx, identity)
		require.NoError(t, err)
		assert.True(t, enabled)
	})

	t.Run("wrong code", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		identity := testIdentity()

		data, err := svc.Generate(ctx, identity)
		require.NoError(t, err)

		wrong := codeAt(t, data.Secret, testTime)
		if wrong == "000000" {
			wrong = "000001"
		} else {
			wrong = "000000"
		}

		assert.ErrorIs(t, svc.Enable(ctx, identity, wrong), twofactor.ErrInvalidCode)

		enabled, err := svc.Status(ctx, identity)
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("malformed code", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		identity := testIdentity()

		_, err := svc.Generate(ctx, identity)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Enable(ctx, identity, "12345"), twofactor.ErrInvalidCode)
		assert.ErrorIs(t, svc.Enable(ctx, identity, "abcdef"), twofactor.ErrInvalidCode)
	})

	t.Run("not provisioned", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)

		err := svc.Enable(ctx, testIdentity(), "123456")
		assert.ErrorIs(t, err, twofactor.ErrNotProvisioned)
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	enroll := func(t *testing.T, svc *twofactor.Service, identity twofactor.Identity) string {
		t.Helper()
		data, err := svc.Generate(ctx, identity)
		require.NoError(t, err)
		require.NoError(t, svc.Enable(ctx, identity, codeAt(t, data.Secret, testTime)))
		return data.Secret
	}

	t.Run("valid code", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		identity := testIdentity()
		secret := enroll(t, svc, identity)

		// Enable consumed the current step; the next step is still in the
		// tolerance window.
		assert.NoError(t, svc.Verify(ctx, identity, codeAt(t, secret, testTime.Add(30*time.Second))))
	})

	t.Run("replayed code rejected", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		identity := testIdentity()
		secret := enroll(t, svc, identity)

		code := codeAt(t, secret, testTime.Add(30*time.Second))
		require.NoError(t, svc.Verify(ctx, identity, code))
		assert.ErrorIs(t, svc.Verify(ctx, identity, code), twofactor.ErrInvalidCode)
	})

	t.Run("pending record", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		identity := testIdentity()

		_, err := svc.Generate(ctx, identity)
		require.NoError(t, err)

		err = svc.Verify(ctx, identity, "123456")
		assert.ErrorIs(t, err, twofactor.ErrNotEnabled)
	})

	t.Run("not provisioned", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)

		err := svc.Verify(ctx, testIdentity(), "123456")
		assert.ErrorIs(t, err, twofactor.ErrNotProvisioned)
	})
}

func TestRequiredForEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newServiceWithLookup := func(t *testing.T, identity twofactor.Identity) *twofactor.Service {
		t.Helper()

		cipher, err := secrets.NewCipher([]byte(strings.Repeat("k", 32)))
		require.NoError(t, err)

		lookup := func(_ context.Context, email string) (uuid.UUID, error) {
			if email == identity.Email {
				return identity.UserID, nil
			}
			return uuid.Nil, errors.New("no such user")
		}

		return twofactor.NewService(newFakeStorage(), cipher,
			twofactor.WithClock(func() time.Time { return testTime }),
			twofactor.WithEmailLookup(lookup),
		)
	}

	t.Run("enabled account", func(t *testing.T) {
		t.Parallel()
		identity := testIdentity()
		svc := newServiceWithLookup(t, identity)

		data, err := svc.Generate(ctx, identity)
		require.NoError(t, err)
		require.NoError(t, svc.Enable(ctx, identity, codeAt(t, data.Secret, testTime)))

		required, err := svc.RequiredForEmail(ctx, identity.Email)
		require.NoError(t, err)
		assert.True(t, required)
	})

	t.Run("pending enrollment reports false", func(t *testing.T) {
		t.Parallel()
		identity := testIdentity()
		svc := newServiceWithLookup(t, identity)

		_, err := svc.Generate(ctx, identity)
		require.NoError(t, err)

		required, err := svc.RequiredForEmail(ctx, identity.Email)
		require.NoError(t, err)
		assert.False(t, required)
	})

	t.Run("unknown email reports false", func(t *testing.T) {
		t.Parallel()
		svc := newServiceWithLookup(t, testIdentity())

		required, err := svc.RequiredForEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.False(t, required)
	})

	t.Run("no lookup configured reports false", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)

		required, err := svc.RequiredForEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.False(t, required)
	})
}

func TestDisable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, storage := newTestService(t)
	identity := testIdentity()

	data, err := svc.Generate(ctx, identity)
	require.NoError(t, err)
	require.NoError(t, svc.Enable(ctx, identity, codeAt(t, data.Secret, testTime)))

	require.NoError(t, svc.Disable(ctx, identity))

	enabled, err := svc.Status(ctx, identity)
	require.NoError(t, err)
	assert.False(t, enabled)

	// The secret is gone, not just flagged off.
	_, err = storage.Get(ctx, identity.UserID)
	assert.ErrorIs(t, err, twofactor.ErrRecordNotFound)

	// Idempotent, including for users who never enrolled.
	assert.NoError(t, svc.Disable(ctx, identity))
	assert.NoError(t, svc.Disable(ctx, testIdentity()))
}

func TestReprovisionInvalidatesOldSecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)
	identity := testIdentity()

	first, err := svc.Generate(ctx, identity)
	require.NoError(t, err)
	require.NoError(t, svc.Enable(ctx, identity, codeAt(t, first.Secret, testTime)))

	second, err := svc.Generate(ctx, identity)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	// Re-provisioning drops the account back to pending.
	enabled, err := svc.Status(ctx, identity)
	require.NoError(t, err)
	assert.False(t, enabled)

	// Old secret no longer enables; new one does.
	err = svc.Enable(ctx, identity, codeAt(t, first.Secret, testTime))
	assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
	assert.NoError(t, svc.Enable(ctx, identity, codeAt(t, second.Secret, testTime)))
}

func TestFullLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)
	identity := testIdentity()

	status := func(t *testing.T) bool {
		t.Helper()
		enabled, err := svc.Status(ctx, identity)
		require.NoError(t, err)
		return enabled
	}

	assert.False(t, status(t))

	data, err := svc.Generate(ctx, identity)
	require.NoError(t, err)
	assert.False(t, status(t))

	require.NoError(t, svc.Enable(ctx, identity, codeAt(t, data.Secret, testTime)))
	assert.True(t, status(t))

	require.NoError(t, svc.Verify(ctx, identity, codeAt(t, data.Secret, testTime.Add(30*time.Second))))

	require.NoError(t, svc.Disable(ctx, identity))
	assert.False(t, status(t))
}
