package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dangtiendungai/Twibby/modules/account"
	"github.com/dangtiendungai/Twibby/modules/twofactor"
	"github.com/dangtiendungai/Twibby/pkg/config"
	"github.com/dangtiendungai/Twibby/pkg/environment"
	"github.com/dangtiendungai/Twibby/pkg/httpserver"
	"github.com/dangtiendungai/Twibby/pkg/logger"
	"github.com/dangtiendungai/Twibby/pkg/pg"
	"github.com/dangtiendungai/Twibby/pkg/ratelimiter"
	"github.com/dangtiendungai/Twibby/pkg/redis"
	"github.com/dangtiendungai/Twibby/pkg/secrets"
	"github.com/dangtiendungai/Twibby/pkg/session"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`
}

func main() {
	var app appConfig
	config.MustLoad(&app)

	log := logger.New(logger.WithEnvironment(app.Env, "twibby"))
	logger.SetAsDefault(log)

	if err := run(context.Background(), app, log); err != nil {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, app appConfig, log *slog.Logger) error {
	ctx = environment.WithContext(ctx, app.Env)

	var (
		pgCfg      pg.Config
		redisCfg   redis.Config
		sessionCfg session.Config
		serverCfg  httpserver.Config
		tfCfg      twofactor.Config
	)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&sessionCfg)
	config.MustLoad(&serverCfg)
	config.MustLoad(&tfCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	cipher, err := secrets.NewCipherFromBase64(tfCfg.EncryptionKey)
	if err != nil {
		return err
	}

	sessions := session.New(sessionCfg,
		session.WithStore(session.NewRedisStore(redisClient)),
	)

	codeLimiter, err := ratelimiter.NewBucket(
		ratelimiter.NewRedisStore(redisClient, "ratelimit"),
		ratelimiter.Config{
			Capacity:       tfCfg.RateLimitAttempts,
			RefillRate:     tfCfg.RateLimitAttempts,
			RefillInterval: tfCfg.RateLimitInterval,
		},
	)
	if err != nil {
		return err
	}

	users := account.NewPGUserStorage(pool)
	twoFactorService := twofactor.NewService(
		twofactor.NewPGStorage(pool),
		cipher,
		twofactor.WithIssuer(tfCfg.Issuer),
		twofactor.WithQRCodeSize(tfCfg.QRCodeSize),
		twofactor.WithEmailLookup(account.NewEmailLookup(users)),
	)
	twoFactorHandler := twofactor.NewHandler(
		twoFactorService,
		account.NewIdentityResolver(sessions, users),
		twofactor.WithRateLimiter(codeLimiter),
	)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthcheckHandler(
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))

	r.Mount("/", account.Router(account.RouterOptions{
		Sessions:  sessions,
		TwoFactor: twoFactorHandler,
	}))

	srv := httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}
