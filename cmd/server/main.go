package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/text/language"

	"kindergarten/internal/apiclient"
	"kindergarten/internal/config"
	"kindergarten/internal/database"
	"kindergarten/internal/handlers"
	"kindergarten/internal/repository"
	"kindergarten/internal/security"
	"kindergarten/internal/service"
	"kindergarten/web"
)

const (
	viewStateIdle   = 2 * time.Hour
	cleanupInterval = time.Hour
)

func main() {
	// Load configuration
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session store (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	keys, err := security.DeriveKeys(cfg.SessionSecret)
	if err != nil {
		slog.Error("failed to derive keys", "error", err)
		os.Exit(1)
	}
	sealer, err := security.NewSealer(keys.Token)
	if err != nil {
		slog.Error("failed to create token sealer", "error", err)
		os.Exit(1)
	}
	sessionRepo := repository.NewSessionRepository(db, sealer)

	// Remote kindergarten API
	client, err := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	if err != nil {
		slog.Error("invalid API_BASE_URL", "error", err)
		os.Exit(1)
	}

	locale, err := language.Parse(cfg.CollationLocale)
	if err != nil {
		slog.Warn("unknown COLLATION_LOCALE, using lt", "locale", cfg.CollationLocale, "error", err)
		locale = language.Lithuanian
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.EmailDebug)
	if err != nil {
		slog.Error("failed to initialize email service", "error", err)
		os.Exit(1)
	}
	if !emailService.IsEnabled() {
		slog.Info("welcome e-mail disabled, SES_FROM_EMAIL is not set")
	}

	authService := service.NewAuthService(client, emailService)
	childService := service.NewChildService(client)
	groupService := service.NewGroupService(client, locale)

	templates, err := web.LoadTemplates()
	if err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	cookies := security.NewCookieCodec(keys.Cookie, cfg.SessionMaxAge)
	csrf := security.NewCSRFSigner(keys.CSRF)
	limiter := security.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst)
	views := handlers.NewViewStore(cfg.PageSize, locale)
	render := handlers.NewRenderer(templates, csrf, views)

	router := handlers.NewRouter(handlers.Handlers{
		Auth:      handlers.NewAuthHandler(authService, cookies, views, render),
		Groups:    handlers.NewGroupHandler(groupService, childService, views, render),
		GroupForm: handlers.NewGroupFormHandler(groupService, views, render),
		Children:  handlers.NewChildHandler(childService, views, render),
	}, handlers.NewMiddleware(sessionRepo, cookies, csrf, limiter), web.Static())

	// Background maintenance
	go limiter.Run(ctx)
	go views.Run(ctx, cleanupInterval/4, viewStateIdle)
	go cleanupSessions(ctx, sessionRepo, cfg.SessionMaxAge)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second + cfg.APITimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", addr, "env", cfg.Env, "api", cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// newLogger writes text logs in development and JSON in production
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// cleanupSessions periodically removes signed-out and idle session rows
func cleanupSessions(ctx context.Context, repo *repository.SessionRepository, maxAge time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			loggedOut, err := repo.DeleteLoggedOutBefore(ctx, now.Add(-cleanupInterval))
			if err != nil {
				slog.Error("failed to clean up signed-out sessions", "error", err)
				continue
			}
			idle, err := repo.DeleteIdleBefore(ctx, now.Add(-maxAge))
			if err != nil {
				slog.Error("failed to clean up idle sessions", "error", err)
				continue
			}
			slog.Info("sessions cleaned up", "signed_out", loggedOut, "idle", idle)
		}
	}
}
