package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kkp/api/handler"
	apiMiddleware "kkp/api/middleware"
	"kkp/api/routes"
	"kkp/config"
	"kkp/internal/idp"
	"kkp/internal/metrics"
	"kkp/internal/repository"
	"kkp/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

const serviceName = "kkp"

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if cfg.IsDebug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if cfg.JWTKey == "" {
		logger.Warn("JWT_KEY is empty, using a random signing key; tokens will not survive a restart")
	}

	db, err := config.OpenDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect database")
	}
	if err := repository.Migrate(db); err != nil {
		logger.WithError(err).Fatal("migrate database")
	}

	metrics.MustRegister(serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var identities service.IdentityVerifier
	if cfg.GoogleClientID != "" {
		certs := idp.NewCertCache(cfg.GoogleCertsURL, cfg.GoogleCertsTimeout, logger)
		identities = idp.NewVerifier(certs, cfg.GoogleClientID)
		go warmCerts(ctx, certs, logger)
	} else {
		logger.Info("GOOGLE_CLIENT_ID is empty, google login disabled")
	}

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	externalAuthRepo := repository.NewExternalAuthRepository(db)
	securityRepo := repository.NewSecurityLogRepository(db)

	clock := service.RealClock{}
	ledger := service.NewSessionLedger(sessionRepo, cfg.SigningKey, cfg.TokenTTL(), clock)

	authService := service.NewAuthService(
		userRepo,
		externalAuthRepo,
		securityRepo,
		ledger,
		service.BcryptPasswordHasher{Cost: cfg.BcryptRounds},
		service.NewTOTPProvider(cfg.MFAIssuer),
		identities,
		clock,
		logger,
		service.AuthConfig{
			AllowRoleOnRegister: cfg.IsDebug,
			MFAIssuer:           cfg.MFAIssuer,
		},
	)

	authHandler := handler.NewAuthHandler(authService, validator.New(), logger)

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestIDWithConfig(echoMiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"request_id": v.RequestID,
				"status":     v.Status,
				"method":     v.Method,
				"uri":        v.URI,
				"ip":         v.RemoteIP,
				"latency_ms": v.Latency.Milliseconds(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	authMiddleware := apiMiddleware.AuthMiddleware{Auth: authService}
	router := routes.NewRouter(app, authHandler, authMiddleware)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("server started")
		if err := app.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}

// warmCerts loads the Google signing certificates in the background, retrying
// with backoff until the first success.
func warmCerts(ctx context.Context, certs *idp.CertCache, logger logrus.FieldLogger) {
	backoff := time.Second
	for {
		err := certs.Refresh(ctx)
		if err == nil {
			logger.Info("google certificates loaded")
			return
		}
		logger.WithError(err).WithField("retry_in", backoff.String()).Warn("load google certificates")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < time.Minute {
			backoff *= 2
		}
	}
}
