package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/inkflow/server/internal/auth"
	"github.com/inkflow/server/internal/config"
	"github.com/inkflow/server/internal/db"
	apihttp "github.com/inkflow/server/internal/http"
	"github.com/inkflow/server/internal/http/handlers"
	"github.com/inkflow/server/internal/logger"
	"github.com/inkflow/server/internal/mail"
	"github.com/inkflow/server/internal/pdf"
	"github.com/inkflow/server/internal/repo"
	"github.com/inkflow/server/internal/signing"
	"github.com/inkflow/server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("failed to connect to database",
			zap.String("dsn", db.RedactDSN(cfg.DatabaseURL)), zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	var blobs storage.BlobStore
	switch cfg.BlobDriver {
	case "s3":
		blobs, err = storage.NewS3BlobStore(ctx, cfg.S3Bucket)
		if err != nil {
			zl.Fatal("failed to initialize S3 blob store", zap.Error(err))
		}
		zl.Info("blob storage ready", zap.String("driver", "s3"), zap.String("bucket", cfg.S3Bucket))
	default:
		blobs, err = storage.NewLocalBlobStore(cfg.BlobDir)
		if err != nil {
			zl.Fatal("failed to initialize local blob store", zap.Error(err))
		}
		zl.Info("blob storage ready", zap.String("driver", "local"), zap.String("dir", cfg.BlobDir))
	}

	var mailer mail.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		zl.Info("mail delivery ready", zap.String("host", cfg.SMTPHost))
	} else {
		mailer = mail.NewLogMailer(zl)
		zl.Warn("no SMTP_HOST configured, invite emails are logged only")
	}

	if cfg.SessionSecret == "" {
		zl.Warn("no SESSION_SECRET configured, signer access credentials are disabled")
	}

	users := repo.NewUserRepo(database)
	requests := repo.NewRequestRepo(database)
	fields := repo.NewFieldRepo(database)
	sessions := repo.NewSessionRepo(database)
	signatures := repo.NewSignatureRepo(database)
	events := repo.NewEventRepo(database)
	locker := repo.NewLocker(database)

	credentials := auth.NewCredentialService(cfg.SessionSecret, cfg.CredentialTTL)
	ownerTokens := auth.NewOwnerTokenService(cfg.OwnerJWTSecret, cfg.OwnerTokenTTL)

	service := signing.NewService(cfg, requests, fields, sessions, signatures, events,
		locker, blobs, mailer, pdf.NewStamper(), credentials, zl)

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Signing:     handlers.NewSigningHandler(service, zl),
		Requests:    handlers.NewRequestHandler(users, requests, fields, blobs, zl),
		Health:      handlers.NewHealthHandler(database),
		OwnerTokens: ownerTokens,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zl.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
