package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"

	"github.com/vbonduro/canary/internal/auth"
	"github.com/vbonduro/canary/internal/config"
	"github.com/vbonduro/canary/internal/db"
	"github.com/vbonduro/canary/internal/kv"
	"github.com/vbonduro/canary/internal/logging"
	"github.com/vbonduro/canary/internal/notify"
	"github.com/vbonduro/canary/internal/photostore"
	"github.com/vbonduro/canary/internal/photostore/local"
	"github.com/vbonduro/canary/internal/recordstore"
	"github.com/vbonduro/canary/internal/service"
	"github.com/vbonduro/canary/internal/store"
	"github.com/vbonduro/canary/internal/web"
	"github.com/vbonduro/canary/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx := context.Background()

	storage, closeStorage, err := newStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return
	}
	defer closeStorage()

	images, photos, err := newPublisher(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize photo store", "error", err)
		return
	}

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize notifier", "error", err)
		return
	}

	authn, err := newAuthenticator(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize admin login", "error", err)
		return
	}

	key, err := csrfKey(cfg.CSRFKey, logger)
	if err != nil {
		logger.Error("invalid CSRF_KEY", "error", err)
		return
	}

	clubService := service.NewClubService(
		recordstore.NewRepository(storage, recordstore.MembersSlot),
		recordstore.NewRepository(storage, recordstore.GallerySlot),
		recordstore.NewRepository(storage, recordstore.InquiriesSlot),
		images,
		notifier,
		logger,
	)
	server := web.NewServer(clubService, templates.FS, photos, authn, auth.NewSessions(),
		web.Options{CSRFKey: key, SecureCookies: cfg.SecureCookies}, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (kv.Storage, func(), error) {
	if cfg.StorageBackend == "memory" {
		logger.Warn("using in-memory storage; records are lost on restart")
		return kv.NewMemoryStorage(), func() {}, nil
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	slots := store.NewSlotStore(database)
	keys, err := slots.Keys(ctx)
	if err != nil {
		closeDB(database, logger)
		return nil, nil, err
	}
	logger.Info("opened record store", "path", cfg.DBPath, "slots", keys)
	return slots, func() { closeDB(database, logger) }, nil
}

func closeDB(database *sql.DB, logger *slog.Logger) {
	if err := database.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}

// newPublisher returns the gallery upload publisher, plus the photo store
// served under /photos/ when uploads are kept on disk.
func newPublisher(cfg *config.Config, logger *slog.Logger) (photostore.Publisher, photostore.PhotoStore, error) {
	switch cfg.PhotoBackend {
	case "local":
		photos, err := local.New(cfg.PhotoPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("storing gallery uploads on disk", "path", cfg.PhotoPath)
		return photostore.StorePublisher{Store: photos, URLPrefix: "/photos/"}, photos, nil
	case "inline", "":
		logger.Info("storing gallery uploads inline")
		return photostore.InlinePublisher{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown PHOTO_BACKEND %q", cfg.PhotoBackend)
	}
}

func newNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*notify.InquiryNotifier, error) {
	var sender notify.Sender
	switch cfg.NotifyBackend {
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required when NOTIFY_BACKEND=resend")
		}
		sender = notify.NewResendSender(cfg.ResendAPIKey, cfg.NotifyFrom)
	case "ses":
		ses, err := notify.NewSESSender(ctx, cfg.AWSRegion, cfg.NotifyFrom)
		if err != nil {
			return nil, err
		}
		sender = ses
	case "none", "":
		sender = notify.NoopSender{}
	default:
		return nil, fmt.Errorf("unknown NOTIFY_BACKEND %q", cfg.NotifyBackend)
	}
	logger.Info("inquiry notifications", "backend", cfg.NotifyBackend, "recipients", len(cfg.NotifyTo))
	return notify.NewInquiryNotifier(sender, cfg.NotifyTo, cfg.NotifyFrom), nil
}

func newAuthenticator(cfg *config.Config, logger *slog.Logger) (*auth.Authenticator, error) {
	hash := []byte(cfg.AdminPasswordHash)
	if len(hash) == 0 {
		logger.Warn("ADMIN_PASSWORD_HASH not set; hashing ADMIN_PASSWORD at startup")
		var err error
		if hash, err = auth.HashPassword(cfg.AdminPassword); err != nil {
			return nil, err
		}
	}
	return auth.NewAuthenticator(cfg.AdminUser, hash)
}

// csrfKey decodes a hex key, or generates one that lasts until restart.
func csrfKey(hexKey string, logger *slog.Logger) ([]byte, error) {
	if hexKey != "" {
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, err
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("want 32 bytes, got %d", len(key))
		}
		return key, nil
	}
	logger.Warn("CSRF_KEY not set; generating a key that changes on restart")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
