package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	appsession "finitefield.org/delivery-admin/internal/admin/session"
	"finitefield.org/delivery-admin/internal/platform/config"
	pfirestore "finitefield.org/delivery-admin/internal/platform/firestore"
	"finitefield.org/delivery-admin/internal/platform/postgres"
	"finitefield.org/delivery-admin/internal/tiers"
)

// backend is the selected tier persistence plus whatever it must release.
type backend struct {
	remote  tiers.Remote
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.Tiers.Backend {
	case config.BackendStatic:
		logger.Warn("using in-memory tier backend; changes are lost on restart")
		return &backend{remote: tiers.NewStaticRemote(tiers.DefaultSeed())}, nil

	case config.BackendHTTP:
		client := &http.Client{
			Timeout:   cfg.Tiers.RemoteTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
		rows, err := tiers.NewHTTPRemote(cfg.Tiers.APIBaseURL, client)
		if err != nil {
			return nil, err
		}
		documents, err := tiers.NewHTTPDocumentRemote(cfg.Tiers.APIBaseURL, client)
		if err != nil {
			return nil, err
		}
		// Commission rules are row resources; the fee schedule is one document.
		router := tiers.NewCategoryRouter(map[tiers.Category]tiers.Remote{
			tiers.CategoryCommission: rows,
			tiers.CategoryFee:        documents,
		}, nil)
		return &backend{remote: router}, nil

	case config.BackendFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore, pfirestore.WithClientOptions(firebaseOptions(cfg.Firebase)...))
		remote, err := tiers.NewFirestoreRemote(provider, cfg.Tiers.Collection)
		if err != nil {
			_ = provider.Close()
			return nil, err
		}
		return &backend{remote: remote, closers: []func(){func() {
			if err := provider.Close(); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		}}}, nil

	case config.BackendPostgres:
		pool, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(ctx, pool, logger.Named("migrate")); err != nil {
				pool.Close()
				return nil, err
			}
		}
		remote, err := tiers.NewPostgresRemote(pool, tiers.NewULID)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{remote: remote, closers: []func(){pool.Close}}, nil

	default:
		return nil, fmt.Errorf("unknown tier backend %q", cfg.Tiers.Backend)
	}
}

// newSessionManager builds the cookie codec. Without configured keys a random
// pair is generated, so sessions do not survive a restart.
func newSessionManager(cfg config.SessionConfig, basePath string, logger *zap.Logger) (*appsession.Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey)
	if err != nil {
		return nil, fmt.Errorf("session hash key: %w", err)
	}
	blockKey, err := decodeKey(cfg.BlockKey)
	if err != nil {
		return nil, fmt.Errorf("session block key: %w", err)
	}
	if len(hashKey) == 0 {
		logger.Warn("session keys not configured; generating ephemeral keys")
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
	}

	path := strings.TrimSpace(basePath)
	if path == "" {
		path = "/"
	}
	return appsession.NewManager(appsession.Config{
		CookieName:   cfg.CookieName,
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookiePath:   path,
		CookieSecure: cfg.CookieSecure,
		IdleTimeout:  cfg.IdleTimeout,
	})
}

// decodeKey accepts base64 (standard or URL alphabet) and falls back to the raw bytes.
func decodeKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if decoded, err := enc.DecodeString(raw); err == nil {
			return decoded, nil
		}
	}
	return []byte(raw), nil
}

func firebaseOptions(cfg config.FirebaseConfig) []option.ClientOption {
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
