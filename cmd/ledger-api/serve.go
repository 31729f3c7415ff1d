package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/PabloGalante/ledger/internal/adapters/http"
	"github.com/PabloGalante/ledger/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/ledger/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/ledger/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/ledger/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/app/conversation"
	"github.com/PabloGalante/ledger/internal/app/dashboard"
	"github.com/PabloGalante/ledger/internal/config"
	"github.com/PabloGalante/ledger/internal/domain"
	"github.com/PabloGalante/ledger/internal/observability"
)

const (
	// Live flows idle for longer than flowTTL are dropped.
	flowTTL       = 2 * time.Hour
	sweepInterval = 10 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func newChatBackend(ctx context.Context, cfg *config.Config) (domain.ChatBackend, error) {
	if cfg.UseMockLLM {
		logger.Info("using mock chat backend")
		return llm.NewMockLLM(), nil
	}

	logger.Info("using gemini chat backend",
		zap.String("model", cfg.ModelName),
		zap.Bool("vertex", cfg.APIKey == ""),
	)
	return llm.NewGeminiClient(ctx, llm.GeminiConfig{
		Project:     cfg.GCPProjectID,
		Location:    cfg.GCPLocation,
		APIKey:      cfg.APIKey,
		ModelName:   cfg.ModelName,
		Temperature: cfg.Temperature,
	})
}

// openStore returns the configured record store. The closer is nil for the
// in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (domain.Store, io.Closer, error) {
	switch cfg.StorageBackend {
	case config.StorageFirestore:
		logger.Info("using firestore storage", zap.String("project", cfg.GCPProjectID))
		s, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("init firestore store: %w", err)
		}
		return s, s, nil

	case config.StorageSQLite:
		logger.Info("using sqlite storage", zap.String("path", cfg.SQLitePath))
		s, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return s, s, nil

	default:
		logger.Info("using in-memory storage")
		return memstore.NewRecordStore(), nil, nil
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chat, err := newChatBackend(ctx, cfg)
	if err != nil {
		return err
	}

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Warn("closing store", zap.Error(err))
			}
		}()
	}

	onboardingFlows := memstore.NewFlowStore[coaching.OnboardingState]()
	sessionFlows := memstore.NewFlowStore[coaching.SessionState]()

	convSvc := conversation.NewService(chat, store, onboardingFlows, sessionFlows,
		conversation.WithStreamTimeout(cfg.StreamTimeout),
	)
	dashSvc := dashboard.NewService(store)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(convSvc, dashSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("ledger api listening", zap.String("addr", srv.Addr), zap.String("mode", string(cfg.Mode)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.StreamTimeout+5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		log := observability.WithFields(zap.String("component", "flow_sweeper"))
		t := time.NewTicker(sweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-t.C:
				cutoff := now.Add(-flowTTL)
				n := onboardingFlows.Sweep(cutoff) + sessionFlows.Sweep(cutoff)
				if n > 0 {
					log.Info("swept idle flows", zap.Int("count", n))
				}
			}
		}
	})

	return g.Wait()
}
