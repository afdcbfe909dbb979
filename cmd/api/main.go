package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rentshield/audit"
	"rentshield/auth"
	"rentshield/authz"
	"rentshield/db"
	"rentshield/evidence"
	"rentshield/httpapi"
	"rentshield/issue"
	"rentshield/lifecycle"
	"rentshield/property"
	"rentshield/vote"
)

const httpShutdownTimeout = 10 * time.Second

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("service exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := FromEnv()
	if err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	authorizer, err := authz.NewAuthorizer()
	if err != nil {
		return err
	}

	quorum := vote.DefaultQuorumConfig()
	if cfg.QuorumThreshold > 0 {
		quorum.Threshold = cfg.QuorumThreshold
	}

	var classifier lifecycle.Classifier
	var healthy func(ctx context.Context) bool
	if cfg.EvidenceURL != "" {
		client := evidence.NewClient(cfg.EvidenceURL)
		classifier = client
		healthy = client.Healthy
	}

	lifecycleService := lifecycle.NewService(
		issue.NewStore(pool),
		vote.NewLedger(pool),
		authService,
		property.NewRepository(pool),
		classifier,
		quorum,
		log,
	)

	dispatcher := audit.NewDispatcher(audit.NewQueue(pool), audit.NewLogSink(log), log)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("outbox dispatcher stopped", zap.Error(err))
		}
	}()

	server := httpapi.NewServer(lifecycleService, authService, audit.NewRepository(pool), authorizer, healthy, log)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("rentshield api listening", zap.String("addr", cfg.HTTPAddr), zap.Int("quorum_threshold", quorum.Threshold))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
