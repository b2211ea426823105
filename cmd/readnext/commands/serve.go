package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readnext/internal/config"
	chiTransport "github.com/kailas-cloud/readnext/internal/transport/chi"
	healthuc "github.com/kailas-cloud/readnext/internal/usecase/health"
	"github.com/kailas-cloud/readnext/internal/usecase/recommend"
	"github.com/kailas-cloud/readnext/internal/version"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP recommendation server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("Starting readnext API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("env", env),
				zap.Int("http_port", cfg.HTTP.Port),
				zap.String("strategy", cfg.Recommend.Strategy),
				zap.String("backend", cfg.Recommend.Backend),
			)
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	recSvc, err := newRecommendService(a)
	if err != nil {
		return err
	}

	healthOpts := []healthuc.Option{healthuc.WithEmbedding(a.provider)}
	if a.index != nil {
		healthOpts = append(healthOpts, healthuc.WithVectorIndex(a.index))
	}
	healthSvc := healthuc.New(a.store, logger, healthOpts...)

	server := chiTransport.NewServer(recSvc, a.resources, healthSvc, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		TrustProxy:     cfg.HTTP.TrustProxy,
	}, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func newRecommendService(a *app) (*recommend.Service, error) {
	rc := a.cfg.Recommend
	strategy, err := recommend.ParseStrategy(rc.Strategy)
	if err != nil {
		return nil, fmt.Errorf("recommend config: %w", err)
	}

	opts := []recommend.Option{
		recommend.WithTagEmbedder(a.embedder),
		recommend.WithSampler(recommend.NewSampler(rc.Sampler, rc.Seed)),
		recommend.WithRanker(recommend.NewRanker(rc.ChunkSize, rc.Workers)),
	}
	if a.index != nil {
		opts = append(opts, recommend.WithVectorIndex(a.index))
	}

	svc, err := recommend.New(a.resources, a.embedder, recommend.Config{
		Strategy:          strategy,
		Backend:           recommend.Backend(rc.Backend),
		Threshold:         rc.Threshold,
		TagThreshold:      rc.TagThreshold,
		TopK:              rc.TopK,
		MinCandidates:     rc.MinCandidates,
		MaxSample:         rc.MaxSample,
		TagTermCap:        rc.TagTermCap,
		FetchCap:          rc.FetchCap,
		DescriptionWords:  rc.DescriptionWords,
		GateAfterSampling: rc.GateAfterSampling,
		Timeout:           rc.Timeout(),
	}, a.logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("create recommend service: %w", err)
	}
	return svc, nil
}
