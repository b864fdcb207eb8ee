package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hausview/panotour/internal/bootstrap"
	"github.com/hausview/panotour/internal/clients/elevenlabs"
	"github.com/hausview/panotour/internal/config"
	"github.com/hausview/panotour/internal/modules/handler"
	"github.com/hausview/panotour/internal/router"
	"github.com/hausview/panotour/internal/telemetry"
	"github.com/hausview/panotour/internal/worker"
	"github.com/samber/do"
	"go.uber.org/zap"
)

func main() {
	inj := bootstrap.BuildContainer()

	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)

	tp, err := telemetry.SetupTracing(cfg)
	if err != nil {
		log.Sugar().Warnw("failed to setup tracing, continuing without it", "err", err)
	} else if tp != nil {
		log.Sugar().Infow("tracing enabled", "endpoint", cfg.Telemetry.OtlpEndpoint)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(ctx); err != nil {
				log.Sugar().Errorw("failed to shutdown tracer", "err", err)
			}
		}()
	}

	gin.SetMode(cfg.App.Env)

	if cfg.Narration.Enabled {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			q, err := elevenlabs.NewClient(cfg, log).Quota(ctx)
			if err != nil {
				log.Sugar().Warnw("could not check narration quota", "err", err)
				return
			}
			log.Sugar().Infow("narration quota",
				"used", q.CharacterCount, "limit", q.CharacterLimit)
		}()
	}

	// jobs run in-process alongside the API
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	dispatcher := do.MustInvoke[*worker.Dispatcher](inj)
	if err := dispatcher.Start(workerCtx); err != nil {
		log.Sugar().Fatalw("failed to start job dispatcher", "err", err)
	}
	defer dispatcher.Close()

	engine := router.NewRouter(router.RouterDeps{
		Config:          cfg,
		Log:             log,
		PropertyHandler: do.MustInvoke[*handler.PropertyHandler](inj),
		RoomHandler:     do.MustInvoke[*handler.RoomHandler](inj),
		TourHandler:     do.MustInvoke[*handler.TourHandler](inj),
	})

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	go func() {
		log.Sugar().Infow("starting http server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Sugar().Fatalw("listen error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Sugar().Errorw("server shutdown", "err", err)
	}
	log.Sugar().Info("server exited")
}
