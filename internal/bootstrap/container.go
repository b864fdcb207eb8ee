package bootstrap

import (
	"context"
	"fmt"

	"github.com/hausview/panotour/internal/clients/elevenlabs"
	"github.com/hausview/panotour/internal/clients/openai"
	"github.com/hausview/panotour/internal/config"
	"github.com/hausview/panotour/internal/infra/blob"
	"github.com/hausview/panotour/internal/infra/cache"
	"github.com/hausview/panotour/internal/infra/db"
	"github.com/hausview/panotour/internal/infra/logger"
	"github.com/hausview/panotour/internal/infra/queue"
	"github.com/hausview/panotour/internal/infra/storage"
	"github.com/hausview/panotour/internal/modules/handler"
	"github.com/hausview/panotour/internal/modules/model"
	"github.com/hausview/panotour/internal/modules/repo"
	"github.com/hausview/panotour/internal/modules/service"
	"github.com/hausview/panotour/internal/worker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Names for the per-queue publisher instances.
const (
	RoomPublisher = "publisher.room"
	TourPublisher = "publisher.tour"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := d.AutoMigrate(
				&model.Property{},
				&model.Room{},
				&model.Tour{},
			); err != nil {
				return nil, err
			}
		}
		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.New(cfg), nil
	})

	// RabbitMQ
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return amqp.Dial(cfg.RabbitMQ.URL)
	})
	do.ProvideNamed(inj, RoomPublisher, func(i *do.Injector) (*queue.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return queue.NewPublisher(
			do.MustInvoke[*amqp.Connection](i),
			cfg.RabbitMQ.RoomQueue,
			do.MustInvoke[*zap.Logger](i),
		)
	})
	do.ProvideNamed(inj, TourPublisher, func(i *do.Injector) (*queue.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return queue.NewPublisher(
			do.MustInvoke[*amqp.Connection](i),
			cfg.RabbitMQ.TourQueue,
			do.MustInvoke[*zap.Logger](i),
		)
	})

	// Storage backend
	do.Provide(inj, func(i *do.Injector) (storage.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.Storage.Backend {
		case "local":
			return storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL), nil
		case "s3":
			deps, err := blob.NewS3(context.Background(), cfg)
			if err != nil {
				return nil, err
			}
			return storage.NewS3Store(deps, cfg.S3.PublicURL), nil
		default:
			return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
		}
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.PropertyRepo, error) {
		return repo.NewPropertyRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.RoomRepo, error) {
		return repo.NewRoomRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.TourRepo, error) {
		return repo.NewTourRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Processing stages
	do.Provide(inj, func(i *do.Injector) (*service.PanoramaValidator, error) {
		return service.NewPanoramaValidator(), nil
	})
	do.Provide(inj, func(i *do.Injector) (*service.PanoramaProcessor, error) {
		return service.NewPanoramaProcessor(do.MustInvoke[*zap.Logger](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*service.SceneGraphBuilder, error) {
		return service.NewSceneGraphBuilder(), nil
	})
	do.Provide(inj, func(i *do.Injector) (*service.TourRenderer, error) {
		return service.NewTourRenderer()
	})
	do.Provide(inj, func(i *do.Injector) (*service.NarrationOrchestrator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)

		var tts service.Synthesizer
		var scripts service.ScriptGenerator
		if cfg.Narration.Enabled {
			tts = elevenlabs.NewClient(cfg, log)
			if cfg.ScriptGen.APIKey != "" {
				scripts = openai.NewClient(cfg, log)
			}
		}
		return service.NewNarrationOrchestrator(cfg, tts, scripts, log), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (*service.PropertyService, error) {
		return service.NewPropertyService(do.MustInvoke[repo.PropertyRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*service.RoomService, error) {
		return service.NewRoomService(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[repo.RoomRepo](i),
			do.MustInvoke[repo.PropertyRepo](i),
			do.MustInvoke[*service.PanoramaValidator](i),
			do.MustInvokeNamed[*queue.Publisher](i, RoomPublisher),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*service.TourService, error) {
		return service.NewTourService(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[repo.TourRepo](i),
			do.MustInvoke[repo.RoomRepo](i),
			do.MustInvoke[repo.PropertyRepo](i),
			do.MustInvoke[*service.NarrationOrchestrator](i),
			do.MustInvokeNamed[*queue.Publisher](i, TourPublisher),
			do.MustInvoke[*redis.Client](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*service.Pipeline, error) {
		return service.NewPipeline(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[repo.RoomRepo](i),
			do.MustInvoke[repo.TourRepo](i),
			do.MustInvoke[repo.PropertyRepo](i),
			do.MustInvoke[*service.PanoramaProcessor](i),
			do.MustInvoke[*service.SceneGraphBuilder](i),
			do.MustInvoke[*service.NarrationOrchestrator](i),
			do.MustInvoke[*service.TourRenderer](i),
			do.MustInvoke[storage.Store](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// Worker
	do.Provide(inj, func(i *do.Injector) (*worker.Dispatcher, error) {
		return worker.NewDispatcher(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*amqp.Connection](i),
			do.MustInvoke[*service.Pipeline](i),
			do.MustInvoke[*zap.Logger](i),
		)
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.PropertyHandler, error) {
		return handler.NewPropertyHandler(do.MustInvoke[*service.PropertyService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.RoomHandler, error) {
		return handler.NewRoomHandler(do.MustInvoke[*service.RoomService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.TourHandler, error) {
		return handler.NewTourHandler(do.MustInvoke[*service.TourService](i)), nil
	})

	return inj
}
