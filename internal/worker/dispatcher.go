package worker

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/hausview/panotour/internal/config"
	"github.com/hausview/panotour/internal/infra/queue"
	"github.com/hausview/panotour/internal/modules/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Dispatcher wires the two job queues to the pipeline. It runs in-process
// with the API server; scaling out means running more instances of the same
// binary against the same broker.
type Dispatcher struct {
	pipeline *service.Pipeline
	rooms    *queue.Consumer
	tours    *queue.Consumer
	workers  int
	log      *zap.Logger
}

func NewDispatcher(cfg *config.Config, conn *amqp.Connection, pipeline *service.Pipeline, log *zap.Logger) (*Dispatcher, error) {
	rooms, err := queue.NewConsumer(conn, cfg.RabbitMQ.RoomQueue, cfg.RabbitMQ.Prefetch, log)
	if err != nil {
		return nil, fmt.Errorf("room consumer: %w", err)
	}
	tours, err := queue.NewConsumer(conn, cfg.RabbitMQ.TourQueue, cfg.RabbitMQ.Prefetch, log)
	if err != nil {
		rooms.Close()
		return nil, fmt.Errorf("tour consumer: %w", err)
	}
	workers := cfg.Worker.Concurrency
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		pipeline: pipeline,
		rooms:    rooms,
		tours:    tours,
		workers:  workers,
		log:      log,
	}, nil
}

// Start launches the consumer loops. They run until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	if err := d.rooms.Consume(ctx, d.workers, d.handleRoomJob); err != nil {
		return err
	}
	if err := d.tours.Consume(ctx, d.workers, d.handleTourJob); err != nil {
		return err
	}
	d.log.Sugar().Infow("job dispatcher started", "workers", d.workers)
	return nil
}

func (d *Dispatcher) handleRoomJob(ctx context.Context, body []byte) error {
	var job service.RoomJob
	if err := sonic.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode room job: %w", err)
	}
	return d.pipeline.ProcessRoom(ctx, job.RoomID)
}

func (d *Dispatcher) handleTourJob(ctx context.Context, body []byte) error {
	var job service.TourJob
	if err := sonic.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode tour job: %w", err)
	}
	return d.pipeline.GenerateTour(ctx, job.TourID)
}

func (d *Dispatcher) Close() {
	d.rooms.Close()
	d.tours.Close()
}
