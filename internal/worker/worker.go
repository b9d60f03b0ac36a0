package worker

import (
	"context"

	"checkout-service/internal/broker"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// LoyaltyWorker consumes checkout events and applies loyalty debits
type LoyaltyWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewLoyaltyWorker creates a new loyalty worker
func NewLoyaltyWorker(consumer *broker.Consumer, loyalty *service.LoyaltyService) *LoyaltyWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderSubmitted(loyalty.HandleOrderSubmitted)

	return &LoyaltyWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks consuming events until ctx is cancelled
func (w *LoyaltyWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting loyalty worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *LoyaltyWorker) Stop() error {
	w.logger.Info("Stopping loyalty worker")
	return w.consumer.Close()
}
