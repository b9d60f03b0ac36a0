package service

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// PaymentService exposes the payment methods of one environment
type PaymentService struct {
	store       MethodStore
	environment models.PaymentEnvironment
	logger      *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store MethodStore, env models.PaymentEnvironment) *PaymentService {
	return &PaymentService{store: store, environment: env, logger: util.GetLogger()}
}

// ListActiveMethods returns the active methods of the configured environment
func (ps *PaymentService) ListActiveMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ListActiveMethods")
	defer span.End()

	methods, err := ps.store.ListPaymentMethods(ctx, ps.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

// GetUsableMethod returns the method when it is active in the configured environment, else nil.
func (ps *PaymentService) GetUsableMethod(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.GetUsableMethod")
	defer span.End()

	m, err := ps.store.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Active || m.Environment != ps.environment {
		ps.logger.Info("Payment method not usable",
			zap.Int64("method_id", id),
			zap.Bool("active", m.Active),
			zap.String("environment", string(m.Environment)))
		return nil, nil
	}
	return m, nil
}
