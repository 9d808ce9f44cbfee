package signals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/churnsight/internal/idgen"
	"github.com/mbd888/churnsight/internal/logging"
	"github.com/mbd888/churnsight/internal/metrics"
)

// Service validates and appends churn signals to the ledger.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a signal service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logging.Component(logger, "signals"),
	}
}

// Record appends one signal to the ledger.
func (s *Service) Record(ctx context.Context, input RecordInput) (*ChurnSignal, error) {
	signal, err := s.build(input)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, signal); err != nil {
		return nil, fmt.Errorf("insert signal: %w", err)
	}

	metrics.SignalsRecordedTotal.WithLabelValues(string(signal.Type)).Inc()
	s.logger.Info("signal recorded",
		"signal_id", signal.ID,
		"customer_id", signal.CustomerID,
		"type", signal.Type,
		"weight", signal.Weight,
	)
	return signal, nil
}

// RecordBatch appends a batch of signals atomically. The whole batch is
// rejected if any entry is invalid.
func (s *Service) RecordBatch(ctx context.Context, inputs []RecordInput) ([]*ChurnSignal, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}

	batch := make([]*ChurnSignal, 0, len(inputs))
	for i, input := range inputs {
		signal, err := s.build(input)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		batch = append(batch, signal)
	}

	if err := s.store.InsertBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	for _, signal := range batch {
		metrics.SignalsRecordedTotal.WithLabelValues(string(signal.Type)).Inc()
	}
	s.logger.Info("signal batch recorded", "count", len(batch))
	return batch, nil
}

// ListRecent returns a customer's signals within the window, newest first.
func (s *Service) ListRecent(ctx context.Context, companyID, customerID string, since time.Time) ([]*ChurnSignal, error) {
	return s.store.ListRecent(ctx, companyID, customerID, since)
}

// ActiveCustomers returns distinct customers with signals recorded since the
// given time. Used by the scheduled risk recomputation sweep.
func (s *Service) ActiveCustomers(ctx context.Context, since time.Time) ([]CustomerRef, error) {
	return s.store.ActiveCustomers(ctx, since)
}

func (s *Service) build(input RecordInput) (*ChurnSignal, error) {
	if !KnownType(input.Type) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignalType, input.Type)
	}

	weight := input.Weight
	if weight == 0 {
		weight = DefaultWeight(input.Type)
	}
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return &ChurnSignal{
		ID:         idgen.WithPrefix("sig_"),
		CustomerID: input.CustomerID,
		CompanyID:  input.CompanyID,
		Type:       input.Type,
		Weight:     weight,
		Detail:     input.Detail,
		Metadata:   input.Metadata,
		OccurredAt: occurredAt,
		RecordedAt: time.Now().UTC(),
	}, nil
}
