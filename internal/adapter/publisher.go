package adapter

import (
	"context"
	"errors"
	"fmt"

	"papertrade/internal/domain"
)

// Publishers fans one event out to every configured publisher
type Publishers []domain.EventPublisher

// Publish delivers event to every publisher, even after one fails, and joins the errors
func (ps Publishers) Publish(ctx context.Context, event domain.TradeEvent) error {
	var errs []error
	for i, p := range ps {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

var _ domain.EventPublisher = Publishers(nil)
