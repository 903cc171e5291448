package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arefiev/storefront/internal/models"
)

var (
	ErrValidation      = errors.New("validation")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyRecorded = errors.New("payment already recorded")
)

// RecordInput is a provider result reported against an existing order.
type RecordInput struct {
	OrderID        uint
	Method         string
	Amount         float64
	ProviderID     string
	ProviderStatus string
	CardBrand      string
	CardLast4      string
}

type Repo interface {
	OrderExists(ctx context.Context, orderID uint) (bool, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
}

// Service records payment results against orders. The actual charge happens
// in the gateway; this is the ledger side of the 1:1 order/payment link.
type Service struct {
	Repo Repo
}

func (s *Service) Record(ctx context.Context, in RecordInput) (*models.Payment, error) {
	if in.OrderID == 0 {
		return nil, fmt.Errorf("%w: order_id required", ErrValidation)
	}
	if in.Method == "" {
		return nil, fmt.Errorf("%w: payment_method required", ErrValidation)
	}
	if in.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must be >= 0", ErrValidation)
	}

	exists, err := s.Repo.OrderExists(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, in.OrderID)
	}

	now := time.Now().UTC()
	p := &models.Payment{
		OrderID:        in.OrderID,
		Method:         in.Method,
		Amount:         in.Amount,
		ProviderID:     in.ProviderID,
		ProviderStatus: in.ProviderStatus,
		CardBrand:      in.CardBrand,
		CardLast4:      in.CardLast4,
		IsPaid:         true,
		PaidAt:         &now,
	}
	if err := s.Repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
