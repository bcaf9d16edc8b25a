package payment

import (
	"context"
	"time"

	"roombook/internal/apperr"

	"github.com/rs/zerolog"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the outcome of a charge attempt.
type Result struct {
	Status        Status
	FailureReason string
}

func Success() Result {
	return Result{Status: StatusSuccess}
}

func Failed(reason string) Result {
	return Result{Status: StatusFailed, FailureReason: reason}
}

func (r Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Record is the persisted trace of a payment attempt, successful or not.
type Record struct {
	AmountCents int64
	Status      Status
	CreatedAt   time.Time
}

// Gateway charges the customer through an external payment provider.
type Gateway interface {
	Charge(ctx context.Context, amountCents int64) (Result, error)
}

// Repository persists payment attempts and outcomes.
type Repository interface {
	Save(ctx context.Context, record Record) error
}

// Notifier sends payment receipts. Failures never flip a successful
// charge into a failed payment.
type Notifier interface {
	SendPaymentConfirmation(ctx context.Context, userEmail string, amountCents int64) error
}

// Processor runs the charge-persist-notify sequence for one payment.
type Processor struct {
	gateway  Gateway
	records  Repository
	notifier Notifier
	logger   *zerolog.Logger
}

func NewProcessor(gateway Gateway, records Repository, notifier Notifier, logger *zerolog.Logger) *Processor {
	return &Processor{
		gateway:  gateway,
		records:  records,
		notifier: notifier,
		logger:   logger,
	}
}

// Process charges the amount and records the outcome. The attempt is
// persisted whether the charge succeeded or not; a receipt goes out
// only on success and its failure is discarded.
func (p *Processor) Process(ctx context.Context, userEmail string, amountCents int64) (bool, error) {
	if amountCents <= 0 {
		return false, apperr.InvalidArgument("amount must be positive")
	}
	if userEmail == "" {
		return false, apperr.InvalidArgument("user email is required")
	}

	result, err := p.gateway.Charge(ctx, amountCents)
	if err != nil {
		return false, err
	}

	record := Record{AmountCents: amountCents, Status: result.Status, CreatedAt: time.Now()}
	if err := p.records.Save(ctx, record); err != nil {
		return false, err
	}

	if result.IsSuccess() {
		if err := p.notifier.SendPaymentConfirmation(ctx, userEmail, amountCents); err != nil {
			p.logger.Debug().Err(err).Str("email", userEmail).Msg("payment receipt delivery failed")
		}
	}

	return result.IsSuccess(), nil
}
