package ledger

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vidspark/vidspark/internal/metrics"
	"github.com/vidspark/vidspark/internal/models"
)

// Service maintains per-user credit balances. Debits happen when a
// generation job is submitted, credits when a payment is confirmed, and
// each payment event grants at most once regardless of how many times it
// is delivered.
type Service struct {
	repo            Repository
	startingCredits int64
	log             *logrus.Logger
	metrics         *metrics.Metrics
}

func NewService(repo Repository, startingCredits int64, log *logrus.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:            repo,
		startingCredits: startingCredits,
		log:             log,
		metrics:         m,
	}
}

// GetBalance returns the current balance. Missing accounts are an error;
// callers bootstrap accounts explicitly.
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// BootstrapAccount creates the account for a newly authenticated
// identity with the configured starting grant, or returns the existing
// account unchanged. The conditional insert underneath makes concurrent
// bootstraps converge on one row.
func (s *Service) BootstrapAccount(ctx context.Context, identity models.Identity) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, identity.ID)
	if err == nil {
		return user, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	created, err := s.repo.CreateIfAbsent(ctx, &models.User{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		Credits:     s.startingCredits,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": created.ID,
		"credits": created.Credits,
	}).Info("Bootstrapped account")
	return created, nil
}

// ReserveCredit debits the balance ahead of a job submission. Returns
// ErrInsufficientCredits without mutation when the balance does not
// cover the amount.
func (s *Service) ReserveCredit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	reserved, err := s.repo.ReserveCredits(ctx, userID, amount)
	if err != nil {
		return err
	}
	if !reserved {
		// Distinguish a missing account from an empty one.
		if _, err := s.repo.GetByID(ctx, userID); err != nil {
			return err
		}
		s.metrics.ReservationsDeclined.Inc()
		return ErrInsufficientCredits
	}
	return nil
}

// RefundCredit compensates a reservation whose downstream submission
// failed. Unconditional: the reservation already proved the account
// exists.
func (s *Service) RefundCredit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.RefundCredits(ctx, userID, amount)
}

// GrantCredits applies a confirmed payment event to the balance exactly
// once. The two delivery paths (webhook and client confirmation) both
// land here; replays report applied=false and succeed.
func (s *Service) GrantCredits(ctx context.Context, userID string, amount int64, eventID string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	if strings.TrimSpace(eventID) == "" {
		return false, ErrMissingEventID
	}

	applied, err := s.repo.ApplyPaymentEvent(ctx, eventID, userID, amount)
	if err != nil {
		return false, err
	}
	if !applied {
		s.metrics.GrantsDeduplicated.Inc()
		s.log.WithFields(logrus.Fields{
			"event_id": eventID,
			"user_id":  userID,
		}).Info("Payment event already applied, skipping")
		return false, nil
	}

	s.metrics.GrantsApplied.Inc()
	s.log.WithFields(logrus.Fields{
		"event_id": eventID,
		"user_id":  userID,
		"credits":  amount,
	}).Info("Granted credits for payment event")
	return true, nil
}

// GetAccount returns the full account record.
func (s *Service) GetAccount(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// AttachStripeCustomer stores the payment processor's customer id on the
// account. Called lazily on first purchase.
func (s *Service) AttachStripeCustomer(ctx context.Context, userID, stripeCustomerID string) error {
	return s.repo.UpdateStripeCustomerID(ctx, userID, stripeCustomerID)
}

// History returns the most recent balance mutations for support and
// dispute handling.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*models.LedgerEntryDB, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListEntries(ctx, userID, limit)
}
