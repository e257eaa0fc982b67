package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/vidspark/vidspark/internal/models"
)

func newEntry(userID string, delta int64, reason models.LedgerReason, referenceID string) *models.LedgerEntryDB {
	return &models.LedgerEntryDB{
		ID:          uuid.New(),
		UserID:      userID,
		Delta:       delta,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   time.Now(),
	}
}

// Repository exposes the store's atomic primitives the ledger is built
// on: conditional create, conditional decrement, unconditional increment,
// and create-if-absent payment-event markers. All compound mutations run
// in a single database transaction.
type Repository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.User, error)
	CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID, stripeCustomerID string) error
	ReserveCredits(ctx context.Context, userID string, amount int64) (bool, error)
	RefundCredits(ctx context.Context, userID string, amount int64) error
	ApplyPaymentEvent(ctx context.Context, eventID, userID string, amount int64) (bool, error)
	ListEntries(ctx context.Context, userID string, limit int) ([]*models.LedgerEntryDB, error)
}

type PostgresRepository struct {
	db *bun.DB
}

func NewPostgresRepository(db *bun.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	userDB := new(models.UserDB)
	err := r.db.NewSelect().
		Model(userDB).
		Where("id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userDB.ToUser(), nil
}

func (r *PostgresRepository) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.User, error) {
	userDB := new(models.UserDB)
	err := r.db.NewSelect().
		Model(userDB).
		Where("stripe_customer_id = ?", stripeCustomerID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userDB.ToUser(), nil
}

// CreateIfAbsent inserts the account unless one already exists. Two
// concurrent calls for the same new user race on the primary key; the
// loser's insert is a no-op and both observe the stored row.
func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		userDB := models.UserFromDomain(user)
		now := time.Now()
		userDB.CreatedAt = now
		userDB.UpdatedAt = now

		res, err := tx.NewInsert().
			Model(userDB).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if inserted == 0 || user.Credits <= 0 {
			return nil
		}

		_, err = tx.NewInsert().
			Model(newEntry(user.ID, user.Credits, models.LedgerReasonSignup, "")).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, user.ID)
}

func (r *PostgresRepository) UpdateStripeCustomerID(ctx context.Context, userID, stripeCustomerID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.UserDB)(nil)).
		Set("stripe_customer_id = ?", stripeCustomerID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

// ReserveCredits decrements the balance only when it covers the amount.
// The check and the decrement are one conditional UPDATE, so concurrent
// reservations for the same user cannot overdraw the account.
func (r *PostgresRepository) ReserveCredits(ctx context.Context, userID string, amount int64) (bool, error) {
	reserved := false
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.UserDB)(nil)).
			Set("credits = credits - ?", amount).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", userID).
			Where("credits >= ?", amount).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		reserved = true

		_, err = tx.NewInsert().
			Model(newEntry(userID, -amount, models.LedgerReasonReserve, "")).
			Exec(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	return reserved, nil
}

func (r *PostgresRepository) RefundCredits(ctx context.Context, userID string, amount int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.UserDB)(nil)).
			Set("credits = credits + ?", amount).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}

		_, err = tx.NewInsert().
			Model(newEntry(userID, amount, models.LedgerReasonRefund, "")).
			Exec(ctx)
		return err
	})
}

// ApplyPaymentEvent grants credits for a payment event at most once.
// The de-duplication marker insert and the balance increment commit
// together: whichever delivery path creates the marker applies the
// grant, every later call sees the conflict and becomes a no-op. A grant
// for a missing account rolls the marker back, so the event stays
// unconsumed and a retry can succeed.
func (r *PostgresRepository) ApplyPaymentEvent(ctx context.Context, eventID, userID string, amount int64) (bool, error) {
	applied := false
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		marker := &models.PaymentEventDB{
			EventID:        eventID,
			UserID:         userID,
			CreditsGranted: amount,
			CreatedAt:      time.Now(),
		}
		res, err := tx.NewInsert().
			Model(marker).
			On("CONFLICT (event_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		res, err = tx.NewUpdate().
			Model((*models.UserDB)(nil)).
			Set("credits = credits + ?", amount).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		applied = true

		_, err = tx.NewInsert().
			Model(newEntry(userID, amount, models.LedgerReasonGrant, eventID)).
			Exec(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *PostgresRepository) ListEntries(ctx context.Context, userID string, limit int) ([]*models.LedgerEntryDB, error) {
	var entries []*models.LedgerEntryDB
	err := r.db.NewSelect().
		Model(&entries).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
