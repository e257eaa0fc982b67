package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UserDB struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID               string    `bun:"id,pk" json:"id"`
	Email            string    `bun:"email,notnull" json:"email"`
	DisplayName      string    `bun:"display_name" json:"display_name"`
	AvatarURL        string    `bun:"avatar_url" json:"avatar_url"`
	StripeCustomerID *string   `bun:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	Credits          int64     `bun:"credits,notnull" json:"credits"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (u *UserDB) ToUser() *User {
	return &User{
		ID:               u.ID,
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		AvatarURL:        u.AvatarURL,
		StripeCustomerID: u.StripeCustomerID,
		Credits:          u.Credits,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func UserFromDomain(u *User) *UserDB {
	return &UserDB{
		ID:               u.ID,
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		AvatarURL:        u.AvatarURL,
		StripeCustomerID: u.StripeCustomerID,
		Credits:          u.Credits,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// PaymentEventDB is the de-duplication marker for a confirmed payment.
// A row exists iff the event's credit grant has been applied; the primary
// key makes a second insert for the same event a no-op.
type PaymentEventDB struct {
	bun.BaseModel `bun:"table:payment_events,alias:pe"`

	EventID        string    `bun:"event_id,pk" json:"event_id"`
	UserID         string    `bun:"user_id,notnull" json:"user_id"`
	CreditsGranted int64     `bun:"credits_granted,notnull" json:"credits_granted"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

// LedgerReason categorizes a balance mutation in the audit history.
type LedgerReason string

const (
	LedgerReasonSignup  LedgerReason = "signup"
	LedgerReasonReserve LedgerReason = "reserve"
	LedgerReasonRefund  LedgerReason = "refund"
	LedgerReasonGrant   LedgerReason = "grant"
)

type LedgerEntryDB struct {
	bun.BaseModel `bun:"table:ledger_entries,alias:le"`

	ID          uuid.UUID    `bun:"id,pk,type:uuid" json:"id"`
	UserID      string       `bun:"user_id,notnull" json:"user_id"`
	Delta       int64        `bun:"delta,notnull" json:"delta"`
	Reason      LedgerReason `bun:"reason,notnull" json:"reason"`
	ReferenceID string       `bun:"reference_id" json:"reference_id,omitempty"`
	CreatedAt   time.Time    `bun:"created_at,notnull" json:"created_at"`
}
