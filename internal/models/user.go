package models

import "time"

type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"display_name,omitempty"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty"`
	Credits          int64     `json:"credits"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Identity is the profile resolved from a verified access token. It is
// what the identity provider asserts about the caller, not what we store.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
}
