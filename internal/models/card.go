package models

import "time"

// PaymentCard belongs to exactly one user. The number is an opaque digit
// string, unique across all cards; no issuer-side validation is performed.
type PaymentCard struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	Number         string    `json:"number"`
	Holder         string    `json:"holder"`
	ExpirationDate Date      `json:"expirationDate"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PaymentCardRequest is the create/update payload for a card.
type PaymentCardRequest struct {
	Number         string `json:"number" binding:"required,numeric,min=13,max=19"`
	Holder         string `json:"holder" binding:"required,min=1,max=255"`
	ExpirationDate *Date  `json:"expirationDate" binding:"required"`
	Active         *bool  `json:"active"`
}

// Validate enforces the strictly-in-the-future expiration rule; a date equal
// to today is rejected.
func (r *PaymentCardRequest) Validate() error {
	if r.ExpirationDate == nil || !r.ExpirationDate.After(Today()) {
		return ErrInvalidExpirationDate
	}
	return nil
}

// NewPaymentCard builds a card entity owned by userID from a request.
func NewPaymentCard(r *PaymentCardRequest, userID int64) *PaymentCard {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &PaymentCard{
		UserID:         userID,
		Number:         r.Number,
		Holder:         r.Holder,
		ExpirationDate: *r.ExpirationDate,
		Active:         active,
	}
}

// CardFilter holds optional listing predicates; nil means "don't filter".
type CardFilter struct {
	Holder *string
	Active *bool
	UserID *int64
}
