package models

import "time"

// User is the aggregate root; it exclusively owns its payment cards. Deleting
// a user deletes all of its cards.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	BirthDate *Date     `json:"birthDate,omitempty"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MaxCardsPerUser is the hard limit on payment cards a single user may hold.
const MaxCardsPerUser = 5

// UserWithCards is the cached projection composing a user with all of its
// cards.
type UserWithCards struct {
	User
	PaymentCards []PaymentCard `json:"paymentCards"`
}

// UserRequest is the create/update payload for a user.
type UserRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=255"`
	Surname   string `json:"surname" binding:"required,min=1,max=255"`
	BirthDate *Date  `json:"birthDate"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Active    *bool  `json:"active"`
}

// Validate enforces the domain rules that binding tags cannot express.
func (r *UserRequest) Validate() error {
	if r.BirthDate != nil && !r.BirthDate.Before(Today()) {
		return ErrInvalidBirthDate
	}
	return nil
}

// NewUser builds a user entity from a request. Active defaults to true when
// the request leaves it unset.
func NewUser(r *UserRequest) *User {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &User{
		Name:      r.Name,
		Surname:   r.Surname,
		BirthDate: r.BirthDate,
		Email:     r.Email,
		Active:    active,
	}
}

// UserFilter holds optional listing predicates; a nil field means the
// predicate is unconditionally true.
type UserFilter struct {
	Name       *string
	Surname    *string
	Active     *bool
	BornBefore *Date
}
