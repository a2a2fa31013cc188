package models

import "errors"

// Domain errors raised by the service layer. Handlers translate them to HTTP
// statuses with errors.Is; services wrap them with fmt.Errorf("...: %w", err)
// to attach the offending identifier.
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrPaymentCardNotFound   = errors.New("payment card not found")
	ErrDuplicateEmail        = errors.New("email already in use")
	ErrDuplicateCardNumber   = errors.New("card number already in use")
	ErrCardLimitExceeded     = errors.New("user cannot have more than 5 payment cards")
	ErrInvalidExpirationDate = errors.New("expiration date must be in the future")
	ErrInvalidBirthDate      = errors.New("birth date must be in the past")
)
