package auth

import (
	"github.com/pkg/errors"
)

var (
	// ErrMissingToken means the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken means the token could not be parsed or verified.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingEmployeeID means the token carries neither an employee_id
	// nor a sub claim.
	ErrMissingEmployeeID = errors.New("token carries no employee id")

	// ErrInvalidGroupsClaim means the ad_groups claim is not a list of
	// strings.
	ErrInvalidGroupsClaim = errors.New("ad_groups claim must be a list of strings")
)
