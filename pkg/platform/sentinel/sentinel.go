// Package sentinel holds the store-level errors. Challenge and credential
// stores return them, possibly wrapped; services translate them to coded
// domain errors before they reach a handler.
package sentinel

import "errors"

var (
	// ErrNotFound: no challenge or credential under that ID.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a credential ID is already registered.
	ErrConflict = errors.New("conflict")
	// ErrExpired: the challenge outlived its TTL.
	ErrExpired = errors.New("expired")
	// ErrAlreadyUsed: a single-use verification token was already redeemed.
	ErrAlreadyUsed = errors.New("already used")
)
