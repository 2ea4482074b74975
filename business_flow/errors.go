// Package businessflow contains the business logic for the Synergy ID allocator.
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Prefix validation errors
	ErrPrefixRequired = errors.New("prefix is required")
	ErrPrefixTooLong  = errors.New("prefix must be at most 32 characters")
	ErrPrefixInvalid  = errors.New("prefix must not contain dashes or whitespace")

	// Counter override errors
	ErrNextSeqTooLow = errors.New("next sequence must be at least 1")

	// Event listing errors
	ErrInvalidLimit  = errors.New("limit must be between 1 and 500")
	ErrInvalidOffset = errors.New("offset must be at least 0")

	// Mint errors
	ErrMintRetriesExhausted = errors.New("mint retries exhausted")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsPrefixRequired(err error) bool {
	return errors.Is(err, ErrPrefixRequired)
}

func IsPrefixInvalid(err error) bool {
	return errors.Is(err, ErrPrefixInvalid) || errors.Is(err, ErrPrefixTooLong)
}

func IsNextSeqTooLow(err error) bool {
	return errors.Is(err, ErrNextSeqTooLow)
}

func IsInvalidLimit(err error) bool {
	return errors.Is(err, ErrInvalidLimit)
}

func IsMintRetriesExhausted(err error) bool {
	return errors.Is(err, ErrMintRetriesExhausted)
}
