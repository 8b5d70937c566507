// Package errors defines error kinds and utilities for the lens-it client SDK.
package errors

import (
	"errors"
	"fmt"

	sdkerrors "cosmossdk.io/errors"
)

// Error codes for the lens-it client SDK.
const (
	// Authentication errors
	CodeAuthRejected uint32 = 1001 + iota
	CodeAuthServerError
	CodeAuthVerifyError

	// Access-condition errors
	CodeUnknownHandle uint32 = 2001 + iota
	CodeDuplicateCondition

	// Publication errors
	CodeEmptyContent uint32 = 3001 + iota
	CodeNoAccessConditions
	CodeGatingNetworkError
	CodeStorageError

	// Transaction errors
	CodeSignatureDeclined uint32 = 4001 + iota
	CodeEnvelopeExpired
	CodeChainSubmissionError

	// Indexing errors
	CodeIndexingTimeout uint32 = 5001 + iota
	CodeValidationFailed
	CodeReverted

	// Decryption errors
	CodeAccessDenied uint32 = 6001 + iota

	// Configuration errors
	CodeInvalidConfig uint32 = 7001 + iota
	CodeMissingConfig
)

var (
	// Authentication errors
	ErrAuthRejected    = sdkerrors.Register("lensit_client", CodeAuthRejected, "wallet declined to sign the login challenge")
	ErrAuthServerError = sdkerrors.Register("lensit_client", CodeAuthServerError, "challenge or authenticate request failed")
	ErrAuthVerifyError = sdkerrors.Register("lensit_client", CodeAuthVerifyError, "access token verification failed")

	// Access-condition errors
	ErrUnknownHandle      = sdkerrors.Register("lensit_client", CodeUnknownHandle, "no profile found for handle")
	ErrDuplicateCondition = sdkerrors.Register("lensit_client", CodeDuplicateCondition, "profile already present in access conditions")

	// Publication errors
	ErrEmptyContent       = sdkerrors.Register("lensit_client", CodeEmptyContent, "publication content is empty")
	ErrNoAccessConditions = sdkerrors.Register("lensit_client", CodeNoAccessConditions, "gated publication requires at least one access condition")
	ErrGatingNetworkError = sdkerrors.Register("lensit_client", CodeGatingNetworkError, "key-release network request failed")
	ErrStorageError       = sdkerrors.Register("lensit_client", CodeStorageError, "content storage operation failed")

	// Transaction errors
	ErrSignatureDeclined    = sdkerrors.Register("lensit_client", CodeSignatureDeclined, "wallet declined to sign typed data")
	ErrEnvelopeExpired      = sdkerrors.Register("lensit_client", CodeEnvelopeExpired, "typed-data envelope expired before signing")
	ErrChainSubmissionError = sdkerrors.Register("lensit_client", CodeChainSubmissionError, "on-chain submission failed")

	// Indexing errors
	ErrIndexingTimeout  = sdkerrors.Register("lensit_client", CodeIndexingTimeout, "transaction not indexed within the attempt budget")
	ErrValidationFailed = sdkerrors.Register("lensit_client", CodeValidationFailed, "publication metadata validation failed")
	ErrReverted         = sdkerrors.Register("lensit_client", CodeReverted, "transaction reverted on chain")

	// Decryption errors
	ErrAccessDenied = sdkerrors.Register("lensit_client", CodeAccessDenied, "viewer does not satisfy the access conditions")

	// Configuration errors
	ErrInvalidConfig = sdkerrors.Register("lensit_client", CodeInvalidConfig, "invalid configuration")
	ErrMissingConfig = sdkerrors.Register("lensit_client", CodeMissingConfig, "missing required configuration")
)

// WrapError wraps an existing error with additional context and a lens-it error kind.
func WrapError(err error, sdkErr *sdkerrors.Error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)
	return sdkerrors.Wrapf(sdkErr, "%s: %v", msg, err)
}

// IsAuthenticationError returns true if the error is related to session authentication.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthRejected) ||
		errors.Is(err, ErrAuthServerError) ||
		errors.Is(err, ErrAuthVerifyError)
}

// IsTransient returns true for failures a caller may reasonably retry:
// indexing timeouts and upstream service errors. A fresh attempt can succeed
// without any user action.
func IsTransient(err error) bool {
	return errors.Is(err, ErrIndexingTimeout) ||
		errors.Is(err, ErrAuthServerError) ||
		errors.Is(err, ErrAuthVerifyError) ||
		errors.Is(err, ErrGatingNetworkError) ||
		errors.Is(err, ErrStorageError)
}

// IsTerminal returns true for failures that require user action or a changed
// request before retrying. Resubmitting the same operation will fail again.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrAuthRejected) ||
		errors.Is(err, ErrUnknownHandle) ||
		errors.Is(err, ErrDuplicateCondition) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrNoAccessConditions) ||
		errors.Is(err, ErrSignatureDeclined) ||
		errors.Is(err, ErrEnvelopeExpired) ||
		errors.Is(err, ErrChainSubmissionError) ||
		errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrReverted) ||
		errors.Is(err, ErrAccessDenied)
}

// GetErrorCode extracts the registered code from a wrapped SDK error.
// Returns 0 if the error does not carry one.
func GetErrorCode(err error) uint32 {
	var sdkErr *sdkerrors.Error
	if errors.As(err, &sdkErr) {
		return sdkErr.ABCICode()
	}
	return 0
}
