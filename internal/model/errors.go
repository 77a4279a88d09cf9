package model

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
)

var (
	ErrEmptyContent        = eris.New("empty content")
	ErrNoCheckableClaims   = eris.New("no checkable claims")
	ErrVerificationMethod  = eris.New("verification method failure")
	ErrQueryNotFound       = eris.New("query not found")
	ErrInvalidSubscription = eris.New("invalid subscription")
	ErrInvalidTransition   = eris.New("invalid status transition")
	ErrDuplicateAlert      = eris.New("duplicate alert")
)

// ErrorKind categorizes an error for reporting
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindEmptyContent        ErrorKind = "empty_content"
	KindNoCheckableClaims   ErrorKind = "no_checkable_claims"
	KindVerification        ErrorKind = "verification_method_failure"
	KindQueryNotFound       ErrorKind = "query_not_found"
	KindInvalidSubscription ErrorKind = "invalid_subscription"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindDuplicateAlert      ErrorKind = "duplicate_alert"
	KindTimeout             ErrorKind = "timeout"
	KindInternal            ErrorKind = "internal"
)

// KindOf classifies err against the sentinel taxonomy
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyContent):
		return KindEmptyContent
	case errors.Is(err, ErrNoCheckableClaims):
		return KindNoCheckableClaims
	case errors.Is(err, ErrVerificationMethod):
		return KindVerification
	case errors.Is(err, ErrQueryNotFound):
		return KindQueryNotFound
	case errors.Is(err, ErrInvalidSubscription):
		return KindInvalidSubscription
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrDuplicateAlert):
		return KindDuplicateAlert
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}
