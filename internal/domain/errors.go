package domain

import (
	"errors"
	"strings"
)

// Kind classifies a domain error; the HTTP layer maps each kind to one status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicate
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindDuplicate:
		return "duplicate_credential"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal_error"
	}
}

// Reason narrows a kind down to the specific cause surfaced to callers.
type Reason string

const (
	ReasonMissingToken          Reason = "missing_token"
	ReasonInvalidToken          Reason = "invalid_token"
	ReasonUnknownUser           Reason = "unknown_user"
	ReasonDeactivated           Reason = "deactivated"
	ReasonNotAdmin              Reason = "not_admin"
	ReasonNotOwner              Reason = "not_owner"
	ReasonInvalidCredentials    Reason = "invalid_credentials"
	ReasonWrongCurrentPassword  Reason = "wrong_current_password"
	ReasonInvalidOrExpiredToken Reason = "invalid_or_expired_token"
	ReasonPasswordPolicy        Reason = "password_policy"
)

// Error is the single error type crossing the application boundary.
type Error struct {
	Kind    Kind
	Reason  Reason
	Field   string // offending field for validation and duplicate errors
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Reason != "" {
		b.WriteString(" (" + string(e.Reason) + ")")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind, and on reason/field when the target sets them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	if t.Field != "" && t.Field != e.Field {
		return false
	}
	return true
}

// Sentinels for errors.Is checks.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrDuplicateCredential = &Error{Kind: KindDuplicate}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrNotFound            = &Error{Kind: KindNotFound}

	ErrInvalidCredentials    = &Error{Kind: KindUnauthorized, Reason: ReasonInvalidCredentials, Message: "invalid credentials"}
	ErrInvalidOrExpiredToken = &Error{Kind: KindValidation, Reason: ReasonInvalidOrExpiredToken, Message: "invalid or expired token"}
)

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func Duplicate(field string) *Error {
	return &Error{Kind: KindDuplicate, Field: field, Message: field + " already exists"}
}

func Unauthorized(reason Reason, msg string) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason, Message: msg}
}

func Forbidden(reason Reason, msg string) *Error {
	return &Error{Kind: KindForbidden, Reason: reason, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf returns the kind of err, KindInternal for anything that is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ReasonOf returns the reason carried by err, if any.
func ReasonOf(err error) Reason {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
