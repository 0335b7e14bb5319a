// Package access implements the guard chain evaluated in front of protected operations.
//
// A Chain is an ordered list of guards combined with short-circuit AND: each
// guard either passes the (possibly enriched) Principal on or denies with a
// domain error, and no guard runs after a denial.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
)

// Principal is the user resolved for the duration of one request.
type Principal struct {
	User *entity.User
}

func (p Principal) Authenticated() bool { return p.User != nil }

func (p Principal) ID() string {
	if p.User == nil {
		return ""
	}
	return p.User.ID
}

// Request is the slice of an incoming request the guards look at.
type Request struct {
	BearerToken  string
	TargetUserID string
}

type Guard interface {
	Evaluate(ctx context.Context, p Principal, req Request) (Principal, error)
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(ctx context.Context, p Principal, req Request) (Principal, error)

func (f GuardFunc) Evaluate(ctx context.Context, p Principal, req Request) (Principal, error) {
	return f(ctx, p, req)
}

type Chain []Guard

// NewChain copies guards so later appends by the caller do not alias.
func NewChain(guards ...Guard) Chain {
	return append(Chain(nil), guards...)
}

// Run evaluates the guards in order starting from an anonymous principal.
func (c Chain) Run(ctx context.Context, req Request) (Principal, error) {
	var p Principal
	for _, g := range c {
		next, err := g.Evaluate(ctx, p, req)
		if err != nil {
			return Principal{}, err
		}
		p = next
	}
	return p, nil
}

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

// Authenticate verifies the bearer token and resolves its subject.
// The store lookup is bounded by timeout; store failures other than a missing
// user surface as internal errors rather than denials.
func Authenticate(tokens TokenVerifier, users UserFinder, timeout time.Duration) Guard {
	return GuardFunc(func(ctx context.Context, _ Principal, req Request) (Principal, error) {
		if req.BearerToken == "" {
			return Principal{}, domain.Unauthorized(domain.ReasonMissingToken, "missing bearer token")
		}
		id, err := tokens.Verify(req.BearerToken)
		if err != nil {
			return Principal{}, domain.Unauthorized(domain.ReasonInvalidToken, "invalid or expired token")
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		u, err := users.FindByID(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return Principal{}, domain.Unauthorized(domain.ReasonUnknownUser, "user no longer exists")
		case err != nil:
			return Principal{}, fmt.Errorf("resolve principal: %w", err)
		case u == nil:
			return Principal{}, domain.Unauthorized(domain.ReasonUnknownUser, "user no longer exists")
		case !u.IsActive:
			return Principal{}, domain.Unauthorized(domain.ReasonDeactivated, "account deactivated")
		}
		return Principal{User: u}, nil
	})
}

// RequireAdmin allows principals holding the admin role.
func RequireAdmin() Guard {
	return GuardFunc(func(_ context.Context, p Principal, _ Request) (Principal, error) {
		if !p.Authenticated() {
			return p, domain.Unauthorized(domain.ReasonMissingToken, "authentication required")
		}
		if !p.User.IsAdmin() {
			return p, domain.Forbidden(domain.ReasonNotAdmin, "admin role required")
		}
		return p, nil
	})
}

// RequireOwner allows the user named by the request path, and any admin.
func RequireOwner() Guard {
	return GuardFunc(func(_ context.Context, p Principal, req Request) (Principal, error) {
		if !p.Authenticated() {
			return p, domain.Unauthorized(domain.ReasonMissingToken, "authentication required")
		}
		if p.User.IsAdmin() || (req.TargetUserID != "" && p.User.ID == req.TargetUserID) {
			return p, nil
		}
		return p, domain.Forbidden(domain.ReasonNotOwner, "not allowed to access this user")
	})
}
