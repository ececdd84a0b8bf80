// Package view names the read views the presentation layer renders and
// carries the signal that one of them went stale after a mutation. Views are
// pull based: consumers re-fetch when told, nothing is pushed.
package view

import (
	"context"
	"errors"
	"strings"
	"time"
)

type Scope string

const (
	ScopeDashboard    Scope = "dashboard"
	ScopeTransactions Scope = "transactions"

	transactionScopePrefix = "transaction:"
)

// TransactionScope is the view of a single transaction, e.g. its edit form.
func TransactionScope(id string) Scope {
	return Scope(transactionScopePrefix + id)
}

// TransactionID returns the id of a per-transaction scope.
func (s Scope) TransactionID() (string, bool) {
	id, ok := strings.CutPrefix(string(s), transactionScopePrefix)
	return id, ok && id != ""
}

// ScopesForCreate lists the views a new transaction makes stale.
func ScopesForCreate() []Scope {
	return []Scope{ScopeDashboard, ScopeTransactions}
}

// ScopesForChange lists the views an update or delete of id makes stale.
func ScopesForChange(id string) []Scope {
	return []Scope{ScopeDashboard, ScopeTransactions, TransactionScope(id)}
}

type Invalidation struct {
	UserID string
	Scopes []Scope
	At     time.Time
}

type Invalidator interface {
	Invalidate(ctx context.Context, inv Invalidation) error
}

// Fanout delivers every invalidation to each of its members.
type Fanout []Invalidator

func (f Fanout) Invalidate(ctx context.Context, inv Invalidation) error {
	var errs []error
	for _, member := range f {
		if member == nil {
			continue
		}
		if err := member.Invalidate(ctx, inv); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every invalidation.
type Nop struct{}

func (Nop) Invalidate(context.Context, Invalidation) error { return nil }
