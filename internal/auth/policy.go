// Package auth decides who may perform privileged operations and issues the
// bearer tokens the chat collaborator presents on behalf of members.
package auth

import (
	"strings"

	"smmwallet/internal/domain"
)

// Action names a privileged operation.
type Action string

const (
	ActionAdjustBalance       Action = "adjust_balance"
	ActionViewProviderBalance Action = "view_provider_balance"
	ActionReviewOrders        Action = "review_orders"
)

// Authorizer reports whether actor may perform action.
type Authorizer interface {
	IsAuthorized(actor domain.AccountID, action Action) bool
}

// AdminSet grants every action to a fixed set of accounts and nothing to
// anyone else.
type AdminSet struct {
	ids map[domain.AccountID]struct{}
}

func NewAdminSet(ids ...string) *AdminSet {
	s := &AdminSet{ids: make(map[domain.AccountID]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		s.ids[domain.AccountID(id)] = struct{}{}
	}
	return s
}

func (s *AdminSet) IsAuthorized(actor domain.AccountID, _ Action) bool {
	if s == nil || actor == "" {
		return false
	}
	_, ok := s.ids[actor]
	return ok
}

// Len returns the number of configured admins.
func (s *AdminSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(actor domain.AccountID, action Action) bool

func (f AuthorizerFunc) IsAuthorized(actor domain.AccountID, action Action) bool {
	return f(actor, action)
}
