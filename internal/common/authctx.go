package common

import "context"

type ctxKey string

const principalKey ctxKey = "auth/principal"

// Roles recognised by the API.
const (
	RoleStaff = "staff"
	RoleOwner = "owner"
)

// Principal is the authenticated staff member behind a request.
type Principal struct {
	StaffID   string
	Role      string
	SessionID string
}

// CartSession returns the key of the cart owned by this login session.
func (p Principal) CartSession() string {
	if p.SessionID != "" {
		return p.StaffID + ":" + p.SessionID
	}
	return p.StaffID
}

// WithPrincipal stores the authenticated principal on the provided context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the authenticated principal from the context if present.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok || p.StaffID == "" {
		return Principal{}, false
	}
	return p, true
}

// StaffID returns the authenticated staff identifier, if any.
func StaffID(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)
	return p.StaffID, ok
}
