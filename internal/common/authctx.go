package common

import "context"

type ctxKey string

const (
	userIDKey    ctxKey = "auth/user-id"
	principalKey ctxKey = "auth/principal"
)

// Principal is the authenticated caller.
type Principal struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	VendorID string `json:"vendor_id,omitempty"`
}

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithPrincipal stores the caller on ctx, including its user id.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = WithUserID(ctx, p.ID)
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
