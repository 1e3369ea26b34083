package auth

import (
	"context"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// Marketplace roles carried in the Firebase "role" custom claim.
const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

// Identity captures the authenticated principal extracted from a Firebase ID token.
type Identity struct {
	UID   string
	Email string
	Name  string
	Roles []string
	// VendorID is the vendor account a vendor-role user acts for, from the vendor_id claim.
	VendorID string

	token *firebaseauth.Token
}

// Token exposes the decoded Firebase ID token associated with this identity.
func (i *Identity) Token() *firebaseauth.Token {
	if i == nil {
		return nil
	}
	return i.token
}

// HasRole reports whether the identity includes the requested role (case-insensitive).
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	role = normaliseRole(role)
	if role == "" {
		return false
	}
	for _, r := range i.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity includes any of the provided roles.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// PrimaryRole returns the most privileged role held, for log fields.
func (i *Identity) PrimaryRole() string {
	for _, role := range []string{RoleAdmin, RoleVendor, RoleCustomer} {
		if i.HasRole(role) {
			return role
		}
	}
	if i != nil && len(i.Roles) > 0 {
		return i.Roles[0]
	}
	return ""
}

// CanActForVendor reports whether the identity may update the given vendor's orders.
func (i *Identity) CanActForVendor(vendorID string) bool {
	if i == nil {
		return false
	}
	if i.IsAdmin() {
		return true
	}
	vendorID = strings.TrimSpace(vendorID)
	return vendorID != "" && i.HasRole(RoleVendor) && i.VendorID == vendorID
}

type contextKey string

const identityContextKey contextKey = "github.com/timi-123/shop-admin-sub000/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
