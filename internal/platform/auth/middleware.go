package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/timi-123/shop-admin-sub000/internal/platform/httpx"
	"github.com/timi-123/shop-admin-sub000/internal/platform/requestctx"
)

// Custom claims set on marketplace users.
const (
	roleClaim     = "role"
	vendorIDClaim = "vendor_id"
	emailClaim    = "email"
	nameClaim     = "name"
)

const defaultVerifyTimeout = 5 * time.Second

// Error codes written by RequireFirebaseAuth.
const (
	CodeUnauthenticated  = "unauthenticated"
	CodeTokenExpired     = "token_expired"
	CodeTokenRevoked     = "token_revoked"
	CodeInvalidToken     = "invalid_token"
	CodeMissingVendor    = "missing_vendor"
	CodeInsufficientRole = "insufficient_role"
)

var (
	// ErrTokenExpired signals that the provided Firebase ID token has expired.
	ErrTokenExpired = errors.New("auth: firebase id token expired")
	// ErrTokenRevoked signals a revoked session or a disabled account.
	ErrTokenRevoked = errors.New("auth: firebase id token revoked")
)

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// Authenticator turns a Firebase bearer token into a marketplace Identity.
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator constructs an Authenticator for middleware composition.
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// RequireFirebaseAuth verifies the Authorization bearer token. Users without a role claim are
// customers. A vendor user must carry a vendor_id claim naming the vendor they act for. When
// allowedRoles is non-empty the identity must hold one of them or the request is rejected with 403.
func (a *Authenticator) RequireFirebaseAuth(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeAuthError(ctx, w, http.StatusUnauthorized, CodeUnauthenticated, "authorization header missing or invalid")
				return
			}
			if a == nil || a.verifier == nil {
				writeAuthError(ctx, w, http.StatusUnauthorized, CodeUnauthenticated, "authorization service unavailable")
				return
			}

			token, err := a.verifier.VerifyIDToken(ctx, tokenStr)
			if err != nil {
				writeVerificationError(ctx, w, err)
				return
			}

			identity := identityFromToken(token)
			if identity.HasRole(RoleVendor) && identity.VendorID == "" && !identity.IsAdmin() {
				writeAuthError(ctx, w, http.StatusForbidden, CodeMissingVendor, "vendor identity has no vendor_id claim")
				return
			}
			if len(allowedRoles) > 0 && !identity.HasAnyRole(allowedRoles...) {
				writeAuthError(ctx, w, http.StatusForbidden, CodeInsufficientRole, "identity does not have required role")
				return
			}

			requestctx.RecordActor(ctx, requestctx.Actor{
				UserID:   identity.UID,
				Role:     identity.PrimaryRole(),
				VendorID: identity.VendorID,
			})
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func identityFromToken(token *firebaseauth.Token) *Identity {
	identity := &Identity{
		UID:      token.UID,
		Email:    claimAsString(token.Claims, emailClaim),
		Name:     claimAsString(token.Claims, nameClaim),
		Roles:    rolesFromClaim(token.Claims[roleClaim]),
		VendorID: claimAsString(token.Claims, vendorIDClaim),
		token:    token,
	}
	if len(identity.Roles) == 0 {
		identity.Roles = []string{RoleCustomer}
	}
	return identity
}

// rolesFromClaim accepts "vendor", ["vendor", "admin"] or {"vendor": true}.
func rolesFromClaim(raw any) []string {
	var candidates []string
	switch v := raw.(type) {
	case string:
		candidates = []string{v}
	case []string:
		candidates = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	case map[string]any:
		for key, value := range v {
			if enabled, ok := value.(bool); ok && enabled {
				candidates = append(candidates, key)
			}
		}
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		role := normaliseRole(candidate)
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

func claimAsString(claims map[string]any, key string) string {
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func extractBearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	httpx.WriteError(ctx, w, httpx.NewError(code, message, status))
}

func writeVerificationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenRevoked):
		writeAuthError(ctx, w, http.StatusUnauthorized, CodeTokenRevoked, "firebase session revoked")
	case errors.Is(err, ErrTokenExpired), firebaseauth.IsIDTokenExpired(err):
		writeAuthError(ctx, w, http.StatusUnauthorized, CodeTokenExpired, "firebase id token expired")
	default:
		writeAuthError(ctx, w, http.StatusUnauthorized, CodeInvalidToken, "firebase id token invalid")
	}
}
