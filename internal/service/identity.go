package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	apperrors "portfolio_chat/pkg/errors"
)

// IdentityResolver extracts the caller of a websocket handshake.
type IdentityResolver struct {
	auth AuthService
}

func NewIdentityResolver(auth AuthService) *IdentityResolver {
	return &IdentityResolver{auth: auth}
}

// Resolve tries the bearer header first, then the token query parameter. It fails only
// when neither yields a valid token.
func (r *IdentityResolver) Resolve(ctx context.Context, header http.Header, query url.Values) (string, error) {
	err := apperrors.ErrUnauthorized

	for _, token := range []string{BearerToken(header.Get("Authorization")), query.Get("token")} {
		if token == "" {
			continue
		}
		user, verr := r.auth.ValidateToken(ctx, token)
		if verr != nil {
			err = verr
			continue
		}
		return user.ID, nil
	}

	return "", err
}

// BearerToken returns the token of an "Authorization: Bearer <token>" value, or "".
func BearerToken(authHeader string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
