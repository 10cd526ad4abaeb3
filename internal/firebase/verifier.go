package firebase

import (
	"context"

	"firebase.google.com/go/auth"
	"github.com/wemake-app/wemake-api/internal/services"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// TokenVerifier checks Firebase ID tokens.
type TokenVerifier struct {
	client idTokenVerifier
}

func NewTokenVerifier(client idTokenVerifier) *TokenVerifier {
	return &TokenVerifier{client: client}
}

// VerifyIDToken verifies the token and extracts the profile claims.
func (v *TokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*services.FederatedIdentity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	return &services.FederatedIdentity{
		UID:      token.UID,
		Email:    stringClaim(token.Claims, "email"),
		Name:     stringClaim(token.Claims, "name"),
		PhotoURL: stringClaim(token.Claims, "picture"),
	}, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
