// Package identity resolves a bearer credential to a stable clinician id.
// The resolved id is the sole source of ownership for every write; nothing in
// a request body is ever trusted for it.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supabase-community/supabase-go"
)

// ErrInvalidCredential is the only failure callers should surface. Verifier
// implementations wrap their internal causes underneath it so the HTTP layer
// cannot leak verification detail.
var ErrInvalidCredential = errors.New("invalid credential")

type Verifier interface {
	// Verify returns the clinician id for a valid credential.
	Verify(token string) (string, error)
}

// JWTVerifier validates Supabase access tokens locally with the project JWT
// secret (HS256) and reads the user id from the sub claim.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return "", ErrInvalidCredential
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCredential
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing sub claim", ErrInvalidCredential)
	}
	return sub, nil
}

// SupabaseVerifier delegates verification to Supabase Auth, asking it to
// resolve the user behind the token. Used when the JWT secret is not
// configured locally.
type SupabaseVerifier struct {
	client *supabase.Client
}

func NewSupabaseVerifier(client *supabase.Client) *SupabaseVerifier {
	return &SupabaseVerifier{client: client}
}

func (v *SupabaseVerifier) Verify(token string) (string, error) {
	resp, err := v.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return resp.ID.String(), nil
}
