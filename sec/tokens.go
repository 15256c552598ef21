package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims identify this service to a collaborator (upload endpoint)
type ServiceClaims struct {
	jwt.RegisteredClaims
	Filename string `json:"filename,omitempty"`
}

// NewServiceToken mints a short-lived HS256 token.
// iss: this service's client id
// aud: the collaborator
func NewServiceToken(secret []byte, iss, aud, filename string, expDuration time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	now := time.Now()
	claims := ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss,
			Audience:  jwt.ClaimStrings{aud},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expDuration)),
		},
		Filename: filename,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseServiceToken verifies a token minted by NewServiceToken
func ParseServiceToken(signedToken string, secret []byte, aud string) (*ServiceClaims, error) {
	var claims ServiceClaims
	_, err := jwt.ParseWithClaims(signedToken, &claims, func(token *jwt.Token) (any, error) {
		// ensure alg is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithAudience(aud), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

func ExtractBearerToken(header string) string {
	const prefix = "Bearer "
	prefixLen := len(prefix)
	if len(header) > prefixLen && header[:prefixLen] == prefix {
		return header[prefixLen:]
	}
	return ""
}
