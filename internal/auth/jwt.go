// Package auth verifies the login tickets minted by the account service.
// The world server never sees credentials; it only checks that a ticket is
// signed with the shared secret and not yet expired.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("ticket invalid")
	ErrTokenExpired = errors.New("ticket expired")
)

// Claims carried in a login ticket.
type Claims struct {
	AccountID int64 `json:"accountId"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 login tickets.
type Verifier struct {
	secretKey []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secretKey: []byte(secret)}
}

// Verify validates the ticket and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secretKey, nil
		},
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Mint issues a ticket. The account service owns minting in production; the
// server uses this only in tests and local single-process setups.
func (v *Verifier) Mint(accountID int64, ttl time.Duration) (string, error) {
	claims := &Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "ebonreach-login",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secretKey)
}
