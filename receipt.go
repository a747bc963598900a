package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"go-guest-registry/models"
)

// ReceiptCreator mints the signed receipt handed to the guest after an
// accepted submission. The receipt carries no identity data, only enough to
// reference the registration afterwards.
type ReceiptCreator interface {
	CreateReceiptJwt(sessionId string, record *models.RegistrationRecord) (jwt string, err error)
}

func NewHmacReceiptCreator(secret string, validity time.Duration) (*HmacReceiptCreator, error) {
	if secret == "" {
		return nil, fmt.Errorf("receipt secret must not be empty")
	}
	if validity <= 0 {
		validity = 30 * 24 * time.Hour
	}
	return &HmacReceiptCreator{
		secret:   []byte(secret),
		validity: validity,
	}, nil
}

type HmacReceiptCreator struct {
	secret   []byte
	validity time.Duration
}

type ReceiptClaims struct {
	jwt.RegisteredClaims
	Property   string `json:"property"`
	GuestCount int    `json:"guest_count"`
}

func (rc *HmacReceiptCreator) CreateReceiptJwt(sessionId string, record *models.RegistrationRecord) (string, error) {
	now := time.Now()
	claims := ReceiptClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionId,
			Issuer:    "guest-registry",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(rc.validity)),
		},
		Property:   record.Property,
		GuestCount: len(record.Guests),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(rc.secret)
}

// ParseReceiptJwt verifies a receipt and returns its claims.
func (rc *HmacReceiptCreator) ParseReceiptJwt(tokenString string) (*ReceiptClaims, error) {
	var claims ReceiptClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return rc.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid receipt token")
	}
	return &claims, nil
}
