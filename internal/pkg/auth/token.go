package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
)

const defaultPaymentTokenTTL = 15 * time.Minute

type paymentClaims struct {
	Hash           string `json:"hash"`
	GatewayOrderID string `json:"razorpay_order_id"`
	UserID         string `json:"user_id"`
	jwt.RegisteredClaims
}

// PaymentTokens issues and verifies the short-lived token that binds an order payload
// to the gateway order created for it.
type PaymentTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewPaymentTokens builds PaymentTokens with provided secret and lifetime.
func NewPaymentTokens(secret string, ttl time.Duration) *PaymentTokens {
	if ttl <= 0 {
		ttl = defaultPaymentTokenTTL
	}
	return &PaymentTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs claims as an HS256 JWT.
func (p *PaymentTokens) Issue(c model.PaymentClaims) (string, error) {
	now := p.now()
	claims := paymentClaims{
		Hash:           c.Hash,
		GatewayOrderID: c.GatewayOrderID,
		UserID:         c.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign payment token: %w", err)
	}
	return signed, nil
}

// Parse validates signature, algorithm and expiry and returns the embedded claims.
func (p *PaymentTokens) Parse(token string) (model.PaymentClaims, error) {
	var claims paymentClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !parsed.Valid {
		return model.PaymentClaims{}, domainErrors.ErrInvalidPaymentToken
	}
	return model.PaymentClaims{
		Hash:           claims.Hash,
		GatewayOrderID: claims.GatewayOrderID,
		UserID:         claims.UserID,
	}, nil
}
