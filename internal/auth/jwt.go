package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token roles.
const (
	RoleAdmin   = "admin"
	RoleCheckin = "checkin"
)

// Token is a signed token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Claims represents JWT payload.
type Claims struct {
	Role     string  `json:"role"`
	Distance float64 `json:"dist,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and parses HS256 tokens for one issuer.
type Signer struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewSigner builds a signer.
func NewSigner(key, issuer string) *Signer {
	return &Signer{key: []byte(key), issuer: issuer, now: time.Now}
}

// IssueAdmin issues an administrator session token.
func (s *Signer) IssueAdmin(ttl time.Duration) (Token, error) {
	return s.issue(Claims{Role: RoleAdmin}, "admin", ttl)
}

// IssuePass issues a gate pass proving a check-in was admitted. The pass carries
// nothing but the fact that the gate passed and the measured distance.
func (s *Signer) IssuePass(distance float64, ttl time.Duration) (Token, error) {
	return s.issue(Claims{Role: RoleCheckin, Distance: distance}, "checkin", ttl)
}

func (s *Signer) issue(claims Claims, subject string, ttl time.Duration) (Token, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns claims.
func (s *Signer) Parse(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return *claims, nil
}
