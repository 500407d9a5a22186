package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ParticipantTTL = 24 * time.Hour
	AdminTTL       = 10 * time.Minute

	AdminSubject = "admin"
)

// ErrSigningConfig is returned when the API key or secret needed to sign a
// credential is missing.
var ErrSigningConfig = errors.New("auth: signing configuration invalid")

// Credentials is the API key/secret pair of one room-service endpoint.
// Never log it.
type Credentials struct {
	APIKey    string
	APISecret string
}

func (c Credentials) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key is empty", ErrSigningConfig)
	}
	if c.APISecret == "" {
		return fmt.Errorf("%w: api secret is empty", ErrSigningConfig)
	}
	return nil
}

// Issuer mints room-service credentials. It is stateless; keys are passed per
// call because each channel may carry its own pair.
type Issuer struct {
	participantTTL time.Duration
	adminTTL       time.Duration
}

func NewIssuer() *Issuer {
	return &Issuer{participantTTL: ParticipantTTL, adminTTL: AdminTTL}
}

/* ===================== ISSUE TOKENS ===================== */

// IssueParticipant signs a credential letting identity join, publish,
// subscribe and send data in roomName.
func (i *Issuer) IssueParticipant(now time.Time, roomName, identity string, key Credentials) (string, error) {
	if roomName == "" {
		return "", errors.New("auth: room name required")
	}
	return i.issue(now, identity, participantGrant(roomName), i.participantTTL, key)
}

// IssueAdmin signs a short-lived credential for the room-service admin API.
func (i *Issuer) IssueAdmin(now time.Time, key Credentials) (string, error) {
	return i.issue(now, AdminSubject, adminGrant(), i.adminTTL, key)
}

/* ===================== VERIFY TOKEN ===================== */

// Verify parses token and checks signature, time claims and issuer against key.
func (i *Issuer) Verify(tokenString string, key Credentials, now time.Time) (Claims, error) {
	if err := key.validate(); err != nil {
		return Claims{}, err
	}
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30*time.Second), // clock skew tolerance
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(key.APIKey),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return []byte(key.APISecret), nil
	})
	if err != nil {
		return Claims{}, err
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("auth: subject missing")
	}
	return claims, nil
}

/* ===================== INTERNAL ISSUE ===================== */

func (i *Issuer) issue(now time.Time, subject string, grant VideoGrant, ttl time.Duration, key Credentials) (string, error) {
	if err := key.validate(); err != nil {
		return "", err
	}
	if subject == "" {
		return "", errors.New("auth: identity required")
	}

	now = now.Truncate(time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    key.APIKey,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Video: grant,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString([]byte(key.APISecret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningConfig, err)
	}
	return s, nil
}
