package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds JWT validation settings.
type JWTConfig struct {
	// Secret is an HMAC-SHA256 key. Used only when PublicKeyPEM is empty.
	Secret string

	// PublicKeyPEM is a PEM-encoded RSA public key for RS256 tokens.
	PublicKeyPEM string

	Issuer string
}

// Validator verifies bearer tokens issued by the identity service.
type Validator struct {
	publicKey *rsa.PublicKey
	secret    []byte
	issuer    string
}

// NewValidator creates a Validator. RS256 is used when a public key is
// configured, HS256 otherwise.
func NewValidator(cfg JWTConfig) (*Validator, error) {
	v := &Validator{issuer: cfg.Issuer}

	switch {
	case cfg.PublicKeyPEM != "":
		pubKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		v.publicKey = pubKey
	case cfg.Secret != "":
		v.secret = []byte(cfg.Secret)
	default:
		return nil, errors.New("jwt configuration requires PublicKeyPEM or Secret")
	}

	return v, nil
}

// Validate parses and validates a JWT token string.
func (v *Validator) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.publicKey != nil {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		if v.publicKey != nil {
			return v.publicKey, nil
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// LoadKeyFromFile reads a PEM-encoded key from a file path.
func LoadKeyFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	return string(data), nil
}
