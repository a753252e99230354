package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/userdeck-io/userdeck/internal/apperrors"
)

// DefaultTokenTTL is used when no token lifetime is configured.
const DefaultTokenTTL = 30 * time.Minute

// TokenManager issues and verifies signed session tokens. Verification is
// stateless: any instance holding the secret can validate a token issued by
// any other instance, so no shared session store is needed.
type TokenManager struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager for the given symmetric secret and
// HMAC algorithm (HS256, HS384 or HS512). An empty secret or a non-HMAC
// algorithm is a configuration error.
func NewTokenManager(secret, algorithm string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty signing secret", apperrors.ErrConfiguration)
	}
	if algorithm == "" {
		algorithm = "HS256"
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", apperrors.ErrConfiguration, algorithm)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), method: method, ttl: ttl}, nil
}

// TTL returns the configured default token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue signs the claims with an expiry of now plus ttl. A zero ttl uses the
// configured default; any other duration is honored as given, so a negative
// ttl produces an already-expired token. The caller's claims map is not
// modified.
func (tm *TokenManager) Issue(claims map[string]interface{}, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = tm.ttl
	}
	now := time.Now()
	mapped := jwt.MapClaims{}
	for k, v := range claims {
		mapped[k] = v
	}
	mapped["iat"] = jwt.NewNumericDate(now)
	mapped["exp"] = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(tm.method, mapped)
	return token.SignedString(tm.secret)
}

// Verify checks the signature, the signing algorithm and the expiry against
// the wall clock at call time, and returns the decoded claims. Every failure
// mode collapses to ErrInvalidToken.
func (tm *TokenManager) Verify(tokenString string) (map[string]interface{}, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != tm.method.Alg() {
			return nil, apperrors.ErrInvalidToken
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
