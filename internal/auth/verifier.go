package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-apotek/internal/common"
)

const (
	claimRole    = "role"
	claimSession = "sid"
)

// Config describes the shared-secret tokens issued by the login service.
type Config struct {
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// Verifier checks bearer tokens and turns them into principals.
type Verifier struct {
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
	validator TokenValidator
	now       func() time.Time
}

// NewVerifier builds an HS256 verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	return &Verifier{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		clockSkew: cfg.ClockSkew,
		validator: TokenValidator{
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			ClockSkew: cfg.ClockSkew,
			Algorithm: jwa.HS256,
			Required:  []string{claimRole},
		},
		now: time.Now,
	}, nil
}

// WithNow overrides the clock used for validation and signing.
func (v *Verifier) WithNow(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// ParseAccessToken validates token and returns its principal.
func (v *Verifier) ParseAccessToken(token string) (common.Principal, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Principal{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Principal{}, invalidToken(err)
	}
	if algorithm != v.validator.Algorithm {
		return common.Principal{}, invalidToken(fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.secret), jwt.WithValidate(false))
	if err != nil {
		return common.Principal{}, invalidToken(err)
	}
	if err := v.validator.Validate(parsed, algorithm, v.now()); err != nil {
		return common.Principal{}, invalidToken(err)
	}

	role, _ := stringClaim(parsed, claimRole)
	if role != common.RoleStaff && role != common.RoleOwner {
		return common.Principal{}, invalidToken(fmt.Errorf("unknown role %q", role))
	}
	sid, _ := stringClaim(parsed, claimSession)
	return common.Principal{StaffID: parsed.Subject(), Role: role, SessionID: sid}, nil
}

// Sign issues a token for p. The login service owns issuance in production;
// tests and the seeder use this to mint tokens for a known staff member.
func (v *Verifier) Sign(p common.Principal, ttl time.Duration) (string, error) {
	now := v.now()
	if p.SessionID == "" {
		p.SessionID = uuid.NewString()
	}
	builder := jwt.NewBuilder().
		Subject(p.StaffID).
		IssuedAt(now).
		NotBefore(now.Add(-v.clockSkew)).
		Expiration(now.Add(ttl)).
		Claim(claimRole, p.Role).
		Claim(claimSession, p.SessionID)
	if v.issuer != "" {
		builder = builder.Issuer(v.issuer)
	}
	if v.audience != "" {
		builder = builder.Audience([]string{v.audience})
	}
	token, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, v.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

func invalidToken(err error) error {
	return common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
}

func stringClaim(tok jwt.Token, name string) (string, bool) {
	raw, ok := tok.Get(name)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
