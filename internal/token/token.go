package token

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/jwt"
)

const DefaultLifetime = 30 * time.Minute

var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token is expired")
	ErrMalformed        = errors.New("token is malformed")
)

// Subject is the identity asserted by an access token.
type Subject struct {
	Email  string
	UserID int64
	Role   string
}

type Claims struct {
	Subject   Subject
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

/* Payload as it is signed: standard claims plus two informational ones.
 * Only "sub" is used to resolve the user back. */
type payload struct {
	ID       string `json:"jti"`
	Subject  string `json:"sub"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
	UserID   int64  `json:"user_id"`
	Role     string `json:"role"`
}

type Service struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(secret []byte, lifetime time.Duration, opts ...Option) *Service {
	s := &Service{
		secret:   secret,
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Lifetime() time.Duration {
	return s.lifetime
}

// Issue signs an HS256 token valid from issuedAt (truncated to whole seconds,
// the resolution of JWT timestamps) for the configured lifetime.
func (s *Service) Issue(subject Subject, issuedAt time.Time) (string, *Claims, error) {
	issuedAt = issuedAt.Truncate(time.Second)
	claims := &Claims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.lifetime),
	}

	token, err := jwt.Sign(jwt.HS256, s.secret, payload{
		ID:       claims.ID,
		Subject:  subject.Email,
		IssuedAt: claims.IssuedAt.Unix(),
		Expiry:   claims.ExpiresAt.Unix(),
		UserID:   subject.UserID,
		Role:     subject.Role,
	})
	if err != nil {
		return "", nil, err
	}
	return string(token), claims, nil
}

// Verify checks the signature and the expiration against the service clock.
func (s *Service) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMalformed
	}
	now := s.now()

	verifiedToken, err := jwt.Verify(jwt.HS256, s.secret, []byte(token), s.expiryValidator(now))
	if err != nil {
		return nil, classify(err)
	}

	var p payload
	if err = verifiedToken.Claims(&p); err != nil {
		return nil, ErrMalformed
	}
	if p.Subject == "" || p.Expiry == 0 {
		return nil, ErrMalformed
	}
	return &Claims{
		Subject:   Subject{Email: p.Subject, UserID: p.UserID, Role: p.Role},
		ID:        p.ID,
		IssuedAt:  time.Unix(p.IssuedAt, 0),
		ExpiresAt: time.Unix(p.Expiry, 0),
	}, nil
}

/* The library validates "exp" against its own package-level clock.
 * This validator replaces that decision with one taken against the service clock:
 * a token is expired once now >= exp. */
func (s *Service) expiryValidator(now time.Time) jwt.TokenValidatorFunc {
	return func(_ []byte, standardClaims jwt.Claims, err error) error {
		if err != nil && !errors.Is(err, jwt.ErrExpired) {
			return err
		}
		if standardClaims.Expiry == 0 {
			return ErrMalformed
		}
		if !now.Before(time.Unix(standardClaims.Expiry, 0)) {
			return jwt.ErrExpired
		}
		return nil
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignature):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
