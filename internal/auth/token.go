package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

// TokenType separates access tokens from refresh tokens. Each type is signed
// with its own secret.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var ErrWrongTokenType = errors.New("auth: wrong token type")

// Claims are the verified contents of a token.
type Claims struct {
	JTI       string
	AdminID   uuid.UUID
	Email     string
	Role      domain.Role
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Type  TokenType   `json:"typ"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Manager signs and parses HS256 tokens.
type Manager struct {
	cfg TokenConfig
	now func() time.Time
}

func NewManager(cfg TokenConfig) *Manager {
	return &Manager{cfg: cfg, now: time.Now}
}

func (m *Manager) secret(typ TokenType) []byte {
	if typ == RefreshToken {
		return []byte(m.cfg.RefreshSecret)
	}
	return []byte(m.cfg.AccessSecret)
}

// TTL returns the lifetime of tokens of typ.
func (m *Manager) TTL(typ TokenType) time.Duration {
	if typ == RefreshToken {
		return m.cfg.RefreshTTL
	}
	return m.cfg.AccessTTL
}

// Issue signs a token of typ for admin.
func (m *Manager) Issue(admin *domain.Admin, typ TokenType) (string, Claims, error) {
	now := m.now().UTC()
	jti := uuid.NewString()

	cl := jwtClaims{
		Email: admin.Email,
		Role:  admin.Role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   admin.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL(typ))),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret(typ))
	if err != nil {
		return "", Claims{}, fmt.Errorf("auth: sign %s token: %w", typ, err)
	}
	return signed, toClaims(cl), nil
}

// Parse verifies signature, expiry, issuer and type and returns the claims.
func (m *Manager) Parse(raw string, typ TokenType) (Claims, error) {
	var out jwtClaims
	tkn, err := jwt.ParseWithClaims(raw, &out, func(*jwt.Token) (any, error) {
		return m.secret(typ), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, err
	}
	if !tkn.Valid {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	if out.Type != typ {
		return Claims{}, ErrWrongTokenType
	}
	if _, err := uuid.Parse(out.Subject); err != nil {
		return Claims{}, jwt.ErrTokenInvalidSubject
	}
	return toClaims(out), nil
}

func toClaims(cl jwtClaims) Claims {
	id, _ := uuid.Parse(cl.Subject)
	return Claims{
		JTI:       cl.ID,
		AdminID:   id,
		Email:     cl.Email,
		Role:      cl.Role,
		Type:      cl.Type,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}
}
