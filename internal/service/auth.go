package service

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"

	"github.com/Victorkib/mentacare-backend-admin/cache"
	"github.com/Victorkib/mentacare-backend-admin/internal/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/store"
)

const badCredentials = "invalid email or password"

// Tokens is a freshly issued access/refresh pair.
type Tokens struct {
	Admin            *domain.Admin `json:"admin"`
	AccessToken      string        `json:"-"`
	RefreshToken     string        `json:"-"`
	AccessExpiresAt  time.Time     `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time     `json:"refreshExpiresAt"`
}

type AuthService struct {
	base
	repo      repository.Repository[*domain.Admin]
	tokens    *auth.Manager
	hasher    *auth.Hasher
	blacklist auth.Blacklist
}

func NewAuthService(d Deps, repo repository.Repository[*domain.Admin], tokens *auth.Manager, hasher *auth.Hasher, blacklist auth.Blacklist) *AuthService {
	return &AuthService{
		base:      newBase(d, "auth"),
		repo:      repo,
		tokens:    tokens,
		hasher:    hasher,
		blacklist: blacklist,
	}
}

// Login checks the credentials against the stored hash, bypassing the cache,
// and issues a token pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Tokens, error) {
	if err := in.Validate(); err != nil {
		return Tokens{}, domain.FromValidation(err)
	}
	admin, err := s.repo.GetByIdentifierTx(ctx, s.db, normalizeEmail(in.Email))
	if err != nil {
		if domain.IsNotFound(err) {
			return Tokens{}, domain.Unauthorized(badCredentials)
		}
		return Tokens{}, err
	}
	ok, err := s.hasher.Verify(in.Password, admin.PasswordHash)
	if err != nil {
		return Tokens{}, domain.Internal(err, "verify password")
	}
	if !ok {
		return Tokens{}, domain.Unauthorized(badCredentials)
	}
	if !admin.Active {
		return Tokens{}, domain.Forbidden("account is disabled")
	}

	now := s.now()
	admin.LastLoginAt = &now
	admin.UpdatedAt = now
	if err := store.SaveAdmin(ctx, s.db, admin); err != nil {
		return Tokens{}, err
	}
	s.invalidate(cache.RegionAdmins)
	s.log.Info("admin logged in", "id", admin.ID)
	return s.issue(admin)
}

func (s *AuthService) issue(admin *domain.Admin) (Tokens, error) {
	access, ac, err := s.tokens.Issue(admin, auth.AccessToken)
	if err != nil {
		return Tokens{}, domain.Internal(err, "issue access token")
	}
	refresh, rc, err := s.tokens.Issue(admin, auth.RefreshToken)
	if err != nil {
		return Tokens{}, domain.Internal(err, "issue refresh token")
	}
	return Tokens{
		Admin:            admin,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  ac.ExpiresAt,
		RefreshExpiresAt: rc.ExpiresAt,
	}, nil
}

// Authenticate resolves an access token into the caller's identity.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (auth.Identity, error) {
	if raw == "" {
		return auth.Identity{}, domain.Unauthorized("authentication required")
	}
	claims, err := s.tokens.Parse(raw, auth.AccessToken)
	if err != nil {
		return auth.Identity{}, domain.Unauthorized("invalid or expired token")
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return auth.Identity{}, domain.Internal(err, "check token revocation")
	}
	if revoked {
		return auth.Identity{}, domain.Unauthorized("token has been revoked")
	}
	return auth.Identity{
		AdminID: claims.AdminID,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.JTI,
		Claims:  claims,
	}, nil
}

// Logout revokes the access token and, when given and valid, the refresh token.
func (s *AuthService) Logout(ctx context.Context, who auth.Identity, refreshRaw string) error {
	if err := s.blacklist.Revoke(ctx, who.TokenID, who.Claims.ExpiresAt); err != nil {
		return domain.Internal(err, "revoke access token")
	}
	if refreshRaw == "" {
		return nil
	}
	rc, err := s.tokens.Parse(refreshRaw, auth.RefreshToken)
	if err != nil {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, rc.JTI, rc.ExpiresAt); err != nil {
		return domain.Internal(err, "revoke refresh token")
	}
	s.log.Info("admin logged out", "id", who.AdminID)
	return nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued. Deactivated accounts cannot refresh.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Tokens, error) {
	if raw == "" {
		return Tokens{}, domain.Unauthorized("refresh token required")
	}
	claims, err := s.tokens.Parse(raw, auth.RefreshToken)
	if err != nil {
		return Tokens{}, domain.Unauthorized("invalid or expired refresh token")
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return Tokens{}, domain.Internal(err, "check token revocation")
	}
	if revoked {
		return Tokens{}, domain.Unauthorized("refresh token has been revoked")
	}

	admin, err := s.repo.GetByIDTx(ctx, s.db, claims.AdminID.String())
	if err != nil {
		if domain.IsNotFound(err) {
			return Tokens{}, domain.Unauthorized("account no longer exists")
		}
		return Tokens{}, err
	}
	if !admin.Active {
		return Tokens{}, domain.Forbidden("account is disabled")
	}
	if err := s.blacklist.Revoke(ctx, claims.JTI, claims.ExpiresAt); err != nil {
		return Tokens{}, domain.Internal(err, "revoke refresh token")
	}
	return s.issue(admin)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, who auth.Identity) (*domain.Admin, error) {
	a, err := s.repo.GetByID(ctx, who.AdminID.String())
	return a, adminErr(err, who.AdminID)
}
