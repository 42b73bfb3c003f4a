// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

// UserInfo is the slice of a user the auth flows need. Tier is the tier
// name, empty when the user has none.
type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Tier         string
	TokenVersion int
	CreatedAt    time.Time
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		email, passwordHash, name string,
	) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type Service struct {
	repo         Repository
	jwt          *JWTManager
	userProvider UserProvider
	blacklist    Blacklist
	logger       *slog.Logger
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	userProvider UserProvider,
	blacklist Blacklist,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		jwt:          jwt,
		userProvider: userProvider,
		blacklist:    blacklist,
		logger:       logger,
	}
}

// VerifyAccessToken checks signature and expiry, then the revocation
// blacklist, then the user's token version. A blacklist outage lets the
// token through with a warning; the version check still applies.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.IsAccessTokenBlacklisted(ctx, claims.JTI)
	if err != nil {
		s.logger.WarnContext(ctx, "blacklist unavailable",
			"error", err,
			"user_id", claims.UserID,
		)
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	if err := s.ValidateTokenVersion(ctx, claims.UserID, claims.TokenVersion); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
		return nil, err
	}

	return claims, nil
}

// ClientInfo describes the device a session is issued to.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	client ClientInfo,
) (*AuthResponse, error) {
	user, err := s.userProvider.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.userProvider.UpdatePassword(ctx, user.ID, newHash)
	}

	return s.issue(ctx, user, IssuedLogin, client, nil)
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	client ClientInfo,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Create(ctx, req.Email, passwordHash, req.Name)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(ctx, user, IssuedRegister, client, nil)
}

// Refresh rotates a session. Presenting a token that was already rotated
// revokes its whole family; any later token from that family is answered
// with ErrTokenReuse too.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
	via IssuedVia,
	client ClientInfo,
) (*AuthResponse, error) {
	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	switch stored.State(time.Now()) {
	case SessionRotated:
		n, err := s.repo.RevokeFamily(ctx, stored.FamilyID, RevokedReuse)
		s.logger.WarnContext(ctx, "refresh token reuse, session family revoked",
			"user_id", stored.UserID,
			"family_id", stored.FamilyID,
			"revoked", n,
			"error", err,
		)
		return nil, ErrTokenReuse
	case SessionRevoked:
		if stored.revokedFor(RevokedReuse) {
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	case SessionExpired:
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.userProvider.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.Tier != stored.Tier {
		s.logger.InfoContext(ctx, "tier changed since session was issued",
			"user_id", user.ID,
			"from", stored.Tier,
			"to", user.Tier,
		)
	}

	return s.issue(ctx, user, via, client, stored)
}

// Logout revokes the refresh token and blacklists the access token the
// request was made with. Either may be missing.
func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	access *middleware.AccessTokenClaims,
) error {
	userID := access.UserID

	if access.JTI != "" {
		if err := s.RevokeAccessToken(ctx, access.JTI, access.ExpiresAt); err != nil {
			s.logger.WarnContext(ctx, "blacklist access token failed",
				"error", err,
				"user_id", userID,
			)
		}
	}

	if refreshToken == "" {
		return nil
	}

	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find session: %w", err)
	}

	if stored.UserID != userID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	if err := s.repo.Revoke(ctx, stored.ID, RevokedLogout); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.endAllSessions(ctx, userID, RevokedLogoutAll)
}

// endAllSessions revokes every session and bumps the token version so
// outstanding access tokens stop verifying too.
func (s *Service) endAllSessions(ctx context.Context, userID string, reason RevokeReason) error {
	n, err := s.repo.RevokeAllForUser(ctx, userID, reason)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	if err := s.userProvider.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	s.logger.InfoContext(ctx, "sessions ended",
		"user_id", userID,
		"reason", reason,
		"revoked", n,
	)
	return nil
}

func (s *Service) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	return s.blacklist.Revoke(ctx, jti, ttl)
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	return s.blacklist.IsRevoked(ctx, jti)
}

// ListSessions returns the user's live sessions. presented is the refresh
// token the caller holds, if any; its session is flagged as current.
func (s *Service) ListSessions(
	ctx context.Context,
	userID, presented string,
) ([]SessionInfo, error) {
	sessions, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var currentHash string
	if presented != "" {
		currentHash = core.HashToken(presented)
	}

	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionInfo{
			ID:        sess.ID,
			Tier:      sess.Tier,
			IssuedVia: sess.IssuedVia,
			Current:   currentHash != "" && sess.TokenHash == currentHash,
			UserAgent: sess.UserAgent,
			IPAddress: sess.IPAddress,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
		})
	}

	return out, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if sess.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.repo.Revoke(ctx, sessionID, RevokedByUser); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordWithRehash(
		currentPassword,
		user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userProvider.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.endAllSessions(ctx, userID, RevokedPasswordChanged)
}

func (s *Service) ValidateTokenVersion(
	ctx context.Context,
	userID string,
	tokenVersion int,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if tokenVersion < user.TokenVersion {
		return fmt.Errorf("validate token version: %w", core.ErrTokenRevoked)
	}

	return nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Tier:      u.Tier,
		CreatedAt: u.CreatedAt,
	}
}

// issue signs an access token and stores a new session. When prev is set
// the new session joins prev's family and prev is rotated first, so two
// concurrent refreshes of one token cannot both succeed.
func (s *Service) issue(
	ctx context.Context,
	user *UserInfo,
	via IssuedVia,
	client ClientInfo,
	prev *Session,
) (*AuthResponse, error) {
	familyID := ""
	sessionID := uuid.New().String()
	if prev != nil {
		familyID = prev.FamilyID
		if err := s.repo.Rotate(ctx, prev.ID, sessionID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
			}
			return nil, fmt.Errorf("rotate session: %w", err)
		}
	}

	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		Tier:         user.Tier,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(user.ID, familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	sess := &Session{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		Tier:      user.Tier,
		IssuedVia: via,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	now := time.Now()
	return &AuthResponse{
		User: toUserResponse(user),
		Tokens: TokenResponse{
			AccessToken:      accessToken,
			RefreshToken:     refreshData.Token,
			TokenType:        "Bearer",
			ExpiresIn:        int(s.jwt.AccessTTL() / time.Second),
			ExpiresAt:        now.Add(s.jwt.AccessTTL()),
			RefreshExpiresAt: refreshData.ExpiresAt,
		},
	}, nil
}
