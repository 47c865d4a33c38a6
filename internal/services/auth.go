package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/rastion-hub/internal/data/repos"
	"github.com/yungbote/rastion-hub/internal/domain/user"
	"github.com/yungbote/rastion-hub/internal/platform/apierr"
	"github.com/yungbote/rastion-hub/internal/platform/dbctx"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	User        *user.User
}

// AuthService accepts two kinds of bearer credential: session tokens issued
// here and raw GitHub access tokens. Callers never say which one they hold.
type AuthService interface {
	ResolveCaller(ctx context.Context, credential string) (*user.User, error)
	LoginURL(redirectURI string) string
	// CompleteCallback finishes the browser OAuth flow and hands back the
	// upstream token for the user to paste into their client.
	CompleteCallback(ctx context.Context, code, redirectURI string) (string, *user.User, error)
	LoginWithUpstream(ctx context.Context, upstreamToken string) (*LoginResult, error)
	// VerifyCredential reports an unauthenticated credential as (nil, false, nil).
	VerifyCredential(ctx context.Context, credential string) (*user.User, bool, error)
}

type authService struct {
	log      *logger.Logger
	sessions SessionTokenService
	identity IdentityService
	userRepo repos.UserRepo
}

func NewAuthService(log *logger.Logger, sessions SessionTokenService, identity IdentityService, userRepo repos.UserRepo) AuthService {
	return &authService{
		log:      log.With("service", "AuthService"),
		sessions: sessions,
		identity: identity,
		userRepo: userRepo,
	}
}

func (s *authService) ResolveCaller(ctx context.Context, credential string) (*user.User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, apierr.Unauthenticated("missing bearer token")
	}

	if uid, err := s.sessions.Verify(credential); err == nil {
		u, err := s.userRepo.GetByID(dbctx.Context{Ctx: ctx}, uid)
		if err != nil {
			return nil, fmt.Errorf("load session user: %w", err)
		}
		if u != nil {
			return u, nil
		}
		s.log.Debug("Session token for unknown user, trying upstream", "user_id", uid)
	}

	// Long-lived upstream tokens are accepted directly so CLI clients can skip
	// the session exchange.
	profile, err := s.identity.FetchProfile(ctx, credential)
	if err != nil {
		return nil, err
	}
	u, err := s.identity.Reconcile(ctx, profile)
	if err != nil {
		return nil, err
	}
	s.log.Debug("Caller resolved via upstream token", "user_id", u.ID)
	return u, nil
}

func (s *authService) LoginURL(redirectURI string) string {
	return s.identity.AuthorizeURL(redirectURI)
}

func (s *authService) CompleteCallback(ctx context.Context, code, redirectURI string) (string, *user.User, error) {
	upstreamToken, err := s.identity.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return "", nil, err
	}
	profile, err := s.identity.FetchProfile(ctx, upstreamToken)
	if err != nil {
		return "", nil, err
	}
	u, err := s.identity.Reconcile(ctx, profile)
	if err != nil {
		return "", nil, err
	}
	s.log.Info("OAuth callback completed", "user_id", u.ID)
	return upstreamToken, u, nil
}

func (s *authService) LoginWithUpstream(ctx context.Context, upstreamToken string) (*LoginResult, error) {
	upstreamToken = strings.TrimSpace(upstreamToken)
	if upstreamToken == "" {
		return nil, apierr.Unauthenticated("missing bearer token")
	}
	profile, err := s.identity.FetchProfile(ctx, upstreamToken)
	if err != nil {
		return nil, err
	}
	u, err := s.identity.Reconcile(ctx, profile)
	if err != nil {
		return nil, err
	}
	tok, _, err := s.sessions.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &LoginResult{
		AccessToken: tok,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.sessions.TTL().Seconds()),
		User:        u,
	}, nil
}

func (s *authService) VerifyCredential(ctx context.Context, credential string) (*user.User, bool, error) {
	u, err := s.ResolveCaller(ctx, credential)
	if errors.Is(err, apierr.ErrUnauthenticated) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
