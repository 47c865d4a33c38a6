package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/data/repos"
	"github.com/yungbote/rastion-hub/internal/domain/user"
	"github.com/yungbote/rastion-hub/internal/platform/apierr"
	"github.com/yungbote/rastion-hub/internal/platform/dbctx"
	"github.com/yungbote/rastion-hub/internal/platform/github"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

// UpstreamIdentityProvider is the GitHub surface the bridge needs.
type UpstreamIdentityProvider interface {
	AuthorizeURL(redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
	FetchProfile(ctx context.Context, token string) (github.Profile, error)
}

// IdentityService turns upstream credentials into local users. Every error it
// returns is an *apierr.Error.
type IdentityService interface {
	AuthorizeURL(redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
	FetchProfile(ctx context.Context, upstreamToken string) (github.Profile, error)
	Reconcile(ctx context.Context, profile github.Profile) (*user.User, error)
}

type identityService struct {
	db       *gorm.DB
	log      *logger.Logger
	upstream UpstreamIdentityProvider
	userRepo repos.UserRepo
}

func NewIdentityService(db *gorm.DB, log *logger.Logger, upstream UpstreamIdentityProvider, userRepo repos.UserRepo) IdentityService {
	return &identityService{
		db:       db,
		log:      log.With("service", "IdentityService"),
		upstream: upstream,
		userRepo: userRepo,
	}
}

func (s *identityService) AuthorizeURL(redirectURI string) string {
	return s.upstream.AuthorizeURL(redirectURI)
}

func (s *identityService) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", apierr.BadRequest("missing oauth code")
	}
	tok, err := s.upstream.ExchangeCode(ctx, code, redirectURI)
	if err == nil {
		return tok, nil
	}
	var exErr *github.ExchangeError
	if errors.As(err, &exErr) {
		return "", apierr.OAuthExchangeFailed("%s", exErr.Error())
	}
	s.log.Warn("GitHub code exchange failed", "error", err)
	return "", apierr.UpstreamUnavailable("could not reach GitHub to exchange the oauth code")
}

func (s *identityService) FetchProfile(ctx context.Context, upstreamToken string) (github.Profile, error) {
	p, err := s.upstream.FetchProfile(ctx, upstreamToken)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, github.ErrRejected):
		return github.Profile{}, apierr.Unauthenticated("invalid GitHub token")
	default:
		s.log.Warn("GitHub profile lookup failed", "error", err)
		return github.Profile{}, apierr.UpstreamUnavailable("could not reach GitHub to verify the token")
	}
}

// Reconcile creates or refreshes the local user for a GitHub profile. A blank
// login never overwrites a stored username; the avatar is always replaced.
func (s *identityService) Reconcile(ctx context.Context, profile github.Profile) (*user.User, error) {
	ghID := strings.TrimSpace(profile.ID)
	if ghID == "" {
		return nil, apierr.Unauthenticated("GitHub profile has no id")
	}
	login := strings.TrimSpace(profile.Login)

	var out *user.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := s.userRepo.GetByGitHubID(dbc, ghID)
		if err != nil {
			return fmt.Errorf("lookup user by github id: %w", err)
		}
		if existing == nil {
			username := login
			if username == "" {
				username = "github-id-" + ghID
			}
			u := &user.User{GitHubID: ghID, Username: username, AvatarURL: profile.AvatarURL}
			if err := s.userRepo.Create(dbc, u); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			out = u
			return nil
		}

		if login != "" {
			existing.Username = login
		}
		existing.AvatarURL = profile.AvatarURL
		if err := s.userRepo.UpdateProfile(dbc, existing.ID, existing.Username, existing.AvatarURL); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		out = existing
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent first login for the same identity may have won.
		if u, lookupErr := s.userRepo.GetByGitHubID(dbctx.Context{Ctx: ctx}, ghID); lookupErr == nil && u != nil && (login == "" || u.Username == login) {
			return u, nil
		}
		return nil, apierr.Conflict("username %q is already taken", login)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
