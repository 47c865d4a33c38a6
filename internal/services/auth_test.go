package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/rastion-hub/internal/data/repos"
	"github.com/yungbote/rastion-hub/internal/data/repos/testutil"
	"github.com/yungbote/rastion-hub/internal/platform/apierr"
	"github.com/yungbote/rastion-hub/internal/platform/dbctx"
	"github.com/yungbote/rastion-hub/internal/platform/github"
)

type stubUpstream struct {
	mu        sync.Mutex
	profiles  map[string]github.Profile
	down      bool
	codes     map[string]string
	profCalls int
}

func (s *stubUpstream) AuthorizeURL(redirectURI string) string {
	return "https://github.test/authorize?redirect_uri=" + redirectURI
}

func (s *stubUpstream) ExchangeCode(_ context.Context, code, _ string) (string, error) {
	if s.down {
		return "", fmt.Errorf("%w: dial", github.ErrUnavailable)
	}
	tok, ok := s.codes[code]
	if !ok {
		return "", &github.ExchangeError{Code: "bad_verification_code", Description: "The code passed is incorrect or expired."}
	}
	return tok, nil
}

func (s *stubUpstream) FetchProfile(_ context.Context, token string) (github.Profile, error) {
	s.mu.Lock()
	s.profCalls++
	s.mu.Unlock()
	if s.down {
		return github.Profile{}, fmt.Errorf("%w: timeout", github.ErrUnavailable)
	}
	p, ok := s.profiles[token]
	if !ok {
		return github.Profile{}, fmt.Errorf("%w: 401", github.ErrRejected)
	}
	return p, nil
}

func (s *stubUpstream) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profCalls
}

type authFixture struct {
	auth     AuthService
	identity IdentityService
	sessions SessionTokenService
	upstream *stubUpstream
	users    repos.UserRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	up := &stubUpstream{
		profiles: map[string]github.Profile{
			"gho_octo":  {ID: "583231", Login: "octocat", AvatarURL: "https://a/octo.png"},
			"gho_blank": {ID: "583231", Login: "  ", AvatarURL: ""},
			"gho_anon":  {ID: "777", Login: ""},
		},
		codes: map[string]string{"good-code": "gho_octo"},
	}
	users := repos.NewUserRepo(db, log)
	sessions := NewSessionTokenService("test-secret", time.Hour, nil)
	identity := NewIdentityService(db, log, up, users)
	return &authFixture{
		auth:     NewAuthService(log, sessions, identity, users),
		identity: identity,
		sessions: sessions,
		upstream: up,
		users:    users,
	}
}

func TestReconcileCreatesAndRefreshes(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, err := f.identity.Reconcile(ctx, f.upstream.profiles["gho_octo"])
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if u.Username != "octocat" || u.AvatarURL != "https://a/octo.png" {
		t.Fatalf("Reconcile create: unexpected user %+v", u)
	}

	again, err := f.identity.Reconcile(ctx, f.upstream.profiles["gho_blank"])
	if err != nil {
		t.Fatalf("Reconcile blank login: %v", err)
	}
	if again.ID != u.ID {
		t.Fatalf("Reconcile id: want=%d got=%d", u.ID, again.ID)
	}
	if again.Username != "octocat" {
		t.Fatalf("blank login must keep username: want=%q got=%q", "octocat", again.Username)
	}
	if again.AvatarURL != "" {
		t.Fatalf("avatar must always be overwritten: want=%q got=%q", "", again.AvatarURL)
	}

	anon, err := f.identity.Reconcile(ctx, f.upstream.profiles["gho_anon"])
	if err != nil {
		t.Fatalf("Reconcile anon: %v", err)
	}
	if anon.Username != "github-id-777" {
		t.Fatalf("synthetic username: want=%q got=%q", "github-id-777", anon.Username)
	}
}

func TestResolveCaller(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.auth.ResolveCaller(ctx, "   "); !errors.Is(err, apierr.ErrUnauthenticated) {
		t.Fatalf("blank credential: want=%v got=%v", apierr.ErrUnauthenticated, err)
	}
	if f.upstream.calls() != 0 {
		t.Fatalf("blank credential must not reach upstream: calls=%d", f.upstream.calls())
	}

	viaUpstream, err := f.auth.ResolveCaller(ctx, "gho_octo")
	if err != nil {
		t.Fatalf("upstream credential: %v", err)
	}

	tok, _, err := f.sessions.Issue(viaUpstream.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	before := f.upstream.calls()
	viaSession, err := f.auth.ResolveCaller(ctx, tok)
	if err != nil {
		t.Fatalf("session credential: %v", err)
	}
	if viaSession.ID != viaUpstream.ID {
		t.Fatalf("session user: want=%d got=%d", viaUpstream.ID, viaSession.ID)
	}
	if f.upstream.calls() != before {
		t.Fatalf("valid session token must not reach upstream")
	}

	// a well-formed session token for a missing user falls through to upstream
	orphan, _, _ := f.sessions.Issue(viaUpstream.ID + 1000)
	if _, err := f.auth.ResolveCaller(ctx, orphan); !errors.Is(err, apierr.ErrUnauthenticated) {
		t.Fatalf("orphan session token: want=%v got=%v", apierr.ErrUnauthenticated, err)
	}

	if _, err := f.auth.ResolveCaller(ctx, "gho_unknown"); !errors.Is(err, apierr.ErrUnauthenticated) {
		t.Fatalf("rejected upstream token: want=%v got=%v", apierr.ErrUnauthenticated, err)
	}

	f.upstream.down = true
	if _, err := f.auth.ResolveCaller(ctx, "gho_octo"); !errors.Is(err, apierr.ErrUpstreamUnavailable) {
		t.Fatalf("upstream down: want=%v got=%v", apierr.ErrUpstreamUnavailable, err)
	}
	if _, err := f.auth.ResolveCaller(ctx, tok); err != nil {
		t.Fatalf("session tokens must work while upstream is down: %v", err)
	}
}

func TestLoginWithUpstream(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.auth.LoginWithUpstream(ctx, "gho_octo")
	if err != nil {
		t.Fatalf("LoginWithUpstream: %v", err)
	}
	if res.TokenType != "bearer" || res.ExpiresIn != 3600 || res.User.Username != "octocat" {
		t.Fatalf("LoginWithUpstream: unexpected result %+v", res)
	}
	uid, err := f.sessions.Verify(res.AccessToken)
	if err != nil || uid != res.User.ID {
		t.Fatalf("issued token: want uid=%d got=%d err=%v", res.User.ID, uid, err)
	}
	stored, _ := f.users.GetByID(dbctx.Context{Ctx: ctx}, uid)
	if stored == nil {
		t.Fatalf("login must persist the user")
	}
}

func TestCompleteCallback(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tok, u, err := f.auth.CompleteCallback(ctx, "good-code", "http://cb")
	if err != nil {
		t.Fatalf("CompleteCallback: %v", err)
	}
	if tok != "gho_octo" || u.Username != "octocat" {
		t.Fatalf("CompleteCallback: token=%q user=%+v", tok, u)
	}

	if _, _, err := f.auth.CompleteCallback(ctx, "bad-code", "http://cb"); !errors.Is(err, apierr.ErrOAuthExchangeFailed) {
		t.Fatalf("bad code: want=%v got=%v", apierr.ErrOAuthExchangeFailed, err)
	}
	if _, _, err := f.auth.CompleteCallback(ctx, "", "http://cb"); !errors.Is(err, apierr.ErrBadRequest) {
		t.Fatalf("missing code: want=%v got=%v", apierr.ErrBadRequest, err)
	}
	f.upstream.down = true
	if _, _, err := f.auth.CompleteCallback(ctx, "good-code", "http://cb"); !errors.Is(err, apierr.ErrUpstreamUnavailable) {
		t.Fatalf("upstream down: want=%v got=%v", apierr.ErrUpstreamUnavailable, err)
	}
}

func TestVerifyCredential(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, ok, err := f.auth.VerifyCredential(ctx, "gho_unknown"); ok || err != nil {
		t.Fatalf("invalid credential: want ok=false err=nil got ok=%v err=%v", ok, err)
	}
	u, ok, err := f.auth.VerifyCredential(ctx, "gho_octo")
	if !ok || err != nil || u.Username != "octocat" {
		t.Fatalf("valid credential: ok=%v err=%v user=%+v", ok, err, u)
	}
	f.upstream.down = true
	if _, _, err := f.auth.VerifyCredential(ctx, "gho_octo"); !errors.Is(err, apierr.ErrUpstreamUnavailable) {
		t.Fatalf("upstream down: want=%v got=%v", apierr.ErrUpstreamUnavailable, err)
	}
}
