// Package identity signs users up and in against the account store and
// issues the session tokens every other operation is scoped by.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/zennify/zennify/internal/app/engagement"
	"github.com/zennify/zennify/internal/domain"
	"github.com/zennify/zennify/internal/infra/metrics"
	"github.com/zennify/zennify/internal/platform/logger"
	"github.com/zennify/zennify/internal/security"
)

const maxUsernameLen = 32

// Config tunes token lifetime and hashing.
type Config struct {
	AccessTTL  time.Duration
	CacheSize  int
	BcryptCost int
}

// DefaultConfig returns a 24h session with a 1024-entry token cache.
func DefaultConfig() Config {
	return Config{AccessTTL: 24 * time.Hour, CacheSize: 1024}
}

// Session is what a successful sign-up or sign-in hands back.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Identity  domain.Identity `json:"identity"`
}

type cachedSession struct {
	identity  domain.Identity
	expiresAt time.Time
}

// Service is the session adapter.
type Service struct {
	accounts domain.AccountStore
	progress *engagement.ProgressService
	keys     *security.Keypair
	log      *logger.Logger
	pub      domain.Publisher
	cfg      Config
	cache    *lru.Cache
	now      func() time.Time

	mu       sync.Mutex
	watchers map[string]map[chan domain.AuthState]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for token issue and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher sets where auth events go.
func WithPublisher(p domain.Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService builds the identity service.
func NewService(accounts domain.AccountStore, progress *engagement.ProgressService, keys *security.Keypair, cfg Config, opts ...Option) (*Service, error) {
	if accounts == nil || progress == nil || keys == nil {
		return nil, fmt.Errorf("identity: accounts, progress and keys are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultConfig().AccessTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("identity: token cache: %w", err)
	}
	s := &Service{
		accounts: accounts,
		progress: progress,
		keys:     keys,
		log:      logger.Nop(),
		cfg:      cfg,
		cache:    cache,
		now:      time.Now,
		watchers: make(map[string]map[chan domain.AuthState]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("service", "IdentityService")
	return s, nil
}

// ─── Sign Up / Sign In / Sign Out ───────────────────────────────────────────

// SignUp registers a new account, seeds its progress record and opens a
// session. An empty username falls back to the email's local part.
func (s *Service) SignUp(ctx context.Context, email, password, username string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		s.countAttempt("signup", err)
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = email[:strings.IndexByte(email, '@')]
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		err := domain.Invalid("username", fmt.Sprintf("at most %d characters", maxUsernameLen))
		s.countAttempt("signup", err)
		return nil, err
	}
	hash, err := security.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		err = domain.Invalid("password", err.Error())
		s.countAttempt("signup", err)
		return nil, err
	}

	acct := domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.CreateAccount(ctx, acct); err != nil {
		s.countAttempt("signup", err)
		if !errors.Is(err, domain.ErrEmailTaken) {
			s.log.Error("create account failed", "email", email, "error", err)
		}
		return nil, err
	}
	if _, err := s.progress.Create(ctx, acct.ID, username); err != nil {
		// The account exists; the next sign-in seeds progress again.
		s.countAttempt("signup", err)
		return nil, err
	}

	sess, err := s.issue(acct)
	if err != nil {
		s.countAttempt("signup", err)
		return nil, err
	}
	s.countAttempt("signup", nil)
	s.log.Info("account created", "user_id", acct.ID)
	s.announce(ctx, domain.EventSignedUp, &sess.Identity, acct.ID)
	return sess, nil
}

// SignIn checks credentials, counts the login toward the streak and opens
// a session. Unknown email and wrong password are indistinguishable.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		err := domain.Invalid("credentials", "email and password are required")
		s.countAttempt("signin", err)
		return nil, err
	}
	acct, err := s.accounts.AccountByEmail(ctx, email)
	if err != nil {
		s.countAttempt("signin", err)
		return nil, err
	}
	if acct == nil {
		s.countAttempt("signin", domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	if err := security.CheckPassword(acct.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			s.log.Warn("password check failed", "user_id", acct.ID, "error", err)
		}
		s.countAttempt("signin", domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}

	if _, err := s.progress.RecordLogin(ctx, acct.ID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.countAttempt("signin", err)
			return nil, err
		}
		if _, err := s.progress.Create(ctx, acct.ID, acct.Username); err != nil {
			s.countAttempt("signin", err)
			return nil, err
		}
	}

	sess, err := s.issue(*acct)
	if err != nil {
		s.countAttempt("signin", err)
		return nil, err
	}
	s.countAttempt("signin", nil)
	s.announce(ctx, domain.EventSignedIn, &sess.Identity, acct.ID)
	return sess, nil
}

// SignOut revokes the session behind token. Signing out an expired or
// already revoked session is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	c, err := s.parse(token)
	if err != nil {
		if errors.Is(err, errExpired) {
			return nil
		}
		return err
	}
	expires := s.now().Add(s.cfg.AccessTTL)
	if c.ExpiresAt != nil {
		expires = c.ExpiresAt.Time
	}
	if err := s.accounts.RevokeToken(ctx, c.ID, expires); err != nil {
		s.log.Error("revoke token failed", "user_id", c.Subject, "error", err)
		return err
	}
	s.cache.Remove(c.ID)
	s.countAttempt("signout", nil)
	s.announce(ctx, domain.EventSignedOut, nil, c.Subject)
	return nil
}

// Authenticate resolves a bearer token to the identity it was issued for.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	c, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if v, ok := s.cache.Get(c.ID); ok {
		cs := v.(cachedSession)
		if s.now().Before(cs.expiresAt) {
			id := cs.identity
			return &id, nil
		}
		s.cache.Remove(c.ID)
	}

	revoked, err := s.accounts.IsTokenRevoked(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, domain.ErrTokenRevoked
	}
	id := c.identity()
	s.cache.Add(c.ID, cachedSession{identity: id, expiresAt: c.ExpiresAt.Time})
	return &id, nil
}

// ─── Auth-State Subscription ────────────────────────────────────────────────

// Watch streams the auth state of userID: the current identity first,
// then every sign-in (identity) and sign-out (nil identity). The channel
// closes when ctx ends.
func (s *Service) Watch(ctx context.Context, current domain.Identity) <-chan domain.AuthState {
	ch := make(chan domain.AuthState, 4)
	id := current
	ch <- domain.AuthState{Identity: &id, At: s.now()}

	s.mu.Lock()
	set, ok := s.watchers[current.UserID]
	if !ok {
		set = make(map[chan domain.AuthState]struct{})
		s.watchers[current.UserID] = set
	}
	set[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers[current.UserID], ch)
		if len(s.watchers[current.UserID]) == 0 {
			delete(s.watchers, current.UserID)
		}
		close(ch)
	}()
	return ch
}

func (s *Service) announce(ctx context.Context, typ domain.EventType, id *domain.Identity, userID string) {
	now := s.now()
	s.mu.Lock()
	for ch := range s.watchers[userID] {
		state := domain.AuthState{At: now}
		if id != nil {
			cp := *id
			state.Identity = &cp
		}
		select {
		case ch <- state:
		default:
			s.log.Warn("dropping auth state; watcher buffer full", "user_id", userID)
		}
	}
	s.mu.Unlock()

	if s.pub == nil {
		return
	}
	ev := domain.Event{Type: typ, UserID: userID, At: now}
	if id != nil {
		ev.Data = map[string]any{"username": id.Username}
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Warn("publish auth event", "type", string(typ), "user_id", userID, "error", err)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.Invalid("email", "required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("email", "not a valid address")
	}
	return email, nil
}

func (s *Service) countAttempt(action string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation):
		result = "invalid"
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrEmailTaken):
		result = "rejected"
	default:
		result = "error"
	}
	metrics.AuthAttempts.WithLabelValues(action, result).Inc()
}
