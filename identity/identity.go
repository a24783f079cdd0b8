// Package identity registers accounts, signs users in and out, and resolves the signed-in identity of a request.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"grooby/docstore"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials never says whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("not signed in")
)

var ukPhone = regexp.MustCompile(`^\+44\d{10}$`)

const (
	DefaultSessionTTL  = 24 * time.Hour
	DefaultRememberTTL = 7 * 24 * time.Hour
)

// Profile is the user document stored under the profile namespace.
type Profile struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterInput is a registration form.
type RegisterInput struct {
	Name            string `json:"name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptTerms     bool   `json:"accept_terms"`
}

// Validate applies the form rules without touching any store.
func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.LastName) == "" ||
		strings.TrimSpace(in.Email) == "" || in.Password == "" || in.ConfirmPassword == "" {
		return fmt.Errorf("%w: please fill in all required fields", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != strings.TrimSpace(in.Email) {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if in.Password != in.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}
	if !in.AcceptTerms {
		return fmt.Errorf("%w: you must accept the terms of service", ErrInvalidInput)
	}
	if in.Phone != "" && !ukPhone.MatchString(in.Phone) {
		return fmt.Errorf("%w: phone must be in UK format +44 followed by 10 digits", ErrInvalidInput)
	}
	return nil
}

// Token is the result of a successful sign in.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Remember    bool      `json:"remember"`
}

// Identity is the signed-in user of a request.
type Identity struct {
	UserID    string
	SessionID string
}

// Config tunes a Service.
type Config struct {
	SessionTTL   time.Duration
	RememberTTL  time.Duration
	PasswordCost int
}

// Service implements the identity operations over injected stores.
type Service struct {
	accounts AccountStore
	sessions SessionStore
	docs     docstore.Store
	signer   *Signer
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(accounts AccountStore, sessions SessionStore, docs docstore.Store, signer *Signer, cfg Config, logger *zap.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = DefaultRememberTTL
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = bcrypt.DefaultCost
	}
	return &Service{
		accounts: accounts,
		sessions: sessions,
		docs:     docs,
		signer:   signer,
		cfg:      cfg,
		logger:   logger.Named("Identity"),
		now:      time.Now,
	}
}

// Register creates an account and its profile document.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Profile, error) {
	if err := in.Validate(); err != nil {
		return Profile{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.PasswordCost)
	if err != nil {
		return Profile{}, fmt.Errorf("error hashing password: %w", err)
	}

	account := Account{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(in.Email),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return Profile{}, ErrAccountExists
		}
		return Profile{}, fmt.Errorf("error creating account: %w", err)
	}

	profile := Profile{
		UID:       account.ID,
		Name:      strings.TrimSpace(in.Name),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     account.Email,
		Phone:     in.Phone,
		CreatedAt: account.CreatedAt,
	}
	body, err := json.Marshal(profile)
	if err != nil {
		return Profile{}, err
	}
	if _, err := s.docs.Put(ctx, docstore.Profiles, account.ID, body, 0); err != nil {
		// Roll back the account so the email can register again.
		if derr := s.accounts.Delete(ctx, account.ID); derr != nil {
			s.logger.Error("Failed to roll back account", zap.String("uid", account.ID), zap.Error(derr))
		}
		return Profile{}, fmt.Errorf("error storing profile: %w", err)
	}

	s.logger.Info("Account registered", zap.String("uid", account.ID))
	return profile, nil
}

// SignIn verifies credentials and opens a session. remember selects the long-lived session duration.
func (s *Service) SignIn(ctx context.Context, email, password string, remember bool) (Token, error) {
	account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, fmt.Errorf("error finding account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}

	ttl := s.cfg.SessionTTL
	if remember {
		ttl = s.cfg.RememberTTL
	}
	now := s.now()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    account.ID,
		Remember:  remember,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Token{}, fmt.Errorf("error storing session: %w", err)
	}
	access, err := s.signer.Sign(sess, now)
	if err != nil {
		return Token{}, fmt.Errorf("error generating token: %w", err)
	}

	s.logger.Debug("Signed in", zap.String("uid", account.ID), zap.Bool("remember", remember))
	return Token{AccessToken: access, ExpiresAt: sess.ExpiresAt, Remember: remember}, nil
}

// Authenticate resolves the identity behind an access token. The token must verify and its session must still exist.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	uid, sid, err := s.signer.Verify(accessToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Identity{}, fmt.Errorf("%w: session ended", ErrUnauthenticated)
		}
		return Identity{}, err
	}
	if sess.UserID != uid {
		return Identity{}, fmt.Errorf("%w: session mismatch", ErrUnauthenticated)
	}
	return Identity{UserID: uid, SessionID: sid}, nil
}

// SignOut ends the session of id.
func (s *Service) SignOut(ctx context.Context, id Identity) error {
	if err := s.sessions.Delete(ctx, id.SessionID); err != nil {
		return fmt.Errorf("error ending session: %w", err)
	}
	return nil
}

// Profile reads the profile document of uid.
func (s *Service) Profile(ctx context.Context, uid string) (Profile, error) {
	doc, err := s.docs.Get(ctx, docstore.Profiles, uid)
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(doc.Body, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile %s: %w", uid, err)
	}
	return p, nil
}
