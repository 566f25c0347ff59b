// Package services implements the account operations exposed by the
// transport layers: registration, sign-in, fetching and updating an account.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/sessions"
	"github.com/dmitrijs2005/accountkeeper/internal/server/validation"
)

// Sign-in outcomes reported to the Recorder.
const (
	SignInSuccess       = "success"
	SignInUnknownUser   = "unknown_user"
	SignInBadCredential = "bad_credentials"
	SignInError         = "error"
)

// Recorder receives authentication events, typically for metrics.
type Recorder interface {
	AuthState(sessions.AuthState)
	SignIn(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthState(sessions.AuthState) {}
func (nopRecorder) SignIn(string)                {}

type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	generator   sessions.Generator
	recorder    Recorder
	ttl         time.Duration
	now         func() time.Time
}

// Option configures an AccountService.
type Option func(*AccountService)

// WithClock replaces time.Now for token issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *AccountService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithHasher(h auth.PasswordHasher) Option {
	return func(s *AccountService) {
		if h != nil {
			s.hasher = h
		}
	}
}

func WithGenerator(g sessions.Generator) Option {
	return func(s *AccountService) {
		if g != nil {
			s.generator = g
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *AccountService) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *AccountService {
	s := &AccountService{
		db:          db,
		repomanager: m,
		hasher:      auth.NewBcryptHasher(cfg.BcryptCost),
		generator:   auth.NewAlphanumericGenerator(),
		recorder:    nopRecorder{},
		ttl:         cfg.SessionTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AccountService) accounts() accounts.Repository {
	return s.repomanager.Accounts(s.db)
}

func (s *AccountService) sessions(repo accounts.Repository) *sessions.Manager {
	return sessions.NewManager(repo, s.generator, sessions.WithClock(s.now), sessions.WithTTL(s.ttl))
}

func (s *AccountService) guard(ctx context.Context, repo accounts.Repository, p validation.Payload) error {
	gate := sessions.NewGate(s.sessions(repo), s.recorder.AuthState)
	return gate.Guard(ctx, validation.Value(p.Token), validation.Value(p.EmailAddress))
}

// Register creates an account with a hashed password and no session token.
func (s *AccountService) Register(ctx context.Context, p validation.Payload) error {
	if err := validation.Check(p, validation.FieldEmail, validation.FieldFirstName,
		validation.FieldLastName, validation.FieldPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(*p.Password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	account := &models.Account{
		Email:        *p.EmailAddress,
		PasswordHash: hash,
		FirstName:    *p.FirstName,
		LastName:     *p.LastName,
	}

	if _, err := s.accounts().Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error creating account: %w", err)
	}

	return nil
}

// SignIn verifies the credentials and returns a freshly issued token that
// replaces any previous one.
func (s *AccountService) SignIn(ctx context.Context, p validation.Payload) (string, error) {
	if err := validation.Check(p, validation.FieldEmail, validation.FieldPassword); err != nil {
		return "", err
	}

	repo := s.accounts()

	account, err := repo.GetByEmail(ctx, *p.EmailAddress)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.recorder.SignIn(SignInUnknownUser)
			return "", common.ErrorNotFound
		}
		s.recorder.SignIn(SignInError)
		return "", fmt.Errorf("error loading account: %w", err)
	}

	ok, err := s.hasher.Verify(*p.Password, account.PasswordHash)
	if err != nil {
		s.recorder.SignIn(SignInError)
		return "", err
	}
	if !ok {
		s.recorder.SignIn(SignInBadCredential)
		return "", common.ErrorInvalidCredentials
	}

	token, err := s.sessions(repo).Issue(ctx, account.Email)
	if err != nil {
		s.recorder.SignIn(SignInError)
		return "", err
	}

	s.recorder.SignIn(SignInSuccess)
	return token, nil
}

// Fetch returns the public view of the account once the session is valid.
func (s *AccountService) Fetch(ctx context.Context, p validation.Payload) (*models.PublicAccount, error) {
	if err := validation.Check(p, validation.FieldEmail, validation.FieldToken); err != nil {
		return nil, err
	}

	repo := s.accounts()
	if err := s.guard(ctx, repo, p); err != nil {
		return nil, err
	}

	account, err := repo.GetByEmail(ctx, *p.EmailAddress)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	return account.Public(), nil
}

// Update applies the fields present in NewUserDetails. A request without
// details succeeds without writing anything.
func (s *AccountService) Update(ctx context.Context, p validation.Payload) error {
	if err := validation.Check(p, validation.FieldEmail, validation.FieldToken); err != nil {
		return err
	}

	repo := s.accounts()
	if err := s.guard(ctx, repo, p); err != nil {
		return err
	}

	upd, err := s.buildUpdate(p.NewUserDetails)
	if err != nil {
		return err
	}
	if upd.IsEmpty() {
		return nil
	}

	if err := repo.Update(ctx, *p.EmailAddress, upd); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error updating account: %w", err)
	}
	return nil
}

func (s *AccountService) buildUpdate(d *validation.UserDetails) (models.AccountUpdate, error) {
	var upd models.AccountUpdate
	if d == nil {
		return upd, nil
	}

	if d.Password != nil && *d.Password != "" {
		hash, err := s.hasher.Hash(*d.Password)
		if err != nil {
			return upd, fmt.Errorf("error hashing password: %w", err)
		}
		upd.PasswordHash = &hash
	}
	if d.FirstName != nil && *d.FirstName != "" {
		upd.FirstName = d.FirstName
	}
	if d.LastName != nil && *d.LastName != "" {
		upd.LastName = d.LastName
	}
	return upd, nil
}
