package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/sessions"
	"github.com/dmitrijs2005/accountkeeper/internal/server/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func ptr(s string) *string { return &s }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeRecorder struct {
	mu      sync.Mutex
	states  []sessions.AuthState
	signIns []string
}

func (r *fakeRecorder) AuthState(s sessions.AuthState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *fakeRecorder) SignIn(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signIns = append(r.signIns, outcome)
}

type seqGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *seqGenerator) Generate(n int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%0*d", n, g.n), nil
}

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error)         { return "", errors.New("hash boom") }
func (failingHasher) Verify(string, string) (bool, error) { return false, errors.New("verify boom") }

type env struct {
	svc      *AccountService
	clock    *fakeClock
	recorder *fakeRecorder
	rm       repomanager.RepositoryManager
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	cfg := &config.Config{SessionTTL: 30 * time.Minute, BcryptCost: bcrypt.MinCost}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rec := &fakeRecorder{}
	rm := repomanager.NewInMemoryRepositoryManager()

	all := append([]Option{WithClock(clock.Now), WithRecorder(rec), WithGenerator(&seqGenerator{})}, opts...)
	return &env{
		svc:      NewAccountService(nil, rm, cfg, all...),
		clock:    clock,
		recorder: rec,
		rm:       rm,
	}
}

func assertPassword(t *testing.T, digest, password string) {
	t.Helper()
	ok, err := auth.NewBcryptHasher(bcrypt.MinCost).Verify(password, digest)
	require.NoError(t, err)
	assert.True(t, ok, "stored hash must verify %q", password)
}

func registerPayload() validation.Payload {
	return validation.Payload{
		EmailAddress: ptr("a@b.com"),
		Password:     ptr("pw123"),
		FirstName:    ptr("Ann"),
		LastName:     ptr("Lee"),
	}
}

func signIn(t *testing.T, e *env) string {
	t.Helper()
	tok, err := e.svc.SignIn(context.Background(), validation.Payload{EmailAddress: ptr("a@b.com"), Password: ptr("pw123")})
	require.NoError(t, err)
	return tok
}

func validationMessages(t *testing.T, err error) []string {
	t.Helper()
	var verr *validation.Error
	require.True(t, errors.As(err, &verr), "want *validation.Error, got %v", err)
	return verr.Messages
}

// --- register ---

func TestRegister_StoresHashedPasswordWithoutToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Register(ctx, registerPayload()))

	a, err := e.rm.Accounts(nil).GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", a.PasswordHash)
	assertPassword(t, a.PasswordHash, "pw123")
	assert.Nil(t, a.AuthToken)
	assert.Nil(t, a.TokenCreatedAt)
	assert.Equal(t, "Ann", a.FirstName)
}

func TestRegister_Duplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Register(ctx, registerPayload()))

	p := registerPayload()
	p.FirstName = ptr("Eve")
	assert.ErrorIs(t, e.svc.Register(ctx, p), common.ErrorAlreadyExists)

	a, err := e.rm.Accounts(nil).GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", a.FirstName)
}

func TestRegister_ValidationCollectsAllMessages(t *testing.T) {
	e := newEnv(t)

	err := e.svc.Register(context.Background(), validation.Payload{
		EmailAddress: ptr("nope"),
		FirstName:    ptr("4nn"),
	})
	assert.Equal(t, []string{validation.MsgEmail, validation.MsgFirstName, validation.MsgLastName, validation.MsgPassword},
		validationMessages(t, err))
}

func TestRegister_HashError(t *testing.T) {
	e := newEnv(t, WithHasher(failingHasher{}))
	err := e.svc.Register(context.Background(), registerPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash boom")
}

// --- sign in ---

func TestSignIn_IssuesTokenAndRecordsTime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, registerPayload()))

	tok := signIn(t, e)
	assert.Len(t, tok, sessions.TokenLength)

	a, err := e.rm.Accounts(nil).GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, a.AuthToken)
	assert.Equal(t, tok, *a.AuthToken)
	assert.True(t, a.TokenCreatedAt.Equal(e.clock.Now()))
	assert.Equal(t, []string{SignInSuccess}, e.recorder.signIns)
}

func TestSignIn_Failures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, registerPayload()))

	_, err := e.svc.SignIn(ctx, validation.Payload{EmailAddress: ptr("ghost@b.com"), Password: ptr("pw123")})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = e.svc.SignIn(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Password: ptr("wrong")})
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)

	_, err = e.svc.SignIn(ctx, validation.Payload{EmailAddress: ptr("a@b.com")})
	assert.Equal(t, []string{validation.MsgPassword}, validationMessages(t, err))

	assert.Equal(t, []string{SignInUnknownUser, SignInBadCredential}, e.recorder.signIns)

	a, err := e.rm.Accounts(nil).GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Nil(t, a.AuthToken, "failed sign-in must not issue a token")
}

func TestSignIn_ReplacesPreviousToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, registerPayload()))

	first := signIn(t, e)
	second := signIn(t, e)
	require.NotEqual(t, first, second)

	_, err := e.svc.Fetch(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Token: ptr(first)})
	assert.ErrorIs(t, err, common.ErrorSessionExpired)

	_, err = e.svc.Fetch(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Token: ptr(second)})
	assert.NoError(t, err)
}

// --- fetch ---

func TestFetch_SessionLifetime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, registerPayload()))
	tok := signIn(t, e)

	p := validation.Payload{EmailAddress: ptr("a@b.com"), Token: ptr(tok)}

	got, err := e.svc.Fetch(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.EmailAddress)
	assert.Equal(t, "Ann", got.FirstName)
	require.NotNil(t, got.AuthToken)
	assert.Equal(t, tok, *got.AuthToken)

	e.clock.Advance(29 * time.Minute)
	_, err = e.svc.Fetch(ctx, p)
	require.NoError(t, err)

	e.clock.Advance(2 * time.Minute)
	_, err = e.svc.Fetch(ctx, p)
	assert.ErrorIs(t, err, common.ErrorSessionExpired)

	assert.Equal(t, []sessions.AuthState{sessions.Valid, sessions.Valid, sessions.Timeout}, e.recorder.states)
}

func TestFetch_Failures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, registerPayload()))

	_, err := e.svc.Fetch(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Token: ptr("neverissued")})
	assert.ErrorIs(t, err, common.ErrorSessionExpired)

	_, err = e.svc.Fetch(ctx, validation.Payload{EmailAddress: ptr("ghost@b.com"), Token: ptr("abc")})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = e.svc.Fetch(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Token: ptr("bad-token")})
	assert.Equal(t, []string{validation.MsgToken}, validationMessages(t, err))

	_, err = e.svc.Fetch(ctx, validation.Payload{EmailAddress: ptr("a@b.com")})
	assert.Equal(t, []string{validation.MsgToken}, validationMessages(t, err))
}

// --- update ---

func TestUpdate_AppliesProvidedFields(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, registerPayload()))
	tok := signIn(t, e)

	err := e.svc.Update(ctx, validation.Payload{
		EmailAddress:   ptr("a@b.com"),
		Token:          ptr(tok),
		NewUserDetails: &validation.UserDetails{LastName: ptr("Smith"), Password: ptr("newpw")},
	})
	require.NoError(t, err)

	a, err := e.rm.Accounts(nil).GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", a.FirstName)
	assert.Equal(t, "Smith", a.LastName)
	assertPassword(t, a.PasswordHash, "newpw")

	_, err = e.svc.SignIn(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Password: ptr("pw123")})
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
	_, err = e.svc.SignIn(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Password: ptr("newpw")})
	assert.NoError(t, err)
}

func TestUpdate_WithoutDetailsIsNoop(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, registerPayload()))
	tok := signIn(t, e)

	before, err := e.rm.Accounts(nil).GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)

	require.NoError(t, e.svc.Update(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Token: ptr(tok)}))
	require.NoError(t, e.svc.Update(ctx, validation.Payload{
		EmailAddress: ptr("a@b.com"), Token: ptr(tok), NewUserDetails: &validation.UserDetails{},
	}))

	after, err := e.rm.Accounts(nil).GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdate_ValidatesNestedDetails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, registerPayload()))
	tok := signIn(t, e)

	err := e.svc.Update(ctx, validation.Payload{
		EmailAddress:   ptr("a@b.com"),
		Token:          ptr(tok),
		NewUserDetails: &validation.UserDetails{FirstName: ptr("B0b")},
	})
	assert.Equal(t, []string{validation.MsgFirstName}, validationMessages(t, err))

	a, err := e.rm.Accounts(nil).GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", a.FirstName)
}

func TestUpdate_ExpiredSessionWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, registerPayload()))
	tok := signIn(t, e)

	e.clock.Advance(31 * time.Minute)

	err := e.svc.Update(ctx, validation.Payload{
		EmailAddress:   ptr("a@b.com"),
		Token:          ptr(tok),
		NewUserDetails: &validation.UserDetails{FirstName: ptr("Bob")},
	})
	assert.ErrorIs(t, err, common.ErrorSessionExpired)

	a, err := e.rm.Accounts(nil).GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", a.FirstName)
}

// --- repository failures ---

type failingRepo struct{ err error }

func (r failingRepo) Create(context.Context, *models.Account) (*models.Account, error) {
	return nil, r.err
}
func (r failingRepo) GetByEmail(context.Context, string) (*models.Account, error) {
	return nil, r.err
}
func (r failingRepo) SetToken(context.Context, string, string, time.Time) error { return r.err }
func (r failingRepo) Update(context.Context, string, models.AccountUpdate) error {
	return r.err
}

type failingManager struct {
	repomanager.RepositoryManager
	repo accounts.Repository
}

func (m failingManager) Accounts(dbx.DBTX) accounts.Repository { return m.repo }

func TestRepositoryFailuresAreWrapped(t *testing.T) {
	boom := errors.New("db down")
	cfg := &config.Config{SessionTTL: time.Minute, BcryptCost: bcrypt.MinCost}
	svc := NewAccountService(nil, failingManager{repo: failingRepo{err: boom}}, cfg)
	ctx := context.Background()

	err := svc.Register(ctx, registerPayload())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = svc.SignIn(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Password: ptr("pw123")})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrorNotFound)

	_, err = svc.Fetch(ctx, validation.Payload{EmailAddress: ptr("a@b.com"), Token: ptr("abc")})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrorSessionExpired)
}
