package user

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/blob"
	"github.com/hackgods/hospital-appointment-booking/internal/config"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

type memRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
	reset map[uuid.UUID]resetEntry
}

type resetEntry struct {
	hash    string
	expires time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[uuid.UUID]*User{}, reset: map[uuid.UUID]resetEntry{}}
}

func (r *memRepo) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *memRepo) Create(_ context.Context, u *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(u.Email, uuid.Nil) {
		return nil, ErrEmailTaken
	}
	c := *u
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memRepo) ListByRole(_ context.Context, role auth.Role) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateProfile(_ context.Context, u *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return nil, ErrUserNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return nil, ErrEmailTaken
	}
	c := *u
	r.users[u.ID] = &c
	out := c
	return &out, nil
}

func (r *memRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memRepo) SetResetToken(_ context.Context, id uuid.UUID, hash string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset[id] = resetEntry{hash: hash, expires: expires}
	return nil
}

func (r *memRepo) GetByResetToken(_ context.Context, hash string, now time.Time) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.reset {
		if e.hash == hash && e.expires.After(now) {
			out := *r.users[id]
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memRepo) ConsumeResetToken(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	delete(r.reset, id)
	return nil
}

type recordingNotifier struct {
	links []string
}

func (n *recordingNotifier) SendReset(_ context.Context, _ *User, link string) error {
	n.links = append(n.links, link)
	return nil
}

func (n *recordingNotifier) token(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, n.links)
	last := n.links[len(n.links)-1]
	return last[strings.LastIndex(last, "/")+1:]
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	blobs    *blob.MemoryStore
	notifier *recordingNotifier
	issuer   *auth.Issuer
}

func newFixture() *fixture {
	cfg := config.Config{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		ResetTokenTTL: time.Hour,
		PublicBaseURL: "http://localhost:3000/",
	}
	repo := newMemRepo()
	blobs := blob.NewMemoryStore(1 << 20)
	notifier := &recordingNotifier{}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	return &fixture{
		svc:      NewService(repo, blobs, issuer, notifier, cfg, logger.Discard()),
		repo:     repo,
		blobs:    blobs,
		notifier: notifier,
		issuer:   issuer,
	}
}

func signup(t *testing.T, f *fixture, email string) *User {
	t.Helper()
	u, err := f.svc.SignupPatient(context.Background(), SignupInput{
		Firstname:     "Ada",
		Lastname:      "Lovelace",
		Email:         email,
		Password:      "secret123",
		ContactNumber: "555-0100",
	})
	require.NoError(t, err)
	return u
}

func TestSignupPatient(t *testing.T) {
	f := newFixture()

	u := signup(t, f, "  Ada@Example.com ")

	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, auth.RolePatient, u.Role)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	ok, err := auth.CheckPassword(u.PasswordHash, "secret123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.SignupPatient(ctx, SignupInput{Firstname: "Ada", Email: "ada@example.com", Password: "secret123"})
	assert.Equal(t, "missing_fields", apperr.CodeOf(err))

	_, err = f.svc.SignupPatient(ctx, SignupInput{Firstname: "Ada", Lastname: "L", Email: "nope", Password: "secret123", ContactNumber: "1"})
	assert.Equal(t, "invalid_email", apperr.CodeOf(err))

	_, err = f.svc.SignupPatient(ctx, SignupInput{Firstname: "Ada", Lastname: "L", Email: "a@b.c", Password: "123", ContactNumber: "1"})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture()
	signup(t, f, "ada@example.com")

	_, err := f.svc.SignupPatient(context.Background(), SignupInput{
		Firstname: "Other", Lastname: "Person", Email: "ADA@example.com", Password: "secret123", ContactNumber: "555-0100",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateAccountRejectsUnknownRole(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateAccount(context.Background(), SignupInput{
		Firstname: "S", Lastname: "T", Email: "s@t.io", Password: "secret123", ContactNumber: "555-0100",
	}, auth.Role("janitor"), nil)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestCreateAccountWithImage(t *testing.T) {
	f := newFixture()

	u, err := f.svc.CreateAccount(context.Background(), SignupInput{
		Firstname: "S", Lastname: "T", Email: "s@t.io", Password: "secret123", ContactNumber: "555-0100",
	}, auth.RoleStaff, &blob.Upload{OriginalName: "me.png", ContentType: "image/png", Body: bytes.NewReader([]byte("png"))})
	require.NoError(t, err)

	require.NotNil(t, u.Image)
	assert.Equal(t, auth.RoleStaff, u.Role)
	assert.True(t, f.blobs.Has(u.Image.Filename))
}

func TestLogin(t *testing.T) {
	f := newFixture()
	u := signup(t, f, "ada@example.com")
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "ADA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, session.User.ID)

	id, err := f.issuer.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, auth.RolePatient, id.Role)

	_, err = f.svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "ghost@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRestrictedRoles(t *testing.T) {
	f := newFixture()
	signup(t, f, "ada@example.com")

	_, err := f.svc.Login(context.Background(), "ada@example.com", "secret123", auth.RoleAdmin, auth.RoleStaff)
	assert.ErrorIs(t, err, ErrRoleNotAllowed)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUpdateProfileSwapsImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := signup(t, f, "ada@example.com")

	first, err := f.svc.UpdateProfile(ctx, u.ID, ProfilePatch{}, &blob.Upload{OriginalName: "a.png", ContentType: "image/png", Body: bytes.NewReader([]byte("a"))})
	require.NoError(t, err)
	oldFile := first.Image.Filename

	name := "Augusta"
	second, err := f.svc.UpdateProfile(ctx, u.ID, ProfilePatch{Firstname: &name}, &blob.Upload{OriginalName: "b.png", ContentType: "image/png", Body: bytes.NewReader([]byte("b"))})
	require.NoError(t, err)

	assert.Equal(t, "Augusta", second.Firstname)
	assert.False(t, f.blobs.Has(oldFile))
	assert.True(t, f.blobs.Has(second.Image.Filename))
}

func TestUpdateProfileNothingToUpdate(t *testing.T) {
	f := newFixture()
	u := signup(t, f, "ada@example.com")

	_, err := f.svc.UpdateProfile(context.Background(), u.ID, ProfilePatch{}, nil)
	assert.ErrorIs(t, err, ErrNothingToUpdate)
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	f := newFixture()
	signup(t, f, "ada@example.com")
	other := signup(t, f, "grace@example.com")

	email := "ada@example.com"
	_, err := f.svc.UpdateProfile(context.Background(), other.ID, ProfilePatch{Email: &email}, nil)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestChangePassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := signup(t, f, "ada@example.com")

	err := f.svc.ChangePassword(ctx, u.ID, "not-it", "newsecret")
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, f.svc.ChangePassword(ctx, u.ID, "secret123", "newsecret"))

	_, err = f.svc.Login(ctx, "ada@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestDeleteRemovesImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	u, err := f.svc.CreateAccount(ctx, SignupInput{
		Firstname: "S", Lastname: "T", Email: "s@t.io", Password: "secret123", ContactNumber: "555-0100",
	}, auth.RolePatient, &blob.Upload{OriginalName: "me.png", Body: bytes.NewReader([]byte("img"))})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, u.ID))
	assert.False(t, f.blobs.Has(u.Image.Filename))

	_, err = f.svc.Get(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	signup(t, f, "ada@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	require.Len(t, f.notifier.links, 1)
	assert.True(t, strings.HasPrefix(f.notifier.links[0], "http://localhost:3000/reset-password/"))

	token := f.notifier.token(t)
	require.NoError(t, f.svc.ResetPassword(ctx, token, "brandnew"))

	_, err := f.svc.Login(ctx, "ada@example.com", "brandnew")
	assert.NoError(t, err)

	// tokens are single use
	err = f.svc.ResetPassword(ctx, token, "another1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.notifier.links)
}

func TestPasswordResetExpired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	signup(t, f, "ada@example.com")

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return start }
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))

	f.svc.now = func() time.Time { return start.Add(2 * time.Hour) }
	err := f.svc.ResetPassword(ctx, f.notifier.token(t), "brandnew")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestListByRole(t *testing.T) {
	f := newFixture()
	signup(t, f, "a@example.com")
	signup(t, f, "b@example.com")

	patients, err := f.svc.ListByRole(context.Background(), auth.RolePatient)
	require.NoError(t, err)
	assert.Len(t, patients, 2)

	staff, err := f.svc.ListByRole(context.Background(), auth.RoleStaff)
	require.NoError(t, err)
	assert.NotNil(t, staff)
	assert.Empty(t, staff)
}

func TestSetPassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := signup(t, f, "ada@example.com")

	assert.ErrorIs(t, f.svc.SetPassword(ctx, u.ID, "123"), ErrWeakPassword)
	require.NoError(t, f.svc.SetPassword(ctx, u.ID, "adminset"))

	_, err := f.svc.Login(ctx, "ada@example.com", "adminset")
	assert.NoError(t, err)

	err = f.svc.SetPassword(ctx, uuid.New(), "adminset")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
