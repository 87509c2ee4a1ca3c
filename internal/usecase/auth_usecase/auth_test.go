package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/memory"
	"storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// helper
// =====================

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", g.n)
}

type authFixture struct {
	db       *memory.DB
	clock    *fixedClock
	issuer   *JWTIssuer
	register *RegisterUserUsecase
	login    *LoginUsecase
	refresh  *RefreshUsecase
	logout   *LogoutUsecase
}

func newAuthFixture() *authFixture {
	db := memory.New()
	clock := &fixedClock{now: time.Now()}
	ids := &seqIDGen{}
	issuer := NewJWTIssuer("test-secret", 15*time.Minute)
	v := validator.NewAuthValidator()

	return &authFixture{
		db:       db,
		clock:    clock,
		issuer:   issuer,
		register: NewRegisterUserUsecase(db.Users(), v, NewBcryptPasswordHasher(bcrypt.MinCost), ids, clock),
		login:    NewLoginUsecase(db.Users(), db.RefreshTokens(), v, NewBcryptPasswordVerifier(), issuer, ids, clock, time.Hour),
		refresh:  NewRefreshUsecase(db.Users(), db.RefreshTokens(), issuer, ids, clock, time.Hour),
		logout:   NewLogoutUsecase(db.RefreshTokens()),
	}
}

func (f *authFixture) signedIn(t *testing.T) (LoginOutput, LoginSideEffect) {
	t.Helper()
	ctx := context.Background()

	_, err := f.register.Execute(ctx, RegisterUserInput{Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)

	out, side, err := f.login.Execute(ctx, LoginInput{Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)
	return out, side
}

// =====================
// register
// =====================

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture()

	out, err := f.register.Execute(context.Background(), RegisterUserInput{Email: " Ann@Example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", out.User.Email)
	assert.Empty(t, out.User.PasswordHash)
	assert.True(t, out.User.IsActive)

	stored, err := f.db.Users().FindByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture()

	_, err := f.register.Execute(context.Background(), RegisterUserInput{Email: "ann@example.com", Password: "12345"})
	assert.ErrorIs(t, err, validator.ErrPasswordTooShort)

	_, err = f.register.Execute(context.Background(), RegisterUserInput{Email: "nope", Password: "secret"})
	assert.ErrorIs(t, err, validator.ErrInvalidEmailFormat)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, err := f.register.Execute(ctx, RegisterUserInput{Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = f.register.Execute(ctx, RegisterUserInput{Email: "ann@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

// 事前チェックをすり抜けた重複はunique制約のエラーで判定する
type racyUserRepo struct{ mock.Mock }

func (m *racyUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *racyUserRepo) FindByID(ctx context.Context, userID string) (*model.User, error) {
	panic("not used")
}

func (m *racyUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *racyUserRepo) Update(ctx context.Context, user *model.User) error {
	panic("not used")
}

func TestRegister_UniqueViolationOnInsert(t *testing.T) {
	users := new(racyUserRepo)
	users.On("FindByEmail", mock.Anything, "ann@example.com").Return(nil, repository.ErrUserNotFound)
	users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEmail)

	uc := NewRegisterUserUsecase(users, validator.NewAuthValidator(), NewBcryptPasswordHasher(bcrypt.MinCost), &seqIDGen{}, SystemClock{})

	_, err := uc.Execute(context.Background(), RegisterUserInput{Email: "ann@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

// =====================
// login
// =====================

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture()

	out, side := f.signedIn(t)
	assert.NotEmpty(t, side.PlainRefreshToken)
	assert.Equal(t, 15*60, out.Token.ExpiresIn)
	assert.NotNil(t, out.User.LastLoginAt)

	claims, err := f.issuer.Verify(out.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, claims.Subject)
	assert.Equal(t, "ann@example.com", claims.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture()
	f.signedIn(t)

	_, _, err := f.login.Execute(context.Background(), LoginInput{Email: "ann@example.com", Password: "wrong!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newAuthFixture()

	_, _, err := f.login.Execute(context.Background(), LoginInput{Email: "bob@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_Inactive(t *testing.T) {
	f := newAuthFixture()
	out, _ := f.signedIn(t)
	ctx := context.Background()

	u, err := f.db.Users().FindByID(ctx, out.User.ID)
	require.NoError(t, err)
	u.IsActive = false
	require.NoError(t, f.db.Users().Update(ctx, u))

	_, _, err = f.login.Execute(ctx, LoginInput{Email: "ann@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrUserInactive)
}

// =====================
// refresh / logout
// =====================

func TestRefresh_Rotates(t *testing.T) {
	f := newAuthFixture()
	_, side := f.signedIn(t)
	ctx := context.Background()

	out, next, err := f.refresh.Execute(ctx, RefreshInput{RefreshToken: side.PlainRefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, side.PlainRefreshToken, next.PlainRefreshToken)
	assert.NotEmpty(t, out.Token.AccessToken)

	//新しいtokenは使える
	_, _, err = f.refresh.Execute(ctx, RefreshInput{RefreshToken: next.PlainRefreshToken})
	assert.NoError(t, err)
}

func TestRefresh_ReuseRevokesAll(t *testing.T) {
	f := newAuthFixture()
	_, side := f.signedIn(t)
	ctx := context.Background()

	_, next, err := f.refresh.Execute(ctx, RefreshInput{RefreshToken: side.PlainRefreshToken})
	require.NoError(t, err)

	_, _, err = f.refresh.Execute(ctx, RefreshInput{RefreshToken: side.PlainRefreshToken})
	assert.ErrorIs(t, err, ErrRefreshTokenReused)

	//正規の新tokenも無効になる
	_, _, err = f.refresh.Execute(ctx, RefreshInput{RefreshToken: next.PlainRefreshToken})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_Expired(t *testing.T) {
	f := newAuthFixture()
	_, side := f.signedIn(t)

	f.clock.now = f.clock.now.Add(2 * time.Hour)

	_, _, err := f.refresh.Execute(context.Background(), RefreshInput{RefreshToken: side.PlainRefreshToken})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_Unknown(t *testing.T) {
	f := newAuthFixture()

	_, _, err := f.refresh.Execute(context.Background(), RefreshInput{RefreshToken: "nope"})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, _, err = f.refresh.Execute(context.Background(), RefreshInput{RefreshToken: " "})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newAuthFixture()
	_, side := f.signedIn(t)
	ctx := context.Background()

	require.NoError(t, f.logout.Execute(ctx, side.PlainRefreshToken))
	//2回目もエラーにしない
	require.NoError(t, f.logout.Execute(ctx, side.PlainRefreshToken))
	require.NoError(t, f.logout.Execute(ctx, "unknown"))

	_, _, err := f.refresh.Execute(ctx, RefreshInput{RefreshToken: side.PlainRefreshToken})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

// =====================
// jwt
// =====================

func TestJWTIssuer_RejectsTamperedAndExpired(t *testing.T) {
	issuer := NewJWTIssuer("secret-a", time.Minute)

	token, _, err := issuer.Issue("u1", "a@example.com", time.Now())
	require.NoError(t, err)

	_, err = NewJWTIssuer("secret-b", time.Minute).Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidAccessToken))

	old, _, err := issuer.Issue("u1", "a@example.com", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = issuer.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}
