package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/users"
	pkgauth "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/auth"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	usersDDL := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'owner',
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	storesDDL := `
CREATE TABLE IF NOT EXISTS stores (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  phone TEXT,
  email TEXT,
  whatsapp_phone TEXT,
  township TEXT NOT NULL,
  address_line TEXT,
  categories TEXT,
  open INTEGER NOT NULL DEFAULT 0,
  credit_cents INTEGER NOT NULL DEFAULT 0,
  owner_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(usersDDL).Error)
	require.NoError(t, db.Exec(storesDDL).Error)
	require.NoError(t, db.Exec("DELETE FROM stores").Error)
	require.NoError(t, db.Exec("DELETE FROM users").Error)
	return db
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "kasi-flavors",
		ExpirationMinutes: 30,
	}
}

func newAuthService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		StoresRepo:     stores.NewRepository(db),
		Tx:             gormTxRunner{db: db},
		PasswordConfig: config.PasswordConfig{},
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupAuthTestDB(t)
	svc := newAuthService(t, db)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterRequest{
		Name:      "Thandi Dlamini",
		Email:     "Thandi@Example.com",
		Password:  "correct-horse",
		StoreName: "Thandi's Kitchen",
		Township:  "Khayelitsha",
	})
	require.NoError(t, err)
	require.NotNil(t, session.Store)
	assert.Equal(t, "thandi@example.com", session.User.Email)
	assert.Equal(t, enums.UserRoleOwner, session.User.Role)
	assert.NotEmpty(t, session.Token)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	require.NotNil(t, claims.StoreID)
	assert.Equal(t, session.Store.ID, *claims.StoreID)

	login, err := svc.Login(ctx, LoginRequest{Email: "thandi@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)
	require.NotNil(t, login.Store)
	assert.Equal(t, session.Store.ID, login.Store.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupAuthTestDB(t)
	svc := newAuthService(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name:      "Sipho",
		Email:     "sipho@example.com",
		Password:  "correct-horse",
		StoreName: "Sipho's Grill",
		Township:  "Soweto",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "sipho@example.com", Password: "wrong"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLoginUnknownEmail(t *testing.T) {
	db := setupAuthTestDB(t)
	svc := newAuthService(t, db)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "pw"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupAuthTestDB(t)
	svc := newAuthService(t, db)
	ctx := context.Background()

	req := RegisterRequest{
		Name:      "Lerato",
		Email:     "lerato@example.com",
		Password:  "long-enough",
		StoreName: "Lerato's Deli",
		Township:  "Tembisa",
	}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	req.StoreName = "Different Store"
	_, err = svc.Register(ctx, req)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	// the failed registration must not leave a dangling store
	var count int64
	require.NoError(t, db.Table("stores").Where("slug = ?", "different-store").Count(&count).Error)
	assert.Zero(t, count)
}

func TestRegisterValidation(t *testing.T) {
	db := setupAuthTestDB(t)
	svc := newAuthService(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name: "x", Email: "x@y.z", Password: "short", StoreName: "s", Township: "t",
	})
	require.Error(t, err)

	_, err = svc.Register(ctx, RegisterRequest{
		Name: "x", Email: "", Password: "long-enough", StoreName: "s", Township: "t",
	})
	require.Error(t, err)
}
