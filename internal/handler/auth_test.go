package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
	"github.com/iliyamo/slot-reservation/internal/utils"
)

type memUsers struct {
	byEmail map[string]*model.User
}

func (m *memUsers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	if _, ok := m.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	u := &model.User{ID: uint64(len(m.byEmail) + 1), Email: email, PasswordHash: hash, Role: role, IsActive: true}
	m.byEmail[email] = u
	return u.ID, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memTokens struct {
	live map[string]uint64
}

func (m *memTokens) Open(_ context.Context, userID uint64, hash string, _ time.Time) error {
	m.live[hash] = userID
	return nil
}

func (m *memTokens) Consume(_ context.Context, hash string) (uint64, error) {
	id, ok := m.live[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	delete(m.live, hash)
	return id, nil
}

func (m *memTokens) CloseAll(_ context.Context, userID uint64) error {
	for h, id := range m.live {
		if id == userID {
			delete(m.live, h)
		}
	}
	return nil
}

func newAuth() (*AuthHandler, *memTokens) {
	cfg := config.Config{JWTSecret: "s3cret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	tokens := &memTokens{live: map[string]uint64{}}
	return NewAuthHandler(cfg, &memUsers{byEmail: map[string]*model.User{}}, tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	h, tokens := newAuth()

	rec := serve(h.Register, http.MethodPost, "/v1/auth/register", "/v1/auth/register",
		`{"email":" Pro@Example.com ","password":"pitch2026","role":"supplier"}`, 0, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var out authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "pro@example.com", out.User.Email)
	assert.Equal(t, model.RoleSupplier, out.User.Role)
	claims, err := utils.ParseAccessToken("s3cret", out.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleSupplier, claims.Role)
	assert.Len(t, tokens.live, 1)

	rec = serve(h.Register, http.MethodPost, "/v1/auth/register", "/v1/auth/register",
		`{"email":"pro@example.com","password":"pitch2026"}`, 0, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h.Register, http.MethodPost, "/v1/auth/register", "/v1/auth/register",
		`{"email":"admin@example.com","password":"pitch2026","role":"ADMIN"}`, 0, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"CUSTOMER"`, "admin cannot be self-assigned")

	rec = serve(h.Register, http.MethodPost, "/v1/auth/register", "/v1/auth/register",
		`{"email":"weak@example.com","password":"short"}`, 0, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h.Login, http.MethodPost, "/v1/auth/login", "/v1/auth/login",
		`{"email":"pro@example.com","password":"wrong-one1"}`, 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = serve(h.Login, http.MethodPost, "/v1/auth/login", "/v1/auth/login",
		`{"email":"nobody@example.com","password":"pitch2026"}`, 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = serve(h.Login, http.MethodPost, "/v1/auth/login", "/v1/auth/login",
		`{"email":"PRO@example.com","password":"pitch2026"}`, 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	h, tokens := newAuth()
	rec := serve(h.Register, http.MethodPost, "/v1/auth/register", "/v1/auth/register",
		`{"email":"a@example.com","password":"pitch2026"}`, 0, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var first authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	body := `{"refresh_token":"` + first.Refresh.Token + `"}`
	rec = serve(h.Refresh, http.MethodPost, "/v1/auth/refresh", "/v1/auth/refresh", body, 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, tokens.live, 1)

	rec = serve(h.Refresh, http.MethodPost, "/v1/auth/refresh", "/v1/auth/refresh", body, 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a rotated token is spent")
}

func TestMe(t *testing.T) {
	h, _ := newAuth()
	rec := serve(h.Me, http.MethodGet, "/v1/me", "/v1/me", "", 3, model.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":3,"role":"ADMIN","capabilities":{"book":false,"manage_venues":true,"see_all":true}}`, rec.Body.String())
}
