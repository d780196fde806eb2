package contact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abduss/contactbook/internal/auth"
	"github.com/abduss/contactbook/internal/config"
	"github.com/abduss/contactbook/internal/user"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiHarness struct {
	router *gin.Engine
	auth   *auth.Service
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenService(config.AuthConfig{
		SecretKey:       "test-secret",
		Algorithm:       "HS256",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		EmailTokenTTL:   time.Hour,
	})
	require.NoError(t, err)

	users := newMemoryUsers()
	authService := auth.NewService(users, passthroughTx{}, auth.NewHasher(4), tokens)
	resolver := auth.NewResolver(tokens, users)

	r := gin.New()
	auth.RegisterRoutes(r, authService, resolver)
	group := r.Group("/api/contacts", auth.AuthMiddleware(resolver))
	RegisterRoutes(group, NewService(newMemoryStore(), passthroughTx{}))

	return &apiHarness{router: r, auth: authService}
}

func (h *apiHarness) login(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	_, err := h.auth.Signup(ctx, auth.SignupInput{Email: email, Password: "StrongPass1!"})
	require.NoError(t, err)
	pair, err := h.auth.Login(ctx, auth.LoginInput{Email: email, Password: "StrongPass1!"})
	require.NoError(t, err)
	return pair.AccessToken
}

func (h *apiHarness) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

const annJSON = `{
	"first_name": "Ann",
	"last_name": "Lee",
	"email": "ann@example.com",
	"phone_number": "+380501234567",
	"birth_date": "1990-06-15",
	"extra_data": "met at conference"
}`

func TestContactLifecycleThroughRouter(t *testing.T) {
	h := newAPIHarness(t)
	token := h.login(t, "owner@example.com")

	rr := h.do(http.MethodPost, "/api/contacts/", token, annJSON)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created Contact
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "1990-06-15", created.BirthDate.Format(dateLayout))
	assert.Contains(t, rr.Body.String(), `"birth_date":"1990-06-15"`)
	path := "/api/contacts/" + strconv.FormatInt(created.ID, 10)

	rr = h.do(http.MethodGet, path, token, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(http.MethodGet, "/api/contacts/?q=LEE", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []Contact
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	updated := strings.Replace(annJSON, `"Ann"`, `"Anna"`, 1)
	rr = h.do(http.MethodPut, path, token, updated)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"first_name":"Anna"`)

	rr = h.do(http.MethodDelete, path, token, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = h.do(http.MethodGet, path, token, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestContactsAreInvisibleToOtherUsers(t *testing.T) {
	h := newAPIHarness(t)
	owner := h.login(t, "owner@example.com")
	intruder := h.login(t, "intruder@example.com")

	rr := h.do(http.MethodPost, "/api/contacts/", owner, annJSON)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Contact
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	path := "/api/contacts/" + strconv.FormatInt(created.ID, 10)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, intruder, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPut, path, intruder, annJSON).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, path, intruder, "").Code)

	rr = h.do(http.MethodGet, "/api/contacts/", intruder, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	// Contact emails are unique across all owners.
	rr = h.do(http.MethodPost, "/api/contacts/", intruder, annJSON)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestContactRoutesRequireAuthentication(t *testing.T) {
	h := newAPIHarness(t)

	rr := h.do(http.MethodGet, "/api/contacts/", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = h.do(http.MethodGet, "/api/contacts/", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestContactRequestValidation(t *testing.T) {
	h := newAPIHarness(t)
	token := h.login(t, "owner@example.com")

	rr := h.do(http.MethodPost, "/api/contacts/", token, strings.Replace(annJSON, "1990-06-15", "15/06/1990", 1))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(http.MethodPost, "/api/contacts/", token, strings.Replace(annJSON, `"birth_date": "1990-06-15",`, "", 1))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(http.MethodGet, "/api/contacts/abc", token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(http.MethodGet, "/api/contacts/?limit=-1", token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpcomingBirthdaysRoute(t *testing.T) {
	h := newAPIHarness(t)
	token := h.login(t, "owner@example.com")

	today := time.Now()
	if today.Month() == time.February && today.Day() == 29 {
		t.Skip("no Feb 29 in 1990")
	}
	body := strings.Replace(annJSON, "1990-06-15", NewDate(1990, today.Month(), today.Day()).Format(dateLayout), 1)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/contacts/", token, body).Code)

	for _, path := range []string{"/api/contacts/upcoming_birthdays/", "/api/contacts/upcoming_birthdays"} {
		rr := h.do(http.MethodGet, path, token, "")
		require.Equal(t, http.StatusOK, rr.Code, path)
		var got []Contact
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Len(t, got, 1, path)
	}
}

// memoryUsers satisfies the auth service's user store.
type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	byMail map[string]user.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byMail: make(map[string]user.User)}
}

func (m *memoryUsers) Create(_ context.Context, email, hash string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byMail[email]; ok {
		return user.User{}, user.ErrDuplicateEmail
	}
	m.nextID++
	u := user.User{ID: m.nextID, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	m.byMail[email] = u
	return u, nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byMail[email]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryUsers) SetRefreshToken(_ context.Context, id int64, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, u := range m.byMail {
		if u.ID == id {
			u.RefreshToken = token
			m.byMail[k] = u
			return nil
		}
	}
	return user.ErrUserNotFound
}

func (m *memoryUsers) SwapRefreshToken(_ context.Context, id int64, expected, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, u := range m.byMail {
		if u.ID == id && u.RefreshToken != nil && *u.RefreshToken == expected {
			u.RefreshToken = &next
			m.byMail[k] = u
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUsers) Confirm(context.Context, string) error { return nil }
