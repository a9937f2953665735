package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TooLazyToCreate/counseling-service/config"
	"github.com/TooLazyToCreate/counseling-service/internal/password"
	"github.com/TooLazyToCreate/counseling-service/internal/repository"
	"github.com/TooLazyToCreate/counseling-service/internal/service"
	"github.com/TooLazyToCreate/counseling-service/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

type testServer struct {
	handler http.Handler
	clock   *clock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{
		Env:           "DEV",
		Storage:       config.StorageMemory,
		SecretKey:     "test-secret",
		TokenLifetime: token.DefaultLifetime,
		CorsOrigins:   []string{"http://localhost:5173", "http://localhost", "http://localhost:8080"},
	}
	c := &clock{now: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)}

	mem := repository.NewInMemory()
	hasher := password.NewHasher(password.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	authService, err := service.NewAuthService(logger, mem.Users(), hasher, token.NewService(cfg.Secret(), cfg.TokenLifetime, token.WithClock(c.Now)))
	require.NoError(t, err)
	noteService := service.NewNoteService(logger, mem.Notes(), mem.Users())

	return &testServer{handler: NewRouter(logger, cfg, authService, noteService), clock: c}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type userBody struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type loginBody struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userBody `json:"user"`
}

type detailBody struct {
	Detail string `json:"detail"`
}

func (s *testServer) registerAndLogin(t *testing.T, email, fullName, role string) (userBody, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"email": email, "password": "testpass123", "full_name": fullName, "role": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/login", "", map[string]string{"email": email, "password": "testpass123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[loginBody](t, rec)
	return login.User, login.AccessToken
}

func TestEndToEnd_RegisterLoginHello(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"email":     "test@example.com",
		"password":  "testpass123",
		"full_name": "Test User",
		"role":      "patient",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode[struct {
		Message string   `json:"message"`
		User    userBody `json:"user"`
	}](t, rec)
	assert.Equal(t, "User registered successfully", registered.Message)
	assert.Equal(t, userBody{ID: registered.User.ID, Email: "test@example.com", FullName: "Test User", Role: "patient"}, registered.User)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "test@example.com", "password": "testpass123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[loginBody](t, rec)
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, registered.User, login.User)
	assert.NotContains(t, rec.Body.String(), "hashed_password")

	rec = s.do(t, http.MethodGet, "/hello", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hello := decode[struct {
		Message string `json:"message"`
		User    struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}](t, rec)
	assert.Equal(t, "Hello, Test User!", hello.Message)
	assert.Equal(t, "test@example.com", hello.User.Email)
	assert.Equal(t, "patient", hello.User.Role)

	rec = s.do(t, http.MethodGet, "/hello", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Not authenticated", decode[detailBody](t, rec).Detail)
}

func TestRegister_Errors(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "test@example.com", "Test User", "patient")

	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"email": "test@example.com", "password": "x", "full_name": "Again", "role": "patient",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", decode[detailBody](t, rec).Detail)

	rec = s.do(t, http.MethodPost, "/register", "", map[string]string{
		"email": "admin@example.com", "password": "x", "full_name": "Admin", "role": "admin",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[detailBody](t, rec).Detail, "role")

	rec = s.do(t, http.MethodPost, "/register", "", `{"email": "broken`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPost, "/register", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPost, "/register", "", map[string]string{
		"email": "nopw@example.com", "full_name": "No Password", "role": "patient",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "password: field required", decode[detailBody](t, rec).Detail)

	rec = s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "nopw@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "test@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "test@example.com", "Test User", "patient")

	wrong := s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "test@example.com", "password": "bad"})
	unknown := s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "nobody@example.com", "password": "testpass123"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, "Invalid email or password", decode[detailBody](t, wrong).Detail)
}

func TestHello_TokenFailuresCollapse(t *testing.T) {
	s := newTestServer(t)
	_, accessToken := s.registerAndLogin(t, "test@example.com", "Test User", "patient")

	foreign := token.NewService([]byte("other-secret"), token.DefaultLifetime)
	forged, _, err := foreign.Issue(token.Subject{Email: "test@example.com"}, s.clock.Now())
	require.NoError(t, err)

	issuedAt := s.clock.now
	s.clock.now = issuedAt.Add(30 * time.Minute)
	expired := s.do(t, http.MethodGet, "/hello", accessToken, nil)
	s.clock.now = issuedAt

	responses := map[string]*httptest.ResponseRecorder{
		"expired":   expired,
		"forged":    s.do(t, http.MethodGet, "/hello", forged, nil),
		"malformed": s.do(t, http.MethodGet, "/hello", "garbage", nil),
	}
	for name, rec := range responses {
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Equal(t, "Could not validate credentials", decode[detailBody](t, rec).Detail, name)
	}

	s.clock.now = issuedAt.Add(29 * time.Minute)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/hello", accessToken, nil).Code)
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Hello":"World"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type noteBody struct {
	ID         int64      `json:"id"`
	PatientID  int64      `json:"patient_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
	AuthorName string     `json:"author_name"`
}

func TestNotes_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	_, doctorToken := s.registerAndLogin(t, "doc@example.com", "Dr. Who", "psychologist")
	_, otherToken := s.registerAndLogin(t, "other@example.com", "Dr. Other", "psychologist")
	patient, patientToken := s.registerAndLogin(t, "pat@example.com", "Pat Patient", "patient")

	rec := s.do(t, http.MethodPost, "/notes", patientToken, map[string]any{"patient_id": patient.ID, "content": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/notes", "", map[string]any{"patient_id": patient.ID, "content": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/notes", doctorToken, map[string]any{"patient_id": patient.ID, "content": "Patient reports anxiety"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[noteBody](t, rec)
	assert.Equal(t, "Dr. Who", created.AuthorName)
	assert.Nil(t, created.UpdatedAt)

	rec = s.do(t, http.MethodPost, "/notes", doctorToken, map[string]any{"patient_id": 12345, "content": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/notes/?patient_id=%d&search=ANXIETY", patient.ID), otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	listed := decode[[]noteBody](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	rec = s.do(t, http.MethodGet, "/notes?patient_id=0&offset=-5", doctorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[[]noteBody](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/notes?limit=abc", doctorToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	notePath := fmt.Sprintf("/notes/%d", created.ID)
	rec = s.do(t, http.MethodGet, notePath, otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Patient reports anxiety", decode[noteBody](t, rec).Content)

	rec = s.do(t, http.MethodPut, notePath, otherToken, map[string]string{"content": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, notePath, doctorToken, map[string]string{"content": "Anxiety improving"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[noteBody](t, rec)
	assert.Equal(t, "Anxiety improving", updated.Content)
	assert.NotNil(t, updated.UpdatedAt)

	rec = s.do(t, http.MethodDelete, notePath, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, notePath, doctorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "Clinical note deleted successfully"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, notePath, doctorToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/notes/not-a-number", doctorToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRequestBodyIsNeverEchoed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "x@example.com", "password": "super-secret-password"})
	assert.False(t, strings.Contains(rec.Body.String(), "super-secret-password"))
}
