package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/dealerdesk/dealerdesk/internal/auth"
	"github.com/dealerdesk/dealerdesk/internal/shared"
	_ "github.com/dealerdesk/dealerdesk/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newAuthRouter(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager, csrfManager)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			next.ServeHTTP(w, req.WithContext(ctx))
			if err := sessionManager.Commit(ctx, w, req, sess); err != nil {
				t.Fatalf("commit session: %v", err)
			}
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return r, sessionManager
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hashed)
}

func TestLoginSuccess(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "sales@dealerdesk.local",
		Name:         "Sales One",
		PasswordHash: hashPassword(t, "correct-horse"),
		IsActive:     true,
	}})

	body := `{"email":"sales@dealerdesk.local","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		UserID    int64  `json:"user_id"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID != 1 {
		t.Fatalf("expected user_id 1, got %d", payload.UserID)
	}
	if payload.CSRFToken == "" {
		t.Fatalf("expected csrf token in response")
	}
	if len(res.Result().Cookies()) == 0 {
		t.Fatalf("expected session cookie to be set")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "sales@dealerdesk.local",
		PasswordHash: hashPassword(t, "correct-horse"),
		IsActive:     true,
	}})

	body := `{"email":"sales@dealerdesk.local","password":"wrong-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "former@dealerdesk.local",
		PasswordHash: hashPassword(t, "correct-horse"),
		IsActive:     false,
	}})

	body := `{"email":"former@dealerdesk.local","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{})

	body := `{"email":"not-an-email","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
