package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken(7, domain.RoleITAgent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) > 5*time.Minute {
		t.Errorf("expiry %v too far out", exp)
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 7 || claims.Role != domain.RoleITAgent || claims.Subject != "7" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsOtherSecretAndExpired(t *testing.T) {
	token, _, _ := NewTokenManager("a", 5).GenerateToken(1, domain.RoleStaff)
	if _, err := NewTokenManager("b", 5).ParseToken(token); err == nil {
		t.Error("token signed with another secret accepted")
	}

	old := NewTokenManager("a", 1)
	old.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _, _ := old.GenerateToken(1, domain.RoleStaff)
	if _, err := NewTokenManager("a", 1).ParseToken(stale); err == nil {
		t.Error("expired token accepted")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := ComparePassword(hash, "hunter2"); err != nil {
		t.Errorf("matching password rejected: %v", err)
	}
	if err := ComparePassword(hash, "nope"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("wrong password = %v, want ErrPasswordMismatch", err)
	}
	if err := ValidatePassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("ValidatePassword(short) = %v, want ErrPasswordTooShort", err)
	}
}

func TestMiddlewareAndRoleGuard(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	role, _ := store.Users().GetRoleByName(ctx, domain.RoleStaff)
	user := domain.User{Name: "sam", Email: "sam@example.com", RoleID: role.ID, Active: true}
	if err := store.Users().Create(ctx, &user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tm := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tm, store.Users())
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString(err.Error())
	}})
	app.Get("/me", mw.Handle, RequireRole(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	token, _, _ := tm.GenerateToken(user.ID, user.RoleName)
	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me", "", fiber.StatusUnauthorized},
		{"bad scheme", "/me", "Basic abc", fiber.StatusUnauthorized},
		{"valid", "/me", "Bearer " + token, fiber.StatusOK},
		{"wrong role", "/admin", "Bearer " + token, fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
