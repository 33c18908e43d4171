package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestCreateUserAndLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := NewUserService(store.Users(), 4)
	authSvc := NewAuthService(config.AuthConfig{JWTSecret: "s", AccessTokenTTLMinutes: 5}, store.Users())

	created, err := users.CreateUser(ctx, UserCreateInput{Name: "Ada", Email: "Ada@Example.com", Password: "correct horse", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.RoleName != domain.RoleAdmin || created.Email != "ada@example.com" {
		t.Errorf("created = %+v", created)
	}

	user, token, _, err := authSvc.Login(ctx, "ada@example.com", "correct horse")
	if err != nil || token == "" || user.ID != created.ID {
		t.Fatalf("Login = %v, %q, %v", user, token, err)
	}
	claims, err := authSvc.TokenManager().ParseToken(token)
	if err != nil || claims.UserID != created.ID || claims.Role != domain.RoleAdmin {
		t.Errorf("claims = %+v, %v", claims, err)
	}

	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "wrong"},
		{"nobody@example.com", "correct horse"},
	} {
		if _, _, _, err := authSvc.Login(ctx, tc.email, tc.password); apperrors.ToDomainError(err).Code != "UNAUTHORIZED" {
			t.Errorf("Login(%s) err = %v, want unauthorized", tc.email, err)
		}
	}
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	users := NewUserService(memory.NewStore().Users(), 4)
	base := UserCreateInput{Name: "Bo", Email: "bo@example.com", Password: "long enough", Role: domain.RoleStaff}
	if _, err := users.CreateUser(ctx, base); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*UserCreateInput)
		code   string
	}{
		{"duplicate email", func(in *UserCreateInput) {}, "CONFLICT"},
		{"bad email", func(in *UserCreateInput) { in.Email = "nope" }, "VALIDATION_FAILED"},
		{"short password", func(in *UserCreateInput) { in.Email = "x@example.com"; in.Password = "short" }, "VALIDATION_FAILED"},
		{"unknown role", func(in *UserCreateInput) { in.Email = "y@example.com"; in.Role = "Auditor" }, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := users.CreateUser(ctx, in)
			if de := apperrors.ToDomainError(err); de == nil || de.Code != tt.code {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := NewUserService(store.Users(), 4)

	if _, created, err := users.EnsureAdmin(ctx, UserCreateInput{Name: "Root"}); err != nil || created {
		t.Fatalf("EnsureAdmin without email = %v, %v; want no-op", created, err)
	}
	first, created, err := users.EnsureAdmin(ctx, UserCreateInput{Name: "Root", Email: "Root@Example.com", Password: "bootstrap-pass", Role: domain.RoleStaff})
	if err != nil || !created {
		t.Fatalf("EnsureAdmin = %v, %v; want created", created, err)
	}
	if first.RoleName != domain.RoleAdmin || first.Email != "root@example.com" {
		t.Errorf("bootstrap user = %+v, want admin root@example.com", first)
	}
	if _, created, err := users.EnsureAdmin(ctx, UserCreateInput{Name: "Other", Email: "other@example.com", Password: "bootstrap-pass"}); err != nil || created {
		t.Errorf("second EnsureAdmin = %v, %v; want no-op", created, err)
	}
	if _, created, err := NewUserService(memory.NewStore().Users(), 4).EnsureAdmin(ctx, UserCreateInput{Name: "Root", Email: "root@example.com", Password: "short"}); err == nil || created {
		t.Errorf("EnsureAdmin with short password = %v, %v; want validation error", created, err)
	}
}
