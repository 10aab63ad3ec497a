package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hackgods/appointment-booking/internal/memstore"
	"github.com/hackgods/appointment-booking/internal/user"
)

func validInput() user.SignupInput {
	return user.SignupInput{
		FullName:        "Ada Lovelace",
		Email:           "Ada@Example.com",
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
	}
}

func TestSignup(t *testing.T) {
	svc := user.NewService(memstore.New().Users())

	u, err := svc.Signup(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Errorf("email = %q, want lower-cased", u.Email)
	}
	if u.Role != user.RoleUser {
		t.Errorf("role = %s, want USER by default", u.Role)
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3cret-pass" {
		t.Errorf("password was not hashed")
	}
	if u.RefreshToken != nil {
		t.Errorf("new user has a refresh token")
	}

	if _, err := svc.Signup(context.Background(), validInput()); !errors.Is(err, user.ErrEmailTaken) {
		t.Errorf("duplicate Signup() error = %v, want ErrEmailTaken", err)
	}
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*user.SignupInput)
		want   error
	}{
		{"missing name", func(in *user.SignupInput) { in.FullName = "  " }, user.ErrMissingFields},
		{"missing email", func(in *user.SignupInput) { in.Email = "" }, user.ErrMissingFields},
		{"missing confirm", func(in *user.SignupInput) { in.ConfirmPassword = "" }, user.ErrMissingFields},
		{"mismatch", func(in *user.SignupInput) { in.ConfirmPassword = "other" }, user.ErrPasswordMismatch},
		{"bad email", func(in *user.SignupInput) { in.Email = "not-an-email" }, user.ErrInvalidEmail},
		{"bad role", func(in *user.SignupInput) { in.Role = "ROOT" }, user.ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := user.NewService(memstore.New().Users())
			in := validInput()
			tt.mutate(&in)
			if _, err := svc.Signup(context.Background(), in); !errors.Is(err, tt.want) {
				t.Errorf("Signup() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSignupRole(t *testing.T) {
	svc := user.NewService(memstore.New().Users())
	in := validInput()
	in.Role = "staff"

	u, err := svc.Signup(context.Background(), in)
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if u.Role != user.RoleStaff {
		t.Errorf("role = %s, want STAFF", u.Role)
	}
}

func TestLogin(t *testing.T) {
	svc := user.NewService(memstore.New().Users())
	ctx := context.Background()
	created, err := svc.Signup(ctx, validInput())
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	u, err := svc.Login(ctx, " ADA@example.com ", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if u.ID != created.ID {
		t.Errorf("logged in as %s, want %s", u.ID, created.ID)
	}

	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "wrong"},
		{"nobody@example.com", "s3cret-pass"},
		{"", ""},
	} {
		if _, err := svc.Login(ctx, tc.email, tc.password); !errors.Is(err, user.ErrInvalidCredentials) {
			t.Errorf("Login(%q) error = %v, want ErrInvalidCredentials", tc.email, err)
		}
	}

	if _, err := svc.GetUser(ctx, created.ID); err != nil {
		t.Errorf("GetUser() error = %v", err)
	}
}

func TestParseRole(t *testing.T) {
	r, err := user.ParseRole(" admin ")
	if err != nil || r != user.RoleAdmin {
		t.Errorf("ParseRole(admin) = %s, %v", r, err)
	}
	if !r.In(user.RoleStaff, user.RoleAdmin) {
		t.Errorf("ADMIN should be in [STAFF ADMIN]")
	}
	if user.RoleUser.In(user.RoleStaff, user.RoleAdmin) {
		t.Errorf("USER should not be in [STAFF ADMIN]")
	}
}
