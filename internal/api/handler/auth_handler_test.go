package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/pm-health/patient-service/internal/core/domain"
)

type stubAuthService struct {
	user  *domain.User
	token string
	err   error
}

func (s *stubAuthService) Register(_ context.Context, username, _, email, role string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{Username: username, Email: email, Role: role}, nil
}

func (s *stubAuthService) Login(_ context.Context, _, _ string) (string, *domain.User, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.token, s.user, nil
}

func TestRegister_Created(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, rec := newTestContext(http.MethodPost, "/auth/register",
		`{"username":"alice","password":"s3cret","email":"a@example.com","role":"staff"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d", rec.Code)
	}
}

func TestRegister_DuplicatePassesThrough(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{err: domain.ErrUserExists})

	c, _ := newTestContext(http.MethodPost, "/auth/register",
		`{"username":"alice","password":"pw","role":"staff"}`)
	err := h.Register(c)
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{
		token: "signed-token",
		user:  &domain.User{Username: "alice", Role: domain.RoleStaff},
	})

	c, rec := newTestContext(http.MethodPost, "/auth/login",
		`{"username":"alice","password":"s3cret"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
}

func TestLogin_FailureIsUniform(t *testing.T) {
	// Whatever the underlying cause, callers see only invalid credentials.
	for _, cause := range []error{domain.ErrUserNotFound, domain.ErrInvalidCredentials} {
		h := NewAuthHandler(&stubAuthService{err: cause})

		c, _ := newTestContext(http.MethodPost, "/auth/login",
			`{"username":"alice","password":"wrong"}`)
		err := h.Login(c)
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("cause %v: expected ErrInvalidCredentials, got %v", cause, err)
		}
	}
}
