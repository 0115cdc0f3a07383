package service

import (
	"errors"
	"testing"

	"github.com/yukifiles/yukifiles/internal/models"
	"github.com/yukifiles/yukifiles/pkg/testutil"
)

const testDemoEmail = "demo@yukifiles.com"

func newTestUserService(t *testing.T) (*UserService, func()) {
	t.Helper()

	reg, _, cleanup := testutil.SetupTest(t)
	activity := NewActivityService(reg.Activity)
	svc := NewUserService(reg.Users, activity, reg, DemoPolicy{
		Email: testDemoEmail,
		Name:  "Demo User",
		Admin: true,
	}, 100)
	return svc, cleanup
}

func TestUserService_Create_AssignsDemoAdminRole(t *testing.T) {
	svc, cleanup := newTestUserService(t)
	defer cleanup()

	admin, err := svc.Create(testDemoEmail, "Demo User")
	if err != nil {
		t.Fatalf("create demo user: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Fatalf("expected demo account to be admin, got %s", admin.Role)
	}
	if admin.StorageLimit != 100 {
		t.Fatalf("expected default storage limit 100, got %d", admin.StorageLimit)
	}

	regular, err := svc.Create("other@example.com", "Other")
	if err != nil {
		t.Fatalf("create regular user: %v", err)
	}
	if regular.Role != models.RoleUser {
		t.Fatalf("expected regular account role user, got %s", regular.Role)
	}
}

func TestUserService_Create_RejectsDuplicateEmail(t *testing.T) {
	svc, cleanup := newTestUserService(t)
	defer cleanup()

	if _, err := svc.Create("a@example.com", "A"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc.Create("a@example.com", "A again"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserService_Authenticate_DemoPolicy(t *testing.T) {
	svc, cleanup := newTestUserService(t)
	defer cleanup()

	// Any non-empty credential is accepted for the demo email; the account
	// is created on first login.
	user, err := svc.Authenticate(testDemoEmail, "anything")
	if err != nil {
		t.Fatalf("authenticate demo user: %v", err)
	}
	if user.Email != testDemoEmail {
		t.Fatalf("unexpected email %q", user.Email)
	}

	// Second login reuses the same account.
	again, err := svc.Authenticate(testDemoEmail, "something-else")
	if err != nil {
		t.Fatalf("authenticate again: %v", err)
	}
	if again.ID != user.ID {
		t.Fatal("expected repeated login to reuse the existing account")
	}
}

func TestUserService_Authenticate_Rejections(t *testing.T) {
	svc, cleanup := newTestUserService(t)
	defer cleanup()

	if _, err := svc.Authenticate(testDemoEmail, ""); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for empty credential, got %v", err)
	}
	if _, err := svc.Authenticate("other@example.com", "password"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for unrecognized email, got %v", err)
	}
	// Demo email matching is exact, so a differently-cased address fails.
	if _, err := svc.Authenticate("Demo@yukifiles.com", "password"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for differently-cased email, got %v", err)
	}
}

func TestUserService_Reserve_QuotaErrors(t *testing.T) {
	svc, cleanup := newTestUserService(t)
	defer cleanup()

	user, err := svc.Create("a@example.com", "A")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := svc.Reserve(user.ID, 60); err != nil {
		t.Fatalf("reserve within quota: %v", err)
	}
	if err := svc.Reserve(user.ID, 50); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if err := svc.Reserve("missing", 10); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	info, err := svc.GetStorageInfo(user.ID)
	if err != nil {
		t.Fatalf("storage info: %v", err)
	}
	if info.Used != 60 || info.Free != 40 {
		t.Fatalf("expected used=60 free=40, got used=%d free=%d", info.Used, info.Free)
	}
}
