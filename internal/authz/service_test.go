package authz

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testDBSeq int

func newTestService(t *testing.T) *Service {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:authz_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}

	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("create authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return svc
}

func TestBuiltinRoleMatrix(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{"admin", "/api/certificates", "GET", true},
		{"admin", "/api/certificates/upload", "POST", true},
		{"admin", "/api/certificates/:id", "DELETE", true},
		{"admin", "/api/certificates/export", "GET", true},
		{"admin", "/api/auth/me", "GET", true},
		{"admin", "/api/auth/profile", "PUT", true},
		{"admin", "/api/auth/change-password", "POST", true},
		{"admin", "/api/auth/change-password", "PUT", false},
		{"admin", "/api/auth/register", "POST", false},
		{"super_admin", "/api/auth/register", "POST", true},
		{"super_admin", "/api/certificates", "GET", true},
		{"viewer", "/api/certificates", "GET", false},
	}
	for _, tc := range cases {
		got, err := svc.EnforceRole(tc.role, tc.object, tc.action)
		if err != nil {
			t.Fatalf("enforce %s %s %s failed: %v", tc.role, tc.object, tc.action, err)
		}
		if got != tc.want {
			t.Fatalf("enforce %s %s %s: want %v got %v", tc.role, tc.object, tc.action, tc.want, got)
		}
	}
}

func TestEnforceMatchesPathParams(t *testing.T) {
	svc := newTestService(t)

	// keyMatch2 将 :id 匹配到具体路径段
	allowed, err := svc.Enforce("role:admin", "/api/certificates/42", "PUT")
	if err != nil {
		t.Fatalf("enforce failed: %v", err)
	}
	if !allowed {
		t.Fatalf("admin should reach /certificates/42")
	}
}

func TestGrantRolePolicy(t *testing.T) {
	svc := newTestService(t)

	if err := svc.GrantRolePolicy("auditor", "/certificates/export", "GET"); err != nil {
		t.Fatalf("grant policy failed: %v", err)
	}

	allowed, err := svc.EnforceRole("auditor", "/api/certificates/export", "GET")
	if err != nil {
		t.Fatalf("enforce failed: %v", err)
	}
	if !allowed {
		t.Fatalf("granted policy should take effect")
	}

	allowed, err = svc.EnforceRole("auditor", "/api/certificates", "GET")
	if err != nil {
		t.Fatalf("enforce failed: %v", err)
	}
	if allowed {
		t.Fatalf("auditor should not gain other routes")
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"admin", "role:admin", false},
		{"role:admin", "role:admin", false},
		{"  super admin  ", "role:super_admin", false},
		{"", "", true},
		{"role:", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeRole(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("NormalizeRole(%q): want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeRole(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeRole(%q): want %s got %s", tc.in, tc.want, got)
		}
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/api/certificates", "/certificates"},
		{"/api", "/"},
		{"/certificates", "/certificates"},
		{"certificates", "/certificates"},
		{"", "/"},
		{"/apiary", "/apiary"},
	}
	for _, tc := range cases {
		if got := NormalizeObject(tc.in); got != tc.want {
			t.Fatalf("NormalizeObject(%q): want %s got %s", tc.in, tc.want, got)
		}
	}
}
