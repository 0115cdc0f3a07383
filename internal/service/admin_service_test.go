package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/yukifiles/yukifiles/pkg/testutil"
)

type adminServiceEnv struct {
	*shareServiceEnv
	admin *AdminService
}

func newAdminServiceEnv(t *testing.T) *adminServiceEnv {
	t.Helper()

	reg, cfg, cleanup := testutil.SetupTest(t)
	activity := NewActivityService(reg.Activity)
	users := NewUserService(reg.Users, activity, reg, DemoPolicy{
		Email: testDemoEmail,
		Name:  "Demo User",
		Admin: true,
	}, 1000)
	files := NewFileService(reg.Files, users, activity, reg, cfg.StoragePath)
	shares := NewShareService(reg.Shares, reg.Files, files, activity, reg)
	admin := NewAdminService(reg.Settings, reg.Users, reg.Files, reg.Shares, activity, reg, 1000, 500)

	return &adminServiceEnv{
		shareServiceEnv: &shareServiceEnv{
			fileServiceEnv: &fileServiceEnv{reg: reg, users: users, files: files, cleanup: cleanup},
			shares:         shares,
		},
		admin: admin,
	}
}

func TestAdminService_SeedsDefaultSettings(t *testing.T) {
	env := newAdminServiceEnv(t)
	defer env.cleanup()

	if got := env.admin.GetDefaultStorageLimit(); got != 1000 {
		t.Fatalf("expected seeded storage limit 1000, got %d", got)
	}
	if got := env.admin.GetMaxUploadSize(); got != 500 {
		t.Fatalf("expected seeded max upload size 500, got %d", got)
	}

	// Seeding must not clobber a value that survived a restart.
	env.reg.Settings.Set(SettingDefaultStorageLimit, "2000")
	admin2 := NewAdminService(env.reg.Settings, env.reg.Users, env.reg.Files, env.reg.Shares,
		NewActivityService(env.reg.Activity), env.reg, 1000, 500)
	if got := admin2.GetDefaultStorageLimit(); got != 2000 {
		t.Fatalf("expected existing setting to win over seed, got %d", got)
	}
}

func TestAdminService_UpdateSettingsRefreshesCache(t *testing.T) {
	env := newAdminServiceEnv(t)
	defer env.cleanup()

	env.admin.UpdateSettings(map[string]string{
		SettingDefaultStorageLimit: "4096",
		SettingMaxUploadSize:       "1024",
	})

	if got := env.admin.GetDefaultStorageLimit(); got != 4096 {
		t.Fatalf("expected updated storage limit 4096, got %d", got)
	}
	if got := env.admin.GetMaxUploadSize(); got != 1024 {
		t.Fatalf("expected updated max upload size 1024, got %d", got)
	}
}

func TestAdminService_CachedSettingFallbacks(t *testing.T) {
	env := newAdminServiceEnv(t)
	defer env.cleanup()

	if got := env.admin.GetCachedSetting("no_such_key"); got != "" {
		t.Fatalf("expected empty string for unknown key, got %q", got)
	}
	if got := env.admin.GetCachedSettingInt("no_such_key", 7); got != 7 {
		t.Fatalf("expected fallback 7 for unknown key, got %d", got)
	}

	env.admin.UpdateSettings(map[string]string{"theme": "dark"})
	if got := env.admin.GetCachedSettingInt("theme", 7); got != 7 {
		t.Fatalf("expected fallback for non-numeric value, got %d", got)
	}
}

func TestAdminService_UsageStats(t *testing.T) {
	env := newAdminServiceEnv(t)
	defer env.cleanup()

	owner := env.mustCreateUser(t, "owner@example.com")
	file := env.mustUpload(t, owner.ID, "report.pdf", strings.Repeat("x", 10), nil)
	if _, err := env.files.CreateFolder(owner.ID, "docs", nil); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	revoked := env.mustShare(t, owner.ID, file.ID, nil)
	if err := env.shares.Revoke(owner.ID, revoked.Token()); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	env.mustShare(t, owner.ID, file.ID, nil)

	stats := env.admin.GetUsageStats()
	if stats.TotalUsers != 1 {
		t.Fatalf("expected 1 user, got %d", stats.TotalUsers)
	}
	if stats.TotalFiles != 1 || stats.TotalFolders != 1 {
		t.Fatalf("expected 1 file and 1 folder, got %d/%d", stats.TotalFiles, stats.TotalFolders)
	}
	if stats.TotalStorageUsed != 10 {
		t.Fatalf("expected 10 bytes used, got %d", stats.TotalStorageUsed)
	}
	if stats.TotalShares != 2 || stats.ActiveShares != 1 {
		t.Fatalf("expected 2 shares with 1 active, got %d/%d", stats.TotalShares, stats.ActiveShares)
	}
}

func TestAdminService_ListUsers(t *testing.T) {
	env := newAdminServiceEnv(t)
	defer env.cleanup()

	owner := env.mustCreateUser(t, "owner@example.com")
	env.mustCreateUser(t, "idle@example.com")
	env.mustUpload(t, owner.ID, "a.txt", "aa", nil)
	env.mustUpload(t, owner.ID, "b.txt", "bb", nil)

	infos := env.admin.ListUsers()
	if len(infos) != 2 {
		t.Fatalf("expected 2 users, got %d", len(infos))
	}
	counts := make(map[string]int)
	for _, info := range infos {
		counts[info.Email] = info.FileCount
	}
	if counts["owner@example.com"] != 2 {
		t.Fatalf("expected 2 files for owner, got %d", counts["owner@example.com"])
	}
	if counts["idle@example.com"] != 0 {
		t.Fatalf("expected 0 files for idle user, got %d", counts["idle@example.com"])
	}
}

func TestAdminService_UserAnalytics(t *testing.T) {
	env := newAdminServiceEnv(t)
	defer env.cleanup()

	owner := env.mustCreateUser(t, "owner@example.com")
	folder, err := env.files.CreateFolder(owner.ID, "docs", nil)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	photo, err := env.files.Upload(&UploadRequest{
		OwnerID:  owner.ID,
		Name:     "photo.jpg",
		MimeType: "image/jpeg",
		Size:     5,
		Content:  strings.NewReader("12345"),
	})
	if err != nil {
		t.Fatalf("upload photo: %v", err)
	}
	env.mustUpload(t, owner.ID, "notes.txt", "123", &folder.ID)
	env.mustShare(t, owner.ID, photo.ID, nil)

	analytics, err := env.admin.UserAnalytics(owner.ID)
	if err != nil {
		t.Fatalf("user analytics: %v", err)
	}
	if analytics.TotalFiles != 2 || analytics.TotalFolders != 1 {
		t.Fatalf("expected 2 files and 1 folder, got %d/%d", analytics.TotalFiles, analytics.TotalFolders)
	}
	if analytics.StorageUsed != 8 {
		t.Fatalf("expected 8 bytes used, got %d", analytics.StorageUsed)
	}
	if analytics.TotalShares != 1 {
		t.Fatalf("expected 1 share, got %d", analytics.TotalShares)
	}
	if analytics.FileTypes["image"] != 1 || analytics.FileTypes["text"] != 1 {
		t.Fatalf("unexpected file type distribution: %v", analytics.FileTypes)
	}
	if len(analytics.RecentActivity) == 0 {
		t.Fatal("expected recent activity entries")
	}
	for _, entry := range analytics.RecentActivity {
		if entry.UserID != owner.ID {
			t.Fatalf("activity for foreign user %q leaked into analytics", entry.UserID)
		}
	}

	if _, err := env.admin.UserAnalytics("missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

var _ SettingsProvider = (*AdminService)(nil)
