package models

import "time"

// Role determines what a user may do. There are only two tiers.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// NodeKind distinguishes files from folders inside the tree.
type NodeKind string

const (
	KindFile   NodeKind = "file"
	KindFolder NodeKind = "folder"
)

// AnonymousUserID is the sentinel recorded for unauthenticated share access.
const AnonymousUserID = "anonymous"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	StorageUsed  int64     `json:"storageUsed"`
	StorageLimit int64     `json:"storageLimit"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLoginAt  time.Time `json:"lastLoginAt"`
}

// FileNode is a file or folder in a user's tree. Folders carry no content
// and no size. Path is derived state: the names of all ancestors plus the
// node's own name, root first.
type FileNode struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Kind     NodeKind `json:"kind"`
	MimeType string   `json:"mimeType,omitempty"`
	Size     int64    `json:"size"`

	// Content is an opaque blob handle resolved by the blob store; the
	// registry never interprets it.
	Content   string `json:"content,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`

	ParentID *string  `json:"parentId"`
	Path     []string `json:"path"`
	OwnerID  string   `json:"ownerId"`

	IsStarred bool `json:"isStarred"`
	IsShared  bool `json:"isShared"`
	IsPublic  bool `json:"isPublic"`

	DownloadCount int64 `json:"downloadCount"`
	ViewCount     int64 `json:"viewCount"`

	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`

	ShareSettings *ShareSettings `json:"shareSettings,omitempty"`

	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

// ShareSettings is a closed configuration object; no open-ended keys.
type ShareSettings struct {
	AllowDownload  bool `json:"allowDownload"`
	AllowPreview   bool `json:"allowPreview"`
	RequireEmail   bool `json:"requireEmail"`
	NotifyOnAccess bool `json:"notifyOnAccess"`
}

// ShareLink gates anonymous access to a single file. The ID doubles as the
// externally visible token. PasswordHash is a bcrypt hash; plaintext
// passwords are never stored.
type ShareLink struct {
	ID            string        `json:"id"`
	FileID        string        `json:"fileId"`
	CreatedBy     string        `json:"createdBy"`
	PasswordHash  *string       `json:"passwordHash,omitempty"`
	ExpiresAt     *time.Time    `json:"expiresAt,omitempty"`
	MaxDownloads  *int64        `json:"maxDownloads,omitempty"`
	DownloadCount int64         `json:"downloadCount"`
	ViewCount     int64         `json:"viewCount"`
	IsActive      bool          `json:"isActive"`
	Settings      ShareSettings `json:"settings"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Token returns the external locator for the link.
func (s *ShareLink) Token() string { return s.ID }

// Activity actions. Kept as plain strings in the log so new actions do not
// require a schema change.
const (
	ActionUserCreated   = "user_created"
	ActionUserLogin     = "user_login"
	ActionFileUploaded  = "file_uploaded"
	ActionFileDeleted   = "file_deleted"
	ActionFileRenamed   = "file_renamed"
	ActionFileMoved     = "file_moved"
	ActionFileStarred   = "file_starred"
	ActionFileDownload  = "file_downloaded"
	ActionFolderCreated = "folder_created"
	ActionFolderDeleted = "folder_deleted"
	ActionShareCreated  = "share_created"
	ActionShareAccessed = "share_accessed"
	ActionShareRevoked  = "share_revoked"
)

type ActivityEntry struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Action      string            `json:"action"`
	Description string            `json:"description"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StorageInfo struct {
	Quota int64 `json:"quota"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

type UsageStats struct {
	TotalUsers       int   `json:"total_users"`
	TotalFiles       int   `json:"total_files"`
	TotalFolders     int   `json:"total_folders"`
	TotalStorageUsed int64 `json:"total_storage_used"`
	TotalShares      int   `json:"total_shares"`
	ActiveShares     int   `json:"active_shares"`
}

type AdminUserInfo struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	StorageUsed  int64     `json:"storage_used_bytes"`
	StorageLimit int64     `json:"storage_limit_bytes"`
	FileCount    int       `json:"file_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// UserAnalytics is the per-user dashboard summary.
type UserAnalytics struct {
	TotalFiles     int              `json:"total_files"`
	TotalFolders   int              `json:"total_folders"`
	TotalShares    int              `json:"total_shares"`
	StorageUsed    int64            `json:"storage_used_bytes"`
	FileTypes      map[string]int   `json:"file_types"`
	RecentActivity []*ActivityEntry `json:"recent_activity"`
}
