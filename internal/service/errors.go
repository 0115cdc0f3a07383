package service

import "errors"

// Service-level error kinds. All are local, recoverable conditions the
// handler layer translates into HTTP responses; none are fatal.
var (
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrQuotaExceeded        = errors.New("storage quota exceeded")
	ErrUserNotFound         = errors.New("user not found")
	ErrFileNotFound         = errors.New("file not found")
	ErrFolderNotFound       = errors.New("folder not found")
	ErrShareNotFound        = errors.New("share link not found")
	ErrNotOwner             = errors.New("not the owner")
	ErrNotAFolder           = errors.New("parent is not a folder")
	ErrCyclicMove           = errors.New("cannot move a folder into itself")
	ErrPasswordRequired     = errors.New("password required")
	ErrWrongPassword        = errors.New("wrong password")
	ErrShareExpired         = errors.New("share link has expired")
	ErrDownloadLimitReached = errors.New("download limit reached")
	ErrDownloadDisabled     = errors.New("downloads are disabled for this link")
	ErrUploadTooLarge       = errors.New("file exceeds maximum allowed size")
)

// Persister flushes the registry snapshot after a mutating operation.
// Persistence is best-effort; implementations log failures and continue.
type Persister interface {
	Persist()
}

// SettingsProvider provides runtime-configurable settings.
type SettingsProvider interface {
	GetDefaultStorageLimit() int64
	GetMaxUploadSize() int64
}
