package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yukifiles/yukifiles/internal/models"
	"github.com/yukifiles/yukifiles/internal/repository"
	"github.com/yukifiles/yukifiles/pkg/logger"
)

// DemoPolicy is the placeholder credential policy: a single recognized
// email for which any non-empty credential is accepted. Real credential
// verification is explicitly out of scope for this registry.
type DemoPolicy struct {
	Email string
	Name  string
	Admin bool
}

// UserService owns identity and quota bookkeeping.
type UserService struct {
	userRepo            *repository.UserRepository
	activity            *ActivityService
	persister           Persister
	demo                DemoPolicy
	defaultStorageLimit int64
	settings            SettingsProvider
}

func NewUserService(
	userRepo *repository.UserRepository,
	activity *ActivityService,
	persister Persister,
	demo DemoPolicy,
	defaultStorageLimit int64,
) *UserService {
	return &UserService{
		userRepo:            userRepo,
		activity:            activity,
		persister:           persister,
		demo:                demo,
		defaultStorageLimit: defaultStorageLimit,
	}
}

func (s *UserService) SetSettingsProvider(sp SettingsProvider) {
	s.settings = sp
}

func (s *UserService) storageLimit() int64 {
	if s.settings != nil {
		if limit := s.settings.GetDefaultStorageLimit(); limit > 0 {
			return limit
		}
	}
	return s.defaultStorageLimit
}

// Create registers a new account. Email uniqueness is case-sensitive over
// the stored representation.
func (s *UserService) Create(email, name string) (*models.User, error) {
	role := models.RoleUser
	if s.demo.Admin && email == s.demo.Email {
		role = models.RoleAdmin
	}

	now := time.Now()
	user := &models.User{
		ID:           "user_" + uuid.New().String(),
		Email:        email,
		Name:         name,
		Role:         role,
		StorageUsed:  0,
		StorageLimit: s.storageLimit(),
		CreatedAt:    now,
		LastLoginAt:  now,
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.activity.Record(user.ID, models.ActionUserCreated, fmt.Sprintf("User %s created account", name), nil)
	s.persister.Persist()

	return user, nil
}

// Authenticate applies the demo policy: any non-empty credential is valid
// for the recognized demo email, and the account is created on first login.
// Every other email fails.
func (s *UserService) Authenticate(email, credential string) (*models.User, error) {
	if credential == "" || email != s.demo.Email {
		return nil, ErrAuthenticationFailed
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		user, err = s.Create(email, s.demo.Name)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if err := s.userRepo.TouchLogin(user.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLoginAt = now

	logger.Audit("user_login", user.ID, map[string]string{"email": user.Email})
	s.activity.Record(user.ID, models.ActionUserLogin, "User logged in", nil)
	s.persister.Persist()

	return user, nil
}

func (s *UserService) GetByID(id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Reserve claims delta bytes of the user's quota. The check and increment
// are a single atomic step; on failure nothing changes.
func (s *UserService) Reserve(userID string, delta int64) error {
	ok, err := s.userRepo.Reserve(userID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}

// Release returns delta bytes to the quota, floored at zero.
func (s *UserService) Release(userID string, delta int64) {
	s.userRepo.Release(userID, delta)
}

func (s *UserService) GetStorageInfo(userID string) (*models.StorageInfo, error) {
	info, err := s.userRepo.GetStorageInfo(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return info, nil
}
