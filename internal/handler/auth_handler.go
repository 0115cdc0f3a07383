package handler

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/yukifiles/yukifiles/internal/service"
	"github.com/yukifiles/yukifiles/pkg/logger"
	"github.com/yukifiles/yukifiles/pkg/response"
)

// emailRegex provides additional validation beyond net/mail
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}
	return emailRegex.MatchString(email)
}

type AuthHandler struct {
	authSvc *service.AuthService
	userSvc *service.UserService
}

func NewAuthHandler(authSvc *service.AuthService, userSvc *service.UserService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, userSvc: userSvc}
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user,omitempty"`
}

// LoginRequest handles one-shot login with email + password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	// Emails are matched exactly; only surrounding whitespace is trimmed.
	req.Email = strings.TrimSpace(req.Email)

	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "email and password are required")
	}

	if !isValidEmail(req.Email) {
		return response.BadRequest(c, "invalid email format")
	}

	user, token, err := h.authSvc.Login(req.Email, req.Password)
	if err != nil {
		RecordAuthFailure("invalid_credentials")
		logger.Audit("login_failed", "", map[string]string{
			"ip": c.IP(),
		})
		return response.Unauthorized(c, "invalid credentials")
	}

	logger.Audit("login_success", user.ID, map[string]string{
		"email": user.Email,
	})

	return response.Success(c, AuthResponse{
		Token: token,
		User:  user,
	})
}

// Register handles POST /auth/register and creates an account directly.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if req.Email == "" || req.Name == "" {
		return response.BadRequest(c, "email and name are required")
	}

	if !isValidEmail(req.Email) {
		return response.BadRequest(c, "invalid email format")
	}

	user, err := h.userSvc.Create(req.Email, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			return response.Conflict(c, "email already registered")
		}
		logger.Error().Err(err).Str("email", req.Email).Msg("Register failed")
		return response.InternalError(c, "registration failed")
	}

	token, err := h.authSvc.IssueToken(user)
	if err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("Token issue failed after registration")
		return response.InternalError(c, "registration failed")
	}

	logger.Audit("user_registered", user.ID, map[string]string{
		"email": req.Email,
	})

	return response.Created(c, AuthResponse{
		Token: token,
		User:  user,
	})
}

func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	user, err := h.authSvc.GetUserByID(userID)
	if err != nil {
		return response.NotFound(c, "user not found")
	}

	return response.Success(c, user)
}

func (h *AuthHandler) GetStorageInfo(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	info, err := h.userSvc.GetStorageInfo(userID)
	if err != nil {
		return response.NotFound(c, "user not found")
	}

	return response.Success(c, info)
}
