package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"discogsography/internal/apperr"
	"discogsography/internal/jwtauth"
	"discogsography/internal/middleware"
	"discogsography/internal/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Register implements POST /api/auth/register, per spec.md §8 S1/S2.
func (a *API) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "email and password are required"})
	}

	var existing models.User
	err := a.pool.DB.WithContext(c.Context()).Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return a.respondErr(c, apperr.Conflict("Email address already registered"))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return a.respondErr(c, apperr.Internal(err))
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}

	user := models.User{Email: req.Email, HashedPassword: hashed, IsActive: true}
	if err := a.pool.DB.WithContext(c.Context()).Create(&user).Error; err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}

	return c.Status(fiber.StatusCreated).JSON(userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login implements POST /api/auth/login, per spec.md §8 S1.
func (a *API) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "email and password are required"})
	}

	var user models.User
	err := a.pool.DB.WithContext(c.Context()).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return a.respondErr(c, apperr.Unauthorized("invalid credentials"))
	}
	if err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}

	if err := VerifyPassword(user.HashedPassword, req.Password); err != nil {
		return a.respondErr(c, err)
	}

	ttl := time.Duration(a.jwtTokenTTLSeconds) * time.Second
	token, err := jwtauth.Issue(user.ID.String(), a.jwtSecret, ttl)
	if err != nil {
		return a.respondErr(c, apperr.Internal(err))
	}

	return c.JSON(loginResponse{AccessToken: token, TokenType: "bearer", ExpiresIn: a.jwtTokenTTLSeconds})
}

// Me implements GET /api/auth/me (auth required).
func (a *API) Me(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	var user models.User
	if err := a.pool.DB.WithContext(c.Context()).First(&user, "id = ?", userID).Error; err != nil {
		return a.respondErr(c, apperr.NotFound("user"))
	}

	return c.JSON(userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	})
}
