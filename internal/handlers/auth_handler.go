package handlers

import (
	"errors"
	"fmt"
	"log"

	"whisperbox/internal/models"
	"whisperbox/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for registration, verification, login
// and the username availability lookup used by the sign-up flow.
type AuthHandler struct {
	authService         *services.AuthService
	availabilityService *services.AvailabilityService
	validate            *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, availabilityService *services.AvailabilityService) *AuthHandler {
	return &AuthHandler{
		authService:         authService,
		availabilityService: availabilityService,
		validate:            validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/verify", h.HandleVerify)
	authRoutes.Post("/login", h.HandleLogin)

	router.Get("/username-availability", h.HandleUsernameAvailability)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var user models.User
	if err := c.BodyParser(&user); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	// Validate the user struct
	if err := h.validate.Struct(user); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	if err := h.authService.RegisterUser(&user); err != nil {
		log.Printf("Error registering user: %v", err)
		switch {
		case errors.Is(err, services.ErrUsernameTaken), errors.Is(err, services.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		case errors.Is(err, services.ErrInvalidUsername):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not register user",
			})
		}
	}

	// For security, do not return the password hash
	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully. Please verify your account.",
		"user":    user,
	})
}

// VerifyRequest represents the request body for account verification.
type VerifyRequest struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code" validate:"required,len=6"`
}

// HandleVerify confirms a registration with the one-time code.
func (h *AuthHandler) HandleVerify(c *fiber.Ctx) error {
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing verify request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	if err := h.authService.VerifyUser(req.Username, req.Code); err != nil {
		log.Printf("Error verifying user %s: %v", req.Username, err)
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": err.Error(),
			})
		case errors.Is(err, services.ErrInvalidCode), errors.Is(err, services.ErrCodeExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not verify account, please try again",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Account verified successfully",
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	// Validate the login request
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	token, err := h.authService.LoginUser(req.Username, req.Password)
	if err != nil {
		log.Printf("Error during login for user %s: %v", req.Username, err)
		if errors.Is(err, services.ErrNotVerified) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Please verify your account before logging in",
			})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleUsernameAvailability answers the debounced availability lookup made
// by the registration page on each keystroke. The verdict always echoes the
// evaluated candidate so the page can discard stale responses.
func (h *AuthHandler) HandleUsernameAvailability(c *fiber.Ctx) error {
	candidate := c.Query("username")
	verdict := h.availabilityService.Check(candidate)
	return c.JSON(verdict)
}
