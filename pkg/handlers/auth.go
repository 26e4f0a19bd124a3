package handlers

import (
	"errors"
	"log"
	"time"

	"skycast/pkg/core"
	"skycast/pkg/hub"
	"skycast/pkg/models"
	"skycast/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	auth services.AuthService
	hub  *hub.Hub
}

func NewAuth(auth services.AuthService, h *hub.Hub) *AuthHandler {
	return &AuthHandler{auth: auth, hub: h}
}

func (ah *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "invalid JSON"})
	}

	sess, err := ah.auth.Login(c.UserContext(), req.Username, req.Password)
	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		// One message for every credential failure; which field was wrong
		// is not disclosed.
		return c.Status(401).JSON(fiber.Map{"status": "error", "message": "invalid username or password"})
	case errors.Is(err, core.ErrCapacityExceeded):
		return c.Status(503).JSON(fiber.Map{"status": "error", "message": "session limit reached, retry shortly"})
	case errors.Is(err, core.ErrAcquireTimeout):
		return c.Status(503).JSON(fiber.Map{"status": "error", "message": "service busy, retry shortly"})
	case err != nil:
		log.Println("[AUTH] login error:", err)
		return c.Status(500).JSON(fiber.Map{"status": "error", "message": "internal error"})
	}

	go ah.hub.Broadcast("user_login", "auth", fiber.Map{
		"user_id": sess.UserID, "username": sess.Username,
	})

	return c.JSON(models.LoginResponse{
		Status:    "ok",
		Username:  sess.Username,
		UserID:    sess.UserID,
		Token:     sess.Token,
		ExpiresIn: int(time.Until(sess.ExpiresAt).Seconds()),
	})
}

func (ah *AuthHandler) Logout(c *fiber.Ctx) error {
	token, _ := c.Locals("token").(string)
	ah.auth.Logout(token)

	if userID, ok := c.Locals("user_id").(int); ok {
		username, _ := c.Locals("username").(string)
		go ah.hub.Broadcast("user_logout", "auth", fiber.Map{
			"user_id": userID, "username": username,
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
