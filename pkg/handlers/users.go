package handlers

import (
	"errors"
	"log"

	"skycast/pkg/core"
	"skycast/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type UsersHandler struct {
	users services.UsersService
}

func NewUsers(users services.UsersService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Get serves GET /users?username=&page=&limit= as a paginated directory.
func (uh *UsersHandler) Get(c *fiber.Ctx) error {
	query := c.Query("username")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	list, err := uh.users.Search(c.UserContext(), query, page, limit)
	if errors.Is(err, core.ErrAcquireTimeout) {
		return c.Status(503).JSON(fiber.Map{"error": "service busy, retry shortly"})
	}
	if err != nil {
		log.Println("[USERS] search error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "database operation failed"})
	}
	return c.JSON(list)
}
