package handlers

import (
	"habit-quest-system/middleware"
	"habit-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, users *services.UserService, hub *services.StatsHub) {
	// Registration arrives through the Gateway but before a user
	// context exists, so it is not behind UserContextMiddleware.
	app.Post("/user/register", func(c *fiber.Ctx) error {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.Username == "" || req.Email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "username and email are required"})
		}

		user, err := users.Register(req.Username, req.Email)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	securedGroup := app.Group("/user", middleware.UserContextMiddleware())

	securedGroup.Get("/me", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := users.ResolveUser(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(user)
	})

	securedGroup.Get("/me/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := users.ResolveUser(userID)
		if err != nil {
			return serviceError(c, err)
		}
		badges, err := users.GetBadges(user.ID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(badges)
	})

	// Live stats push (SSE)
	securedGroup.Get("/stats/stream", hub.StreamUserStatsSSE)

	// Admin endpoints
	adminGroup := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			XP     int    `json:"xp"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		user, leveledUp, err := users.GrantExperience(req.UserID, req.XP, req.Reason)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":    "XP granted successfully",
			"user_id":    user.ID,
			"level":      user.Level,
			"experience": user.Experience,
			"leveled_up": leveledUp,
		})
	})
}
