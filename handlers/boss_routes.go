package handlers

import (
	"encoding/json"
	"fmt"

	"habit-quest-system/middleware"
	"habit-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBossRoutes(app *fiber.App, combat *services.CombatService, catalog *services.BossCatalogService) {
	securedGroup := app.Group("/boss", middleware.UserContextMiddleware())

	securedGroup.Get("/active", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		result, err := combat.GetActiveBoss(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(result)
	})

	securedGroup.Put("/attack", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Damage int `json:"damage"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		result, err := combat.AttackActiveBoss(userID, req.Damage)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(result)
	})

	securedGroup.Get("/selection", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		selection, err := combat.SelectEligibleBosses(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(selection)
	})

	securedGroup.Post("/select/:bossId", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		bossID := c.Params("bossId")

		boss, err := combat.EngageBoss(userID, bossID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": fmt.Sprintf("Boss '%s' successfully selected", boss.Name),
			"boss_id": boss.ID,
		})
	})

	securedGroup.Post("/fight/:bossId", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		bossID := c.Params("bossId")

		ok, err := combat.InitiateFight(bossID, userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"started": ok})
	})

	// Content setup: boss definitions are created by admins, with
	// optional artwork uploaded as multipart.
	adminGroup := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/boss", func(c *fiber.Ctx) error {
		var input services.BossCreateInput
		if payload := c.FormValue("boss"); payload != "" {
			if err := json.Unmarshal([]byte(payload), &input); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid boss payload"})
			}
		} else if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		artwork, _ := c.FormFile("artwork")

		boss, err := catalog.CreateBoss(input, artwork)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(boss)
	})

	adminGroup.Get("/bosses", func(c *fiber.Ctx) error {
		bosses, err := catalog.ListAllBosses()
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(bosses)
	})
}
