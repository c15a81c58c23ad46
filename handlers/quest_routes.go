package handlers

import (
	"time"

	"habit-quest-system/middleware"
	"habit-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupQuestRoutes(app *fiber.App, tasks *services.TaskService, habits *services.HabitService) {
	taskGroup := app.Group("/tasks", middleware.UserContextMiddleware())

	taskGroup.Post("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Title   string     `json:"title"`
			DueDate *time.Time `json:"due_date,omitempty"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
		}

		task, err := tasks.CreateTask(userID, req.Title, req.DueDate)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	taskGroup.Get("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		list, err := tasks.ListTasks(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(list)
	})

	taskGroup.Post("/:id/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		task, err := tasks.CompleteTask(userID, c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(task)
	})

	taskGroup.Delete("/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := tasks.DeleteTask(userID, c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "task deleted"})
	})

	habitGroup := app.Group("/habits", middleware.UserContextMiddleware())

	habitGroup.Post("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req services.HabitCreateInput
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
		}

		habit, err := habits.CreateHabit(userID, req)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(habit)
	})

	habitGroup.Get("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		list, err := habits.ListHabits(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(list)
	})

	habitGroup.Post("/:id/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		habit, err := habits.CompleteHabit(userID, c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(habit)
	})

	habitGroup.Delete("/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := habits.DeleteHabit(userID, c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "habit deleted"})
	})
}
