package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StreamUserStatsSSE streams live gold/level updates for the
// authenticated user. Updates arrive from the StatsHub; a periodic
// comment line keeps intermediaries from closing the idle connection.
func (h *StatsHub) StreamUserStatsSSE(c *fiber.Ctx) error {
	username := c.Locals("username").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	updates, cancel := h.Subscribe(username)
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		keepalive := time.NewTicker(15 * time.Second)
		defer keepalive.Stop()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case update := <-updates:
				payload, _ := json.Marshal(update)
				fmt.Fprintf(w, "event: stats\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-keepalive.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-done:
				// Client closed connection
				return
			}
		}
	})

	return nil
}
