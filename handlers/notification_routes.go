package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"reward-ledger/logger"
	"reward-ledger/middleware"
	"reward-ledger/services"
)

const streamPollInterval = 2 * time.Second

// SetupNotificationRoutes mounts the inbox backed by the database sink.
func SetupNotificationRoutes(app *fiber.App, inbox *services.InboxService, log *logger.Logger) {
	h := &inboxHandlers{inbox: inbox, log: log.With("component", "inbox")}

	user := middleware.UserContextMiddleware(log)
	app.Get("/notifications", user, h.list)
	app.Get("/notifications/counts", user, h.counts)
	app.Get("/notifications/stream", user, h.stream)
	app.Post("/notifications/viewed", user, h.markAllViewed)
	app.Post("/notifications/:id/viewed", user, h.markViewed)
}

type inboxHandlers struct {
	inbox *services.InboxService
	log   *logger.Logger
}

func (h *inboxHandlers) list(c *fiber.Ctx) error {
	items, err := h.inbox.List(c.UserContext(), middleware.UserID(c), c.QueryInt("limit", 0), c.QueryBool("unviewed", false))
	if err != nil {
		h.log.Error("list notifications", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "reason": "internal_error"})
	}
	return c.JSON(items)
}

func (h *inboxHandlers) counts(c *fiber.Ctx) error {
	counts, err := h.inbox.Counts(c.UserContext(), middleware.UserID(c))
	if err != nil {
		h.log.Error("count notifications", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "reason": "internal_error"})
	}
	return c.JSON(counts)
}

func (h *inboxHandlers) markViewed(c *fiber.Ctx) error {
	err := h.inbox.MarkViewed(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *inboxHandlers) markAllViewed(c *fiber.Ctx) error {
	n, err := h.inbox.MarkAllViewed(c.UserContext(), middleware.UserID(c))
	if err != nil {
		h.log.Error("mark notifications viewed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "reason": "internal_error"})
	}
	return c.JSON(fiber.Map{"success": true, "marked_count": n})
}

// stream pushes new notifications as server-sent events by polling the
// inbox from the newest row present when the client connected.
func (h *inboxHandlers) stream(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// Done only closes on server shutdown. A client that went away is noticed
	// when the next keepalive Flush fails.
	done := c.Context().Done()
	ctx := context.Background()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		cursor, err := h.inbox.Latest(ctx, userID)
		if err != nil {
			h.log.Warn("stream init failed", "user_id", userID, "error", err)
		}

		_, _ = w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(streamPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				items, err := h.inbox.Since(ctx, userID, cursor)
				if err != nil {
					h.log.Warn("stream poll failed", "user_id", userID, "error", err)
					continue
				}
				if len(items) == 0 {
					// Keepalive also detects closed connections.
					_, _ = w.WriteString(":\n\n")
				}
				for _, n := range items {
					payload, err := json.Marshal(n)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", n.ID, n.Type, payload)
					cursor = n.CreatedAt
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}
