package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"reward-ledger/dbctx"
	"reward-ledger/logger"
	"reward-ledger/middleware"
	"reward-ledger/models"
	"reward-ledger/services"
)

// SetupRewardRoutes mounts the reward API. Secured routes carry the
// user-context middleware individually so unknown paths still fall through to
// a 404.
func SetupRewardRoutes(app *fiber.App, engine *services.Engine, log *logger.Logger) {
	h := &rewardHandlers{engine: engine, log: log.With("component", "http")}
	user := middleware.UserContextMiddleware(log)
	admin := middleware.RequireRole(services.RoleAdmin)

	app.Get("/ranks", h.listRanks)
	app.Get("/badges", h.listBadges)
	app.Get("/shop/items", h.listShopItems)

	app.Get("/user/profile", user, h.getProfile)
	app.Put("/user/background-color", user, h.setBackgroundColor)
	app.Post("/rewards/xp", user, h.awardXP)
	app.Post("/rewards/currency", user, h.awardCurrency)
	app.Post("/rewards/daily-checkin", user, h.dailyCheckIn)
	app.Post("/events", user, h.trackEvent)
	app.Post("/shop/purchase", user, h.purchase)
	app.Post("/shop/equip", user, h.equip)

	app.Post("/admin/shop/items", user, admin, h.createShopItem)
	app.Delete("/admin/shop/items/:id", user, admin, h.deleteShopItem)
	app.Post("/admin/xp/grant", user, admin, h.adminGrantXP)
	app.Post("/admin/currency/grant", user, admin, h.adminGrantCurrency)
	app.Post("/admin/badges/award", user, admin, h.adminAwardBadge)
}

type rewardHandlers struct {
	engine *services.Engine
	log    *logger.Logger
}

func (h *rewardHandlers) fail(c *fiber.Ctx, err error) error {
	return writeError(c, h.log, err)
}

// writeError writes err as {success:false, reason}. Internal errors are logged
// and their text withheld.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	reason := services.Reason(err)
	body := fiber.Map{"success": false, "reason": reason}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInsufficientFunds):
		status = fiber.StatusPaymentRequired
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidArgument):
		status = fiber.StatusBadRequest
	case errors.Is(err, dbctx.ErrTransientConflict):
		status = fiber.StatusServiceUnavailable
		body["retryable"] = true
	}

	if status == fiber.StatusInternalServerError {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	} else {
		body["error"] = err.Error()
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"reason":  "invalid_argument",
		"error":   msg,
	})
}

// outcome writes a non-error result. Anything but a grant is success:false
// with the outcome as the reason.
func outcome(c *fiber.Ctx, o services.Outcome, result any) error {
	if o != services.OutcomeGranted {
		return c.JSON(fiber.Map{"success": false, "reason": string(o), "result": result})
	}
	return c.JSON(fiber.Map{"success": true, "result": result})
}

func actorOf(c *fiber.Ctx) services.Actor {
	return services.Actor{UserID: middleware.UserID(c), Roles: middleware.Roles(c)}
}

// --- public ---

func (h *rewardHandlers) listRanks(c *fiber.Ctx) error {
	ranks, err := h.engine.Ranks.GetRankCatalog(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ranks)
}

func (h *rewardHandlers) listBadges(c *fiber.Ctx) error {
	badges, err := h.engine.Badges.ListBadges(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(badges)
}

func (h *rewardHandlers) listShopItems(c *fiber.Ctx) error {
	items, err := h.engine.Catalog.ListShopItems(c.UserContext(), c.Query("q"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

// --- secured ---

func (h *rewardHandlers) getProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if _, err := h.engine.Users.EnsureUser(c.UserContext(), userID, c.Get("X-Username")); err != nil {
		return h.fail(c, err)
	}
	profile, err := h.engine.Users.GetProfile(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(profile)
}

func (h *rewardHandlers) setBackgroundColor(c *fiber.Ctx) error {
	var req struct {
		Color string `json:"color"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	eq, err := h.engine.Shop.SetBackgroundColor(c.UserContext(), middleware.UserID(c), req.Color)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "result": eq})
}

type grantRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (h *rewardHandlers) awardXP(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	res, err := h.engine.Ledger.AwardXP(c.UserContext(), middleware.UserID(c), req.Amount, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return outcome(c, res.Outcome, res)
}

func (h *rewardHandlers) awardCurrency(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	res, err := h.engine.Ledger.AwardCurrency(c.UserContext(), middleware.UserID(c), req.Amount, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return outcome(c, res.Outcome, res)
}

func (h *rewardHandlers) dailyCheckIn(c *fiber.Ctx) error {
	res, err := h.engine.Tracker.DailyCheckIn(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return outcome(c, res.Outcome, res)
}

func (h *rewardHandlers) trackEvent(c *fiber.Ctx) error {
	var req struct {
		Family   services.CounterFamily `json:"family"`
		TargetID string                 `json:"target_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	userID := middleware.UserID(c)
	subject, target := userID, req.TargetID
	// A received like is counted on the content owner, named by target_id.
	if req.Family == services.FamilyLikeReceived {
		if req.TargetID == "" {
			return badRequest(c, "like_received requires the content owner as target_id")
		}
		if req.TargetID == userID {
			return c.JSON(fiber.Map{"success": false, "reason": "self_like"})
		}
		subject, target = req.TargetID, userID
	}

	res, err := h.engine.Tracker.TrackEvent(c.UserContext(), subject, req.Family, target)
	if err != nil {
		return h.fail(c, err)
	}
	if !res.Counted {
		return c.JSON(fiber.Map{"success": false, "reason": "not_counted", "result": res})
	}
	return c.JSON(fiber.Map{"success": true, "result": res})
}

func (h *rewardHandlers) purchase(c *fiber.Ctx) error {
	var req services.PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	res, err := h.engine.Shop.Purchase(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return outcome(c, res.Outcome, res)
}

func (h *rewardHandlers) equip(c *fiber.Ctx) error {
	var req struct {
		ItemID string          `json:"item_id"`
		Type   models.ItemType `json:"type"`
		Value  string          `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	res, err := h.engine.Shop.Equip(c.UserContext(), middleware.UserID(c), req.ItemID, req.Type, req.Value)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "result": res})
}

// --- admin ---

func (h *rewardHandlers) createShopItem(c *fiber.Ctx) error {
	var in services.CreateShopItemInput
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		price, err := strconv.ParseInt(c.FormValue("price", "0"), 10, 64)
		if err != nil {
			return badRequest(c, "price must be an integer")
		}
		in = services.CreateShopItemInput{
			ID:    c.FormValue("id"),
			Name:  c.FormValue("name"),
			Type:  models.ItemType(c.FormValue("type")),
			Value: c.FormValue("value"),
			Price: price,
		}
		if icon, err := c.FormFile("icon"); err == nil {
			in.Icon = icon
		}
	} else if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON")
	}

	item, err := h.engine.Catalog.CreateShopItem(c.UserContext(), actorOf(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "result": item})
}

func (h *rewardHandlers) deleteShopItem(c *fiber.Ctx) error {
	if err := h.engine.Catalog.DeleteShopItem(c.UserContext(), actorOf(c), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// adminReason gives manual grants a unique key unless the admin chose one,
// so they are never swallowed by the daily limit.
func adminReason(reason string) string {
	if reason != "" {
		return reason
	}
	return "admin_grant_" + uuid.NewString()
}

func (h *rewardHandlers) adminGrantXP(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	res, err := h.engine.Ledger.AwardXP(c.UserContext(), req.UserID, req.Amount, adminReason(req.Reason))
	if err != nil {
		return h.fail(c, err)
	}
	h.log.Info("admin xp grant", "admin_id", middleware.UserID(c), "user_id", req.UserID, "amount", req.Amount, "outcome", res.Outcome)
	return outcome(c, res.Outcome, res)
}

func (h *rewardHandlers) adminGrantCurrency(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	res, err := h.engine.Ledger.AwardCurrency(c.UserContext(), req.UserID, req.Amount, adminReason(req.Reason))
	if err != nil {
		return h.fail(c, err)
	}
	h.log.Info("admin currency grant", "admin_id", middleware.UserID(c), "user_id", req.UserID, "amount", req.Amount)
	return outcome(c, res.Outcome, res)
}

func (h *rewardHandlers) adminAwardBadge(c *fiber.Ctx) error {
	var req struct {
		UserID  string `json:"user_id"`
		BadgeID string `json:"badge_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	res, err := h.engine.Badges.AwardBadge(c.UserContext(), req.UserID, req.BadgeID)
	if err != nil {
		return h.fail(c, err)
	}
	return outcome(c, res.Outcome, res)
}
