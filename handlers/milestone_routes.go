// handlers/milestone_routes.go
package handlers

import (
	"context"
	"errors"
	"strings"

	"community-milestones/middleware"
	"community-milestones/models"
	"community-milestones/unlock"

	"github.com/gofiber/fiber/v2"
)

// MilestoneStore is the persistence behind the routes (services.MilestoneService).
type MilestoneStore interface {
	List(ctx context.Context, externalID string) ([]string, error)
	Merge(ctx context.Context, externalID string, milestoneIDs []string) (int, error)
	Unlock(ctx context.Context, req models.UnlockRequest) error
}

// AssetResolver turns image keys into URLs (services.AssetService).
type AssetResolver interface {
	ImageURL(ctx context.Context, imageKey string) string
}

func SetupMilestoneRoutes(app fiber.Router, store MilestoneStore, assets AssetResolver, serviceToken string) {
	api := app.Group("/api/milestones",
		middleware.ServiceTokenMiddleware(serviceToken),
		middleware.LocaleMiddleware(),
	)

	api.Get("/catalog", func(c *fiber.Ctx) error {
		catalog := models.Milestones()
		entries := make([]models.CatalogEntry, 0, len(catalog))
		for _, m := range catalog {
			entry := models.CatalogEntry{ID: m.ID, ImageKey: m.ImageKey, Icon: m.Icon}
			if assets != nil {
				entry.ImageURL = assets.ImageURL(c.UserContext(), m.ImageKey)
			}
			entries = append(entries, entry)
		}
		return c.JSON(models.CatalogResponse{Total: len(entries), Milestones: entries})
	})

	api.Post("/sync", func(c *fiber.Ctx) error {
		var body models.SyncRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
				"cause": err.Error(),
			})
		}
		if _, err := store.Merge(c.UserContext(), body.ExternalID, body.Milestones); err != nil {
			return storeError(c, "failed to sync milestones", err)
		}
		return c.JSON(models.SuccessResponse{Success: true})
	})

	api.Post("/unlock", func(c *fiber.Ctx) error {
		var body models.UnlockRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
				"cause": err.Error(),
			})
		}
		if strings.TrimSpace(string(body.Locale)) == "" {
			body.Locale = middleware.RequestLocale(c)
		}
		if err := store.Unlock(c.UserContext(), body); err != nil {
			return storeError(c, "failed to record unlock", err)
		}
		return c.JSON(models.SuccessResponse{Success: true})
	})

	// registered last so "catalog" is never taken for an id
	api.Get("/:externalId", func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("externalId"))
		ids, err := store.List(c.UserContext(), id)
		if err != nil {
			return storeError(c, "failed to load milestones", err)
		}
		return c.JSON(models.UnlockSet{ExternalID: id, Milestones: ids})
	})
}

func storeError(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, unlock.ErrInvalidExternalID) || errors.Is(err, unlock.ErrUnknownMilestone) {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}
