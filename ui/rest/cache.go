package rest

import (
	"time"

	globalConfig "github.com/AzielCF/az-shield/config"
	domainCache "github.com/AzielCF/az-shield/domains/cache"
	"github.com/AzielCF/az-shield/pkg/utils"
	"github.com/AzielCF/az-shield/validations"
	"github.com/gofiber/fiber/v2"
)

type Cache struct {
	Service domainCache.ICacheUsecase
}

func InitRestCache(app fiber.Router, service domainCache.ICacheUsecase) Cache {
	rest := Cache{Service: service}
	app.Get("/cache/stats", rest.GetStats)
	app.Post("/cache/clear", rest.Clear)
	app.Post("/cache/invalidate-scope", rest.InvalidateScope)
	app.Get("/cache/settings", rest.GetSettings)
	app.Put("/cache/settings", rest.UpdateSettings)

	return rest
}

func (handler *Cache) GetStats(c *fiber.Ctx) error {
	stats := handler.Service.Stats()

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache stats retrieved",
		Results: stats,
	})
}

func (handler *Cache) Clear(c *fiber.Ctx) error {
	var request domainCache.ClearRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return c.Status(400).JSON(utils.ResponseData{
				Status:  400,
				Code:    "BAD_REQUEST",
				Message: err.Error(),
			})
		}
	}

	removed := handler.Service.Clear(request.Stores...)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache cleared successfully",
		Results: fiber.Map{"removed": removed},
	})
}

func (handler *Cache) InvalidateScope(c *fiber.Ctx) error {
	var request domainCache.InvalidateScopeRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	err := validations.ValidateInvalidateScope(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	removed := handler.Service.InvalidateScope(request.ScopeID)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Scope invalidated successfully",
		Results: fiber.Map{"removed": removed},
	})
}

func (handler *Cache) GetSettings(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache settings retrieved",
		Results: handler.Service.Policies(),
	})
}

func (handler *Cache) UpdateSettings(c *fiber.Ctx) error {
	var request domainCache.Settings
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	err := validations.ValidateCacheSettings(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	policies := handler.Service.Policies()
	tunables := make(map[string]int)

	apply := func(store domainCache.StoreType, ttlSeconds, maxSize int, ttlKey, sizeKey string) error {
		policy := policies[store]
		if ttlSeconds > 0 {
			policy.TTL = time.Duration(ttlSeconds) * time.Second
			tunables[ttlKey] = ttlSeconds
		}
		if maxSize > 0 {
			policy.MaxSize = maxSize
			tunables[sizeKey] = maxSize
		}
		return handler.Service.UpdatePolicy(store, policy)
	}

	err = apply(domainCache.StoreResponses, request.ResponsesTTLSeconds, request.ResponsesMaxSize,
		"cache_responses_ttl_seconds", "cache_responses_max_size")
	utils.PanicIfNeeded(err)
	err = apply(domainCache.StoreSearches, request.SearchesTTLSeconds, request.SearchesMaxSize,
		"cache_searches_ttl_seconds", "cache_searches_max_size")
	utils.PanicIfNeeded(err)
	err = apply(domainCache.StoreEmbeddings, request.EmbeddingsTTLSeconds, request.EmbeddingsMaxSize,
		"cache_embeddings_ttl_seconds", "cache_embeddings_max_size")
	utils.PanicIfNeeded(err)

	if len(tunables) > 0 {
		err = globalConfig.SaveTunables(tunables)
		utils.PanicIfNeeded(err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache settings updated successfully",
		Results: handler.Service.Policies(),
	})
}
