package rest

import (
	"time"

	globalConfig "github.com/AzielCF/az-shield/config"
	domainCache "github.com/AzielCF/az-shield/domains/cache"
	domainResilience "github.com/AzielCF/az-shield/domains/resilience"
	"github.com/AzielCF/az-shield/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	CacheService      domainCache.ICacheUsecase
	ResilienceService domainResilience.IResilienceUsecase
	startedAt         time.Time
}

func InitRestHealth(app fiber.Router, cacheService domainCache.ICacheUsecase, resilienceService domainResilience.IResilienceUsecase) Health {
	rest := Health{
		CacheService:      cacheService,
		ResilienceService: resilienceService,
		startedAt:         time.Now(),
	}
	app.Get("/health", rest.GetHealth)

	return rest
}

func (handler *Health) GetHealth(c *fiber.Ctx) error {
	openBreakers := 0
	for _, b := range handler.ResilienceService.BreakerStats() {
		if b.State == "open" {
			openBreakers++
		}
	}

	status := "healthy"
	if openBreakers > 0 {
		status = "degraded"
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health retrieved",
		Results: fiber.Map{
			"status":         status,
			"version":        globalConfig.AppVersion,
			"uptime_seconds": int(time.Since(handler.startedAt).Seconds()),
			"cache_entries":  handler.CacheService.Stats().TotalSize,
			"open_breakers":  openBreakers,
		},
	})
}
