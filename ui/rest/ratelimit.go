package rest

import (
	"time"

	globalConfig "github.com/AzielCF/az-shield/config"
	domainRateLimit "github.com/AzielCF/az-shield/domains/ratelimit"
	pkgError "github.com/AzielCF/az-shield/pkg/error"
	"github.com/AzielCF/az-shield/pkg/utils"
	"github.com/AzielCF/az-shield/validations"
	"github.com/gofiber/fiber/v2"
)

type RateLimit struct {
	Service domainRateLimit.IRateLimitUsecase
}

func InitRestRateLimit(app fiber.Router, service domainRateLimit.IRateLimitUsecase) RateLimit {
	rest := RateLimit{Service: service}
	app.Get("/ratelimit/settings", rest.GetSettings)
	app.Put("/ratelimit/settings", rest.UpdateSettings)
	app.Get("/ratelimit/:scope/:identifier", rest.GetStatus)

	return rest
}

func (handler *RateLimit) GetStatus(c *fiber.Ctx) error {
	scope := domainRateLimit.Scope(c.Params("scope"))
	identifier := c.Params("identifier")

	if _, ok := handler.Service.Policies()[scope]; !ok {
		utils.PanicIfNeeded(pkgError.NotFoundError("unknown rate limit scope: " + string(scope)))
	}

	status := handler.Service.Status(scope, identifier)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rate limit status retrieved",
		Results: status,
	})
}

func (handler *RateLimit) GetSettings(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rate limit settings retrieved",
		Results: handler.Service.Policies(),
	})
}

func (handler *RateLimit) UpdateSettings(c *fiber.Ctx) error {
	var request domainRateLimit.Settings
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	err := validations.ValidateRateLimitSettings(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	policies := handler.Service.Policies()
	tunables := make(map[string]int)

	apply := func(scope domainRateLimit.Scope, limit, windowSeconds int, limitKey, windowKey string) error {
		policy := policies[scope]
		if limit > 0 {
			policy.Limit = limit
			tunables[limitKey] = limit
		}
		if windowSeconds > 0 {
			policy.Window = time.Duration(windowSeconds) * time.Second
			tunables[windowKey] = windowSeconds
		}
		return handler.Service.UpdatePolicy(scope, policy)
	}

	err = apply(domainRateLimit.ScopeGlobal, request.GlobalLimit, request.GlobalWindowSeconds,
		"ratelimit_global_limit", "ratelimit_global_window_seconds")
	utils.PanicIfNeeded(err)
	err = apply(domainRateLimit.ScopeCustomer, request.CustomerLimit, request.CustomerWindowSeconds,
		"ratelimit_customer_limit", "ratelimit_customer_window_seconds")
	utils.PanicIfNeeded(err)
	err = apply(domainRateLimit.ScopeBusinessOwner, request.OwnerLimit, request.OwnerWindowSeconds,
		"ratelimit_owner_limit", "ratelimit_owner_window_seconds")
	utils.PanicIfNeeded(err)
	err = apply(domainRateLimit.ScopeMediaUpload, request.MediaUploadLimit, request.MediaUploadWindowSeconds,
		"ratelimit_media_upload_limit", "ratelimit_media_upload_window_seconds")
	utils.PanicIfNeeded(err)

	if len(tunables) > 0 {
		err = globalConfig.SaveTunables(tunables)
		utils.PanicIfNeeded(err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rate limit settings updated successfully",
		Results: handler.Service.Policies(),
	})
}
