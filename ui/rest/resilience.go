package rest

import (
	domainResilience "github.com/AzielCF/az-shield/domains/resilience"
	"github.com/AzielCF/az-shield/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Resilience struct {
	Service domainResilience.IResilienceUsecase
}

func InitRestResilience(app fiber.Router, service domainResilience.IResilienceUsecase) Resilience {
	rest := Resilience{Service: service}
	app.Get("/resilience/breakers", rest.GetBreakers)

	return rest
}

func (handler *Resilience) GetBreakers(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Circuit breaker stats retrieved",
		Results: handler.Service.BreakerStats(),
	})
}
