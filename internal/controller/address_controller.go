package controller

import (
	"move-quote-be/internal/pkg/serverutils"
	"move-quote-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAddressController interface {
	RegisterRoutes(r fiber.Router)
	Search(ctx *fiber.Ctx) error
}

type addressController struct {
	service service.IAddressService
}

func NewAddressController(service service.IAddressService) IAddressController {
	return &addressController{service: service}
}

func (c *addressController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/address")
	h.Get("/search", c.Search)
}

func (c *addressController) Search(ctx *fiber.Ctx) error {
	res, err := c.service.Search(ctx.UserContext(), ctx.Query("q"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search address", res))
}
