package controller

import (
	"move-quote-be/internal/dto"
	"move-quote-be/internal/pkg/serverutils"
	"move-quote-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IItemController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Catalog(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Validate(ctx *fiber.Ctx) error
}

type itemController struct {
	service  service.IItemService
	sessions serverutils.SessionResolver
}

func NewItemController(service service.IItemService, sessions serverutils.SessionResolver) IItemController {
	return &itemController{service: service, sessions: sessions}
}

func (c *itemController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/items")
	h.Post("/upload", serverutils.SessionMiddleware(c.sessions), c.Upload)
	h.Get("/catalog", c.Catalog)
	h.Get("/search", c.Search)
	h.Post("/validate", c.Validate)
}

func (c *itemController) Upload(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "image file is required")
	}

	res, err := c.service.Upload(ctx.UserContext(), serverutils.SessionFrom(ctx), file)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Image recognized", res))
}

func (c *itemController) Catalog(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get catalog", c.service.Catalog()))
}

func (c *itemController) Search(ctx *fiber.Ctx) error {
	q := ctx.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q parameter is required")
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search items", c.service.Search(q)))
}

func (c *itemController) Validate(ctx *fiber.Ctx) error {
	var req dto.ValidateItemsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success validate items", c.service.Validate(&req)))
}
