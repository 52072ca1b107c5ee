package controller

import (
	"move-quote-be/internal/dto"
	"move-quote-be/internal/pkg/serverutils"
	"move-quote-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IQuoteController interface {
	RegisterRoutes(r fiber.Router)
	Submit(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	ListBySession(ctx *fiber.Ctx) error
	UpdateStatus(ctx *fiber.Ctx) error
}

type quoteController struct {
	service service.IQuoteService
}

func NewQuoteController(service service.IQuoteService) IQuoteController {
	return &quoteController{service: service}
}

func (c *quoteController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/quotes")
	h.Post("/submit", c.Submit)
	h.Get("/session/:token", c.ListBySession)
	h.Get("/:id", c.Show)
	h.Patch("/:id/status", c.UpdateStatus)
}

func (c *quoteController) Submit(ctx *fiber.Ctx) error {
	var req dto.SubmitQuoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Submit(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Quote submitted", res))
}

func (c *quoteController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid quote id")
	}

	res, err := c.service.Show(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show quote", res))
}

func (c *quoteController) ListBySession(ctx *fiber.Ctx) error {
	res, err := c.service.ListBySession(ctx.UserContext(), ctx.Params("token"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list quotes", res))
}

func (c *quoteController) UpdateStatus(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid quote id")
	}

	var req dto.UpdateQuoteStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.Id = id
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateStatus(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Quote status updated", res))
}
