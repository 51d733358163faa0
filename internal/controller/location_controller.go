package controller

import (
	"swimcoach-be/internal/dto"
	"swimcoach-be/internal/pkg/serverutils"
	"swimcoach-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ILocationController interface {
	RegisterRoutes(r fiber.Router)
	SetLocation(ctx *fiber.Ctx) error
	GetLocation(ctx *fiber.Ctx) error
}

type locationController struct {
	service service.ILocationService
}

func NewLocationController(service service.ILocationService) ILocationController {
	return &locationController{service: service}
}

func (c *locationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/location")
	h.Post("/", c.SetLocation)
	h.Get("/", c.GetLocation)
}

func (c *locationController) SetLocation(ctx *fiber.Ctx) error {
	var req dto.SetLocationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetLocation(ctx.UserContext(), req.Pool)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Location and weather set", res))
}

func (c *locationController) GetLocation(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Current situational context", c.service.Current()))
}
