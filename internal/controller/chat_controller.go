package controller

import (
	"swimcoach-be/internal/dto"
	"swimcoach-be/internal/pkg/serverutils"
	"swimcoach-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	ClearHistory(ctx *fiber.Ctx) error
	ClearEntries(ctx *fiber.Ctx) error
	PopEntry(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.Chat)

	h := r.Group("/session")
	h.Get("/", c.GetSession)
	h.Delete("/", c.ClearHistory)
	h.Delete("/entries", c.ClearEntries)
	h.Delete("/entries/last", c.PopEntry)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Chat(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *chatController) GetSession(ctx *fiber.Ctx) error {
	res := c.service.GetSession(ctx.Query("session_id"))
	return ctx.JSON(serverutils.SuccessResponse("Session", res))
}

func (c *chatController) ClearHistory(ctx *fiber.Ctx) error {
	res := c.service.ClearHistory(ctx.Query("session_id"))
	return ctx.JSON(serverutils.SuccessResponse("Chat history cleared", res))
}

func (c *chatController) ClearEntries(ctx *fiber.Ctx) error {
	res := c.service.ClearEntries(ctx.Query("session_id"))
	return ctx.JSON(serverutils.SuccessResponse("Entry list cleared", res))
}

func (c *chatController) PopEntry(ctx *fiber.Ctx) error {
	res, err := c.service.PopEntry(ctx.Query("session_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Last entry removed", res))
}
