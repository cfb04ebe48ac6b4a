package controller

import (
	"errors"

	"notefiber-editor/internal/pkg/serverutils"
	"notefiber-editor/internal/service"
	"notefiber-editor/pkg/autosave"
	"notefiber-editor/pkg/command"
	"notefiber-editor/pkg/document"
	"notefiber-editor/pkg/media"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// translate maps service errors onto HTTP errors the error middleware can render.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrNoteNotFound):
		return &serverutils.NotFoundError{Resource: "note"}
	case errors.Is(err, service.ErrSlugTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, autosave.ErrNotSavable):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, media.ErrTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUnknownOperation),
		errors.Is(err, command.ErrUnknownCommand),
		errors.Is(err, document.ErrBadType),
		errors.Is(err, document.ErrNoSelection):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

// userID reads the id stored by the JWT middleware.
func userID(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := ctx.Locals("user_id").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user")
	}
	return id, nil
}

func paramUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
