package controller

import (
	"io"

	"notefiber-editor/internal/dto"
	"notefiber-editor/internal/pkg/serverutils"
	"notefiber-editor/internal/service"
	"notefiber-editor/internal/websocket"
	"notefiber-editor/pkg/media"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type IEditorController interface {
	RegisterRoutes(r fiber.Router, ws fiber.Router, auth fiber.Handler)
	UploadMedia(ctx *fiber.Ctx) error
	Save(ctx *fiber.Ctx) error
}

type editorController struct {
	editorService service.IEditorService
	hub           *websocket.Hub
	maxBytes      int64
}

func NewEditorController(editorService service.IEditorService, hub *websocket.Hub, maxBytes int) IEditorController {
	return &editorController{
		editorService: editorService,
		hub:           hub,
		maxBytes:      int64(maxBytes),
	}
}

func (c *editorController) RegisterRoutes(r fiber.Router, ws fiber.Router, auth fiber.Handler) {
	h := r.Group("/editor/v1")
	h.Use(auth)
	h.Post(":noteId/media", c.UploadMedia)
	h.Post(":noteId/save", c.Save)

	ws.Get("/editor/:noteId", auth, c.upgrade, fiberws.New(c.serve))
}

func (c *editorController) UploadMedia(ctx *fiber.Ctx) error {
	userId, err := userID(ctx)
	if err != nil {
		return err
	}
	noteId, err := paramUUID(ctx, "noteId")
	if err != nil {
		return err
	}

	req := dto.UploadMediaRequest{NoteId: noteId, Kind: ctx.FormValue("kind")}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if c.maxBytes > 0 && fh.Size > c.maxBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, media.ErrTooLarge.Error())
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	res, err := c.editorService.UploadMedia(ctx.UserContext(), userId, &req, media.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return translate(err)
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Upload started", res))
}

func (c *editorController) Save(ctx *fiber.Ctx) error {
	userId, err := userID(ctx)
	if err != nil {
		return err
	}
	noteId, err := paramUUID(ctx, "noteId")
	if err != nil {
		return err
	}

	res, err := c.editorService.Save(ctx.UserContext(), userId, noteId)
	if err != nil {
		return translate(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success save note", res))
}

func (c *editorController) upgrade(ctx *fiber.Ctx) error {
	if !fiberws.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	userId, err := userID(ctx)
	if err != nil {
		return err
	}
	noteId, err := paramUUID(ctx, "noteId")
	if err != nil {
		return err
	}
	ctx.Locals("editor_user", userId)
	ctx.Locals("editor_note", noteId)
	return ctx.Next()
}

func (c *editorController) serve(conn *fiberws.Conn) {
	userId, _ := conn.Locals("editor_user").(uuid.UUID)
	noteId, _ := conn.Locals("editor_note").(uuid.UUID)
	websocket.ServeWs(c.hub, c.editorService, conn, userId, noteId)
}
