package controller

import (
	"strings"

	"swimcoach-be/internal/dto"
	"swimcoach-be/internal/pkg/serverutils"
	"swimcoach-be/internal/service"
	"swimcoach-be/pkg/rag/ingest"

	"github.com/gofiber/fiber/v2"
)

type IIngestController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
}

type ingestController struct {
	service   service.IIngestService
	uploadDir string
}

func NewIngestController(service service.IIngestService, uploadDir string) IIngestController {
	return &ingestController{service: service, uploadDir: uploadDir}
}

func (c *ingestController) RegisterRoutes(r fiber.Router) {
	r.Post("/ingest", c.Ingest)
}

// Ingest accepts a multipart "file" upload or a JSON body naming a file in
// the documents directory. With ?async=true the job is queued and 202 is returned.
func (c *ingestController) Ingest(ctx *fiber.Ctx) error {
	src, err := c.source(ctx)
	if err != nil {
		return err
	}

	if ctx.QueryBool("async", false) {
		job, err := c.service.Enqueue(ctx.UserContext(), src)
		if err != nil {
			return err
		}
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Ingest job queued", job))
	}

	res, err := c.service.Ingest(ctx.UserContext(), src)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Summary, res))
}

func (c *ingestController) source(ctx *fiber.Ctx) (ingest.Source, error) {
	if strings.HasPrefix(ctx.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		staged, err := serverutils.StageUpload(ctx, "file", c.uploadDir)
		if err != nil {
			return ingest.Source{}, err
		}
		sourceId := ctx.FormValue("source_id", staged.OriginalName)
		return ingest.Source{
			Path:     staged.Path,
			MimeType: staged.MimeType,
			SourceID: sourceId,
			Replace:  ctx.FormValue("replace") == "true",
			Staged:   true,
		}, nil
	}

	var req dto.IngestPathRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ingest.Source{}, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ingest.Source{}, err
	}
	path, err := c.service.ResolvePath(req.Path)
	if err != nil {
		return ingest.Source{}, err
	}
	return ingest.Source{Path: path, SourceID: req.SourceId, Replace: req.Replace}, nil
}
