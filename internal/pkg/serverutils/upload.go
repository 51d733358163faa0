package serverutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"swimcoach-be/pkg/apperror"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
)

// StagedFile is an uploaded file copied to local disk. The owner must call
// Release once the file has been consumed.
type StagedFile struct {
	Path         string
	OriginalName string
	MimeType     string
	Size         int64
}

func (f *StagedFile) Release() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// StageUpload saves the multipart field to dir under a unique name that keeps
// the original extension and sniffs its media type from the content.
func StageUpload(ctx *fiber.Ctx, field, dir string) (*StagedFile, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil, apperror.Validation(fmt.Sprintf("%s is required", field))
	}
	if fh.Size == 0 {
		return nil, apperror.Validation("uploaded file is empty")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperror.Internal(apperror.StageIngestion, err)
	}
	name := filepath.Base(fh.Filename)
	tmp, err := os.CreateTemp(dir, "upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return nil, apperror.Internal(apperror.StageIngestion, err)
	}
	path := tmp.Name()
	_ = tmp.Close()

	if err := ctx.SaveFile(fh, path); err != nil {
		_ = os.Remove(path)
		return nil, apperror.Internal(apperror.StageIngestion, err)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, apperror.Internal(apperror.StageIngestion, err)
	}

	return &StagedFile{
		Path:         path,
		OriginalName: name,
		MimeType:     mt.String(),
		Size:         fh.Size,
	}, nil
}
