package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	importapp "github.com/dbcb2b/backend/internal/application/import"
	"github.com/dbcb2b/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// uploadField is the multipart field carrying spreadsheets
const uploadField = "file"

// readUpload reads the spreadsheet from the multipart form. It writes the
// error response itself and returns false when the upload is unusable.
func (h *BaseHandler) readUpload(c *gin.Context, maxBytes int64) (importapp.Upload, bool) {
	file, header, err := c.Request.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Uploaded file exceeds maximum allowed size")
		case errors.Is(err, http.ErrMissingFile):
			h.BadRequest(c, "A spreadsheet must be uploaded in the 'file' field")
		default:
			h.BadRequest(c, "Invalid multipart form")
		}
		return importapp.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		h.BadRequest(c, "Failed to read uploaded file")
		return importapp.Upload{}, false
	}
	if int64(len(data)) > maxBytes {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Uploaded file exceeds maximum allowed size")
		return importapp.Upload{}, false
	}
	if len(data) == 0 {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidFile, "Uploaded file is empty")
		return importapp.Upload{}, false
	}

	return importapp.Upload{
		Filename: filepath.Base(header.Filename),
		Data:     data,
	}, true
}
