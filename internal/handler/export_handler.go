package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-scheduler-api/internal/dto"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	"github.com/noah-isme/course-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
	"github.com/noah-isme/course-scheduler-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, principal *models.Principal, sessionID string, query dto.ExportQuery) (*service.ExportFile, error)
}

// ExportHandler streams the selected schedule as a downloadable file.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the export handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export the selected schedule
// @Tags Export
// @Produce octet-stream
// @Param sessionId path string true "Session ID"
// @Param format query string true "xlsx, csv, pdf or ics"
// @Param term_start query string false "First day of term (YYYY-MM-DD), ics only"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /scheduler/sessions/{sessionId}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		return
	}
	sessionID := requireParam(c, "sessionId")
	if sessionID == "" {
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid export query"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), principal, sessionID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
