package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-scheduler-api/internal/middleware"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
	"github.com/noah-isme/course-scheduler-api/pkg/response"
)

func principalFromContext(c *gin.Context) *models.Principal {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return principal
}

func requireParam(c *gin.Context, name string) string {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" is required"))
		return ""
	}
	return value
}
