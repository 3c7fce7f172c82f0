package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	jobrundomain "github.com/smallbiznis/crm/internal/jobrun/domain"
)

func (s *Server) ListJobRuns(c *gin.Context) {
	var query struct {
		Job   string `form:"job"`
		Limit string `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	limit, err := parseOptionalInt(query.Limit)
	if err != nil || (limit != nil && *limit < 0) {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	filter := jobrundomain.ListJobRunFilter{Job: query.Job}
	if limit != nil {
		filter.Limit = *limit
	}

	runs, err := s.jobRunSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}
