package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analysisdomain "github.com/unselab/saju/internal/analysis/domain"
)

func (s *Server) AnalyzeGroup(c *gin.Context) {
	var req struct {
		Members []analysisdomain.GroupMemberInput `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	for i := range req.Members {
		req.Members[i].Name = strings.TrimSpace(req.Members[i].Name)
	}

	resp, err := s.analysisSvc.AnalyzeGroup(c.Request.Context(), req.Members)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
