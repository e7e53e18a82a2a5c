package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analysisdomain "github.com/unselab/saju/internal/analysis/domain"
	"github.com/unselab/saju/internal/identity"
)

func (s *Server) CreateAnalysis(c *gin.Context) {
	user, _ := identity.FromContext(c.Request.Context())

	var req analysisdomain.BirthInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	resp, err := s.analysisSvc.Analyze(c.Request.Context(), user, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAnalysis(c *gin.Context) {
	user, _ := identity.FromContext(c.Request.Context())

	resp, err := s.analysisSvc.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UnblindAnalysis(c *gin.Context) {
	user, _ := identity.FromContext(c.Request.Context())

	var req struct {
		UseVoucher bool `json:"use_voucher"`
	}
	// An empty body means the default points path.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.analysisSvc.Unblind(c.Request.Context(), user, c.Param("id"), req.UseVoucher)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
