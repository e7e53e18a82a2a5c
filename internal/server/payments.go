package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unselab/saju/internal/identity"
	paymentdomain "github.com/unselab/saju/internal/payment/domain"
)

func (s *Server) CreateCheckout(c *gin.Context) {
	user, _ := identity.FromContext(c.Request.Context())

	var req struct {
		Type        string `json:"type"`
		ReferenceID string `json:"reference_id"`
		Amount      int64  `json:"amount"`
		Currency    string `json:"currency"`
		Provider    string `json:"provider"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.paymentSvc.CreateCheckout(
		c.Request.Context(),
		user.ID,
		paymentdomain.Type(strings.TrimSpace(req.Type)),
		strings.TrimSpace(req.ReferenceID),
		req.Amount,
		req.Currency,
		req.Provider,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"order_id": payment.ID,
		"amount":   payment.Amount,
		"currency": payment.Currency,
		"provider": payment.Provider,
		"status":   payment.Status,
	}})
}

func (s *Server) GetPayment(c *gin.Context) {
	user, _ := identity.FromContext(c.Request.Context())

	payment, err := s.paymentSvc.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"order_id": payment.ID,
		"type":     payment.Type,
		"amount":   payment.Amount,
		"currency": payment.Currency,
		"provider": payment.Provider,
		"status":   payment.Status,
	}})
}

func (s *Server) ConfirmPayment(c *gin.Context) {
	user, _ := identity.FromContext(c.Request.Context())

	var req struct {
		PaymentKey string `json:"payment_key"`
		OrderID    string `json:"order_id"`
		Amount     int64  `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	outcome, err := s.paymentSvc.Reconcile(
		c.Request.Context(),
		user.ID,
		strings.TrimSpace(req.PaymentKey),
		strings.TrimSpace(req.OrderID),
		req.Amount,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"status":  "success",
		"outcome": outcome,
	}})
}

func (s *Server) RegisterReferral(c *gin.Context) {
	user, _ := identity.FromContext(c.Request.Context())

	var req struct {
		ReferrerID string `json:"referrer_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.referralSvc.Register(c.Request.Context(), strings.TrimSpace(req.ReferrerID), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"registered": true}})
}

func (s *Server) GetMembership(c *gin.Context) {
	user, _ := identity.FromContext(c.Request.Context())
	ctx := c.Request.Context()

	sub, err := s.subscriptionSvc.ActiveFor(ctx, user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.entitlementSvc.PointBalance(ctx, user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	quota, err := s.entitlementSvc.CanUseFreeAnalysis(ctx, user.ID, user.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := gin.H{
		"point_balance":        balance,
		"free_analysis_status": quota,
	}
	if sub != nil {
		data["subscription"] = sub
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
