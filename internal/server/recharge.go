package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
)

type createRechargeRequest struct {
	AdAccountID   string          `json:"ad_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Date          string          `json:"date"`
	PaymentStatus string          `json:"payment_status"`
	Note          string          `json:"note"`
}

type updatePaymentStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) CreateRecharge(c *gin.Context) {
	var req createRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, err := parsePathID(req.AdAccountID)
	if err != nil {
		AbortWithError(c, newValidationError("ad_account_id", "invalid_ad_account_id", "invalid ad account id"))
		return
	}
	date, err := parseOptionalTime(req.Date, false)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	create := rechargedomain.CreateRechargeRequest{
		AdAccountID:   accountID,
		Amount:        req.Amount,
		Currency:      strings.TrimSpace(req.Currency),
		PaymentStatus: rechargedomain.PaymentStatus(strings.ToLower(strings.TrimSpace(req.PaymentStatus))),
		Note:          strings.TrimSpace(req.Note),
	}
	if date != nil {
		create.Date = date.UTC()
	}

	resp, err := s.rechargeSvc.Create(c.Request.Context(), create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRechargeByID(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.rechargeSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRechargePaymentStatus(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req updatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rechargeSvc.UpdatePaymentStatus(c.Request.Context(), rechargedomain.UpdatePaymentStatusRequest{
		ID:     id,
		Status: rechargedomain.PaymentStatus(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
