package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
)

type createConsumptionRequest struct {
	AdAccountID string          `json:"ad_account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        string          `json:"date"`
	Note        string          `json:"note"`
}

func (s *Server) CreateConsumption(c *gin.Context) {
	var req createConsumptionRequest
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

	create := consumptiondomain.CreateConsumptionRequest{
		AdAccountID: accountID,
		Amount:      req.Amount,
		Currency:    strings.TrimSpace(req.Currency),
		Note:        strings.TrimSpace(req.Note),
	}
	if date != nil {
		create.Date = date.UTC()
	}

	resp, err := s.consumptionSvc.Create(c.Request.Context(), create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetConsumptionByID(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.consumptionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUnsettledConsumptions(c *gin.Context) {
	var query struct {
		AdAccountID string `form:"ad_account_id"`
		Month       string `form:"month"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, err := parsePathID(query.AdAccountID)
	if err != nil {
		AbortWithError(c, newValidationError("ad_account_id", "invalid_ad_account_id", "invalid ad account id"))
		return
	}

	resp, err := s.consumptionSvc.ListUnsettled(c.Request.Context(), accountID, strings.TrimSpace(query.Month))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
