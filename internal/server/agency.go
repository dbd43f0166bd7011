package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
)

type createAgencyRequest struct {
	Name               string          `json:"name"`
	Platform           string          `json:"platform"`
	RebateRate         decimal.Decimal `json:"rebate_rate"`
	RebatePeriod       string          `json:"rebate_period"`
	SettlementCurrency string          `json:"settlement_currency"`
	CreditTerm         string          `json:"credit_term"`
}

type updateAgencyRequest struct {
	Name               *string          `json:"name,omitempty"`
	Platform           *string          `json:"platform,omitempty"`
	RebateRate         *decimal.Decimal `json:"rebate_rate,omitempty"`
	RebatePeriod       *string          `json:"rebate_period,omitempty"`
	SettlementCurrency *string          `json:"settlement_currency,omitempty"`
	CreditTerm         *string          `json:"credit_term,omitempty"`
}

func (s *Server) CreateAgency(c *gin.Context) {
	var req createAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agencySvc.Create(c.Request.Context(), agencydomain.CreateAgencyRequest{
		Name:               strings.TrimSpace(req.Name),
		Platform:           agencydomain.Platform(strings.TrimSpace(req.Platform)),
		RebateRate:         req.RebateRate,
		RebatePeriod:       agencydomain.RebatePeriod(strings.ToLower(strings.TrimSpace(req.RebatePeriod))),
		SettlementCurrency: strings.TrimSpace(req.SettlementCurrency),
		CreditTerm:         strings.TrimSpace(req.CreditTerm),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAgencies(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  string `form:"page_size"`
		Platform  string `form:"platform"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pageSize, err := parsePageSize(query.PageSize)
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
		return
	}

	resp, err := s.agencySvc.List(c.Request.Context(), agencydomain.ListAgencyRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  pageSize,
		Platform:  agencydomain.Platform(strings.TrimSpace(query.Platform)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAgencyByID(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.agencySvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateAgency(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req updateAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := agencydomain.UpdateAgencyRequest{
		ID:                 id,
		Name:               trimStringPtr(req.Name),
		RebateRate:         req.RebateRate,
		SettlementCurrency: trimStringPtr(req.SettlementCurrency),
		CreditTerm:         trimStringPtr(req.CreditTerm),
	}
	if value := trimStringPtr(req.Platform); value != nil {
		platform := agencydomain.Platform(*value)
		update.Platform = &platform
	}
	if value := trimStringPtr(req.RebatePeriod); value != nil {
		rebatePeriod := agencydomain.RebatePeriod(strings.ToLower(*value))
		update.RebatePeriod = &rebatePeriod
	}

	resp, err := s.agencySvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func trimStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
