package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
)

type createAdAccountRequest struct {
	AgencyID          string          `json:"agency_id"`
	Name              string          `json:"name"`
	ExternalAccountID string          `json:"external_account_id"`
	Currency          string          `json:"currency"`
	CreditLimit       decimal.Decimal `json:"credit_limit"`
}

func (s *Server) CreateAdAccount(c *gin.Context) {
	var req createAdAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agencyID, err := parsePathID(req.AgencyID)
	if err != nil {
		AbortWithError(c, newValidationError("agency_id", "invalid_agency_id", "invalid agency id"))
		return
	}

	resp, err := s.adAccountSvc.Create(c.Request.Context(), adaccountdomain.CreateAdAccountRequest{
		AgencyID:          agencyID,
		Name:              strings.TrimSpace(req.Name),
		ExternalAccountID: strings.TrimSpace(req.ExternalAccountID),
		Currency:          strings.TrimSpace(req.Currency),
		CreditLimit:       req.CreditLimit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAdAccounts(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  string `form:"page_size"`
		AgencyID  string `form:"agency_id"`
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
	agencyID, err := parseOptionalSnowflakeID(query.AgencyID)
	if err != nil {
		AbortWithError(c, newValidationError("agency_id", "invalid_agency_id", "invalid agency id"))
		return
	}

	req := adaccountdomain.ListAdAccountRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  pageSize,
	}
	if agencyID != nil {
		req.AgencyID = *agencyID
	}

	resp, err := s.adAccountSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAdAccountByID(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.adAccountSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReconcileAdAccount(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.reconcileSvc.ReconcileAccount(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListReceivables(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	// 404 for unknown accounts instead of an empty list.
	if _, err := s.adAccountSvc.GetByID(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.rebateSvc.ListByAccount(c.Request.Context(), nil, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
