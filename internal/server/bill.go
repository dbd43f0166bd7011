package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billdomain "github.com/smallbiznis/adledger/internal/bill/domain"
)

func (s *Server) ListBills(c *gin.Context) {
	var query struct {
		PageToken   string `form:"page_token"`
		PageSize    string `form:"page_size"`
		Month       string `form:"month"`
		Category    string `form:"category"`
		Status      string `form:"status"`
		AgencyID    string `form:"agency_id"`
		AdAccountID string `form:"ad_account_id"`
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
	accountID, err := parseOptionalSnowflakeID(query.AdAccountID)
	if err != nil {
		AbortWithError(c, newValidationError("ad_account_id", "invalid_ad_account_id", "invalid ad account id"))
		return
	}

	req := billdomain.ListBillRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  pageSize,
		Month:     strings.TrimSpace(query.Month),
		Category:  billdomain.BillCategory(strings.ToLower(strings.TrimSpace(query.Category))),
		Status:    billdomain.BillStatus(strings.ToLower(strings.TrimSpace(query.Status))),
	}
	if agencyID != nil {
		req.AgencyID = *agencyID
	}
	if accountID != nil {
		req.AdAccountID = *accountID
	}

	resp, err := s.billSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBillByID(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.billSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadBillStatement(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	body, err := s.billSvc.RenderStatement(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if body == nil {
		AbortWithError(c, billdomain.ErrRendererMissing)
		return
	}
	if closer, ok := body.(io.Closer); ok {
		defer closer.Close()
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.pdf"`, id.String()))
	c.DataFromReader(http.StatusOK, -1, "application/pdf", body, nil)
}
