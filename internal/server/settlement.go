package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	settlementdomain "github.com/smallbiznis/adledger/internal/settlement/domain"
)

type settleRequest struct {
	AdAccountID    string   `json:"ad_account_id"`
	Month          string   `json:"month"`
	ConsumptionIDs []string `json:"consumption_ids"`
}

type settleMonthRequest struct {
	AdAccountID string `json:"ad_account_id"`
	Month       string `json:"month"`
}

func (s *Server) Settle(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, err := parsePathID(req.AdAccountID)
	if err != nil {
		AbortWithError(c, newValidationError("ad_account_id", "invalid_ad_account_id", "invalid ad account id"))
		return
	}
	ids := make([]snowflake.ID, 0, len(req.ConsumptionIDs))
	for _, raw := range req.ConsumptionIDs {
		id, err := parsePathID(raw)
		if err != nil {
			AbortWithError(c, newValidationError("consumption_ids", "invalid_consumption_id", "invalid consumption id"))
			return
		}
		ids = append(ids, id)
	}

	resp, err := s.settlementSvc.Settle(c.Request.Context(), settlementdomain.SettleRequest{
		AdAccountID:    accountID,
		Month:          strings.TrimSpace(req.Month),
		ConsumptionIDs: ids,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SettleMonth(c *gin.Context) {
	var req settleMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, err := parsePathID(req.AdAccountID)
	if err != nil {
		AbortWithError(c, newValidationError("ad_account_id", "invalid_ad_account_id", "invalid ad account id"))
		return
	}

	resp, err := s.settlementSvc.SettleMonth(c.Request.Context(), accountID, strings.TrimSpace(req.Month))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
