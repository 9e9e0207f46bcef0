package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/utils"
)

// portalAccountId is the account the tenant guard scopes this request to.
func portalAccountId(c *gin.Context) (string, bool) {
	accountId, ok := utils.GetAccountIdFromContext(c.Request.Context())
	if !ok || accountId == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no partner account is linked to this profile"})
		return "", false
	}
	return accountId, true
}

func portalAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, ok := portalAccountId(c)
		if !ok {
			return
		}
		account, err := models.GetAccount(c.Request.Context(), accountId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func portalProofRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, ok := portalAccountId(c)
		if !ok {
			return
		}
		var f models.ProofRecordFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			badRequest(c, err)
			return
		}
		// an explicit account_id in WHERE turns the guard off, so never take it from the query
		f.AccountId = accountId
		listProofRecords(c, f)
	}
}
