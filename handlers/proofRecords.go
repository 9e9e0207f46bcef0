package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/middlewares"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/utils"
)

// ProofRecordView is a proof record with its account and deployment names.
type ProofRecordView struct {
	*models.ProofRecord
	AccountName    string `json:"account_name"`
	DeploymentName string `json:"deployment_name"`
}

type ProofRecordPage struct {
	Edges    []ProofRecordEdge `json:"edges"`
	PageInfo *models.PageInfo  `json:"pageInfo"`
}

type ProofRecordEdge struct {
	Node   ProofRecordView `json:"node"`
	Cursor string          `json:"cursor"`
}

// withNames resolves names with one batched lookup per loader.
func withNames(ctx context.Context, conn *models.Connection[models.ProofRecord]) (*ProofRecordPage, error) {
	accountIds := make([]string, len(conn.Edges))
	deploymentIds := make([]string, len(conn.Edges))
	for i, e := range conn.Edges {
		accountIds[i] = e.Node.AccountId
		deploymentIds[i] = e.Node.DeploymentId
	}
	accounts, errs := middlewares.GetAccounts(ctx, accountIds)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	deployments, errs := middlewares.GetDeployments(ctx, deploymentIds)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	page := &ProofRecordPage{Edges: make([]ProofRecordEdge, 0, len(conn.Edges)), PageInfo: conn.PageInfo}
	for i, e := range conn.Edges {
		view := ProofRecordView{ProofRecord: e.Node}
		if accounts[i] != nil {
			view.AccountName = accounts[i].Name
		}
		// deployments can be deleted; their proof records stay
		if deployments[i] != nil {
			view.DeploymentName = deployments[i].Name
		}
		page.Edges = append(page.Edges, ProofRecordEdge{Node: view, Cursor: e.Cursor})
	}
	return page, nil
}

func listProofRecords(c *gin.Context, f models.ProofRecordFilter) {
	ctx := c.Request.Context()
	conn, err := models.ListProofRecords(ctx, f)
	if err != nil {
		serverError(c, err)
		return
	}
	page, err := withNames(ctx, conn)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func listProofRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var f models.ProofRecordFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			badRequest(c, err)
			return
		}
		if f.Verdict != "" && !models.Verdict(f.Verdict).IsValid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "verdict must be OK, REVIEW or BLOCK"})
			return
		}
		listProofRecords(c, f)
	}
}

func listAccountProofRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var f models.ProofRecordFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			badRequest(c, err)
			return
		}
		account, err := middlewares.GetAccount(c.Request.Context(), c.Param("id"))
		if err != nil {
			serverError(c, err)
			return
		}
		if account == nil {
			respondError(c, utils.ErrorRecordNotFound)
			return
		}
		f.AccountId = c.Param("id")
		listProofRecords(c, f)
	}
}
