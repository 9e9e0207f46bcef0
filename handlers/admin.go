package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/workflow"
)

func listAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var f models.AccountFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			badRequest(c, err)
			return
		}
		conn, err := models.ListAccounts(c.Request.Context(), f)
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func createAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		account, err := models.CreateAccount(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func getAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := models.GetAccount(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func updateAccountOverviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.UpdateAccountOverview
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		account, err := models.UpdateAccountOverviewTab(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func updateAccountIntakeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.UpdateAccountIntake
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		account, err := models.UpdateAccountIntakeTab(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func listDeploymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := models.GetAccount(ctx, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		deployments, err := models.ListDeployments(ctx, c.Param("id"))
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, deployments)
	}
}

func createDeploymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDeployment
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		deployment, err := models.CreateDeployment(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, deployment)
	}
}

func deleteDeploymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		deployment, err := models.DeleteDeployment(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, deployment)
	}
}

func listConnectorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := models.GetAccount(ctx, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		connectors, err := models.ListConnectors(ctx, c.Param("id"))
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, connectors)
	}
}

func createConnectorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewConnector
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		connector, err := models.CreateConnector(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, connector)
	}
}

func deleteConnectorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		connector, err := models.DeleteConnector(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connector)
	}
}

func (h *Handlers) testConnectorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		connector, err := workflow.TestConnector(c.Request.Context(), h.Tester, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connector)
	}
}

func (h *Handlers) demoRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDemoRun
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		result, err := workflow.ProcessDemoRun(c.Request.Context(), h.Scorer, c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func overviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := models.GetAdminOverview(c.Request.Context())
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, overview)
	}
}

func listProfilesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var f models.ProfileFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			badRequest(c, err)
			return
		}
		conn, err := models.ListProfiles(c.Request.Context(), f)
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func updateProfileAccessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.UpdateProfileAccess
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		profile, err := models.UpdateProfileAccessFlags(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func listAccessRequestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var f models.AccessRequestFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			badRequest(c, err)
			return
		}
		conn, err := models.ListAccessRequests(c.Request.Context(), f)
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func listHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var f models.HistoryFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			badRequest(c, err)
			return
		}
		conn, err := models.ListHistories(c.Request.Context(), f)
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func listIntakesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var f models.EventIntakeFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			badRequest(c, err)
			return
		}
		conn, err := models.ListEventIntakes(c.Request.Context(), f)
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func getIntakeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		intake, err := models.GetEventIntake(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, intake)
	}
}

func notificationStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := models.NotificationStatusCounts(c.Request.Context())
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, counts)
	}
}

func requeueNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := models.RequeueDeadNotifications(c.Request.Context())
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"requeued": n})
	}
}
