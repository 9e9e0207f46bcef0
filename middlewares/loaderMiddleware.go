package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/models"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch the id lookups proof-record listings make per row.
type Loaders struct {
	AccountLoader    *dataloader.Loader[string, *models.Account]
	DeploymentLoader *dataloader.Loader[string, *models.Deployment]
}

func NewLoaders(conn *gorm.DB) *Loaders {
	accountReader := &accountReader{db: conn}
	deploymentReader := &deploymentReader{db: conn}

	return &Loaders{
		AccountLoader:    dataloader.NewBatchedLoader(accountReader.getAccounts, dataloader.WithWait[string, *models.Account](time.Millisecond)),
		DeploymentLoader: dataloader.NewBatchedLoader(deploymentReader.getDeployments, dataloader.WithWait[string, *models.Deployment](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// For returns the request's loaders, building a fresh set when the
// middleware did not run (CLI, tests).
func For(ctx context.Context) *Loaders {
	if l, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return l
	}
	return NewLoaders(config.GetDB())
}

// WithLoaders attaches loaders to ctx outside of gin.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, l)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// generateLoaderResults orders rows to match ids; a missing id yields nil data.
func generateLoaderResults[T any](results []T, ids []string, key func(T) string) []*dataloader.Result[*T] {
	resultMap := make(map[string]*T, len(results))
	for i := range results {
		resultMap[key(results[i])] = &results[i]
	}
	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: resultMap[id]})
	}
	return loaderResults
}
