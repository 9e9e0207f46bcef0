package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"

	"github.com/validtech/valid_backend/models"
)

type deploymentReader struct {
	db *gorm.DB
}

func (r *deploymentReader) getDeployments(ctx context.Context, ids []string) []*dataloader.Result[*models.Deployment] {
	var results []models.Deployment

	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Deployment](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(d models.Deployment) string { return d.ID })
}

func GetDeployments(ctx context.Context, ids []string) ([]*models.Deployment, []error) {
	loaders := For(ctx)
	return loaders.DeploymentLoader.LoadMany(ctx, ids)()
}
