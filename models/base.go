package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

// stampNew assigns a uuid and a UTC creation time when the caller did not.
func stampNew(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

// GetResource loads one row by id or returns utils.ErrorRecordNotFound.
func GetResource[T any](ctx context.Context, id string) (*T, error) {
	if strings.TrimSpace(id) == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[T](ctx, id)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, utils.ErrorRecordNotFound)
}

func dbWith(ctx context.Context) *gorm.DB {
	return config.GetDB().WithContext(ctx)
}

func likePattern(q string) string {
	q = strings.NewReplacer("%", "", "_", "").Replace(strings.TrimSpace(q))
	return "%" + strings.ToLower(q) + "%"
}
