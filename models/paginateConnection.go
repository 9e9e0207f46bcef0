package models

import (
	"time"

	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

// rows listed newest first, keyed on (created_at, id)
type Cursor interface {
	GetCursor() (time.Time, string)
}

type Edge[N Cursor] struct {
	Node   *N     `json:"node"`
	Cursor string `json:"cursor"`
}

type Connection[N Cursor] struct {
	Edges    []Edge[N] `json:"edges"`
	PageInfo *PageInfo `json:"pageInfo"`
}

// fetch results for pagination
func FetchPageCompositeCursor[T Cursor](dbCtx *gorm.DB, limit int, after *string) (*Connection[T], error) {
	nodes := make([]*T, 0)

	dbCtx = dbCtx.Order("created_at DESC, id DESC")

	// filter
	afterAt, afterId := DecodeCompositeCursor(after)
	if afterId != "" {
		dbCtx = dbCtx.Where("(created_at < ? OR (created_at = ? AND id < ?))", afterAt, afterAt, afterId)
	}

	// db query
	if err := dbCtx.Limit(limit + 1).Find(&nodes).Error; err != nil {
		return nil, err
	}

	/*
		constructing edges & page info
	*/
	count := 0
	hasNextPage := false
	edges := make([]Edge[T], 0, len(nodes))
	for _, node := range nodes {
		if count == limit {
			hasNextPage = true
		}
		if count < limit {
			at, id := (*node).GetCursor()
			edges = append(edges, Edge[T]{
				Node:   node,
				Cursor: EncodeCompositeCursor(at, id),
			})
			count++
		}
	}

	pageInfo := PageInfo{
		StartCursor: "",
		EndCursor:   "",
		HasNextPage: utils.NewFalse(),
	}
	if count > 0 {
		pageInfo = PageInfo{
			StartCursor: edges[0].Cursor,
			EndCursor:   edges[count-1].Cursor,
			HasNextPage: &hasNextPage,
		}
	}

	return &Connection[T]{Edges: edges, PageInfo: &pageInfo}, nil
}
