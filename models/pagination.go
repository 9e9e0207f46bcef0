package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageInfo struct {
	StartCursor string `json:"startCursor"`
	EndCursor   string `json:"endCursor"`
	HasNextPage *bool  `json:"hasNextPage,omitempty"`
}

// PageSize clamps the requested page size.
func PageSize(first *int) int {
	if first == nil || *first <= 0 {
		return DefaultPageSize
	}
	if *first > MaxPageSize {
		return MaxPageSize
	}
	return *first
}

// DecodeCompositeCursor splits "<created_at>|<id>"; an unreadable cursor starts from the top.
func DecodeCompositeCursor(cursor *string) (time.Time, string) {
	if cursor == nil || *cursor == "" {
		return time.Time{}, ""
	}

	decoded, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return time.Time{}, ""
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, ""
	}

	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, ""
	}
	return at, parts[1]
}

func EncodeCompositeCursor(createdAt time.Time, id string) string {
	cursor := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), id)
	return base64.StdEncoding.EncodeToString([]byte(cursor))
}
