package models

import (
	"context"
	"strings"
	"time"

	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sponsorListCacheKey = "SponsorList"

type Sponsor struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Name       string    `gorm:"size:150;not null;uniqueIndex" json:"name"`
	Tier       string    `gorm:"size:30" json:"tier"`
	WebsiteUrl string    `gorm:"size:500" json:"website_url"`
	LogoUrl    string    `gorm:"size:500" json:"logo_url"`
	SortOrder  int       `gorm:"not null;default:0" json:"sort_order"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *Sponsor) BeforeCreate(tx *gorm.DB) error {
	stampNew(&s.ID, &s.CreatedAt)
	return nil
}

type NewSponsor struct {
	Name       string `yaml:"name" json:"name"`
	Tier       string `yaml:"tier" json:"tier"`
	WebsiteUrl string `yaml:"website" json:"website_url"`
	LogoUrl    string `yaml:"logo_url" json:"logo_url"`
	SortOrder  int    `yaml:"sort_order" json:"sort_order"`
	Active     *bool  `yaml:"active" json:"active"`
}

// ListSponsors returns active sponsors, served from Redis when cached.
func ListSponsors(ctx context.Context) ([]*Sponsor, error) {
	var cached []*Sponsor
	exists, err := config.GetRedisObject(sponsorListCacheKey, &cached)
	if err != nil {
		config.LogError(config.GetLogger(), "Sponsor", "ListSponsors", "read cache", nil, err)
	}
	if exists {
		return cached, nil
	}

	var results []*Sponsor
	if err := dbWith(ctx).Where("is_active = ?", true).Order("sort_order, name").Find(&results).Error; err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(sponsorListCacheKey, results, config.CacheLifespan()); err != nil {
		config.LogError(config.GetLogger(), "Sponsor", "ListSponsors", "write cache", nil, err)
	}
	return results, nil
}

// UpsertSponsors inserts or updates sponsors by name and drops the cached list.
func UpsertSponsors(ctx context.Context, inputs []NewSponsor) (int, error) {
	rows := make([]Sponsor, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return 0, utils.InvalidInput("sponsor name is required")
		}
		active := true
		if in.Active != nil {
			active = *in.Active
		}
		sortOrder := in.SortOrder
		if sortOrder == 0 {
			sortOrder = i + 1
		}
		rows = append(rows, Sponsor{
			Name:       name,
			Tier:       strings.TrimSpace(in.Tier),
			WebsiteUrl: strings.TrimSpace(in.WebsiteUrl),
			LogoUrl:    strings.TrimSpace(in.LogoUrl),
			SortOrder:  sortOrder,
			IsActive:   &active,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := dbWith(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "website_url", "logo_url", "sort_order", "is_active", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, err
	}
	if err := config.RemoveRedisKey(sponsorListCacheKey); err != nil {
		return len(rows), err
	}
	return len(rows), nil
}
