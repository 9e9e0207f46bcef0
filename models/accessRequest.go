package models

import (
	"context"
	"strings"
	"time"

	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

// AccessRequest is filed by a member who was denied at an access gate.
type AccessRequest struct {
	ID        string              `gorm:"primaryKey;size:36" json:"id"`
	ProfileId string              `gorm:"size:36;not null;index" json:"profile_id"`
	Email     string              `gorm:"size:255;not null" json:"email"`
	Area      AccessArea          `gorm:"size:20;not null;index" json:"area"`
	Message   string              `gorm:"size:1000" json:"message"`
	Status    AccessRequestStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	DecidedAt *time.Time          `json:"decided_at"`
	CreatedAt time.Time           `gorm:"index" json:"created_at"`
}

func (r AccessRequest) GetCursor() (time.Time, string) { return r.CreatedAt, r.ID }

func (r *AccessRequest) BeforeCreate(tx *gorm.DB) error {
	stampNew(&r.ID, &r.CreatedAt)
	return nil
}

type NewAccessRequest struct {
	Message string `json:"message"`
}

// RequestAccess files (or returns the existing pending) request and notifies admins.
func RequestAccess(ctx context.Context, profile *Profile, area AccessArea, input *NewAccessRequest) (*AccessRequest, error) {
	if profile == nil {
		return nil, utils.Unauthorized("sign in required")
	}
	if !area.IsValid() {
		return nil, utils.InvalidInput("invalid access area")
	}
	message := strings.TrimSpace(input.Message)
	if len(message) > 1000 {
		message = message[:1000]
	}

	var existing AccessRequest
	err := dbWith(ctx).
		Where("profile_id = ? AND area = ? AND status = ?", profile.ID, area, AccessRequestStatusPending).
		Take(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	request := AccessRequest{
		ProfileId: profile.ID,
		Email:     profile.Email,
		Area:      area,
		Message:   message,
		Status:    AccessRequestStatusPending,
	}
	err = dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&request).Error; err != nil {
			return err
		}
		return EnqueueNotification(tx, NotificationKindAccessRequest, profile.Email, request.ID, map[string]interface{}{
			"request_id": request.ID,
			"area":       string(area),
			"full_name":  profile.FullName,
			"company":    profile.Company,
			"message":    message,
		})
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func closeAccessRequests(tx *gorm.DB, profileId string, area AccessArea, approved bool) error {
	status := AccessRequestStatusDenied
	if approved {
		status = AccessRequestStatusApproved
	}
	now := time.Now().UTC()
	return tx.Model(&AccessRequest{}).
		Where("profile_id = ? AND area = ? AND status = ?", profileId, area, AccessRequestStatusPending).
		Updates(map[string]interface{}{"status": status, "decided_at": now}).Error
}

type AccessRequestFilter struct {
	Status string  `form:"status"`
	Area   string  `form:"area"`
	First  *int    `form:"first"`
	After  *string `form:"after"`
}

func ListAccessRequests(ctx context.Context, f AccessRequestFilter) (*Connection[AccessRequest], error) {
	dbCtx := dbWith(ctx).Model(&AccessRequest{})
	if f.Status != "" {
		dbCtx = dbCtx.Where("status = ?", f.Status)
	}
	if f.Area != "" {
		dbCtx = dbCtx.Where("area = ?", f.Area)
	}
	return FetchPageCompositeCursor[AccessRequest](dbCtx, PageSize(f.First), f.After)
}
