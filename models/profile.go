package models

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 8

var ErrSessionStoreUnavailable = errors.New("session store not ready")

type Profile struct {
	ID                     string      `gorm:"primaryKey;size:36" json:"id"`
	Email                  string      `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password               string      `gorm:"size:255;not null" json:"-"`
	FullName               string      `gorm:"size:150" json:"full_name"`
	Company                string      `gorm:"size:150" json:"company"`
	Role                   ProfileRole `gorm:"size:20;not null;default:'member'" json:"role"`
	InvestorAccessApproved *bool       `json:"investor_access_approved"`
	PartnerAccessApproved  *bool       `json:"partner_access_approved"`
	// PortalAccountId links a partner member to the enterprise account they may view.
	PortalAccountId *string   `gorm:"size:36;index" json:"portal_account_id"`
	IsActive        *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (p Profile) GetCursor() (time.Time, string) { return p.CreatedAt, p.ID }

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	stampNew(&p.ID, &p.CreatedAt)
	if p.IsActive == nil {
		p.IsActive = utils.NewTrue()
	}
	return nil
}

func (p *Profile) IsAdministrator() bool {
	return p != nil && p.Role == ProfileRoleAdministrator
}

func (p *Profile) Active() bool {
	return p != nil && p.IsActive != nil && *p.IsActive
}

// DisplayName is used in history rows and notifications.
func (p *Profile) DisplayName() string {
	if strings.TrimSpace(p.FullName) != "" {
		return p.FullName
	}
	return p.Email
}

type NewProfile struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
	Company  string `json:"company"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginInfo struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   *Profile  `json:"profile"`
}

// admin access toggle; nil leaves the column unchanged
type UpdateProfileAccess struct {
	InvestorAccessApproved *bool        `json:"investor_access_approved"`
	PartnerAccessApproved  *bool        `json:"partner_access_approved"`
	PortalAccountId        *string      `json:"portal_account_id"`
	Role                   *ProfileRole `json:"role"`
	IsActive               *bool        `json:"is_active"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a member profile and queues the welcome email.
func SignUp(ctx context.Context, input *NewProfile) (*Profile, error) {
	email := normalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, utils.InvalidInput("invalid email")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, utils.InvalidInput("password must be at least 8 characters")
	}
	if err := utils.ValidateUnique[Profile](ctx, "email", email, ""); err != nil {
		var inputErr *utils.InputError
		if errors.As(err, &inputErr) {
			return nil, utils.InvalidInput("email already registered")
		}
		return nil, err
	}
	return createProfile(ctx, email, input.Password, input.FullName, input.Company, ProfileRoleMember, true)
}

// CreateAdministrator is used by the operator CLI.
func CreateAdministrator(ctx context.Context, email, password, fullName string) (*Profile, error) {
	email = normalizeEmail(email)
	if len(password) < MinPasswordLength {
		return nil, utils.InvalidInput("password must be at least 8 characters")
	}
	var existing Profile
	err := dbWith(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		hashed, herr := utils.HashPassword(password)
		if herr != nil {
			return nil, herr
		}
		if err := dbWith(ctx).Model(&existing).Updates(map[string]interface{}{
			"role":     ProfileRoleAdministrator,
			"password": string(hashed),
		}).Error; err != nil {
			return nil, err
		}
		existing.Role = ProfileRoleAdministrator
		return &existing, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return createProfile(ctx, email, password, fullName, "", ProfileRoleAdministrator, false)
}

func createProfile(ctx context.Context, email, password, fullName, company string, role ProfileRole, welcome bool) (*Profile, error) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	profile := Profile{
		Email:    email,
		Password: string(hashed),
		FullName: strings.TrimSpace(fullName),
		Company:  strings.TrimSpace(company),
		Role:     role,
	}
	err = dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		if !welcome {
			return nil
		}
		return EnqueueNotification(tx, NotificationKindWelcomeEmail, profile.Email, profile.ID, map[string]interface{}{
			"profile_id": profile.ID,
			"full_name":  profile.FullName,
		})
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {
	if config.GetRedisDB() == nil {
		return nil, ErrSessionStoreUnavailable
	}
	email = normalizeEmail(email)

	var profile Profile
	if err := dbWith(ctx).Where("email = ?", email).Take(&profile).Error; err != nil {
		return nil, utils.Unauthorized("invalid email or password")
	}
	if err := utils.ComparePassword(profile.Password, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, utils.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if !profile.Active() {
		return nil, utils.Forbidden("profile is disabled")
	}

	lifespan := config.TokenLifespan()
	token := uuid.NewString()
	if err := config.AddRedisSet("Tokens:"+profile.Email, token); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token, profile.Email, lifespan); err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(lifespan),
		Profile:   &profile,
	}, nil
}

func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, utils.Unauthorized("token is required")
	}
	if err := config.RemoveRedisKey("Token:" + token); err != nil {
		return false, err
	}
	email, ok := utils.GetEmailFromContext(ctx)
	if !ok || email == "" {
		return false, utils.Unauthorized("profile not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+email, token); err != nil {
		return false, err
	}
	return true, nil
}

// RevokeSessions drops every token issued to the profile.
func RevokeSessions(email string) error {
	allTokens, err := config.GetRedisSetMembers("Tokens:" + email)
	if err != nil {
		return err
	}
	for _, token := range allTokens {
		if err := config.RemoveRedisKey("Token:" + token); err != nil {
			return err
		}
	}
	return config.RemoveRedisKey("Tokens:" + email)
}

// SessionEmail resolves a session token; ok is false for unknown or expired tokens.
func SessionEmail(token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	return config.GetRedisValue("Token:" + token)
}

func GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	var profile Profile
	err := dbWith(ctx).Where("email = ?", normalizeEmail(email)).Take(&profile).Error
	if err != nil {
		if isNotFound(err) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func GetProfile(ctx context.Context, id string) (*Profile, error) {
	return GetResource[Profile](ctx, id)
}

type ProfileFilter struct {
	Role  string  `form:"role"`
	Query string  `form:"q"`
	First *int    `form:"first"`
	After *string `form:"after"`
}

func ListProfiles(ctx context.Context, f ProfileFilter) (*Connection[Profile], error) {
	dbCtx := dbWith(ctx).Model(&Profile{})
	if f.Role != "" {
		dbCtx = dbCtx.Where("role = ?", f.Role)
	}
	if strings.TrimSpace(f.Query) != "" {
		p := likePattern(f.Query)
		dbCtx = dbCtx.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", p, p)
	}
	return FetchPageCompositeCursor[Profile](dbCtx, PageSize(f.First), f.After)
}

// UpdateProfileAccessFlags is the admin approve/revoke action. Pending access
// requests for an area that was just decided are closed with the same outcome.
func UpdateProfileAccessFlags(ctx context.Context, id string, input *UpdateProfileAccess) (*Profile, error) {
	old, err := GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if input.InvestorAccessApproved != nil {
		updates["investor_access_approved"] = *input.InvestorAccessApproved
	}
	if input.PartnerAccessApproved != nil {
		updates["partner_access_approved"] = *input.PartnerAccessApproved
	}
	if input.PortalAccountId != nil {
		accountId := strings.TrimSpace(*input.PortalAccountId)
		if accountId == "" {
			updates["portal_account_id"] = nil
		} else {
			if err := utils.ValidateResourceId[Account](ctx, accountId); err != nil {
				if errors.Is(err, utils.ErrorRecordNotFound) {
					return nil, utils.InvalidInput("account not found")
				}
				return nil, err
			}
			updates["portal_account_id"] = accountId
		}
	}
	if input.Role != nil {
		if *input.Role != ProfileRoleMember && *input.Role != ProfileRoleAdministrator {
			return nil, utils.InvalidInput("invalid role")
		}
		updates["role"] = *input.Role
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return old, nil
	}

	var profile Profile
	err = dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Profile{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if input.InvestorAccessApproved != nil {
			if err := closeAccessRequests(tx, id, AccessAreaInvestor, *input.InvestorAccessApproved); err != nil {
				return err
			}
		}
		if input.PartnerAccessApproved != nil {
			if err := closeAccessRequests(tx, id, AccessAreaPartner, *input.PartnerAccessApproved); err != nil {
				return err
			}
		}
		if err := tx.Where("id = ?", id).First(&profile).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, "profiles", profile.PortalAccountId, old, profile, "Access for "+profile.Email+" updated.")
	})
	if err != nil {
		return nil, err
	}
	if input.IsActive != nil && !*input.IsActive {
		if err := RevokeSessions(profile.Email); err != nil {
			config.LogError(config.GetLogger(), "Profile", "UpdateProfileAccessFlags", "revoke sessions", profile.Email, err)
		}
	}
	return &profile, nil
}
