package models

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

type PassType struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"gte=1,lte=1000000"`
}

type Vendor struct {
	Name     string `json:"name" validate:"required,max=150"`
	Category string `json:"category" validate:"max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// EventIntake is one Ghost Pass event submission, stored flat.
type EventIntake struct {
	ID                 string                 `gorm:"primaryKey;size:36" json:"id"`
	EventName          string                 `gorm:"size:200;not null" json:"event_name"`
	EventDate          time.Time              `gorm:"not null" json:"event_date"`
	Venue              string                 `gorm:"size:200;not null" json:"venue"`
	City               string                 `gorm:"size:100;not null" json:"city"`
	ExpectedAttendance int                    `gorm:"not null" json:"expected_attendance"`
	ContactName        string                 `gorm:"size:150;not null" json:"contact_name"`
	ContactEmail       string                 `gorm:"size:255;not null;index" json:"contact_email"`
	ContactPhone       string                 `gorm:"size:40;not null" json:"contact_phone"`
	PassTypes          JSONColumn[[]PassType] `gorm:"type:text" json:"pass_types"`
	PromoterSplit      int                    `gorm:"not null" json:"promoter_split"`
	VenueSplit         int                    `gorm:"not null" json:"venue_split"`
	PlatformSplit      int                    `gorm:"not null" json:"platform_split"`
	Vendors            JSONColumn[[]Vendor]   `gorm:"type:text" json:"vendors"`
	PayoutMethod       PayoutMethod           `gorm:"size:20;not null" json:"payout_method"`
	BankAccountName    string                 `gorm:"size:150" json:"bank_account_name"`
	BankRoutingNumber  string                 `gorm:"size:20" json:"bank_routing_number"`
	BankAccountLast4   string                 `gorm:"size:4" json:"bank_account_last4"`
	PaypalEmail        string                 `gorm:"size:255" json:"paypal_email"`
	MailingAddress     string                 `gorm:"size:500" json:"mailing_address"`
	Notes              string                 `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time              `gorm:"index" json:"created_at"`
}

func (EventIntake) TableName() string { return "ghost_pass_event_intakes" }

func (e EventIntake) GetCursor() (time.Time, string) { return e.CreatedAt, e.ID }

func (e *EventIntake) BeforeCreate(tx *gorm.DB) error {
	stampNew(&e.ID, &e.CreatedAt)
	return nil
}

type NewEventIntake struct {
	EventName          string       `json:"event_name" validate:"required,max=200"`
	EventDate          time.Time    `json:"event_date" validate:"required"`
	Venue              string       `json:"venue" validate:"required,max=200"`
	City               string       `json:"city" validate:"required,max=100"`
	ExpectedAttendance int          `json:"expected_attendance" validate:"gte=1,lte=1000000"`
	ContactName        string       `json:"contact_name" validate:"required,max=150"`
	ContactEmail       string       `json:"contact_email" validate:"required,email"`
	ContactPhone       string       `json:"contact_phone" validate:"required,phone"`
	PassTypes          []PassType   `json:"pass_types" validate:"required,min=1,max=20,dive"`
	PromoterSplit      int          `json:"promoter_split" validate:"gte=0,lte=100"`
	VenueSplit         int          `json:"venue_split" validate:"gte=0,lte=100"`
	PlatformSplit      int          `json:"platform_split" validate:"gte=0,lte=100"`
	Vendors            []Vendor     `json:"vendors" validate:"max=100,dive"`
	PayoutMethod       PayoutMethod `json:"payout_method" validate:"required,oneof=bank paypal check"`
	BankAccountName    string       `json:"bank_account_name" validate:"max=150"`
	BankRoutingNumber  string       `json:"bank_routing_number" validate:"omitempty,numeric,len=9"`
	BankAccountNumber  string       `json:"bank_account_number" validate:"omitempty,numeric,min=4,max=17"`
	PaypalEmail        string       `json:"paypal_email" validate:"omitempty,email"`
	MailingAddress     string       `json:"mailing_address" validate:"max=500"`
	Notes              string       `json:"notes" validate:"max=5000"`
}

var (
	intakeValidator     *validator.Validate
	intakeValidatorOnce sync.Once
)

func getIntakeValidator() *validator.Validate {
	intakeValidatorOnce.Do(func() {
		v := validator.New()
		// report json field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return utils.ValidatePhoneNumber(fl.Field().String(), utils.CountryCode) == nil
		})
		v.RegisterStructValidation(eventIntakeStructLevel, NewEventIntake{})
		v.RegisterStructValidation(passTypeStructLevel, PassType{})
		intakeValidator = v
	})
	return intakeValidator
}

func eventIntakeStructLevel(sl validator.StructLevel) {
	in := sl.Current().Interface().(NewEventIntake)

	if in.PromoterSplit+in.VenueSplit+in.PlatformSplit != 100 {
		sl.ReportError(in.PromoterSplit, "splits", "PromoterSplit", "sum100", "")
	}

	switch in.PayoutMethod {
	case PayoutMethodBank:
		if strings.TrimSpace(in.BankAccountName) == "" {
			sl.ReportError(in.BankAccountName, "bank_account_name", "BankAccountName", "required_for_bank", "")
		}
		if in.BankRoutingNumber == "" {
			sl.ReportError(in.BankRoutingNumber, "bank_routing_number", "BankRoutingNumber", "required_for_bank", "")
		}
		if in.BankAccountNumber == "" {
			sl.ReportError(in.BankAccountNumber, "bank_account_number", "BankAccountNumber", "required_for_bank", "")
		}
	case PayoutMethodPaypal:
		if in.PaypalEmail == "" {
			sl.ReportError(in.PaypalEmail, "paypal_email", "PaypalEmail", "required_for_paypal", "")
		}
	case PayoutMethodCheck:
		if strings.TrimSpace(in.MailingAddress) == "" {
			sl.ReportError(in.MailingAddress, "mailing_address", "MailingAddress", "required_for_check", "")
		}
	}
}

func passTypeStructLevel(sl validator.StructLevel) {
	p := sl.Current().Interface().(PassType)
	if p.Price.IsNegative() {
		sl.ReportError(p.Price, "price", "Price", "gte", "0")
	}
}

// ValidateEventIntake returns validator.ValidationErrors keyed by json field names.
func ValidateEventIntake(input *NewEventIntake) error {
	return getIntakeValidator().Struct(input)
}

func CreateEventIntake(ctx context.Context, input *NewEventIntake) (*EventIntake, error) {
	if err := ValidateEventIntake(input); err != nil {
		return nil, err
	}

	intake := EventIntake{
		EventName:          strings.TrimSpace(input.EventName),
		EventDate:          input.EventDate.UTC(),
		Venue:              strings.TrimSpace(input.Venue),
		City:               strings.TrimSpace(input.City),
		ExpectedAttendance: input.ExpectedAttendance,
		ContactName:        strings.TrimSpace(input.ContactName),
		ContactEmail:       strings.ToLower(strings.TrimSpace(input.ContactEmail)),
		ContactPhone:       strings.TrimSpace(input.ContactPhone),
		PassTypes:          NewJSONColumn(input.PassTypes),
		PromoterSplit:      input.PromoterSplit,
		VenueSplit:         input.VenueSplit,
		PlatformSplit:      input.PlatformSplit,
		Vendors:            NewJSONColumn(input.Vendors),
		PayoutMethod:       input.PayoutMethod,
		Notes:              input.Notes,
	}
	switch input.PayoutMethod {
	case PayoutMethodBank:
		intake.BankAccountName = strings.TrimSpace(input.BankAccountName)
		intake.BankRoutingNumber = input.BankRoutingNumber
		// only the last four digits are kept
		intake.BankAccountLast4 = input.BankAccountNumber[len(input.BankAccountNumber)-4:]
	case PayoutMethodPaypal:
		intake.PaypalEmail = strings.ToLower(input.PaypalEmail)
	case PayoutMethodCheck:
		intake.MailingAddress = strings.TrimSpace(input.MailingAddress)
	}

	err := dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&intake).Error; err != nil {
			return err
		}
		return EnqueueNotification(tx, NotificationKindIntakeNotification, intake.ContactEmail, intake.ID, map[string]interface{}{
			"intake_id":    intake.ID,
			"event_name":   intake.EventName,
			"event_date":   intake.EventDate.Format(time.RFC3339),
			"contact_name": intake.ContactName,
			"city":         intake.City,
		})
	})
	if err != nil {
		return nil, err
	}
	return &intake, nil
}

func GetEventIntake(ctx context.Context, id string) (*EventIntake, error) {
	return GetResource[EventIntake](ctx, id)
}

type EventIntakeFilter struct {
	Query string  `form:"q"`
	First *int    `form:"first"`
	After *string `form:"after"`
}

func ListEventIntakes(ctx context.Context, f EventIntakeFilter) (*Connection[EventIntake], error) {
	dbCtx := dbWith(ctx).Model(&EventIntake{})
	if strings.TrimSpace(f.Query) != "" {
		p := likePattern(f.Query)
		dbCtx = dbCtx.Where("LOWER(event_name) LIKE ? OR LOWER(contact_email) LIKE ?", p, p)
	}
	return FetchPageCompositeCursor[EventIntake](dbCtx, PageSize(f.First), f.After)
}
