package models

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

type Connector struct {
	ID              string            `gorm:"primaryKey;size:36" json:"id"`
	AccountId       string            `gorm:"size:36;not null;index" json:"account_id"`
	Name            string            `gorm:"size:150;not null" json:"name"`
	Kind            ConnectorKind     `gorm:"size:20;not null" json:"kind"`
	EndpointUrl     string            `gorm:"size:500;not null" json:"endpoint_url"`
	AuthType        ConnectorAuthType `gorm:"size:20;not null;default:'none'" json:"auth_type"`
	AuthRef         string            `gorm:"size:255" json:"auth_ref"`
	Status          ConnectorStatus   `gorm:"size:20;not null;default:'untested'" json:"status"`
	LastTestedAt    *time.Time        `json:"last_tested_at"`
	LastTestMessage string            `gorm:"size:500" json:"last_test_message"`
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (Connector) TableName() string { return "account_connectors" }

func (c Connector) GetCursor() (time.Time, string) { return c.CreatedAt, c.ID }

func (c *Connector) BeforeCreate(tx *gorm.DB) error {
	stampNew(&c.ID, &c.CreatedAt)
	return nil
}

type NewConnector struct {
	Name        string            `json:"name" binding:"required"`
	Kind        ConnectorKind     `json:"kind" binding:"required"`
	EndpointUrl string            `json:"endpoint_url" binding:"required"`
	AuthType    ConnectorAuthType `json:"auth_type"`
	// AuthRef names a secret held elsewhere; raw credentials are never stored.
	AuthRef string `json:"auth_ref"`
}

func (input *NewConnector) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return utils.InvalidInput("name is required")
	}
	if !input.Kind.IsValid() {
		return utils.InvalidInput("kind must be source_of_truth or customer_vault")
	}
	u, err := url.Parse(strings.TrimSpace(input.EndpointUrl))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return utils.InvalidInput("endpoint url must be an absolute http(s) url")
	}
	input.EndpointUrl = u.String()
	if input.AuthType == "" {
		input.AuthType = ConnectorAuthNone
	}
	if !input.AuthType.IsValid() {
		return utils.InvalidInput("invalid auth type")
	}
	if input.AuthType != ConnectorAuthNone && strings.TrimSpace(input.AuthRef) == "" {
		return utils.InvalidInput("auth ref is required for authenticated connectors")
	}
	return nil
}

func CreateConnector(ctx context.Context, accountId string, input *NewConnector) (*Connector, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Account](ctx, accountId); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.InvalidInput("account not found")
		}
		return nil, err
	}

	connector := Connector{
		AccountId:   accountId,
		Name:        input.Name,
		Kind:        input.Kind,
		EndpointUrl: input.EndpointUrl,
		AuthType:    input.AuthType,
		AuthRef:     strings.TrimSpace(input.AuthRef),
		Status:      ConnectorStatusUntested,
	}
	err := dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&connector).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, connector.ID, "connectors", &accountId, nil, connector, "Connector "+connector.Name+" created.")
	})
	if err != nil {
		return nil, err
	}
	return &connector, nil
}

func GetConnector(ctx context.Context, id string) (*Connector, error) {
	return GetResource[Connector](ctx, id)
}

func ListConnectors(ctx context.Context, accountId string) ([]*Connector, error) {
	return utils.FetchAllModels[Connector](ctx, "created_at DESC, id DESC", "account_id = ?", accountId)
}

func DeleteConnector(ctx context.Context, id string) (*Connector, error) {
	connector, err := GetConnector(ctx, id)
	if err != nil {
		return nil, err
	}
	err = dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(connector).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionDelete, connector.ID, "connectors", &connector.AccountId, connector, nil, "Connector "+connector.Name+" deleted.")
	})
	if err != nil {
		return nil, err
	}
	return connector, nil
}

// RecordConnectorTest stores the outcome of a connection test.
func RecordConnectorTest(ctx context.Context, id string, ok bool, message string, testedAt time.Time) (*Connector, error) {
	status := ConnectorStatusFailed
	if ok {
		status = ConnectorStatusConnected
	}
	if len(message) > 500 {
		message = message[:500]
	}
	res := dbWith(ctx).Model(&Connector{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":            status,
		"last_tested_at":    testedAt,
		"last_test_message": message,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return GetConnector(ctx, id)
}
