package models

import (
	"encoding/json"
	"errors"
)

type AccountStatus string

const (
	AccountStatusProspect  AccountStatus = "prospect"
	AccountStatusPilot     AccountStatus = "pilot"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

func (t AccountStatus) IsValid() bool {
	switch t {
	case AccountStatusProspect, AccountStatusPilot, AccountStatusActive, AccountStatusSuspended:
		return true
	}
	return false
}

// convert input to enum type
func (t *AccountStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("account status must be string")
	}
	v := AccountStatus(str)
	if !v.IsValid() {
		return errors.New("invalid account status")
	}
	*t = v
	return nil
}

type OutputPreference string

const (
	OutputPreferenceVerdictOnly OutputPreference = "verdict_only"
	OutputPreferenceWithScores  OutputPreference = "verdict_with_scores"
	OutputPreferenceFullAudit   OutputPreference = "full_audit"
)

func (t OutputPreference) IsValid() bool {
	switch t {
	case OutputPreferenceVerdictOnly, OutputPreferenceWithScores, OutputPreferenceFullAudit:
		return true
	}
	return false
}

func (t *OutputPreference) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("output preference must be string")
	}
	v := OutputPreference(str)
	if !v.IsValid() {
		return errors.New("invalid output preference")
	}
	*t = v
	return nil
}

type Verdict string

const (
	VerdictOK     Verdict = "OK"
	VerdictReview Verdict = "REVIEW"
	VerdictBlock  Verdict = "BLOCK"
)

func (t Verdict) IsValid() bool {
	switch t {
	case VerdictOK, VerdictReview, VerdictBlock:
		return true
	}
	return false
}

type DefaultAction string

const (
	DefaultActionPurge    DefaultAction = "PURGE"
	DefaultActionRetain   DefaultAction = "RETAIN"
	DefaultActionEscalate DefaultAction = "ESCALATE"
)

func (t DefaultAction) IsValid() bool {
	switch t {
	case DefaultActionPurge, DefaultActionRetain, DefaultActionEscalate:
		return true
	}
	return false
}

type ConnectorKind string

const (
	ConnectorKindSourceOfTruth ConnectorKind = "source_of_truth"
	ConnectorKindCustomerVault ConnectorKind = "customer_vault"
)

func (t ConnectorKind) IsValid() bool {
	return t == ConnectorKindSourceOfTruth || t == ConnectorKindCustomerVault
}

type ConnectorAuthType string

const (
	ConnectorAuthNone   ConnectorAuthType = "none"
	ConnectorAuthApiKey ConnectorAuthType = "api_key"
	ConnectorAuthOAuth2 ConnectorAuthType = "oauth2"
	ConnectorAuthMTLS   ConnectorAuthType = "mtls"
)

func (t ConnectorAuthType) IsValid() bool {
	switch t {
	case ConnectorAuthNone, ConnectorAuthApiKey, ConnectorAuthOAuth2, ConnectorAuthMTLS:
		return true
	}
	return false
}

type ConnectorStatus string

const (
	ConnectorStatusUntested  ConnectorStatus = "untested"
	ConnectorStatusConnected ConnectorStatus = "connected"
	ConnectorStatusFailed    ConnectorStatus = "failed"
)

type ProfileRole string

const (
	ProfileRoleMember        ProfileRole = "member"
	ProfileRoleAdministrator ProfileRole = "administrator"
)

type AccessArea string

const (
	AccessAreaInvestor AccessArea = "investor"
	AccessAreaPartner  AccessArea = "partner"
)

func (t AccessArea) IsValid() bool {
	return t == AccessAreaInvestor || t == AccessAreaPartner
}

type AccessRequestStatus string

const (
	AccessRequestStatusPending  AccessRequestStatus = "pending"
	AccessRequestStatusApproved AccessRequestStatus = "approved"
	AccessRequestStatusDenied   AccessRequestStatus = "denied"
)

type PayoutMethod string

const (
	PayoutMethodBank   PayoutMethod = "bank"
	PayoutMethodPaypal PayoutMethod = "paypal"
	PayoutMethodCheck  PayoutMethod = "check"
)

type NotificationKind string

const (
	NotificationKindWelcomeEmail       NotificationKind = "welcome_email"
	NotificationKindIntakeNotification NotificationKind = "intake_notification"
	NotificationKindAccessRequest      NotificationKind = "access_request"
)

// Outbox publish statuses for NotificationRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

type HistoryAction string

const (
	HistoryActionCreate HistoryAction = "C"
	HistoryActionUpdate HistoryAction = "U"
	HistoryActionDelete HistoryAction = "D"
)
