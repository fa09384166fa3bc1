package models

import (
	"errors"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleOwner    UserRole = "O"
	UserRoleConsumer UserRole = "C"
)

type DocumentType string

const (
	DocumentTypeInvoice      DocumentType = "Invoice"
	DocumentTypePackingList  DocumentType = "PackingList"
	DocumentTypeBillOfLading DocumentType = "BillOfLading"
	DocumentTypeCustoms      DocumentType = "Customs"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeInvoice, DocumentTypePackingList, DocumentTypeBillOfLading, DocumentTypeCustoms:
		return true
	}
	return false
}

// Severity is the shared classification scale for discrepancy metrics,
// findings and alerts.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

func (s Severity) Rank() int {
	return severityRank[s]
}

func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// MaxSeverity returns the highest-ranked severity among the arguments.
func MaxSeverity(severities ...Severity) Severity {
	max := SeverityNone
	for _, s := range severities {
		if s.Rank() > max.Rank() {
			max = s
		}
	}
	return max
}

type MatchStrategy string

const (
	MatchStrategyExactSku  MatchStrategy = "ExactSku"
	MatchStrategyFuzzySku  MatchStrategy = "FuzzySku"
	MatchStrategyUnmatched MatchStrategy = "Unmatched"
)

type AlertState string

const (
	AlertStateOpen         AlertState = "open"
	AlertStateAcknowledged AlertState = "acknowledged"
	AlertStateResolved     AlertState = "resolved"
)

// alertStateOrder backs the forward-only transition invariant:
// open -> acknowledged -> resolved, never backward.
var alertStateOrder = map[AlertState]int{
	AlertStateOpen:         0,
	AlertStateAcknowledged: 1,
	AlertStateResolved:     2,
}

func (s AlertState) CanTransitionTo(next AlertState) bool {
	cur, ok := alertStateOrder[s]
	if !ok {
		return false
	}
	nxt, ok := alertStateOrder[next]
	if !ok {
		return false
	}
	return nxt > cur
}

type AlertCategory string

const (
	AlertCategoryCompromisedInventory AlertCategory = "CompromisedInventory"
	AlertCategoryScoreThreshold       AlertCategory = "ScoreThreshold"
	AlertCategoryDiscrepancy          AlertCategory = "Discrepancy"
	AlertCategoryDataQuality          AlertCategory = "DataQuality"
	AlertCategoryOperational          AlertCategory = "Operational"
)

type AlertAction string

const (
	AlertActionAcknowledge AlertAction = "acknowledge"
	AlertActionEscalate    AlertAction = "escalate"
	AlertActionInvestigate AlertAction = "investigate"
	AlertActionWriteOff    AlertAction = "write-off"
	AlertActionDismiss     AlertAction = "dismiss"
	AlertActionResolve     AlertAction = "resolve"
)

// AllowedAlertActions is the fixed per-category action set exposed on the feed.
func AllowedAlertActions(category AlertCategory) []AlertAction {
	switch category {
	case AlertCategoryCompromisedInventory:
		return []AlertAction{AlertActionInvestigate, AlertActionWriteOff, AlertActionDismiss}
	case AlertCategoryScoreThreshold:
		return []AlertAction{AlertActionAcknowledge, AlertActionEscalate}
	case AlertCategoryDiscrepancy:
		return []AlertAction{AlertActionAcknowledge, AlertActionResolve}
	case AlertCategoryDataQuality, AlertCategoryOperational:
		return []AlertAction{AlertActionAcknowledge, AlertActionDismiss}
	default:
		return nil
	}
}

var ErrActionNotAllowed = errors.New("action not allowed for alert category")

// AlertActionTarget maps an invoked action to the state it transitions into.
func AlertActionTarget(action AlertAction) (AlertState, error) {
	switch action {
	case AlertActionAcknowledge, AlertActionInvestigate, AlertActionEscalate:
		return AlertStateAcknowledged, nil
	case AlertActionResolve, AlertActionWriteOff, AlertActionDismiss:
		return AlertStateResolved, nil
	default:
		return "", errors.New("unknown alert action")
	}
}

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "Low"
	RiskLevelMedium   RiskLevel = "Medium"
	RiskLevelHigh     RiskLevel = "High"
	RiskLevelCritical RiskLevel = "Critical"
)

var riskRank = map[RiskLevel]int{
	RiskLevelLow:      0,
	RiskLevelMedium:   1,
	RiskLevelHigh:     2,
	RiskLevelCritical: 3,
}

func (r RiskLevel) Rank() int { return riskRank[r] }

type RunStatus string

const (
	RunStatusRunning   RunStatus = "Running"
	RunStatusCompleted RunStatus = "Completed"
	RunStatusFailed    RunStatus = "Failed"
	RunStatusTimedOut  RunStatus = "TimedOut"
)

type TriggerSource string

const (
	TriggerSourceUpload   TriggerSource = "upload"
	TriggerSourceDocument TriggerSource = "document"
	TriggerSourceSchedule TriggerSource = "schedule"
	TriggerSourceManual   TriggerSource = "manual"
)

type UploadStatus string

const (
	UploadStatusActive     UploadStatus = "Active"
	UploadStatusSuperseded UploadStatus = "Superseded"
	UploadStatusFailed     UploadStatus = "Failed"
)

type CompromisedItemStatus string

const (
	CompromisedItemStatusActive   CompromisedItemStatus = "Active"
	CompromisedItemStatusResolved CompromisedItemStatus = "Resolved"
)

const (
	IdempotencyStatusStarted   = "STARTED"
	IdempotencyStatusSucceeded = "SUCCEEDED"
	IdempotencyStatusFailed    = "FAILED"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
