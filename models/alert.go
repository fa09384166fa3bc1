package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"gorm.io/gorm"
)

// Alert is the only entity in this model with permitted mutation, and the
// only permitted mutation is a forward state transition. History is
// append-only: auto-clearing creates a new resolved alert referencing the
// prior open alert id instead of rewriting it.
type Alert struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"size:64;not null;index:idx_alert_org_state,priority:1" json:"organization_id"`
	RunId          *int   `gorm:"index" json:"run_id"`

	Category AlertCategory `gorm:"type:enum('CompromisedInventory','ScoreThreshold','Discrepancy','DataQuality','Operational');not null;index" json:"category"`
	Severity Severity      `gorm:"type:enum('none','low','medium','high','critical');not null" json:"severity"`
	Message  string        `gorm:"size:512;not null" json:"message"`

	// Details carries the serialized findings backing the alert.
	Details []byte `gorm:"type:blob" json:"details"`

	State AlertState `gorm:"type:enum('open','acknowledged','resolved');not null;default:'open';index:idx_alert_org_state,priority:2" json:"state"`

	// PriorAlertId links a "cleared" resolved alert back to the open alert it
	// supersedes.
	PriorAlertId *int `gorm:"index" json:"prior_alert_id"`

	Sku         *string `gorm:"size:100;index" json:"sku"`
	ShipmentRef *string `gorm:"size:100" json:"shipment_ref"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AlertFeedItem is the dashboard shape: the alert plus its allowed actions.
type AlertFeedItem struct {
	Alert
	AllowedActions []AlertAction `json:"allowed_actions"`
}

var ErrInvalidAlertTransition = errors.New("invalid alert state transition")

const alertFeedDefaultLimit = 100

// GetAlertFeed returns the live feed: open alerts first, severity-ordered
// within each state, newest first as the final tie-break. The default window
// is cached per organization; custom limits go to the db.
func GetAlertFeed(ctx context.Context, organizationId string, limit int) ([]AlertFeedItem, error) {
	if limit <= 0 || limit > 500 {
		limit = alertFeedDefaultLimit
	}
	useCache := limit == alertFeedDefaultLimit
	if useCache {
		if cached, err := utils.RetrieveRedisList[AlertFeedItem](organizationId); err == nil && cached != nil {
			feed := make([]AlertFeedItem, 0, len(cached))
			for _, item := range cached {
				feed = append(feed, *item)
			}
			return feed, nil
		}
	}

	db := config.GetDB()
	var alerts []Alert
	err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Order("FIELD(state, 'open', 'acknowledged', 'resolved')").
		Order("FIELD(severity, 'critical', 'high', 'medium', 'low', 'none')").
		Order("id DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}

	feed := make([]AlertFeedItem, 0, len(alerts))
	for _, a := range alerts {
		feed = append(feed, AlertFeedItem{Alert: a, AllowedActions: AllowedAlertActions(a.Category)})
	}
	if useCache {
		_ = utils.StoreRedisList[AlertFeedItem](feed, organizationId)
	}
	return feed, nil
}

// ApplyAlertAction performs the state transition behind an action invocation.
// The action must belong to the alert category's allowed set, and the
// resulting transition must be forward-only.
func ApplyAlertAction(ctx context.Context, alertId int, action AlertAction) (*Alert, error) {
	db := config.GetDB()

	var alert *Alert
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a Alert
		if err := tx.Where("id = ?", alertId).Take(&a).Error; err != nil {
			return err
		}

		allowed := false
		for _, candidate := range AllowedAlertActions(a.Category) {
			if candidate == action {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrActionNotAllowed
		}

		target, err := AlertActionTarget(action)
		if err != nil {
			return err
		}
		if !a.State.CanTransitionTo(target) {
			return ErrInvalidAlertTransition
		}

		if err := tx.Model(&Alert{}).
			Where("id = ? AND state = ?", a.ID, a.State).
			Update("state", target).Error; err != nil {
			return err
		}
		a.State = target
		alert = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	// The feed is state-ordered, so a transition changes it.
	_ = utils.RemoveRedisList[AlertFeedItem](alert.OrganizationId)
	return alert, nil
}
