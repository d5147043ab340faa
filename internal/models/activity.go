package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Действия журнала
const (
	ActivityQuoteCreated       = "quote_created"
	ActivityQuoteStatusChanged = "quote_status_changed"
	ActivityQuoteDeleted       = "quote_deleted"
	ActivityRuleSaved          = "discount_rule_saved"
	ActivityRuleDeleted        = "discount_rule_deleted"
	ActivityRulesImported      = "discount_rules_imported"
	ActivityRoomTypesSaved     = "room_types_saved"
	ActivityRoomTypeDeleted    = "room_type_deleted"
	ActivitySettingsSaved      = "settings_saved"
)

// ActivityEntry: запись журнала действий
type ActivityEntry struct {
	ID         uuid.UUID       `json:"id"`
	Action     string          `json:"action"`
	ObjectType string          `json:"object_type"`
	ObjectID   string          `json:"object_id"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
