package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"finora/internal/logger"
	"finora/internal/models"
)

// Audit actions.
const (
	AuditLogin                 = "LOGIN"
	AuditAdminLogin            = "ADMIN_LOGIN"
	AuditChangePassword        = "CHANGE_PASSWORD"
	AuditCreateAdmin           = "CREATE_ADMIN"
	AuditDeactivateUser        = "DEACTIVATE_USER"
	AuditUnblockLogin          = "UNBLOCK_LOGIN"
	AuditCreateEntry           = "CREATE_ENTRY"
	AuditUpdateEntry           = "UPDATE_ENTRY"
	AuditDeleteEntry           = "DELETE_ENTRY"
	AuditPayInstallment        = "PAY_INSTALLMENT"
	AuditUnpayInstallment      = "UNPAY_INSTALLMENT"
	AuditRescheduleInstallment = "RESCHEDULE_INSTALLMENT"
	AuditRecordPayment         = "RECORD_PAYMENT"
	AuditActivateSubscription  = "ACTIVATE_SUBSCRIPTION"
	AuditCancelSubscription    = "CANCEL_SUBSCRIPTION"
	AuditCreateGoal            = "CREATE_GOAL"
	AuditUpdateGoal            = "UPDATE_GOAL"
	AuditDeleteGoal            = "DELETE_GOAL"
)

// auditService appends rows to the audit log.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed so that an
// audit outage never fails the audited operation.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(action, changes),
	}
	if userID != "" {
		entry.UserID = &userID
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("Failed to write audit log",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

func encodeChanges(action string, changes map[string]any) string {
	if len(changes) == 0 {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Get().Errorw("Failed to encode audit changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
