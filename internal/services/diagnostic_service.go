package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finora/internal/errors"
	"finora/internal/ledger"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/tenant"
)

// Integrity issue kinds.
const (
	IssueOrphanedInstallments = "orphaned_installments"
	IssueOwnerMismatch        = "owner_mismatch"
	IssueSumMismatch          = "sum_mismatch"
	IssueCountMismatch        = "count_mismatch"
	IssueNegativeTotals       = "negative_totals"
	IssuePaidWithoutDetails   = "paid_without_details"
)

// Integrity issue severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// issueSeverity also fixes the order issues are reported in.
var issueSeverity = []struct {
	kind     string
	severity string
}{
	{IssueOrphanedInstallments, SeverityHigh},
	{IssueOwnerMismatch, SeverityHigh},
	{IssueSumMismatch, SeverityHigh},
	{IssueCountMismatch, SeverityHigh},
	{IssueNegativeTotals, SeverityMedium},
	{IssuePaidWithoutDetails, SeverityMedium},
}

// diagnosticService checks stored entries against the ledger rules.
type diagnosticService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDiagnosticService creates a new DiagnosticServicer.
func NewDiagnosticService(db *gorm.DB) DiagnosticServicer {
	return &diagnosticService{db: db, now: time.Now}
}

// CheckLedger checks the entries and installments owned by userID.
func (s *diagnosticService) CheckLedger(userID string) (*IntegrityReport, error) {
	return s.check(tenant.Scope(userID))
}

// CheckAllLedgers checks every tenant's entries and installments.
func (s *diagnosticService) CheckAllLedgers() (*IntegrityReport, error) {
	return s.check(func(db *gorm.DB) *gorm.DB { return db })
}

func (s *diagnosticService) check(scope func(*gorm.DB) *gorm.DB) (*IntegrityReport, error) {
	var entries []models.FinancialEntry
	if err := s.db.Scopes(scope).Order("id").Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var installments []models.Installment
	if err := s.db.Scopes(scope).Order("entry_id, sequence").Find(&installments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	owners := make(map[string]string, len(entries))
	for _, e := range entries {
		owners[e.ID] = e.UserID
	}
	if err := s.loadForeignOwners(installments, owners); err != nil {
		return nil, err
	}

	found := make(map[string][]string)
	amounts := make(map[string][]decimal.Decimal, len(entries))
	stats := IntegrityStats{Entries: len(entries), Installments: len(installments)}
	for _, inst := range installments {
		if inst.Paid {
			stats.PaidInstallments++
			if inst.PaidAt == nil || !inst.PaidAmount.Valid {
				found[IssuePaidWithoutDetails] = append(found[IssuePaidWithoutDetails], inst.ID)
			}
		} else {
			stats.PendingInstallments++
		}

		owner, ok := owners[inst.EntryID]
		switch {
		case !ok:
			found[IssueOrphanedInstallments] = append(found[IssueOrphanedInstallments], inst.ID)
		case owner != inst.UserID:
			found[IssueOwnerMismatch] = append(found[IssueOwnerMismatch], inst.ID)
		default:
			amounts[inst.EntryID] = append(amounts[inst.EntryID], inst.Amount)
		}
	}

	for _, e := range entries {
		if e.TotalAmount.IsNegative() {
			found[IssueNegativeTotals] = append(found[IssueNegativeTotals], e.ID)
		}
		if err := ledger.Verify(e.TotalAmount, amounts[e.ID]); err != nil {
			found[IssueSumMismatch] = append(found[IssueSumMismatch], e.ID)
		}
		if len(amounts[e.ID]) != e.InstallmentCount {
			found[IssueCountMismatch] = append(found[IssueCountMismatch], e.ID)
		}
	}

	report := &IntegrityReport{
		CheckedAt: s.now().UTC(),
		Issues:    []IntegrityIssue{},
		Stats:     stats,
	}
	for _, rule := range issueSeverity {
		ids := found[rule.kind]
		if len(ids) == 0 {
			continue
		}
		report.Issues = append(report.Issues, IntegrityIssue{
			Kind:     rule.kind,
			Severity: rule.severity,
			Count:    len(ids),
			IDs:      ids,
		})
	}
	report.OK = len(report.Issues) == 0
	if !report.OK {
		logger.Get().Warnw("Ledger integrity check found issues", "issues", len(report.Issues), "entries", stats.Entries)
	}
	return report, nil
}

// loadForeignOwners adds the owners of live entries referenced by
// installments but outside the checked scope. Anything still missing
// afterwards is an orphan.
func (s *diagnosticService) loadForeignOwners(installments []models.Installment, owners map[string]string) error {
	var missing []string
	seen := make(map[string]bool)
	for _, inst := range installments {
		if _, ok := owners[inst.EntryID]; !ok && !seen[inst.EntryID] {
			seen[inst.EntryID] = true
			missing = append(missing, inst.EntryID)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var foreign []models.FinancialEntry
	if err := s.db.Where("id IN ?", missing).Find(&foreign).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, e := range foreign {
		owners[e.ID] = e.UserID
	}
	return nil
}
