package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finora/internal/errors"
	"finora/internal/ledger"
	"finora/internal/models"
	"finora/internal/pagination"
	"finora/internal/tenant"
)

// Goal years accepted on input.
const (
	MinGoalYear = 2000
	MaxGoalYear = 2100
)

var (
	hundred          = decimal.NewFromInt(100)
	warningThreshold = decimal.NewFromInt(90)
)

// goalService handles monthly goal business logic.
type goalService struct {
	db *gorm.DB
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB) GoalServicer {
	return &goalService{db: db}
}

func normalizeGoal(in *GoalInput) error {
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Year < MinGoalYear || in.Year > MaxGoalYear:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "year must be between 2000 and 2100")
	case in.Month < 1 || in.Month > 12:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	case !in.TargetAmount.IsPositive() || !ledger.IsCents(in.TargetAmount):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be positive with at most 2 decimal places")
	case !ledger.InRange(in.TargetAmount):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount is too large")
	case len(in.Description) > 500:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "description must be at most 500 characters")
	}
	return nil
}

// checkGoal verifies the category and that no other goal covers the same
// month and category. excludeID skips the goal being updated.
func (s *goalService) checkGoal(userID, excludeID string, in GoalInput) error {
	if in.CategoryID != nil {
		ok, err := tenant.Exists[models.Category](s.db, userID, *in.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrCategoryNotFound
		}
	}

	query := s.db.Model(&models.Goal{}).
		Scopes(tenant.Scope(userID)).
		Where("year = ? AND month = ?", in.Year, in.Month)
	if in.CategoryID != nil {
		query = query.Where("category_id = ?", *in.CategoryID)
	} else {
		query = query.Where("category_id IS NULL")
	}
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrGoalExists
	}
	return nil
}

// CreateGoal creates a goal for one month and optional category.
func (s *goalService) CreateGoal(userID string, in GoalInput) (*models.Goal, error) {
	if err := normalizeGoal(&in); err != nil {
		return nil, err
	}
	if err := s.checkGoal(userID, "", in); err != nil {
		return nil, err
	}

	goal := &models.Goal{
		Year:         in.Year,
		Month:        in.Month,
		CategoryID:   in.CategoryID,
		TargetAmount: in.TargetAmount,
		Description:  in.Description,
	}
	tenant.Claim(goal, userID)

	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetGoalByID(userID, goal.ID)
}

// GetUserGoals returns a paginated list of goals, newest month first.
func (s *goalService) GetUserGoals(userID string, filter GoalFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	page.Defaults()

	base := s.db.Model(&models.Goal{}).Scopes(tenant.Scope(userID))
	if filter.Year != nil {
		base = base.Where("year = ?", *filter.Year)
	}
	if filter.Month != nil {
		base = base.Where("month = ?", *filter.Month)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goals []models.Goal
	if err := base.
		Preload("Category").
		Order("year DESC, month DESC, created_at").
		Scopes(pagination.Paginate(page)).
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(goals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetGoalByID returns a goal owned by userID.
func (s *goalService) GetGoalByID(userID, id string) (*models.Goal, error) {
	return tenant.Find[models.Goal](s.db.Preload("Category"), userID, id, apperrors.ErrGoalNotFound)
}

// UpdateGoal replaces every editable field of a goal.
func (s *goalService) UpdateGoal(userID, id string, in GoalInput) (*models.Goal, error) {
	if err := normalizeGoal(&in); err != nil {
		return nil, err
	}
	goal, err := tenant.Find[models.Goal](s.db, userID, id, apperrors.ErrGoalNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.checkGoal(userID, goal.ID, in); err != nil {
		return nil, err
	}

	if err := s.db.Model(goal).Updates(map[string]interface{}{
		"year":          in.Year,
		"month":         in.Month,
		"category_id":   in.CategoryID,
		"target_amount": in.TargetAmount,
		"description":   in.Description,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetGoalByID(userID, goal.ID)
}

// DeleteGoal soft-deletes a goal.
func (s *goalService) DeleteGoal(userID, id string) error {
	goal, err := tenant.Find[models.Goal](s.db, userID, id, apperrors.ErrGoalNotFound)
	if err != nil {
		return err
	}
	if err := s.db.Delete(goal).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetMonthProgress compares every goal of a month with the installments
// due or paid in it.
func (s *goalService) GetMonthProgress(userID string, year, month int) (*MonthProgress, error) {
	if year < MinGoalYear || year > MaxGoalYear || month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "year or month out of range")
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := ledger.AddMonths(start, 1)

	var goals []models.Goal
	if err := s.db.Scopes(tenant.Scope(userID)).
		Where("year = ? AND month = ?", year, month).
		Order("created_at").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &MonthProgress{
		Year:     year,
		Month:    month,
		HasGoals: len(goals) > 0,
		Target:   decimal.Zero,
		Realized: decimal.Zero,
		Percent:  decimal.Zero,
		Status:   models.GoalStatusWithin,
		Goals:    []GoalProgress{},
	}
	if len(goals) == 0 {
		return result, nil
	}

	rows, err := s.monthInstallments(userID, start, end)
	if err != nil {
		return nil, err
	}

	for _, g := range goals {
		p := GoalProgress{
			GoalID:     g.ID,
			CategoryID: g.CategoryID,
			Target:     g.TargetAmount,
			Scheduled:  decimal.Zero,
			Realized:   decimal.Zero,
		}
		for _, row := range rows {
			if !row.matches(g) {
				continue
			}
			if inMonth(row.inst.DueDate, start, end) {
				p.Scheduled = p.Scheduled.Add(row.inst.Amount)
			}
			if row.inst.Paid && row.inst.PaidAt != nil && inMonth(*row.inst.PaidAt, start, end) {
				p.Realized = p.Realized.Add(paidValue(row.inst))
			}
		}
		p.Percent, p.Status = rate(p.Realized, p.Target)

		result.Target = result.Target.Add(p.Target)
		result.Realized = result.Realized.Add(p.Realized)
		result.Goals = append(result.Goals, p)
	}
	result.Percent, result.Status = rate(result.Realized, result.Target)
	return result, nil
}

type goalRow struct {
	inst       models.Installment
	kind       models.EntryKind
	categoryID *string
}

// matches reports whether the installment counts toward g. Goals without
// a category only count expenses.
func (r goalRow) matches(g models.Goal) bool {
	if g.CategoryID == nil {
		return r.kind == models.EntryKindExpense
	}
	return r.categoryID != nil && *r.categoryID == *g.CategoryID
}

// monthInstallments loads the installments due or paid in [start, end)
// together with the kind and category of their entries.
func (s *goalService) monthInstallments(userID string, start, end time.Time) ([]goalRow, error) {
	var installments []models.Installment
	if err := s.db.Scopes(tenant.Scope(userID)).
		Where("((due_date >= ? AND due_date < ?) OR (paid = ? AND paid_at >= ? AND paid_at < ?))", start, end, true, start, end).
		Find(&installments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(installments) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(installments))
	for _, inst := range installments {
		ids = append(ids, inst.EntryID)
	}
	var entries []models.FinancialEntry
	if err := s.db.Scopes(tenant.Scope(userID)).Where("id IN ?", ids).Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]models.FinancialEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	rows := make([]goalRow, 0, len(installments))
	for _, inst := range installments {
		entry, ok := byID[inst.EntryID]
		if !ok {
			continue
		}
		rows = append(rows, goalRow{inst: inst, kind: entry.Kind, categoryID: entry.CategoryID})
	}
	return rows, nil
}

func inMonth(t, start, end time.Time) bool {
	d := ledger.Day(t)
	return !d.Before(start) && d.Before(end)
}

// paidValue is what was actually paid, falling back to the scheduled amount.
func paidValue(inst models.Installment) decimal.Decimal {
	if inst.PaidAmount.Valid {
		return inst.PaidAmount.Decimal
	}
	return inst.Amount
}

// rate returns realized as a percentage of target and the resulting status:
// within up to 90%, warning up to 100%, exceeded beyond.
func rate(realized, target decimal.Decimal) (decimal.Decimal, models.GoalStatus) {
	if !target.IsPositive() {
		return decimal.Zero, models.GoalStatusWithin
	}
	pct := realized.Mul(hundred).Div(target).Round(2)
	switch {
	case pct.LessThanOrEqual(warningThreshold):
		return pct, models.GoalStatusWithin
	case pct.LessThanOrEqual(hundred):
		return pct, models.GoalStatusWarning
	default:
		return pct, models.GoalStatusExceeded
	}
}
