package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"openwfm/api/internal/model"
	"openwfm/api/internal/money"
)

const topN = 10

// Scope restricts an aggregation to the whole organization, one project, or
// one worker.
type Scope struct {
	OrgID     string
	ProjectID string
	UserID    string
}

// ProjectAmount is one row of a project breakdown.
type ProjectAmount struct {
	ProjectID string  `json:"project_id"`
	Project   string  `json:"project"`
	Amount    float64 `json:"amount"`
}

// UserAmount is one row of a per-worker cost breakdown.
type UserAmount struct {
	UserID string  `json:"user_id"`
	User   string  `json:"user"`
	Cost   float64 `json:"cost"`
}

// Summary aggregates revenue, cost and margin over a date range.
type Summary struct {
	From                 string          `json:"from"`
	To                   string          `json:"to"`
	BillableRevenue      float64         `json:"billable_revenue"`
	LabourCost           float64         `json:"labour_cost"`
	GrossMargin          float64         `json:"gross_margin"`
	MarginPct            float64         `json:"margin_pct"`
	BillableHours        float64         `json:"billable_hours"`
	NonBillableHours     float64         `json:"non_billable_hours"`
	TopProjectsByRevenue []ProjectAmount `json:"top_projects_by_revenue"`
	TopProjectsByCost    []ProjectAmount `json:"top_projects_by_cost"`
	LabourByUser         []UserAmount    `json:"labour_by_user"`
}

// TrendPoint is one period bucket of the revenue/cost trend.
type TrendPoint struct {
	Period           string  `json:"period"`
	Revenue          float64 `json:"revenue"`
	Cost             float64 `json:"cost"`
	BillableHours    float64 `json:"billable_hours"`
	NonBillableHours float64 `json:"non_billable_hours"`
}

// FinancialService scans persisted timesheets over a date range and produces
// revenue, cost, margin and breakdowns using RatePolicy and billable flags.
// Reads are not transactionally consistent with concurrent session writes;
// this is a reporting path, not a ledger.
type FinancialService struct {
	db    *gorm.DB
	rates *RatePolicy
}

// NewFinancialService creates a financial aggregation service
func NewFinancialService(db *gorm.DB, rates *RatePolicy) *FinancialService {
	return &FinancialService{db: db, rates: rates}
}

// Summary aggregates all sessions in [from, to] (inclusive, "YYYY-MM-DD")
// within the scope. Accumulation is full precision; money rounds to 2 and
// hours/percentage to 1 decimal place once, at output.
func (s *FinancialService) Summary(ctx context.Context, scope Scope, from, to string) (*Summary, error) {
	entries, rates, err := s.load(ctx, scope, from, to)
	if err != nil {
		return nil, err
	}

	revenue := money.Zero()
	cost := money.Zero()
	billableHours := money.Zero()
	nonBillableHours := money.Zero()
	projectRevenue := map[string]money.Amount{}
	projectCost := map[string]money.Amount{}
	projectNames := map[string]string{}
	userCost := map[string]money.Amount{}
	userNames := map[string]string{}

	for _, e := range entries {
		line := rates.line(e)

		cost = cost.Add(line.cost)
		projectCost[e.ProjectID] = projectCost[e.ProjectID].Add(line.cost)
		userCost[e.UserID] = userCost[e.UserID].Add(line.cost)
		if e.Project != nil {
			projectNames[e.ProjectID] = e.Project.Name
		}
		if e.User != nil {
			userNames[e.UserID] = e.User.DisplayName()
		}

		if e.Billable() {
			revenue = revenue.Add(line.revenue)
			projectRevenue[e.ProjectID] = projectRevenue[e.ProjectID].Add(line.revenue)
			billableHours = billableHours.Add(line.hours)
		} else {
			nonBillableHours = nonBillableHours.Add(line.hours)
		}
	}

	margin := revenue.Sub(cost)
	return &Summary{
		From:                 from,
		To:                   to,
		BillableRevenue:      revenue.Round2(),
		LabourCost:           cost.Round2(),
		GrossMargin:          margin.Round2(),
		MarginPct:            money.Pct(margin, revenue),
		BillableHours:        billableHours.Round1(),
		NonBillableHours:     nonBillableHours.Round1(),
		TopProjectsByRevenue: topProjects(projectRevenue, projectNames),
		TopProjectsByCost:    topProjects(projectCost, projectNames),
		LabourByUser:         labourByUser(userCost, userNames),
	}, nil
}

// Trend buckets revenue and cost by period. groupBy "week" aligns buckets to
// the Sunday start of the week; anything else buckets by month (the first 7
// characters of the date).
func (s *FinancialService) Trend(ctx context.Context, scope Scope, from, to, groupBy string) ([]TrendPoint, error) {
	entries, rates, err := s.load(ctx, scope, from, to)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		revenue, cost, billable, nonBillable money.Amount
	}
	buckets := map[string]*bucket{}

	for _, e := range entries {
		key := PeriodKey(e.Date, groupBy)
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		line := rates.line(e)
		b.cost = b.cost.Add(line.cost)
		if e.Billable() {
			b.revenue = b.revenue.Add(line.revenue)
			b.billable = b.billable.Add(line.hours)
		} else {
			b.nonBillable = b.nonBillable.Add(line.hours)
		}
	}

	periods := make([]string, 0, len(buckets))
	for p := range buckets {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	trend := make([]TrendPoint, 0, len(periods))
	for _, p := range periods {
		b := buckets[p]
		trend = append(trend, TrendPoint{
			Period:           p,
			Revenue:          b.revenue.Round2(),
			Cost:             b.cost.Round2(),
			BillableHours:    b.billable.Round1(),
			NonBillableHours: b.nonBillable.Round1(),
		})
	}
	return trend, nil
}

// PeriodKey derives the trend bucket key for a "YYYY-MM-DD" date.
func PeriodKey(date, groupBy string) string {
	if groupBy == "week" {
		if d, err := time.Parse("2006-01-02", date); err == nil {
			return d.AddDate(0, 0, -int(d.Weekday())).Format("2006-01-02")
		}
	}
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}

// rateTable holds everything needed to price a session without further
// lookups: active allocation rates, project rates and the overtime policy.
type rateTable struct {
	allocations map[string]model.Allocation // user_id:project_id
	policy      model.OvertimePolicy
}

type costLine struct {
	hours   money.Amount
	cost    money.Amount
	revenue money.Amount
}

// line prices one session. Missing data substitutes documented defaults:
// no allocation means the project default rate, no client rate means the
// default rate, non-billable means zero revenue. An allocation only applies
// to sessions dated within its coverage window, matching BaseCostRate.
func (r *rateTable) line(e model.Timesheet) costLine {
	hours := money.HoursFromMinutes(e.DurationMinutes)
	day, perr := time.Parse("2006-01-02", e.Date)

	var base, billing money.Amount
	if alloc, ok := r.allocations[e.UserID+":"+e.ProjectID]; ok && (perr != nil || alloc.Covers(day)) {
		base = money.FromDecimal(alloc.HourlyRate)
	} else if e.Project != nil {
		base = money.FromDecimal(e.Project.DefaultRate)
	}
	if e.Project != nil {
		billing = money.FromDecimal(e.Project.BillingRate())
	}

	mult := OvertimeMultiplier(e.Date, r.policy)
	line := costLine{
		hours: hours,
		cost:  hours.Mul(base).MulFloat(mult),
	}
	if e.Billable() {
		line.revenue = hours.Mul(billing)
	}
	return line
}

// load fetches the scoped sessions with project and user rows, the active
// allocations, and the organization's overtime policy.
func (s *FinancialService) load(ctx context.Context, scope Scope, from, to string) ([]model.Timesheet, *rateTable, error) {
	query := s.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = timesheets.project_id").
		Where("projects.org_id = ?", scope.OrgID).
		Where("timesheets.date >= ? AND timesheets.date <= ?", from, to).
		Preload("Project").
		Preload("User").
		Order("timesheets.date ASC, timesheets.clock_in ASC")
	if scope.ProjectID != "" {
		query = query.Where("timesheets.project_id = ?", scope.ProjectID)
	}
	if scope.UserID != "" {
		query = query.Where("timesheets.user_id = ?", scope.UserID)
	}

	var entries []model.Timesheet
	if err := query.Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	var allocations []model.Allocation
	if err := s.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = allocations.project_id").
		Where("projects.org_id = ? AND allocations.is_active = ?", scope.OrgID, true).
		Find(&allocations).Error; err != nil {
		return nil, nil, err
	}
	allocMap := make(map[string]model.Allocation, len(allocations))
	for _, a := range allocations {
		allocMap[a.UserID+":"+a.ProjectID] = a
	}

	return entries, &rateTable{
		allocations: allocMap,
		policy:      s.rates.GetOvertimePolicy(ctx, scope.OrgID),
	}, nil
}

func topProjects(amounts map[string]money.Amount, names map[string]string) []ProjectAmount {
	rows := make([]ProjectAmount, 0, len(amounts))
	for id, v := range amounts {
		name := names[id]
		if name == "" {
			name = id
		}
		rows = append(rows, ProjectAmount{ProjectID: id, Project: name, Amount: v.Round2()})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Amount != rows[j].Amount {
			return rows[i].Amount > rows[j].Amount
		}
		return rows[i].ProjectID < rows[j].ProjectID
	})
	if len(rows) > topN {
		rows = rows[:topN]
	}
	return rows
}

func labourByUser(costs map[string]money.Amount, names map[string]string) []UserAmount {
	rows := make([]UserAmount, 0, len(costs))
	for id, v := range costs {
		name := names[id]
		if name == "" {
			name = id
		}
		rows = append(rows, UserAmount{UserID: id, User: name, Cost: v.Round2()})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Cost != rows[j].Cost {
			return rows[i].Cost > rows[j].Cost
		}
		return rows[i].UserID < rows[j].UserID
	})
	return rows
}
