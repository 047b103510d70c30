package models

import "time"

// KPIPeriod bounds KPI queries to grievances created within a trailing window.
type KPIPeriod string

const (
	KPIPeriodDay   KPIPeriod = "day"
	KPIPeriodWeek  KPIPeriod = "week"
	KPIPeriodMonth KPIPeriod = "month"
	KPIPeriodYear  KPIPeriod = "year"
	KPIPeriodAll   KPIPeriod = "all"
)

// Since returns the lower creation bound for the period relative to now, or
// nil for an unbounded period. ok is false for unknown periods.
func (p KPIPeriod) Since(now time.Time) (since *time.Time, ok bool) {
	var d time.Duration
	switch p {
	case KPIPeriodAll, "":
		return nil, true
	case KPIPeriodDay:
		d = 24 * time.Hour
	case KPIPeriodWeek:
		d = 7 * 24 * time.Hour
	case KPIPeriodMonth:
		d = 30 * 24 * time.Hour
	case KPIPeriodYear:
		d = 365 * 24 * time.Hour
	default:
		return nil, false
	}
	t := now.Add(-d)
	return &t, true
}

// KPIFilter scopes read-side aggregations.
type KPIFilter struct {
	Since *time.Time
}

// ResolutionRate compares closed grievances to all grievances.
type ResolutionRate struct {
	Total  int     `db:"total" json:"total"`
	Closed int     `db:"closed" json:"closed"`
	Rate   float64 `db:"-" json:"rate"`
}

// PendingAging summarises grievances still awaiting action.
type PendingAging struct {
	Pending        int     `db:"pending" json:"pending"`
	AverageAgeDays float64 `db:"avg_age_days" json:"average_age_days"`
}

// SLACompliance reports how many closed grievances met the SLA window.
type SLACompliance struct {
	SLADays           int     `db:"-" json:"sla_days"`
	Closed            int     `db:"closed" json:"closed"`
	WithinSLA         int     `db:"within_sla" json:"within_sla"`
	Rate              float64 `db:"-" json:"rate"`
	AvgResolutionDays float64 `db:"avg_resolution_days" json:"average_resolution_days"`
}

// StatusCount is the number of grievances in one status.
type StatusCount struct {
	Status GrievanceStatus `db:"status" json:"status"`
	Count  int             `db:"count" json:"count"`
}

// AreaCount is the number of grievances filed against one area.
type AreaCount struct {
	AreaID string `db:"area_id" json:"area_id"`
	Count  int    `db:"count" json:"count"`
}

// StaffPerformance aggregates the workload of one field staff member.
type StaffPerformance struct {
	StaffID            string  `db:"staff_id" json:"staff_id"`
	Name               string  `db:"name" json:"name"`
	Assigned           int     `db:"assigned" json:"assigned"`
	Resolved           int     `db:"resolved" json:"resolved"`
	AvgResolutionHours float64 `db:"avg_resolution_hours" json:"average_resolution_hours"`
	AvgFeedbackRating  float64 `db:"avg_feedback_rating" json:"average_feedback_rating"`
}

// ComplaintTotals counts grievances created within trailing windows.
type ComplaintTotals struct {
	Day   int `db:"day" json:"day"`
	Week  int `db:"week" json:"week"`
	Month int `db:"month" json:"month"`
	Year  int `db:"year" json:"year"`
	All   int `db:"all_time" json:"all"`
}

// LocationStat summarises grievances per ward.
type LocationStat struct {
	Ward     string `db:"ward" json:"ward"`
	Total    int    `db:"total" json:"total"`
	Resolved int    `db:"resolved" json:"resolved"`
	Pending  int    `db:"pending" json:"pending"`
}

// KPIReport bundles every dashboard metric for one period.
type KPIReport struct {
	Period           KPIPeriod          `json:"period"`
	GeneratedAt      time.Time          `json:"generated_at"`
	ResolutionRate   ResolutionRate     `json:"resolution_rate"`
	PendingAging     PendingAging       `json:"pending_aging"`
	SLACompliance    SLACompliance      `json:"sla_compliance"`
	StatusOverview   []StatusCount      `json:"status_overview"`
	AreaDistribution []AreaCount        `json:"area_distribution"`
	StaffPerformance []StaffPerformance `json:"staff_performance"`
	ComplaintTotals  ComplaintTotals    `json:"complaint_totals"`
	Locations        []LocationStat     `json:"locations"`
}

// CitizenHistory is the complete grievance record of one citizen, newest first.
type CitizenHistory struct {
	CitizenID         string        `json:"citizen_id"`
	Name              string        `json:"name"`
	Email             string        `json:"email"`
	Total             int           `json:"total"`
	StatusCounts      []StatusCount `json:"status_counts"`
	Rated             int           `json:"rated"`
	AvgFeedbackRating float64       `json:"average_feedback_rating"`
	Grievances        []Grievance   `json:"grievances"`
}
