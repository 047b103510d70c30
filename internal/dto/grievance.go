package dto

// SubmitGrievanceRequest is the citizen payload for filing a grievance.
type SubmitGrievanceRequest struct {
	SubjectID   string   `json:"subject_id" validate:"required"`
	AreaID      string   `json:"area_id" validate:"required"`
	CategoryID  *string  `json:"category_id"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	Address     *string  `json:"address"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
	WardNumber  *string  `json:"ward_number"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high urgent LOW MEDIUM HIGH URGENT"`
}

// AcceptGrievanceRequest assigns a new grievance to field staff.
type AcceptGrievanceRequest struct {
	Priority   string `json:"priority" validate:"required"`
	AssigneeID string `json:"assigned_to" validate:"required"`
}

// RejectGrievanceRequest rejects a new grievance.
type RejectGrievanceRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// UpdateStatusRequest moves an assigned grievance to another status. Reason
// is mandatory when the target is rejected.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

// EscalateGrievanceRequest bumps a grievance to the next authority tier.
type EscalateGrievanceRequest struct {
	AssigneeID *string `json:"assigned_to"`
}

// ReassignGrievanceRequest moves a grievance to different field staff.
type ReassignGrievanceRequest struct {
	AssigneeID string `json:"assigned_to" validate:"required"`
}

// FeedbackRequest carries the citizen rating for a resolved grievance.
type FeedbackRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"feedback_text" validate:"max=2000"`
}

// GrievanceQuery mirrors supported listing filters.
type GrievanceQuery struct {
	Status   string
	Priority string
	AreaID   string
	Page     int
	PageSize int
}

// RejectionReasonResponse exposes why a grievance was rejected.
type RejectionReasonResponse struct {
	GrievanceID string `json:"grievance_id"`
	Reason      string `json:"rejection_reason"`
}

// SweepResult summarises one SLA auto-close sweep.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Closed  int `json:"closed"`
	Failed  int `json:"failed"`
}

// ReportExportQuery selects grievances for a downloadable report.
type ReportExportQuery struct {
	Period    string
	Format    string
	CitizenID string
	AreaID    string
}

// CommentRequest adds a note to a grievance thread.
type CommentRequest struct {
	Text string `json:"comment_text" validate:"required,max=2000"`
}
