package domain

import "time"

// ComplaintCategory classifies a grievance.
type ComplaintCategory string

const (
	CategoryWaterSupply     ComplaintCategory = "water_supply"
	CategoryElectricity     ComplaintCategory = "electricity"
	CategoryRoad            ComplaintCategory = "road"
	CategorySanitation      ComplaintCategory = "sanitation"
	CategoryStreetLight     ComplaintCategory = "street_light"
	CategoryDrainage        ComplaintCategory = "drainage"
	CategoryWasteManagement ComplaintCategory = "waste_management"
	CategoryOther           ComplaintCategory = "other"
)

func (c ComplaintCategory) Valid() bool {
	switch c {
	case CategoryWaterSupply, CategoryElectricity, CategoryRoad, CategorySanitation,
		CategoryStreetLight, CategoryDrainage, CategoryWasteManagement, CategoryOther:
		return true
	}
	return false
}

// ComplaintPriority orders complaints for staff triage.
type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "low"
	PriorityMedium ComplaintPriority = "medium"
	PriorityHigh   ComplaintPriority = "high"
	PriorityUrgent ComplaintPriority = "urgent"
)

func (p ComplaintPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Label renders the priority for history values, e.g. "High".
func (p ComplaintPriority) Label() string {
	return titleCase(string(p))
}

// ComplaintStatus is the grievance workflow state.
type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "open"
	ComplaintInProgress ComplaintStatus = "in_progress"
	ComplaintResolved   ComplaintStatus = "resolved"
	ComplaintClosed     ComplaintStatus = "closed"
)

func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintOpen, ComplaintInProgress, ComplaintResolved, ComplaintClosed:
		return true
	}
	return false
}

// Label renders the status for history values, e.g. "In Progress".
func (s ComplaintStatus) Label() string {
	return titleCase(string(s))
}

// Complaint is a grievance filed by a citizen. ResolvedAt is set once, on the
// first transition into resolved.
type Complaint struct {
	ID                string
	ComplaintNumber   string
	ComplainantID     string
	Category          ComplaintCategory
	Subject           string
	Description       string
	Location          string
	Priority          ComplaintPriority
	Status            ComplaintStatus
	AssignedToID      *string
	ResolutionRemarks *string
	ResolvedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ComplaintAction tags a history entry.
type ComplaintAction string

const (
	ActionCreated         ComplaintAction = "created"
	ActionAssigned        ComplaintAction = "assigned"
	ActionStatusChanged   ComplaintAction = "status_changed"
	ActionPriorityChanged ComplaintAction = "priority_changed"
	ActionUpdated         ComplaintAction = "updated"
	ActionResolved        ComplaintAction = "resolved"
	ActionClosed          ComplaintAction = "closed"
)

// ComplaintHistory is an append-only audit entry for one observable change.
type ComplaintHistory struct {
	ID          string
	ComplaintID string
	Action      ComplaintAction
	OldValue    *string
	NewValue    *string
	PerformedBy *string
	PerformedAt time.Time
	Notes       *string
}
