package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusCount is one slice of the tickets-by-status breakdown.
type StatusCount struct {
	Status TicketStatus
	Count  int64
}

// WorkloadItem is one technician's open-ticket count, joined against the
// users table so dashboards can show names without extra lookups.
type WorkloadItem struct {
	AssigneeID *uuid.UUID
	FullName   string
	Email      string
	Count      int64
}

// VolumePoint is one day of ticket inflow and outflow.
type VolumePoint struct {
	Day           time.Time
	CreatedCount  int64
	ResolvedCount int64
}

// DashboardOverview aggregates the figures the realtime dashboard renders
// between pushed events.
type DashboardOverview struct {
	StatusCounts []StatusCount
	Workload     []WorkloadItem
	Volume       []VolumePoint
	MTTRHours    float64
}
