// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"dentalcrm_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created.
type LeadCreated struct {
	BaseEvent
	LeadID      int64  `json:"leadId"`
	UserID      int64  `json:"userId"`
	PatientName string `json:"patientName"`
	Status      string `json:"status"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published when a lead's status moves, whether through
// updateStatus or one of the flag endpoints forcing a status.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    int64  `json:"leadId"`
	UserID    int64  `json:"userId"`
	NewStatus string `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// LeadDeleted is published after a lead is hard-deleted.
type LeadDeleted struct {
	BaseEvent
	LeadID int64 `json:"leadId"`
	UserID int64 `json:"userId"`
}

func (e LeadDeleted) EventName() string { return "leads.lead.deleted" }

// AppointmentScheduled is published when a create or update sets a lead's
// appointment date. The notification module subscribes to materialize a
// day-before reminder.
type AppointmentScheduled struct {
	BaseEvent
	LeadID          int64     `json:"leadId"`
	UserID          int64     `json:"userId"`
	PatientName     string    `json:"patientName"`
	AppointmentDate time.Time `json:"appointmentDate"`
}

func (e AppointmentScheduled) EventName() string { return "leads.appointment.scheduled" }
