package transport

import (
	"time"
)

// Enum values
type TreatmentType string

const (
	TreatmentFlexivel    TreatmentType = "Flexível"
	TreatmentPPR         TreatmentType = "PPR"
	TreatmentProteseT    TreatmentType = "Prótese Total"
	TreatmentImplante    TreatmentType = "Implante"
	TreatmentLimpeza     TreatmentType = "Limpeza"
	TreatmentClareamento TreatmentType = "Clareamento"
	TreatmentRestauracao TreatmentType = "Restauração"
	TreatmentOutro       TreatmentType = "Outro"
)

type LeadStatus string

const (
	StatusAConfirmar   LeadStatus = "A Confirmar"
	StatusAgendado     LeadStatus = "Agendado"
	StatusCompareceu   LeadStatus = "Compareceu"
	StatusFechou       LeadStatus = "Fechou"
	StatusSemInteresse LeadStatus = "Sem Interesse"
)

// Request DTOs
type CreateLeadRequest struct {
	PatientName     string        `json:"patientName" validate:"required,min=1,max=255"`
	Phone           string        `json:"phone" validate:"required,min=1,max=20"`
	TreatmentType   TreatmentType `json:"treatmentType" validate:"required,oneof=Flexível PPR 'Prótese Total' Implante Limpeza Clareamento Restauração Outro"`
	TreatmentValue  int64         `json:"treatmentValue" validate:"required,gt=0"`
	ContactDate     time.Time     `json:"contactDate" validate:"required"`
	AppointmentDate *time.Time    `json:"appointmentDate,omitempty"`
	Attended        *bool         `json:"attended,omitempty"`
	TreatmentClosed *bool         `json:"treatmentClosed,omitempty"`
	Status          *LeadStatus   `json:"status,omitempty" validate:"omitempty,oneof='A Confirmar' Agendado Compareceu Fechou 'Sem Interesse'"`
	Observations    *string       `json:"observations,omitempty"`
	Origin          *string       `json:"origin,omitempty" validate:"omitempty,max=100"`
}

type UpdateLeadRequest struct {
	PatientName     *string        `json:"patientName,omitempty" validate:"omitempty,min=1,max=255"`
	Phone           *string        `json:"phone,omitempty" validate:"omitempty,min=1,max=20"`
	TreatmentType   *TreatmentType `json:"treatmentType,omitempty" validate:"omitempty,oneof=Flexível PPR 'Prótese Total' Implante Limpeza Clareamento Restauração Outro"`
	TreatmentValue  *int64         `json:"treatmentValue,omitempty" validate:"omitempty,gt=0"`
	ContactDate     *time.Time     `json:"contactDate,omitempty"`
	AppointmentDate *time.Time     `json:"appointmentDate,omitempty"`
	Attended        *bool          `json:"attended,omitempty"`
	TreatmentClosed *bool          `json:"treatmentClosed,omitempty"`
	Status          *LeadStatus    `json:"status,omitempty" validate:"omitempty,oneof='A Confirmar' Agendado Compareceu Fechou 'Sem Interesse'"`
	Observations    *string        `json:"observations,omitempty"`
	Origin          *string        `json:"origin,omitempty" validate:"omitempty,max=100"`
}

type UpdateLeadStatusRequest struct {
	Status LeadStatus `json:"status" validate:"required,oneof='A Confirmar' Agendado Compareceu Fechou 'Sem Interesse'"`
}

type MarkAttendedRequest struct {
	Attended *bool `json:"attended" validate:"required"`
}

type MarkTreatmentClosedRequest struct {
	Closed *bool `json:"closed" validate:"required"`
}

// Response DTOs
type LeadResponse struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"userId"`
	PatientName     string     `json:"patientName"`
	Phone           string     `json:"phone"`
	TreatmentType   string     `json:"treatmentType"`
	TreatmentValue  int64      `json:"treatmentValue"`
	ContactDate     time.Time  `json:"contactDate"`
	AppointmentDate *time.Time `json:"appointmentDate,omitempty"`
	Attended        bool       `json:"attended"`
	TreatmentClosed bool       `json:"treatmentClosed"`
	Status          string     `json:"status"`
	Observations    *string    `json:"observations,omitempty"`
	Origin          *string    `json:"origin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Leads  []LeadResponse `json:"leads"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
