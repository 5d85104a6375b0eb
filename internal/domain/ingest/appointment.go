package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Resolution statuses for an appointment's owner.
const (
	ResolutionPending       = "pending"
	ResolutionAutoLinked    = "auto_linked"
	ResolutionPseudoProfile = "pseudo_profile"
)

// SourceSystemClinicHQ tags rows that came from ClinicHQ exports.
const SourceSystemClinicHQ = "clinichq"

// Appointment is the canonical per-visit record. One row per
// (source_system, source_pk); re-ingesting the same visit updates the
// row, never duplicates it. Owner fields merge fill-if-empty: once a
// field is populated it is never overwritten and never nulled.
type Appointment struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceSystem string    `gorm:"column:source_system;not null;uniqueIndex:idx_appointment_source" json:"source_system"`
	SourcePK     string    `gorm:"column:source_pk;not null;uniqueIndex:idx_appointment_source" json:"source_pk"`

	VisitDate     string `gorm:"column:visit_date;not null;index" json:"visit_date"`
	DateConfident bool   `gorm:"column:date_confident;not null;default:true" json:"date_confident"`
	Microchip     string `gorm:"column:microchip;not null;index" json:"microchip"`

	ApptNumber     string `gorm:"column:appt_number" json:"appt_number,omitempty"`
	Ownership      string `gorm:"column:ownership" json:"ownership,omitempty"`
	AnimalName     string `gorm:"column:animal_name" json:"animal_name,omitempty"`
	OwnerFirstName string `gorm:"column:owner_first_name" json:"owner_first_name,omitempty"`
	OwnerLastName  string `gorm:"column:owner_last_name" json:"owner_last_name,omitempty"`
	OwnerEmail     string `gorm:"column:owner_email" json:"owner_email,omitempty"`
	OwnerPhone     string `gorm:"column:owner_phone" json:"owner_phone,omitempty"`
	OwnerAddress   string `gorm:"column:owner_address" json:"owner_address,omitempty"`
	ServiceSummary string `gorm:"column:service_summary" json:"service_summary,omitempty"`

	ResolutionStatus string     `gorm:"column:resolution_status;not null;default:'pending';index" json:"resolution_status"`
	PersonID         *uuid.UUID `gorm:"type:uuid;column:person_id;index" json:"person_id,omitempty"`
	ResolutionNotes  string     `gorm:"column:resolution_notes" json:"resolution_notes,omitempty"`

	RowHash string         `gorm:"column:row_hash" json:"row_hash,omitempty"`
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`

	FirstSeenAt time.Time      `gorm:"column:first_seen_at;not null;default:now()" json:"first_seen_at"`
	LastSeenAt  time.Time      `gorm:"column:last_seen_at;not null;default:now()" json:"last_seen_at"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Appointment) TableName() string { return "appointment" }
