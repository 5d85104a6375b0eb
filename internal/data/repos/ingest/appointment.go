package ingest

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/feralops/tnr-backend/internal/domain/ingest"
	"github.com/feralops/tnr-backend/internal/platform/dbctx"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

type AppointmentRepo interface {
	// Upsert writes the appointment keyed by (source_system,
	// source_pk). On conflict each attribute column fills only if the
	// stored value is empty: a populated field is never overwritten
	// and never nulled, while row_hash, payload and the seen
	// timestamps always advance. Reports the row id and whether the
	// row was newly inserted.
	Upsert(dbc dbctx.Context, appt *types.Appointment) (uuid.UUID, bool, error)
	SetResolution(dbc dbctx.Context, id uuid.UUID, status string, personID *uuid.UUID, notes string) error
	GetBySource(dbc dbctx.Context, sourceSystem, sourcePK string) (*types.Appointment, error)
}

type appointmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAppointmentRepo(db *gorm.DB, baseLog *logger.Logger) AppointmentRepo {
	return &appointmentRepo{db: db, log: baseLog.With("repo", "AppointmentRepo")}
}

const upsertAppointmentSQL = `
INSERT INTO appointment (
    source_system, source_pk, visit_date, date_confident, microchip,
    appt_number, ownership, animal_name,
    owner_first_name, owner_last_name, owner_email,
    owner_phone, owner_address, service_summary,
    row_hash, payload, first_seen_at, last_seen_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, now(), now())
ON CONFLICT (source_system, source_pk) DO UPDATE SET
    appt_number      = COALESCE(NULLIF(appointment.appt_number, ''), EXCLUDED.appt_number),
    ownership        = COALESCE(NULLIF(appointment.ownership, ''), EXCLUDED.ownership),
    animal_name      = COALESCE(NULLIF(appointment.animal_name, ''), EXCLUDED.animal_name),
    owner_first_name = COALESCE(NULLIF(appointment.owner_first_name, ''), EXCLUDED.owner_first_name),
    owner_last_name  = COALESCE(NULLIF(appointment.owner_last_name, ''), EXCLUDED.owner_last_name),
    owner_email      = COALESCE(NULLIF(appointment.owner_email, ''), EXCLUDED.owner_email),
    owner_phone      = COALESCE(NULLIF(appointment.owner_phone, ''), EXCLUDED.owner_phone),
    owner_address    = COALESCE(NULLIF(appointment.owner_address, ''), EXCLUDED.owner_address),
    service_summary  = COALESCE(NULLIF(appointment.service_summary, ''), EXCLUDED.service_summary),
    row_hash         = EXCLUDED.row_hash,
    payload          = EXCLUDED.payload,
    last_seen_at     = now(),
    updated_at       = now()
RETURNING id, (xmax = 0) AS inserted
`

func (r *appointmentRepo) Upsert(dbc dbctx.Context, appt *types.Appointment) (uuid.UUID, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var row struct {
		ID       uuid.UUID `gorm:"column:id"`
		Inserted bool      `gorm:"column:inserted"`
	}
	err := transaction.WithContext(dbc.Ctx).
		Raw(upsertAppointmentSQL,
			appt.SourceSystem, appt.SourcePK, appt.VisitDate, appt.DateConfident, appt.Microchip,
			appt.ApptNumber, appt.Ownership, appt.AnimalName,
			appt.OwnerFirstName, appt.OwnerLastName, appt.OwnerEmail,
			appt.OwnerPhone, appt.OwnerAddress, appt.ServiceSummary,
			appt.RowHash, appt.Payload,
		).
		Scan(&row).Error
	if err != nil {
		return uuid.Nil, false, mapError("upsert appointment", err)
	}
	return row.ID, row.Inserted, nil
}

func (r *appointmentRepo) SetResolution(dbc dbctx.Context, id uuid.UUID, status string, personID *uuid.UUID, notes string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"resolution_status": status,
			"person_id":         personID,
			"resolution_notes":  notes,
			"updated_at":        gorm.Expr("now()"),
		}).Error
	if err != nil {
		return mapError("set appointment resolution", err)
	}
	return nil
}

func (r *appointmentRepo) GetBySource(dbc dbctx.Context, sourceSystem, sourcePK string) (*types.Appointment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var appt types.Appointment
	err := transaction.WithContext(dbc.Ctx).
		Where("source_system = ? AND source_pk = ?", sourceSystem, sourcePK).
		First(&appt).Error
	if err != nil {
		return nil, mapError("get appointment", err)
	}
	return &appt, nil
}
