package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feralops/tnr-backend/internal/platform/logger"
)

// pgResolver calls the platform's stored procedures in the trapper
// schema over the service's own connection. The functions are
// provisioned by the platform; this client never creates them.
type pgResolver struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresResolver(db *gorm.DB, baseLog *logger.Logger) Service {
	return &pgResolver{db: db, log: baseLog.With("service", "PostgresResolver")}
}

func (r *pgResolver) ClassifyOwnerName(ctx context.Context, name string) (Category, error) {
	var category string
	err := r.db.WithContext(ctx).
		Raw(`SELECT trapper.classify_owner_name(?)`, name).
		Scan(&category).Error
	if err != nil {
		return CategoryUnknown, fmt.Errorf("classify owner name: %w", err)
	}
	switch c := Category(category); c {
	case CategoryIndividual, CategoryOrganization, CategorySiteName, CategoryAddress, CategoryGarbage:
		return c, nil
	}
	return CategoryUnknown, nil
}

func (r *pgResolver) IsPersonWorthy(ctx context.Context, first, last, email, phone string) (bool, error) {
	var worthy bool
	err := r.db.WithContext(ctx).
		Raw(`SELECT trapper.is_person_worthy(?, ?, ?, ?)`, first, last, email, phone).
		Scan(&worthy).Error
	if err != nil {
		return false, fmt.Errorf("person worthiness check: %w", err)
	}
	return worthy, nil
}

func (r *pgResolver) ResolvePerson(ctx context.Context, in PersonInput) (PersonResolution, error) {
	var row struct {
		PersonID *uuid.UUID `gorm:"column:person_id"`
		Decision string     `gorm:"column:decision"`
		IsNew    bool       `gorm:"column:is_new"`
	}
	err := r.db.WithContext(ctx).
		Raw(
			`SELECT person_id, decision, is_new
			   FROM trapper.resolve_person(?, ?, ?, ?, ?, ?)`,
			in.FirstName, in.LastName, in.Email, in.Phone, in.Address, in.SourceSystem,
		).
		Scan(&row).Error
	if err != nil {
		return PersonResolution{}, fmt.Errorf("resolve person: %w", err)
	}
	res := PersonResolution{PersonID: row.PersonID, Decision: Decision(row.Decision), IsNew: row.IsNew}
	if res.Decision == "" {
		res.Decision = DecisionRejected
	}
	r.log.Debug("Resolved person", "decision", res.Decision, "is_new", res.IsNew)
	return res, nil
}

func (r *pgResolver) ResolvePlace(ctx context.Context, in PlaceInput) (PlaceResolution, error) {
	var row struct {
		PlaceID *uuid.UUID `gorm:"column:place_id"`
		IsNew   bool       `gorm:"column:is_new"`
	}
	err := r.db.WithContext(ctx).
		Raw(
			`SELECT place_id, is_new FROM trapper.resolve_place(?, ?, ?, ?)`,
			in.Address, in.SourceSystem, in.Lat, in.Lng,
		).
		Scan(&row).Error
	if err != nil {
		return PlaceResolution{}, fmt.Errorf("resolve place: %w", err)
	}
	return PlaceResolution{PlaceID: row.PlaceID, IsNew: row.IsNew}, nil
}

func (r *pgResolver) LinkPersonPlace(ctx context.Context, in LinkInput) error {
	err := r.db.WithContext(ctx).
		Exec(
			`SELECT trapper.link_person_place(?, ?, ?, ?, ?, ?)`,
			in.PersonID, in.PlaceID, in.Role, in.EvidenceType, in.SourceSystem, in.Confidence,
		).Error
	if err != nil {
		return fmt.Errorf("link person to place: %w", err)
	}
	return nil
}

func (r *pgResolver) ResolveCatByMicrochip(ctx context.Context, in CatInput) (CatResolution, error) {
	var row struct {
		CatID     *uuid.UUID `gorm:"column:cat_id"`
		CreatedAt time.Time  `gorm:"column:created_at"`
	}
	err := r.db.WithContext(ctx).
		Raw(
			`SELECT cat_id, created_at
			   FROM trapper.resolve_cat_by_microchip(?, ?, ?, ?, ?, ?, ?)`,
			in.Microchip, in.Name, in.Sex, in.Breed, in.AlteredStatus, in.Color, in.SourceSystem,
		).
		Scan(&row).Error
	if err != nil {
		return CatResolution{}, fmt.Errorf("resolve cat %s: %w", in.Microchip, err)
	}
	return CatResolution{CatID: row.CatID, CreatedAt: row.CreatedAt}, nil
}
