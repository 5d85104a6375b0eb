package resolver

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category is the owner-name classification returned by the platform.
type Category string

const (
	CategoryIndividual   Category = "individual"
	CategoryOrganization Category = "organization"
	CategorySiteName     Category = "site_name"
	CategoryAddress      Category = "address"
	CategoryGarbage      Category = "garbage"
	CategoryUnknown      Category = "unknown"
)

// Decision is the person-resolution outcome label. review_pending and
// rejected both mean "no confirmed person id"; callers keep the label
// for later human review.
type Decision string

const (
	DecisionAutoMatch     Decision = "auto_match"
	DecisionReviewPending Decision = "review_pending"
	DecisionNewEntity     Decision = "new_entity"
	DecisionRejected      Decision = "rejected"
)

type PersonInput struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Address      string
	SourceSystem string
}

type PersonResolution struct {
	PersonID *uuid.UUID
	Decision Decision
	IsNew    bool
}

type PlaceInput struct {
	Address      string
	SourceSystem string
	Lat          *float64
	Lng          *float64
}

type PlaceResolution struct {
	PlaceID *uuid.UUID
	IsNew   bool
}

type LinkInput struct {
	PersonID     uuid.UUID
	PlaceID      uuid.UUID
	Role         string
	EvidenceType string
	SourceSystem string
	Confidence   string
}

type CatInput struct {
	Microchip     string
	Name          string
	Sex           string
	Breed         string
	AlteredStatus string
	Color         string
	SourceSystem  string
}

// CatResolution reports the canonical cat plus its creation timestamp;
// callers decide "newly created" by comparing CreatedAt against now.
type CatResolution struct {
	CatID     *uuid.UUID
	CreatedAt time.Time
}

// Service is the identity-resolution capability the platform provides.
// Matching and dedup scoring live entirely on the other side of this
// interface; this service only consumes outcomes. LinkPersonPlace is
// idempotent. The Resolve* calls may create entities and bump match
// counters, so they are not safe to replay casually.
type Service interface {
	ClassifyOwnerName(ctx context.Context, name string) (Category, error)
	IsPersonWorthy(ctx context.Context, first, last, email, phone string) (bool, error)
	ResolvePerson(ctx context.Context, in PersonInput) (PersonResolution, error)
	ResolvePlace(ctx context.Context, in PlaceInput) (PlaceResolution, error)
	LinkPersonPlace(ctx context.Context, in LinkInput) error
	ResolveCatByMicrochip(ctx context.Context, in CatInput) (CatResolution, error)
}
