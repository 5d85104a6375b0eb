package clinichq

import (
	"strings"

	"github.com/feralops/tnr-backend/internal/ingest/tabular"
	"github.com/feralops/tnr-backend/internal/normalization"
)

// VisitKey identifies one real-world appointment: which animal, on
// which day. VisitDate is ISO when a date candidate parsed; otherwise
// the raw string is kept and DateConfident is false.
type VisitKey struct {
	Microchip     string `json:"microchip"`
	VisitDate     string `json:"visitDate"`
	DateConfident bool   `json:"dateConfident"`
}

func (k VisitKey) String() string {
	return k.Microchip + ":" + k.VisitDate
}

// OwnerFingerprint is the normalized owner identity of one visit. It
// keys the per-aggregate resolution cache and is never persisted.
type OwnerFingerprint struct {
	Email string
	Phone string
	First string
	Last  string
}

// Key folds the fingerprint into a cache key.
func (f OwnerFingerprint) Key() string {
	return strings.Join([]string{
		f.Email,
		f.Phone,
		normalization.FoldKey(f.First),
		normalization.FoldKey(f.Last),
	}, "|")
}

// HasName reports whether either name part is present.
func (f OwnerFingerprint) HasName() bool {
	return f.First != "" || f.Last != ""
}

// FullName joins the name parts for classification.
func (f OwnerFingerprint) FullName() string {
	return normalization.CollapseWhitespace(f.First + " " + f.Last)
}

// extractMicrochip scans the microchip column variants and returns the
// first token that normalizes to a valid chip (>= 9 digits).
func extractMicrochip(row tabular.Row) string {
	for _, col := range candidates(fieldMicrochip) {
		if chip := normalization.Microchip(row.Get(col)); chip != "" {
			return chip
		}
	}
	return ""
}

// extractVisitDate scans the date column variants. The first candidate
// that parses wins, rendered ISO. When nothing parses but a candidate
// is non-empty, the raw string is kept low-confidence so the visit can
// still be keyed and audited.
func extractVisitDate(row tabular.Row) (string, bool) {
	rawFallback := ""
	for _, col := range candidates(fieldVisitDate) {
		v := row.Get(col)
		if v == "" {
			continue
		}
		if iso, ok := normalization.Date(v); ok {
			return iso, true
		}
		if rawFallback == "" {
			rawFallback = v
		}
	}
	return rawFallback, false
}

// extractVisitKey derives the composite key. Rows lacking a microchip
// or any date candidate are excluded from visit merge; the caller
// counts them in file totals only.
func extractVisitKey(row tabular.Row) (VisitKey, bool) {
	chip := extractMicrochip(row)
	if chip == "" {
		return VisitKey{}, false
	}
	date, confident := extractVisitDate(row)
	if date == "" {
		return VisitKey{}, false
	}
	return VisitKey{Microchip: chip, VisitDate: date, DateConfident: confident}, true
}

// extractOwner builds the normalized owner fingerprint from a row.
func extractOwner(row tabular.Row) OwnerFingerprint {
	return OwnerFingerprint{
		Email: normalization.Email(row.First(candidates(fieldOwnerEmail)...)),
		Phone: normalization.Phone(row.First(candidates(fieldOwnerPhone)...)),
		First: normalization.Name(row.First(candidates(fieldOwnerFirstName)...)),
		Last:  normalization.Name(row.First(candidates(fieldOwnerLastName)...)),
	}
}

func extractOwnerAddress(row tabular.Row) string {
	return normalization.CollapseWhitespace(row.First(candidates(fieldOwnerAddress)...))
}

func extractAnimalName(row tabular.Row) string {
	return normalization.CollapseWhitespace(row.First(candidates(fieldAnimalName)...))
}

// extractApptNumber pulls the clinic's appointment number, kept as text
// so values like "14-1414" survive Excel round-trips.
func extractApptNumber(row tabular.Row) string {
	return normalization.Number(row.First(candidates(fieldApptNumber)...))
}

// extractOwnership pulls the ownership/client-type label ("Owned",
// "Stray", "Feral") verbatim apart from whitespace.
func extractOwnership(row tabular.Row) string {
	return normalization.CollapseWhitespace(row.First(candidates(fieldOwnership)...))
}

// extractServiceLabel pulls a human-readable service item label from a
// service-line row, "" when the row carries none.
func extractServiceLabel(row tabular.Row) string {
	return normalization.CollapseWhitespace(row.First(candidates(fieldServiceItem)...))
}

// animalAttributes are the cat fields forwarded to identity
// resolution, taken from an aggregate's representative animal row.
type animalAttributes struct {
	Name          string
	Sex           string
	Breed         string
	AlteredStatus string
	Color         string
}

func extractAnimalAttributes(row tabular.Row) animalAttributes {
	if row == nil {
		return animalAttributes{}
	}
	color := row.First(candidates(fieldPrimaryColor)...)
	if secondary := row.First(candidates(fieldSecondaryColor)...); secondary != "" && !strings.EqualFold(secondary, "none") {
		if color != "" {
			color += " / " + secondary
		} else {
			color = secondary
		}
	}
	return animalAttributes{
		Name:          extractAnimalName(row),
		Sex:           row.First(candidates(fieldSex)...),
		Breed:         row.First(candidates(fieldBreed)...),
		AlteredStatus: row.First(candidates(fieldAlteredStatus)...),
		Color:         color,
	}
}
