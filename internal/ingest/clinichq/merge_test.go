package clinichq

import (
	"testing"

	"github.com/feralops/tnr-backend/internal/ingest/tabular"
)

func animalRow(chip, date, name string) tabular.Row {
	return tabular.Row{"Microchip Number": chip, "Date": date, "Animal Name": name}
}

func ownerRow(chip, date, first string) tabular.Row {
	return tabular.Row{"Microchip Number": chip, "Date": date, "Owner First Name": first}
}

func serviceRow(chip, date, item string) tabular.Row {
	return tabular.Row{"Microchip Number": chip, "Date": date, "Service": item}
}

func TestMergeVisitsJoinsFilesOnVisitKey(t *testing.T) {
	const chip = "981020012345678"
	res := mergeVisits(
		[]tabular.Row{animalRow(chip, "2024-03-01", "Whiskers")},
		[]tabular.Row{ownerRow(chip, "2024-03-01", "Jane")},
		[]tabular.Row{
			serviceRow(chip, "2024-03-01", "Spay"),
			serviceRow(chip, "2024-03-01", "Rabies Vaccine"),
		},
	)

	if res.UniqueVisits != 1 {
		t.Fatalf("uniqueVisits: %d", res.UniqueVisits)
	}
	if res.ServiceItemRows != 2 {
		t.Fatalf("serviceItemRows: %d", res.ServiceItemRows)
	}
	if len(res.Cats) != 1 {
		t.Fatalf("cats: %d", len(res.Cats))
	}
	cat := res.Cats[0]
	if cat.Microchip != chip || len(cat.Visits) != 1 {
		t.Fatalf("aggregate: %+v", cat)
	}
	v := cat.Visits[0]
	if v.AnimalRow == nil || v.OwnerRow == nil {
		t.Fatalf("visit missing attribute rows: %+v", v)
	}
	if len(v.ServiceRows) != 2 || len(v.ServiceItems) != 2 {
		t.Fatalf("service rows: %d items: %d", len(v.ServiceRows), len(v.ServiceItems))
	}
	if v.ServiceItems[0] != "Spay" || v.ServiceItems[1] != "Rabies Vaccine" {
		t.Fatalf("service items out of order: %v", v.ServiceItems)
	}
}

func TestMergeVisitsSameDayIsOneVisit(t *testing.T) {
	const chip = "981020012345678"
	// Date renderings that parse to the same day key to the same visit.
	res := mergeVisits(
		[]tabular.Row{animalRow(chip, "3/1/2024", "Whiskers")},
		[]tabular.Row{ownerRow(chip, "2024-03-01", "Jane")},
		nil,
	)
	if res.UniqueVisits != 1 {
		t.Fatalf("uniqueVisits: %d", res.UniqueVisits)
	}
	v := res.Cats[0].Visits[0]
	if v.AnimalRow == nil || v.OwnerRow == nil {
		t.Fatalf("rows did not land on the same visit: %+v", v)
	}
}

func TestMergeVisitsDuplicateAttributeRowLastWins(t *testing.T) {
	const chip = "981020012345678"
	res := mergeVisits(
		[]tabular.Row{
			animalRow(chip, "2024-03-01", "Whiskers"),
			animalRow(chip, "2024-03-01", "Whiskers II"),
		},
		nil,
		nil,
	)
	if res.UniqueVisits != 1 {
		t.Fatalf("uniqueVisits: %d", res.UniqueVisits)
	}
	got := res.Cats[0].Visits[0].AnimalRow.Get("Animal Name")
	if got != "Whiskers II" {
		t.Fatalf("later row should supersede: %q", got)
	}
}

func TestMergeVisitsAggregatesInFirstSeenOrder(t *testing.T) {
	chipA := "981020000000001"
	chipB := "981020000000002"
	res := mergeVisits(
		[]tabular.Row{
			animalRow(chipB, "2024-03-01", "Boots"),
			animalRow(chipA, "2024-03-01", "Whiskers"),
			animalRow(chipB, "2024-04-01", "Boots"),
		},
		nil,
		nil,
	)
	if len(res.Cats) != 2 {
		t.Fatalf("cats: %d", len(res.Cats))
	}
	if res.Cats[0].Microchip != chipB || res.Cats[1].Microchip != chipA {
		t.Fatalf("aggregate order: %s, %s", res.Cats[0].Microchip, res.Cats[1].Microchip)
	}
	if len(res.Cats[0].Visits) != 2 {
		t.Fatalf("visits for first cat: %d", len(res.Cats[0].Visits))
	}
}

func TestMergeVisitsAggregateAnimalRowIsLatestMerged(t *testing.T) {
	const chip = "981020012345678"
	res := mergeVisits(
		[]tabular.Row{
			animalRow(chip, "2024-03-01", "Whiskers"),
			animalRow(chip, "2024-04-01", "Whiskers Renamed"),
		},
		// An owner-only visit must not clear the aggregate's animal row.
		[]tabular.Row{ownerRow(chip, "2024-05-01", "Jane")},
		nil,
	)
	agg := res.Cats[0]
	if len(agg.Visits) != 3 {
		t.Fatalf("visits: %d", len(agg.Visits))
	}
	if agg.AnimalRow == nil || agg.AnimalRow.Get("Animal Name") != "Whiskers Renamed" {
		t.Fatalf("aggregate animal row: %+v", agg.AnimalRow)
	}
}

func TestMergeVisitsCountsDroppedRowsByFileAndReason(t *testing.T) {
	const chip = "981020012345678"
	res := mergeVisits(
		[]tabular.Row{
			animalRow(chip, "2024-03-01", "Whiskers"),
			animalRow("", "2024-03-01", "NoChip"),
			animalRow("123", "2024-03-01", "ShortChip"),
		},
		[]tabular.Row{
			ownerRow(chip, "", "Jane"),
		},
		[]tabular.Row{
			serviceRow("", "2024-03-01", "Spay"),
		},
	)

	if res.UniqueVisits != 1 {
		t.Fatalf("uniqueVisits: %d", res.UniqueVisits)
	}
	if got := res.Drops["animal/missing_microchip"]; got != 2 {
		t.Fatalf("animal drops: %d (all: %v)", got, res.Drops)
	}
	if got := res.Drops["owner/missing_visit_date"]; got != 1 {
		t.Fatalf("owner drops: %d (all: %v)", got, res.Drops)
	}
	if got := res.Drops["service/missing_microchip"]; got != 1 {
		t.Fatalf("service drops: %d (all: %v)", got, res.Drops)
	}
	if res.ServiceItemRows != 0 {
		t.Fatalf("dropped service row counted: %d", res.ServiceItemRows)
	}
}

func TestMergeVisitsUnparseableDateStillKeysVisit(t *testing.T) {
	const chip = "981020012345678"
	res := mergeVisits(
		[]tabular.Row{animalRow(chip, "sometime in March", "Whiskers")},
		[]tabular.Row{ownerRow(chip, "sometime in March", "Jane")},
		nil,
	)
	if res.UniqueVisits != 1 {
		t.Fatalf("uniqueVisits: %d", res.UniqueVisits)
	}
	if len(res.Drops) != 0 {
		t.Fatalf("raw-date rows should not drop: %v", res.Drops)
	}
	key := res.Cats[0].Visits[0].Key
	if key.DateConfident {
		t.Fatalf("unparseable date marked confident: %+v", key)
	}
	if key.VisitDate != "sometime in March" {
		t.Fatalf("raw date not kept: %q", key.VisitDate)
	}
}
