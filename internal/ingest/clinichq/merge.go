package clinichq

import "github.com/feralops/tnr-backend/internal/ingest/tabular"

// Visit is one reconciled appointment: the animal and owner attribute
// rows that landed on its key plus every service line charged to it.
// Immutable once merge completes.
type Visit struct {
	Key          VisitKey
	AnimalRow    tabular.Row
	OwnerRow     tabular.Row
	ServiceRows  []tabular.Row
	ServiceItems []string
}

// CatAggregate groups all visits sharing a microchip. AnimalRow is the
// most-recently-merged animal row across the cat's visits and feeds
// the cat-identity upsert.
type CatAggregate struct {
	Microchip string
	Visits    []*Visit
	AnimalRow tabular.Row
}

// mergeResult is the reconciliation output: aggregates in first-seen
// microchip order, plus the totals the stats report. Drops counts rows
// excluded for lacking a usable visit key, by file and reason.
type mergeResult struct {
	Cats            []*CatAggregate
	UniqueVisits    int
	ServiceItemRows int
	Drops           map[string]int
}

// mergeVisits reconciles the three normalized row sets. The three
// files share no primary key beyond (microchip, date), so each row is
// keyed independently and attached to its visit. Within one file a
// duplicate key overwrites the earlier attribute row: file order is
// the only ordering signal available, and later export lines are
// assumed to supersede earlier ones for the same visit. No temporal
// inference is attempted beyond that.
func mergeVisits(animalRows, ownerRows, serviceRows []tabular.Row) *mergeResult {
	visits := make(map[string]*Visit)
	var visitOrder []string
	drops := make(map[string]int)

	visitFor := func(key VisitKey) *Visit {
		v, ok := visits[key.String()]
		if !ok {
			v = &Visit{Key: key}
			visits[key.String()] = v
			visitOrder = append(visitOrder, key.String())
		}
		return v
	}
	drop := func(file string, row tabular.Row) {
		reason := "missing_visit_date"
		if extractMicrochip(row) == "" {
			reason = "missing_microchip"
		}
		drops[file+"/"+reason]++
	}

	for _, row := range animalRows {
		key, ok := extractVisitKey(row)
		if !ok {
			drop("animal", row)
			continue
		}
		visitFor(key).AnimalRow = row
	}
	for _, row := range ownerRows {
		key, ok := extractVisitKey(row)
		if !ok {
			drop("owner", row)
			continue
		}
		visitFor(key).OwnerRow = row
	}

	serviceItemRows := 0
	for _, row := range serviceRows {
		key, ok := extractVisitKey(row)
		if !ok {
			drop("service", row)
			continue
		}
		v := visitFor(key)
		v.ServiceRows = append(v.ServiceRows, row)
		serviceItemRows++
		if label := extractServiceLabel(row); label != "" {
			v.ServiceItems = append(v.ServiceItems, label)
		}
	}

	cats := make(map[string]*CatAggregate)
	var catOrder []string
	for _, keyStr := range visitOrder {
		v := visits[keyStr]
		agg, ok := cats[v.Key.Microchip]
		if !ok {
			agg = &CatAggregate{Microchip: v.Key.Microchip}
			cats[v.Key.Microchip] = agg
			catOrder = append(catOrder, v.Key.Microchip)
		}
		agg.Visits = append(agg.Visits, v)
		if v.AnimalRow != nil {
			agg.AnimalRow = v.AnimalRow
		}
	}

	res := &mergeResult{
		UniqueVisits:    len(visits),
		ServiceItemRows: serviceItemRows,
		Drops:           drops,
	}
	for _, chip := range catOrder {
		res.Cats = append(res.Cats, cats[chip])
	}
	return res
}
