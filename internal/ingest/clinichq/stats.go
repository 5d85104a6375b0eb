package clinichq

// ProcessingStats accumulates one run's counts. Mutated only by the
// orchestrator goroutine; events carry value copies.
type ProcessingStats struct {
	AnimalRows      int `json:"animalRows"`
	OwnerRows       int `json:"ownerRows"`
	ServiceLineRows int `json:"serviceLineRows"`

	UniqueVisits      int `json:"uniqueVisits"`
	TotalServiceItems int `json:"totalServiceItems"`

	PersonsCreated int `json:"personsCreated"`
	PersonsMatched int `json:"personsMatched"`
	PseudoProfiles int `json:"pseudoProfiles"`
	CatsCreated    int `json:"catsCreated"`
	CatsMatched    int `json:"catsMatched"`
	PlacesCreated  int `json:"placesCreated"`
	PlacesMatched  int `json:"placesMatched"`

	RawInserted int `json:"rawInserted"`
	RawSkipped  int `json:"rawSkipped"`

	Errors    int    `json:"errors"`
	LastError string `json:"lastError,omitempty"`
}

// Snapshot returns a copy safe to hand to another goroutine.
func (s *ProcessingStats) Snapshot() ProcessingStats {
	return *s
}
