package clinichq

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Logical fields looked up through the variant table.
const (
	fieldMicrochip      = "microchip"
	fieldVisitDate      = "visit_date"
	fieldApptNumber     = "appointment_number"
	fieldAnimalName     = "animal_name"
	fieldOwnerFirstName = "owner_first_name"
	fieldOwnerLastName  = "owner_last_name"
	fieldOwnerEmail     = "owner_email"
	fieldOwnerPhone     = "owner_phone"
	fieldOwnerAddress   = "owner_address"
	fieldOwnership      = "ownership"
	fieldSex            = "sex"
	fieldBreed          = "breed"
	fieldPrimaryColor   = "primary_color"
	fieldSecondaryColor = "secondary_color"
	fieldAlteredStatus  = "altered_status"
	fieldServiceItem    = "service_item"
)

//go:embed columns.yaml
var columnsYAML []byte

var columnVariants map[string][]string

func init() {
	if err := yaml.Unmarshal(columnsYAML, &columnVariants); err != nil {
		panic(fmt.Sprintf("clinichq: bad columns.yaml: %v", err))
	}
}

// candidates returns the ordered column-name variants for a logical
// field. Unknown fields return nil, which scans as "not present".
func candidates(field string) []string {
	return columnVariants[field]
}
