package clinichq

import (
	"context"
	"fmt"

	"github.com/feralops/tnr-backend/internal/resolver"
)

// Classification is the person-vs-non-person verdict for one owner
// fingerprint. Reason is set only when the gate rejects.
type Classification struct {
	Type           resolver.Category `json:"type"`
	ShouldBePerson bool              `json:"shouldBePerson"`
	Reason         string            `json:"reason,omitempty"`
}

const reasonNoContactInfo = "no contact info"

var rejectionReasons = map[resolver.Category]string{
	resolver.CategoryOrganization: "name resembles an organization",
	resolver.CategorySiteName:     "name resembles a site or location label",
	resolver.CategoryAddress:      "name resembles a street address",
	resolver.CategoryGarbage:      "name resembles garbage or noise",
}

// classifyOwner runs the gate for one fingerprint. An empty name pair
// short-circuits to garbage without touching the capability. Callers
// cache the result per fingerprint; this must not be invoked twice for
// the same fingerprint within an aggregate.
func classifyOwner(ctx context.Context, res resolver.Service, fp OwnerFingerprint) (Classification, error) {
	if !fp.HasName() {
		return Classification{
			Type:           resolver.CategoryGarbage,
			ShouldBePerson: false,
			Reason:         reasonNoContactInfo,
		}, nil
	}

	category, err := res.ClassifyOwnerName(ctx, fp.FullName())
	if err != nil {
		return Classification{}, fmt.Errorf("classify owner %q: %w", fp.FullName(), err)
	}
	worthy, err := res.IsPersonWorthy(ctx, fp.First, fp.Last, fp.Email, fp.Phone)
	if err != nil {
		return Classification{}, fmt.Errorf("person worthiness for %q: %w", fp.FullName(), err)
	}

	cls := Classification{Type: category}
	if reason, rejected := rejectionReasons[category]; rejected {
		cls.Reason = reason
		return cls, nil
	}
	if !worthy {
		cls.Reason = reasonNoContactInfo
		return cls, nil
	}
	cls.ShouldBePerson = true
	return cls, nil
}
