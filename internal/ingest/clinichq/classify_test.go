package clinichq

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/feralops/tnr-backend/internal/resolver"
)

func TestClassifyOwnerEmptyNameShortCircuits(t *testing.T) {
	res := newFakeResolver()

	cls, err := classifyOwner(context.Background(), res, OwnerFingerprint{Phone: "5125550100"})
	if err != nil {
		t.Fatalf("classifyOwner: %v", err)
	}
	if cls.ShouldBePerson {
		t.Fatal("nameless owner classified as person")
	}
	if cls.Type != resolver.CategoryGarbage || cls.Reason != reasonNoContactInfo {
		t.Fatalf("classification: %+v", cls)
	}
	if len(res.classifyCalls) != 0 || res.worthyCalls != 0 {
		t.Fatal("short circuit must not touch the resolver")
	}
}

func TestClassifyOwnerRejectionCategories(t *testing.T) {
	cases := []struct {
		category resolver.Category
		reason   string
	}{
		{resolver.CategoryOrganization, "organization"},
		{resolver.CategorySiteName, "site"},
		{resolver.CategoryAddress, "address"},
		{resolver.CategoryGarbage, "garbage"},
	}
	for _, tc := range cases {
		t.Run(string(tc.category), func(t *testing.T) {
			res := newFakeResolver()
			res.classifyAs["Feral Colony B"] = tc.category

			cls, err := classifyOwner(context.Background(), res, OwnerFingerprint{First: "Feral", Last: "Colony B"})
			if err != nil {
				t.Fatalf("classifyOwner: %v", err)
			}
			if cls.ShouldBePerson {
				t.Fatalf("rejected category %q classified as person", tc.category)
			}
			if cls.Type != tc.category {
				t.Fatalf("type: %q", cls.Type)
			}
			if !strings.Contains(cls.Reason, tc.reason) {
				t.Fatalf("reason for %q: %q", tc.category, cls.Reason)
			}
		})
	}
}

func TestClassifyOwnerIndividualNeedsWorthyContact(t *testing.T) {
	res := newFakeResolver()
	res.unworthy["Jane Doe"] = true

	cls, err := classifyOwner(context.Background(), res, OwnerFingerprint{First: "Jane", Last: "Doe"})
	if err != nil {
		t.Fatalf("classifyOwner: %v", err)
	}
	if cls.ShouldBePerson {
		t.Fatal("unworthy contact classified as person")
	}
	if cls.Type != resolver.CategoryIndividual || cls.Reason != reasonNoContactInfo {
		t.Fatalf("classification: %+v", cls)
	}
}

func TestClassifyOwnerAcceptsWorthyIndividual(t *testing.T) {
	res := newFakeResolver()

	cls, err := classifyOwner(context.Background(), res, OwnerFingerprint{
		First: "Jane",
		Last:  "Doe",
		Email: "jane@example.com",
	})
	if err != nil {
		t.Fatalf("classifyOwner: %v", err)
	}
	if !cls.ShouldBePerson || cls.Reason != "" {
		t.Fatalf("classification: %+v", cls)
	}
	if cls.Type != resolver.CategoryIndividual {
		t.Fatalf("type: %q", cls.Type)
	}
}

type failingClassifier struct {
	resolver.Service
}

func (failingClassifier) ClassifyOwnerName(ctx context.Context, name string) (resolver.Category, error) {
	return resolver.CategoryUnknown, errors.New("capability offline")
}

func TestClassifyOwnerPropagatesResolverError(t *testing.T) {
	_, err := classifyOwner(context.Background(), failingClassifier{}, OwnerFingerprint{First: "Jane", Last: "Doe"})
	if err == nil {
		t.Fatal("expected error from failing capability")
	}
	if !strings.Contains(err.Error(), "Jane Doe") {
		t.Fatalf("error should name the owner: %v", err)
	}
}
