package models_test

import (
	"testing"

	"bitbucket.org/gymfocus/maintenance_backend/models"
)

func TestDefaultCatalogCrossProduct(t *testing.T) {
	zones := models.DefaultCatalogZones()
	if len(zones) == 0 {
		t.Fatal("default catalog is empty")
	}

	entries := models.CrossProductFromZones(zones)

	wantTotal := 0
	for _, z := range zones {
		if len(z.Concepts) == 0 {
			t.Errorf("zone %q has no concepts", z.Name)
		}
		wantTotal += len(z.Concepts)
		for _, c := range z.Concepts {
			if c.ZoneId != z.ID {
				t.Errorf("concept %q carries zone_id %d, expected %d", c.Name, c.ZoneId, z.ID)
			}
		}
	}
	if len(entries) != wantTotal {
		t.Fatalf("cross product has %d entries, expected %d", len(entries), wantTotal)
	}

	// Every (zone, concept) cell appears exactly once; the seeded item set
	// relies on this being a set, not a bag.
	seen := map[[2]int]bool{}
	for _, e := range entries {
		key := [2]int{e.ZoneId, e.ConceptId}
		if seen[key] {
			t.Fatalf("duplicate cell zone=%d concept=%d", e.ZoneId, e.ConceptId)
		}
		seen[key] = true
		if e.ZoneName == "" || e.ConceptName == "" {
			t.Fatalf("entry %+v is missing names", e)
		}
	}
}
