package dataset

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/crimson-sun/onoma/internal/encode"
)

func TestNormalizeName(t *testing.T) {
	a := encode.Default()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain ascii", "Gonzalez", "Gonzalez"},
		{"accents stripped", "Gonzáles", "Gonzales"},
		{"umlaut", "Schäfer", "Schafer"},
		{"apostrophe kept", "O'Neal", "O'Neal"},
		{"space kept", "van der Berg", "van der Berg"},
		{"slavic diacritics", "Dvořák", "Dvorak"},
		{"non-latin dropped", "Σωκράτης", ""},
		{"hyphen dropped", "Kovačić-Žic", "KovacicZic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(a, tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDataset_CatalogOrderAndLabels(t *testing.T) {
	ds := New()
	ds.Add("Arabic", "Khoury")
	ds.Add("Chinese", "Li")
	ds.Add("Arabic", "Nahas")
	ds.Add("Czech", "Dvorak")

	want := []string{"Arabic", "Chinese", "Czech"}
	if !reflect.DeepEqual(ds.Catalog(), want) {
		t.Fatalf("Catalog() = %v, want %v", ds.Catalog(), want)
	}

	for i, category := range want {
		label, err := ds.Label(category)
		if err != nil {
			t.Fatalf("Label(%q): %v", category, err)
		}
		if label != i {
			t.Errorf("Label(%q) = %d, want %d", category, label, i)
		}
	}

	if _, err := ds.Label("Klingon"); err == nil {
		t.Fatal("Label on unknown category succeeded, want error")
	}

	if got := ds.Names("Arabic"); !reflect.DeepEqual(got, []string{"Khoury", "Nahas"}) {
		t.Fatalf("Names(Arabic) = %v", got)
	}
	if ds.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", ds.Len())
	}
}

func testDataset() *Dataset {
	ds := New()
	for _, s := range []Sample{
		{"Arabic", "Khoury"}, {"Arabic", "Nahas"}, {"Arabic", "Daher"},
		{"Chinese", "Li"}, {"Chinese", "Wang"}, {"Chinese", "Chen"},
		{"Czech", "Dvorak"}, {"Czech", "Novak"},
	} {
		ds.Add(s.Category, s.Name)
	}
	return ds
}

func TestBuildSplit_DeterministicUnderSeed(t *testing.T) {
	ds := testDataset()

	a := BuildSplit(ds, 0.8, rand.New(rand.NewSource(7)))
	b := BuildSplit(ds, 0.8, rand.New(rand.NewSource(7)))

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different splits:\n%v\n%v", a, b)
	}
}

func TestBuildSplit_DisjointAndComplete(t *testing.T) {
	ds := testDataset()
	s := BuildSplit(ds, 0.5, rand.New(rand.NewSource(3)))

	if Size(s.Train)+Size(s.Eval) != ds.Len() {
		t.Fatalf("split sizes %d+%d != dataset size %d",
			Size(s.Train), Size(s.Eval), ds.Len())
	}

	for _, category := range ds.Catalog() {
		seen := make(map[string]int)
		for _, n := range s.Train[category] {
			seen[n]++
		}
		for _, n := range s.Eval[category] {
			seen[n]++
		}
		for _, n := range ds.Names(category) {
			if seen[n] != 1 {
				t.Errorf("category %s name %q appears %d times across split, want 1",
					category, n, seen[n])
			}
		}
	}
}

func TestBuildSplit_ExtremeFractions(t *testing.T) {
	ds := testDataset()

	all := BuildSplit(ds, 1.0, rand.New(rand.NewSource(1)))
	if Size(all.Train) != ds.Len() || Size(all.Eval) != 0 {
		t.Fatalf("fraction 1.0: train=%d eval=%d", Size(all.Train), Size(all.Eval))
	}

	none := BuildSplit(ds, 0.0, rand.New(rand.NewSource(1)))
	if Size(none.Train) != 0 || Size(none.Eval) != ds.Len() {
		t.Fatalf("fraction 0.0: train=%d eval=%d", Size(none.Train), Size(none.Eval))
	}
}
