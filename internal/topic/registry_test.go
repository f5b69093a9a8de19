package topic

import (
	"errors"
	"strings"
	"testing"
)

// twoTopic is a minimal valid catalog for table tests.
func twoTopic() []Topic {
	return []Topic{
		{ID: "a.one", Name: "One", Strand: StrandAlgebra, Difficulty: 1},
		{ID: "a.two", Name: "Two", Strand: StrandAlgebra, Difficulty: 2, Prerequisites: []string{"a.one"}},
	}
}

func TestNewRegistry_CatalogIsValid(t *testing.T) {
	r, err := NewRegistry(Catalog())
	if err != nil {
		t.Fatalf("NewRegistry(Catalog()) failed: %v", err)
	}
	if r.Len() == 0 {
		t.Fatal("catalog registry is empty")
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name    string
		topics  []Topic
		wantErr string
	}{
		{
			name:    "empty catalog",
			topics:  nil,
			wantErr: "catalog is empty",
		},
		{
			name: "duplicate ID",
			topics: append(twoTopic(),
				Topic{ID: "a.one", Name: "Dup", Strand: StrandAlgebra, Difficulty: 1}),
			wantErr: `duplicate topic ID: "a.one"`,
		},
		{
			name: "dangling prerequisite",
			topics: append(twoTopic(),
				Topic{ID: "a.three", Name: "Three", Strand: StrandAlgebra, Difficulty: 3,
					Prerequisites: []string{"a.missing"}}),
			wantErr: `nonexistent prerequisite "a.missing"`,
		},
		{
			name: "difficulty out of range",
			topics: append(twoTopic(),
				Topic{ID: "a.three", Name: "Three", Strand: StrandAlgebra, Difficulty: 6}),
			wantErr: "difficulty must be 1-5",
		},
		{
			name: "self prerequisite",
			topics: append(twoTopic(),
				Topic{ID: "a.three", Name: "Three", Strand: StrandAlgebra, Difficulty: 3,
					Prerequisites: []string{"a.three"}}),
			wantErr: "lists itself as a prerequisite",
		},
		{
			name: "ID without namespace",
			topics: append(twoTopic(),
				Topic{ID: "three", Name: "Three", Strand: StrandAlgebra, Difficulty: 3}),
			wantErr: "not dot-namespaced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.topics)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_Get(t *testing.T) {
	r, err := NewRegistry(twoTopic())
	if err != nil {
		t.Fatal(err)
	}

	got, err := r.Get("a.two")
	if err != nil {
		t.Fatalf("Get(a.two) failed: %v", err)
	}
	if got.Name != "Two" || got.Difficulty != 2 {
		t.Errorf("Get(a.two) = %+v, want Name=Two Difficulty=2", got)
	}

	_, err = r.Get("a.nope")
	if !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Get(a.nope) error = %v, want ErrUnknownTopic", err)
	}
}

func TestRegistry_AllIsACopy(t *testing.T) {
	r, err := NewRegistry(twoTopic())
	if err != nil {
		t.Fatal(err)
	}

	all := r.All()
	all[0].Name = "mutated"

	got, _ := r.Get(all[0].ID)
	if got.Name == "mutated" {
		t.Error("All() exposed internal state: mutation visible through Get")
	}
}

func TestRegistry_ByStrand(t *testing.T) {
	r, err := NewRegistry(Catalog())
	if err != nil {
		t.Fatal(err)
	}

	derivs := r.ByStrand(StrandDerivatives)
	if len(derivs) == 0 {
		t.Fatal("no derivative topics in catalog")
	}
	for i := 1; i < len(derivs); i++ {
		prev, cur := derivs[i-1], derivs[i]
		if prev.Difficulty > cur.Difficulty {
			t.Errorf("ByStrand not difficulty-ascending: %s(%d) before %s(%d)",
				prev.ID, prev.Difficulty, cur.ID, cur.Difficulty)
		}
		if prev.Difficulty == cur.Difficulty && prev.ID > cur.ID {
			t.Errorf("ByStrand tie-break not by ID: %s before %s", prev.ID, cur.ID)
		}
	}
}

func TestCatalog_PrerequisitesResolve(t *testing.T) {
	r, err := NewRegistry(Catalog())
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range r.All() {
		for _, pre := range tc.Prerequisites {
			if !r.Has(pre) {
				t.Errorf("topic %s has unresolved prerequisite %s", tc.ID, pre)
			}
		}
	}
}
