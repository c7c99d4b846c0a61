package patterns

import (
	"testing"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{"identical", []string{"cannot", "resolve", "symbol"}, []string{"cannot", "resolve", "symbol"}, 1.0},
		{"disjoint", []string{"cannot", "resolve"}, []string{"missing", "return"}, 0.0},
		{"half overlap", []string{"a", "b", "c"}, []string{"b", "c", "d"}, 0.5},
		{"both empty", nil, nil, 1.0},
		{"one empty", []string{"x"}, nil, 0.0},
		{"duplicates collapse", []string{"a", "a", "b"}, []string{"a", "b", "b"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("Jaccard(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
			// Symmetry.
			if rev := Jaccard(tt.b, tt.a); rev != got {
				t.Errorf("Jaccard not symmetric: %f vs %f", got, rev)
			}
		})
	}
}

func TestRender(t *testing.T) {
	vars := map[string]string{"symbol": "getName", "class": "Player"}

	got := Render("add method {{symbol}} to {{class}}", vars)
	if got != "add method getName to Player" {
		t.Errorf("Render() = %q", got)
	}

	// No placeholders passes through verbatim.
	plain := "import java.util.List;"
	if Render(plain, vars) != plain {
		t.Error("plain text should pass through unchanged")
	}

	// Unknown placeholders stay visible.
	got = Render("fix {{unknown}} here", vars)
	if got != "fix {{unknown}} here" {
		t.Errorf("unknown placeholder should be left in place, got %q", got)
	}
}
