package fingerprint

import (
	"testing"

	"github.com/archway-dev/archway/internal/domain"
)

func TestKeyStableAcrossEquivalentRequests(t *testing.T) {
	a := domain.AnalysisRequest{
		ID:      "id-1",
		Kind:    domain.KindCodeAnalysis,
		Targets: []string{"pkg/auth.py", "./pkg/util.py"},
		Options: domain.AnalysisOptions{Model: "o1", MaxOutputTokens: 512},
	}
	b := domain.AnalysisRequest{
		ID:      "id-2", // ids never affect the fingerprint
		Kind:    domain.KindCodeAnalysis,
		Targets: []string{"pkg/util.py", "pkg/auth.py"}, // order independent
		Options: domain.AnalysisOptions{Model: "o1", MaxOutputTokens: 512},
	}

	if Key(a) != Key(b) {
		t.Fatal("semantically identical requests must share a cache key")
	}
}

func TestKeyDiffersByKind(t *testing.T) {
	a := domain.AnalysisRequest{Kind: domain.KindCodeAnalysis, Targets: []string{"auth.py"}}
	b := domain.AnalysisRequest{Kind: domain.KindRefactorSuggestion, Targets: []string{"auth.py"}}
	if Key(a) == Key(b) {
		t.Fatal("different kinds must not collide")
	}
}

func TestKeyDiffersByOptions(t *testing.T) {
	a := domain.AnalysisRequest{Kind: domain.KindCodeSearch, Query: "func main"}
	b := a
	b.Options.Creativity = 0.7
	if Key(a) == Key(b) {
		t.Fatal("option changes must produce a different key")
	}
}

func TestKeyIgnoresTimeout(t *testing.T) {
	a := domain.AnalysisRequest{Kind: domain.KindCodeSearch, Query: "func main"}
	b := a
	b.Options.Timeout = 5e9
	if Key(a) != Key(b) {
		t.Fatal("timeout must not affect the cache key")
	}
}

func TestKeyFieldsDoNotBleed(t *testing.T) {
	// Length prefixing keeps adjacent fields apart: ("ab","c") != ("a","bc").
	a := domain.AnalysisRequest{Kind: domain.KindCodeSearch, Query: "ab", Options: domain.AnalysisOptions{Provider: "c"}}
	b := domain.AnalysisRequest{Kind: domain.KindCodeSearch, Query: "a", Options: domain.AnalysisOptions{Provider: "bc"}}
	if Key(a) == Key(b) {
		t.Fatal("field boundaries must not collide")
	}
}

func TestNormalizeTargets(t *testing.T) {
	got := NormalizeTargets([]string{" b.go ", "a.go", "a.go", "./a.go", ""})
	want := []string{"a.go", "b.go"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeTargets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NormalizeTargets = %v, want %v", got, want)
		}
	}
}
