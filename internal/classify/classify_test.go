package classify

import (
	"testing"

	"github.com/X-Niter/ModForge-sub004/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    types.ErrorType
	}{
		{"cannot find symbol class IEventBus", types.ErrorTypeSymbolNotFound},
		{"cannot resolve symbol 'Registry'", types.ErrorTypeSymbolNotFound},
		{"undefined: fooBar", types.ErrorTypeSymbolNotFound},
		{"incompatible types: String cannot be converted to int", types.ErrorTypeTypeMismatch},
		{"no suitable method found for render(Block)", types.ErrorTypeMethodNotFound},
		{"duplicate class: com.example.Mod", types.ErrorTypeDuplicateDefinition},
		{"variable x is already defined in method init()", types.ErrorTypeDuplicateDefinition},
		{"Main is not abstract and does not override abstract method tick() in Ticker", types.ErrorTypeAbstractMethodNotImplemented},
		{"no suitable constructor found for ItemStack(int)", types.ErrorTypeConstructorNotFound},
		{"unreported exception IOException; must be caught or declared to be thrown", types.ErrorTypeUncaughtException},
		{"method register in class Registry cannot be applied to given types", types.ErrorTypeMethodArgumentMismatch},
		{"missing return statement", types.ErrorTypeMissingReturn},
		{"some completely novel diagnostic", types.ErrorTypeOther},
		{"", types.ErrorTypeOther},
	}

	for _, tt := range tests {
		if got := Classify(tt.message); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	// Contains both "constructor ... cannot be applied" and the generic
	// "cannot be applied"; the more specific constructor rule is ordered
	// first and must win.
	msg := "constructor ItemStack in class ItemStack cannot be applied to given types"
	if got := Classify(msg); got != types.ErrorTypeConstructorNotFound {
		t.Errorf("Classify(%q) = %v, want CONSTRUCTOR_NOT_FOUND", msg, got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cannot find symbol 'IEventBus'", "cannot find symbol 'x'"},
		{"error at line 42", "error at line n"},
		{"cannot open /home/user/mod/src/Main.java", "cannot open path"},
		{"Incompatible   Types", "incompatible types"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeStable(t *testing.T) {
	// Two occurrences of the same error with different literals and
	// positions must normalize identically.
	a := Normalize("cannot find symbol 'IEventBus' at line 12")
	b := Normalize("cannot find symbol 'ModLoader' at line 97")
	if a != b {
		t.Errorf("expected equal normalized forms, got %q vs %q", a, b)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("cannot find symbol 'x'")
	want := []string{"cannot", "find", "symbol", "x"}
	if len(got) != len(want) {
		t.Fatalf("Tokens() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewSignature(t *testing.T) {
	p := types.Problem{
		File:     "src/Main.java",
		Message:  "cannot find symbol class IEventBus",
		Line:     10,
		Column:   5,
		Severity: types.SeverityError,
	}

	sig := NewSignature(p)

	if sig.Type != types.ErrorTypeSymbolNotFound {
		t.Errorf("signature type = %v, want SYMBOL_NOT_FOUND", sig.Type)
	}
	if sig.Normalized == "" {
		t.Error("expected non-empty normalized message")
	}
	if len(sig.Keywords) == 0 {
		t.Error("expected keywords to be extracted")
	}
	if sig.File != p.File || sig.Line != p.Line || sig.Column != p.Column {
		t.Error("signature must carry position through unchanged")
	}
}
