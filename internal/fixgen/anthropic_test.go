package fixgen

import (
	"strings"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"fixed_code":"x"}`, `{"fixed_code":"x"}`},
		{"json fence", "```json\n{\"fixed_code\":\"x\"}\n```", `{"fixed_code":"x"}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading whitespace", "  \n```json\n{}\n```\n", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.in); got != tt.want {
				t.Errorf("stripCodeFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildFixPrompt(t *testing.T) {
	prompt := buildFixPrompt(Request{
		File:         "src/Player.java",
		Code:         "public class Player {}",
		ErrorMessage: "cannot resolve symbol 'getName'",
		Language:     "java",
	})

	for _, want := range []string{"src/Player.java", "cannot resolve symbol", "public class Player", "fixed_code"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Additional context") {
		t.Error("empty context should be omitted from the prompt")
	}
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewAnthropic(AnthropicConfig{}); err == nil {
		t.Error("expected error when no API key is available")
	}
}

func TestNewAnthropicDefaults(t *testing.T) {
	gen, err := NewAnthropic(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatal(err)
	}
	if gen.model != DefaultModel {
		t.Errorf("model = %q, want default", gen.model)
	}
	if gen.retry.MaxRetries != 3 {
		t.Errorf("max retries = %d, want 3", gen.retry.MaxRetries)
	}
	if gen.sem == nil {
		t.Error("concurrency semaphore should be enabled by default")
	}
}
