package analyzer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	settings, err := LoadSettings("/nonexistent/analyzer.yml")
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error %v", err)
	}

	defaults := DefaultSettings()
	if settings.Model != defaults.Model {
		t.Errorf("Expected default model '%s', got '%s'", defaults.Model, settings.Model)
	}
	if settings.MaxTokens != defaults.MaxTokens {
		t.Errorf("Expected default max tokens %d, got %d", defaults.MaxTokens, settings.MaxTokens)
	}
}

func TestLoadSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyzer.yml")
	content := `model: claude-opus-4
max_tokens: 4000
temperature: 0.3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if settings.Model != "claude-opus-4" {
		t.Errorf("Expected model 'claude-opus-4', got '%s'", settings.Model)
	}
	if settings.MaxTokens != 4000 {
		t.Errorf("Expected max tokens 4000, got %d", settings.MaxTokens)
	}
	if settings.Temperature != 0.3 {
		t.Errorf("Expected temperature 0.3, got %f", settings.Temperature)
	}

	// Unset fields keep their defaults
	if settings.ContentMaxTokens != DefaultSettings().ContentMaxTokens {
		t.Errorf("Expected default content max tokens, got %d", settings.ContentMaxTokens)
	}
}

func TestLoadSettingsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyzer.yml")
	if err := os.WriteFile(path, []byte("model: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}

	if _, err := LoadSettings(path); err == nil {
		t.Error("Expected an error for invalid YAML")
	}
}

func TestLoadSettingsValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty model", "model: \"\"\n"},
		{"negative max tokens", "max_tokens: -1\n"},
		{"temperature out of range", "temperature: 1.5\n"},
		{"zero content budget", "content_max_tokens: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "analyzer.yml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write settings file: %v", err)
			}
			if _, err := LoadSettings(path); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestLimitContent(t *testing.T) {
	agent := NewAgent("test-key", &Settings{ContentMaxTokens: 2})

	short := "short"
	if got := agent.limitContent(short); got != short {
		t.Errorf("Expected short content unchanged, got '%s'", got)
	}

	long := "aaaaaaaaaaaaaaaaaaaa" // 20 chars, budget is 8
	got := agent.limitContent(long)
	if got != "aaaaaaaa..." {
		t.Errorf("Expected truncated content 'aaaaaaaa...', got '%s'", got)
	}
}

func TestNormalizeHashtags(t *testing.T) {
	got := normalizeHashtags([]string{"#golang", "concurrency", "  ", " #testing "})

	want := []string{"#golang", "#concurrency", "#testing"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d hashtags, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected hashtag %d to be '%s', got '%s'", i, want[i], got[i])
		}
	}
}
