package tracker

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateFriendlyName_Deterministic(t *testing.T) {
	ids := []string{
		"abc12345-6789-4def-8123-456789abcdef",
		uuid.NewString(),
		"not-a-uuid",
		"",
	}
	for _, id := range ids {
		first := GenerateFriendlyName(id)
		second := GenerateFriendlyName(id)
		if first != second {
			t.Errorf("GenerateFriendlyName(%q) = %q then %q, want stable", id, first, second)
		}
	}
}

func TestGenerateFriendlyName_Format(t *testing.T) {
	name := GenerateFriendlyName(uuid.NewString())
	parts := strings.SplitN(name, "-", 2)
	if len(parts) != 2 {
		t.Fatalf("expected adjective-noun format, got %q", name)
	}
	if !contains(adjectives, parts[0]) {
		t.Errorf("adjective %q not in word list", parts[0])
	}
	if !contains(nouns, parts[1]) {
		t.Errorf("noun %q not in word list", parts[1])
	}
}

func TestGenerateFriendlyName_DashInsensitive(t *testing.T) {
	// Dashes are stripped before windowing, so dashed and undashed forms of
	// the same UUID name identically.
	withDashes := "abc12345-6789-4def-8123-456789abcdef"
	without := strings.ReplaceAll(withDashes, "-", "")
	if GenerateFriendlyName(withDashes) != GenerateFriendlyName(without) {
		t.Error("dashed and undashed ids should produce the same name")
	}
}

func TestGenerateFriendlyName_NonHexGraceful(t *testing.T) {
	// Ids that are not hex UUIDs must still produce a valid name, never
	// panic.
	for _, id := range []string{"hello world", "zzzzzzzzzzzzzzzzzz", "x", "", "🦊🦊🦊"} {
		name := GenerateFriendlyName(id)
		if !strings.Contains(name, "-") {
			t.Errorf("GenerateFriendlyName(%q) = %q, want hyphenated name", id, name)
		}
	}
}

func TestGenerateFriendlyName_KnownSeed(t *testing.T) {
	// 00000000... selects index 0 from both lists.
	name := GenerateFriendlyName("00000000-0000-0000-0000-000000000000")
	want := adjectives[0] + "-" + nouns[0]
	if name != want {
		t.Errorf("zero UUID = %q, want %q", name, want)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
