package compose

import (
	"strings"
	"testing"

	"github.com/inkvoice/inkvoice/internal/provider"
	"github.com/inkvoice/inkvoice/internal/style"
)

func levelPtr(l style.Level) *style.Level { return &l }

func TestCompose_NoProfile(t *testing.T) {
	t.Parallel()

	history := []provider.Message{
		{Role: provider.RoleUser, Content: "What is Go?"},
		{Role: provider.RoleAssistant, Content: "A programming language."},
	}
	req := Compose(nil, nil, history, "Summarize this in one sentence.")

	if strings.Contains(req.System, "FORMATTING RULES") {
		t.Error("generic instruction must not contain a FORMATTING RULES section")
	}
	if req.System == "" {
		t.Error("system instruction must not be empty without a profile")
	}
	if len(req.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(req.Messages))
	}
	last := req.Messages[2]
	if last.Role != provider.RoleUser || last.Content != "Summarize this in one sentence." {
		t.Errorf("last message = %+v, want new user turn", last)
	}
}

func TestCompose_MaxBoldness(t *testing.T) {
	t.Parallel()

	profile := &style.Profile{
		Name: "punchy",
		Preferences: style.Preferences{
			Boldness: levelPtr(style.LevelMax),
		},
	}
	req := Compose(profile, nil, nil, "Summarize this in one sentence.")

	if !strings.Contains(req.System, "FORMATTING RULES") {
		t.Error("profile with levels must produce a FORMATTING RULES section")
	}
	if !strings.Contains(req.System, "bold text extensively") {
		t.Errorf("max boldness directive missing from instruction:\n%s", req.System)
	}
}

func TestCompose_OmitsAbsentFields(t *testing.T) {
	t.Parallel()

	profile := &style.Profile{
		Name: "minimal",
		Preferences: style.Preferences{
			EmojiUsage: levelPtr(style.LevelMin),
		},
	}
	req := Compose(profile, nil, nil, "hi")

	if !strings.Contains(req.System, "Never use emoji.") {
		t.Error("populated emoji level must render its directive")
	}
	if strings.Contains(req.System, "bold") {
		t.Error("absent boldness level must not produce a directive")
	}
	if strings.Contains(req.System, "tone that is") {
		t.Error("empty tone tags must not produce a tone rule")
	}
}

func TestCompose_UnknownLevelFallsBackToModerate(t *testing.T) {
	t.Parallel()

	profile := &style.Profile{
		Name: "corrupt",
		Preferences: style.Preferences{
			Boldness:   levelPtr(style.Level(42)),
			HumorLevel: levelPtr(style.Level(-3)),
		},
	}
	req := Compose(profile, nil, nil, "hi")

	if !strings.Contains(req.System, "Use bold text in moderation.") {
		t.Errorf("out-of-range boldness must map to the midpoint directive:\n%s", req.System)
	}
	if !strings.Contains(req.System, "Allow occasional mild humor.") {
		t.Errorf("out-of-range humor must map to the midpoint directive:\n%s", req.System)
	}
}

func TestCompose_ToneTags(t *testing.T) {
	t.Parallel()

	profile := &style.Profile{
		Name: "warm",
		Preferences: style.Preferences{
			ToneTags:    []string{"friendly", "direct"},
			CustomTones: []string{"a bit nerdy"},
		},
	}
	req := Compose(profile, nil, nil, "hi")

	if !strings.Contains(req.System, "friendly, direct, a bit nerdy") {
		t.Errorf("tone rule missing or misordered:\n%s", req.System)
	}
}

func TestCompose_VoiceContext(t *testing.T) {
	t.Parallel()

	fragments := []style.Scored{
		{Fragment: style.Fragment{Text: "low match"}, Similarity: 0.41},
		{Fragment: style.Fragment{Text: "best match"}, Similarity: 0.93},
		{Fragment: style.Fragment{Text: "mid match"}, Similarity: 0.72},
	}
	req := Compose(nil, fragments, nil, "hi")

	if !strings.Contains(req.System, "VOICE CONTEXT") {
		t.Fatal("voice context block missing")
	}
	best := strings.Index(req.System, "best match")
	mid := strings.Index(req.System, "mid match")
	low := strings.Index(req.System, "low match")
	if best == -1 || mid == -1 || low == -1 {
		t.Fatalf("fragment text missing from instruction:\n%s", req.System)
	}
	if !(best < mid && mid < low) {
		t.Error("fragments must appear in descending similarity order")
	}
	if !strings.Contains(req.System, "[similarity 0.93]") {
		t.Error("fragments must be tagged with their similarity score")
	}

	// Fragment text must live in the system instruction only.
	for _, m := range req.Messages {
		if strings.Contains(m.Content, "best match") {
			t.Error("fragment text leaked into message history")
		}
	}
}

func TestCompose_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	fragments := []style.Scored{
		{Fragment: style.Fragment{Text: "a"}, Similarity: 0.1},
		{Fragment: style.Fragment{Text: "b"}, Similarity: 0.9},
	}
	history := []provider.Message{{Role: provider.RoleUser, Content: "q"}}

	Compose(nil, fragments, history, "hi")

	if fragments[0].Text != "a" || fragments[1].Text != "b" {
		t.Error("Compose must not reorder the caller's fragment slice")
	}
	if len(history) != 1 {
		t.Error("Compose must not grow the caller's history slice")
	}
}
