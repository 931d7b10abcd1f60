// Package compose builds provider-neutral generation requests from a
// voice profile, retrieved style fragments and conversation history.
package compose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inkvoice/inkvoice/internal/provider"
	"github.com/inkvoice/inkvoice/internal/style"
)

// genericInstruction is used when no voice profile is active.
const genericInstruction = "You are a helpful writing assistant. " +
	"Answer the user's request clearly and accurately."

// Ordinal directive tables. Index corresponds to a style.Level value;
// out-of-range levels fall back to the moderate midpoint.
var (
	boldnessDirectives = [5]string{
		"Never use bold text.",
		"Use bold text rarely, only for critical emphasis.",
		"Use bold text in moderation.",
		"Use bold text frequently to highlight key points.",
		"Use bold text extensively throughout your response.",
	}
	spacingDirectives = [5]string{
		"Write dense, continuous paragraphs with minimal breaks.",
		"Keep paragraph breaks infrequent.",
		"Use a moderate amount of paragraph spacing.",
		"Break text into short paragraphs with generous spacing.",
		"Use very short paragraphs and abundant whitespace.",
	}
	emojiDirectives = [5]string{
		"Never use emoji.",
		"Use emoji very rarely.",
		"Use emoji occasionally where they add warmth.",
		"Use emoji frequently.",
		"Use emoji liberally throughout your response.",
	}
	listDirectives = [5]string{
		"Avoid bullet or numbered lists; write in prose.",
		"Prefer prose, using lists only when unavoidable.",
		"Use lists when they genuinely aid clarity.",
		"Prefer lists over prose for structured content.",
		"Structure as much of the response as possible into lists.",
	}
	markupDirectives = [5]string{
		"Write plain prose without any markup.",
		"Keep markup minimal.",
		"Use a moderate amount of markup (headings, emphasis).",
		"Use rich markup: headings, emphasis, quotes.",
		"Use the full range of markup: headings, tables, quotes, emphasis.",
	}
	humorDirectives = [5]string{
		"Maintain a strictly serious tone with no humor.",
		"Keep the tone mostly serious, with at most a light touch.",
		"Allow occasional mild humor.",
		"Be noticeably witty and playful.",
		"Be highly humorous and playful throughout.",
	}
)

// directive maps an ordinal level onto its table entry. Unknown levels
// collapse to the moderate midpoint rather than failing.
func directive(table [5]string, level style.Level) string {
	if level < 0 || int(level) >= len(table) {
		return table[style.LevelModerate]
	}
	return table[level]
}

// Compose builds a request from the active profile (nil when none is
// active), retrieved fragments, prior conversation and the new user
// turn. It is a pure function: the same inputs always yield the same
// request, and no input slice is mutated. Fragment text appears only in
// the system instruction, never in the message history. The caller is
// responsible for setting the model on the returned request.
func Compose(profile *style.Profile, fragments []style.Scored, history []provider.Message, userText string) provider.Request {
	var b strings.Builder

	if profile == nil {
		b.WriteString(genericInstruction)
	} else {
		writeProfileInstruction(&b, profile)
	}

	if len(fragments) > 0 {
		writeVoiceContext(&b, fragments)
	}

	messages := make([]provider.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: userText})

	return provider.Request{
		System:   b.String(),
		Messages: messages,
	}
}

func writeProfileInstruction(b *strings.Builder, profile *style.Profile) {
	fmt.Fprintf(b, "You are a writing assistant that responds in the user's own voice, following the style profile %q.\n", profile.Name)

	prefs := profile.Preferences

	tones := make([]string, 0, len(prefs.ToneTags)+len(prefs.CustomTones))
	tones = append(tones, prefs.ToneTags...)
	tones = append(tones, prefs.CustomTones...)
	if len(tones) > 0 {
		fmt.Fprintf(b, "Write in a tone that is: %s.\n", strings.Join(tones, ", "))
	}

	var rules []string
	if prefs.Boldness != nil {
		rules = append(rules, directive(boldnessDirectives, *prefs.Boldness))
	}
	if prefs.Spacing != nil {
		rules = append(rules, directive(spacingDirectives, *prefs.Spacing))
	}
	if prefs.EmojiUsage != nil {
		rules = append(rules, directive(emojiDirectives, *prefs.EmojiUsage))
	}
	if prefs.ListUsage != nil {
		rules = append(rules, directive(listDirectives, *prefs.ListUsage))
	}
	if prefs.MarkupRichness != nil {
		rules = append(rules, directive(markupDirectives, *prefs.MarkupRichness))
	}
	if prefs.HumorLevel != nil {
		rules = append(rules, directive(humorDirectives, *prefs.HumorLevel))
	}
	if len(rules) > 0 {
		b.WriteString("\nFORMATTING RULES:\n")
		for _, r := range rules {
			fmt.Fprintf(b, "- %s\n", r)
		}
	}

	if prefs.MoralTone != "" {
		fmt.Fprintf(b, "Adopt a %s moral tone.\n", prefs.MoralTone)
	}
	if prefs.EthicalBoundaries != "" {
		fmt.Fprintf(b, "Respect these boundaries: %s.\n", prefs.EthicalBoundaries)
	}
	if prefs.PreferredStance != "" {
		fmt.Fprintf(b, "Take a %s stance when the topic allows for one.\n", prefs.PreferredStance)
	}
}

func writeVoiceContext(b *strings.Builder, fragments []style.Scored) {
	ordered := make([]style.Scored, len(fragments))
	copy(ordered, fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Similarity > ordered[j].Similarity
	})

	b.WriteString("\nVOICE CONTEXT (excerpts of the user's own writing, for style reference only):\n")
	for _, f := range ordered {
		fmt.Fprintf(b, "[similarity %.2f] %s\n", f.Similarity, f.Text)
	}
}
