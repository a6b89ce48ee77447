package translator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valpere/simplylegal/internal"
)

var modePrompts = map[internal.Mode]string{
	internal.ModeLegal: "You are a translation app, translating complex legal jargon into simple, " +
		"easy-to-understand language. Be concise.",
	internal.ModeOldEnglish: "You are a translation app, rewriting archaic and Early Modern English " +
		"(thee, thou, hath, whereupon) into clear, natural modern English. Be concise.",
}

// buildSystemPrompt constructs the system prompt for req, optionally
// injecting glossary terms, a sliding-window context and extra instructions.
func buildSystemPrompt(req Request) string {
	var sb strings.Builder

	base, ok := modePrompts[req.Mode]
	if !ok {
		base = modePrompts[internal.ModeLegal]
	}
	sb.WriteString(base)
	sb.WriteString("\nKeep the meaning and every obligation intact. Keep paragraph breaks. ")
	sb.WriteString("Only respond with the rewritten text, nothing else. No explanations, no quotes.")

	if req.Instructions != "" {
		sb.WriteString(" ")
		sb.WriteString(req.Instructions)
	}

	if len(req.Glossary) > 0 {
		terms := make([]string, 0, len(req.Glossary))
		for term := range req.Glossary {
			terms = append(terms, term)
		}
		sort.Strings(terms)

		sb.WriteString("\n\nTERMINOLOGY (use these exact plain wordings):\n")
		for _, term := range terms {
			sb.WriteString(fmt.Sprintf("  %s → %s\n", term, req.Glossary[term]))
		}
	}

	if req.PreviousContext != "" {
		sb.WriteString(fmt.Sprintf("\n\nCONTEXT (end of the previous passage, for continuity only; do NOT rewrite it):\n...%s", req.PreviousContext))
	}

	return sb.String()
}
