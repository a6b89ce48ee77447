// Package postprocess strips reasoning-model artifacts from rewritten text.
//
// Every LLM-backed translator runs its raw output through Clean, and the
// narrator runs the merged document through ForSpeech before synthesis.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text and returns the trimmed result:
//  1. reasoning blocks (<think>, <thinking>, <reasoning>, <reflection>)
//  2. tool-call preambles (everything up to the last <tool_call> marker)
//  3. lead-in phrases such as "Here is the plain English version:"
//  4. quotes wrapped around the whole answer
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeToolCallPreamble(text)
	text = removeLeadIns(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// ForSpeech prepares text for a narrator. Only the artifacts a speech engine
// would read aloud are removed; quoting and wording are left alone.
func ForSpeech(text string) string {
	text = removeThinkingBlocks(text)
	text = removeToolCallPreamble(text)
	return strings.TrimSpace(text)
}

// Go's RE2 has no backreferences, so each tag pair is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// An opening tag with no closing tag: the model was cut off mid-thought.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<think>|<thinking>|<reasoning>|<reflection>).*$`,
)

// deepseek-r1 sometimes emits a stray closing tag with the reasoning before it
// and no opening tag.
var orphanCloseRe = regexp.MustCompile(`(?is)^.*</think>`)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	text = orphanCloseRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

const toolCallTag = "<tool_call>"

func removeToolCallPreamble(text string) string {
	if i := strings.LastIndex(text, toolCallTag); i >= 0 {
		text = text[i+len(toolCallTag):]
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "</tool_call>", ""))
}

// Each pattern is anchored at the start and needs a trailing colon so a
// sentence that merely begins with "Here is" survives.
var leadInPatterns = []*regexp.Regexp{
	// "Here is / Here's [the|a] [simplified|plain|modern|rewritten] [English] [version|text|translation|rewrite]:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)?[,.!]?\s*here(?:'s| is)(?: the| a| your)? (?:simplified |plain(?:-language)? |modern |rewritten |simple )?(?:english )?(?:version|text|translation|rewrite|explanation)\s*:`),
	// "[In] plain English:" / "Simplified version:" / "Modern English:"
	regexp.MustCompile(`(?i)^(?:in )?(?:plain|simple|simplified|modern)(?: english| language)?(?: version| translation)?\s*:`),
	// "Translation:" / "Rewritten text:"
	regexp.MustCompile(`(?i)^(?:the )?(?:translation|rewritten text|rewrite)\s*:`),
}

func removeLeadIns(text string) string {
	for _, re := range leadInPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// removeQuoteWrapping strips one matching pair of outer quotes when they
// enclose the entire text. Supported pairs:
//
//	"…"  '…'  «…»  “…”  ‘…’
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		inner := string(runes[1 : n-1])
		// "a" and "b" is two quotations, not one wrapped answer.
		if strings.ContainsRune(inner, first) {
			return text
		}
		return strings.TrimSpace(inner)
	}
	return text
}
