// Package placeholder shields legal citations, URLs and money amounts from
// the rewrite model. Protect swaps them for numbered markers ([PH0], [PH1],
// …) that the model is told to keep; Restore puts the originals back.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// 42 U.S.C. § 1983, 29 C.F.R. 1910.1200, 12 U.S.C. §§ 5301-5641
	reCodeCite = regexp.MustCompile(`\b\d+\s+(?:U\.S\.C\.|C\.F\.R\.)\s*(?:§§?\s*)?\d[\w.()\-–]*`)

	// § 12(b)(3), §§ 4.1–4.7
	reSection = regexp.MustCompile(`§§?\s*\d[\w.()\-–]*`)

	// trailing sentence punctuation stays outside the marker
	reURL = regexp.MustCompile(`https?://[^\s<>"]*[^\s<>".,;:!?)\]]`)

	// $1,250.00, $ 500
	reMoney = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?`)

	// placeholder reference in rewritten text
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces citations, URLs and amounts with numbered placeholders in
// the order they are found. It returns the modified text and the captured
// originals so Restore can put them back.
func Protect(text string) (string, []string) {
	var markers []string

	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(markers))
		markers = append(markers, match)
		return id
	}

	// Longest forms first so a code cite is not split into a bare § marker.
	text = reCodeCite.ReplaceAllStringFunc(text, replace)
	text = reSection.ReplaceAllStringFunc(text, replace)
	text = reURL.ReplaceAllStringFunc(text, replace)
	text = reMoney.ReplaceAllStringFunc(text, replace)

	return text, markers
}

// Restore substitutes [PHn] markers in text with the originals captured by
// Protect. Unknown indices leave the marker as-is.
func Restore(text string, markers []string) string {
	if len(markers) == 0 {
		return text
	}
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint returns a sentence to append to the prompt so the model
// leaves placeholders intact.
func InstructionHint() string {
	return "Copy every [PHn] marker exactly as it appears; they stand for citations and amounts."
}

// Validate returns the indices of markers that did not survive the rewrite.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}
