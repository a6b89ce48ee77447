// Package chunker splits documents into model-sized chunks at paragraph and
// sentence boundaries and merges translated chunks back into one document.
// It also extracts a sliding-window context snippet (last N words) so LLM
// translators can keep continuity across chunk boundaries.
package chunker

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the soft upper bound on chunk length in runes.
	DefaultChunkSize = 1000

	// DefaultContextWords is the default number of words extracted by
	// ExtractContext for use as a sliding-window context.
	DefaultContextWords = 25

	// Separator is placed between paragraphs inside a chunk and between
	// chunks when merging.
	Separator = "\n\n"
)

var (
	// two or more newlines, possibly with blank-looking whitespace between them
	reParagraph = regexp.MustCompile(`\n[ \t\f\v]*\n\s*`)

	// sentence terminator, optional closing quotes or brackets, then whitespace
	reSentenceEnd = regexp.MustCompile(`[.!?]+["'”’)\]]*\s+`)
)

// Chunk is a contiguous slice of a document and its 0-based position.
type Chunk struct {
	Index int
	Text  string
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}

// Split breaks text into ordered chunks of at most chunkSize runes.
//
// Paragraphs (separated by blank lines) are packed greedily into a chunk
// while they fit. A paragraph longer than chunkSize is packed sentence by
// sentence instead. A single sentence longer than chunkSize is emitted whole
// as an oversized chunk; words and sentences are never cut.
//
// Text that fits within chunkSize, or chunkSize ≤ 0, yields a single chunk
// holding the trimmed text. Whitespace-only text yields no chunks.
func Split(text string, chunkSize int) []Chunk {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	if chunkSize <= 0 || utf8.RuneCountInString(text) <= chunkSize {
		return []Chunk{{Index: 0, Text: text}}
	}

	var texts []string
	var current strings.Builder
	currentLen := 0
	sepLen := utf8.RuneCountInString(Separator)

	flush := func() {
		if currentLen > 0 {
			texts = append(texts, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, para := range splitParagraphs(text) {
		paraLen := utf8.RuneCountInString(para)

		if paraLen > chunkSize {
			flush()
			texts = append(texts, packSentences(para, chunkSize)...)
			continue
		}

		need := paraLen
		if currentLen > 0 {
			need += sepLen
		}
		if currentLen+need > chunkSize {
			flush()
			need = paraLen
		}

		if currentLen > 0 {
			current.WriteString(Separator)
		}
		current.WriteString(para)
		currentLen += need
	}
	flush()

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Index: i, Text: t}
	}
	return chunks
}

// splitParagraphs returns the trimmed, non-empty paragraphs of text.
func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range reParagraph.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// span is a sentence expressed as byte offsets into its paragraph, so packed
// chunks can be cut straight from the source and keep internal whitespace.
type span struct {
	start, end int
}

// sentenceSpans locates sentences in para. Each span ends right after the
// terminator (and any closing quote); the whitespace that follows belongs to
// neither neighbour.
func sentenceSpans(para string) []span {
	var spans []span
	start := 0
	for _, loc := range reSentenceEnd.FindAllStringIndex(para, -1) {
		end := loc[0] + len(strings.TrimRightFunc(para[loc[0]:loc[1]], isSpace))
		spans = append(spans, span{start: start, end: end})
		start = loc[1]
	}
	if start < len(para) {
		spans = append(spans, span{start: start, end: len(para)})
	}
	return spans
}

// packSentences greedily groups the sentences of an oversized paragraph into
// chunks of at most chunkSize runes, measured over the original text between
// the first and last sentence of each group.
func packSentences(para string, chunkSize int) []string {
	spans := sentenceSpans(para)
	var out []string

	first := -1
	for i, s := range spans {
		if first < 0 {
			first = i
			continue
		}
		candidate := para[spans[first].start:s.end]
		if utf8.RuneCountInString(candidate) > chunkSize {
			out = append(out, strings.TrimSpace(para[spans[first].start:spans[i-1].end]))
			first = i
		}
	}
	if first >= 0 {
		out = append(out, strings.TrimSpace(para[spans[first].start:spans[len(spans)-1].end]))
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// Merge joins chunk texts in Index order with a blank line between them, so
// consumers can recover the paragraph structure. Empty chunks are skipped.
// The input slice is not modified.
func Merge(chunks []Chunk) string {
	ordered := make([]Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	parts := make([]string, 0, len(ordered))
	for _, c := range ordered {
		if t := strings.TrimSpace(c.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, Separator)
}

// ExtractContext returns the last wordCount words of text, joined by a single
// space. It is intended for use as a sliding-window context snippet passed to
// LLM translators so they can maintain continuity across chunks.
// If text has fewer words than wordCount, the entire text is returned.
// If wordCount ≤ 0, DefaultContextWords is used.
func ExtractContext(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultContextWords
	}
	words := strings.Fields(text)
	if len(words) <= wordCount {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[len(words)-wordCount:], " ")
}
