package chunker_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/valpere/simplylegal/internal/chunker"
)

const leaseAgreement = `WHEREAS, the Lessor and Lessee desire to enter into this Lease Agreement to establish the terms and conditions of the rental of the Property. The Property shall be used solely for residential purposes and in compliance with all federal, state, and local laws and regulations.

The Lessee shall pay monthly rent in the amount specified in the Schedule of Payments, due on the first day of each calendar month. Failure to pay rent on time shall result in late fees as specified herein. The Lessor reserves the right to pursue legal action for non-payment.

The Lessee is responsible for maintaining the Property in good condition and performing routine maintenance tasks. Any major repairs or damages must be reported to the Lessor immediately. The Lessee shall not make any alterations to the Property without written consent.

The Lessor is responsible for maintaining the structural integrity of the building and providing essential services including water, electricity, and heat during the heating season. The Lessor shall conduct necessary repairs to ensure the Property remains habitable and safe.

This Lease Agreement shall commence on the date specified in the schedule and shall continue for the term specified unless terminated earlier by either party in accordance with the provisions herein. Either party may terminate this agreement with ninety days written notice.`

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]`)

func sentences(text string) []string {
	var out []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		out = append(out, strings.Join(strings.Fields(s), " "))
	}
	return out
}

func texts(chunks []chunker.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// --- Split tests ---

func TestSplit_ShortText(t *testing.T) {
	text := "  This is a simple legal contract.\n"
	chunks := chunker.Split(text, 100)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "This is a simple legal contract." {
		t.Errorf("expected trimmed input, got %q", chunks[0].Text)
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
}

func TestSplit_Unlimited(t *testing.T) {
	text := strings.Repeat("word ", 500)
	chunks := chunker.Split(text, 0)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk when chunkSize=0, got %d", len(chunks))
	}
}

func TestSplit_WhitespaceOnly(t *testing.T) {
	if chunks := chunker.Split(" \n\n\t ", 10); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %v", chunks)
	}
}

func TestSplit_LeaseAgreement(t *testing.T) {
	if n := len([]rune(leaseAgreement)); n != 1378 {
		t.Fatalf("fixture length changed: %d", n)
	}

	chunks := chunker.Split(leaseAgreement, 1000)

	// 275+276+270 runes plus two separators fit; the last two paragraphs
	// start a second chunk.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), texts(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Len() > 1000 {
			t.Errorf("chunk %d exceeds limit: %d", i, c.Len())
		}
	}
	if !strings.HasPrefix(chunks[0].Text, "WHEREAS") {
		t.Errorf("first chunk should start with WHEREAS: %q", chunks[0].Text[:20])
	}
	if !strings.HasPrefix(chunks[1].Text, "The Lessor is responsible") {
		t.Errorf("second chunk should start at the fourth paragraph: %q", chunks[1].Text[:30])
	}
}

func TestSplit_Deterministic(t *testing.T) {
	a := chunker.Split(leaseAgreement, 300)
	b := chunker.Split(leaseAgreement, 300)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_ParagraphBoundary(t *testing.T) {
	para1 := "First paragraph text here."
	para2 := "Second paragraph text here."
	text := para1 + "\n\n\n" + para2

	chunks := chunker.Split(text, 40)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), texts(chunks))
	}
	if chunks[0].Text != para1 || chunks[1].Text != para2 {
		t.Errorf("unexpected chunks: %q", texts(chunks))
	}
}

func TestSplit_PacksSmallParagraphs(t *testing.T) {
	text := "One.\n\nTwo.\n\nThree.\n\n" + strings.Repeat("x", 30)
	chunks := chunker.Split(text, 20)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), texts(chunks))
	}
	if chunks[0].Text != "One.\n\nTwo.\n\nThree." {
		t.Errorf("expected small paragraphs packed together, got %q", chunks[0].Text)
	}
}

func TestSplit_SkipsEmptyParagraphs(t *testing.T) {
	text := "Alpha paragraph.\n\n   \n\n\n\nBeta paragraph here."
	chunks := chunker.Split(text, 20)
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d: %q", len(chunks), texts(chunks))
	}
}

func TestSplit_SentenceBoundary(t *testing.T) {
	text := "First sentence ends here. Second sentence follows! Third sentence? Fourth one."
	chunks := chunker.Split(text, 40)
	if len(chunks) < 2 {
		t.Fatalf("expected ≥2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Text != strings.TrimSpace(c.Text) {
			t.Errorf("chunk %d has leading/trailing whitespace: %q", i, c.Text)
		}
		if c.Len() > 40 {
			t.Errorf("chunk %d exceeds limit: %q", i, c.Text)
		}
		last := c.Text[len(c.Text)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Errorf("chunk %d does not end on a sentence boundary: %q", i, c.Text)
		}
	}
}

func TestSplit_OversizedSentenceKeptWhole(t *testing.T) {
	long := "This sentence is " + strings.Repeat("very ", 20) + "long."
	text := "Short one. " + long + " Tail."
	chunks := chunker.Split(text, 30)

	found := false
	for _, c := range chunks {
		if c.Text == long {
			found = true
		} else if c.Len() > 30 {
			t.Errorf("only the single long sentence may exceed the limit, got %q", c.Text)
		}
	}
	if !found {
		t.Errorf("expected the long sentence as its own chunk, got %q", texts(chunks))
	}
}

func TestSplit_PreservesInternalWhitespace(t *testing.T) {
	text := "Clause one applies.\nClause two  applies too. " + strings.Repeat("z", 40) + "."
	chunks := chunker.Split(text, 45)
	if !strings.Contains(chunks[0].Text, "applies.\nClause two  applies") {
		t.Errorf("internal whitespace lost: %q", chunks[0].Text)
	}
}

func TestSplit_NeverSplitsWords(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	chunks := chunker.Split(text, 20)
	// No sentence terminators: the whole paragraph is one oversized sentence.
	if len(chunks) != 1 || chunks[0].Text != text {
		t.Errorf("expected the text kept whole, got %q", texts(chunks))
	}
}

func TestSplit_EverySentenceOnceInOrder(t *testing.T) {
	for _, size := range []int{50, 120, 300, 600, 1000} {
		chunks := chunker.Split(leaseAgreement, size)
		got := sentences(strings.Join(texts(chunks), "\n\n"))
		want := sentences(leaseAgreement)
		if len(got) != len(want) {
			t.Fatalf("size %d: expected %d sentences, got %d", size, len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("size %d: sentence %d = %q, want %q", size, i, got[i], want[i])
			}
		}
	}
}

func TestSplit_CountsRunes(t *testing.T) {
	text := strings.Repeat("ǣ", 10) + ".\n\n" + strings.Repeat("þ", 10) + "."
	chunks := chunker.Split(text, 24)
	if len(chunks) != 1 {
		t.Errorf("expected rune counting to fit both paragraphs, got %d chunks", len(chunks))
	}
}

func TestSplit_NormalisesCRLF(t *testing.T) {
	chunks := chunker.Split("First part.\r\n\r\nSecond part.", 12)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %q", texts(chunks))
	}
	if strings.Contains(chunks[0].Text, "\r") {
		t.Errorf("carriage return left in chunk: %q", chunks[0].Text)
	}
}

// --- Merge tests ---

func TestMerge_OrdersByIndex(t *testing.T) {
	chunks := []chunker.Chunk{
		{Index: 2, Text: "And this is chunk three."},
		{Index: 0, Text: "Hello world."},
		{Index: 1, Text: " This is chunk two. "},
	}
	got := chunker.Merge(chunks)
	want := "Hello world.\n\nThis is chunk two.\n\nAnd this is chunk three."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if chunks[0].Index != 2 {
		t.Error("Merge must not reorder its input")
	}
}

func TestMerge_SkipsEmpty(t *testing.T) {
	got := chunker.Merge([]chunker.Chunk{{Index: 0, Text: "a"}, {Index: 1, Text: "  "}, {Index: 2, Text: "b"}})
	if got != "a\n\nb" {
		t.Errorf("expected empty chunk skipped, got %q", got)
	}
}

func TestMerge_Empty(t *testing.T) {
	if got := chunker.Merge(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestMergeSplit_RoundTrip(t *testing.T) {
	for _, size := range []int{100, 400, 1000, 5000} {
		got := chunker.Merge(chunker.Split(leaseAgreement, size))
		if !strings.Contains(leaseAgreement, "\n\n") {
			t.Fatal("fixture must contain paragraphs")
		}
		if normalise(got) != normalise(leaseAgreement) {
			t.Errorf("size %d: round trip changed content", size)
		}
	}
}

func TestMergeSplit_RoundTripExactForParagraphChunks(t *testing.T) {
	got := chunker.Merge(chunker.Split(leaseAgreement, 1000))
	if got != leaseAgreement {
		t.Errorf("expected exact round trip when chunks end on paragraphs")
	}
}

func normalise(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// --- ExtractContext tests ---

func TestExtractContext_FewerWordsThanLimit(t *testing.T) {
	text := "short text"
	ctx := chunker.ExtractContext(text, 25)
	if ctx != text {
		t.Errorf("expected %q, got %q", text, ctx)
	}
}

func TestExtractContext_DefaultWordCount(t *testing.T) {
	words := make([]string, 50)
	for i := range words {
		words[i] = "w"
	}
	ctx := chunker.ExtractContext(strings.Join(words, " "), 0)
	if got := len(strings.Fields(ctx)); got != chunker.DefaultContextWords {
		t.Errorf("expected %d words, got %d", chunker.DefaultContextWords, got)
	}
}

func TestExtractContext_LastWordsCorrect(t *testing.T) {
	ctx := chunker.ExtractContext("alpha beta gamma delta epsilon", 3)
	if ctx != "gamma delta epsilon" {
		t.Errorf("expected last 3 words, got %q", ctx)
	}
}
