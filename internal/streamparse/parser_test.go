package streamparse

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// collect feeds each chunk in order and returns the concatenated events
// (including a final Flush).
func collect(t *testing.T, chunks ...string) []Event {
	t.Helper()
	p := New()
	var got []Event
	for _, c := range chunks {
		got = append(got, p.Feed(c)...)
	}
	got = append(got, p.Flush()...)
	return mergeText(got)
}

// mergeText coalesces adjacent KindText events, since chunking only
// constrains the concatenation of text, not event boundaries.
func mergeText(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == KindText && len(out) > 0 && out[len(out)-1].Kind == KindText {
			out[len(out)-1].Text += ev.Text
			continue
		}
		out = append(out, ev)
	}
	return out
}

func visibleText(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Kind == KindText {
			b.WriteString(ev.Text)
		}
	}
	return b.String()
}

func TestCleanCompletion(t *testing.T) {
	got := collect(t, "Hello, world.")
	want := []Event{{Kind: KindText, Text: "Hello, world."}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckpointInvisible(t *testing.T) {
	got := collect(t, "<<checkpoint:a>>A", "B", "C")
	want := []Event{
		{Kind: KindCheckpoint, ID: "a"},
		{Kind: KindText, Text: "ABC"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBacktrackHonoured(t *testing.T) {
	got := collect(t, "<<checkpoint:a>>Wrong.", "<<backtrack:a|too blunt>>Right.")
	want := []Event{
		{Kind: KindCheckpoint, ID: "a"},
		{Kind: KindText, Text: "Wrong."},
		{Kind: KindBacktrack, ID: "a", Reason: "too blunt"},
		{Kind: KindText, Text: "Right."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestShiftOperatorsSurviveVerbatim(t *testing.T) {
	input := "x << 1; y << 2;"
	got := collect(t, input)
	if visibleText(got) != input {
		t.Errorf("visible text = %q, want %q", visibleText(got), input)
	}
	for _, ev := range got {
		if ev.Kind != KindText {
			t.Errorf("unexpected non-text event: %+v", ev)
		}
	}
}

func TestUnknownBacktrackIDStillParses(t *testing.T) {
	// The parser has no notion of "known" IDs (that's the checkpoint
	// store's job); it only validates grammar, so this still yields a
	// well-formed Backtrack event.
	got := collect(t, "<<checkpoint:a>>Hi.", "<<backtrack:nope|bad>>Bye.")
	want := []Event{
		{Kind: KindCheckpoint, ID: "a"},
		{Kind: KindText, Text: "Hi."},
		{Kind: KindBacktrack, ID: "nope", Reason: "bad"},
		{Kind: KindText, Text: "Bye."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripNoMarkers(t *testing.T) {
	inputs := []string{
		"plain text with no angle brackets",
		"",
		"trailing bracket <",
		"almost <check",
	}
	for _, in := range inputs {
		got := visibleText(collect(t, in))
		if got != in {
			t.Errorf("round trip %q: got %q", in, got)
		}
	}
}

func TestTripleOpenAngleSurvivesVerbatim(t *testing.T) {
	input := "<<<X"
	got := collect(t, input)
	if visibleText(got) != input {
		t.Errorf("visible text = %q, want %q", visibleText(got), input)
	}
}

func TestDivergingPartialPrefixSurvivesVerbatim(t *testing.T) {
	input := "<<cheese>>"
	got := collect(t, input)
	if visibleText(got) != input {
		t.Errorf("visible text = %q, want %q", visibleText(got), input)
	}
}

func TestBareOpenAtEndOfStream(t *testing.T) {
	got := collect(t, "trailing<")
	want := []Event{{Kind: KindText, Text: "trailing<"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownFieldPrefixInvalidatesMarker(t *testing.T) {
	input := "<<backtrack:a|reason|bogus:field>>After"
	got := collect(t, input)
	want := []Event{{Kind: KindText, Text: input}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedTemperatureSyntaxInvalidatesMarker(t *testing.T) {
	input := "<<backtrack:a|reason|temp:not-a-number>>After"
	got := collect(t, input)
	want := []Event{{Kind: KindText, Text: input}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestOutOfRangeTemperatureStillValidMarker(t *testing.T) {
	got := collect(t, "<<backtrack:a|reason|temp:1.5>>After")
	want := []Event{
		{Kind: KindBacktrack, ID: "a", Reason: "reason", Temperature: 1.5, HasTemperature: true},
		{Kind: KindText, Text: "After"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownModeStillValidMarker(t *testing.T) {
	got := collect(t, "<<backtrack:a|reason|mode:bogus>>After")
	want := []Event{
		{Kind: KindBacktrack, ID: "a", Reason: "reason", Mode: "bogus", HasMode: true},
		{Kind: KindText, Text: "After"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAllBacktrackFields(t *testing.T) {
	got := collect(t, "<<backtrack:a|too blunt|rephrase:be gentler|mode:precise|temp:0.3>>After")
	want := []Event{
		{
			Kind: KindBacktrack, ID: "a", Reason: "too blunt",
			Rephrase: "be gentler", HasRephrase: true,
			Mode: "precise", HasMode: true,
			Temperature: 0.3, HasTemperature: true,
		},
		{Kind: KindText, Text: "After"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBodyTooLongFlushedAsText(t *testing.T) {
	longBody := strings.Repeat("a", 501)
	input := "<<checkpoint:" + longBody + ">>after"
	got := collect(t, input)
	text := visibleText(got)
	if !strings.Contains(text, "checkpoint:"+longBody) {
		t.Errorf("overflow body not preserved in text: %q", text)
	}
	if !strings.HasSuffix(text, "after") {
		t.Errorf("text after overflow not preserved: %q", text)
	}
}

// TestChunkingIdempotence checks that any two partitionings of the same
// input into chunks produce the same event sequence once adjacent text
// events are merged.
func TestChunkingIdempotence(t *testing.T) {
	input := "prefix <<checkpoint:a>>middle<<backtrack:a|why|mode:exploratory>>suffix"

	wholeChunk := collect(t, input)

	var byteChunks []string
	for _, r := range input {
		byteChunks = append(byteChunks, string(r))
	}
	perRune := collect(t, byteChunks...)

	mid := len(input) / 3
	threeChunks := collect(t, input[:mid], input[mid:2*mid], input[2*mid:])

	if diff := cmp.Diff(wholeChunk, perRune); diff != "" {
		t.Errorf("whole vs per-rune mismatch (-whole +perRune):\n%s", diff)
	}
	if diff := cmp.Diff(wholeChunk, threeChunks); diff != "" {
		t.Errorf("whole vs three-chunk mismatch (-whole +threeChunks):\n%s", diff)
	}
}

// TestDoubleFlushEmitsNothingAdditional checks that a second Flush with
// no intervening Feed produces no further events.
func TestDoubleFlushEmitsNothingAdditional(t *testing.T) {
	p := New()
	p.Feed("<<checkpoint:a>>partial<<back")
	first := p.Flush()
	if len(first) == 0 {
		t.Fatal("expected flush to emit the partial buffer")
	}
	second := p.Flush()
	if len(second) != 0 {
		t.Errorf("second flush emitted %d events, want 0", len(second))
	}
}
