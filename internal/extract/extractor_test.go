package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"nexa-backend/internal/transcript"
)

type fakeChat struct {
	reply string
	err   error
	calls int
}

func (f *fakeChat) Chat(ctx context.Context, system, user string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func newTestExtractor(c ChatClient) *Extractor {
	x := New(c, slog.Default())
	x.backoff = time.Millisecond
	return x
}

func TestExtract_ShortCircuitsWithoutTranscript(t *testing.T) {
	fc := &fakeChat{}
	x := newTestExtractor(fc)

	for _, text := range []string{"", "   ", transcript.NotAvailable} {
		got, err := x.Extract(context.Background(), text, "")
		if err != nil {
			t.Fatalf("Extract(%q): unexpected error %v", text, err)
		}
		if got != Default() {
			t.Fatalf("Extract(%q): expected defaults, got %+v", text, got)
		}
	}
	if fc.calls != 0 {
		t.Fatalf("expected no model calls, got %d", fc.calls)
	}
}

func TestExtract_CleansAndDefaultsFields(t *testing.T) {
	fc := &fakeChat{reply: `{
		"Name": "  Asha Rao ",
		"Email": "none",
		"Profession": "<b>Founder</b>, Finly",
		"Bio_Components": {
			"Company": "Finly",
			"Experience": null,
			"Industry": "Fintech",
			"Background": "NOT MENTIONED",
			"Achievements": "undefined",
			"Current_Status": "Raising   Series A"
		},
		"Networking Goal": "Looking for a Series A intro",
		"Meeting Type": "Null",
		"Proposed Meeting Date": "",
		"Call Summary": "Asha runs a fintech startup."
	}`}
	x := newTestExtractor(fc)

	got, err := x.Extract(context.Background(), "User: Hi, I'm Asha.", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Asha Rao" {
		t.Fatalf("Name = %q", got.Name)
	}
	if got.Email != NotMentioned {
		t.Fatalf("Email = %q, want sentinel", got.Email)
	}
	if got.Profession != "Founder , Finly" && got.Profession != "Founder, Finly" {
		t.Fatalf("Profession = %q, markup not stripped", got.Profession)
	}
	if strings.Contains(got.Profession, "<") {
		t.Fatalf("Profession still contains markup: %q", got.Profession)
	}
	if got.Bio.Company != "Finly" || got.Bio.Industry != "Fintech" {
		t.Fatalf("bio components not extracted: %+v", got.Bio)
	}
	for name, v := range map[string]string{
		"Experience":    got.Bio.Experience,
		"Background":    got.Bio.Background,
		"Achievements":  got.Bio.Achievements,
		"MeetingType":   got.MeetingType,
		"ProposedDate":  got.ProposedMeetingDate,
		"ProposedTime":  got.ProposedMeetingTime,
	} {
		if v != NotMentioned {
			t.Fatalf("%s = %q, want sentinel", name, v)
		}
	}
	if got.Bio.CurrentStatus != "Raising Series A" {
		t.Fatalf("whitespace not collapsed: %q", got.Bio.CurrentStatus)
	}
	if got.NetworkingGoal != "Looking for a Series A intro" {
		t.Fatalf("NetworkingGoal = %q", got.NetworkingGoal)
	}
}

func TestExtract_ModelFailureReturnsDefaults(t *testing.T) {
	fc := &fakeChat{err: errors.New("boom")}
	x := newTestExtractor(fc)

	got, err := x.Extract(context.Background(), "User: hello", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got != Default() {
		t.Fatalf("expected defaults on failure, got %+v", got)
	}
	if fc.calls != 2 {
		t.Fatalf("expected one retry (2 calls), got %d", fc.calls)
	}
}

func TestExtract_MalformedJSONReturnsDefaults(t *testing.T) {
	fc := &fakeChat{reply: "this is not json"}
	x := newTestExtractor(fc)

	got, err := x.Extract(context.Background(), "User: hello", "")
	if err == nil {
		t.Fatalf("expected error for malformed response")
	}
	if got != Default() {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if fc.calls != 1 {
		t.Fatalf("malformed JSON is not transient, expected no retry, got %d calls", fc.calls)
	}
}

func TestCleanField_CollapsesWrappedNonAnswers(t *testing.T) {
	cases := map[string]string{
		"<b>none</b>":      NotMentioned,
		"  Null ":          NotMentioned,
		"<i>undefined</i>": NotMentioned,
		"Not   Mentioned":  NotMentioned,
		"<p></p>":          NotMentioned,
		"<b>Asha</b>":      "Asha",
	}
	for in, want := range cases {
		if got := CleanField(in); got != want {
			t.Fatalf("CleanField(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitize_TruncatesOversizedValues(t *testing.T) {
	long := strings.Repeat("a", 2*maxFieldLen)
	if got := Sanitize(long); len([]rune(got)) != maxFieldLen {
		t.Fatalf("expected %d runes, got %d", maxFieldLen, len([]rune(got)))
	}
}

func TestSystemPrompt_CoversAllFields(t *testing.T) {
	p := systemPrompt()
	for _, fs := range [][]fieldSpec{identityFields, bioFields, intentFields} {
		for _, f := range fs {
			if !strings.Contains(p, `"`+f.key+`"`) {
				t.Fatalf("prompt missing field %q", f.key)
			}
		}
	}
	if !strings.Contains(p, bioKey) {
		t.Fatalf("prompt missing %s section", bioKey)
	}
}
