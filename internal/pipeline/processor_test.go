package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nexa-backend/internal/calllog"
	"nexa-backend/internal/extract"
	"nexa-backend/internal/transcript"
	"nexa-backend/internal/users"
)

type stubExtractor struct {
	ext    extract.Extraction
	err    error
	calls  int
	priors []string
}

func (s *stubExtractor) Extract(ctx context.Context, text, priorContext string) (extract.Extraction, error) {
	s.calls++
	s.priors = append(s.priors, priorContext)
	if s.err != nil {
		return extract.Default(), s.err
	}
	return s.ext, nil
}

func newTestProcessor(x Extractor) (*Processor, *users.MemoryRepo, *calllog.MemoryRepo) {
	userRepo := users.NewMemoryRepo()
	logRepo := calllog.NewMemoryRepo()
	return New(userRepo, logRepo, x, nil), userRepo, logRepo
}

const testPhone = "+919876543210"

func TestProcess_FirstCallCreatesEverything(t *testing.T) {
	ext := extract.Default()
	ext.Name = "Asha"
	ext.NetworkingGoal = "Looking for a Series A intro"
	ext.CallSummary = "Asha wants a Series A intro."
	x := &stubExtractor{ext: ext}
	p, userRepo, logRepo := newTestProcessor(x)

	text := "User: Hi, I'm Asha, I run a fintech startup.\nAI: Great, what's your goal?\nUser: Looking for a Series A intro."
	out, err := p.Process(context.Background(), testPhone, text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != OutcomeProcessed {
		t.Fatalf("outcome = %q", out)
	}

	u, err := userRepo.FindByPhone(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("profile not created: %v", err)
	}
	if u.NexaID != "NEXA00001" {
		t.Fatalf("NexaID = %q", u.NexaID)
	}
	if len(u.Calls) != 1 {
		t.Fatalf("expected 1 call record, got %d", len(u.Calls))
	}
	rec := u.Calls[0]
	if rec.CallNumber != 1 {
		t.Fatalf("CallNumber = %d", rec.CallNumber)
	}
	if rec.NetworkingGoal != "Looking for a Series A intro" {
		t.Fatalf("NetworkingGoal = %q", rec.NetworkingGoal)
	}
	if rec.MeetingStatus != users.MeetingStatusPending || rec.ParticipantsNotified {
		t.Fatalf("meeting lifecycle defaults wrong: %+v", rec)
	}
	if rec.FinalizedMeetingDate != nil || rec.MeetingLink != nil {
		t.Fatalf("finalized fields must start nil")
	}
	if len(rec.Conversation) != 3 {
		t.Fatalf("expected 3 parsed turns, got %d", len(rec.Conversation))
	}

	entry, err := logRepo.Find(context.Background(), testPhone, transcript.Hash(text))
	if err != nil {
		t.Fatalf("log entry missing: %v", err)
	}
	if !entry.Processed {
		t.Fatalf("log entry not flipped to processed")
	}
	if entry.CallSummary != "Asha wants a Series A intro." {
		t.Fatalf("summary not mirrored: %q", entry.CallSummary)
	}
}

func TestProcess_IdenticalPayloadIsIdempotent(t *testing.T) {
	x := &stubExtractor{ext: extract.Default()}
	p, userRepo, logRepo := newTestProcessor(x)
	text := "User: hello"

	if out, err := p.Process(context.Background(), testPhone, text); err != nil || out != OutcomeProcessed {
		t.Fatalf("first run: out=%q err=%v", out, err)
	}
	out, err := p.Process(context.Background(), testPhone, text)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if out != OutcomeDuplicate {
		t.Fatalf("second run outcome = %q, want duplicate", out)
	}
	if x.calls != 1 {
		t.Fatalf("duplicate must not re-extract, got %d calls", x.calls)
	}
	if logRepo.Len() != 1 {
		t.Fatalf("expected exactly one log entry, got %d", logRepo.Len())
	}
	u, _ := userRepo.FindByPhone(context.Background(), testPhone)
	if len(u.Calls) != 1 {
		t.Fatalf("expected exactly one call record, got %d", len(u.Calls))
	}
}

func TestProcess_SecondCallCarriesPriorContext(t *testing.T) {
	ext := extract.Default()
	ext.Name = "Asha"
	ext.Profession = "Founder"
	ext.CallSummary = "Asha wants a Series A intro."
	x := &stubExtractor{ext: ext}
	p, _, _ := newTestProcessor(x)

	if _, err := p.Process(context.Background(), testPhone, "User: first call"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := p.Process(context.Background(), testPhone, "User: second call"); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if len(x.priors) != 2 {
		t.Fatalf("expected 2 extractions, got %d", len(x.priors))
	}
	if x.priors[0] != "" {
		t.Fatalf("first call must have no prior context, got %q", x.priors[0])
	}
	for _, want := range []string{"Asha", "Founder", "Asha wants a Series A intro."} {
		if !strings.Contains(x.priors[1], want) {
			t.Fatalf("prior context missing %q: %q", want, x.priors[1])
		}
	}
}

func TestPriorContext_SkipsSentinels(t *testing.T) {
	u := users.User{
		Name:       extract.NotMentioned,
		Profession: extract.NotMentioned,
		Calls:      []users.CallRecord{{CallSummary: users.DefaultSummary}},
	}
	if got := priorContext(u); got != "" {
		t.Fatalf("all-sentinel profile must yield empty context, got %q", got)
	}
}

func TestProcess_SequenceNumbersAreDense(t *testing.T) {
	x := &stubExtractor{ext: extract.Default()}
	p, userRepo, _ := newTestProcessor(x)

	for i, text := range []string{"User: one", "User: two", "User: three"} {
		if _, err := p.Process(context.Background(), testPhone, text); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
	u, _ := userRepo.FindByPhone(context.Background(), testPhone)
	if len(u.Calls) != 3 {
		t.Fatalf("expected 3 records, got %d", len(u.Calls))
	}
	for i, rec := range u.Calls {
		if rec.CallNumber != i+1 {
			t.Fatalf("record %d has CallNumber %d", i, rec.CallNumber)
		}
	}
}

func TestProcess_ExtractionFailureStillRecordsCall(t *testing.T) {
	x := &stubExtractor{err: errors.New("model down")}
	p, userRepo, logRepo := newTestProcessor(x)
	text := "User: hello there"

	out, err := p.Process(context.Background(), testPhone, text)
	if err != nil {
		t.Fatalf("extraction failure must not fail the pipeline: %v", err)
	}
	if out != OutcomeProcessed {
		t.Fatalf("outcome = %q", out)
	}
	u, err := userRepo.FindByPhone(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("profile should exist: %v", err)
	}
	if len(u.Calls) != 1 || u.Calls[0].CallSummary != users.DefaultSummary {
		t.Fatalf("expected one record with default summary, got %+v", u.Calls)
	}
	entry, _ := logRepo.Find(context.Background(), testPhone, transcript.Hash(text))
	if entry.CallSummary != users.DefaultSummary || !entry.Processed {
		t.Fatalf("log entry not finalized with default summary: %+v", entry)
	}
}

func TestProcess_NotAvailableTranscriptUsesDefaults(t *testing.T) {
	x := &stubExtractor{ext: extract.Default()}
	p, userRepo, _ := newTestProcessor(x)

	out, err := p.Process(context.Background(), testPhone, transcript.NotAvailable)
	if err != nil || out != OutcomeProcessed {
		t.Fatalf("out=%q err=%v", out, err)
	}
	u, _ := userRepo.FindByPhone(context.Background(), testPhone)
	if len(u.Calls) != 1 || u.Calls[0].CallSummary != users.DefaultSummary {
		t.Fatalf("expected default-summary record, got %+v", u.Calls)
	}
}

func TestTouchLastSeen_UnknownNumberIsNoop(t *testing.T) {
	p, _, _ := newTestProcessor(&stubExtractor{ext: extract.Default()})
	if err := p.TouchLastSeen(context.Background(), testPhone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
