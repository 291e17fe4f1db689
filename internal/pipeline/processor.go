package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nexa-backend/internal/calllog"
	"nexa-backend/internal/extract"
	"nexa-backend/internal/transcript"
	"nexa-backend/internal/users"
)

// Extractor is the pipeline's view of transcript analysis. The returned value
// is always usable even when err is non-nil; the pipeline logs the error and
// continues with the defaults so a failed extraction never loses the call.
type Extractor interface {
	Extract(ctx context.Context, text, priorContext string) (extract.Extraction, error)
}

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
)

// Processor runs the per-call reconciliation pipeline:
// dedup insert -> extract -> profile merge -> history append -> log flip.
// Steps are strictly ordered; there is no intra-request parallelism.
type Processor struct {
	users      users.Repository
	reconciler *users.Reconciler
	logs       calllog.Repository
	extractor  Extractor
	log        *slog.Logger
	clock      func() time.Time
}

func New(userRepo users.Repository, logRepo calllog.Repository, x Extractor, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		users:      userRepo,
		reconciler: users.NewReconciler(userRepo, log),
		logs:       logRepo,
		extractor:  x,
		log:        log,
		clock:      time.Now,
	}
}

// Process handles one (canonical phone, transcript) pair end to end.
//
// The call-log insert doubles as the dedup gate: the unique (phone, hash)
// index makes it atomic, so exactly one of any set of identical concurrent
// deliveries proceeds past it. OutcomeDuplicate means everything was already
// done for this payload and no write happened.
func (p *Processor) Process(ctx context.Context, phone, text string) (Outcome, error) {
	now := p.clock().UTC()
	hash := transcript.Hash(text)

	err := p.logs.Insert(ctx, calllog.Entry{
		Phone:          phone,
		TranscriptHash: hash,
		Transcript:     text,
		CallSummary:    calllog.ProcessingSummary,
		Processed:      false,
		Timestamp:      now,
		LastUpdated:    now,
	})
	if err != nil {
		if errors.Is(err, calllog.ErrDuplicate) {
			p.log.Info("duplicate call log, skipping", "phone", phone, "hash", hash)
			return OutcomeDuplicate, nil
		}
		return "", fmt.Errorf("pipeline: store call log: %w", err)
	}

	prior := ""
	if existing, err := p.users.FindByPhone(ctx, phone); err == nil {
		prior = priorContext(existing)
	} else if !errors.Is(err, users.ErrNotFound) {
		return "", fmt.Errorf("pipeline: load profile: %w", err)
	}

	ext, err := p.extractor.Extract(ctx, text, prior)
	if err != nil {
		// Degrades to "nothing learned this call"; the call is still recorded.
		p.log.Warn("extraction failed, continuing with defaults", "phone", phone, "err", err)
	}

	u, created, err := p.reconciler.Reconcile(ctx, phone, ext)
	if err != nil {
		return "", fmt.Errorf("pipeline: reconcile profile: %w", err)
	}

	summary := ext.CallSummary
	if summary == extract.NotMentioned {
		summary = users.DefaultSummary
	}
	msgs := transcript.ParseTurns(text)

	rec := users.CallRecord{
		CallNumber:          len(u.Calls) + 1,
		Timestamp:           now,
		NetworkingGoal:      ext.NetworkingGoal,
		MeetingType:         ext.MeetingType,
		ProposedMeetingDate: ext.ProposedMeetingDate,
		ProposedMeetingTime: ext.ProposedMeetingTime,
		MeetingStatus:       users.MeetingStatusPending,
		Status:              users.CallStatusCompleted,
		CallSummary:         summary,
		Conversation:        msgs,
	}
	if err := p.users.AppendCall(ctx, phone, rec, now); err != nil {
		return "", fmt.Errorf("pipeline: append call record: %w", err)
	}

	// A crash between the append above and this flip leaves the entry in
	// processing state; the dedup key lives on the log entry, so reprocessing
	// is a manual decision, not an automatic one.
	if err := p.logs.MarkProcessed(ctx, phone, hash, summary, msgs, now); err != nil {
		return "", fmt.Errorf("pipeline: mark call log processed: %w", err)
	}

	p.log.Info("call processed", "phone", phone, "call_number", rec.CallNumber, "new_profile", created)
	return OutcomeProcessed, nil
}

// priorContext summarizes what earlier calls already established, so the
// model can resolve references like "as I mentioned last time". Empty for
// profiles that have learned nothing yet.
func priorContext(u users.User) string {
	var parts []string
	if u.Name != extract.NotMentioned {
		parts = append(parts, "Name: "+u.Name)
	}
	if u.Profession != extract.NotMentioned {
		parts = append(parts, "Profession: "+u.Profession)
	}
	if n := len(u.Calls); n > 0 {
		if s := u.Calls[n-1].CallSummary; s != users.DefaultSummary {
			parts = append(parts, "Last call summary: "+s)
		}
	}
	return strings.Join(parts, "\n")
}

// TouchLastSeen refreshes the profile's last-activity marker for in-progress
// call events. Unknown numbers are a no-op: a profile is only created by a
// final call event.
func (p *Processor) TouchLastSeen(ctx context.Context, phone string) error {
	err := p.users.TouchLastUpdated(ctx, phone, p.clock().UTC())
	if errors.Is(err, users.ErrNotFound) {
		return nil
	}
	return err
}
