package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nexa-backend/internal/extract"
)

// Reconciler finds-or-creates a profile for a canonical phone number and
// applies newly extracted fields under a non-destructive merge: a non-sentinel
// value overwrites, a sentinel never clobbers known data.
type Reconciler struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewReconciler(repo Repository, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{repo: repo, log: log, clock: time.Now}
}

// Reconcile returns the up-to-date profile for phone after merging ext into
// it, creating the profile if this is the first call from that number. The
// returned bool reports whether a new profile was created.
func (r *Reconciler) Reconcile(ctx context.Context, phone string, ext extract.Extraction) (User, bool, error) {
	now := r.clock().UTC()

	u, err := r.repo.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		merged, err := r.merge(ctx, u, ext, now)
		return merged, false, err
	case errors.Is(err, ErrNotFound):
		// fall through to create
	default:
		return User{}, false, err
	}

	created, err := r.create(ctx, phone, ext, now)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrDuplicatePhone) {
		return User{}, false, err
	}

	// Another request created the profile between our find and insert. The
	// unique index already decided the winner; re-fetch and merge instead.
	r.log.Info("profile creation raced, merging into existing", "phone", phone)
	u, err = r.repo.FindByPhone(ctx, phone)
	if err != nil {
		return User{}, false, err
	}
	merged, err := r.merge(ctx, u, ext, now)
	return merged, false, err
}

func (r *Reconciler) create(ctx context.Context, phone string, ext extract.Extraction, now time.Time) (User, error) {
	n, err := r.repo.Count(ctx)
	if err != nil {
		return User{}, err
	}
	u := User{
		NexaID:       FormatNexaID(n + 1),
		Name:         ext.Name,
		Email:        ext.Email,
		Phone:        phone,
		Profession:   ext.Profession,
		Bio:          ComposeBio(ext.Bio),
		BioParts:     ext.Bio,
		SignupStatus: SignupStatusIncomplete,
		Calls:        []CallRecord{},
		CreatedAt:    now,
		LastUpdated:  now,
	}
	if err := r.repo.Insert(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *Reconciler) merge(ctx context.Context, u User, ext extract.Extraction, now time.Time) (User, error) {
	var patch ProfileUpdate

	if v, changed := mergeField(u.Name, ext.Name); changed {
		patch.Name = &v
	}
	if v, changed := mergeField(u.Email, ext.Email); changed {
		patch.Email = &v
	}
	if v, changed := mergeField(u.Profession, ext.Profession); changed {
		patch.Profession = &v
	}
	if parts, changed := mergeBio(u.BioParts, ext.Bio); changed {
		bio := ComposeBio(parts)
		patch.BioParts = &parts
		patch.Bio = &bio
	}

	if patch.empty() {
		return u, nil
	}
	if err := r.repo.Update(ctx, u.Phone, patch, now); err != nil {
		return User{}, err
	}

	// Mirror the patch locally so callers see the merged state without a
	// second round-trip.
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Profession != nil {
		u.Profession = *patch.Profession
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.BioParts != nil {
		u.BioParts = *patch.BioParts
	}
	u.LastUpdated = now
	return u, nil
}

// mergeField reports the value a field should hold after seeing incoming, and
// whether that differs from existing. A sentinel incoming value never wins.
func mergeField(existing, incoming string) (string, bool) {
	if incoming == extract.NotMentioned || incoming == existing {
		return existing, false
	}
	return incoming, true
}

func mergeBio(existing, incoming extract.BioComponents) (extract.BioComponents, bool) {
	out := existing
	changed := false
	merge := func(dst *string, in string) {
		if v, c := mergeField(*dst, in); c {
			*dst = v
			changed = true
		}
	}
	merge(&out.Company, incoming.Company)
	merge(&out.Experience, incoming.Experience)
	merge(&out.Industry, incoming.Industry)
	merge(&out.Background, incoming.Background)
	merge(&out.Achievements, incoming.Achievements)
	merge(&out.CurrentStatus, incoming.CurrentStatus)
	return out, changed
}

// FormatNexaID renders the human-readable sequential profile ID.
func FormatNexaID(n int64) string {
	return fmt.Sprintf("NEXA%05d", n)
}

// ComposeBio regenerates the free-text bio from the structured components.
// Returns the sentinel when no component is known.
func ComposeBio(bc extract.BioComponents) string {
	var sentences []string

	lead := ""
	if bc.Company != extract.NotMentioned {
		lead = "Works at " + bc.Company
	}
	if bc.Experience != extract.NotMentioned {
		if lead != "" {
			lead += " with " + bc.Experience + " of experience"
		} else {
			lead = "Has " + bc.Experience + " of experience"
		}
	}
	if bc.Industry != extract.NotMentioned {
		if lead != "" {
			lead += " in the " + bc.Industry + " industry"
		} else {
			lead = "Active in the " + bc.Industry + " industry"
		}
	}
	if lead != "" {
		sentences = append(sentences, lead)
	}
	if bc.Background != extract.NotMentioned {
		sentences = append(sentences, strings.TrimSuffix(bc.Background, "."))
	}
	if bc.Achievements != extract.NotMentioned {
		sentences = append(sentences, "Key achievements include "+strings.TrimSuffix(bc.Achievements, "."))
	}
	if bc.CurrentStatus != extract.NotMentioned {
		sentences = append(sentences, "Currently "+strings.TrimSuffix(bc.CurrentStatus, "."))
	}

	if len(sentences) == 0 {
		return extract.NotMentioned
	}
	return strings.Join(sentences, ". ") + "."
}
