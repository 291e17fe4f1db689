package users

import (
	"time"

	"nexa-backend/internal/extract"
	"nexa-backend/internal/transcript"
)

// User is a caller profile, keyed by canonical phone number.
//
// Invariants:
// - Phone is unique across the collection (unique index enforced).
// - Calls is append-only; records are never reordered or deleted.
// - Descriptive fields hold the sentinel, never an empty string, when unknown.
type User struct {
	NexaID       string                `bson:"nexa_id" json:"nexa_id"`
	Name         string                `bson:"name" json:"name"`
	Email        string                `bson:"email" json:"email"`
	Phone        string                `bson:"phone" json:"phone"`
	Profession   string                `bson:"profession" json:"profession"`
	Bio          string                `bson:"bio" json:"bio"`
	BioParts     extract.BioComponents `bson:"bio_parts" json:"bio_parts"`
	SignupStatus string                `bson:"signup_status" json:"signup_status"`
	Calls        []CallRecord          `bson:"calls" json:"calls"`
	CreatedAt    time.Time             `bson:"created_at" json:"created_at"`
	LastUpdated  time.Time             `bson:"last_updated" json:"last_updated"`
}

const SignupStatusIncomplete = "Incomplete"

// CallRecord is one append-only entry in a profile's call history.
// CallNumber is 1-based and dense within the profile.
type CallRecord struct {
	CallNumber int       `bson:"call_number" json:"call_number"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`

	NetworkingGoal      string `bson:"networking_goal" json:"networking_goal"`
	MeetingType         string `bson:"meeting_type" json:"meeting_type"`
	ProposedMeetingDate string `bson:"proposed_meeting_date" json:"proposed_meeting_date"`
	ProposedMeetingTime string `bson:"proposed_meeting_time" json:"proposed_meeting_time"`

	MeetingStatus        string  `bson:"meeting_status" json:"meeting_status"`
	FinalizedMeetingDate *string `bson:"finalized_meeting_date" json:"finalized_meeting_date"`
	FinalizedMeetingTime *string `bson:"finalized_meeting_time" json:"finalized_meeting_time"`
	MeetingLink          *string `bson:"meeting_link" json:"meeting_link"`
	ParticipantsNotified bool    `bson:"participants_notified" json:"participants_notified"`

	Status       string               `bson:"status" json:"status"`
	CallSummary  string               `bson:"call_summary" json:"call_summary"`
	Conversation []transcript.Message `bson:"conversation" json:"conversation"`
}

const (
	MeetingStatusPending = "Pending Confirmation"

	CallStatusCompleted = "Completed"
)

// DefaultSummary is stored when extraction learned nothing about the call.
const DefaultSummary = "No summary available."

// ProfileUpdate is a typed patch for the mutable descriptive fields. Nil
// pointers mean "leave as is"; the reconciler only sets a pointer when the
// incoming value is non-sentinel, which is what makes merges non-destructive.
type ProfileUpdate struct {
	Name       *string
	Email      *string
	Profession *string
	Bio        *string
	BioParts   *extract.BioComponents
}

func (p ProfileUpdate) empty() bool {
	return p.Name == nil && p.Email == nil && p.Profession == nil && p.Bio == nil && p.BioParts == nil
}
