package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NotMentioned is the explicit "field not mentioned" sentinel. It is distinct
// from absence so that merges can tell "nothing learned" apart from an empty
// value, and it never overwrites previously known data downstream.
const NotMentioned = "Not Mentioned"

// maxFieldLen bounds every extracted value before it reaches storage.
const maxFieldLen = 500

// fieldSpec is the single source of truth for one extracted field: the JSON
// key requested from the model and the hint placed in the prompt schema. The
// same specs drive prompt generation and response cleaning, so the two can
// never drift apart.
type fieldSpec struct {
	key  string
	hint string
}

const bioKey = "Bio_Components"

var identityFields = []fieldSpec{
	{"Name", "Full name if mentioned"},
	{"Email", "Email if mentioned"},
	{"Profession", "Role and company name, e.g. 'Co-founder, MedX AI (Healthcare Startup)'"},
}

var bioFields = []fieldSpec{
	{"Company", "Company name"},
	{"Experience", "Years of experience"},
	{"Industry", "Industry sector"},
	{"Background", "What they do and their expertise"},
	{"Achievements", "Specific achievements and metrics"},
	{"Current_Status", "Current company/product status"},
}

var intentFields = []fieldSpec{
	{"Networking Goal", "What they want to achieve in detail"},
	{"Meeting Type", "Type of meeting requested"},
	{"Proposed Meeting Date", "Any mentioned date"},
	{"Proposed Meeting Time", "Any mentioned time"},
	{"Call Summary", "Comprehensive overview of key points discussed"},
}

// BioComponents are the structured pieces the composed bio is built from.
type BioComponents struct {
	Company       string `bson:"company" json:"company"`
	Experience    string `bson:"experience" json:"experience"`
	Industry      string `bson:"industry" json:"industry"`
	Background    string `bson:"background" json:"background"`
	Achievements  string `bson:"achievements" json:"achievements"`
	CurrentStatus string `bson:"current_status" json:"current_status"`
}

// Extraction is the structured result of one transcript analysis. Every field
// defaults to NotMentioned; a zero-value Extraction is NOT valid, use Default.
type Extraction struct {
	Name       string
	Email      string
	Profession string
	Bio        BioComponents

	NetworkingGoal      string
	MeetingType         string
	ProposedMeetingDate string
	ProposedMeetingTime string
	CallSummary         string
}

// Default returns an all-sentinel extraction, the "nothing learned" value.
func Default() Extraction {
	e := Extraction{}
	for _, dst := range e.identityTargets() {
		*dst = NotMentioned
	}
	for _, dst := range e.bioTargets() {
		*dst = NotMentioned
	}
	for _, dst := range e.intentTargets() {
		*dst = NotMentioned
	}
	return e
}

func (e *Extraction) identityTargets() map[string]*string {
	return map[string]*string{
		"Name":       &e.Name,
		"Email":      &e.Email,
		"Profession": &e.Profession,
	}
}

func (e *Extraction) bioTargets() map[string]*string {
	return map[string]*string{
		"Company":        &e.Bio.Company,
		"Experience":     &e.Bio.Experience,
		"Industry":       &e.Bio.Industry,
		"Background":     &e.Bio.Background,
		"Achievements":   &e.Bio.Achievements,
		"Current_Status": &e.Bio.CurrentStatus,
	}
}

func (e *Extraction) intentTargets() map[string]*string {
	return map[string]*string{
		"Networking Goal":       &e.NetworkingGoal,
		"Meeting Type":          &e.MeetingType,
		"Proposed Meeting Date": &e.ProposedMeetingDate,
		"Proposed Meeting Time": &e.ProposedMeetingTime,
		"Call Summary":          &e.CallSummary,
	}
}

// fromRaw maps a decoded model response onto an Extraction, defaulting and
// sanitizing every field independently.
func fromRaw(raw map[string]any) Extraction {
	e := Default()
	for key, dst := range e.identityTargets() {
		*dst = CleanField(stringAt(raw, key))
	}
	for key, dst := range e.intentTargets() {
		*dst = CleanField(stringAt(raw, key))
	}
	bio, _ := raw[bioKey].(map[string]any)
	for key, dst := range e.bioTargets() {
		*dst = CleanField(stringAt(bio, key))
	}
	return e
}

func stringAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// nonAnswers are model outputs that mean "unknown" and must collapse to the
// sentinel, matched case-insensitively.
var nonAnswers = map[string]struct{}{
	"none":          {},
	"null":          {},
	"undefined":     {},
	"not mentioned": {},
}

var (
	markupRe     = regexp.MustCompile(`<[^>]*>`)
	disallowedRe = regexp.MustCompile(`[^\w\s.,!?@&:;'"()+/%$-]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// CleanField normalizes one extracted value: non-answers become the sentinel,
// everything else is sanitized. The non-answer check runs on the sanitized
// value, so markup-wrapped forms like "<b>none</b>" still collapse, and an
// empty result is also a sentinel, so storage never sees blanks.
func CleanField(v string) string {
	v = Sanitize(v)
	if v == "" {
		return NotMentioned
	}
	if _, ok := nonAnswers[strings.ToLower(v)]; ok {
		return NotMentioned
	}
	return v
}

// Sanitize defends storage against oversized or adversarial model output:
// markup stripped, characters outside a conservative allow-list dropped,
// whitespace collapsed, length capped.
func Sanitize(v string) string {
	v = markupRe.ReplaceAllString(v, " ")
	v = disallowedRe.ReplaceAllString(v, "")
	v = spaceRe.ReplaceAllString(v, " ")
	v = strings.TrimSpace(v)
	if r := []rune(v); len(r) > maxFieldLen {
		v = strings.TrimSpace(string(r[:maxFieldLen]))
	}
	return v
}

// systemPrompt renders the instruction prompt from the field specs, so the
// schema the model is asked for always matches what fromRaw consumes.
func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an AI assistant that extracts detailed information from a voice call transcript and returns it in JSON format.\n")
	b.WriteString("Extract the following fields and return them in a JSON object:\n\n{\n")
	for _, f := range identityFields {
		fmt.Fprintf(&b, "    %s: %s,\n", strconv.Quote(f.key), strconv.Quote(f.hint))
	}
	fmt.Fprintf(&b, "    %s: {\n", strconv.Quote(bioKey))
	for i, f := range bioFields {
		sep := ","
		if i == len(bioFields)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "        %s: %s%s\n", strconv.Quote(f.key), strconv.Quote(f.hint), sep)
	}
	b.WriteString("    },\n")
	for i, f := range intentFields {
		sep := ","
		if i == len(intentFields)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    %s: %s%s\n", strconv.Quote(f.key), strconv.Quote(f.hint), sep)
	}
	b.WriteString("}\n\n")
	b.WriteString("Be specific and detailed in the " + bioKey + " section.\n")
	b.WriteString("If a field is not mentioned in the transcript, use '" + NotMentioned + "' as the value.\n")
	b.WriteString("Remember to return the response in valid JSON format.")
	return b.String()
}
