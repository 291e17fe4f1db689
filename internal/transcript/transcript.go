package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NotAvailable is the placeholder the voice platform sends when a call produced
// no usable transcript. Extraction short-circuits on it.
const NotAvailable = "Not Available"

const (
	RoleBot  = "bot"
	RoleUser = "user"
)

// Hash returns the content fingerprint used as the dedup key for call logs.
// It is stable across restarts and is never used as a security control.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Message is one role-tagged turn of a call conversation.
type Message struct {
	Role    string `bson:"role" json:"role"`
	Message string `bson:"message" json:"message"`
}

// ParseTurns splits a raw transcript into role-tagged turns. The voice platform
// prefixes each line with "AI: " or "User: "; unprefixed lines are dropped.
func ParseTurns(text string) []Message {
	var msgs []Message
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "AI: "):
			msgs = append(msgs, Message{Role: RoleBot, Message: strings.TrimSpace(line[len("AI: "):])})
		case strings.HasPrefix(line, "User: "):
			msgs = append(msgs, Message{Role: RoleUser, Message: strings.TrimSpace(line[len("User: "):])})
		}
	}
	return msgs
}
