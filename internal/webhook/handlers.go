package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"nexa-backend/internal/extract"
	"nexa-backend/internal/phone"
	"nexa-backend/internal/pipeline"
	"nexa-backend/internal/transcript"
	"nexa-backend/internal/users"
	"nexa-backend/internal/vapi"
	"nexa-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	// Secret is the shared secret the voice platform sends with every request.
	Secret string

	Pipeline *pipeline.Processor
	Users    users.Repository
	Vapi     *vapi.Client

	// Health probes store connectivity.
	Health func(ctx context.Context) error

	// Env is echoed in the health payload. Never put secrets here.
	Env string
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// requireSecret validates the shared secret from header or query param.
// Returns false after writing a 403 when validation fails.
func (h Handlers) requireSecret(c *gin.Context) bool {
	provided := c.GetHeader(vapi.SecretHeader)
	if provided == "" {
		provided = c.Query("secret")
	}
	if !vapi.SecretMatches(provided, h.Secret) {
		logger.FromGin(c).Warn("webhook auth failed")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "invalid or missing secret token",
			"timestamp": nowISO(),
		})
		return false
	}
	return true
}

// HandleWebhook processes one inbound voice-platform webhook.
func (h Handlers) HandleWebhook(c *gin.Context) {
	log := logger.FromGin(c)
	if !h.requireSecret(c) {
		return
	}

	var env vapi.WebhookEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "no JSON received",
			"timestamp": nowISO(),
		})
		return
	}

	rawPhone := env.Message.Customer.Number
	if rawPhone == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "phone number not provided",
			"timestamp": nowISO(),
		})
		return
	}
	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		log.Warn("invalid phone in webhook", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "invalid phone number format",
			"timestamp": nowISO(),
		})
		return
	}

	// Detach from the client connection: the voice platform does not depend
	// on our response for correctness, but our data does depend on the
	// pipeline finishing once validation passed.
	ctx := context.WithoutCancel(c.Request.Context())

	switch env.Message.Type {
	case vapi.EventStatusUpdate:
		if err := h.Pipeline.TouchLastSeen(ctx, canonical); err != nil {
			log.Error("status update handling failed", "phone", canonical, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "webhook processing failed",
				"timestamp": nowISO(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "success",
			"message":   "status update acknowledged",
			"timestamp": nowISO(),
		})
		return
	case "", vapi.EventEndOfCallReport:
		// fall through to full processing
	default:
		c.JSON(http.StatusOK, gin.H{
			"status":    "ignored",
			"message":   "event type not handled",
			"timestamp": nowISO(),
		})
		return
	}

	text := env.Message.Artifact.Transcript
	if strings.TrimSpace(text) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "no transcript provided",
			"timestamp": nowISO(),
		})
		return
	}

	outcome, err := h.Pipeline.Process(ctx, canonical, text)
	if err != nil {
		log.Error("webhook processing failed", "phone", canonical, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "webhook processing failed",
			"timestamp": nowISO(),
		})
		return
	}
	if outcome == pipeline.OutcomeDuplicate {
		c.JSON(http.StatusOK, gin.H{
			"status":    "success",
			"message":   "duplicate call log detected, skipping",
			"timestamp": nowISO(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "call log stored and processed",
		"timestamp": nowISO(),
	})
}

// HandleSync pulls recent call records from the voice platform and runs each
// through the same pipeline as the webhook. Per-record failures are reported,
// not fatal.
func (h Handlers) HandleSync(c *gin.Context) {
	log := logger.FromGin(c)
	if !h.requireSecret(c) {
		return
	}

	items, err := h.Vapi.ListCalls(c.Request.Context())
	if err != nil {
		log.Error("call log sync fetch failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":     "failed to fetch call logs",
			"timestamp": nowISO(),
		})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	var processed, duplicates, failed int
	var errs []string

	for _, item := range items {
		canonical, err := phone.Normalize(item.Customer.Number)
		if err != nil {
			failed++
			errs = append(errs, "call "+item.ID+": invalid phone number")
			continue
		}
		text := item.Artifact.Transcript
		if strings.TrimSpace(text) == "" {
			text = transcript.NotAvailable
		}
		outcome, err := h.Pipeline.Process(ctx, canonical, text)
		if err != nil {
			log.Error("sync record processing failed", "call_id", item.ID, "err", err)
			failed++
			errs = append(errs, "call "+item.ID+": processing failed")
			continue
		}
		if outcome == pipeline.OutcomeDuplicate {
			duplicates++
			continue
		}
		processed++
	}

	c.JSON(http.StatusOK, gin.H{
		"total":      len(items),
		"processed":  processed,
		"duplicates": duplicates,
		"failed":     failed,
		"errors":     errs,
		"timestamp":  nowISO(),
	})
}

// HandleUserContext returns the read-only profile projection the voice
// platform pulls at call start.
func (h Handlers) HandleUserContext(c *gin.Context) {
	raw := c.Param("phone")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "phone number required",
			"timestamp": nowISO(),
		})
		return
	}
	canonical, err := phone.Normalize(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "invalid phone number format",
			"timestamp": nowISO(),
		})
		return
	}

	u, err := h.Users.FindByPhone(c.Request.Context(), canonical)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"exists":    false,
				"message":   "new user detected",
				"timestamp": nowISO(),
			})
			return
		}
		logger.FromGin(c).Error("user context lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "failed to fetch user context",
			"timestamp": nowISO(),
		})
		return
	}

	recent := u.Calls
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	goals := make([]string, 0, len(recent))
	interactions := make([]gin.H, 0, len(recent))
	for _, call := range recent {
		if call.NetworkingGoal != extract.NotMentioned {
			goals = append(goals, call.NetworkingGoal)
		}
		interactions = append(interactions, gin.H{
			"call_number":     call.CallNumber,
			"timestamp":       call.Timestamp,
			"networking_goal": call.NetworkingGoal,
			"meeting_type":    call.MeetingType,
			"meeting_status":  call.MeetingStatus,
			"proposed_date":   call.ProposedMeetingDate,
			"proposed_time":   call.ProposedMeetingTime,
			"call_summary":    call.CallSummary,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"exists": true,
		"user_info": gin.H{
			"name":             u.Name,
			"profession":       u.Profession,
			"bio":              u.Bio,
			"email":            u.Email,
			"nexa_id":          u.NexaID,
			"signup_status":    u.SignupStatus,
			"total_calls":      len(u.Calls),
			"networking_goals": goals,
			"created_at":       u.CreatedAt,
			"last_updated":     u.LastUpdated,
		},
		"recent_interactions": interactions,
		"timestamp":           nowISO(),
	})
}

// HandleHealth probes store connectivity.
func (h Handlers) HandleHealth(c *gin.Context) {
	if err := h.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": nowISO(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"database":    gin.H{"status": "connected"},
		"environment": h.Env,
		"timestamp":   nowISO(),
	})
}

// HandleHome is the service banner.
func (h Handlers) HandleHome(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Welcome to Nexa Backend! Your AI-powered networking assistant is live.",
		"status":    "healthy",
		"timestamp": nowISO(),
	})
}
