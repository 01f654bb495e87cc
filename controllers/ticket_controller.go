package controllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/emoticket/services"
	"github.com/cppla/emoticket/utils"
)

const secretMismatchMessage = "Secret_key is wrong. Use the website to send requests"

// ticketFields lists the submission fields with their per-field error text.
var ticketFields = []struct {
	name    string
	missing string
}{
	{"text", "missing text ID"},
	{"emotion", "missing emotion ID"},
	{"user", "missing user ID"},
	{"secret", "missing secret"},
}

// TicketController serves the ticket assignment and submission endpoints.
type TicketController struct {
	tickets *services.TicketService
}

// NewTicketController creates a new controller instance.
func NewTicketController(tickets *services.TicketService) *TicketController {
	return &TicketController{tickets: tickets}
}

// GetTicket hands the caller a random text they have not annotated, with the
// secret required to submit it. The body is `false` when nothing is left.
func (t *TicketController) GetTicket(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	assignment, err := t.tickets.Assign(ctx.Request.Context(), userID)
	if errors.Is(err, services.ErrNoTextsLeft) {
		ctx.JSON(http.StatusOK, false)
		return
	}
	if err != nil {
		utils.Sugar.Errorw("assign ticket failed", "user", userID, "request_id", ctx.GetString(utils.RequestIDKey), "err", err)
		utils.Fail(ctx, http.StatusInternalServerError, "failed to load text")
		return
	}

	ctx.JSON(http.StatusOK, assignment)
}

// PostTicket records the caller's emotion label for a text and updates their streak.
func (t *TicketController) PostTicket(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	sub, fieldErrs := parseSubmission(ctx)
	if len(fieldErrs) > 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": fieldErrs})
		return
	}

	err := t.tickets.Submit(ctx.Request.Context(), userID, sub)
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, gin.H{"success": "ticket added"})
	case errors.Is(err, services.ErrSecretMismatch):
		utils.Sugar.Infow("ticket rejected", "user", userID, "payload_user", sub.User, "request_id", ctx.GetString(utils.RequestIDKey))
		utils.Fail(ctx, http.StatusBadRequest, secretMismatchMessage)
	case errors.Is(err, services.ErrInvalidEmotion):
		ctx.JSON(http.StatusBadRequest, gin.H{"message": gin.H{"emotion": "missing emotion ID"}})
	case errors.Is(err, services.ErrUnknownText):
		utils.Fail(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrDuplicateTicket):
		utils.Fail(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrSubmissionInProgress):
		utils.Fail(ctx, http.StatusTooManyRequests, err.Error())
	default:
		utils.Sugar.Errorw("add ticket failed", "user", userID, "text", sub.Text, "request_id", ctx.GetString(utils.RequestIDKey), "err", err)
		utils.Fail(ctx, http.StatusInternalServerError, "failed to add ticket")
	}
}

// parseSubmission reads the submission fields from a JSON body, form body or
// query string. Every missing or malformed field gets its own message.
func parseSubmission(ctx *gin.Context) (services.Submission, map[string]string) {
	var body map[string]interface{}
	if strings.HasPrefix(ctx.ContentType(), "application/json") {
		_ = ctx.ShouldBindJSON(&body)
	}

	var sub services.Submission
	errs := map[string]string{}
	for _, f := range ticketFields {
		raw, ok := lookupField(ctx, body, f.name)
		if !ok {
			errs[f.name] = f.missing
			continue
		}
		switch f.name {
		case "secret":
			if raw == "" {
				errs[f.name] = f.missing
			}
			sub.Secret = raw
		case "emotion":
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs[f.name] = f.missing
			}
			sub.Emotion = n
		case "text", "user":
			n, err := strconv.ParseUint(raw, 10, 0)
			if err != nil {
				errs[f.name] = f.missing
			}
			if f.name == "text" {
				sub.Text = uint(n)
			} else {
				sub.User = uint(n)
			}
		}
	}
	return sub, errs
}

func lookupField(ctx *gin.Context, body map[string]interface{}, name string) (string, bool) {
	if v, ok := body[name]; ok && v != nil {
		switch val := v.(type) {
		case string:
			return strings.TrimSpace(val), true
		case float64:
			if val != math.Trunc(val) {
				return fmt.Sprint(val), true
			}
			return strconv.FormatInt(int64(val), 10), true
		default:
			return fmt.Sprint(val), true
		}
	}
	if v, ok := ctx.GetPostForm(name); ok {
		return strings.TrimSpace(v), true
	}
	if v, ok := ctx.GetQuery(name); ok {
		return strings.TrimSpace(v), true
	}
	return "", false
}
