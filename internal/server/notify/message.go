package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/server/escalation"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
)

// Email is a rendered message, backend-agnostic.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// builder renders stage-appropriate email copy. The urgency wording and the
// days-remaining arithmetic match what the vault UI tells users to expect;
// the link-validity wording follows the configured token TTL.
type builder struct {
	baseURL   string
	graceDays int
	tokenTTL  time.Duration
}

func (b builder) verifyURL(token string) string {
	return strings.TrimRight(b.baseURL, "/") + "/api/activity/verify/" + token
}

func (b builder) activityCheck(rec *models.ActivityRecord, stage escalation.Stage, daysInactive int, token string) Email {
	period := rec.InactivityPeriodDays
	daysRemaining := period - daysInactive

	var urgency, timeRemaining string
	switch stage {
	case escalation.StageWarn50:
		urgency = "Routine Check-In"
		timeRemaining = fmt.Sprintf("You have %d days remaining before the next check.", daysRemaining)
	case escalation.StageWarn75:
		urgency = "Important Reminder"
		timeRemaining = fmt.Sprintf("Only %d days remaining before final notifications begin.", daysRemaining)
	case escalation.StageFinalWeek:
		urgency = "URGENT: Final Week Notice"
		timeRemaining = fmt.Sprintf("Only %d days left! Daily reminders will be sent.", daysRemaining)
	case escalation.StageGracePeriod:
		urgency = "CRITICAL: Grace Period Active"
		graceDaysLeft := b.graceDays - (daysInactive - period)
		timeRemaining = fmt.Sprintf("Your trusted contacts will be notified in %d days if you don't respond!", graceDaysLeft)
	default:
		urgency = "Activity Check"
		timeRemaining = "Please log in to confirm you're okay."
	}

	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"[%s]\n\n"+
			"It's been %d days since your last activity on Life Vault.\n\n"+
			"%s\n\n"+
			"Click here to confirm you're active:\n%s\n\n"+
			"This one-click link instantly resets your activity timer, requires no login,\n"+
			"and stays valid for %d days. Alternatively, log in at: %s\n\n"+
			"Remember: your trusted contacts are only notified if you don't respond for\n"+
			"your full inactivity period (%d days) plus a %d-day grace period.\n\n"+
			"Best regards,\nLife Vault",
		rec.Name, urgency, daysInactive, timeRemaining,
		b.verifyURL(token), int(b.tokenTTL.Hours()/24), b.baseURL, period, b.graceDays)

	return Email{
		To:      rec.Email,
		Subject: "Life Vault - Activity Check Required",
		Body:    body,
	}
}

func (b builder) disclosure(rec *models.ActivityRecord, contact *models.TrustedContact, snapshotURL string) Email {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"%s designated you as a trusted contact in their Life Vault.\n\n"+
			"They have not responded to repeated activity checks for their full\n"+
			"inactivity period plus the grace period, so their vault is now being\n"+
			"disclosed to you as they instructed.\n\n"+
			"Their recorded asset descriptions are available here:\n%s\n\n"+
			"The link expires in 7 days.\n\n"+
			"Best regards,\nLife Vault",
		contact.Name, rec.Name, snapshotURL)

	return Email{
		To:      contact.Email,
		Subject: "Life Vault - Important Information Has Been Shared With You",
		Body:    body,
	}
}
