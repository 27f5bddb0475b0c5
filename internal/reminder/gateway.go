package reminder

import (
	"context"
	"strconv"
	"strings"
	"time"

	"clinic-app-server/internal/config"
	"clinic-app-server/internal/models"

	"go.uber.org/zap"
)

// Messenger is the external transactional-messaging channel. Template
// parameters map positional slots ("1", "2", ...) to string values.
type Messenger interface {
	Enabled() bool
	SendTemplate(ctx context.Context, from, to, templateID string, params map[string]string) error
}

// Gateway validates the recipient, picks the template variant for the
// reminder kind and dispatches through the Messenger. It is constructed once
// at boot with the channel client injected; when the channel is not
// configured Send degrades to a logged no-op instead of failing.
type Gateway struct {
	messenger Messenger
	from      string
	templates map[models.ReminderKind]string
	loc       *time.Location
	log       *zap.Logger
}

func NewGateway(messenger Messenger, cfg config.TwilioConfig, loc *time.Location, log *zap.Logger) *Gateway {
	return &Gateway{
		messenger: messenger,
		from:      cfg.From,
		templates: map[models.ReminderKind]string{
			models.Reminder24h: cfg.ContentSID24h,
			models.Reminder2h:  cfg.ContentSID2h,
		},
		loc: loc,
		log: log,
	}
}

// IsValidRecipient reports whether phone looks like a Brazilian mobile
// number: 11 digits after stripping punctuation, an area code in [11, 99]
// and the mobile-line marker '9' as the third digit. This is a structural
// check only, not a carrier lookup.
func IsValidRecipient(phone string) bool {
	digits := digitsOnly(phone)
	if len(digits) != 11 {
		return false
	}
	areaCode, err := strconv.Atoi(digits[:2])
	if err != nil || areaCode < 11 || areaCode > 99 {
		return false
	}
	return digits[2] == '9'
}

// Send dispatches one reminder. The returned bool reports whether a message
// was actually handed to the channel; (false, nil) means the channel is not
// configured and the send was skipped. Transport failures are returned to
// the caller, which decides the item's fate.
func (g *Gateway) Send(ctx context.Context, item models.AppointmentReminder, appt *DueAppointment) (bool, error) {
	if !g.messenger.Enabled() || g.from == "" {
		g.log.Warn("messaging channel not configured, reminder not sent",
			zap.String("reminder_id", item.ID),
			zap.String("appointment_id", appt.AppointmentID),
		)
		return false, nil
	}

	templateID := g.templates[item.TemplateKind]
	if templateID == "" {
		g.log.Warn("no template configured for reminder kind, reminder not sent",
			zap.String("reminder_id", item.ID),
			zap.String("template_kind", string(item.TemplateKind)),
		)
		return false, nil
	}

	localStart := appt.StartDatetime.In(g.loc)
	appointmentDate := localStart.Format("02/01/2006")
	appointmentTime := localStart.Format("15:04")

	var params map[string]string
	switch item.TemplateKind {
	case models.Reminder24h:
		params = map[string]string{
			"1": appt.PatientName,
			"2": appointmentDate,
			"3": appointmentTime,
			"4": appt.ClinicName,
		}
	default:
		// Same-day nudge: no date slot.
		params = map[string]string{
			"1": appt.PatientName,
			"2": appointmentTime,
			"3": appt.ClinicName,
		}
	}

	to := "whatsapp:+55" + digitsOnly(appt.PatientPhone)
	if err := g.messenger.SendTemplate(ctx, g.from, to, templateID, params); err != nil {
		return false, err
	}

	g.log.Info("reminder sent",
		zap.String("reminder_id", item.ID),
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("template_kind", string(item.TemplateKind)),
	)
	return true, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
