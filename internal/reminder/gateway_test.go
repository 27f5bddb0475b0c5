package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinic-app-server/internal/config"
	"clinic-app-server/internal/models"

	"go.uber.org/zap"
)

func TestIsValidRecipient(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  bool
	}{
		{"valid mobile", "11987654321", true},
		{"valid with punctuation", "(11) 98765-4321", true},
		{"landline length", "1187654321", false},
		{"not a mobile line", "11887654321", false},
		{"area code too low", "05987654321", false},
		{"empty", "", false},
		{"letters only", "telefone", false},
		{"too long", "5511987654321", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidRecipient(tt.phone); got != tt.want {
				t.Errorf("IsValidRecipient(%q) = %v, want %v", tt.phone, got, tt.want)
			}
		})
	}
}

// capturingMessenger records the last SendTemplate call.
type capturingMessenger struct {
	enabled    bool
	err        error
	to         string
	templateID string
	params     map[string]string
	sends      int
}

func (m *capturingMessenger) Enabled() bool { return m.enabled }

func (m *capturingMessenger) SendTemplate(_ context.Context, _, to, templateID string, params map[string]string) error {
	m.sends++
	m.to = to
	m.templateID = templateID
	m.params = params
	return m.err
}

func testTwilioConfig() config.TwilioConfig {
	return config.TwilioConfig{
		AccountSID:    "AC123",
		AuthToken:     "token",
		From:          "whatsapp:+551130000000",
		ContentSID24h: "HX24",
		ContentSID2h:  "HX2",
	}
}

func TestGatewaySend(t *testing.T) {
	loc := time.FixedZone("-03", -3*60*60)
	start := time.Date(2026, 3, 11, 14, 30, 0, 0, loc)
	appt := &DueAppointment{
		AppointmentID: "appt-1",
		StartDatetime: start,
		PatientName:   "Maria Silva",
		PatientPhone:  "(11) 98765-4321",
		ClinicName:    "Dr. Souza",
	}

	t.Run("day-ahead template carries name, date, time and clinic", func(t *testing.T) {
		m := &capturingMessenger{enabled: true}
		g := NewGateway(m, testTwilioConfig(), loc, zap.NewNop())

		item := models.AppointmentReminder{TemplateKind: models.Reminder24h}
		sent, err := g.Send(context.Background(), item, appt)
		if err != nil {
			t.Fatalf("Send returned error: %v", err)
		}
		if !sent {
			t.Fatal("Send reported not sent")
		}
		if m.templateID != "HX24" {
			t.Errorf("templateID = %q, want HX24", m.templateID)
		}
		if m.to != "whatsapp:+5511987654321" {
			t.Errorf("to = %q, want whatsapp:+5511987654321", m.to)
		}
		want := map[string]string{"1": "Maria Silva", "2": "11/03/2026", "3": "14:30", "4": "Dr. Souza"}
		for k, v := range want {
			if m.params[k] != v {
				t.Errorf("param %s = %q, want %q", k, m.params[k], v)
			}
		}
		if len(m.params) != len(want) {
			t.Errorf("got %d params, want %d", len(m.params), len(want))
		}
	})

	t.Run("same-day template drops the date slot", func(t *testing.T) {
		m := &capturingMessenger{enabled: true}
		g := NewGateway(m, testTwilioConfig(), loc, zap.NewNop())

		item := models.AppointmentReminder{TemplateKind: models.Reminder2h}
		sent, err := g.Send(context.Background(), item, appt)
		if err != nil || !sent {
			t.Fatalf("Send = (%v, %v), want (true, nil)", sent, err)
		}
		if m.templateID != "HX2" {
			t.Errorf("templateID = %q, want HX2", m.templateID)
		}
		want := map[string]string{"1": "Maria Silva", "2": "14:30", "3": "Dr. Souza"}
		for k, v := range want {
			if m.params[k] != v {
				t.Errorf("param %s = %q, want %q", k, m.params[k], v)
			}
		}
		if len(m.params) != len(want) {
			t.Errorf("got %d params, want %d", len(m.params), len(want))
		}
	})

	t.Run("disabled channel skips without error", func(t *testing.T) {
		m := &capturingMessenger{enabled: false}
		g := NewGateway(m, testTwilioConfig(), loc, zap.NewNop())

		sent, err := g.Send(context.Background(), models.AppointmentReminder{TemplateKind: models.Reminder2h}, appt)
		if err != nil {
			t.Fatalf("Send returned error: %v", err)
		}
		if sent {
			t.Fatal("Send reported sent on a disabled channel")
		}
		if m.sends != 0 {
			t.Fatalf("messenger was called %d times, want 0", m.sends)
		}
	})

	t.Run("missing template skips without error", func(t *testing.T) {
		cfg := testTwilioConfig()
		cfg.ContentSID24h = ""
		m := &capturingMessenger{enabled: true}
		g := NewGateway(m, cfg, loc, zap.NewNop())

		sent, err := g.Send(context.Background(), models.AppointmentReminder{TemplateKind: models.Reminder24h}, appt)
		if err != nil || sent {
			t.Fatalf("Send = (%v, %v), want (false, nil)", sent, err)
		}
		if m.sends != 0 {
			t.Fatalf("messenger was called %d times, want 0", m.sends)
		}
	})

	t.Run("transport failure propagates", func(t *testing.T) {
		m := &capturingMessenger{enabled: true, err: errors.New("rate limited")}
		g := NewGateway(m, testTwilioConfig(), loc, zap.NewNop())

		sent, err := g.Send(context.Background(), models.AppointmentReminder{TemplateKind: models.Reminder2h}, appt)
		if err == nil {
			t.Fatal("Send returned nil error, want transport error")
		}
		if sent {
			t.Fatal("Send reported sent on transport failure")
		}
	})

	t.Run("start time converts to the clinic timezone", func(t *testing.T) {
		m := &capturingMessenger{enabled: true}
		g := NewGateway(m, testTwilioConfig(), loc, zap.NewNop())

		utcAppt := *appt
		utcAppt.StartDatetime = start.UTC()
		sent, err := g.Send(context.Background(), models.AppointmentReminder{TemplateKind: models.Reminder2h}, &utcAppt)
		if err != nil || !sent {
			t.Fatalf("Send = (%v, %v), want (true, nil)", sent, err)
		}
		if m.params["2"] != "14:30" {
			t.Errorf("time param = %q, want 14:30", m.params["2"])
		}
	})
}

func TestNewMessengerWithoutCredentials(t *testing.T) {
	m := NewMessenger(config.TwilioConfig{})
	if m.Enabled() {
		t.Fatal("messenger without credentials reports enabled")
	}
	if err := m.SendTemplate(context.Background(), "a", "b", "c", nil); err != nil {
		t.Fatalf("disabled messenger returned error: %v", err)
	}
}
