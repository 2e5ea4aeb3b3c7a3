package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultVoiceLanguage is the language tag used for spoken alerts.
const DefaultVoiceLanguage = "hi-IN"

// Guidance lists survival steps for each phase of a storm.
type Guidance struct {
	Preparation []string `json:"preparation"`
	During      []string `json:"during"`
	Recovery    []string `json:"recovery"`
}

var survivalGuide = Guidance{
	Preparation: []string{"Charge phones.", "Pack food and water.", "Secure loose items."},
	During:      []string{"Stay indoors.", "Stay away from windows.", "Turn off gas and power."},
	Recovery:    []string{"Wait for the all clear.", "Avoid fallen wires.", "Check the house for damage."},
}

// SurvivalGuide returns the storm survival guide.
func SurvivalGuide() Guidance {
	return Guidance{
		Preparation: append([]string(nil), survivalGuide.Preparation...),
		During:      append([]string(nil), survivalGuide.During...),
		Recovery:    append([]string(nil), survivalGuide.Recovery...),
	}
}

// ComposeText builds the SMS body for an alert.
func ComposeText(c AlertContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SOS ALERT: %s detected at %s. Pressure: %s hPa.", c.Level, c.Location, formatPressure(c.PressureHPa))
	if c.GPS != nil {
		fmt.Fprintf(&b, " GPS: %.4f, %.4f.", c.GPS.Lat, c.GPS.Lon)
	}
	if c.Level.IsHighRisk() {
		b.WriteString(" Safety: " + strings.Join(survivalGuide.During, " "))
	}
	b.WriteString(" Follow safety steps!")
	return b.String()
}

// ComposeSpeech builds the spoken announcement for a voice call. The wording
// is the same at every level.
func ComposeSpeech(c AlertContext) string {
	return fmt.Sprintf("Saavdhan! %s mein chakravaat ka khatra hai.", c.Location)
}

func formatPressure(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
