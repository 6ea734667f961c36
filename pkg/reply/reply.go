// Package reply turns typed weather outcomes into platform display text.
package reply

import (
	"fmt"
	"strings"

	"weatherbot/pkg/weather"
)

// FallbackText acknowledges data that could not be rendered. It is the
// formatter's answer to anything outside the outcome contract.
const FallbackText = "✅ Información del clima recibida, pero hubo un error al formatearla."

// GenericErrorText covers unexpected statuses and handler faults alike.
const GenericErrorText = "❌ Ocurrió un error inesperado.\n\n" +
	"Por favor, intenta nuevamente."

// HelpText is the static help/menu reply; no backend call is involved.
const HelpText = "🌤️ *Bot del Clima - Ayuda*\n\n" +
	"¡Hola! Soy tu asistente del clima 🤖\n\n" +
	"📍 *¿Cómo usarme?*\n" +
	"Simplemente escribe el nombre de una ciudad:\n\n" +
	"✅ *Ejemplos:*\n" +
	"• Buenos Aires\n" +
	"• Madrid\n" +
	"• New York\n" +
	"• London\n\n" +
	"📊 *Información incluida:*\n" +
	"• Temperatura actual\n" +
	"• Sensación térmica\n" +
	"• Descripción del clima\n" +
	"• Humedad\n" +
	"• Presión atmosférica\n" +
	"• Velocidad del viento\n\n" +
	"💬 *Comandos:*\n" +
	"• help, ayuda o menu - Mostrar esta ayuda\n\n" +
	"🚀 ¡Envía el nombre de una ciudad para comenzar!"

// glyphRule maps a synonym set to its weather glyph. Rules are evaluated in
// order; descriptions mentioning several conditions take the first match.
type glyphRule struct {
	glyph    string
	keywords []string
}

var glyphRules = []glyphRule{
	{"☀️", []string{"sunny", "clear", "despejado", "soleado"}},
	{"⛅", []string{"cloud", "nublado", "parcialmente", "partly"}},
	{"🌧️", []string{"rain", "drizzle", "lluvia", "llovizna"}},
	{"⛈️", []string{"storm", "tormenta"}},
	{"❄️", []string{"snow", "nieve"}},
	{"🌫️", []string{"fog", "mist", "niebla"}},
}

const defaultGlyph = "🌤️"

// Classify picks the weather glyph for a free-form description.
func Classify(description string) string {
	lowered := strings.ToLower(description)
	for _, rule := range glyphRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lowered, keyword) {
				return rule.glyph
			}
		}
	}

	return defaultGlyph
}

// Format renders one outcome as user-facing text. It always returns non-empty
// text: unknown outcome kinds degrade to the fallback acknowledgment.
func Format(outcome weather.Outcome) string {
	switch outcome.Kind {
	case weather.OutcomeSuccess:
		return formatReport(outcome.Report)
	case weather.OutcomeNotFound:
		return fmt.Sprintf(
			"❌ No pude encontrar información del clima para '%s'.\n\n"+
				"Por favor, verifica que el nombre de la ciudad sea correcto.\n\n"+
				"Ejemplo: *Buenos Aires* o *Madrid*", outcome.City)
	case weather.OutcomeServerError:
		return fmt.Sprintf(
			"⚠️ *Error del servidor:* %s\n\n"+
				"Por favor, intenta nuevamente en unos momentos.", outcome.Message)
	case weather.OutcomeTransportError:
		return "❌ *Error de conexión* con el servidor de clima.\n\n" +
			"Por favor, verifica tu conexión e intenta nuevamente."
	case weather.OutcomeUnexpectedStatus:
		return GenericErrorText
	default:
		return FallbackText
	}
}

func formatReport(report weather.Report) string {
	city := report.City
	if strings.TrimSpace(city) == "" {
		// A report with no city at all means the payload was unusable.
		return FallbackText
	}

	header := fmt.Sprintf("%s *Clima en %s*", Classify(report.Description), city)
	if report.Country != "" {
		header += ", " + report.Country
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "🌡️ *Temperatura:* %s°C\n", report.Temperature)
	fmt.Fprintf(&b, "🤗 *Sensación térmica:* %s°C\n", report.FeelsLike)
	fmt.Fprintf(&b, "📝 *Descripción:* %s\n", capitalize(report.Description))
	fmt.Fprintf(&b, "💧 *Humedad:* %s%%\n", report.Humidity)
	fmt.Fprintf(&b, "🔽 *Presión:* %s hPa\n", report.Pressure)
	fmt.Fprintf(&b, "💨 *Viento:* %s m/s\n\n", report.WindSpeed)
	b.WriteString("📅 _Actualizado ahora_")

	return b.String()
}

// capitalize upper-cases the first rune only, matching the original reply
// style for lower-cased backend descriptions.
func capitalize(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}

	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
