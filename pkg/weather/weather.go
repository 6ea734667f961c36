package weather

import (
	"encoding/json"
	"strings"
)

// Platform identifies the chat platform a query originated from.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformWhatsApp Platform = "whatsapp"
)

// NotAvailable is the display sentinel for numeric report fields the backend
// did not include.
const NotAvailable = "N/A"

const (
	defaultCity        = "Ciudad desconocida"
	defaultDescription = "Sin descripción"
)

// Query is the canonical weather request extracted from one inbound message.
type Query struct {
	City     string
	UserID   string
	Username string
	Platform Platform
	ChatID   string
}

// Report carries the display values of one successful backend response.
//
// All fields are strings: the backend owns units and precision, the bot only
// renders. Missing fields hold their per-field default.
type Report struct {
	City        string
	Country     string
	Temperature string
	FeelsLike   string
	Description string
	Humidity    string
	Pressure    string
	WindSpeed   string
}

// OutcomeKind tags which variant of an Outcome is populated.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeNotFound         OutcomeKind = "not_found"
	OutcomeServerError      OutcomeKind = "server_error"
	OutcomeTransportError   OutcomeKind = "transport_error"
	OutcomeUnexpectedStatus OutcomeKind = "unexpected_status"
)

// Outcome is the typed result of one backend call. Exactly one variant is
// populated; use the constructors below.
type Outcome struct {
	Kind       OutcomeKind
	Report     Report
	City       string
	Message    string
	StatusCode int
	Cause      error
}

// Success wraps a decoded report.
func Success(report Report) Outcome {
	return Outcome{Kind: OutcomeSuccess, Report: report}
}

// NotFound records that the backend does not know the requested city.
func NotFound(city string) Outcome {
	return Outcome{Kind: OutcomeNotFound, City: city}
}

// ServerError records a backend-reported failure message.
func ServerError(message string) Outcome {
	return Outcome{Kind: OutcomeServerError, Message: message}
}

// TransportError records a timeout, connection failure, or malformed response.
func TransportError(cause error) Outcome {
	return Outcome{Kind: OutcomeTransportError, Cause: cause}
}

// UnexpectedStatus records a status code outside the backend contract.
func UnexpectedStatus(code int) Outcome {
	return Outcome{Kind: OutcomeUnexpectedStatus, StatusCode: code}
}

// reportPayload mirrors the backend success body. Every field is optional;
// pointers distinguish absent from zero.
type reportPayload struct {
	City        *string      `json:"city"`
	Country     *string      `json:"country"`
	Temperature *json.Number `json:"temperature"`
	FeelsLike   *json.Number `json:"feels_like"`
	Description *string      `json:"description"`
	Humidity    *json.Number `json:"humidity"`
	Pressure    *json.Number `json:"pressure"`
	WindSpeed   *json.Number `json:"wind_speed"`
}

func (p reportPayload) toReport() Report {
	return Report{
		City:        stringField(p.City, defaultCity),
		Country:     stringField(p.Country, ""),
		Temperature: numberField(p.Temperature),
		FeelsLike:   numberField(p.FeelsLike),
		Description: stringField(p.Description, defaultDescription),
		Humidity:    numberField(p.Humidity),
		Pressure:    numberField(p.Pressure),
		WindSpeed:   numberField(p.WindSpeed),
	}
}

func stringField(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	if trimmed := strings.TrimSpace(*value); trimmed != "" {
		return trimmed
	}

	return fallback
}

func numberField(value *json.Number) string {
	if value == nil || value.String() == "" {
		return NotAvailable
	}

	return value.String()
}
