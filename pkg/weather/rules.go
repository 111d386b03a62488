// Package weather turns current conditions into farming advisories.
//
// Evaluate applies a fixed, ordered set of threshold rules to one Reading.
// The rules are independent: any subset may fire, and the resulting alerts
// always appear in rule order. Readings come from a Provider; the
// OpenWeatherMap client is the production implementation.
package weather

// Kind classifies an alert for display
type Kind string

const (
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Thresholds used by the default rules. Comparisons are strict.
const (
	FrostBelowF       = 35
	HeavyRainAbovePct = 70
	HotAboveF         = 85
	DryHumidityBelow  = 30
	DefaultUVIndex    = 6
	DefaultVisibility = 10.0 // miles, shown when the provider omits it
)

// Reading is one observation of current conditions in imperial units
type Reading struct {
	Location      string  `json:"location"`
	Temperature   int     `json:"temperature"`   // °F
	Humidity      int     `json:"humidity"`      // percent
	Precipitation int     `json:"precipitation"` // chance of precipitation, percent
	WindSpeed     int     `json:"wind_speed"`    // mph
	Visibility    float64 `json:"visibility"`    // miles
	Condition     string  `json:"condition"`
	Icon          string  `json:"icon,omitempty"`
	UVIndex       int     `json:"uv_index"`
	RainLastHour  float64 `json:"rain_last_hour"` // mm
}

// Alert is one advisory derived from a Reading
type Alert struct {
	Kind        Kind   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Time        string `json:"time"`
}

// Rule is a named predicate that contributes one alert when it holds
type Rule struct {
	Name  string
	When  func(Reading) bool
	Alert Alert
}

// DefaultRules are the advisories shown to growers, in display order
var DefaultRules = []Rule{
	{
		Name: "frost",
		When: func(r Reading) bool { return r.Temperature < FrostBelowF },
		Alert: Alert{
			Kind:        KindWarning,
			Title:       "Frost Warning",
			Description: "Temperatures may drop below 32°F tonight. Protect sensitive crops.",
			Time:        "Tonight",
		},
	},
	{
		Name: "heavy-rain",
		When: func(r Reading) bool { return r.Precipitation > HeavyRainAbovePct },
		Alert: Alert{
			Kind:        KindWarning,
			Title:       "Heavy Rain Expected",
			Description: "High chance of heavy rainfall. Ensure proper drainage and delay field work.",
			Time:        "Next 24 hours",
		},
	},
	{
		Name: "hot-dry",
		When: func(r Reading) bool { return r.Temperature > HotAboveF && r.Humidity < DryHumidityBelow },
		Alert: Alert{
			Kind:        KindInfo,
			Title:       "Hot & Dry Conditions",
			Description: "High temperature and low humidity. Increase irrigation frequency.",
			Time:        "Current",
		},
	},
}

// Evaluate applies DefaultRules to r
func Evaluate(r Reading) []Alert {
	return EvaluateRules(DefaultRules, r)
}

// EvaluateRules returns the alerts of every rule that holds for r, in rule
// order. The result is never nil.
func EvaluateRules(rules []Rule, r Reading) []Alert {
	alerts := make([]Alert, 0, len(rules))
	for _, rule := range rules {
		if rule.When(r) {
			alerts = append(alerts, rule.Alert)
		}
	}
	return alerts
}
