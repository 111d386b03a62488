package weather

import "fmt"

// Tip categories
const (
	TipIrrigation = "irrigation"
	TipPest       = "pest"
	TipHarvest    = "harvest"
)

// Thresholds used by the default tip rules
const (
	HumidAtLeast    = 60
	PestWarmAtLeast = 70
)

// Tip is a farming suggestion derived from current conditions and the
// forecast. Unlike an Alert it is advice, not a warning.
type Tip struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Text     string `json:"tip"`
}

// TipRule produces at most one tip for a snapshot
type TipRule struct {
	Name   string
	Advise func(Snapshot) (Tip, bool)
}

// DefaultTipRules are the farming tips shown next to the alerts, in display
// order
var DefaultTipRules = []TipRule{
	{Name: "irrigation", Advise: irrigationTip},
	{Name: "pest", Advise: pestTip},
	{Name: "harvest", Advise: harvestTip},
}

// Tips applies DefaultTipRules to snap
func Tips(snap Snapshot) []Tip {
	return EvaluateTips(DefaultTipRules, snap)
}

// EvaluateTips returns the tip of every rule that advises for snap, in rule
// order. The result is never nil.
func EvaluateTips(rules []TipRule, snap Snapshot) []Tip {
	tips := make([]Tip, 0, len(rules))
	for _, rule := range rules {
		if tip, ok := rule.Advise(snap); ok {
			tips = append(tips, tip)
		}
	}
	return tips
}

func irrigationTip(snap Snapshot) (Tip, bool) {
	r := snap.Reading
	tip := Tip{Category: TipIrrigation, Title: "Irrigation Timing"}
	switch {
	case r.Precipitation > HeavyRainAbovePct:
		tip.Text = fmt.Sprintf("Rain is likely (%d%%). Skip scheduled watering and check drainage instead.", r.Precipitation)
	case r.Temperature > HotAboveF && r.Humidity < DryHumidityBelow:
		tip.Text = "Hot, dry air speeds evaporation. Water early in the morning and check soil moisture daily."
	case r.Humidity >= HumidAtLeast:
		tip.Text = fmt.Sprintf("Based on today's humidity (%d%%), reduce watering by 20%% to prevent overwatering.", r.Humidity)
	default:
		tip.Text = "Water early in the morning, when evaporation is lowest."
	}
	return tip, true
}

func pestTip(snap Snapshot) (Tip, bool) {
	r := snap.Reading
	if r.Temperature < PestWarmAtLeast || r.Humidity < HumidAtLeast {
		return Tip{}, false
	}
	return Tip{
		Category: TipPest,
		Title:    "Pest Management",
		Text:     "Warm, humid conditions are ideal for aphids. Monitor plants closely.",
	}, true
}

// harvestTip names the first forecast day with heavy rain so ripe crops
// can come in before it
func harvestTip(snap Snapshot) (Tip, bool) {
	for _, d := range snap.Forecast {
		if d.Precipitation > HeavyRainAbovePct {
			return Tip{
				Category: TipHarvest,
				Title:    "Harvest Timing",
				Text:     fmt.Sprintf("Rain expected %s. Harvest ripe fruits before then.", dayName(d)),
			}, true
		}
	}
	return Tip{}, false
}

func dayName(d DayForecast) string {
	if d.Day != "" {
		return d.Day
	}
	return d.Date
}
