package quiz

// Category vocabularies. Order matters: distractors for four-item
// vocabularies are taken in this order before shuffling.
var (
	TemperatureClasses = []string{"Cold", "Cool-temperate", "Warm-temperate", "Warm", "Very warm"}
	HumidityClasses    = []string{"Very dry", "Dry", "Comfortable", "Humid", "Very humid"}
	WindClasses        = []string{"Calm", "Light breeze", "Moderate breeze", "Strong wind", "Very strong wind"}
	PressureClasses    = []string{
		"High pressure - stable weather",
		"Normal pressure",
		"Low pressure - possible bad weather",
		"Critical pressure",
	}
	SolarClasses   = []string{"Very sunny", "Sunny", "Partly cloudy", "Cloudy"}
	ComfortClasses = []string{
		"Very comfortable",
		"Comfortable",
		"Uncomfortable - heat/humidity",
		"Uncomfortable - cold/dryness",
	}
	// The last entry of each trend vocabulary is never a computed answer.
	TemperatureTrends = []string{"Warming", "Cooling", "Stable", "Very variable"}
	HumidityTrends    = []string{"Increased", "Decreased", "Remained stable", "Fluctuated sharply"}
)

// Trend thresholds: change between first and last sample.
const (
	TemperatureTrendThreshold = 1.0
	HumidityTrendThreshold    = 5.0
)

// ClassifyTemperature buckets °C.
func ClassifyTemperature(t float64) string {
	switch {
	case t < 10:
		return TemperatureClasses[0]
	case t < 18:
		return TemperatureClasses[1]
	case t < 24:
		return TemperatureClasses[2]
	case t < 30:
		return TemperatureClasses[3]
	default:
		return TemperatureClasses[4]
	}
}

// ClassifyHumidity buckets relative humidity in percent.
func ClassifyHumidity(h float64) string {
	switch {
	case h < 30:
		return HumidityClasses[0]
	case h < 50:
		return HumidityClasses[1]
	case h < 70:
		return HumidityClasses[2]
	case h < 85:
		return HumidityClasses[3]
	default:
		return HumidityClasses[4]
	}
}

// ClassifyWind buckets wind speed in m/s.
func ClassifyWind(w float64) string {
	switch {
	case w < 2:
		return WindClasses[0]
	case w < 6:
		return WindClasses[1]
	case w < 12:
		return WindClasses[2]
	case w < 20:
		return WindClasses[3]
	default:
		return WindClasses[4]
	}
}

// ClassifyPressure interprets surface pressure in kPa. It never returns
// the "critical" entry.
func ClassifyPressure(p float64) string {
	switch {
	case p > 102:
		return PressureClasses[0]
	case p > 98:
		return PressureClasses[1]
	default:
		return PressureClasses[2]
	}
}

// ClassifySolar describes sky conditions from radiation in kWh/m²/day.
func ClassifySolar(r float64) string {
	switch {
	case r > 25:
		return SolarClasses[0]
	case r > 15:
		return SolarClasses[1]
	case r > 8:
		return SolarClasses[2]
	default:
		return SolarClasses[3]
	}
}

// ClassifyComfort combines temperature (°C) and humidity (%).
func ClassifyComfort(t, h float64) string {
	switch {
	case t >= 20 && t <= 26 && h >= 40 && h <= 70:
		return ComfortClasses[0]
	case t >= 18 && t <= 28 && h >= 30 && h <= 80:
		return ComfortClasses[1]
	case t > 28 || h > 80:
		return ComfortClasses[2]
	default:
		return ComfortClasses[3]
	}
}

// ClassifyTrend maps the change from first to last sample onto vocabulary
// entries 0 (rising), 1 (falling) or 2 (stable).
func ClassifyTrend(first, last, threshold float64, vocabulary []string) string {
	delta := last - first
	switch {
	case delta > threshold:
		return vocabulary[0]
	case delta < -threshold:
		return vocabulary[1]
	default:
		return vocabulary[2]
	}
}
