package forecast

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/profithive/profithive-go/internal/models"
)

// Outlook thresholds on the 0-100 impact scale.
const (
	favorableImpact   = 75
	unfavorableImpact = 40
)

// fuse assembles the unified forecast response: predicted days from whichever
// engine answered, plus per-signal narratives explaining the conditions that
// shaped the prediction.
func fuse(seriesID string, engine models.ForecastEngine, days []models.ForecastDay, signals *models.SignalSet, generatedAt time.Time) *models.ForecastResponse {
	return &models.ForecastResponse{
		ID:                uuid.New().String(),
		SeriesID:          seriesID,
		Engine:            engine,
		Days:              days,
		OverallConfidence: meanConfidence(days),
		Explanations:      explain(signals),
		GeneratedAt:       generatedAt,
	}
}

func meanConfidence(days []models.ForecastDay) float64 {
	if len(days) == 0 {
		return 0
	}
	var sum float64
	for _, d := range days {
		sum += d.Confidence
	}
	return sum / float64(len(days))
}

func explain(signals *models.SignalSet) []models.SignalExplanation {
	if signals == nil {
		return nil
	}
	var out []models.SignalExplanation
	if w := signals.Weather; w != nil {
		out = append(out, models.SignalExplanation{
			Signal:      models.SignalWeather,
			ImpactScore: w.ImpactScore,
			Outlook:     outlook(w.ImpactScore),
			Narrative:   weatherNarrative(w),
			Synthetic:   w.IsFallback,
		})
	}
	if t := signals.Transit; t != nil {
		out = append(out, models.SignalExplanation{
			Signal:      models.SignalTransit,
			ImpactScore: t.ImpactScore,
			Outlook:     outlook(t.ImpactScore),
			Narrative:   transitNarrative(t),
			Synthetic:   t.IsFallback,
		})
	}
	if f := signals.FootTraffic; f != nil {
		out = append(out, models.SignalExplanation{
			Signal:      models.SignalFootTraffic,
			ImpactScore: f.ImpactScore,
			Outlook:     outlook(f.ImpactScore),
			Narrative:   footTrafficNarrative(f),
			Synthetic:   f.IsFallback,
		})
	}
	return out
}

func outlook(impact int) string {
	switch {
	case impact >= favorableImpact:
		return "favorable"
	case impact <= unfavorableImpact:
		return "unfavorable"
	default:
		return "neutral"
	}
}

func weatherNarrative(w *models.WeatherSignal) string {
	switch outlook(w.ImpactScore) {
	case "favorable":
		return fmt.Sprintf("%s conditions at %.0f°C should encourage shopping trips.", w.Condition, w.TemperatureC)
	case "unfavorable":
		return fmt.Sprintf("%s weather at %.0f°C is likely to keep customers away.", w.Condition, w.TemperatureC)
	default:
		return fmt.Sprintf("%s weather at %.0f°C, no strong pull in either direction.", w.Condition, w.TemperatureC)
	}
}

func transitNarrative(t *models.TransitSignal) string {
	base := "Transit access looks typical for this time of day."
	switch outlook(t.ImpactScore) {
	case "favorable":
		base = "Good bus and ride availability makes the location easy to reach."
	case "unfavorable":
		base = "Heavy congestion and thin transit options will suppress walk-ins."
	}
	if t.PeakHour {
		base += " Peak commute hours bring extra passing traffic."
	}
	return base
}

func footTrafficNarrative(f *models.FootTrafficSignal) string {
	switch outlook(f.ImpactScore) {
	case "favorable":
		return fmt.Sprintf("Pedestrian volume is high (level %d), expect strong walk-in demand.", f.Level)
	case "unfavorable":
		return fmt.Sprintf("Pedestrian volume is low (level %d), walk-in demand will be soft.", f.Level)
	default:
		return fmt.Sprintf("Pedestrian volume is moderate (level %d).", f.Level)
	}
}
