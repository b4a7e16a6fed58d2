package prophet

import (
	"github.com/profithive/profithive-go/internal/models"
)

// BuildRequest converts normalized sales history plus the current regressor
// snapshot into the wire request the Python service expects. The service
// projects future regressor values itself (rolling mean of the trailing
// week), so only historical rows are sent.
func BuildRequest(seriesID string, history []models.HistoricalRecord, regressors models.Regressors, horizonDays int) *Request {
	points := make([]HistoryPoint, 0, len(history))
	for _, rec := range history {
		revenue, _ := rec.Revenue.Float64()
		points = append(points, HistoryPoint{
			DS:               rec.Date.Format("2006-01-02"),
			Y:                revenue,
			WeatherScore:     regressors.Weather,
			TransportScore:   regressors.Transit,
			FootTrafficScore: regressors.FootTraffic,
		})
	}
	return &Request{
		History:        points,
		PredictPeriods: horizonDays,
		Freq:           "D",
		RetailerID:     seriesID,
	}
}
