package prophet

import "fmt"

// The wire contract of the Prophet service: JSON on stdin, JSON on stdout.
// Field names follow the Prophet convention (ds/y/yhat) and must not change
// independently of the Python side.

// HistoryPoint is one observed day with its regressor columns.
type HistoryPoint struct {
	DS               string  `json:"ds"` // YYYY-MM-DD
	Y                float64 `json:"y"`
	WeatherScore     float64 `json:"weather_score"`
	TransportScore   float64 `json:"transport_score"`
	FootTrafficScore float64 `json:"foot_traffic_score"`
}

// Request is the prediction input for one series.
type Request struct {
	History        []HistoryPoint `json:"history"`
	PredictPeriods int            `json:"predict_periods"`
	Freq           string         `json:"freq"`
	RetailerID     string         `json:"retailer_id"`
}

// PredictionPoint is one forecast day from the model.
type PredictionPoint struct {
	DS        string  `json:"ds"`
	YHat      float64 `json:"yhat"`
	YHatLower float64 `json:"yhat_lower"`
	YHatUpper float64 `json:"yhat_upper"`
}

// ModelMeta describes the model run that produced a response.
type ModelMeta struct {
	TrainedOn             string  `json:"trained_on"`
	Method                string  `json:"method"`
	ChangepointPriorScale float64 `json:"changepoint_prior_scale"`
	RetailerID            string  `json:"retailer_id"`
	PredictPeriods        int     `json:"predict_periods"`
	Frequency             string  `json:"frequency"`
}

// Response is the prediction output. Confidence is the model's own estimate
// on a 0-1 scale.
type Response struct {
	Predictions []PredictionPoint `json:"predictions"`
	ModelMeta   ModelMeta         `json:"model_meta"`
	Confidence  float64           `json:"confidence"`
}

// Validate rejects structurally broken responses so they surface as
// subprocess failures rather than corrupt forecasts.
func (r *Response) Validate(wantPeriods int) error {
	if len(r.Predictions) == 0 {
		return fmt.Errorf("response contains no predictions")
	}
	if wantPeriods > 0 && len(r.Predictions) != wantPeriods {
		return fmt.Errorf("expected %d predictions, got %d", wantPeriods, len(r.Predictions))
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	for i, p := range r.Predictions {
		if p.DS == "" {
			return fmt.Errorf("prediction %d missing date", i)
		}
		if p.YHatLower > p.YHat || p.YHat > p.YHatUpper {
			return fmt.Errorf("prediction %d bounds inverted: lower=%v yhat=%v upper=%v",
				i, p.YHatLower, p.YHat, p.YHatUpper)
		}
	}
	return nil
}
