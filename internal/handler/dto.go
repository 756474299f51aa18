package handler

import "math"

type RateResponse struct {
	Currency  string  `json:"currency"`
	Rate      float64 `json:"rate"`
	RawRate   float64 `json:"raw_rate"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	FromCache bool    `json:"from_cache"`
	Degraded  bool    `json:"degraded"`
}

type ConvertResponse struct {
	Amount  float64 `json:"amount"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Percent float64 `json:"percent"`
	Result  float64 `json:"result"`
}

// WorseResponse carries Percent as a string when it is infinite.
type WorseResponse struct {
	Percent any     `json:"percent"`
	Source  float64 `json:"source"`
	Target  float64 `json:"target"`
}

type AverageResponse struct {
	Currency string  `json:"currency"`
	Kind     string  `json:"kind"`
	Year     int     `json:"year"`
	Period   int     `json:"period"`
	Rate     float64 `json:"rate"`
}

func jsonFloat(f float64) any {
	switch {
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	default:
		return f
	}
}
