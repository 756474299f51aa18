package usecase

// WorseResult is how much worse obtaining Obtained is than the calculated
// equivalent of the given amount.
type WorseResult struct {
	Percent float64 `json:"percent"`
	Source  float64 `json:"source"`
	Target  float64 `json:"target"`
}

type AverageKind string

const (
	AverageMonthly           AverageKind = "monthly"
	AverageMonthlyCumulative AverageKind = "monthly_cumulative"
	AverageQuarterly         AverageKind = "quarterly"
)
