package nutrition

// Trend compares a baseline BMI status with the current one.
type Trend string

const (
	TrendImprove      Trend = "Improve"
	TrendNoDecline    Trend = "No/Decline"
	TrendOverdone     Trend = "Overdone"
	TrendNotAvailable Trend = "N/A"
)

const normalRank = 4

var severityRank = map[BMIStatus]int{
	BMISeverelyWasted: 1,
	BMIWasted:         2,
	BMIUnderweight:    3,
	BMINormal:         4,
	BMIOverweight:     5,
	BMIObese:          6,
}

// ComputeGrowthTrend ranks both statuses on the severity scale. An unknown or
// missing status on either side gives TrendNotAvailable; reaching an excess
// weight state is always TrendOverdone.
func ComputeGrowthTrend(baseline, current BMIStatus) Trend {
	baseRank, okBase := severityRank[baseline]
	curRank, okCur := severityRank[current]
	if !okBase || !okCur {
		return TrendNotAvailable
	}
	if current == BMIObese || current == BMIOverweight {
		return TrendOverdone
	}
	switch {
	case curRank <= baseRank:
		return TrendNoDecline
	case curRank <= normalRank:
		return TrendImprove
	default:
		return TrendOverdone
	}
}

// TrendSummary counts beneficiaries per trend.
type TrendSummary struct {
	Improve      int `json:"improve"`
	NoDecline    int `json:"noDecline"`
	Overdone     int `json:"overdone"`
	NotAvailable int `json:"notAvailable"`
}

// Add records one trend in the summary.
func (s *TrendSummary) Add(t Trend) {
	switch t {
	case TrendImprove:
		s.Improve++
	case TrendNoDecline:
		s.NoDecline++
	case TrendOverdone:
		s.Overdone++
	default:
		s.NotAvailable++
	}
}

// Merge folds other into s.
func (s *TrendSummary) Merge(other TrendSummary) {
	s.Improve += other.Improve
	s.NoDecline += other.NoDecline
	s.Overdone += other.Overdone
	s.NotAvailable += other.NotAvailable
}
