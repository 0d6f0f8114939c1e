package analysis

import (
	"fmt"
	"math"

	"github.com/finsight-labs/finsight/internal/domain"
)

// healthTier maps an upper spending-ratio bound to a status label and score.
// The ladder is evaluated top to bottom and is independent of the 3-tier
// risk table in analyze.go; the two must not be merged.
type healthTier struct {
	maxRatio float64
	status   string
	score    int
}

var healthLadder = []healthTier{
	{10, "Outstanding", 100},
	{20, "Excellent", 90},
	{30, "Very Healthy", 80},
	{40, "Healthy", 70},
	{50, "Good", 60},
	{60, "Fair", 50},
	{70, "Caution", 40},
	{80, "Warning", 30},
	{90, "At Risk", 20},
	{100, "Overspending", 10},
}

// HealthStatus classifies a spending ratio into a named status and a 0-100
// score. Ratios above 100% are a critical overspend.
func HealthStatus(totalSpent, monthlyIncome float64) (string, int) {
	ratio := SpendingRatio(totalSpent, monthlyIncome)
	for _, tier := range healthLadder {
		if ratio <= tier.maxRatio {
			return tier.status, tier.score
		}
	}
	return "Critical Overspend", 0
}

// HealthReport summarizes a user's month: income, spending, what remains and
// whether the savings goal is still reachable.
type HealthReport struct {
	HealthScore        int     `json:"health_score"`
	Status             string  `json:"status"`
	MonthlyIncome      float64 `json:"monthly_income"`
	FixedBills         float64 `json:"fixed_bills"`
	DiscretionarySpent float64 `json:"discretionary_spent"`
	Remaining          float64 `json:"remaining"`
	SavingsPercentage  float64 `json:"savings_percentage"`
	OnTrackForGoal     bool    `json:"on_track_for_goal"`
	Message            string  `json:"message"`
}

// BuildHealthReport derives a daily financial-health report from the profile
// and the month's transactions. The score here is the coarse savings-based
// scale, not the spending-ratio ladder.
func BuildHealthReport(profile *domain.UserProfile, transactions []*domain.Transaction) HealthReport {
	var totalSpent float64
	for _, t := range transactions {
		totalSpent += math.Abs(t.Amount)
	}

	remaining := profile.MonthlyIncome - totalSpent - profile.FixedBills

	var savingsPct float64
	if profile.MonthlyIncome > 0 {
		savingsPct = remaining / profile.MonthlyIncome * 100
	}

	score := 50
	status := "Fair"
	switch {
	case savingsPct >= 20:
		score, status = 85, "Excellent"
	case savingsPct >= 10:
		score, status = 70, "Good"
	case savingsPct >= 0:
		score, status = 55, "Fair"
	default:
		score, status = 30, "Poor"
	}

	encouragement := "Consider adjusting your spending."
	if savingsPct >= 20 {
		encouragement = "Great job maintaining a healthy balance!"
	}

	return HealthReport{
		HealthScore:        score,
		Status:             status,
		MonthlyIncome:      profile.MonthlyIncome,
		FixedBills:         profile.FixedBills,
		DiscretionarySpent: totalSpent,
		Remaining:          remaining,
		SavingsPercentage:  math.Round(savingsPct),
		OnTrackForGoal:     remaining >= profile.SavingsGoal,
		Message:            fmt.Sprintf("Your financial health is %s. %s", status, encouragement),
	}
}
