package analysis

import (
	"fmt"
	"math"

	"github.com/finsight-labs/finsight/internal/domain"
)

// Risk levels produced by the 3-tier analyzer table. Distinct from the
// health-status ladder in health.go.
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskUnknown = "unknown"
)

// SpendingAnalysis is the transient aggregation of a transaction list. It is
// recomputed on every request and never cached.
type SpendingAnalysis struct {
	TotalSpent         float64            `json:"totalSpent"`
	AverageTransaction float64            `json:"averageTransaction"`
	TransactionCount   int                `json:"transactionCount"`
	TopCategory        string             `json:"topCategory"`
	CategoryBreakdown  map[string]float64 `json:"categoryBreakdown"`
	Insight            string             `json:"insight"`
	RiskLevel          string             `json:"riskLevel"`
	Recommendation     string             `json:"recommendation"`
}

// highAverageThreshold is the average-transaction cutoff (in currency units)
// for the second rung of the risk table.
const highAverageThreshold = 10000

// Analyze aggregates a transaction list into totals, a category breakdown
// and a risk classification. Amounts are summed as absolute values; sign is
// a display convention. The risk table is evaluated top to bottom, first
// match wins.
func Analyze(transactions []*domain.Transaction) SpendingAnalysis {
	if len(transactions) == 0 {
		return SpendingAnalysis{
			TopCategory:    "None",
			Insight:        "No transactions to analyze",
			RiskLevel:      RiskLow,
			Recommendation: "Start tracking your expenses to get personalized insights",
		}
	}

	var totalSpent float64
	breakdown := make(map[string]float64)
	// Encounter order of categories, so argmax tie-breaks are stable.
	var order []string

	for _, t := range transactions {
		amount := math.Abs(t.Amount)
		totalSpent += amount

		cat := string(t.Category)
		if _, seen := breakdown[cat]; !seen {
			order = append(order, cat)
		}
		breakdown[cat] += amount
	}

	topCategory := order[0]
	for _, cat := range order[1:] {
		if breakdown[cat] > breakdown[topCategory] {
			topCategory = cat
		}
	}

	average := totalSpent / float64(len(transactions))

	var insight, recommendation string
	risk := RiskLow
	switch {
	case breakdown[topCategory] > totalSpent*0.5:
		insight = fmt.Sprintf("%s represents over 50%% of your spending. Consider budgeting this category.", topCategory)
		risk = RiskMedium
		recommendation = "Try to reduce spending on the top category"
	case average > highAverageThreshold:
		insight = "Your average transaction is quite high. Consider budgeting more carefully."
		risk = RiskMedium
		recommendation = "Set daily spending limits"
	default:
		insight = "Your spending pattern looks healthy and balanced."
		recommendation = "Keep up with your current spending habits"
	}

	return SpendingAnalysis{
		TotalSpent:         totalSpent,
		AverageTransaction: average,
		TransactionCount:   len(transactions),
		TopCategory:        topCategory,
		CategoryBreakdown:  breakdown,
		Insight:            insight,
		RiskLevel:          risk,
		Recommendation:     recommendation,
	}
}

// SpendingRatio is the spent-to-income percentage used by the health-status
// ladder and by tip generation. Zero income yields a zero ratio.
func SpendingRatio(totalSpent, monthlyIncome float64) float64 {
	if monthlyIncome <= 0 {
		return 0
	}
	return totalSpent / monthlyIncome * 100
}
