package advice

import (
	"github.com/finsight-labs/finsight/internal/analysis"
	"github.com/finsight-labs/finsight/internal/domain"
)

// Per-category overspend thresholds as a share of monthly income. Ordered:
// the checks run and append messages in this sequence, and the output order
// is an observable contract.
var categoryThresholds = []struct {
	category domain.Category
	share    float64
	message  string
}{
	{domain.CategoryFood, 20, "Food is taking over 20% of your income. Meal planning could trim this down."},
	{domain.CategoryEntertainment, 15, "Entertainment spending is above 15% of income. Look for cheaper alternatives."},
	{domain.CategoryTransport, 15, "Transport costs exceed 15% of income. Consider carpooling or transit passes."},
	{domain.CategoryShopping, 10, "Shopping is above 10% of income. Try a 24-hour rule before purchases."},
}

var defaultTips = []string{
	"Track your expenses daily to build a clear picture of where your money goes.",
	"Set a monthly budget for each spending category and review it weekly.",
	"Review your subscriptions and cancel the ones you no longer use.",
}

const (
	lowActivityCount  = 5
	highActivityCount = 20
)

// Tips accumulates every applicable spending tip. Rules are not mutually
// exclusive except for the ratio tier, which is an if/else-if chain; category
// and activity checks stack on top of it. An empty accumulation falls back to
// the default set, so the result is never empty.
func Tips(transactions []*domain.Transaction, categoryTotals map[string]float64, totalSpent, monthlyIncome float64) []string {
	var tips []string

	ratio := analysis.SpendingRatio(totalSpent, monthlyIncome)
	if monthlyIncome > 0 {
		switch {
		case ratio > 100:
			tips = append(tips,
				"You're spending more than you earn this month. Review your expenses urgently.",
				"Consider pausing non-essential purchases until next month.")
		case ratio > 80:
			tips = append(tips,
				"You've used over 80% of your monthly income. Slow down on discretionary spending.",
				"Set aside what's left for essentials only.")
		case ratio < 40:
			tips = append(tips,
				"Great discipline! You're spending well below your income.",
				"Consider moving the surplus into savings or investments.")
		}

		for _, ct := range categoryThresholds {
			spent := categoryTotals[string(ct.category)]
			if spent > monthlyIncome*ct.share/100 {
				tips = append(tips, ct.message)
			}
		}
	}

	if len(transactions) < lowActivityCount {
		tips = append(tips, "Log more transactions to get sharper insights into your habits.")
	}
	if len(transactions) > highActivityCount {
		tips = append(tips, "Great tracking! Consistent logging makes these insights more accurate.")
	}

	if len(tips) == 0 {
		tips = append(tips, defaultTips...)
	}
	return tips
}
