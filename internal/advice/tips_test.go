package advice

import (
	"strings"
	"testing"

	"github.com/finsight-labs/finsight/internal/domain"
)

func txns(n int) []*domain.Transaction {
	out := make([]*domain.Transaction, n)
	for i := range out {
		out[i] = &domain.Transaction{Amount: 10, Category: domain.CategoryOther}
	}
	return out
}

func contains(tips []string, substr string) bool {
	for _, t := range tips {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}

func TestTipsOverBudget(t *testing.T) {
	// 120% of income spent: both over-budget messages, no congratulations.
	tips := Tips(txns(6), map[string]float64{"Other": 60}, 1200, 1000)

	if !contains(tips, "spending more than you earn") {
		t.Errorf("Tips() = %v, want over-budget warning", tips)
	}
	if !contains(tips, "pausing non-essential purchases") {
		t.Errorf("Tips() = %v, want pause-purchases warning", tips)
	}
	if contains(tips, "Great discipline") {
		t.Errorf("Tips() = %v, should not congratulate at 120%% ratio", tips)
	}
}

func TestTipsRatioTierExclusive(t *testing.T) {
	// 90% sits in the >80 tier only.
	tips := Tips(txns(6), nil, 900, 1000)

	if !contains(tips, "over 80% of your monthly income") {
		t.Errorf("Tips() = %v, want 80%% caution", tips)
	}
	if contains(tips, "spending more than you earn") {
		t.Errorf("Tips() = %v, 100%% tier should not fire at 90%%", tips)
	}
}

func TestTipsCategoryChecksStack(t *testing.T) {
	totals := map[string]float64{
		"Food":     300, // 30% of income
		"Shopping": 150, // 15% of income
	}
	tips := Tips(txns(6), totals, 450, 1000)

	if !contains(tips, "Food is taking over 20%") {
		t.Errorf("Tips() = %v, want food tip", tips)
	}
	if !contains(tips, "Shopping is above 10%") {
		t.Errorf("Tips() = %v, want shopping tip", tips)
	}
	if contains(tips, "Entertainment") {
		t.Errorf("Tips() = %v, entertainment tip should not fire", tips)
	}
}

func TestTipsCategoryOrder(t *testing.T) {
	totals := map[string]float64{
		"Shopping": 200,
		"Food":     300,
	}
	tips := Tips(txns(10), totals, 500, 1000)

	foodIdx, shopIdx := -1, -1
	for i, tip := range tips {
		if strings.Contains(tip, "Food is taking") {
			foodIdx = i
		}
		if strings.Contains(tip, "Shopping is above") {
			shopIdx = i
		}
	}
	if foodIdx == -1 || shopIdx == -1 || foodIdx > shopIdx {
		t.Errorf("Tips() order = %v, want food tip before shopping tip", tips)
	}
}

func TestTipsActivityCounts(t *testing.T) {
	low := Tips(txns(2), nil, 500, 1000)
	if !contains(low, "Log more transactions") {
		t.Errorf("Tips() = %v, want low-activity tip for 2 transactions", low)
	}

	high := Tips(txns(25), nil, 500, 1000)
	if !contains(high, "Great tracking") {
		t.Errorf("Tips() = %v, want high-activity tip for 25 transactions", high)
	}
}

func TestTipsNeverEmpty(t *testing.T) {
	// Zero transactions with zero income: only the low-activity rule fires.
	tips := Tips(nil, nil, 0, 0)
	if len(tips) == 0 {
		t.Fatal("Tips() returned empty list")
	}

	// Mid-range ratio, mid-range count, no category breach: defaults kick in.
	tips = Tips(txns(10), nil, 500, 1000)
	if len(tips) != len(defaultTips) {
		t.Fatalf("Tips() = %v, want default set", tips)
	}
	for i, want := range defaultTips {
		if tips[i] != want {
			t.Errorf("Tips()[%d] = %q, want %q", i, tips[i], want)
		}
	}
}

func TestTipsZeroIncomeSkipsRatioRules(t *testing.T) {
	tips := Tips(txns(10), map[string]float64{"Food": 500}, 500, 0)
	if contains(tips, "Food is taking") || contains(tips, "spending more than you earn") {
		t.Errorf("Tips() = %v, income-gated rules should not fire with zero income", tips)
	}
}
