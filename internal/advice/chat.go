package advice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/finsight-labs/finsight/internal/analysis"
	"github.com/finsight-labs/finsight/internal/domain"
	"github.com/finsight-labs/finsight/internal/inference"
)

// ChatAnalysis is the computed metrics block returned alongside the advice
// text so the UI can render the numbers the answer was grounded on.
type ChatAnalysis struct {
	MonthlyIncome     float64            `json:"monthly_income"`
	TotalSpent        float64            `json:"total_spent"`
	SpendingRatio     float64            `json:"spending_ratio"`
	HealthStatus      string             `json:"health_status"`
	HealthScore       int                `json:"health_score"`
	TopCategory       string             `json:"top_category"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
}

// ChatResponse is the result of one advisor question.
type ChatResponse struct {
	Advice     string       `json:"advice"`
	Analysis   ChatAnalysis `json:"analysis"`
	DurationMS int64        `json:"duration_ms"`
}

// Advisor answers free-text financial questions. It grounds the model in the
// user's actual numbers and degrades to a computed sentence when the model is
// unreachable, so the endpoint never hard-fails on the remote call alone.
type Advisor struct {
	inference inference.Service
	log       zerolog.Logger
}

// NewAdvisor creates a chat advisor.
func NewAdvisor(svc inference.Service, log zerolog.Logger) *Advisor {
	return &Advisor{inference: svc, log: log}
}

// Advise answers the question using the user's profile and transactions.
// Generation is tried streaming first, then non-streaming, then a
// deterministic fallback built from the already-computed metrics.
func (a *Advisor) Advise(ctx context.Context, question string, profile *domain.UserProfile, transactions []*domain.Transaction) ChatResponse {
	start := time.Now()

	spending := analysis.Analyze(transactions)
	ratio := analysis.SpendingRatio(spending.TotalSpent, profile.MonthlyIncome)
	status, score := analysis.HealthStatus(spending.TotalSpent, profile.MonthlyIncome)

	chatAnalysis := ChatAnalysis{
		MonthlyIncome:     profile.MonthlyIncome,
		TotalSpent:        spending.TotalSpent,
		SpendingRatio:     ratio,
		HealthStatus:      status,
		HealthScore:       score,
		TopCategory:       spending.TopCategory,
		CategoryBreakdown: spending.CategoryBreakdown,
	}

	prompt := buildPrompt(question, profile, spending, ratio, status)

	advice, err := a.inference.GenerateStream(ctx, prompt)
	if err != nil {
		a.log.Warn().Err(err).Msg("Streaming generation failed, retrying non-streaming")
		advice, err = a.inference.Generate(ctx, prompt)
	}
	if err != nil {
		a.log.Error().Err(err).Msg("Chat generation failed, using computed fallback")
		advice = fallbackAdvice(spending, ratio, status)
	}

	return ChatResponse{
		Advice:     advice,
		Analysis:   chatAnalysis,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

// buildPrompt embeds the user's metrics into a structured advisor prompt.
// The category breakdown is sorted descending by amount so the model sees
// the biggest buckets first.
func buildPrompt(question string, profile *domain.UserProfile, spending analysis.SpendingAnalysis, ratio float64, status string) string {
	var b strings.Builder

	b.WriteString("You are a practical personal-finance advisor. Answer the user's question ")
	b.WriteString("using their actual numbers below. Be concrete and brief.\n\n")

	fmt.Fprintf(&b, "Monthly income: %.2f\n", profile.MonthlyIncome)
	fmt.Fprintf(&b, "Total spent this month: %.2f\n", spending.TotalSpent)
	fmt.Fprintf(&b, "Spending ratio: %.0f%% of income\n", ratio)
	fmt.Fprintf(&b, "Financial health: %s\n", status)

	if len(spending.CategoryBreakdown) > 0 {
		b.WriteString("\nSpending by category (largest first):\n")
		for _, cat := range sortedCategories(spending.CategoryBreakdown) {
			fmt.Fprintf(&b, "- %s: %.2f\n", cat, spending.CategoryBreakdown[cat])
		}
	}

	if patterns := detectPatterns(spending.CategoryBreakdown, profile.MonthlyIncome); len(patterns) > 0 {
		b.WriteString("\nDetected patterns:\n")
		for _, p := range patterns {
			b.WriteString("- " + p + "\n")
		}
	}

	b.WriteString("\nQuestion: " + question + "\n")
	return b.String()
}

// sortedCategories orders category names by descending amount, with name as
// the tie-break so prompts are reproducible.
func sortedCategories(breakdown map[string]float64) []string {
	cats := make([]string, 0, len(breakdown))
	for cat := range breakdown {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		if breakdown[cats[i]] != breakdown[cats[j]] {
			return breakdown[cats[i]] > breakdown[cats[j]]
		}
		return cats[i] < cats[j]
	})
	return cats
}

// detectPatterns phrases the per-category overspend thresholds as sentences
// for the prompt. Same thresholds as the tip rules.
func detectPatterns(breakdown map[string]float64, monthlyIncome float64) []string {
	if monthlyIncome <= 0 {
		return nil
	}

	var patterns []string
	for _, ct := range categoryThresholds {
		spent := breakdown[string(ct.category)]
		if spent > monthlyIncome*ct.share/100 {
			patterns = append(patterns, fmt.Sprintf("%s spending is above %.0f%% of monthly income.", ct.category, ct.share))
		}
	}
	return patterns
}

// fallbackAdvice synthesizes a deterministic answer from the computed
// metrics when the model is unreachable.
func fallbackAdvice(spending analysis.SpendingAnalysis, ratio float64, status string) string {
	instruction := "Keep your spending steady and put the surplus toward your savings goal."
	switch {
	case ratio > 100:
		instruction = "You are over budget: pause non-essential spending and review your biggest category first."
	case ratio > 80:
		instruction = "You are close to your limit: hold off on discretionary purchases for the rest of the month."
	case ratio > 40:
		instruction = "You have room, but set category budgets to keep the ratio from creeping up."
	}

	if spending.TransactionCount == 0 {
		return fmt.Sprintf("I don't have any transactions to work with yet. Your financial health is %s. Start logging expenses and ask me again.", status)
	}

	return fmt.Sprintf("Your top spending category is %s at %.0f of %.0f total spent. You've used %.0f%% of your monthly income (%s). %s",
		spending.TopCategory, spending.CategoryBreakdown[spending.TopCategory], spending.TotalSpent, ratio, status, instruction)
}
