package categorize

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/finsight-labs/finsight/internal/domain"
	"github.com/finsight-labs/finsight/internal/inference"
)

// keywordEntry binds a category to its keyword substrings. The table is an
// ordered association list, not a map: entries are tested in declaration
// order and the first keyword hit wins, so this order is load-bearing.
type keywordEntry struct {
	category domain.Category
	keywords []string
}

var keywordTable = []keywordEntry{
	{domain.CategoryFood, []string{"restaurant", "food", "cafe", "pizza", "burger", "chicken", "shop", "grocery", "market", "bakery"}},
	{domain.CategoryTransport, []string{"uber", "taxi", "fuel", "gas", "transit", "train", "bus", "parking", "mechanic"}},
	{domain.CategoryEntertainment, []string{"movie", "cinema", "game", "music", "concert", "theatre", "stream", "spotify", "netflix"}},
	{domain.CategoryShopping, []string{"mall", "store", "shop", "amazon", "retail", "clothes", "fashion", "shoes"}},
	{domain.CategoryBills, []string{"power", "electricity", "water", "internet", "phone", "cable", "rent", "subscription"}},
	{domain.CategoryUtilities, []string{"electric", "water", "gas", "internet", "phone"}},
	{domain.CategoryHealth, []string{"pharmacy", "hospital", "doctor", "clinic", "medical", "health"}},
	{domain.CategoryEducation, []string{"school", "university", "course", "tuition", "book", "learning"}},
}

// Engine assigns a category to a transaction from its merchant and
// description. Keyword matching runs first; only when no keyword hits does
// the engine call the remote zero-shot classifier.
type Engine struct {
	inference inference.Service
	log       zerolog.Logger
}

// NewEngine creates a categorization engine. inference may be nil, in which
// case unmatched text falls straight through to Other.
func NewEngine(svc inference.Service, log zerolog.Logger) *Engine {
	return &Engine{inference: svc, log: log}
}

// Categorize returns the category for the given merchant and description.
// Every path terminates with a valid category; no case is fatal.
func (e *Engine) Categorize(ctx context.Context, merchant, description string) domain.Category {
	text := strings.ToLower(merchant + " " + description)

	for _, entry := range keywordTable {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}

	if e.inference != nil {
		labels := make([]string, len(domain.Categories))
		for i, c := range domain.Categories {
			labels[i] = string(c)
		}

		label, err := e.inference.Classify(ctx, merchant, labels)
		if err != nil {
			e.log.Warn().Err(err).Str("merchant", merchant).Msg("Classifier fallback failed")
			return domain.CategoryOther
		}
		return domain.Category(label)
	}

	return domain.CategoryOther
}
