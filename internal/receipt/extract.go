package receipt

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/finsight-labs/finsight/internal/inference"
)

// Confidence tags how trustworthy the extracted fields are.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Result is the outcome of one receipt-parse call. It is transient: callers
// consume it immediately to pre-fill or create a transaction.
type Result struct {
	Success     bool    `json:"success"`
	Merchant    string  `json:"merchant"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Confidence  string  `json:"confidence"`
	Error       string  `json:"error,omitempty"`
}

// The pattern slices below are priority lists: each is attempted in order and
// the first plausible match wins. Reordering them changes observable
// behavior.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[$₦€£]\s*(\d+(?:[.,]\d{2})?)`),
	regexp.MustCompile(`(?i)total[^0-9]*(\d+(?:[.,]\d{2})?)`),
	regexp.MustCompile(`(\d+(?:[.,]\d{2})?)`),
}

var merchantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([A-Za-z][A-Za-z\s&'-]+)`),
	regexp.MustCompile(`(?i)(?:at|from)\s+([A-Za-z][A-Za-z\s&'-]+)`),
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`),
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
}

// boilerplateWords are stripped from merchant candidates: they appear on most
// receipts without identifying the merchant.
var boilerplateWords = []string{"receipt", "invoice", "limited"}

// genericLeadWords are caption openers that are never a merchant name; the
// token-fallback step skips them in favor of the following token.
var genericLeadWords = []string{"data", "bundle", "plan", "transfer", "payment"}

const (
	merchantMinLen = 2
	merchantMaxLen = 60
)

// Extractor turns a receipt image into structured transaction fields by
// combining targeted QA calls with regex post-processing of a free-form
// caption.
type Extractor struct {
	inference inference.Service
	log       zerolog.Logger
}

// NewExtractor creates a receipt field extractor.
func NewExtractor(svc inference.Service, log zerolog.Logger) *Extractor {
	return &Extractor{inference: svc, log: log}
}

// Extract runs the full extraction pipeline on the image. It never returns
// an error: every failure, including a panic, is converted into an
// unsuccessful Result so the calling flow can degrade gracefully.
func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("Receipt extraction panicked")
			result = failure(fmt.Sprintf("extraction panic: %v", r))
		}
	}()

	var merchant, date string
	var amount float64

	// Targeted QA pass. Individual call failures are tolerated: the caption
	// regex pass below can still resolve the field.
	if answer := e.ask(ctx, image, mimeType, "What is the name of the merchant or store on this receipt?"); answer != "" {
		merchant = cleanMerchant(answer)
	}
	if answer := e.ask(ctx, image, mimeType, "What is the total amount on this receipt?"); answer != "" {
		amount = parseAmount(answer)
	}
	if answer := e.ask(ctx, image, mimeType, "What is the date on this receipt?"); answer != "" {
		date = answer
	}

	// Free-form caption, obtained unconditionally: it doubles as the
	// transaction description.
	caption, err := e.inference.CaptionImage(ctx, image, mimeType)
	if err != nil {
		e.log.Error().Err(err).Msg("Receipt caption failed")
		if merchant == "" || amount == 0 {
			return failure(err.Error())
		}
		caption = ""
	}

	if amount == 0 {
		amount = amountFromCaption(caption)
	}
	if merchant == "" {
		merchant = merchantFromCaption(caption)
	}
	if merchant == "" {
		merchant = merchantFromTokens(caption)
	}
	if date == "" {
		date = dateFromCaption(caption)
	}
	if date == "" {
		date = time.Now().UTC().Format(time.RFC3339)
	}

	// Cap by runes, not bytes: model answers can be non-ASCII and a byte
	// slice could split a multibyte character.
	if runes := []rune(merchant); len(runes) > merchantMaxLen {
		merchant = strings.TrimSpace(string(runes[:merchantMaxLen]))
	}

	confidence := ConfidenceLow
	switch {
	case amount > 0 && merchant != "":
		confidence = ConfidenceHigh
	case amount > 0 || merchant != "":
		confidence = ConfidenceMedium
	}

	return Result{
		Success:     true,
		Merchant:    merchant,
		Amount:      amount,
		Date:        date,
		Description: caption,
		Confidence:  confidence,
	}
}

func (e *Extractor) ask(ctx context.Context, image []byte, mimeType, question string) string {
	answer, err := e.inference.AskImage(ctx, image, mimeType, question)
	if err != nil {
		e.log.Warn().Err(err).Str("question", question).Msg("Receipt QA call failed")
		return ""
	}
	return strings.TrimSpace(answer)
}

func failure(msg string) Result {
	return Result{
		Success:    false,
		Error:      msg,
		Merchant:   "",
		Amount:     0,
		Confidence: ConfidenceLow,
	}
}

// parseAmount extracts a positive number from free text, normalizing a
// decimal comma.
func parseAmount(text string) float64 {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil || v == 0 {
			continue
		}
		if v < 0 {
			v = -v
		}
		return v
	}
	return 0
}

func amountFromCaption(caption string) float64 {
	return parseAmount(caption)
}

// merchantFromCaption tries the merchant patterns in priority order and
// returns the first plausible candidate.
func merchantFromCaption(caption string) string {
	for _, re := range merchantPatterns {
		m := re.FindStringSubmatch(caption)
		if m == nil {
			continue
		}
		candidate := cleanMerchant(m[1])
		if len(candidate) < merchantMinLen || len(candidate) > merchantMaxLen {
			continue
		}
		// Captions opening with a generic lead word describe the purchase,
		// not the merchant; leave those to the token fallback.
		if words := strings.Fields(candidate); len(words) > 0 && isGenericLead(words[0]) {
			continue
		}
		return candidate
	}
	return ""
}

// merchantFromTokens is the last-resort fallback: the first alphabetic token
// of the caption, skipping generic lead words in favor of the token after
// them.
func merchantFromTokens(caption string) string {
	for _, tok := range strings.Fields(caption) {
		word := strings.TrimFunc(tok, func(r rune) bool {
			return !isLetter(r)
		})
		if word == "" || !alphabetic(word) {
			continue
		}
		if isGenericLead(word) {
			continue
		}
		if len(word) >= merchantMinLen {
			return word
		}
	}
	return ""
}

// dateFromCaption returns the first recognizable date token.
func dateFromCaption(caption string) string {
	for _, re := range datePatterns {
		if m := re.FindString(caption); m != "" {
			return m
		}
	}
	return ""
}

// cleanMerchant trims quoting and strips boilerplate words like "receipt"
// that describe the document rather than the merchant.
func cleanMerchant(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `"'`)

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if isBoilerplate(w) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

func isBoilerplate(word string) bool {
	w := strings.ToLower(strings.Trim(word, ".,:;"))
	for _, b := range boilerplateWords {
		if w == b {
			return true
		}
	}
	return false
}

func isGenericLead(word string) bool {
	w := strings.ToLower(word)
	for _, g := range genericLeadWords {
		if w == g {
			return true
		}
	}
	return false
}

func alphabetic(s string) bool {
	for _, r := range s {
		if !isLetter(r) {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
