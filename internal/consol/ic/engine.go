// Package ic detects offsetting intercompany transactions across entities
// using amount-bucket and shared-reference heuristics.
package ic

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian/internal/consol"
)

// StatusPending marks a detected pair that has not been eliminated yet.
const StatusPending = "pending"

// referenceConfidence is the fixed score for shared-reference matches.
const referenceConfidence = 0.95

var one = decimal.NewFromInt(1)

// Config tunes the matching heuristics. Zero values fall back to defaults.
type Config struct {
	// MinAmount excludes small postings from the amount-based pass.
	MinAmount decimal.Decimal
	// AmountTolerance is the allowed amount difference as a fraction of the
	// pair average.
	AmountTolerance decimal.Decimal
	// DateWindowDays is the widest acceptable posting date gap.
	DateWindowDays int
	// ConfidenceThreshold is the minimum score for an amount-based match.
	ConfidenceThreshold float64
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		MinAmount:           decimal.NewFromInt(100),
		AmountTolerance:     decimal.RequireFromString("0.01"),
		DateWindowDays:      5,
		ConfidenceThreshold: 0.70,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MinAmount.IsZero() {
		c.MinAmount = def.MinAmount
	}
	if c.AmountTolerance.IsZero() {
		c.AmountTolerance = def.AmountTolerance
	}
	if c.DateWindowDays <= 0 {
		c.DateWindowDays = def.DateWindowDays
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = def.ConfidenceThreshold
	}
	return c
}

// Matcher pairs offsetting transactions across entities. Deterministic for
// identical input; correctness is heuristic (both false positives and missed
// pairs are possible and are normal operation).
type Matcher struct {
	cfg    Config
	logger *slog.Logger
}

// NewMatcher constructs a matcher with the provided thresholds.
func NewMatcher(cfg Config, logger *slog.Logger) *Matcher {
	return &Matcher{cfg: cfg.withDefaults(), logger: logger}
}

// Detect runs both passes over the transaction set, unions the candidates
// and deduplicates them by canonical pair key. The amount-based candidate
// wins when both passes find the same pair.
func (m *Matcher) Detect(txns []consol.LedgerTransaction) []consol.IntercompanyTransaction {
	if m == nil {
		return nil
	}
	candidates := m.detectByAmount(txns)
	candidates = append(candidates, m.detectByReference(txns)...)

	seen := make(map[string]struct{}, len(candidates))
	matches := make([]consol.IntercompanyTransaction, 0, len(candidates))
	for _, c := range candidates {
		key := canonicalKey(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		matches = append(matches, c)
	}

	// Canonical order keeps the eliminations journal reproducible.
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.SourceEntity != b.SourceEntity {
			return a.SourceEntity < b.SourceEntity
		}
		if a.TargetEntity != b.TargetEntity {
			return a.TargetEntity < b.TargetEntity
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Amount.LessThan(b.Amount)
	})

	m.log().Debug("intercompany detection complete",
		slog.Int("transactions", len(txns)),
		slog.Int("matches", len(matches)))
	return matches
}

// detectByAmount buckets postings by integer-rounded absolute amount and
// scores cross-entity opposite-sign pairs. Pairs are drawn from within each
// bucket and from neighbouring buckets whose key still fits inside the
// amount tolerance, so near-equal amounts on either side of a rounding
// boundary are not missed.
func (m *Matcher) detectByAmount(txns []consol.LedgerTransaction) []consol.IntercompanyTransaction {
	buckets := make(map[int64][]consol.LedgerTransaction)
	for _, t := range txns {
		if t.Amount.IsZero() || t.Amount.Abs().LessThan(m.cfg.MinAmount) {
			continue
		}
		key := t.Amount.Abs().Round(0).IntPart()
		buckets[key] = append(buckets[key], t)
	}

	keys := make([]int64, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var matches []consol.IntercompanyTransaction
	for idx, key := range keys {
		bucket := buckets[key]
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				if candidate, ok := m.scorePair(bucket[i], bucket[j]); ok {
					matches = append(matches, candidate)
				}
			}
		}
		limit := decimal.NewFromInt(key).Mul(one.Add(m.cfg.AmountTolerance)).IntPart() + 1
		for next := idx + 1; next < len(keys) && keys[next] <= limit; next++ {
			for _, a := range bucket {
				for _, b := range buckets[keys[next]] {
					if candidate, ok := m.scorePair(a, b); ok {
						matches = append(matches, candidate)
					}
				}
			}
		}
	}
	return matches
}

// scorePair applies tolerance, date window and confidence scoring to one
// candidate pair.
func (m *Matcher) scorePair(a, b consol.LedgerTransaction) (consol.IntercompanyTransaction, bool) {
	if a.EntityID == b.EntityID {
		return consol.IntercompanyTransaction{}, false
	}
	if a.Amount.Sign()*b.Amount.Sign() != -1 {
		return consol.IntercompanyTransaction{}, false
	}

	absA := a.Amount.Abs()
	absB := b.Amount.Abs()
	diff := absA.Sub(absB).Abs()
	tolerance := absA.Add(absB).Div(decimal.NewFromInt(2)).Mul(m.cfg.AmountTolerance)
	if diff.GreaterThan(tolerance) {
		return consol.IntercompanyTransaction{}, false
	}
	gapDays := math.Abs(a.Date.Sub(b.Date).Hours() / 24)
	if gapDays > float64(m.cfg.DateWindowDays) {
		return consol.IntercompanyTransaction{}, false
	}

	confidence := 0.5
	if diff.LessThan(one) {
		confidence += 0.2
	}
	if sameDay(a.Date, b.Date) {
		confidence += 0.2
	}
	if a.Description != "" && b.Description != "" {
		confidence += Similarity(a.Description, b.Description) * 0.2
	}
	// Stacked bonuses may exceed the scale; confidence stays in [0,1].
	if confidence > 1 {
		confidence = 1
	}
	if confidence < m.cfg.ConfidenceThreshold {
		return consol.IntercompanyTransaction{}, false
	}
	return buildMatch(a, b, confidence, consol.MatchByAmount), true
}

// detectByReference groups postings by case-folded reference string and
// emits fixed high-confidence matches for cross-entity opposite-sign pairs.
// Amount and date tolerances do not apply here.
func (m *Matcher) detectByReference(txns []consol.LedgerTransaction) []consol.IntercompanyTransaction {
	groups := make(map[string][]consol.LedgerTransaction)
	for _, t := range txns {
		ref := strings.TrimSpace(t.Reference)
		if len(ref) <= 3 {
			continue
		}
		key := foldReference(ref)
		groups[key] = append(groups[key], t)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var matches []consol.IntercompanyTransaction
	for _, key := range keys {
		group := groups[key]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.EntityID == b.EntityID {
					continue
				}
				if a.Amount.Sign()*b.Amount.Sign() != -1 {
					continue
				}
				matches = append(matches, buildMatch(a, b, referenceConfidence, consol.MatchByReference))
			}
		}
	}
	return matches
}

// buildMatch orients the pair so the inflow side is the source. Symmetric in
// the order of a and b.
func buildMatch(a, b consol.LedgerTransaction, confidence float64, method consol.MatchMethod) consol.IntercompanyTransaction {
	source, target := a, b
	if source.Amount.Sign() < 0 {
		source, target = target, source
	}
	kind := "intercompany_transfer"
	if consol.Classify(source) == consol.CategoryRevenue {
		kind = "intercompany_sale"
	}
	return consol.IntercompanyTransaction{
		SourceEntity:  source.EntityID,
		TargetEntity:  target.EntityID,
		Type:          kind,
		Date:          source.Date,
		Amount:        source.Amount.Abs(),
		Currency:      source.Currency,
		DebitAccount:  source.AccountName,
		CreditAccount: target.AccountName,
		Confidence:    confidence,
		Method:        method,
		Status:        StatusPending,
	}
}

// canonicalKey reduces a candidate to (sorted entity pair, rounded amount,
// date) so overlapping detections collapse to one entry.
func canonicalKey(m consol.IntercompanyTransaction) string {
	first, second := m.SourceEntity, m.TargetEntity
	if second < first {
		first, second = second, first
	}
	return fmt.Sprintf("%s|%s|%d|%s", first, second, m.Amount.Round(0).IntPart(), m.Date.Format("2006-01-02"))
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (m *Matcher) log() *slog.Logger {
	if m != nil && m.logger != nil {
		return m.logger.With(slog.String("component", "ic_matcher"))
	}
	return slog.Default().With(slog.String("component", "ic_matcher"))
}
