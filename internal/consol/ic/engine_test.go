package ic

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian/internal/consol"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func tx(entity, account string, amount string, date time.Time, desc, ref string) consol.LedgerTransaction {
	return consol.LedgerTransaction{
		EntityID:    entity,
		AccountID:   account,
		AccountName: account,
		Amount:      decimal.RequireFromString(amount),
		Date:        date,
		Description: desc,
		Reference:   ref,
		Currency:    "USD",
		Basis:       consol.BasisActual,
	}
}

func TestDetectAmountPairSameDay(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	matches := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Sales Revenue", "100000", day(1), "IC Sale to Beta", ""),
		tx("beta", "COGS", "-100050", day(1), "IC Purchase from Alpha", ""),
	})
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	got := matches[0]
	if got.SourceEntity != "alpha" || got.TargetEntity != "beta" {
		t.Fatalf("unexpected orientation %s -> %s", got.SourceEntity, got.TargetEntity)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected inflow amount 100000, got %s", got.Amount)
	}
	if got.Confidence < 0.70 {
		t.Fatalf("expected confidence >= 0.70, got %f", got.Confidence)
	}
	if got.Method != consol.MatchByAmount {
		t.Fatalf("expected amount method, got %s", got.Method)
	}
	if got.Type != "intercompany_sale" {
		t.Fatalf("expected intercompany_sale, got %s", got.Type)
	}
	if got.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", got.Status)
	}
}

func TestDetectSymmetricInInputOrder(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	a := tx("alpha", "Sales Revenue", "5000", day(2), "transfer", "")
	b := tx("beta", "Cash", "-5000", day(2), "transfer", "")

	forward := m.Detect([]consol.LedgerTransaction{a, b})
	reversed := m.Detect([]consol.LedgerTransaction{b, a})

	if len(forward) != 1 || len(reversed) != 1 {
		t.Fatalf("expected one match each way, got %d and %d", len(forward), len(reversed))
	}
	if forward[0].SourceEntity != reversed[0].SourceEntity || forward[0].TargetEntity != reversed[0].TargetEntity {
		t.Fatalf("match orientation depends on input order: %+v vs %+v", forward[0], reversed[0])
	}
	if !forward[0].Amount.Equal(reversed[0].Amount) {
		t.Fatalf("match amount depends on input order")
	}
}

func TestDetectRejectsSameEntityAndSameSign(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)

	sameEntity := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Sales Revenue", "7500", day(3), "x", ""),
		tx("alpha", "COGS", "-7500", day(3), "x", ""),
	})
	if len(sameEntity) != 0 {
		t.Fatalf("same-entity pair must not match, got %d", len(sameEntity))
	}

	sameSign := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Sales Revenue", "7500", day(3), "x", ""),
		tx("beta", "Sales Revenue", "7500", day(3), "x", ""),
	})
	if len(sameSign) != 0 {
		t.Fatalf("same-sign pair must not match, got %d", len(sameSign))
	}
}

func TestDetectAmountToleranceAndDateWindow(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)

	tooFarApart := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Sales Revenue", "10000", day(1), "", ""),
		tx("beta", "COGS", "-10200", day(1), "", ""),
	})
	if len(tooFarApart) != 0 {
		t.Fatalf("2%% amount gap must exceed the 1%% tolerance, got %d matches", len(tooFarApart))
	}

	staleDate := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Sales Revenue", "10000", day(1), "", ""),
		tx("beta", "COGS", "-10000", day(10), "", ""),
	})
	if len(staleDate) != 0 {
		t.Fatalf("9 day gap must exceed the 5 day window, got %d matches", len(staleDate))
	}
}

func TestDetectMinAmountFilter(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	matches := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Sales Revenue", "99", day(1), "", ""),
		tx("beta", "COGS", "-99", day(1), "", ""),
	})
	if len(matches) != 0 {
		t.Fatalf("postings below the minimum amount must be skipped, got %d", len(matches))
	}
}

func TestDetectConfidenceThreshold(t *testing.T) {
	// Different days and a 0.9% amount gap leave only the 0.5 base score.
	m := NewMatcher(DefaultConfig(), nil)
	matches := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Sales Revenue", "10000", day(1), "", ""),
		tx("beta", "COGS", "-10090", day(3), "", ""),
	})
	if len(matches) != 0 {
		t.Fatalf("base confidence 0.5 must not pass the 0.70 threshold, got %d", len(matches))
	}
}

func TestDetectConfidenceCappedAtOne(t *testing.T) {
	// Identical amounts, same day and identical descriptions collect every
	// bonus; the score must still top out at 1.
	m := NewMatcher(DefaultConfig(), nil)
	matches := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Sales Revenue", "50000", day(6), "IC settlement March", ""),
		tx("beta", "COGS", "-50000", day(6), "IC settlement March", ""),
	})
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	if got := matches[0].Confidence; got != 1.0 {
		t.Fatalf("expected confidence capped at 1.0, got %v", got)
	}
}

func TestDetectByReferenceIgnoresTolerances(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	matches := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Receivable", "40000", day(1), "", "INV-2024-001"),
		tx("beta", "Payable", "-43000", day(20), "", "inv-2024-001"),
	})
	if len(matches) != 1 {
		t.Fatalf("expected one reference match, got %d", len(matches))
	}
	if matches[0].Method != consol.MatchByReference {
		t.Fatalf("expected reference method, got %s", matches[0].Method)
	}
	if matches[0].Confidence != 0.95 {
		t.Fatalf("expected fixed 0.95 confidence, got %f", matches[0].Confidence)
	}
}

func TestDetectShortReferenceSkipped(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	matches := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Receivable", "40000", day(1), "", "ab1"),
		tx("beta", "Payable", "-43000", day(1), "", "ab1"),
	})
	if len(matches) != 0 {
		t.Fatalf("references of length <= 3 must not group, got %d", len(matches))
	}
}

func TestDetectDeduplicatesAcrossPasses(t *testing.T) {
	// Identical amounts, same day, shared reference: both passes fire.
	m := NewMatcher(DefaultConfig(), nil)
	matches := m.Detect([]consol.LedgerTransaction{
		tx("alpha", "Sales Revenue", "25000", day(4), "ic settlement", "REF-777"),
		tx("beta", "COGS", "-25000", day(4), "ic settlement", "REF-777"),
	})
	if len(matches) != 1 {
		t.Fatalf("pair caught by both passes must appear once, got %d", len(matches))
	}
	if matches[0].Method != consol.MatchByAmount {
		t.Fatalf("amount-based candidate should survive dedup, got %s", matches[0].Method)
	}
}

func TestDetectDeterministicOrder(t *testing.T) {
	txns := []consol.LedgerTransaction{
		tx("delta", "Sales Revenue", "9000", day(5), "d", ""),
		tx("echo", "COGS", "-9000", day(5), "d", ""),
		tx("alpha", "Sales Revenue", "4000", day(5), "a", ""),
		tx("beta", "COGS", "-4000", day(5), "a", ""),
	}
	m := NewMatcher(DefaultConfig(), nil)
	first := m.Detect(txns)
	second := m.Detect([]consol.LedgerTransaction{txns[2], txns[3], txns[0], txns[1]})

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected two matches, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].SourceEntity != second[i].SourceEntity || !first[i].Amount.Equal(second[i].Amount) {
			t.Fatalf("output order depends on input order at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	m := NewMatcher(Config{}, nil)
	if !m.cfg.MinAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected default min amount 100, got %s", m.cfg.MinAmount)
	}
	if m.cfg.DateWindowDays != 5 {
		t.Fatalf("expected default window 5, got %d", m.cfg.DateWindowDays)
	}
	if m.cfg.ConfidenceThreshold != 0.70 {
		t.Fatalf("expected default threshold 0.70, got %f", m.cfg.ConfidenceThreshold)
	}
}
