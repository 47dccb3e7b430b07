package discount

import "discount-strategy-api/internal/rules"

// LineItem is one instrument's share of a record, labelled for display.
type LineItem struct {
	Instrument  InstrumentKind `json:"instrument"`
	Label       string         `json:"label"`
	Benefit     BenefitType    `json:"benefit"`
	Amount      int64          `json:"amount"`
	Display     string         `json:"display"`
	Restriction string         `json:"restriction,omitempty"`
}

// Components decomposes rec into per-instrument line items using the store's
// labels and restriction text. It reads the tagged parts of the record only;
// zero-amount parts are skipped.
func Components(rec OutcomeRecord, store rules.Store) []LineItem {
	items := make([]LineItem, 0, len(rec.Parts))
	for _, p := range rec.Parts {
		if p.Amount == 0 {
			continue
		}
		label := instrumentLabel(p.Instrument, store, rec.Carrier)
		items = append(items, LineItem{
			Instrument:  p.Instrument,
			Label:       label,
			Benefit:     p.Benefit,
			Amount:      p.Amount,
			Display:     FormatWon(p.Amount) + " " + benefitVerb(p.Benefit),
			Restriction: restrictionText(p.Instrument, store, rec.Carrier),
		})
	}
	return items
}
