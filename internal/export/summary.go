package export

import "github.com/margalk/catms/internal/currency"

// Total is one monetary aggregate, rendered in full and compact form.
type Total struct {
	Label   string  `json:"label"`
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
	Compact string  `json:"compact"`
}

// Summary describes a set of records for dashboard cards.
type Summary struct {
	Type   DataType `json:"type"`
	Count  int      `json:"count"`
	Totals []Total  `json:"totals,omitempty"`
}

// Summarize counts rows of type dt and totals their monetary fields.
func Summarize(dt DataType, rows []Record) (*Summary, error) {
	if _, err := Default.Lookup(dt); err != nil {
		return nil, err
	}
	var f Formatter
	s := &Summary{Type: dt, Count: len(rows)}

	switch dt {
	case Invoices:
		var billed, paid float64
		for _, r := range rows {
			billed += f.Amount(r, "total_amount")
			paid += f.Amount(r, "paid_amount")
		}
		s.Totals = []Total{
			newTotal("Billed", billed),
			newTotal("Paid", paid),
			newTotal("Outstanding", billed-paid),
		}
	case Payments:
		var received float64
		for _, r := range rows {
			received += f.Amount(r, "amount")
		}
		s.Totals = []Total{newTotal("Received", received)}
	}
	return s, nil
}

func newTotal(label string, amount float64) Total {
	amount = currency.Round(amount)
	return Total{
		Label:   label,
		Amount:  amount,
		Display: currency.Format(amount),
		Compact: currency.FormatCompact(amount),
	}
}
