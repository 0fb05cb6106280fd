package transactions

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// CSVHeader is the first row of every export
var CSVHeader = []string{"Date", "Type", "Category", "Amount", "Currency", "Merchant", "Note", "Source"}

// ExportCSV writes the user's full ledger, newest first, with two-decimal amounts
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, userID string) (int, error) {
	txs, err := s.repo.List(ctx, userID, Filter{})
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range txs {
		record := []string{
			t.Date.String(),
			string(t.Type),
			t.CategoryName,
			decimal.NewFromFloat(t.Amount).StringFixed(2),
			t.Currency,
			t.Merchant,
			t.Note,
			string(t.Source),
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return len(txs), nil
}
