package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
)

const recognitionPrompt = `You read receipts, invoices and screenshots of bank or wallet transfers.

Return STRICT JSON only: an array of objects, one per transaction in the image.
Each object has these fields:
- "date": string, "YYYY-MM-DD", or "" when the image shows no date
- "amount": number, always positive
- "currency": ISO 4217 code such as "USD", "EUR" or "CNY"
- "type": "EXPENSE" or "INCOME"
- "merchant": string, the shop or counterparty, or ""
- "note": string, a short description of what was bought or received
- "category": string, a short category name such as "Food", "Transport" or "Salary"

A receipt with several line items is ONE transaction with the receipt total.
Return [] when the image contains no transaction.`

// parseCandidates accepts a bare array, an object wrapping one under
// "transactions", or either inside a markdown code fence.
func parseCandidates(text string) ([]transactions.Candidate, error) {
	clean := cleanModelJSON(text)
	if clean == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	if strings.HasPrefix(clean, "{") {
		var wrapped struct {
			Transactions []transactions.Candidate `json:"transactions"`
		}
		if err := json.Unmarshal([]byte(clean), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode model output: %w", err)
		}
		return normalize(wrapped.Transactions), nil
	}

	var candidates []transactions.Candidate
	if err := json.Unmarshal([]byte(clean), &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}
	return normalize(candidates), nil
}

func cleanModelJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// normalize drops zero-amount rows and upper-cases codes
func normalize(in []transactions.Candidate) []transactions.Candidate {
	out := make([]transactions.Candidate, 0, len(in))
	for _, c := range in {
		if c.Amount == 0 {
			continue
		}
		c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
		c.Type = strings.ToUpper(strings.TrimSpace(c.Type))
		c.Merchant = strings.TrimSpace(c.Merchant)
		c.Note = strings.TrimSpace(c.Note)
		c.Category = strings.TrimSpace(c.Category)
		out = append(out, c)
	}
	return out
}
