package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Ginzoh/bill-app-MK/internal/bill"
)

var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
}

// parseReceiptJSON extracts ReceiptData from a model response
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var data ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.Title = strings.TrimSpace(data.Title)
	data.Date = normalizeDate(data.Date)
	if !bill.IsCategory(data.Type) {
		data.Type = ""
	}
	if data.Amount < 0 {
		data.Amount = 0
	}

	return &data, nil
}

// normalizeDate rewrites a date to YYYY-MM-DD, or returns "" if it can't be read
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return ""
}
