package utils

import (
	"strings"
	"time"
)

// displayDateLayout is the form all travel and booking dates are
// shown in across the back office: "02 Jan 2006".
const displayDateLayout = "02 Jan 2006"

// dateLayouts are the input formats accepted for DOT/DOTB fields, in
// the order they are tried. Agents paste dates from airline emails
// and spreadsheets, so several separators and orders show up.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// NormalizeDate converts a date string in any accepted layout to the
// display form. The field is informational only, so unparseable input
// is returned trimmed but otherwise verbatim rather than rejected.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayDateLayout)
		}
	}
	return s
}
