package ledger

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/money"
	"github.com/rinde/rinde/internal/platform/httpx"
)

// Export encodings accepted by WriteCSV.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
)

// ParseEncoding validates the export encoding; empty means UTF-8.
func ParseEncoding(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", EncodingUTF8, "utf8":
		return EncodingUTF8, nil
	case EncodingLatin1, "iso-8859-1":
		return EncodingLatin1, nil
	}
	return "", httpx.Validation("BAD_REQUEST", "encoding must be utf-8 or latin1")
}

// WriteCSV serialises the ledger view, one row per movement followed by the
// totals row. Latin-1 output replaces characters it cannot represent.
func WriteCSV(w io.Writer, view View, enc string) error {
	if enc == EncodingLatin1 {
		w = encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Writer(w)
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Date", "Action", "Type", "Amount", "Shift", "Name"}); err != nil {
		return err
	}
	for _, day := range view.Days {
		for _, m := range day.Movements {
			shift, name := "", ""
			if m.Shift != nil {
				shift = string(*m.Shift)
			}
			if m.PersonName != nil {
				name = *m.PersonName
			}
			if err := writer.Write([]string{
				calendar.FormatDate(m.Date),
				m.ActionName,
				string(m.Type),
				money.Format(m.Amount),
				shift,
				name,
			}); err != nil {
				return err
			}
		}
	}
	records := [][]string{
		{"Total entries", money.Format(view.Totals.Entries)},
		{"Total exits", money.Format(view.Totals.Exits)},
		{"Net result", money.Format(view.Totals.Net)},
		{"Impacted total", money.Format(view.Totals.Impacted)},
		{"Movements", strconv.Itoa(view.Totals.Count)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
