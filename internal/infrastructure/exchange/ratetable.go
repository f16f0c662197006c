package exchange

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	missing    = "N/A"
)

// ReferenceCurrency is the currency every published rate is quoted against
const ReferenceCurrency = valueobject.EUR

// series holds one currency's published rates in ascending date order
type series struct {
	days  []time.Time
	rates []decimal.Decimal
}

// RateTable is a parsed ECB dataset: units of each currency per 1 EUR, by day.
type RateTable struct {
	series map[valueobject.Currency]*series
}

// ParseECB parses the ECB historical archive: a zip holding one CSV whose
// header is "Date,USD,JPY,..." and whose cells are rates or "N/A".
func ParseECB(data []byte) (*RateTable, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open rate archive: %w", err)
	}

	var csvFile *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			csvFile = f
			break
		}
	}
	if csvFile == nil {
		return nil, errors.New("rate archive holds no csv file")
	}

	rc, err := csvFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", csvFile.Name, err)
	}
	defer rc.Close()

	return ParseCSV(rc)
}

// ParseCSV parses the CSV body of the ECB archive.
func ParseCSV(r io.Reader) (*RateTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read rate header: %w", err)
	}
	if len(header) < 2 || strings.TrimSpace(header[0]) != "Date" {
		return nil, fmt.Errorf("unexpected rate header %q", strings.Join(header, ","))
	}

	columns := make([]valueobject.Currency, len(header))
	table := &RateTable{series: make(map[valueobject.Currency]*series)}
	for i, name := range header[1:] {
		code := valueobject.Currency(strings.TrimSpace(name))
		if code == "" {
			continue
		}
		columns[i+1] = code
		table.series[code] = &series{}
	}

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read rate line %d: %w", line, err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		day, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q", line, record[0])
		}
		for i := 1; i < len(record) && i < len(columns); i++ {
			code := columns[i]
			cell := strings.TrimSpace(record[i])
			if code == "" || cell == "" || cell == missing {
				continue
			}
			rate, err := decimal.NewFromString(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s rate %q", line, code, cell)
			}
			s := table.series[code]
			s.days = append(s.days, day)
			s.rates = append(s.rates, rate)
		}
	}

	for code, s := range table.series {
		if len(s.days) == 0 {
			delete(table.series, code)
			continue
		}
		sort.Sort(byDay{s})
	}
	return table, nil
}

type byDay struct{ *series }

func (b byDay) Len() int           { return len(b.days) }
func (b byDay) Less(i, j int) bool { return b.days[i].Before(b.days[j]) }
func (b byDay) Swap(i, j int) {
	b.days[i], b.days[j] = b.days[j], b.days[i]
	b.rates[i], b.rates[j] = b.rates[j], b.rates[i]
}

// Currencies returns the quoted currencies in alphabetical order, EUR excluded.
func (t *RateTable) Currencies() []valueobject.Currency {
	out := make([]valueobject.Currency, 0, len(t.series))
	for code := range t.series {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Supports reports whether the table can quote the currency
func (t *RateTable) Supports(code valueobject.Currency) bool {
	if code == ReferenceCurrency {
		return true
	}
	_, ok := t.series[code]
	return ok
}

// Bounds returns the first and last day with a published rate for code.
func (t *RateTable) Bounds(code valueobject.Currency) (first, last time.Time, ok bool) {
	s, ok := t.series[code]
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return s.days[0], s.days[len(s.days)-1], true
}

// Rate returns the units of code per 1 EUR published on the given day, and
// the day the returned rate was published. EUR is always 1.
//
// A day outside the currency's published range is RATE_NOT_FOUND. A day inside
// the range without a rate is RATE_NOT_FOUND unless fallback is set, in which
// case the closest earlier rate is returned.
func (t *RateTable) Rate(code valueobject.Currency, on time.Time, fallback bool) (decimal.Decimal, time.Time, error) {
	day := time.Date(on.Year(), on.Month(), on.Day(), 0, 0, 0, 0, time.UTC)
	if code == ReferenceCurrency {
		return decimal.NewFromInt(1), day, nil
	}

	s, ok := t.series[code]
	if !ok {
		return decimal.Zero, time.Time{}, shared.NewRateNotFoundError(
			fmt.Sprintf("%s is not a supported currency", code), nil)
	}

	first, last := s.days[0], s.days[len(s.days)-1]
	if day.Before(first) || day.After(last) {
		return decimal.Zero, time.Time{}, shared.NewRateNotFoundError(
			fmt.Sprintf("%s has no rate on %s, rates are published from %s to %s",
				code, day.Format(dateLayout), first.Format(dateLayout), last.Format(dateLayout)), nil)
	}

	// first index with days[i] >= day
	i := sort.Search(len(s.days), func(i int) bool { return !s.days[i].Before(day) })
	if i < len(s.days) && s.days[i].Equal(day) {
		return s.rates[i], day, nil
	}
	if !fallback {
		return decimal.Zero, time.Time{}, shared.NewRateNotFoundError(
			fmt.Sprintf("%s has no rate published on %s", code, day.Format(dateLayout)), nil)
	}
	// day is after first, so i >= 1
	return s.rates[i-1], s.days[i-1], nil
}
