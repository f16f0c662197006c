package exchange

import (
	"archive/zip"
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixtureCSV mimics eurofxref-hist.csv: newest first, trailing comma,
// N/A for missing values and no row for 2024-04-16.
const fixtureCSV = `Date,USD,JPY,GBP,
2024-04-19,1.0647,164.62,0.8576,
2024-04-18,1.0670,164.69,0.8558,
2024-04-17,1.0652,164.66,N/A,
2024-04-15,1.0630,N/A,0.8540,
`

func zipCSV(t *testing.T, name, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func fixtureZip(t *testing.T) []byte {
	return zipCSV(t, "eurofxref-hist.csv", fixtureCSV)
}

func day(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// countingFetcher serves fixed bytes (or an error) and counts calls
type countingFetcher struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
	urls  []string
}

func (f *countingFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *countingFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// manualClock is a settable clock for DailyCache
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
