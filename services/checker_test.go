package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fare-tracker/config"
	"fare-tracker/models"
	"fare-tracker/storage"
)

func singleRowPage(price int) string {
	return fmt.Sprintf(`<html><body><table>
<tr class="bugTableRow">
  <td><span class="time">8:00</span><span class="indicator">AM</span></td>
  <td><span class="time">11:00</span><span class="indicator">AM</span></td>
  <td class="duration">5h 0m</td>
  <td><span class="product_price">$%d</span></td>
</tr>
</table></body></html>`, price)
}

const emptyResultsPage = `<html><body><p>No flights available</p></body></html>`

// fakeFetcher serves a fixed page per query and records what was searched.
type fakeFetcher struct {
	pages    map[models.Query]string
	failures map[models.Query]error
	searched []models.Query
	pagesOut []*fakePage
}

func (f *fakeFetcher) Search(_ context.Context, q models.Query) (Page, error) {
	f.searched = append(f.searched, q)
	if err, ok := f.failures[q]; ok {
		return nil, err
	}
	html, ok := f.pages[q]
	if !ok {
		html = emptyResultsPage
	}
	p := &fakePage{snapshots: []string{html}}
	f.pagesOut = append(f.pagesOut, p)
	return p, nil
}

type recordingNotifier struct {
	reports []*models.Report
}

func (n *recordingNotifier) Notify(_ context.Context, r *models.Report) error {
	n.reports = append(n.reports, r)
	return nil
}

type recordingMirror struct {
	written []models.Observation
	err     error
}

func (m *recordingMirror) Write(obs []models.Observation) error {
	m.written = append(m.written, obs...)
	return m.err
}

func (m *recordingMirror) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogFile:      "log.csv",
		WorkRoot:     t.TempDir(),
		QueryTimeout: 5 * time.Second,
		MaxRetries:   1,
	}
}

func newTestChecker(cfg *config.Config, f Fetcher, m *Metrics) *Checker {
	c := NewChecker(cfg, f, m, newTestLogger())
	c.retry.BaseDelay = 0
	return c
}

var testTrip = &config.Trip{
	Name:      "nyc-la",
	Dates:     []string{"2024-01-01"},
	Departure: []string{"JFK"},
	Arrival:   []string{"LAX"},
}

var testKey = models.ItineraryKey{
	Date:       "2024-01-01",
	DepartCity: "JFK",
	ArriveCity: "LAX",
	DepartTime: "8:00 AM",
	ArriveTime: "11:00 AM",
	Duration:   "5h 00m",
}

func TestCheckerFirstRunStartsLog(t *testing.T) {
	cfg := testConfig(t)
	f := &fakeFetcher{pages: map[models.Query]string{testQuery: singleRowPage(120)}}
	c := newTestChecker(cfg, f, nil)

	report, err := c.Run(context.Background(), testTrip)
	require.NoError(t, err)

	want := []models.Observation{{ItineraryKey: testKey, BestPrice: 120}}
	assert.Equal(t, want, report.NewEntries)
	assert.Empty(t, report.NewLows)
	assert.Equal(t, 1, report.LogSize)
	assert.Equal(t, filepath.Join(cfg.WorkRoot, "nyc-la", "log.csv"), report.LogPath)

	logged, err := storage.LoadHistory(report.LogPath)
	require.NoError(t, err)
	assert.Equal(t, want, logged)

	require.Len(t, f.pagesOut, 1)
	assert.True(t, f.pagesOut[0].closed)
}

func TestCheckerReportsNewLow(t *testing.T) {
	cfg := testConfig(t)
	c := newTestChecker(cfg, &fakeFetcher{pages: map[models.Query]string{testQuery: singleRowPage(120)}}, nil)
	require.NoError(t, storage.SaveHistory(c.LogPath(testTrip),
		[]models.Observation{{ItineraryKey: testKey, BestPrice: 150}}))

	report, err := c.Run(context.Background(), testTrip)
	require.NoError(t, err)

	require.Len(t, report.NewLows, 1)
	assert.Equal(t, 120, report.NewLows[0].BestPrice)
	assert.Equal(t, 150, report.NewLows[0].PreviousBest)

	logged, err := storage.LoadHistory(report.LogPath)
	require.NoError(t, err)
	assert.Equal(t, []models.Observation{
		{ItineraryKey: testKey, BestPrice: 150},
		{ItineraryKey: testKey, BestPrice: 120},
	}, logged)
}

func TestCheckerRepeatRunAddsNothing(t *testing.T) {
	cfg := testConfig(t)
	f := &fakeFetcher{pages: map[models.Query]string{testQuery: singleRowPage(120)}}
	c := newTestChecker(cfg, f, nil)
	n := &recordingNotifier{}
	c.Notifier = n

	_, err := c.Run(context.Background(), testTrip)
	require.NoError(t, err)
	before, err := os.ReadFile(c.LogPath(testTrip))
	require.NoError(t, err)

	report, err := c.Run(context.Background(), testTrip)
	require.NoError(t, err)
	assert.False(t, report.HasNews())
	assert.Equal(t, 1, report.LogSize)

	after, err := os.ReadFile(c.LogPath(testTrip))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Len(t, n.reports, 1, "only the first run had news")
}

func TestCheckerSkipsFailedSearch(t *testing.T) {
	cfg := testConfig(t)
	trip := &config.Trip{
		Name:      "multi",
		Dates:     []string{"2024-01-01"},
		Departure: []string{"JFK", "EWR"},
		Arrival:   []string{"LAX"},
	}
	failing := models.Query{Date: "2024-01-01", Departure: "JFK", Arrival: "LAX"}
	ok := models.Query{Date: "2024-01-01", Departure: "EWR", Arrival: "LAX"}
	f := &fakeFetcher{
		pages:    map[models.Query]string{ok: singleRowPage(99)},
		failures: map[models.Query]error{failing: errors.New("navigation timeout")},
	}
	m := NewMetrics()
	c := newTestChecker(cfg, f, m)

	report, err := c.Run(context.Background(), trip)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Queries)
	assert.Equal(t, 1, report.QueriesFailed)
	require.Len(t, report.NewEntries, 1)
	assert.Equal(t, "EWR", report.NewEntries[0].DepartCity)
	assert.Equal(t, []models.Query{failing, ok}, f.searched)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("multi", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("multi", "ok")))
}

func TestCheckerAbortOnFetchError(t *testing.T) {
	cfg := testConfig(t)
	cfg.AbortOnFetchError = true
	boom := errors.New("navigation timeout")
	c := newTestChecker(cfg, &fakeFetcher{failures: map[models.Query]error{testQuery: boom}}, nil)

	report, err := c.Run(context.Background(), testTrip)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, boom)

	var searchErr *SearchError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, testQuery, searchErr.Query)

	_, err = os.Stat(c.LogPath(testTrip))
	assert.True(t, os.IsNotExist(err), "aborted run must not touch the log")
}

func TestCheckerAllSearchesFailed(t *testing.T) {
	cfg := testConfig(t)
	c := newTestChecker(cfg, &fakeFetcher{failures: map[models.Query]error{testQuery: errors.New("down")}}, nil)

	report, err := c.Run(context.Background(), testTrip)
	assert.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.QueriesFailed)
}

func TestCheckerEmptyResultsCreateHeaderOnlyLog(t *testing.T) {
	cfg := testConfig(t)
	c := newTestChecker(cfg, &fakeFetcher{}, nil)

	report, err := c.Run(context.Background(), testTrip)
	require.NoError(t, err)
	assert.Equal(t, 1, report.QueriesEmpty)
	assert.Zero(t, report.LogSize)

	data, err := os.ReadFile(c.LogPath(testTrip))
	require.NoError(t, err)
	assert.Equal(t, "date,depart_city,arrive_city,depart_time,arrive_time,duration,best_price\n", string(data))
}

func TestCheckerMirrorsAndNotifies(t *testing.T) {
	cfg := testConfig(t)
	c := newTestChecker(cfg, &fakeFetcher{pages: map[models.Query]string{testQuery: singleRowPage(120)}}, nil)
	mirror := &recordingMirror{err: errors.New("connection refused")}
	n := &recordingNotifier{}
	c.Mirror = mirror
	c.Notifier = n

	report, err := c.Run(context.Background(), testTrip)
	require.NoError(t, err, "mirror failures are not fatal")
	assert.Equal(t, report.NewEntries, mirror.written)
	require.Len(t, n.reports, 1)
	assert.Same(t, report, n.reports[0])
}

func TestCheckerRejectsCorruptHistory(t *testing.T) {
	cfg := testConfig(t)
	c := newTestChecker(cfg, &fakeFetcher{pages: map[models.Query]string{testQuery: singleRowPage(120)}}, nil)
	path := c.LogPath(testTrip)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not,a,log\n"), 0o644))

	_, err := c.Run(context.Background(), testTrip)
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not,a,log\n", string(data))
}

func TestCheckerStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	c := newTestChecker(cfg, &fakeFetcher{failures: map[models.Query]error{testQuery: errors.New("down")}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, testTrip)
	assert.ErrorIs(t, err, context.Canceled)
}
