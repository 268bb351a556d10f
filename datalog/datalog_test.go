package datalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listFiles(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func touch(t *testing.T, dir string, name string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
}

func TestFilename(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 5, 123456789, time.Local)
	assert.Equal(t,
		"2024-01-01-10.00.05-123456_OUT-StopEventRequest-Request.xml",
		Filename(ts, "OUT", "StopEventRequest", "Request"),
	)

	parsed, ok := parseFilename(Filename(ts, "x"))
	require.True(t, ok)
	assert.True(t, ts.Truncate(time.Microsecond).Equal(parsed))

	for _, name := range []string{
		"notes.txt",
		"2024-01-01_x.xml",
		"garbage-123456_x.xml",
		"2024-01-01-10.00.05-12_x.xml",
	} {
		_, ok := parseFilename(name)
		assert.False(t, ok, name)
	}
}

func TestCreateXML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "datalog")
	w := NewWriter(dir, 0)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	w.TimeNow = func() time.Time { return now }

	err := w.Create(
		[]byte(`<Trias version="1.1"><ServiceRequest><RequestorRef>k</RequestorRef></ServiceRequest></Trias>`),
		map[string]any{"station": "de:1", "status": 200},
		"OUT", "StopEventRequest", "Request",
	)
	require.NoError(t, err)

	files := listFiles(t, dir)
	require.Equal(t, 1, len(files))
	assert.Equal(t, "2024-01-01-10.00.00-000000_OUT-StopEventRequest-Request.xml", files[0])

	buf, err := os.ReadFile(filepath.Join(dir, files[0]))
	require.NoError(t, err)
	out := string(buf)

	// Pretty printed
	assert.True(t, strings.HasPrefix(out, "<Trias version=\"1.1\">\n  <ServiceRequest>\n    <RequestorRef>k</RequestorRef>"))

	// Metadata comment
	assert.Contains(t, out, "<!--\nRequest Meta Data:\n{\n")
	assert.Contains(t, out, `    "station": "de:1"`)
	assert.Contains(t, out, `    "status": 200`)
	assert.True(t, strings.HasSuffix(out, "}\n-->\n"))
}

func TestCreateVerbatim(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 0)

	require.NoError(t, w.Create([]byte("502 Bad Gateway"), nil, "OUT", "StopEventRequest", "Response"))

	files := listFiles(t, dir)
	require.Equal(t, 1, len(files))
	assert.True(t, strings.HasSuffix(files[0], "_OUT-StopEventRequest-Response.xml"))

	buf, err := os.ReadFile(filepath.Join(dir, files[0]))
	require.NoError(t, err)
	assert.Equal(t, "502 Bad Gateway<!--\nRequest Meta Data:\n{}\n-->\n", string(buf))
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 24*time.Hour)
	now := time.Date(2024, 1, 10, 0, 30, 0, 0, time.Local)
	w.TimeNow = func() time.Time { return now }

	touch(t, dir, "2024-01-01-10.00.00-000000_old.xml")       // expired
	touch(t, dir, "2024-01-09-00.29.00-000000_expired.xml")   // just over a day
	touch(t, dir, "2024-01-09-12.00.00-000000_yesterday.xml") // within TTL
	touch(t, dir, "2024-01-10-00.10.00-000000_today.xml")     // today
	touch(t, dir, "README")                                   // unrecognized
	touch(t, dir, "2023_bogus.xml")                           // unrecognized

	require.NoError(t, w.Cleanup())

	assert.Equal(t, []string{
		"2023_bogus.xml",
		"2024-01-09-12.00.00-000000_yesterday.xml",
		"2024-01-10-00.10.00-000000_today.xml",
		"README",
	}, listFiles(t, dir))
}

func TestCleanupSkipsTodayRegardlessOfTTL(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, time.Minute)
	now := time.Date(2024, 1, 10, 23, 0, 0, 0, time.Local)
	w.TimeNow = func() time.Time { return now }

	touch(t, dir, "2024-01-10-00.00.00-000000_early.xml")
	touch(t, dir, "2024-01-09-23.59.00-000000_late.xml")

	require.NoError(t, w.Cleanup())

	assert.Equal(t, []string{"2024-01-10-00.00.00-000000_early.xml"}, listFiles(t, dir))
}

func TestCreateRunsCleanup(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, time.Hour)
	w.TimeNow = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local) }

	touch(t, dir, "2024-01-08-12.00.00-000000_old.xml")

	require.NoError(t, w.Create([]byte("<a/>"), nil, "x"))

	assert.Equal(t, []string{"2024-01-10-12.00.00-000000_x.xml"}, listFiles(t, dir))
}
