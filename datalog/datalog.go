package datalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
)

const (
	DefaultTTL = 24 * time.Hour

	// Files are prefixed with the local time of creation, down to
	// the microsecond, e.g. 2024-01-01-10.00.00-123456.
	timestampLayout = "2006-01-02-15.04.05"
	dayLayout       = "2006-01-02"
)

// Writer captures raw exchanges to one file each, and removes
// captures older than TTL.
type Writer struct {
	Directory string
	TTL       time.Duration
	TimeNow   func() time.Time

	mutex sync.Mutex
}

func NewWriter(directory string, ttl time.Duration) *Writer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Writer{
		Directory: directory,
		TTL:       ttl,
		TimeNow:   time.Now,
	}
}

// Writes data to a new file named by the current time and the given
// labels. Well-formed XML is pretty printed, anything else written as
// is. The metadata is appended as JSON in a trailing comment.
//
// Expired captures are cleaned up first.
func (w *Writer) Create(data []byte, meta map[string]any, labels ...string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	err := w.cleanup()
	if err != nil {
		return fmt.Errorf("cleaning up: %w", err)
	}

	comment, err := metadataComment(meta)
	if err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	buf.Write(prettyPrint(data))
	buf.Write(comment)

	err = os.WriteFile(filepath.Join(w.Directory, Filename(w.TimeNow(), labels...)), buf.Bytes(), 0644)
	if err != nil {
		return fmt.Errorf("writing: %w", err)
	}

	return nil
}

// Removes captures older than TTL. Files named with today's date are
// never touched, nor are files with names it doesn't recognize.
func (w *Writer) Cleanup() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.cleanup()
}

func (w *Writer) cleanup() error {
	err := os.MkdirAll(w.Directory, 0755)
	if err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	entries, err := os.ReadDir(w.Directory)
	if err != nil {
		return fmt.Errorf("listing directory: %w", err)
	}

	now := w.TimeNow()
	today := now.Format(dayLayout)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, today) {
			continue
		}

		created, ok := parseFilename(name)
		if !ok {
			continue
		}

		if now.Sub(created) > w.TTL {
			err = os.Remove(filepath.Join(w.Directory, name))
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing %s: %w", name, err)
			}
		}
	}

	return nil
}

// Name of a capture created at the given time.
func Filename(t time.Time, labels ...string) string {
	t = t.Local()
	return fmt.Sprintf(
		"%s-%06d_%s.xml",
		t.Format(timestampLayout),
		t.Nanosecond()/1000,
		strings.Join(labels, "-"),
	)
}

func parseFilename(name string) (time.Time, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return time.Time{}, false
	}

	idx := strings.LastIndex(prefix, "-")
	if idx == -1 {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(timestampLayout, prefix[:idx], time.Local)
	if err != nil {
		return time.Time{}, false
	}

	fraction := prefix[idx+1:]
	micros, err := strconv.Atoi(fraction)
	if err != nil || len(fraction) != 6 || micros < 0 {
		return time.Time{}, false
	}

	return t.Add(time.Duration(micros) * time.Microsecond), true
}

func prettyPrint(data []byte) []byte {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil || doc.Root() == nil {
		return data
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return data
	}

	return out
}

func metadataComment(meta map[string]any) ([]byte, error) {
	if meta == nil {
		meta = map[string]any{}
	}

	js, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshalling metadata: %w", err)
	}

	buf := &bytes.Buffer{}
	buf.WriteString("<!--\n")
	buf.WriteString("Request Meta Data:\n")
	buf.Write(bytes.ReplaceAll(js, []byte("--"), []byte("- -")))
	buf.WriteString("\n-->\n")

	return buf.Bytes(), nil
}
