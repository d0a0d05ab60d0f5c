// Package ledger records when each source file was last processed, so that
// unchanged files can be skipped on the next run.
//
// A Ledger is owned by a single pipeline run. It is not safe for concurrent
// use, and two processes must not share one persisted ledger at the same
// time: the file is read once at start and overwritten once at the end, with
// no locking.
package ledger

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/assetcook/internal/apperr"
)

// Backends.
const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
)

const (
	// Delimiter separates the path and timestamp fields of a record.
	Delimiter = ";"
	// TimeLayout is the persisted timestamp format, always UTC.
	TimeLayout = "2006-01-02 15:04:05Z"
	// Grace is the tolerance between a persisted timestamp (second
	// precision) and a live modification time (sub-second precision).
	// Without it a file written and re-scanned within the same second
	// would look changed.
	Grace = time.Second
)

// Entry is one persisted record.
type Entry struct {
	Path        string
	ProcessedAt time.Time
}

// Ledger maps absolute source paths to the modification time they had when
// last processed successfully.
type Ledger struct {
	entries map[string]time.Time
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]time.Time)}
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Lookup returns the recorded time for path.
func (l *Ledger) Lookup(path string) (time.Time, bool) {
	t, ok := l.entries[path]
	return t, ok
}

// IsStale reports whether path needs processing: it has no entry, or its
// current modification time is more than Grace past the recorded one.
func (l *Ledger) IsStale(path string, modTime time.Time) bool {
	last, ok := l.entries[path]
	if !ok {
		return true
	}
	return last.Add(Grace).Before(modTime.UTC())
}

// MarkProcessed inserts or overwrites the entry for path.
func (l *Ledger) MarkProcessed(path string, modTime time.Time) {
	l.entries[path] = modTime.UTC()
}

// Entries returns all records sorted by path.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for p, t := range l.entries {
		out = append(out, Entry{Path: p, ProcessedAt: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Parse reads the line-oriented ledger format. Blank lines are ignored;
// malformed lines are logged and skipped. Only read errors are returned.
func Parse(r io.Reader, logger *slog.Logger) (*Ledger, error) {
	l := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		// Paths may start or end with spaces; only the line ending is trimmed.
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			logger.Warn("ledger: skipping invalid line",
				slog.Int("line", lineNo),
				slog.String("content", line),
				slog.String("error", err.Error()))
			continue
		}
		l.entries[e.Path] = e.ProcessedAt
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ledger: read: %w", err)
	}
	return l, nil
}

func parseLine(line string) (Entry, error) {
	parts := strings.Split(line, Delimiter)
	if len(parts) != 2 {
		return Entry{}, fmt.Errorf("want 2 fields, got %d: %w", len(parts), apperr.ErrMalformedRecord)
	}
	ts, err := ParseTime(strings.TrimSpace(parts[1]))
	if err != nil {
		return Entry{}, err
	}
	return Entry{Path: parts[0], ProcessedAt: ts}, nil
}

// ParseTime parses a persisted timestamp.
func ParseTime(s string) (time.Time, error) {
	ts, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, apperr.ErrMalformedRecord)
	}
	return ts.UTC(), nil
}

// FormatTime formats t as a persisted timestamp.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Encode writes every entry as "path;timestamp", one per line, sorted by path.
func (l *Ledger) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range l.Entries() {
		if _, err := fmt.Fprintf(bw, "%s%s%s\n", e.Path, Delimiter, FormatTime(e.ProcessedAt)); err != nil {
			return fmt.Errorf("ledger: encode: %w", err)
		}
	}
	return bw.Flush()
}

// FileName returns the ledger file name for a platform/configuration pair, so
// switching targets never shares staleness state.
func FileName(platform, configuration, backend string) string {
	ext := ".txt"
	if backend == BackendSQLite {
		ext = ".db"
	}
	return fmt.Sprintf("asset_ledger_%s_%s%s", platform, configuration, ext)
}
