package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/pulse/pkg/loader"
	"github.com/OFFIS-RIT/pulse/pkg/loader/records"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

// Columns read from an email thread CSV. Column order is free; the
// header decides.
const (
	ColumnSubject      = "subject"
	ColumnParticipants = "participants"
	ColumnFirstDate    = "first_date"
	ColumnLastDate     = "last_date"
	ColumnEmailCount   = "email_count"
)

var requiredColumns = []string{ColumnSubject, ColumnParticipants, ColumnFirstDate, ColumnLastDate}

// CSVFileLoader converts email thread CSV files into the JSON form read by
// records.ParseEmails. Other sources are passed through unchanged.
type CSVFileLoader struct {
	loader loader.FileLoader

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewCSVFileLoader creates a new CSVFileLoader with the given base loader.
func NewCSVFileLoader(loader loader.FileLoader) *CSVFileLoader {
	return &CSVFileLoader{
		loader: loader,
		cache:  make(map[string][]byte),
	}
}

// IsCSV reports whether path names a CSV file.
func IsCSV(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".csv")
}

// GetFileBytes retrieves the file and converts email CSV content to JSON.
func (l *CSVFileLoader) GetFileBytes(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	if file.Kind != loader.SourceKindEmails {
		return l.loader.GetFileBytes(ctx, file)
	}
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		content, err := l.loader.GetFileBytes(ctx, file)
		if err != nil {
			return nil, err
		}

		threads, err := ParseCSV(content)
		if err != nil {
			return nil, fmt.Errorf("Failed to parse %s:\n%w", file.Path, err)
		}
		parsed, err := json.Marshal(threads)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = parsed
		l.cacheMu.Unlock()

		return parsed, nil
	})

	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// ParseCSV reads email thread rows. Participants are separated by ";".
// Blank and unreadable rows are skipped, as are rows with a malformed
// email count.
func ParseCSV(content []byte) ([]records.EmailRecord, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file is empty or contains no valid data")
	}
	if err != nil {
		return nil, err
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("CSV file has no %q column", name)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	threads := []records.EmailRecord{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.Warn("[Loader] Skipping unreadable CSV row", "line", line, "err", err)
			continue
		}
		if isEmpty(record) {
			continue
		}

		thread := records.EmailRecord{
			Subject:      field(record, ColumnSubject),
			Participants: splitList(field(record, ColumnParticipants)),
			FirstDate:    field(record, ColumnFirstDate),
			LastDate:     field(record, ColumnLastDate),
		}
		if raw := field(record, ColumnEmailCount); raw != "" {
			count, err := strconv.Atoi(raw)
			if err != nil {
				logger.Warn("[Loader] Skipping CSV row with bad email count", "line", line, "value", raw)
				continue
			}
			thread.EmailCount = count
		}
		threads = append(threads, thread)
	}

	return threads, nil
}

func isEmpty(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
