package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/qaharvest/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"run_id",
	"url",
	"status",
	"error",
	"records",
	"text_length",
	"duration_ms",
	"detected_bot",
	"detection_src",
	"created_at",
}

// New creates a CSV-backed storage.Backend appending to filePath.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, v *storage.Visit) error {
	record := []string{
		v.ID,
		v.RunID,
		v.URL,
		string(v.Status),
		v.Error,
		strconv.Itoa(v.Records),
		strconv.Itoa(v.TextLength),
		strconv.FormatInt(v.Duration.Milliseconds(), 10),
		strconv.FormatBool(v.DetectedBot),
		v.DetectionSrc,
		v.CreatedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write visit %s: %w", v.ID, err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flush visit %s: %w", v.ID, err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Visit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.Visit{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var matched []*storage.Visit
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		records, _ := strconv.Atoi(record[5])
		textLen, _ := strconv.Atoi(record[6])
		durationMs, _ := strconv.ParseInt(record[7], 10, 64)
		detectedBot, _ := strconv.ParseBool(record[8])
		createdAt, _ := time.Parse(time.RFC3339Nano, record[10])

		v := &storage.Visit{
			ID:           record[0],
			RunID:        record[1],
			URL:          record[2],
			Status:       storage.Status(record[3]),
			Error:        record[4],
			Records:      records,
			TextLength:   textLen,
			Duration:     time.Duration(durationMs) * time.Millisecond,
			DetectedBot:  detectedBot,
			DetectionSrc: record[9],
			CreatedAt:    createdAt,
		}

		if filter.Match(v) {
			matched = append(matched, v)
		}
	}

	return filter.Page(matched), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
