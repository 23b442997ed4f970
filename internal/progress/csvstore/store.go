// Package csvstore keeps lookup progress in an append-only CSV file.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/clock"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"go.uber.org/zap"
)

// Store is a progress store backed by a single CSV file with a header row.
type Store struct {
	path   string
	clock  clock.Clock
	logger *zap.Logger
}

// New returns a store writing to path.
func New(path string, logger *zap.Logger) *Store {
	return NewWithClock(path, logger, clock.Real{})
}

// NewWithClock returns a store that timestamps quarantined files with c.
func NewWithClock(path string, logger *zap.Logger, c clock.Clock) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   path,
		clock:  c,
		logger: logger.With(zap.String("store", "csv"), zap.String("path", path)),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads every stored result. A missing or unreadable file yields an empty
// snapshot; a file with a foreign header is moved aside and the store starts
// fresh; malformed rows are skipped.
func (s *Store) Load(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("progress file unreadable, starting fresh", zap.Error(err))
		}
		return model.NewSnapshot(nil), nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return model.NewSnapshot(nil), nil
	}
	if err != nil {
		s.logger.Warn("progress file header unreadable, starting fresh", zap.Error(err))
		return model.NewSnapshot(nil), nil
	}

	index, ok := columnIndex(header)
	if !ok {
		_ = f.Close()
		s.quarantine(header)
		return model.NewSnapshot(nil), nil
	}

	var (
		results []model.Result
		skipped int
	)
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				s.logger.Warn("skipping malformed progress row", zap.Int("line", parseErr.Line), zap.Error(err))
				continue
			}
			s.logger.Warn("progress file read failed, keeping rows read so far", zap.Error(err))
			break
		}

		result, err := model.ParseFields(index.reorder(record))
		if err != nil {
			skipped++
			s.logger.Warn("skipping malformed progress row", zap.Int("line", line), zap.Error(err))
			continue
		}
		results = append(results, result)
	}

	if skipped > 0 {
		s.logger.Warn("progress file contained malformed rows", zap.Int("skipped", skipped))
	}
	return model.NewSnapshot(results), nil
}

// Append durably writes results to the end of the file, creating it with a
// header row when it is missing or empty.
func (s *Store) Append(ctx context.Context, results []model.Result) error {
	if len(results) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open progress file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat progress file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(model.ResultColumns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	} else if err := terminateLastLine(f, info.Size()); err != nil {
		return err
	}
	for _, result := range results {
		if err := w.Write(result.Fields()); err != nil {
			return fmt.Errorf("write row %s: %w", result.Key, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush progress file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync progress file: %w", err)
	}
	return f.Close()
}

// terminateLastLine ends a row torn by an interrupted write so the next row
// starts on its own line.
func terminateLastLine(f *os.File, size int64) error {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return fmt.Errorf("read progress file tail: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := f.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("terminate torn row: %w", err)
	}
	return nil
}

func (s *Store) quarantine(header []string) {
	target := fmt.Sprintf("%s.corrupt-%d", s.path, s.clock.Now().Unix())
	if err := os.Rename(s.path, target); err != nil {
		s.logger.Warn("progress file has unknown layout and could not be moved aside",
			zap.Strings("header", header), zap.Error(err))
		return
	}
	s.logger.Warn("progress file has unknown layout, moved aside",
		zap.Strings("header", header), zap.String("moved_to", target))
}

// columns maps each result column to its position in the file.
type columns []int

func columnIndex(header []string) (columns, bool) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	index := make(columns, len(model.ResultColumns))
	for i, name := range model.ResultColumns {
		p, ok := pos[name]
		if !ok {
			return nil, false
		}
		index[i] = p
	}
	return index, true
}

func (c columns) reorder(record []string) []string {
	fields := make([]string, len(c))
	for i, p := range c {
		if p >= len(record) {
			return nil
		}
		fields[i] = record[p]
	}
	return fields
}
