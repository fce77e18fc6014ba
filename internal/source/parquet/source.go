// Package parquet reads and writes publication chunk files.
// A directory of *.parquet files is treated as one dataset, read in file
// name order.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

const defaultBatchSize = 1000

// Source serves references and candidates from local chunk files.
type Source struct {
	dir       string
	batchSize int
}

// New creates a Source over dir.
func New(dir string) *Source {
	return &Source{dir: dir, batchSize: defaultBatchSize}
}

// Files returns the chunk files in read order.
func (s *Source) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("glob parquet files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parquet files found in %s", s.dir)
	}
	sort.Strings(files)
	return files, nil
}

// Ping reports whether the directory holds at least one chunk file.
func (s *Source) Ping(_ context.Context) error {
	_, err := s.Files()
	return err
}

// Each streams every publication in batches. fn must not retain the slice.
func (s *Source) Each(ctx context.Context, fn func([]candidate.Patent) error) error {
	files, err := s.Files()
	if err != nil {
		return err
	}
	batch := make([]candidate.Patent, 0, s.batchSize)
	for _, path := range files {
		err := s.readFile(ctx, path, func(r *row) (bool, error) {
			batch = append(batch, r.toPatent())
			if len(batch) < s.batchSize {
				return true, nil
			}
			if err := fn(batch); err != nil {
				return false, err
			}
			batch = batch[:0]
			return true, nil
		})
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// Reference scans the chunk files for a publication's fingerprint.
func (s *Source) Reference(ctx context.Context, publicationNumber, country string) (fingerprint.Fingerprint, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	var found fingerprint.Fingerprint
	for _, path := range files {
		err := s.readFile(ctx, path, func(r *row) (bool, error) {
			if r.PublicationNumber != publicationNumber || r.CountryCode != country || len(r.Embedding) == 0 {
				return true, nil
			}
			found = r.toPatent().Fingerprint
			return false, nil
		})
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrReferenceNotFound, publicationNumber)
}

// Candidates returns publications of q.Country with a fingerprint and at
// least one code matching the predicate, in file order, up to q.Limit.
func (s *Source) Candidates(ctx context.Context, q candidate.Query) ([]candidate.Patent, error) {
	if q.Predicate.IsEmpty() {
		return nil, nil
	}
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	var out []candidate.Patent
	for _, path := range files {
		err := s.readFile(ctx, path, func(r *row) (bool, error) {
			if r.CountryCode != q.Country || len(r.Embedding) == 0 || !q.Predicate.Matches(r.Codes) {
				return true, nil
			}
			out = append(out, r.toPatent())
			return q.Limit <= 0 || len(out) < q.Limit, nil
		})
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// readFile calls fn for every row until fn returns false or an error.
func (s *Source) readFile(ctx context.Context, path string, fn func(*row) (bool, error)) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := parquet.NewGenericReader[row](f)
	defer func() { _ = reader.Close() }()

	buf := make([]row, s.batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			more, err := fn(&buf[i])
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read rows: %w", readErr)
		}
	}
}

// Write stores patents as one chunk file.
func Write(path string, patents []candidate.Patent) error {
	rows := make([]row, len(patents))
	for i, p := range patents {
		r, err := fromPatent(p)
		if err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
		rows[i] = r
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
