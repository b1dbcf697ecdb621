package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/logger"
	"roombook/pkg/model"
)

const (
	ActiveFileName    = "bookings.csv"
	CancelledFileName = "cancelled_bookings.csv"
)

// fileBookingRepository stores reservations as CSV rows, one file for active
// and one for cancelled bookings. The mutex orders writers inside this
// process only; two processes sharing the directory can lose updates.
type fileBookingRepository struct {
	activePath    string
	cancelledPath string
	log           *logger.Logger
	mu            sync.Mutex
}

func NewFileBookingRepository(dir string, log *logger.Logger) (BookingRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &fileBookingRepository{
		activePath:    filepath.Join(dir, ActiveFileName),
		cancelledPath: filepath.Join(dir, CancelledFileName),
		log:           log,
	}, nil
}

func (r *fileBookingRepository) Append(ctx context.Context, reservation *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := appendRecord(r.activePath, reservation); err != nil {
		return fmt.Errorf("failed to append booking: %w", err)
	}
	return nil
}

func (r *fileBookingRepository) List(ctx context.Context) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.readAll(r.activePath)
}

func (r *fileBookingRepository) ListCancelled(ctx context.Context) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.readAll(r.cancelledPath)
}

// Relocate rewrites the active file without the first row whose key matches,
// then appends that row to the cancelled file. Rows that do not decode are
// written back unchanged.
func (r *fileBookingRepository) Relocate(ctx context.Context, reservation *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	header, records, err := readRecords(r.activePath)
	if err != nil {
		return err
	}

	key := reservation.Key()
	var found *model.Reservation
	remaining := make([][]string, 0, len(records))
	for _, record := range records {
		if found == nil {
			if res, err := decodeRecord(header, record); err == nil && res.Key() == key {
				found = res
				continue
			}
		}
		remaining = append(remaining, record)
	}
	if found == nil {
		return bookingserrors.ErrNotFound
	}

	if err := replaceFile(r.activePath, header, remaining); err != nil {
		return fmt.Errorf("failed to rewrite active bookings: %w", err)
	}
	if err := appendRecord(r.cancelledPath, found); err != nil {
		if restoreErr := replaceFile(r.activePath, header, records); restoreErr != nil {
			r.log.Error("Failed to restore active bookings after a failed cancel",
				"path", r.activePath, "key", key, "error", restoreErr)
		}
		return fmt.Errorf("failed to append cancelled booking: %w", err)
	}
	return nil
}

func (r *fileBookingRepository) readAll(path string) ([]*model.Reservation, error) {
	header, records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	reservations := make([]*model.Reservation, 0, len(records))
	for i, record := range records {
		res, err := decodeRecord(header, record)
		if err != nil {
			r.log.Warn("Skipping malformed booking row", "path", path, "line", i+2, "error", err)
			continue
		}
		reservations = append(reservations, res)
	}
	return reservations, nil
}

// readRecords returns the header and the raw data rows of path. A missing or
// empty file yields no header and no rows.
func readRecords(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		records = append(records, record)
	}
	return header, records, nil
}

func decodeRecord(header, record []string) (*model.Reservation, error) {
	return fromFields(func(column string) string {
		i := slices.Index(header, column)
		if i < 0 || i >= len(record) {
			return ""
		}
		return record[i]
	})
}

func appendRecord(path string, reservation *model.Reservation) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Columns); err != nil {
			return err
		}
	}
	if err := w.Write(toRecord(reservation)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// replaceFile writes header and records to a temp file next to target and
// renames it over target.
func replaceFile(target string, header []string, records [][]string) error {
	f, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
