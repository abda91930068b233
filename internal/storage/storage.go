// Package storage provides persistence for the reading list.
//
// The reading list is kept as a flat CSV file with a fixed header
// (id, url, read, weight). Every save replaces the whole file atomically:
// the new content is written to a pending file in the target's directory,
// synced, and renamed over the target.
package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// Header is the fixed column schema of the store file.
var Header = []string{"id", "url", "read", "weight"}

// MaxWeight bounds the absolute value of a stored weight so that the sum
// over any realistic reading list fits in an int.
const MaxWeight = math.MaxInt32

var (
	// ErrStoreUnavailable is returned when the store file is missing or unreadable.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrMalformedRecord is matched by every *MalformedRecordError.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrPersistence is returned when the atomic replace fails. The previous
	// content of the store file is left in place.
	ErrPersistence = errors.New("persistence failure")
)

// Record is one tracked article.
type Record struct {
	ID     string
	URL    string
	Read   bool
	Weight int
}

// MalformedRecordError reports a row that does not match the schema.
type MalformedRecordError struct {
	Line int      // 1-based line in the file, header is line 1
	Row  []string // raw fields as read
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, strings.Join(e.Row, ","), e.Err)
}

// Unwrap lets errors.Is match both ErrMalformedRecord and the parse cause.
func (e *MalformedRecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// CSVStore manages reading list persistence in CSV format.
type CSVStore struct {
	filepath string
	perm     os.FileMode
	logger   *slog.Logger

	// wrap decorates the writer used by Save. Tests use it to inject failures.
	wrap func(io.Writer) io.Writer
}

// NewCSVStore creates a new CSV store at the specified file path.
func NewCSVStore(path string) *CSVStore {
	return NewCSVStoreWithLogger(path, slog.Default())
}

// NewCSVStoreWithLogger creates a new CSV store with a custom logger.
func NewCSVStoreWithLogger(path string, logger *slog.Logger) *CSVStore {
	return &CSVStore{
		filepath: path,
		perm:     0600,
		logger:   logger.With("component", "storage.csv_store", "path", path),
	}
}

// Path returns the location of the store file.
func (s *CSVStore) Path() string {
	return s.filepath
}

// Load reads every record from the store file. A single bad row fails the
// whole load.
func (s *CSVStore) Load() ([]Record, error) {
	// #nosec G304 -- path comes from user configuration
	f, err := os.Open(s.filepath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, s.filepath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	records, err := Decode(f)
	if err != nil {
		var malformed *MalformedRecordError
		if errors.As(err, &malformed) {
			s.logger.Error("Malformed row in reading list", "line", malformed.Line, "error", malformed.Err)
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, s.filepath, err)
	}

	s.logger.Debug("Loaded reading list", "records", len(records))
	return records, nil
}

// Save replaces the store file with records. The original file is only
// replaced by a rename once the new content is fully written and synced.
func (s *CSVStore) Save(records []Record) error {
	pending, err := renameio.NewPendingFile(s.filepath,
		renameio.WithTempDir(filepath.Dir(s.filepath)),
		renameio.WithPermissions(s.perm),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrPersistence, err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	var w io.Writer = pending
	if s.wrap != nil {
		w = s.wrap(w)
	}

	if err := Encode(w, records); err != nil {
		s.logger.Error("Failed to write reading list", "error", err)
		return fmt.Errorf("%w: writing %s: %w", ErrPersistence, s.filepath, err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		s.logger.Error("Failed to replace reading list", "error", err)
		return fmt.Errorf("%w: replacing %s: %w", ErrPersistence, s.filepath, err)
	}

	s.logger.Debug("Saved reading list", "records", len(records))
	return nil
}

// Init creates an empty store file (header only) unless one already exists.
func (s *CSVStore) Init() (created bool, err error) {
	_, err = os.Stat(s.filepath)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, s.filepath, err)
	}

	// #nosec G301 -- 0755 is appropriate for the data directory
	if err := os.MkdirAll(filepath.Dir(s.filepath), 0755); err != nil {
		return false, fmt.Errorf("%w: creating directory: %w", ErrPersistence, err)
	}
	if err := s.Save(nil); err != nil {
		return false, err
	}
	s.logger.Info("Created empty reading list")
	return true, nil
}

// Encode writes the header and one row per record.
func Encode(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record with url %q has an empty id", r.URL)
		}
		row := []string{r.ID, r.URL, strconv.FormatBool(r.Read), strconv.Itoa(r.Weight)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Marshal returns the encoded form of records.
func Marshal(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a store file. I/O errors are returned as-is; schema
// violations are returned as *MalformedRecordError.
func Decode(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedRecordError{Line: 1, Err: errors.New("missing header")}
	}
	if err != nil {
		return nil, csvError(err, nil)
	}
	if !equalHeader(header) {
		return nil, &MalformedRecordError{
			Line: 1,
			Row:  header,
			Err:  fmt.Errorf("header must be %s", strings.Join(Header, ",")),
		}
	}

	var records []Record
	seen := make(map[string]int)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err, row)
		}
		line, _ := cr.FieldPos(0)

		rec, err := parseRow(row)
		if err != nil {
			return nil, &MalformedRecordError{Line: line, Row: row, Err: err}
		}
		if first, ok := seen[rec.ID]; ok {
			return nil, &MalformedRecordError{
				Line: line,
				Row:  row,
				Err:  fmt.Errorf("duplicate id %q, first seen on line %d", rec.ID, first),
			}
		}
		seen[rec.ID] = line
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(row []string) (Record, error) {
	if len(row) != len(Header) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(row))
	}
	if row[0] == "" {
		return Record{}, errors.New("empty id")
	}
	read, err := strconv.ParseBool(strings.TrimSpace(row[2]))
	if err != nil {
		return Record{}, fmt.Errorf("read: %w", err)
	}
	weight, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return Record{}, fmt.Errorf("weight: %w", err)
	}
	if weight > MaxWeight || weight < -MaxWeight {
		return Record{}, fmt.Errorf("weight %d out of range [%d, %d]", weight, -MaxWeight, MaxWeight)
	}
	return Record{ID: row[0], URL: row[1], Read: read, Weight: weight}, nil
}

func csvError(err error, row []string) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &MalformedRecordError{Line: parseErr.StartLine, Row: row, Err: parseErr.Err}
	}
	return err
}

func equalHeader(got []string) bool {
	if len(got) != len(Header) {
		return false
	}
	for i, col := range got {
		// Spreadsheet exports sometimes prepend a UTF-8 BOM.
		col = strings.TrimPrefix(col, "\ufeff")
		if strings.ToLower(strings.TrimSpace(col)) != Header[i] {
			return false
		}
	}
	return true
}
