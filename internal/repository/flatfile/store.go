package flatfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/medipass-api/internal/repository"
	"github.com/jwalitptl/medipass-api/pkg/logger"
)

// Delimiter separates fields in every file. Free text never contains it.
const Delimiter = ';'

const (
	patientsFile       = "patients.csv"
	practitionersFile  = "practitioners.csv"
	administratorsFile = "administrators.csv"
	historyFile        = "history.csv"
	consultationsFile  = "consultations.csv"
)

// Store keeps a snapshot as delimited text files in one directory.
type Store struct {
	dir string
	loc *time.Location
	log *logger.Logger

	mu sync.Mutex
}

func NewStore(dir string, loc *time.Location, log *logger.Logger) *Store {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{dir: dir, loc: loc, log: log}
}

var _ repository.SnapshotStore = (*Store)(nil)

// Load reads every file. Missing files count as empty; a store with no files at
// all returns repository.ErrNoSnapshot. Malformed rows are skipped and counted.
func (s *Store) Load(ctx context.Context) (*repository.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := make(map[string][][]string)
	found := 0
	for _, name := range []string{patientsFile, practitionersFile, administratorsFile, historyFile, consultationsFile} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := s.readFile(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		found++
		tables[name] = rows
	}
	if found == 0 {
		return nil, repository.ErrNoSnapshot
	}

	snap := &repository.Snapshot{}
	d := decoder{loc: s.loc, log: s.log, snap: snap}
	d.patients(tables[patientsFile], tables[historyFile])
	d.practitioners(tables[practitionersFile])
	d.administrators(tables[administratorsFile])
	d.consultations(tables[consultationsFile])

	s.log.Info("snapshot loaded",
		"dir", s.dir,
		"patients", len(snap.Patients),
		"practitioners", len(snap.Practitioners),
		"consultations", len(snap.Consultations),
		"skipped", snap.Skipped,
	)
	return snap, nil
}

// Save writes each file to a temporary sibling and renames it into place.
func (s *Store) Save(ctx context.Context, snap *repository.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	e := encoder{}
	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{patientsFile, patientHeader, e.patients(snap.Patients)},
		{practitionersFile, practitionerHeader, e.practitioners(snap.Practitioners)},
		{administratorsFile, administratorHeader, e.administrators(snap.Administrators)},
		{historyFile, historyHeader, e.history(snap.Patients)},
		{consultationsFile, consultationHeader, e.consultations(snap.Consultations)},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeFile(f.name, f.header, f.rows); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	return nil
}

func (s *Store) readFile(name string) ([][]string, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	header := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				s.log.Warn("skipping unreadable line", "file", name, "line", perr.Line)
				rows = append(rows, nil)
				continue
			}
			return nil, err
		}
		if header {
			header = false
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func (s *Store) writeFile(name string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	w.Comma = Delimiter
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

// Sanitize replaces the delimiter and line breaks so a free-text value always
// fits in one field of one line.
func Sanitize(s string) string {
	return strings.NewReplacer(string(Delimiter), ",", "\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
