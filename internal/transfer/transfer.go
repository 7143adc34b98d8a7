// Package transfer moves a user's records in and out of the sectioned CSV
// file format:
//
//	[records]
//	record_id,weight,timestamp
//	1,12.5,2024-05-01T08:00:00
//	[catches]
//	record_id,latitude,longitude
//	1,51.5,-0.1
//	[sells]
//	record_id,revenue
//	2,40
//
// Record IDs only tie the sections together; imported records get new IDs.
package transfer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"fishingCatchesLogger/models"
)

// Source lists the records of the session user.
type Source interface {
	ListCatches(ctx context.Context) ([]models.Record, error)
	ListSells(ctx context.Context) ([]models.Record, error)
}

// Sink stores records for the session user in one transaction.
type Sink interface {
	ImportRecords(ctx context.Context, recs []models.Record) (int, error)
}

// Store is both ends of a transfer; *logbook.Logbook satisfies it.
type Store interface {
	Source
	Sink
}

type Transfer struct {
	store Store
	log   zerolog.Logger
}

func New(store Store, log zerolog.Logger) *Transfer {
	return &Transfer{store: store, log: log.With().Str("component", "transfer").Logger()}
}

const (
	sectionRecords = "records"
	sectionCatches = "catches"
	sectionSells   = "sells"
)

type section struct {
	name    string
	columns []string
	row     func(models.Record) []string
}

var sections = []section{
	{
		name:    sectionRecords,
		columns: []string{"record_id", "weight", "timestamp"},
		row: func(r models.Record) []string {
			return []string{formatID(r.ID), formatFloat(r.Weight), models.FormatTimestamp(r.Timestamp)}
		},
	},
	{
		name:    sectionCatches,
		columns: []string{"record_id", "latitude", "longitude"},
		row: func(r models.Record) []string {
			return []string{formatID(r.ID), formatFloat(r.Catch.Latitude), formatFloat(r.Catch.Longitude)}
		},
	},
	{
		name:    sectionSells,
		columns: []string{"record_id", "revenue"},
		row: func(r models.Record) []string {
			return []string{formatID(r.ID), formatFloat(r.Sell.Revenue)}
		},
	},
}

func sectionByName(name string) (section, bool) {
	for _, s := range sections {
		if s.name == name {
			return s, true
		}
	}
	return section{}, false
}

func marker(name string) string { return "[" + name + "]" }

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

// formatFloat writes the shortest text that parses back to exactly v.
func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// Export writes the session user's records to w.
func (t *Transfer) Export(ctx context.Context, w io.Writer) error {
	_, err := t.export(ctx, w, "export")
	return err
}

// ExportAll writes the session user's records to the file at path, replacing it.
func (t *Transfer) ExportAll(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &models.IOError{Op: "open", Path: path, Err: err}
	}
	n, err := t.export(ctx, f, path)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = &models.IOError{Op: "close", Path: path, Err: cerr}
	}
	if err != nil {
		return err
	}
	t.log.Info().Str("path", path).Int("records", n).Msg("records exported")
	return nil
}

func (t *Transfer) export(ctx context.Context, w io.Writer, name string) (int, error) {
	catches, err := t.store.ListCatches(ctx)
	if err != nil {
		return 0, err
	}
	sells, err := t.store.ListSells(ctx)
	if err != nil {
		return 0, err
	}
	rows := map[string][]models.Record{
		sectionRecords: append(append([]models.Record{}, catches...), sells...),
		sectionCatches: catches,
		sectionSells:   sells,
	}

	cw := csv.NewWriter(w)
	for _, s := range sections {
		if err := cw.Write([]string{marker(s.name)}); err != nil {
			return 0, &models.IOError{Op: "write", Path: name, Err: err}
		}
		if err := cw.Write(s.columns); err != nil {
			return 0, &models.IOError{Op: "write", Path: name, Err: err}
		}
		for _, r := range rows[s.name] {
			fields := s.row(r)
			if len(fields) != len(s.columns) {
				return 0, fmt.Errorf("%s row for record %d has %d fields, header has %d", s.name, r.ID, len(fields), len(s.columns))
			}
			if err := cw.Write(fields); err != nil {
				return 0, &models.IOError{Op: "write", Path: name, Err: err}
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, &models.IOError{Op: "write", Path: name, Err: err}
	}
	return len(catches) + len(sells), nil
}

// ImportAll reads the file at path and stores its records for the session
// user. Nothing is stored unless the whole file parses.
func (t *Transfer) ImportAll(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &models.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	return t.Import(ctx, f, path)
}

// Import reads an export from r; name labels errors.
func (t *Transfer) Import(ctx context.Context, r io.Reader, name string) (int, error) {
	recs, err := Parse(r, name)
	if err != nil {
		t.log.Warn().Err(err).Str("path", name).Msg("import rejected")
		return 0, err
	}
	n, err := t.store.ImportRecords(ctx, recs)
	if err != nil {
		return 0, err
	}
	t.log.Info().Str("path", name).Int("records", n).Msg("records imported")
	return n, nil
}
