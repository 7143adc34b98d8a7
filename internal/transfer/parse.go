package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"fishingCatchesLogger/models"
)

// pending is a record read from the [records] section, waiting for its detail.
type pending struct {
	rec  models.Record
	line int
}

type parser struct {
	name    string
	current *section
	header  bool // current section's header line has been read
	seen    map[string]bool
	order   []int64
	records map[int64]*pending
	details map[int64]int // record_id -> line of its detail row
}

// Parse reads a complete export and returns its records in file order. Any
// malformed line fails with a *models.ParseError naming that line.
func Parse(r io.Reader, name string) ([]models.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	p := &parser{
		name:    name,
		seen:    map[string]bool{},
		records: map[int64]*pending{},
		details: map[int64]int{},
	}
	var catchRows, sellRows [][]string
	var catchLines, sellLines []int
	last := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, p.fail(pe.Line, pe.Err)
			}
			return nil, &models.IOError{Op: "read", Path: name, Err: err}
		}
		line, _ := cr.FieldPos(0)
		last = line

		if len(fields) == 1 && strings.HasPrefix(fields[0], "[") {
			if err := p.enter(fields[0]); err != nil {
				return nil, p.fail(line, err)
			}
			continue
		}
		if p.current == nil {
			return nil, p.fail(line, errors.New("row outside of any section"))
		}
		if !p.header {
			if strings.Join(fields, ",") != strings.Join(p.current.columns, ",") {
				return nil, p.fail(line, fmt.Errorf("header of [%s] must be %q", p.current.name, strings.Join(p.current.columns, ",")))
			}
			p.header = true
			continue
		}
		if len(fields) != len(p.current.columns) {
			return nil, p.fail(line, fmt.Errorf("expected %d fields, got %d", len(p.current.columns), len(fields)))
		}

		// Detail rows are resolved once every record has been read.
		switch p.current.name {
		case sectionRecords:
			if err := p.addRecord(fields, line); err != nil {
				return nil, err
			}
		case sectionCatches:
			catchRows, catchLines = append(catchRows, fields), append(catchLines, line)
		case sectionSells:
			sellRows, sellLines = append(sellRows, fields), append(sellLines, line)
		}
	}
	if p.current != nil && !p.header {
		return nil, p.fail(last, fmt.Errorf("section [%s] has no header", p.current.name))
	}

	for i, fields := range catchRows {
		if err := p.attachCatch(fields, catchLines[i]); err != nil {
			return nil, err
		}
	}
	for i, fields := range sellRows {
		if err := p.attachSell(fields, sellLines[i]); err != nil {
			return nil, err
		}
	}

	out := make([]models.Record, 0, len(p.order))
	for _, id := range p.order {
		pr := p.records[id]
		if pr.rec.Kind == "" {
			return nil, p.fail(pr.line, fmt.Errorf("record %d has no catch or sell row", id))
		}
		out = append(out, pr.rec)
	}
	return out, nil
}

func (p *parser) fail(line int, err error) error {
	return &models.ParseError{Path: p.name, Line: line, Err: err}
}

func (p *parser) enter(tag string) error {
	if !strings.HasSuffix(tag, "]") {
		return fmt.Errorf("malformed section marker %q", tag)
	}
	if p.current != nil && !p.header {
		return fmt.Errorf("section [%s] has no header", p.current.name)
	}
	name := strings.TrimSuffix(strings.TrimPrefix(tag, "["), "]")
	s, ok := sectionByName(name)
	if !ok {
		return fmt.Errorf("unknown section %q", tag)
	}
	if p.seen[name] {
		return fmt.Errorf("section %q appears twice", tag)
	}
	p.seen[name] = true
	p.current, p.header = &s, false
	return nil
}

func (p *parser) addRecord(fields []string, line int) error {
	id, err := parseID(fields[0])
	if err != nil {
		return p.fail(line, err)
	}
	if _, dup := p.records[id]; dup {
		return p.fail(line, fmt.Errorf("duplicate record_id %d", id))
	}
	weight, err := parseFloat("weight", fields[1])
	if err != nil {
		return p.fail(line, err)
	}
	ts, err := models.ParseTimestamp(fields[2])
	if err != nil {
		return p.fail(line, err)
	}
	p.records[id] = &pending{rec: models.Record{ID: id, Weight: weight, Timestamp: ts}, line: line}
	p.order = append(p.order, id)
	return nil
}

// detailTarget returns the pending record a detail row belongs to.
func (p *parser) detailTarget(field string, line int) (*pending, error) {
	id, err := parseID(field)
	if err != nil {
		return nil, p.fail(line, err)
	}
	pr, ok := p.records[id]
	if !ok {
		return nil, p.fail(line, fmt.Errorf("record_id %d is not in [records]", id))
	}
	if prev, dup := p.details[id]; dup {
		return nil, p.fail(line, fmt.Errorf("record %d already has a detail row on line %d", id, prev))
	}
	p.details[id] = line
	return pr, nil
}

func (p *parser) attachCatch(fields []string, line int) error {
	pr, err := p.detailTarget(fields[0], line)
	if err != nil {
		return err
	}
	lat, err := parseFloat("latitude", fields[1])
	if err != nil {
		return p.fail(line, err)
	}
	lng, err := parseFloat("longitude", fields[2])
	if err != nil {
		return p.fail(line, err)
	}
	pr.rec.Kind = models.RecordKindCatch
	pr.rec.Catch = &models.CatchDetail{Latitude: lat, Longitude: lng}
	return nil
}

func (p *parser) attachSell(fields []string, line int) error {
	pr, err := p.detailTarget(fields[0], line)
	if err != nil {
		return err
	}
	revenue, err := parseFloat("revenue", fields[1])
	if err != nil {
		return p.fail(line, err)
	}
	pr.rec.Kind = models.RecordKindSell
	pr.rec.Sell = &models.SellDetail{Revenue: revenue}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, models.Invalid("record_id", "%q is not an integer", s)
	}
	return id, nil
}

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, models.Invalid(field, "%q is not a number", s)
	}
	return v, nil
}
