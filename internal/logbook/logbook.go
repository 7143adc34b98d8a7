// Package logbook is the record store of the signed-in user: catches and
// sales are created, queried, edited and deleted through it, always scoped to
// the session carried by the context.
package logbook

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"fishingCatchesLogger/internal/auth"
	"fishingCatchesLogger/internal/geo"
	"fishingCatchesLogger/models"
	"fishingCatchesLogger/repository"
)

type Logbook struct {
	records repository.RecordRepositoryI
	log     zerolog.Logger
}

func New(records repository.RecordRepositoryI, log zerolog.Logger) *Logbook {
	return &Logbook{records: records, log: log.With().Str("component", "logbook").Logger()}
}

// AddCatch logs fish caught at the given position.
func (l *Logbook) AddCatch(ctx context.Context, ts time.Time, weight, lat, lng float64) (*models.Record, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateCommon(ts, weight); err != nil {
		return nil, err
	}
	if err := geo.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	rec := models.NewCatch(models.NormalizeTimestamp(ts), weight, lat, lng)
	return l.create(ctx, s, rec)
}

// AddSell logs fish sold for the given revenue.
func (l *Logbook) AddSell(ctx context.Context, ts time.Time, weight, revenue float64) (*models.Record, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateCommon(ts, weight); err != nil {
		return nil, err
	}
	if err := validateAmount("revenue", revenue); err != nil {
		return nil, err
	}
	rec := models.NewSell(models.NormalizeTimestamp(ts), weight, revenue)
	return l.create(ctx, s, rec)
}

func (l *Logbook) create(ctx context.Context, s *auth.Session, rec models.Record) (*models.Record, error) {
	if err := l.records.Create(ctx, s.UserID(), &rec); err != nil {
		l.log.Error().Err(err).Int64("user_id", s.UserID()).Str("kind", string(rec.Kind)).Msg("create record failed")
		return nil, fmt.Errorf("add %s: %w", rec.Kind, err)
	}
	l.log.Debug().Int64("record_id", rec.ID).Str("kind", string(rec.Kind)).Float64("weight", rec.Weight).Msg("record added")
	return &rec, nil
}

// ImportRecords creates all recs for the session user in one transaction and
// returns how many were written. Record IDs are assigned fresh.
func (l *Logbook) ImportRecords(ctx context.Context, recs []models.Record) (int, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return 0, err
	}
	for i := range recs {
		r := &recs[i]
		if err := r.Validate(); err != nil {
			return 0, err
		}
		if err := validateCommon(r.Timestamp, r.Weight); err != nil {
			return 0, err
		}
		switch r.Kind {
		case models.RecordKindCatch:
			err = geo.ValidateCoordinates(r.Catch.Latitude, r.Catch.Longitude)
		case models.RecordKindSell:
			err = validateAmount("revenue", r.Sell.Revenue)
		}
		if err != nil {
			return 0, err
		}
		r.ID = 0
		r.Timestamp = models.NormalizeTimestamp(r.Timestamp)
	}
	if len(recs) == 0 {
		return 0, nil
	}
	if err := l.records.CreateBatch(ctx, s.UserID(), recs); err != nil {
		l.log.Error().Err(err).Int("count", len(recs)).Msg("import failed")
		return 0, fmt.Errorf("import records: %w", err)
	}
	l.log.Debug().Int("count", len(recs)).Msg("records imported")
	return len(recs), nil
}

// ListCatches returns the user's catches in ascending record_id order.
func (l *Logbook) ListCatches(ctx context.Context) ([]models.Record, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	return l.records.ListCatches(ctx, s.UserID())
}

// ListSells returns the user's sales in ascending record_id order.
func (l *Logbook) ListSells(ctx context.Context) ([]models.Record, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	return l.records.ListSells(ctx, s.UserID())
}

// ListAll returns catches followed by sales.
func (l *Logbook) ListAll(ctx context.Context) ([]models.Record, error) {
	catches, err := l.ListCatches(ctx)
	if err != nil {
		return nil, err
	}
	sells, err := l.ListSells(ctx)
	if err != nil {
		return nil, err
	}
	return append(catches, sells...), nil
}

func (l *Logbook) FindByID(ctx context.Context, id int64) (*models.Record, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := l.records.GetByID(ctx, s.UserID(), id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("record %d: %w", id, models.ErrRecordNotFound)
	}
	return rec, nil
}

// FindByDate matches the stored timestamp exactly, to the second.
func (l *Logbook) FindByDate(ctx context.Context, ts time.Time) ([]models.Record, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	return l.records.FindByTimestamp(ctx, s.UserID(), models.NormalizeTimestamp(ts))
}

// FindByWeight, FindByRevenue and FindByLocation compare floats for exact
// equality; use FindNear for positions typed in by hand.
func (l *Logbook) FindByWeight(ctx context.Context, weight float64) ([]models.Record, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	return l.records.FindByWeight(ctx, s.UserID(), weight)
}

func (l *Logbook) FindByRevenue(ctx context.Context, revenue float64) ([]models.Record, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	return l.records.FindByRevenue(ctx, s.UserID(), revenue)
}

func (l *Logbook) FindByLocation(ctx context.Context, lat, lng float64) ([]models.Record, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	return l.records.FindByLocation(ctx, s.UserID(), lat, lng)
}

// FindNear returns the catches within radiusKm of the given point.
func (l *Logbook) FindNear(ctx context.Context, lat, lng, radiusKm float64) ([]models.Record, error) {
	if err := geo.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if err := validateAmount("radius", radiusKm); err != nil {
		return nil, err
	}
	catches, err := l.ListCatches(ctx)
	if err != nil {
		return nil, err
	}
	near := catches[:0]
	for _, c := range catches {
		if geo.IsWithinRadius(lat, lng, c.Catch.Latitude, c.Catch.Longitude, radiusKm) {
			near = append(near, c)
		}
	}
	return near, nil
}

// EditDate stores a new timestamp for rec and, once written, reflects it
// into rec. On failure rec is left untouched.
func (l *Logbook) EditDate(ctx context.Context, rec *models.Record, ts time.Time) error {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if ts.IsZero() {
		return models.Invalid("timestamp", "must be set")
	}
	ts = models.NormalizeTimestamp(ts)
	if err := l.records.UpdateTimestamp(ctx, s.UserID(), rec.ID, ts); err != nil {
		return l.editFailed(rec, "timestamp", err)
	}
	rec.Timestamp = ts
	l.edited(rec, "timestamp")
	return nil
}

func (l *Logbook) EditWeight(ctx context.Context, rec *models.Record, weight float64) error {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := validateAmount("weight", weight); err != nil {
		return err
	}
	if err := l.records.UpdateWeight(ctx, s.UserID(), rec.ID, weight); err != nil {
		return l.editFailed(rec, "weight", err)
	}
	rec.Weight = weight
	l.edited(rec, "weight")
	return nil
}

// EditLocation moves a catch. Both coordinates are written together.
func (l *Logbook) EditLocation(ctx context.Context, rec *models.Record, lat, lng float64) error {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if rec.Kind != models.RecordKindCatch || rec.Catch == nil {
		return fmt.Errorf("edit location of %s record %d: %w", rec.Kind, rec.ID, models.ErrWrongRecordKind)
	}
	if err := geo.ValidateCoordinates(lat, lng); err != nil {
		return err
	}
	if err := l.records.UpdateLocation(ctx, s.UserID(), rec.ID, lat, lng); err != nil {
		return l.editFailed(rec, "location", err)
	}
	rec.Catch.Latitude, rec.Catch.Longitude = lat, lng
	l.edited(rec, "location")
	return nil
}

func (l *Logbook) EditRevenue(ctx context.Context, rec *models.Record, revenue float64) error {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if rec.Kind != models.RecordKindSell || rec.Sell == nil {
		return fmt.Errorf("edit revenue of %s record %d: %w", rec.Kind, rec.ID, models.ErrWrongRecordKind)
	}
	if err := validateAmount("revenue", revenue); err != nil {
		return err
	}
	if err := l.records.UpdateRevenue(ctx, s.UserID(), rec.ID, revenue); err != nil {
		return l.editFailed(rec, "revenue", err)
	}
	rec.Sell.Revenue = revenue
	l.edited(rec, "revenue")
	return nil
}

func (l *Logbook) editFailed(rec *models.Record, field string, err error) error {
	l.log.Error().Err(err).Int64("record_id", rec.ID).Str("field", field).Msg("edit failed")
	return fmt.Errorf("edit %s of record %d: %w", field, rec.ID, err)
}

func (l *Logbook) edited(rec *models.Record, field string) {
	l.log.Debug().Int64("record_id", rec.ID).Str("field", field).Msg("record edited")
}

// Delete removes a record together with its detail row.
func (l *Logbook) Delete(ctx context.Context, id int64) error {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if err := l.records.Delete(ctx, s.UserID(), id); err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	l.log.Debug().Int64("record_id", id).Msg("record deleted")
	return nil
}

// TotalStock is the weight caught minus the weight sold. It is recomputed
// on every call.
func (l *Logbook) TotalStock(ctx context.Context) (float64, error) {
	s, err := auth.RequireSession(ctx)
	if err != nil {
		return 0, err
	}
	return l.records.Stock(ctx, s.UserID())
}

func validateCommon(ts time.Time, weight float64) error {
	if ts.IsZero() {
		return models.Invalid("timestamp", "must be set")
	}
	return validateAmount("weight", weight)
}

func validateAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Invalid(field, "must be a finite number")
	}
	if v < 0 {
		return models.Invalid(field, "must not be negative, got %g", v)
	}
	return nil
}
