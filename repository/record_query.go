package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fishingCatchesLogger/models"
)

const (
	catchColumns = `SELECT r.record_id, r.user_id, r.weight, r.timestamp, c.latitude, c.longitude
FROM records r JOIN catches c ON c.record_id = r.record_id`
	sellColumns = `SELECT r.record_id, r.user_id, r.weight, r.timestamp, s.revenue
FROM records r JOIN sells s ON s.record_id = r.record_id`
)

// ListCatches returns all catches of userID in record_id order.
func (r *RecordRepository) ListCatches(ctx context.Context, userID int64) ([]models.Record, error) {
	return r.queryCatches(ctx, userID, "")
}

// ListSells returns all sells of userID in record_id order.
func (r *RecordRepository) ListSells(ctx context.Context, userID int64) ([]models.Record, error) {
	return r.querySells(ctx, userID, "")
}

// FindByTimestamp returns catches then sells logged at exactly ts.
func (r *RecordRepository) FindByTimestamp(ctx context.Context, userID int64, ts time.Time) ([]models.Record, error) {
	return r.queryBoth(ctx, userID, "r.timestamp = ?", models.FormatTimestamp(ts))
}

// FindByWeight returns catches then sells whose weight equals weight exactly.
func (r *RecordRepository) FindByWeight(ctx context.Context, userID int64, weight float64) ([]models.Record, error) {
	return r.queryBoth(ctx, userID, "r.weight = ?", weight)
}

// FindByRevenue returns sells whose revenue equals revenue exactly.
func (r *RecordRepository) FindByRevenue(ctx context.Context, userID int64, revenue float64) ([]models.Record, error) {
	return r.querySells(ctx, userID, "s.revenue = ?", revenue)
}

// FindByLocation returns catches logged at exactly (lat, lng).
func (r *RecordRepository) FindByLocation(ctx context.Context, userID int64, lat, lng float64) ([]models.Record, error) {
	return r.queryCatches(ctx, userID, "c.latitude = ? AND c.longitude = ?", lat, lng)
}

func (r *RecordRepository) queryBoth(ctx context.Context, userID int64, cond string, args ...any) ([]models.Record, error) {
	out, err := r.queryCatches(ctx, userID, cond, args...)
	if err != nil {
		return nil, err
	}
	sells, err := r.querySells(ctx, userID, cond, args...)
	if err != nil {
		return nil, err
	}
	return append(out, sells...), nil
}

// scoped builds "<columns> WHERE r.user_id = ? [AND cond] ORDER BY r.record_id".
func scoped(columns, cond string) string {
	q := columns + "\nWHERE r.user_id = ?"
	if cond != "" {
		q += " AND " + cond
	}
	return q + "\nORDER BY r.record_id ASC"
}

func (r *RecordRepository) queryCatches(ctx context.Context, userID int64, cond string, args ...any) ([]models.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, scoped(catchColumns, cond), append([]any{userID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecordRows(rows, models.RecordKindCatch)
}

func (r *RecordRepository) querySells(ctx context.Context, userID int64, cond string, args ...any) ([]models.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, scoped(sellColumns, cond), append([]any{userID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecordRows(rows, models.RecordKindSell)
}

func scanRecordRows(rows *sql.Rows, kind models.RecordKind) ([]models.Record, error) {
	var out []models.Record
	for rows.Next() {
		var (
			rec models.Record
			ts  string
		)
		rec.Kind = kind
		var err error
		switch kind {
		case models.RecordKindCatch:
			rec.Catch = &models.CatchDetail{}
			err = rows.Scan(&rec.ID, &rec.UserID, &rec.Weight, &ts, &rec.Catch.Latitude, &rec.Catch.Longitude)
		case models.RecordKindSell:
			rec.Sell = &models.SellDetail{}
			err = rows.Scan(&rec.ID, &rec.UserID, &rec.Weight, &ts, &rec.Sell.Revenue)
		}
		if err != nil {
			return nil, err
		}
		if rec.Timestamp, err = models.ParseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("record %d: stored %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
