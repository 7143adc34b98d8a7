package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fishingCatchesLogger/models"
)

// RecordRepository stores catch and sell records. A record is a `records` row
// plus exactly one detail row in `catches` or `sells`; both are always written
// in the same transaction.
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts rec for userID and sets rec.ID and rec.UserID.
func (r *RecordRepository) Create(ctx context.Context, userID int64, rec *models.Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := createRecord(ctx, tx, userID, rec)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	rec.ID = id
	rec.UserID = userID
	return nil
}

// CreateBatch inserts all recs for userID in one transaction. Either every
// record is stored or none is. On success the IDs are written back into recs.
func (r *RecordRepository) CreateBatch(ctx context.Context, userID int64, recs []models.Record) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, len(recs))
	for i := range recs {
		id, err := createRecord(ctx, tx, userID, &recs[i])
		if err != nil {
			return fmt.Errorf("record %d of %d: %w", i+1, len(recs), err)
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	for i := range recs {
		recs[i].ID = ids[i]
		recs[i].UserID = userID
	}
	return nil
}

// createRecord inserts the base row, then attaches the detail row to the
// generated key. The base row alone is never committed.
func createRecord(ctx context.Context, tx *sql.Tx, userID int64, rec *models.Record) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO records (user_id, weight, timestamp) VALUES (?, ?, ?)`,
		userID, rec.Weight, models.FormatTimestamp(rec.Timestamp))
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	switch rec.Kind {
	case models.RecordKindCatch:
		_, err = tx.ExecContext(ctx, `INSERT INTO catches (record_id, latitude, longitude) VALUES (?, ?, ?)`,
			id, rec.Catch.Latitude, rec.Catch.Longitude)
	case models.RecordKindSell:
		_, err = tx.ExecContext(ctx, `INSERT INTO sells (record_id, revenue) VALUES (?, ?)`, id, rec.Sell.Revenue)
	}
	if err != nil {
		return 0, fmt.Errorf("insert %s detail: %w", rec.Kind, err)
	}
	return id, nil
}

// GetByID fetches a record of userID. The catch interpretation is tried first,
// then the sell one. It returns (nil, nil) when neither matches.
func (r *RecordRepository) GetByID(ctx context.Context, userID, id int64) (*models.Record, error) {
	catches, err := r.queryCatches(ctx, userID, "r.record_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(catches) > 0 {
		return &catches[0], nil
	}
	sells, err := r.querySells(ctx, userID, "r.record_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(sells) > 0 {
		return &sells[0], nil
	}
	return nil, nil
}

// UpdateTimestamp sets the timestamp of a record.
func (r *RecordRepository) UpdateTimestamp(ctx context.Context, userID, id int64, ts time.Time) error {
	return r.execOne(ctx, `UPDATE records SET timestamp = ? WHERE record_id = ? AND user_id = ?`,
		models.FormatTimestamp(ts), id, userID)
}

// UpdateWeight sets the weight of a record.
func (r *RecordRepository) UpdateWeight(ctx context.Context, userID, id int64, weight float64) error {
	return r.execOne(ctx, `UPDATE records SET weight = ? WHERE record_id = ? AND user_id = ?`, weight, id, userID)
}

// UpdateLocation sets both coordinates of a catch in one statement.
func (r *RecordRepository) UpdateLocation(ctx context.Context, userID, id int64, lat, lng float64) error {
	return r.execOne(ctx, `
UPDATE catches SET latitude = ?, longitude = ?
WHERE record_id = (SELECT record_id FROM records WHERE record_id = ? AND user_id = ?)`, lat, lng, id, userID)
}

// UpdateRevenue sets the revenue of a sell.
func (r *RecordRepository) UpdateRevenue(ctx context.Context, userID, id int64, revenue float64) error {
	return r.execOne(ctx, `
UPDATE sells SET revenue = ?
WHERE record_id = (SELECT record_id FROM records WHERE record_id = ? AND user_id = ?)`, revenue, id, userID)
}

// execOne runs an update that must touch exactly one row.
func (r *RecordRepository) execOne(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// Delete removes a record with its detail rows in one transaction.
func (r *RecordRepository) Delete(ctx context.Context, userID, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	owned := `(SELECT record_id FROM records WHERE record_id = ? AND user_id = ?)`
	if _, err := tx.ExecContext(ctx, `DELETE FROM catches WHERE record_id = `+owned, id, userID); err != nil {
		return fmt.Errorf("delete catch detail: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sells WHERE record_id = `+owned, id, userID); err != nil {
		return fmt.Errorf("delete sell detail: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE record_id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	return tx.Commit()
}

// Stock returns the total catch weight minus the total sell weight of userID.
func (r *RecordRepository) Stock(ctx context.Context, userID int64) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var caught, sold float64
	err := r.db.QueryRowContext(ctx, `
SELECT
  COALESCE((SELECT SUM(r.weight) FROM records r JOIN catches c ON c.record_id = r.record_id WHERE r.user_id = ?), 0),
  COALESCE((SELECT SUM(r.weight) FROM records r JOIN sells s ON s.record_id = r.record_id WHERE r.user_id = ?), 0)`,
		userID, userID).Scan(&caught, &sold)
	if err != nil {
		return 0, err
	}
	return caught - sold, nil
}
