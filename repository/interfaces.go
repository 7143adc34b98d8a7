package repository

import (
	"context"
	"time"

	"fishingCatchesLogger/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// RecordRepositoryI defines user-scoped operations on catch and sell records.
// Every method takes the owning user's ID; rows of other users are invisible.
type RecordRepositoryI interface {
	Create(ctx context.Context, userID int64, rec *models.Record) error
	CreateBatch(ctx context.Context, userID int64, recs []models.Record) error
	GetByID(ctx context.Context, userID, id int64) (*models.Record, error)
	ListCatches(ctx context.Context, userID int64) ([]models.Record, error)
	ListSells(ctx context.Context, userID int64) ([]models.Record, error)
	FindByTimestamp(ctx context.Context, userID int64, ts time.Time) ([]models.Record, error)
	FindByWeight(ctx context.Context, userID int64, weight float64) ([]models.Record, error)
	FindByRevenue(ctx context.Context, userID int64, revenue float64) ([]models.Record, error)
	FindByLocation(ctx context.Context, userID int64, lat, lng float64) ([]models.Record, error)
	UpdateTimestamp(ctx context.Context, userID, id int64, ts time.Time) error
	UpdateWeight(ctx context.Context, userID, id int64, weight float64) error
	UpdateLocation(ctx context.Context, userID, id int64, lat, lng float64) error
	UpdateRevenue(ctx context.Context, userID, id int64, revenue float64) error
	Delete(ctx context.Context, userID, id int64) error
	Stock(ctx context.Context, userID int64) (float64, error)
}
