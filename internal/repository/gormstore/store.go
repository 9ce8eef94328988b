// Package gormstore implements repository.Store on PostgreSQL. Row
// locking maps to SELECT ... FOR UPDATE inside a database transaction,
// which is the linearization point for concurrent bids and sweeps.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/config"
	"auction-house/internal/models"
)

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres, applies pool settings and migrates the
// engine tables.
func Open(cfg config.DBConfig) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gormstore: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&models.User{}, &models.Auction{}, &models.Bid{}, &models.AuditEvent{}); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing gorm handle. Intended for tests.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

type txKey struct{}

func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// conn returns the transaction bound to ctx, or the base handle.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *Store) CreateAuction(ctx context.Context, a models.Auction) error {
	return s.conn(ctx).Create(&a).Error
}

func (s *Store) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	var a models.Auction
	err := s.conn(ctx).First(&a, "id = ?", auctionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return a, nil
}

func (s *Store) GetAuctionForUpdate(ctx context.Context, auctionID string) (models.Auction, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return models.Auction{}, fmt.Errorf("get auction %s for update: no transaction in context", auctionID)
	}

	var a models.Auction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", auctionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return models.Auction{}, fmt.Errorf("lock auction %s: %w", auctionID, err)
	}
	return a, nil
}

func (s *Store) UpdateAuction(ctx context.Context, a models.Auction) error {
	a.UpdatedAt = time.Now().UTC()
	return s.conn(ctx).Save(&a).Error
}

func (s *Store) ListExpiredActive(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := s.conn(ctx).Model(&models.Auction{}).
		Where("status = ? AND end_time <= ?", models.StatusActive, now).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list expired active: %w", err)
	}
	return ids, nil
}

func (s *Store) ListUnpaidEnded(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := s.conn(ctx).Model(&models.Auction{}).
		Where("status = ? AND updated_at < ?", models.StatusEnded, cutoff).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list unpaid ended: %w", err)
	}
	return ids, nil
}

func (s *Store) InsertBid(ctx context.Context, b models.Bid) error {
	return s.conn(ctx).Create(&b).Error
}

func (s *Store) ListBidsByAuction(ctx context.Context, auctionID string, limit int) ([]models.Bid, error) {
	query := s.conn(ctx).
		Where("auction_id = ?", auctionID).
		Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var bids []models.Bid
	if err := query.Find(&bids).Error; err != nil {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	err := s.conn(ctx).First(&u, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	return s.conn(ctx).Save(&u).Error
}

func (s *Store) InsertAuditEvent(ctx context.Context, e models.AuditEvent) error {
	return s.conn(ctx).Create(&e).Error
}
