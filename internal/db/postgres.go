package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/logger"
)

// Service wraps a pooled *gorm.DB connection to Postgres, bounded per
// spec §4.1 (default pool 10, overflow 20).
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(cfg config.Config, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "PostgresService")

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresName,
	)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.PostgresPoolSize + cfg.PostgresOverflow)
	sqlDB.SetMaxIdleConns(cfg.PostgresPoolSize)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

// Ping round-trips a connection from the pool, backing the admin database
// health check (spec §6 GET /admin/health/database).
func (s *Service) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// AutoMigrateAll creates or updates every table this service owns, then
// the materialised view and supporting indexes used by the analytics
// engine (C7).
func (s *Service) AutoMigrateAll() error {
	if err := s.db.AutoMigrate(
		&domain.Feedback{},
		&domain.Annotation{},
		&domain.Topic{},
		&domain.UnassignedPoolMember{},
		&domain.AuditEntry{},
		&domain.Batch{},
	); err != nil {
		return err
	}
	if err := s.seedUnassignedTopic(); err != nil {
		return err
	}
	return s.ensureMaterializedView()
}

func (s *Service) seedUnassignedTopic() error {
	var count int64
	if err := s.db.Model(&domain.Topic{}).Where("id = ?", domain.UnassignedTopicID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.db.Exec(
		`INSERT INTO topic (id, label, keywords, created_at, updated_at) VALUES (?, ?, '[]', now(), now()) ON CONFLICT (id) DO NOTHING`,
		domain.UnassignedTopicID, "unassigned",
	).Error
}

// ensureMaterializedView creates daily_feedback_aggregates, the
// precomputed daily rollup referenced in spec §4.7.
func (s *Service) ensureMaterializedView() error {
	if err := s.db.Exec(`
		CREATE MATERIALIZED VIEW IF NOT EXISTS daily_feedback_aggregates AS
		SELECT
			d.day,
			d.total_feedback,
			d.positive_feedback,
			d.negative_feedback,
			d.neutral_feedback,
			d.avg_sentiment,
			d.unique_customers,
			COALESCE(s.top_sources, '[]'::jsonb) AS top_sources
		FROM (
			SELECT
				date_trunc('day', f.created_at)::date AS day,
				count(*) AS total_feedback,
				count(*) FILTER (WHERE a.sentiment_class = 1) AS positive_feedback,
				count(*) FILTER (WHERE a.sentiment_class = -1) AS negative_feedback,
				count(*) FILTER (WHERE a.sentiment_class = 0) AS neutral_feedback,
				avg(a.sentiment_class) AS avg_sentiment,
				count(DISTINCT f.customer_id) AS unique_customers
			FROM feedback f
			LEFT JOIN annotation a ON a.feedback_id = f.id
			WHERE f.deleted_at IS NULL
			GROUP BY 1
		) d
		LEFT JOIN (
			SELECT day, jsonb_agg(source ORDER BY rn) AS top_sources
			FROM (
				SELECT day, source, cnt,
					row_number() OVER (PARTITION BY day ORDER BY cnt DESC) AS rn
				FROM (
					SELECT date_trunc('day', f.created_at)::date AS day, f.source AS source, count(*) AS cnt
					FROM feedback f
					WHERE f.deleted_at IS NULL
					GROUP BY 1, 2
				) src_counts
			) ranked
			WHERE rn <= 3
			GROUP BY day
		) s ON s.day = d.day
		WITH NO DATA
	`).Error; err != nil {
		return err
	}
	return s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_feedback_aggregates_day
		ON daily_feedback_aggregates (day)
	`).Error
}

// RefreshDailyAggregates is the single C1 entry point the reports stage
// (C6) and admin mutation engine (C9) call to refresh the materialised
// view (spec §4.7, §4.9).
func (s *Service) RefreshDailyAggregates() error {
	if err := s.db.Exec(`REFRESH MATERIALIZED VIEW CONCURRENTLY daily_feedback_aggregates`).Error; err != nil {
		// CONCURRENTLY requires a unique index; fall back to a plain refresh
		// the first time the view has never been populated.
		return s.db.Exec(`REFRESH MATERIALIZED VIEW daily_feedback_aggregates`).Error
	}
	return nil
}
