package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/config"
)

// 路网拓扑只有车站和轨道两张表，轨道的两端引用车站
const schema = `
	CREATE TABLE IF NOT EXISTS stations (
		id            BIGINT PRIMARY KEY,
		name          TEXT NOT NULL,
		num_platforms INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS tracks (
		id              BIGINT PRIMARY KEY,
		length_km       DOUBLE PRECISION NOT NULL CHECK (length_km >= 0),
		max_speed_kmh   DOUBLE PRECISION NOT NULL DEFAULT 0,
		capacity        INTEGER NOT NULL CHECK (capacity >= 1),
		is_single_track BOOLEAN NOT NULL DEFAULT FALSE,
		station_a_id    BIGINT NOT NULL REFERENCES stations (id),
		station_b_id    BIGINT NOT NULL REFERENCES stations (id),
		CHECK (NOT is_single_track OR capacity = 1)
	);
`

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

func (r *Repository) queryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

// EnsureSchema 创建路网拓扑所需的表，已存在时不做任何修改
func (r *Repository) EnsureSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, schema)
	return err
}
