package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

func (r *Repository) GetAllStations() ([]domain.Station, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT id, name, num_platforms
		FROM stations
		ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]domain.Station, 0)
	for rows.Next() {
		var station domain.Station
		if err := rows.Scan(&station.ID, &station.Name, &station.NumPlatforms); err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stations, nil
}

func (r *Repository) GetAllTracks() ([]domain.Track, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT id, length_km, max_speed_kmh, capacity, is_single_track, station_a_id, station_b_id
		FROM tracks
		ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := make([]domain.Track, 0)
	for rows.Next() {
		var track domain.Track
		dst := []any{
			&track.ID,
			&track.LengthKm,
			&track.MaxSpeedKmh,
			&track.Capacity,
			&track.IsSingleTrack,
			&track.StationIDs[0],
			&track.StationIDs[1],
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tracks, nil
}

// ReplaceTopology 在同一个事务中清空并重新写入全部车站和轨道
func (r *Repository) ReplaceTopology(stations []domain.Station, tracks []domain.Track) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 轨道引用了车站，需要先删除
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stations`); err != nil {
		return err
	}

	for _, station := range stations {
		query := `
			INSERT INTO stations (id, name, num_platforms)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, station.ID, station.Name, station.NumPlatforms); err != nil {
			return err
		}
	}

	for _, track := range tracks {
		query := `
			INSERT INTO tracks (id, length_km, max_speed_kmh, capacity, is_single_track, station_a_id, station_b_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		params := []any{track.ID, track.LengthKm, track.MaxSpeedKmh, track.Capacity, track.IsSingleTrack, track.StationIDs[0], track.StationIDs[1]}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
