package seed

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/repository"
)

const (
	StationsFile = "./internal/seed/data/stations.csv"
	TracksFile   = "./internal/seed/data/tracks.csv"
)

var (
	StationHeaders = []string{"id", "名称", "站台数"}
	TrackHeaders   = []string{"id", "车站A", "车站B", "长度", "限速", "容量"}
)

// readRecords 读取 CSV 文件，返回以表头为键的记录
func readRecords(path string, required []string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	for _, key := range required {
		if !slices.Contains(headers, key) {
			return nil, fmt.Errorf("没有找到列 %s", key)
		}
	}

	// 读取数据
	var records []map[string]string
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		record := make(map[string]string)
		for i, value := range row {
			record[headers[i]] = value
		}
		records = append(records, record)
	}

	return records, nil
}

func ReadStations(path string) ([]domain.Station, error) {
	records, err := readRecords(path, StationHeaders)
	if err != nil {
		return nil, err
	}

	stations := make([]domain.Station, 0, len(records))
	for _, record := range records {
		id, err := strconv.ParseInt(record["id"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("车站 ID 无效: %w", err)
		}
		platforms, err := strconv.ParseInt(record["站台数"], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("车站 %d 的站台数无效: %w", id, err)
		}
		stations = append(stations, domain.Station{
			ID:           id,
			Name:         record["名称"],
			NumPlatforms: int32(platforms),
		})
	}

	return stations, nil
}

func ReadTracks(path string) ([]domain.Track, error) {
	records, err := readRecords(path, TrackHeaders)
	if err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(records))
	for _, record := range records {
		var track domain.Track
		var capacity int64
		var err error

		if track.ID, err = strconv.ParseInt(record["id"], 10, 64); err != nil {
			return nil, fmt.Errorf("轨道 ID 无效: %w", err)
		}
		if track.StationIDs[0], err = strconv.ParseInt(record["车站A"], 10, 64); err != nil {
			return nil, fmt.Errorf("轨道 %d 的车站无效: %w", track.ID, err)
		}
		if track.StationIDs[1], err = strconv.ParseInt(record["车站B"], 10, 64); err != nil {
			return nil, fmt.Errorf("轨道 %d 的车站无效: %w", track.ID, err)
		}
		if track.LengthKm, err = strconv.ParseFloat(record["长度"], 64); err != nil {
			return nil, fmt.Errorf("轨道 %d 的长度无效: %w", track.ID, err)
		}
		if track.MaxSpeedKmh, err = strconv.ParseFloat(record["限速"], 64); err != nil {
			return nil, fmt.Errorf("轨道 %d 的限速无效: %w", track.ID, err)
		}
		if capacity, err = strconv.ParseInt(record["容量"], 10, 32); err != nil {
			return nil, fmt.Errorf("轨道 %d 的容量无效: %w", track.ID, err)
		}
		track.Capacity = int32(capacity)
		track.IsSingleTrack = capacity == 1

		tracks = append(tracks, track)
	}

	return tracks, nil
}

// SeedDemoNetwork 把 data 目录下的示例路网写入数据库，会覆盖已有路网
func SeedDemoNetwork(r *repository.Repository) {
	stations, err := ReadStations(StationsFile)
	if err != nil {
		slog.Error("读取车站失败", "error", err)
		return
	}
	tracks, err := ReadTracks(TracksFile)
	if err != nil {
		slog.Error("读取轨道失败", "error", err)
		return
	}

	if err := r.ReplaceTopology(stations, tracks); err != nil {
		slog.Error("写入路网失败", "error", err)
		return
	}

	slog.Info("写入示例路网成功", "stations", len(stations), "tracks", len(tracks))
}
