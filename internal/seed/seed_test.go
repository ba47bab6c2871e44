package seed_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/seed"
)

func TestReadDemoNetwork(t *testing.T) {
	stations, err := seed.ReadStations("data/stations.csv")
	assert.Nil(t, err)
	assert.Len(t, stations, 8)
	assert.Equal(t, "北京南", stations[0].Name)
	assert.Equal(t, int32(6), stations[0].NumPlatforms)

	tracks, err := seed.ReadTracks("data/tracks.csv")
	assert.Nil(t, err)
	assert.Len(t, tracks, 8)
	assert.Equal(t, [2]int64{7, 3}, tracks[6].StationIDs)
	assert.True(t, tracks[6].IsSingleTrack)
	assert.False(t, tracks[0].IsSingleTrack)

	// 示例路网可以直接创建会话
	s, err := network.NewSession(stations, tracks, 0)
	assert.Nil(t, err)

	plan, err := s.PlanRoute(1, 6, 300)
	assert.Nil(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, plan.TrackIDs)
	assert.Equal(t, 419.0, plan.TotalDistanceKm)
}

func TestReadRecordsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.csv")
	assert.Nil(t, os.WriteFile(path, []byte("id,名称\n1,北京南\n"), 0o644))

	_, err := seed.ReadStations(path)
	assert.ErrorContains(t, err, "站台数")

	_, err = seed.ReadStations(filepath.Join(t.TempDir(), "missing.csv"))
	assert.NotNil(t, err)
}

func TestReadTracksInvalidValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	assert.Nil(t, os.WriteFile(path, []byte("id,车站A,车站B,长度,限速,容量\n1,1,2,abc,300,2\n"), 0o644))

	_, err := seed.ReadTracks(path)
	assert.ErrorContains(t, err, "长度无效")
}
