package network

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/utils"
)

var (
	ErrEmptyTopology   = errors.New("路网中没有任何轨道")
	ErrInvalidTopology = errors.New("路网数据不合法")
	ErrUnknownStation  = errors.New("车站不存在")
	ErrNoRoute         = errors.New("未找到路线")
)

const DefaultPlanCacheSize = 1024

type edge struct {
	neighbor int64
	trackID  int64
	lengthKm float64
}

// Session 路网会话：持有车站和轨道的不可变快照
// 路网变化时应重新创建会话，而不是修改已有会话
type Session struct {
	ID        string
	CreatedAt time.Time

	stations   map[int64]domain.Station
	tracks     map[int64]domain.Track
	adjacency  map[int64][]edge // 邻接表，按轨道 ID 排序
	stationIDs []int64
	trackIDs   []int64
	plans      gcache.Cache
}

type Summary struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"createdAt"`
	StationCount     int       `json:"stationCount"`
	TrackCount       int       `json:"trackCount"`
	SingleTrackCount int       `json:"singleTrackCount"`
	TotalLengthKm    float64   `json:"totalLengthKm"`
}

func NewSession(stations []domain.Station, tracks []domain.Track, cacheSize int) (*Session, error) {
	if len(tracks) == 0 {
		return nil, ErrEmptyTopology
	}
	if err := utils.ValidateTopology(stations, tracks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTopology, err)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultPlanCacheSize
	}

	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		stations:   make(map[int64]domain.Station, len(stations)),
		tracks:     make(map[int64]domain.Track, len(tracks)),
		adjacency:  make(map[int64][]edge, len(stations)),
		stationIDs: make([]int64, 0, len(stations)),
		trackIDs:   make([]int64, 0, len(tracks)),
		plans:      gcache.New(cacheSize).LRU().Build(),
	}

	for _, station := range stations {
		s.stations[station.ID] = station
		s.stationIDs = append(s.stationIDs, station.ID)
	}

	for _, track := range tracks {
		s.tracks[track.ID] = track
		s.trackIDs = append(s.trackIDs, track.ID)

		// 自环对最短路没有意义
		a, b := track.StationIDs[0], track.StationIDs[1]
		if a == b {
			continue
		}
		s.adjacency[a] = append(s.adjacency[a], edge{neighbor: b, trackID: track.ID, lengthKm: track.LengthKm})
		s.adjacency[b] = append(s.adjacency[b], edge{neighbor: a, trackID: track.ID, lengthKm: track.LengthKm})
	}

	slices.Sort(s.stationIDs)
	slices.Sort(s.trackIDs)
	for id := range s.adjacency {
		slices.SortFunc(s.adjacency[id], func(x, y edge) int {
			if c := cmp.Compare(x.trackID, y.trackID); c != 0 {
				return c
			}
			return cmp.Compare(x.neighbor, y.neighbor)
		})
	}

	return s, nil
}

// TopologySource 路网数据来源，通常是数据库
type TopologySource interface {
	GetAllStations() ([]domain.Station, error)
	GetAllTracks() ([]domain.Track, error)
}

// LoadSession 从数据来源读取车站和轨道并创建会话
func LoadSession(source TopologySource, cacheSize int) (*Session, error) {
	stations, err := source.GetAllStations()
	if err != nil {
		return nil, fmt.Errorf("无法读取车站: %w", err)
	}
	tracks, err := source.GetAllTracks()
	if err != nil {
		return nil, fmt.Errorf("无法读取轨道: %w", err)
	}
	return NewSession(stations, tracks, cacheSize)
}

func (s *Session) Station(id int64) (domain.Station, bool) {
	station, ok := s.stations[id]
	return station, ok
}

func (s *Session) Track(id int64) (domain.Track, bool) {
	track, ok := s.tracks[id]
	return track, ok
}

func (s *Session) HasStation(id int64) bool {
	_, ok := s.stations[id]
	return ok
}

func (s *Session) HasTrack(id int64) bool {
	_, ok := s.tracks[id]
	return ok
}

// Stations 按 ID 升序返回所有车站
func (s *Session) Stations() []domain.Station {
	return lo.Map(s.stationIDs, func(id int64, _ int) domain.Station {
		return s.stations[id]
	})
}

// Tracks 按 ID 升序返回所有轨道
func (s *Session) Tracks() []domain.Track {
	return lo.Map(s.trackIDs, func(id int64, _ int) domain.Track {
		return s.tracks[id]
	})
}

func (s *Session) Summary() Summary {
	tracks := s.Tracks()
	return Summary{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		StationCount: len(s.stations),
		TrackCount:   len(tracks),
		SingleTrackCount: lo.CountBy(tracks, func(t domain.Track) bool {
			return t.IsSingleTrack
		}),
		TotalLengthKm: lo.SumBy(tracks, func(t domain.Track) float64 {
			return t.LengthKm
		}),
	}
}
