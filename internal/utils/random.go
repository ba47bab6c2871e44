package utils

import (
	"fmt"
	"math/rand"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

var commonPlaceCharacters = []string{
	"东", "西", "南", "北", "安", "宁", "平", "阳", "江", "河",
	"山", "湖", "城", "桥", "新", "清", "泉", "林", "华", "兴",
	"德", "昌", "顺", "和", "丰", "源", "州", "口", "门", "岭",
}

func GenerateRandomStationName(rng *rand.Rand) string {
	nameLength := rng.Intn(2) + 2
	name := ""
	for i := 0; i < nameLength; i++ {
		name += commonPlaceCharacters[rng.Intn(len(commonPlaceCharacters))]
	}
	return name + "站"
}

// GenerateCorridorTopology 生成一条由 n 个车站串联而成的线路
// 车站 ID 为 1..n，轨道 i 连接车站 i 和 i+1，每隔两条复线插入一条单线
func GenerateCorridorTopology(n int, rng *rand.Rand) ([]domain.Station, []domain.Track) {
	if n < 2 {
		n = 2
	}

	stations := make([]domain.Station, n)
	for i := range stations {
		stations[i] = domain.Station{
			ID:           int64(i + 1),
			Name:         fmt.Sprintf("%s%d", GenerateRandomStationName(rng), i+1),
			NumPlatforms: int32(rng.Intn(4) + 2),
		}
	}

	tracks := make([]domain.Track, n-1)
	for i := range tracks {
		single := i%3 == 2
		capacity := int32(2)
		if single {
			capacity = 1
		}
		tracks[i] = domain.Track{
			ID:            int64(i + 1),
			LengthKm:      float64(10 + rng.Intn(31)),
			MaxSpeedKmh:   []float64{120, 160}[rng.Intn(2)],
			Capacity:      capacity,
			IsSingleTrack: single,
			StationIDs:    [2]int64{int64(i + 1), int64(i + 2)},
		}
	}

	return stations, tracks
}

// GenerateRandomTrains 在车站之间随机生成 n 列只有起讫站的列车，路线由路网会话自动规划
func GenerateRandomTrains(stations []domain.Station, n int, windowMinutes float64, rng *rand.Rand) []*domain.Train {
	trains := make([]*domain.Train, 0, n)
	if len(stations) < 2 {
		return trains
	}

	for i := 0; i < n; i++ {
		a := rng.Intn(len(stations))
		b := rng.Intn(len(stations) - 1)
		if b >= a {
			b++
		}
		origin, destination := stations[a].ID, stations[b].ID

		trains = append(trains, &domain.Train{
			ID:                 int64(i + 1),
			VelocityKmh:        []float64{80, 100, 120, 160}[rng.Intn(4)],
			OriginStation:      &origin,
			DestinationStation: &destination,
			ScheduledDeparture: domain.Minutes(rng.Float64() * windowMinutes),
			Priority:           int32(rng.Intn(10) + 1),
			PlannedRoute:       []int64{},
		})
	}

	return trains
}

// DemoCrossingLine 返回一条 30 km 的示例线路：两端为复线，中间 18 km 单线被一个可交会车站分成两段
func DemoCrossingLine() []domain.TrackSection {
	return []domain.TrackSection{
		{SectionID: 1, StartKm: 0, EndKm: 6, NumTracks: 2, MaxSpeedKmh: 120, HasStation: true, StationName: "甲站", CanCross: true},
		{SectionID: 2, StartKm: 6, EndKm: 14, NumTracks: 1, MaxSpeedKmh: 120},
		{SectionID: 3, StartKm: 14, EndKm: 16, NumTracks: 2, MaxSpeedKmh: 120, HasStation: true, StationName: "乙站", CanCross: true},
		{SectionID: 4, StartKm: 16, EndKm: 24, NumTracks: 1, MaxSpeedKmh: 120},
		{SectionID: 5, StartKm: 24, EndKm: 30, NumTracks: 2, MaxSpeedKmh: 120, HasStation: true, StationName: "丙站", CanCross: true},
	}
}
