package domain

type Station struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	NumPlatforms int32  `json:"numPlatforms"`
}

type Track struct {
	ID            int64    `json:"id"`
	LengthKm      float64  `json:"lengthKm"`
	MaxSpeedKmh   float64  `json:"maxSpeedKmh"` // 为 0 时表示不限速
	Capacity      int32    `json:"capacity"`
	IsSingleTrack bool     `json:"isSingleTrack"`
	StationIDs    [2]int64 `json:"stationIDs"`
}

// EffectiveCapacity 单线轨道无论容量字段为多少都只允许一列车占用
func (t *Track) EffectiveCapacity() int {
	if t.IsSingleTrack {
		return 1
	}
	return int(t.Capacity)
}

// Touches 判断轨道是否连接到指定车站
func (t *Track) Touches(stationID int64) bool {
	return t.StationIDs[0] == stationID || t.StationIDs[1] == stationID
}

// Other 返回轨道另一端的车站
func (t *Track) Other(stationID int64) int64 {
	if t.StationIDs[0] == stationID {
		return t.StationIDs[1]
	}
	return t.StationIDs[0]
}
