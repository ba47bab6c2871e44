package domain

type RouteSegment struct {
	TrackID              int64   `json:"trackID"`
	EntryStationID       int64   `json:"entryStationID"`
	ExitStationID        int64   `json:"exitStationID"`
	DistanceKm           float64 `json:"distanceKm"`
	EstimatedTimeMinutes float64 `json:"estimatedTimeMinutes"`
	IsSingleTrack        bool    `json:"isSingleTrack"`
}

type RoutePlan struct {
	OriginStation      int64          `json:"originStation"`
	DestinationStation int64          `json:"destinationStation"`
	OriginName         string         `json:"originName"`
	DestinationName    string         `json:"destinationName"`
	Segments           []RouteSegment `json:"segments"`
	TotalDistanceKm    float64        `json:"totalDistanceKm"`
	TotalTimeMinutes   float64        `json:"totalTimeMinutes"`
	TrackIDs           []int64        `json:"trackIDs"`
}
