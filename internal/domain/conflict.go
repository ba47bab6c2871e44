package domain

type ConflictType string

const (
	ConflictSamePosition     ConflictType = "same_position"
	ConflictSingleTrack      ConflictType = "single_track"
	ConflictTooClose         ConflictType = "too_close"
	ConflictCapacityExceeded ConflictType = "capacity_exceeded"
)

// Severity 仅用于诊断排序，不参与冲突消解
func (t ConflictType) Severity() int32 {
	switch t {
	case ConflictSamePosition:
		return 10
	case ConflictSingleTrack:
		return 9
	case ConflictTooClose:
		return 7
	default:
		return 6
	}
}

type Conflict struct {
	TimeOffsetMinutes float64      `json:"timeOffsetMinutes"`
	TrackID           int64        `json:"trackID"`
	Train1ID          int64        `json:"train1ID"`
	Train2ID          int64        `json:"train2ID"`
	Train1PositionKm  float64      `json:"train1PositionKm"`
	Train2PositionKm  float64      `json:"train2PositionKm"`
	DistanceKm        float64      `json:"distanceKm"`
	Type              ConflictType `json:"conflictType"`
	Severity          int32        `json:"severity"`
	IsSingleTrack     bool         `json:"isSingleTrack"`
}

// ConflictKey 冲突去重键：同一对列车在同一轨道的同一分钟只报告一次
type ConflictKey struct {
	LowTrainID  int64 `json:"lowTrainID"`
	HighTrainID int64 `json:"highTrainID"`
	TrackID     int64 `json:"trackID"`
	Minute      int64 `json:"minute"`
}

func (c *Conflict) Key() ConflictKey {
	return ConflictKey{
		LowTrainID:  min(c.Train1ID, c.Train2ID),
		HighTrainID: max(c.Train1ID, c.Train2ID),
		TrackID:     c.TrackID,
		Minute:      int64(c.TimeOffsetMinutes),
	}
}

type MeetingPoint struct {
	TrackID            int64   `json:"trackID"`
	Train1ArrivalTime  float64 `json:"train1ArrivalTime"`
	Train2ArrivalTime  float64 `json:"train2ArrivalTime"`
	OverlapMinutes     float64 `json:"overlapMinutes"`
	Train1TraverseTime float64 `json:"train1TraverseTime"`
	Train2TraverseTime float64 `json:"train2TraverseTime"`
}

type Resolution struct {
	TrainID                    int64     `json:"trainID"`
	DepartureAdjustmentMinutes float64   `json:"departureAdjustmentMinutes"`
	DwellAdjustmentsMinutes    []float64 `json:"dwellAdjustmentsMinutes"`
	TrackAssignment            *int64    `json:"trackAssignment"`
	Confidence                 float64   `json:"confidence"`
}

// TotalDelay 返回该列车被施加的全部延误
func (r *Resolution) TotalDelay() float64 {
	total := r.DepartureAdjustmentMinutes
	for _, d := range r.DwellAdjustmentsMinutes {
		total += d
	}
	return total
}

type ResolutionResult struct {
	Resolutions        []Resolution `json:"resolutions"`
	TotalDelay         float64      `json:"totalDelay"`
	InitialConflicts   int          `json:"initialConflicts"`
	RemainingConflicts int          `json:"remainingConflicts"`
	ConflictsResolved  int          `json:"conflictsResolved"`
	IterationsUsed     int          `json:"iterationsUsed"`
	BestFitness        float64      `json:"bestFitness"`
	FitnessHistory     []float64    `json:"fitnessHistory"`
	BudgetExhausted    bool         `json:"budgetExhausted"`
}
