package domain

const DefaultVelocityKmh = 120.0

type Train struct {
	ID                 int64     `json:"id"`
	PositionKm         float64   `json:"positionKm"`
	VelocityKmh        float64   `json:"velocityKmh"`
	CurrentTrack       int64     `json:"currentTrack"`
	PlannedRoute       []int64   `json:"plannedRoute"` // 为空表示只在当前轨道上运行
	RouteIndex         int       `json:"routeIndex"`
	OriginStation      *int64    `json:"originStation"`
	DestinationStation *int64    `json:"destinationStation"`
	ScheduledDeparture Minutes   `json:"scheduledDeparture"`
	Priority           int32     `json:"priority"`
	DelayMinutes       float64   `json:"delayMinutes"`
	DwellDelays        []float64 `json:"dwellDelays"` // 每个中间站一项，单位为分钟
}

// Velocity 返回列车速度，未设置时使用默认值
func (t *Train) Velocity() float64 {
	if t.VelocityKmh <= 0 {
		return DefaultVelocityKmh
	}
	return t.VelocityKmh
}

// Clone 深拷贝列车，遗传算法中每个个体都需要独立的副本
func (t *Train) Clone() *Train {
	c := *t
	if t.PlannedRoute != nil {
		c.PlannedRoute = append([]int64(nil), t.PlannedRoute...)
	}
	if t.DwellDelays != nil {
		c.DwellDelays = append([]float64(nil), t.DwellDelays...)
	}
	if t.OriginStation != nil {
		v := *t.OriginStation
		c.OriginStation = &v
	}
	if t.DestinationStation != nil {
		v := *t.DestinationStation
		c.DestinationStation = &v
	}
	return &c
}

// StopCount 返回中间停靠站数量（终点不计）
func (t *Train) StopCount() int {
	if len(t.PlannedRoute) <= 1 {
		return 0
	}
	return len(t.PlannedRoute) - 1
}

func CloneTrains(trains []*Train) []*Train {
	out := make([]*Train, len(trains))
	for i, t := range trains {
		out[i] = t.Clone()
	}
	return out
}

type PriorityConvention string

const (
	PriorityHigherFirst PriorityConvention = "higher_first" // 数值越大越紧急
	PriorityLowerFirst  PriorityConvention = "lower_first"  // 数值越小越紧急
)

// Urgency 将优先级归一化到 [0, 1]，1 表示最紧急
func (c PriorityConvention) Urgency(priority int32) float64 {
	p := float64(min(max(priority, 1), 10))
	if c == PriorityLowerFirst {
		return (10 - p) / 9
	}
	return (p - 1) / 9
}

type TrainPosition struct {
	TrainID            int64   `json:"trainID"`
	CurrentTrack       int64   `json:"currentTrack"`
	PositionKm         float64 `json:"positionKm"`
	VelocityKmh        float64 `json:"velocityKmh"`
	RouteIndex         int     `json:"routeIndex"`
	HasDeparted        bool    `json:"hasDeparted"`
	HasArrived         bool    `json:"hasArrived"`
	IsStoppedAtStation bool    `json:"isStoppedAtStation"`
}
