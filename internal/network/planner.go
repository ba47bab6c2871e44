package network

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

const distanceEpsilon = 1e-9

type planKey struct {
	origin      int64
	destination int64
	speed       float64
}

type cachedPlan struct {
	plan *domain.RoutePlan // 为 nil 表示不可达
}

// PlanRoute 按累计里程计算最短路线
// 车站不存在时返回 ErrUnknownStation；不可达时返回 ErrNoRoute，调用方应将其视为正常结果
// 始发站与终点站相同时返回空路线
func (s *Session) PlanRoute(origin, destination int64, avgSpeedKmh float64) (*domain.RoutePlan, error) {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = domain.DefaultVelocityKmh
	}
	if !s.HasStation(origin) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStation, origin)
	}
	if !s.HasStation(destination) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStation, destination)
	}

	key := planKey{origin: origin, destination: destination, speed: avgSpeedKmh}
	if v, err := s.plans.Get(key); err == nil {
		cached := v.(cachedPlan)
		if cached.plan == nil {
			return nil, ErrNoRoute
		}
		return clonePlan(cached.plan), nil
	}

	plan := s.planRoute(origin, destination, avgSpeedKmh)
	_ = s.plans.Set(key, cachedPlan{plan: plan})
	if plan == nil {
		return nil, ErrNoRoute
	}
	return clonePlan(plan), nil
}

func (s *Session) planRoute(origin, destination int64, avgSpeedKmh float64) *domain.RoutePlan {
	plan := &domain.RoutePlan{
		OriginStation:      origin,
		DestinationStation: destination,
		OriginName:         s.stations[origin].Name,
		DestinationName:    s.stations[destination].Name,
		Segments:           []domain.RouteSegment{},
		TrackIDs:           []int64{},
	}
	if origin == destination {
		return plan
	}

	path, ok := s.shortestPath(origin, destination)
	if !ok {
		return nil
	}

	current := origin
	for _, trackID := range path {
		track := s.tracks[trackID]
		exit := track.Other(current)
		minutes := track.LengthKm / avgSpeedKmh * 60.0

		plan.Segments = append(plan.Segments, domain.RouteSegment{
			TrackID:              trackID,
			EntryStationID:       current,
			ExitStationID:        exit,
			DistanceKm:           track.LengthKm,
			EstimatedTimeMinutes: minutes,
			IsSingleTrack:        track.IsSingleTrack,
		})
		plan.TotalDistanceKm += track.LengthKm
		plan.TotalTimeMinutes += minutes
		plan.TrackIDs = append(plan.TrackIDs, trackID)
		current = exit
	}

	return plan
}

// shortestPath Dijkstra 最短路
// 距离相同时选择轨道 ID 之和最小的路径，再相同时按邻接表（轨道 ID 升序）中先找到的路径
func (s *Session) shortestPath(origin, destination int64) ([]int64, bool) {
	dist := map[int64]float64{origin: 0}
	idSum := map[int64]int64{origin: 0}
	cameFrom := make(map[int64]edge)
	visited := make(map[int64]bool)

	pq := make(PriorityQueue, 0)
	heap.Init(&pq)
	heap.Push(&pq, &Item{Value: origin, Priority: 0, TieBreak: 0})

	for pq.Len() > 0 {
		cur := heap.Pop(&pq).(*Item)
		if visited[cur.Value] {
			continue
		}
		visited[cur.Value] = true
		if cur.Value == destination {
			break
		}

		for _, e := range s.adjacency[cur.Value] {
			if visited[e.neighbor] {
				continue
			}
			nd := dist[cur.Value] + e.lengthKm
			ns := idSum[cur.Value] + e.trackID

			od, known := dist[e.neighbor]
			if known && !better(nd, ns, od, idSum[e.neighbor]) {
				continue
			}

			dist[e.neighbor] = nd
			idSum[e.neighbor] = ns
			cameFrom[e.neighbor] = edge{neighbor: cur.Value, trackID: e.trackID, lengthKm: e.lengthKm}
			heap.Push(&pq, &Item{Value: e.neighbor, Priority: nd, TieBreak: ns})
		}
	}

	if !visited[destination] {
		return nil, false
	}

	path := make([]int64, 0)
	for cur := destination; cur != origin; {
		prev := cameFrom[cur]
		path = append(path, prev.trackID)
		cur = prev.neighbor
	}

	return lo.Reverse(path), true
}

func better(newDist float64, newSum int64, oldDist float64, oldSum int64) bool {
	if newDist < oldDist-distanceEpsilon {
		return true
	}
	return math.Abs(newDist-oldDist) <= distanceEpsilon && newSum < oldSum
}

func clonePlan(p *domain.RoutePlan) *domain.RoutePlan {
	c := *p
	c.Segments = append([]domain.RouteSegment{}, p.Segments...)
	c.TrackIDs = append([]int64{}, p.TrackIDs...)
	return &c
}
