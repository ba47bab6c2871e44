package analyzer

import (
	"slices"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Connectivity 统计车站图的连通分量，用于发现孤立车站和断开的子网
func (a *Analyzer) Connectivity() domain.Connectivity {
	g := simple.NewUndirectedGraph()
	for _, station := range a.topology.Stations() {
		g.AddNode(simple.Node(station.ID))
	}
	for _, track := range a.topology.Tracks() {
		from, to := track.StationIDs[0], track.StationIDs[1]
		if from == to {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
	}

	components := topo.ConnectedComponents(g)
	result := domain.Connectivity{
		Components:       len(components),
		IsConnected:      len(components) <= 1,
		IsolatedStations: []int64{},
	}
	for _, component := range components {
		result.LargestComponent = max(result.LargestComponent, len(component))
		if len(component) == 1 {
			result.IsolatedStations = append(result.IsolatedStations, component[0].ID())
		}
	}
	slices.Sort(result.IsolatedStations)

	return result
}
