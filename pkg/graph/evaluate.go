package graph

import (
	"github.com/masumrpg/promotion-engine/internal/solver"
	"github.com/masumrpg/promotion-engine/pkg/errs"
	"github.com/masumrpg/promotion-engine/pkg/item"
	"github.com/masumrpg/promotion-engine/pkg/money"
	"github.com/masumrpg/promotion-engine/pkg/tags"
)

// TrackedItem follows one basket item through the graph: its original
// position, current price/tags, and the accumulated trail of applications
// that have touched it so far (spec.md §4.4 step 1).
type TrackedItem struct {
	OriginalIndex int
	ProductID     item.ProductID
	Price         money.Money
	Tags          tags.Set
	Applications  []solver.PromotionApplication
}

// LayeredSolverResult is the evaluation's output (spec.md §6): the final
// basket total, every application keyed by original basket index, and the
// indices of items no promotion ever touched.
type LayeredSolverResult struct {
	Total            money.Money
	ItemApplications map[int][]solver.PromotionApplication
	FullPriceItems    []int
}

// participated reports whether item's cumulative trail contains any
// application at all — used by Split routing, which the source's open
// question confirms uses the cumulative trail rather than only the
// current layer's output (spec.md §9).
func (t TrackedItem) participated() bool { return len(t.Applications) > 0 }

// Evaluate runs basket through graph starting at its root (spec.md §4.4).
// backend is the MILP backend every layer solve uses; obs, if non-nil,
// observes each layer's formulation. Bundle ids come from one counter that
// every layer of this call shares and that starts at 0 on each call.
func (g Graph) Evaluate(basket item.Group, backend solver.Backend, obs solver.Observer) (LayeredSolverResult, error) {
	counter := 0
	return g.evaluate(basket, backend, obs, &counter)
}

func (g Graph) evaluate(basket item.Group, backend solver.Backend, obs solver.Observer, bundleCounter *int) (LayeredSolverResult, error) {
	order, err := g.topologicalOrder()
	if err != nil {
		return LayeredSolverResult{}, err
	}

	incoming := map[NodeKey][]TrackedItem{}
	for i, it := range basket.Items() {
		incoming[g.root] = append(incoming[g.root], TrackedItem{
			OriginalIndex: i,
			ProductID:     it.ProductID,
			Price:         it.Price,
			Tags:          it.Tags,
		})
	}

	finalized := make([]*TrackedItem, basket.Len())
	solverInstance := solver.NewLayerSolver(backend)

	for _, key := range order {
		arriving := incoming[key]
		if len(arriving) == 0 {
			continue
		}
		node := g.nodes[key]

		items := make([]item.Item, len(arriving))
		for i, ti := range arriving {
			items[i] = item.Item{ProductID: ti.ProductID, Price: ti.Price, Tags: ti.Tags}
		}
		layerGroup, err := item.NewGroup(basket.Currency(), items)
		if err != nil {
			return LayeredSolverResult{}, errs.Wrap(errs.CurrencyMismatch, "graph layer group", err)
		}

		result, err := solverInstance.Solve(layerGroup, node.Promotions, obs, bundleCounter)
		if err != nil {
			return LayeredSolverResult{}, err
		}

		byIndex := make(map[int]solver.PromotionApplication, len(result.Applications))
		for _, a := range result.Applications {
			byIndex[a.ItemIndex] = a
		}

		updated := make([]TrackedItem, len(arriving))
		for i, ti := range arriving {
			if app, ok := byIndex[i]; ok {
				ti.Price = app.FinalPrice
				ti.Applications = append(append([]solver.PromotionApplication{}, ti.Applications...), app)
			}
			updated[i] = ti
		}

		routeItems(node, updated, g.out[key], incoming, finalized)
	}

	return finalize(basket, finalized)
}

// topologicalOrder returns every node reachable from the root in an order
// where each node appears after all of its predecessors (Kahn's
// algorithm). Build already guarantees acyclicity and reachability.
func (g Graph) topologicalOrder() ([]NodeKey, error) {
	indegree := map[NodeKey]int{}
	for key := range g.nodes {
		indegree[key] = 0
	}
	for _, edges := range g.out {
		for _, e := range edges {
			indegree[e.to]++
		}
	}

	var queue []NodeKey
	queue = append(queue, g.root)
	visited := map[NodeKey]bool{g.root: true}
	var order []NodeKey
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, e := range g.out[n] {
			indegree[e.to]--
			if !visited[e.to] && indegree[e.to] <= 0 {
				visited[e.to] = true
				queue = append(queue, e.to)
			}
		}
	}
	return order, nil
}

func routeItems(node Node, items []TrackedItem, edges []edge, incoming map[NodeKey][]TrackedItem, finalized []*TrackedItem) {
	var allEdge, participatingEdge, nonParticipatingEdge *edge
	for i := range edges {
		switch edges[i].label {
		case All:
			allEdge = &edges[i]
		case Participating:
			participatingEdge = &edges[i]
		case NonParticipating:
			nonParticipatingEdge = &edges[i]
		}
	}

	for _, ti := range items {
		ti := ti
		switch node.Mode {
		case PassThrough:
			if allEdge != nil {
				incoming[allEdge.to] = append(incoming[allEdge.to], ti)
			} else {
				finalized[ti.OriginalIndex] = &ti
			}
		case Split:
			var target *edge
			if ti.participated() {
				target = participatingEdge
			} else {
				target = nonParticipatingEdge
			}
			if target != nil {
				incoming[target.to] = append(incoming[target.to], ti)
			} else {
				finalized[ti.OriginalIndex] = &ti
			}
		}
	}
}

func finalize(basket item.Group, finalized []*TrackedItem) (LayeredSolverResult, error) {
	total := money.Zero(basket.Currency())
	applications := map[int][]solver.PromotionApplication{}
	var fullPrice []int

	for i, ti := range finalized {
		if ti == nil {
			it, err := basket.At(i)
			if err != nil {
				return LayeredSolverResult{}, errs.Wrap(errs.ItemIndexOutOfRange, "graph finalize", err)
			}
			total, _ = total.Add(it.Price)
			fullPrice = append(fullPrice, i)
			continue
		}
		total, _ = total.Add(ti.Price)
		if len(ti.Applications) == 0 {
			fullPrice = append(fullPrice, i)
		} else {
			applications[i] = ti.Applications
		}
	}

	return LayeredSolverResult{
		Total:            total,
		ItemApplications: applications,
		FullPriceItems:   fullPrice,
	}, nil
}
