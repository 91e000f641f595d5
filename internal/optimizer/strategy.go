package optimizer

import (
	"container/heap"
	"sort"

	"github.com/Iron-Ham/cadence/internal/domain"
)

// Modeled speed and intensity factors.
const (
	fastRatingThreshold = 0.8
	fastDurationFactor  = 0.8
	relaxedDuration     = 1.2
	relaxedEffort       = 0.9
)

// choice is one strategy decision for a task.
type choice struct {
	resource *domain.Resource
	duration float64
	effort   float64
	reason   string
}

// strategy picks a resource for a task from the eligible set. eligible is
// never empty and preserves the input resource order.
type strategy interface {
	choose(t *domain.Task, eligible []*domain.Resource) choice
}

func newStrategy(target Target, resources []domain.Resource) strategy {
	switch target {
	case TargetCost:
		return &costStrategy{}
	case TargetUtilization:
		return newLoadStrategy(resources)
	default:
		return &durationStrategy{}
	}
}

// durationStrategy picks the highest-rated resource; a rating above 0.8
// shortens the task by 20%.
type durationStrategy struct{}

func (durationStrategy) choose(t *domain.Task, eligible []*domain.Resource) choice {
	best := eligible[0]
	for _, r := range eligible[1:] {
		if r.PerformanceRating > best.PerformanceRating ||
			(r.PerformanceRating == best.PerformanceRating && r.CostPerHour < best.CostPerHour) {
			best = r
		}
	}
	c := choice{resource: best, duration: t.EstimatedDuration, effort: t.EstimatedEffort}
	if best.PerformanceRating > fastRatingThreshold {
		c.duration = t.EstimatedDuration * fastDurationFactor
		c.reason = "high-performing resource"
	}
	return c
}

// costStrategy picks the cheapest resource. Low and medium priority tasks are
// modeled at relaxed intensity: 20% longer, 10% less effort, never below the
// new duration.
type costStrategy struct{}

func (costStrategy) choose(t *domain.Task, eligible []*domain.Resource) choice {
	sorted := append([]*domain.Resource(nil), eligible...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CostPerHour < sorted[j].CostPerHour })

	c := choice{resource: sorted[0], duration: t.EstimatedDuration, effort: t.EstimatedEffort}
	if !t.Priority.IsUrgent() {
		c.duration = t.EstimatedDuration * relaxedDuration
		c.effort = t.EstimatedEffort * relaxedEffort
		if c.effort < c.duration {
			c.effort = c.duration
		}
		c.reason = "relaxed intensity for non-urgent task"
	}
	return c
}

// loadStrategy assigns each task to the least-loaded eligible resource,
// keeping resources in a min-heap keyed by running assigned hours.
type loadStrategy struct {
	h     loadHeap
	items map[string]*loadItem
}

type loadItem struct {
	resource *domain.Resource
	load     float64
	order    int
	index    int
}

func newLoadStrategy(resources []domain.Resource) *loadStrategy {
	s := &loadStrategy{items: make(map[string]*loadItem, len(resources))}
	for i := range resources {
		it := &loadItem{resource: &resources[i], order: i}
		s.items[resources[i].ID] = it
		s.h = append(s.h, it)
		it.index = len(s.h) - 1
	}
	heap.Init(&s.h)
	return s
}

func (s *loadStrategy) choose(t *domain.Task, eligible []*domain.Resource) choice {
	ok := make(map[string]bool, len(eligible))
	for _, r := range eligible {
		ok[r.ID] = true
	}

	// Pop until the least-loaded eligible resource surfaces, then restore the
	// skipped ones.
	var skipped []*loadItem
	var picked *loadItem
	for s.h.Len() > 0 {
		it := heap.Pop(&s.h).(*loadItem)
		if ok[it.resource.ID] {
			picked = it
			break
		}
		skipped = append(skipped, it)
	}
	for _, it := range skipped {
		heap.Push(&s.h, it)
	}
	if picked == nil {
		return choice{resource: eligible[0], duration: t.EstimatedDuration, effort: t.EstimatedEffort}
	}

	picked.load += t.EstimatedEffort
	heap.Push(&s.h, picked)
	return choice{resource: picked.resource, duration: t.EstimatedDuration, effort: t.EstimatedEffort}
}

type loadHeap []*loadItem

func (h loadHeap) Len() int { return len(h) }
func (h loadHeap) Less(i, j int) bool {
	if h[i].load != h[j].load {
		return h[i].load < h[j].load
	}
	return h[i].order < h[j].order
}
func (h loadHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *loadHeap) Push(x any) {
	it := x.(*loadItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *loadHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
