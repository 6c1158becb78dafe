package analytics

import (
	"context"
	"sort"
	"strings"

	"github.com/careflow/careflow/internal/domain/flow"
)

// Aggregator reads per-specialty statistics from the flow store.
type Aggregator interface {
	SpecialtyStats(ctx context.Context) ([]SpecialtyStats, error)
	Totals(ctx context.Context) (*Totals, error)
}

// GeneralSpecialtyID groups flows that have a specialty name but no id.
const GeneralSpecialtyID = "general"

var placeholderSpecialties = []string{"", "no specialty", "sin especialidad"}

// ValidSpecialty reports whether name identifies a real specialty.
func ValidSpecialty(name *string) bool {
	if name == nil {
		return false
	}
	n := strings.ToLower(strings.TrimSpace(*name))
	for _, p := range placeholderSpecialties {
		if n == p {
			return false
		}
	}
	return true
}

// FlowWalker visits stored flows.
type FlowWalker interface {
	Walk(ctx context.Context, flt flow.Filter, fn func(*flow.Flow) error) error
}

type walkAggregator struct {
	flows FlowWalker
}

// NewWalkAggregator computes statistics by visiting every active flow. It
// backs the memory storage mode.
func NewWalkAggregator(flows FlowWalker) Aggregator {
	return &walkAggregator{flows: flows}
}

type bucket struct {
	SpecialtyStats
	durSum, costSum, stepCostSum float64
}

func (a *walkAggregator) collect(ctx context.Context) (map[[2]string]*bucket, error) {
	groups := map[[2]string]*bucket{}
	err := a.flows.Walk(ctx, flow.Filter{ActiveOnly: true}, func(f *flow.Flow) error {
		if !ValidSpecialty(f.SpecialtyName) {
			return nil
		}
		id := GeneralSpecialtyID
		if f.SpecialtyID != nil && *f.SpecialtyID != "" {
			id = *f.SpecialtyID
		}
		key := [2]string{id, *f.SpecialtyName}
		b := groups[key]
		if b == nil {
			b = &bucket{SpecialtyStats: SpecialtyStats{SpecialtyID: id, SpecialtyName: *f.SpecialtyName}}
			groups[key] = b
		}
		b.FlowCount++
		b.durSum += float64(f.AverageDuration)
		b.costSum += f.EstimatedCost
		for _, n := range f.Nodes {
			b.TotalSteps++
			b.stepCostSum += n.CostAvg
		}
		return nil
	})
	return groups, err
}

func (a *walkAggregator) SpecialtyStats(ctx context.Context) ([]SpecialtyStats, error) {
	groups, err := a.collect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SpecialtyStats, 0, len(groups))
	for _, b := range groups {
		s := b.SpecialtyStats
		s.AvgDuration = b.durSum / float64(b.FlowCount)
		s.AvgCost = b.costSum / float64(b.FlowCount)
		if b.TotalSteps > 0 {
			s.AvgStepCost = b.stepCostSum / float64(b.TotalSteps)
		}
		out = append(out, s)
	}
	sortStats(out)
	return out, nil
}

func (a *walkAggregator) Totals(ctx context.Context) (*Totals, error) {
	groups, err := a.collect(ctx)
	if err != nil {
		return nil, err
	}
	t := &Totals{}
	names := map[string]bool{}
	var durSum, costSum float64
	for _, b := range groups {
		names[b.SpecialtyName] = true
		t.Flows += b.FlowCount
		t.Steps += b.TotalSteps
		durSum += b.durSum
		costSum += b.costSum
	}
	t.Specialties = len(names)
	if t.Flows > 0 {
		t.AvgDuration = durSum / float64(t.Flows)
		t.AvgCost = costSum / float64(t.Flows)
	}
	return t, nil
}

// sortStats orders by flow count descending, then name.
func sortStats(s []SpecialtyStats) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].FlowCount != s[j].FlowCount {
			return s[i].FlowCount > s[j].FlowCount
		}
		if s[i].SpecialtyName != s[j].SpecialtyName {
			return s[i].SpecialtyName < s[j].SpecialtyName
		}
		return s[i].SpecialtyID < s[j].SpecialtyID
	})
}
