// Package clinical adapts the read-only clinical records database: catalog
// display names and ranked frequency summaries used by the flow generator.
package clinical

import (
	"context"
	"sort"
)

// Kind selects a clinical catalog.
type Kind string

const (
	KindDiagnosis Kind = "diagnosis"
	KindProcedure Kind = "procedure"
	KindSpecialty Kind = "specialty"
)

// NameLookup resolves catalog display names. ok is false when the id is
// not in the catalog.
type NameLookup interface {
	DisplayName(ctx context.Context, kind Kind, id string) (name string, ok bool, err error)
}

// Frequency is one ranked entity with its observed count.
type Frequency struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Summary is the observed activity in the clinical records.
type Summary struct {
	Diagnoses     []Frequency `json:"most_common_diagnoses"`
	Procedures    []Frequency `json:"most_common_procedures"`
	Referrals     []Frequency `json:"most_common_referrals"`
	LabOrders     int         `json:"lab_orders_count"`
	ImagingOrders int         `json:"imaging_orders_count"`
}

type SummaryProvider interface {
	Summary(ctx context.Context) (*Summary, error)
}

// Rank sorts by count descending, then id, and keeps the first n (all when
// n <= 0).
func Rank(in []Frequency, n int) []Frequency {
	out := append([]Frequency(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Static serves a fixed summary and name table. It backs local runs
// without a clinical database.
type Static struct {
	summary Summary
	names   map[Kind]map[string]string
}

func NewStatic(summary Summary, names map[Kind]map[string]string) *Static {
	if names == nil {
		names = map[Kind]map[string]string{}
	}
	return &Static{summary: summary, names: names}
}

func (s *Static) Summary(context.Context) (*Summary, error) {
	out := s.summary
	out.Diagnoses = append([]Frequency(nil), s.summary.Diagnoses...)
	out.Procedures = append([]Frequency(nil), s.summary.Procedures...)
	out.Referrals = append([]Frequency(nil), s.summary.Referrals...)
	return &out, nil
}

func (s *Static) DisplayName(_ context.Context, kind Kind, id string) (string, bool, error) {
	name, ok := s.names[kind][id]
	return name, ok, nil
}
