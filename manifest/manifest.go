// Package manifest holds the per-release case manifest: which cases are in a
// release, which samples and lanes belong to each case, and which workflow runs
// produced their analysis outputs.
package manifest

import (
	"sort"
	"strings"
)

// Library types
const (
	WholeGenome        = "WG"
	WholeTranscriptome = "WT"
)

// Tissue origins used as sample types
const (
	Normal = "Normal"
	Tumour = "Tumour"
)

type Manifest struct {
	Project string
	Release string
	cases   []*Case
	byID    map[string]*Case
}

type Case struct {
	ID         string
	ExternalID string
	// Libraries maps library type -> tissue origin -> samples, in manifest order
	Libraries map[string]map[string][]*Sample
	Analysis  []*Step
}

// Sample is one library sample and the lanes sequenced for it
type Sample struct {
	ID    string
	Lanes []Lane
}

type Lane struct {
	LimsKey string
	Run     string
}

// Step groups the workflow runs recorded for one pipeline step, e.g. "calls.mutations"
type Step struct {
	Name string
	Runs []WorkflowRun
}

type WorkflowRun struct {
	ID       string
	Workflow string
	LimsKeys []string
}

// New builds a manifest from already decoded cases. Cases are kept sorted by ID.
func New(project, release string, cases []*Case) *Manifest {
	m := &Manifest{
		Project: project,
		Release: release,
		byID:    make(map[string]*Case, len(cases)),
	}
	for _, c := range cases {
		m.cases = append(m.cases, c)
		m.byID[c.ID] = c
	}
	sort.SliceStable(m.cases, func(i, j int) bool { return m.cases[i].ID < m.cases[j].ID })
	return m
}

// Cases returns every case in ascending case-id order.
func (m *Manifest) Cases() []*Case {
	out := make([]*Case, len(m.cases))
	copy(out, m.cases)
	return out
}

func (m *Manifest) Case(id string) (*Case, bool) {
	c, ok := m.byID[id]
	return c, ok
}

func (m *Manifest) Len() int { return len(m.cases) }

// WorkflowRun returns the first run of step, in manifest order, whose workflow
// is one of processes.
func (c *Case) WorkflowRun(step string, processes ...string) (WorkflowRun, bool) {
	for _, s := range c.Analysis {
		if s.Name != step {
			continue
		}
		for _, run := range s.Runs {
			for _, p := range processes {
				if run.Workflow == p {
					return run, true
				}
			}
		}
	}
	return WorkflowRun{}, false
}

// Samples returns the samples of one library type and tissue origin.
// A missing library or tissue group yields nil.
func (c *Case) Samples(library, tissue string) []*Sample {
	byTissue, ok := c.Libraries[library]
	if !ok {
		return nil
	}
	return byTissue[tissue]
}

// LaneKeys lists lane identifiers for a library type and tissue origin in the
// order they appear in the manifest.
func (c *Case) LaneKeys(library, tissue string) []string {
	var keys []string
	for _, s := range c.Samples(library, tissue) {
		for _, l := range s.Lanes {
			keys = append(keys, l.LimsKey)
		}
	}
	return keys
}

// LaneSample resolves a lane identifier to the sample it belongs to and its run label.
func (c *Case) LaneSample(library, tissue, limsKey string) (sampleID, run string, ok bool) {
	for _, s := range c.Samples(library, tissue) {
		for _, l := range s.Lanes {
			if l.LimsKey == limsKey {
				return s.ID, l.Run, true
			}
		}
	}
	return "", "", false
}

// SplitLimsKeys splits a colon-delimited "limkeys" field.
func SplitLimsKeys(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(field, ":") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
