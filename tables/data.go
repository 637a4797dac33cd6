package tables

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"analysis_report_go/manifest"
	"analysis_report_go/store"
)

// workflow run primary key of the analysis stores
const runKey = "Workflow Run SWID"

// GetData resolves every row of the table in ascending case order. Store
// connections are opened for the call and always released.
func (t *Table) GetData(ctx context.Context) (Data, error) {
	if t.env.Manifest == nil || t.env.Store == nil {
		return nil, errors.Errorf("table %s: not bound to a manifest and store", t.Name)
	}
	if len(t.Sources) == 0 {
		return nil, errors.Errorf("table %s: no sources", t.Name)
	}
	t.resetPlots()

	conns := make(map[string]store.Conn)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for _, src := range t.Sources {
		if _, ok := conns[src.DB]; ok {
			continue
		}
		c, err := t.env.Store.Open(ctx, src.DB)
		if err != nil {
			// a lane may live in either store, so one missing fallback store is tolerated
			if t.Axis == PerLane && len(t.Sources) > 1 && errors.Is(err, store.ErrSourceMissing) {
				t.env.logger().Printf("Skipping %s for %s: %v", src.DB, t.Name, err)
				continue
			}
			return nil, errors.Wrapf(ErrSource, "open %s: %v", src.DB, err)
		}
		conns[src.DB] = c
	}
	if len(conns) == 0 {
		return nil, errors.Wrapf(ErrSource, "table %s: no source store available", t.Name)
	}

	var data Data
	for _, c := range t.env.Manifest.Cases() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			rows []Entry
			err  error
		)
		switch t.Axis {
		case PerCase:
			rows, err = t.perCase(ctx, conns, c)
		case PerSampleType:
			rows, err = t.perSampleType(ctx, conns, c)
		case PerLane:
			rows, err = t.perLane(ctx, conns, c)
		default:
			err = errors.Errorf("table %s: unknown axis %v", t.Name, t.Axis)
		}
		if err != nil {
			return nil, err
		}
		data = append(data, CaseRows{Case: c.ID, Rows: rows})
	}
	return data, nil
}

// lookup runs one unique-key query and turns ambiguity and store errors into
// fatal errors. found is false when the key has no row.
func (t *Table) lookup(ctx context.Context, conn store.Conn, src Source, cols []string, key, caseID string) (store.Row, bool, error) {
	q := store.Query{
		Table:      src.Table,
		Columns:    cols,
		Filter:     store.Filter{Column: src.Key, Value: key, Match: src.Match},
		Conditions: src.Conditions,
	}
	res := store.LookupOne(ctx, conn, q)
	if t.env.Observer != nil {
		t.env.Observer.Lookup(src.Table, res.Status)
	}
	switch res.Status {
	case store.Found:
		return res.Row, true, nil
	case store.NotFound:
		return nil, false, nil
	case store.Ambiguous:
		return nil, false, errors.Wrapf(ErrAmbiguousRow, "%s: %d rows in %s for %s = %s", caseID, res.Count, src.Table, src.Key, key)
	default:
		return nil, false, errors.Wrapf(ErrSource, "%s: %s: %v", caseID, src.Table, res.Err)
	}
}

func (t *Table) perCase(ctx context.Context, conns map[string]store.Conn, c *manifest.Case) ([]Entry, error) {
	run, ok := c.WorkflowRun(t.Step, t.Processes...)
	if !ok {
		return nil, errors.Wrapf(ErrNoWorkflowRun, "%s: step %s, processes %s", c.ID, t.Step, strings.Join(t.Processes, ", "))
	}

	first := t.Sources[0]
	entry := Entry{ColCase: c.ID}
	entry[ColSampleID] = t.ResolveIdentifier(ctx, conns[first.DB], first.Table, c.ID, run.ID, first.Key)
	rc := RowContext{Case: c.ID}

	for _, src := range t.Sources {
		cols, indices := t.selectFor(src.Columns)
		row, found, err := t.lookup(ctx, conns[src.DB], src, cols, run.ID, c.ID)
		if err != nil {
			return nil, err
		}
		if !found {
			for k, v := range t.NDEntry(indices, c.ID, src.Table) {
				entry[k] = v
			}
			continue
		}
		t.RowData(indices, row, entry, rc)
	}
	return []Entry{entry}, nil
}

func (t *Table) perSampleType(ctx context.Context, conns map[string]store.Conn, c *manifest.Case) ([]Entry, error) {
	src := t.Sources[0]
	conn := conns[src.DB]
	cols, indices := t.Select()

	var rows []Entry
	for _, st := range t.SampleTypes {
		keys, err := t.mergedKeys(c, st)
		if err != nil {
			return nil, err
		}
		lims := jsonList(keys)

		entry := Entry{ColCase: c.ID}
		if t.has(ColSampleType) {
			entry[ColSampleType] = st.Display
		}
		entry[ColSampleID] = t.ResolveIdentifier(ctx, conn, src.Table, c.ID, lims, src.Key)
		if t.has(ColNumLimsKeys) {
			entry[ColNumLimsKeys] = int64(len(keys))
		}

		row, found, err := t.lookup(ctx, conn, src, cols, lims, c.ID)
		if err != nil {
			return nil, err
		}
		if !found {
			for k, v := range t.NDEntry(indices, c.ID, src.Table) {
				entry[k] = v
			}
		} else {
			t.RowData(indices, row, entry, RowContext{Case: c.ID, SampleType: st.Tissue})
		}
		rows = append(rows, entry)
	}
	return rows, nil
}

func (t *Table) mergedKeys(c *manifest.Case, st SampleType) ([]string, error) {
	var keys []string
	switch t.MergedKey {
	case RunLimsKeys:
		run, ok := c.WorkflowRun(t.Step, t.Processes...)
		if !ok {
			return nil, errors.Wrapf(ErrNoWorkflowRun, "%s: step %s, processes %s", c.ID, t.Step, strings.Join(t.Processes, ", "))
		}
		keys = append(keys, run.LimsKeys...)
	default:
		keys = c.LaneKeys(t.Library, st.Tissue)
	}
	if len(keys) == 0 {
		return nil, errors.Wrapf(ErrNoLaneSample, "%s: no %s %s lanes", c.ID, t.Library, st.Tissue)
	}
	sort.Strings(keys)
	return keys, nil
}

func (t *Table) perLane(ctx context.Context, conns map[string]store.Conn, c *manifest.Case) ([]Entry, error) {
	cols, indices := t.Select()

	var rows []Entry
	for _, st := range t.SampleTypes {
		lanes := c.LaneKeys(t.Library, st.Tissue)
		if len(lanes) == 0 {
			return nil, errors.Wrapf(ErrNoLaneSample, "%s: no %s %s lanes", c.ID, t.Library, st.Tissue)
		}
		for _, lims := range lanes {
			sampleID, run, ok := c.LaneSample(t.Library, st.Tissue, lims)
			if !ok {
				return nil, errors.Wrapf(ErrNoLaneSample, "%s: lane %s", c.ID, lims)
			}

			var (
				row   store.Row
				found bool
				last  string
			)
			for _, src := range t.Sources {
				conn, ok := conns[src.DB]
				if !ok {
					continue
				}
				var err error
				last = src.Table
				row, found, err = t.lookup(ctx, conn, src, cols, lims, c.ID)
				if err != nil {
					return nil, err
				}
				if found {
					break
				}
			}

			var entry Entry
			if found {
				entry = Entry{}
			} else {
				entry = t.NDEntry(indices, c.ID, last)
			}
			entry[ColCase] = c.ID
			entry[ColSampleID] = sampleID
			entry[ColLane] = run
			if t.has(ColSampleType) {
				entry[ColSampleType] = st.Display
			}
			if found {
				t.RowData(indices, row, entry, RowContext{Case: c.ID, SampleType: st.Tissue, Lane: run})
			}
			rows = append(rows, entry)
		}
	}
	return rows, nil
}

// jsonList renders keys the way merged runs store them: ["a", "b"]
func jsonList(keys []string) string {
	return `["` + strings.Join(keys, `", "`) + `"]`
}
