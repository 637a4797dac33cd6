package manifest

import (
	"github.com/buger/jsonparser"
	"github.com/pkg/errors"

	common "analysis_report_go/utils"
)

// ErrInvalidManifest is returned when the manifest is missing required structure.
var ErrInvalidManifest = errors.New("invalid manifest")

// Load reads a manifest from a plain or gzip-compressed JSON file.
func Load(path string) (*Manifest, error) {
	data, err := common.ReadInput(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing manifest %s", path)
	}
	return m, nil
}

// Parse decodes a manifest document. Object order is preserved for samples,
// lanes and analysis runs; cases are sorted by ID afterwards.
func Parse(data []byte) (*Manifest, error) {
	project, err := optionalString(data, "project")
	if err != nil {
		return nil, err
	}
	release, err := optionalString(data, "release")
	if err != nil {
		return nil, err
	}

	raw, dt, _, err := jsonparser.Get(data, "cases")
	if err != nil || dt != jsonparser.Object {
		return nil, errors.Wrap(ErrInvalidManifest, `"cases" object is required`)
	}

	var cases []*Case
	err = eachObject(raw, func(id string, value []byte, dt jsonparser.ValueType) error {
		if dt != jsonparser.Object {
			return errors.Wrapf(ErrInvalidManifest, "case %s is not an object", id)
		}
		c, err := parseCase(id, value)
		if err != nil {
			return err
		}
		cases = append(cases, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return New(project, release, cases), nil
}

func parseCase(id string, data []byte) (*Case, error) {
	c := &Case{ID: id, Libraries: make(map[string]map[string][]*Sample)}

	ext, err := optionalString(data, "external_id")
	if err != nil {
		return nil, errors.Wrapf(err, "case %s", id)
	}
	c.ExternalID = ext

	for _, library := range []string{WholeGenome, WholeTranscriptome} {
		raw, dt, _, err := jsonparser.Get(data, library)
		if err == jsonparser.KeyPathNotFoundError || dt == jsonparser.Null {
			continue
		}
		if err != nil || dt != jsonparser.Object {
			return nil, errors.Wrapf(ErrInvalidManifest, "case %s: %s is not an object", id, library)
		}
		byTissue, err := parseLibrary(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "case %s: %s", id, library)
		}
		c.Libraries[library] = byTissue
	}

	raw, dt, _, err := jsonparser.Get(data, "analysis")
	switch {
	case err == jsonparser.KeyPathNotFoundError || dt == jsonparser.Null:
	case err != nil || dt != jsonparser.Object:
		return nil, errors.Wrapf(ErrInvalidManifest, "case %s: analysis is not an object", id)
	default:
		steps, err := parseAnalysis(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "case %s: analysis", id)
		}
		c.Analysis = steps
	}
	return c, nil
}

// tissue -> sample id -> lims key -> {"run": ...}
func parseLibrary(data []byte) (map[string][]*Sample, error) {
	byTissue := make(map[string][]*Sample)
	err := eachObject(data, func(tissue string, value []byte, dt jsonparser.ValueType) error {
		if dt != jsonparser.Object {
			return errors.Wrapf(ErrInvalidManifest, "%s is not an object", tissue)
		}
		return eachObject(value, func(sampleID string, lanes []byte, dt jsonparser.ValueType) error {
			s := &Sample{ID: sampleID}
			if dt == jsonparser.Object {
				err := eachObject(lanes, func(limsKey string, info []byte, dt jsonparser.ValueType) error {
					lane := Lane{LimsKey: limsKey}
					if dt == jsonparser.Object {
						run, err := optionalString(info, "run")
						if err != nil {
							return errors.Wrapf(err, "lane %s", limsKey)
						}
						lane.Run = run
					}
					s.Lanes = append(s.Lanes, lane)
					return nil
				})
				if err != nil {
					return errors.Wrapf(err, "sample %s", sampleID)
				}
			}
			byTissue[tissue] = append(byTissue[tissue], s)
			return nil
		})
	})
	return byTissue, err
}

// step -> workflow run id -> {"wf"|"wfrun": name, "limkeys": "a:b"}
func parseAnalysis(data []byte) ([]*Step, error) {
	var steps []*Step
	err := eachObject(data, func(name string, value []byte, dt jsonparser.ValueType) error {
		if dt != jsonparser.Object {
			return errors.Wrapf(ErrInvalidManifest, "step %s is not an object", name)
		}
		step := &Step{Name: name}
		err := eachObject(value, func(runID string, info []byte, dt jsonparser.ValueType) error {
			if dt != jsonparser.Object {
				return errors.Wrapf(ErrInvalidManifest, "run %s is not an object", runID)
			}
			wf, err := optionalString(info, "wf")
			if err != nil {
				return err
			}
			if wf == "" {
				if wf, err = optionalString(info, "wfrun"); err != nil {
					return err
				}
			}
			limkeys, err := optionalString(info, "limkeys")
			if err != nil {
				return err
			}
			step.Runs = append(step.Runs, WorkflowRun{
				ID:       runID,
				Workflow: wf,
				LimsKeys: SplitLimsKeys(limkeys),
			})
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "step %s", name)
		}
		steps = append(steps, step)
		return nil
	})
	return steps, err
}

// eachObject walks an object's members in document order with unescaped keys.
func eachObject(data []byte, fn func(key string, value []byte, dt jsonparser.ValueType) error) error {
	var inner error
	err := jsonparser.ObjectEach(data, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return errors.Wrap(ErrInvalidManifest, "bad object key")
		}
		if err := fn(k, value, dt); err != nil {
			inner = err
			return err
		}
		return nil
	})
	if inner != nil {
		return inner
	}
	if err != nil {
		return errors.Wrap(ErrInvalidManifest, err.Error())
	}
	return nil
}

// optionalString returns "" for a missing or null key and an error for a non-string value.
func optionalString(data []byte, key string) (string, error) {
	value, dt, _, err := jsonparser.Get(data, key)
	if err == jsonparser.KeyPathNotFoundError || dt == jsonparser.Null {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(ErrInvalidManifest, "%s: %v", key, err)
	}
	switch dt {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return string(value), nil
	default:
		return "", errors.Wrapf(ErrInvalidManifest, "%s must be a string", key)
	}
}
