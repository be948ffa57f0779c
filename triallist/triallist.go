// Package triallist loads the per-block trial lists (CSV or JSON) and
// shuffles them.
package triallist

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	ColumnImage    = "image"
	ColumnStimulus = "stimulus"
)

// LoadCSV reads a trial list with a header row. Only the image and stimulus
// columns are consumed; other columns and their order are ignored.
func LoadCSV(r io.Reader, block string) ([]gonogo.TrialSpec, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, goerr.Wrap(gonogo.ErrEmptyTrialList, "trial list has no header")
		}
		return nil, goerr.Wrap(err, "failed to read trial list header")
	}

	imageCol, stimulusCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case ColumnImage:
			imageCol = i
		case ColumnStimulus:
			stimulusCol = i
		}
	}
	if imageCol < 0 || stimulusCol < 0 {
		return nil, goerr.New("trial list must have image and stimulus columns", goerr.V("header", header))
	}

	var trials []gonogo.TrialSpec
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read trial list", goerr.V("line", line))
		}
		if imageCol >= len(record) || stimulusCol >= len(record) {
			return nil, goerr.New("trial list row is too short", goerr.V("line", line))
		}

		spec, err := newSpec(record[imageCol], record[stimulusCol], block)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid trial list row", goerr.V("line", line))
		}
		trials = append(trials, spec)
	}

	if len(trials) == 0 {
		return nil, goerr.Wrap(gonogo.ErrEmptyTrialList, "trial list has no rows")
	}
	return trials, nil
}

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func trialSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = goerr.Wrap(err, "failed to parse trial list schema")
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("trials.json", doc); err != nil {
			schemaErr = goerr.Wrap(err, "failed to add trial list schema")
			return
		}
		compiledSchema, schemaErr = c.Compile("trials.json")
		if schemaErr != nil {
			schemaErr = goerr.Wrap(schemaErr, "failed to compile trial list schema")
		}
	})
	return compiledSchema, schemaErr
}

type jsonRow struct {
	Image    string `json:"image"`
	Stimulus string `json:"stimulus"`
}

// LoadJSON reads a trial list given as a JSON array of {"image", "stimulus"}
// objects. The document is validated against the embedded schema first.
func LoadJSON(r io.Reader, block string) ([]gonogo.TrialSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read trial list")
	}

	schema, err := trialSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(err, "trial list is not valid JSON")
	}
	if err := schema.Validate(inst); err != nil {
		return nil, goerr.Wrap(err, "trial list does not match schema")
	}

	var rows []jsonRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, goerr.Wrap(err, "failed to decode trial list")
	}

	trials := make([]gonogo.TrialSpec, 0, len(rows))
	for i, row := range rows {
		spec, err := newSpec(row.Image, row.Stimulus, block)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid trial list entry", goerr.V("index", i))
		}
		trials = append(trials, spec)
	}
	return trials, nil
}

// LoadFile reads a CSV or JSON trial list, chosen by the file extension.
func LoadFile(path, block string) ([]gonogo.TrialSpec, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open trial list", goerr.V("path", path))
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(f, block)
	case ".json":
		return LoadJSON(f, block)
	}
	return nil, goerr.New("unsupported trial list format", goerr.V("path", path))
}

// Shuffle returns a shuffled copy of trials. The input is not modified.
func Shuffle(trials []gonogo.TrialSpec, r *rand.Rand) []gonogo.TrialSpec {
	shuffled := make([]gonogo.TrialSpec, len(trials))
	copy(shuffled, trials)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

func newSpec(image, stimulus, block string) (gonogo.TrialSpec, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return gonogo.TrialSpec{}, goerr.New("image is empty")
	}
	kind, err := gonogo.ParseStimulusKind(stimulus)
	if err != nil {
		return gonogo.TrialSpec{}, err
	}
	return gonogo.TrialSpec{Image: image, Kind: kind, Block: block}, nil
}
