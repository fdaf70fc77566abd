package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Run is the summary of one entry point execution.
type Run struct {
	ID      string `yaml:"id" dynamodbav:"Id"`
	Command string `yaml:"command" dynamodbav:"Command"`

	StartedAt  time.Time `yaml:"started_at" dynamodbav:"StartedAt"`
	FinishedAt time.Time `yaml:"finished_at" dynamodbav:"FinishedAt"`

	Stages []*StageResult `yaml:"stages" dynamodbav:"Stages"`

	maxFailures int
}

func NewRun(command string, maxFailures int) *Run {
	return &Run{
		ID:          uuid.New().String(),
		Command:     command,
		StartedAt:   time.Now(),
		maxFailures: maxFailures,
	}
}

// Stage starts a new stage and attaches it to the run.
func (r *Run) Stage(name string) *StageResult {
	s := NewStage(name, r.maxFailures)
	r.Stages = append(r.Stages, s)

	return s
}

func (r *Run) Finish() {
	r.FinishedAt = time.Now()
}

func (r *Run) Failed() int {
	var failed int
	for _, s := range r.Stages {
		failed += s.Failed
	}

	return failed
}

// Print renders per-stage counters as a table.
func (r *Run) Print(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetHeader([]string{"Stage", "Attempted", "Succeeded", "Failed", "Skipped", "Duration"})

	for _, s := range r.Stages {
		table.Append([]string{
			s.Stage,
			strconv.Itoa(s.Attempted),
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Skipped),
			s.Duration().Round(time.Millisecond).String(),
		})
	}

	table.SetFooter([]string{"run " + r.ID, "", "", strconv.Itoa(r.Failed()), "", ""})
	table.Render()

	for _, s := range r.Stages {
		for _, f := range s.Failures {
			fmt.Fprintf(w, "%s: %s: %s\n", s.Stage, f.Key, f.Reason)
		}
	}
}

// Export writes the run as YAML to the given path.
func (r *Run) Export(path string) error {
	outputFile, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "unable to create output file")
	}
	defer outputFile.Close()

	encoded, err := yaml.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "failed to marshal run to yaml")
	}

	_, err = outputFile.Write(encoded)
	if err != nil {
		return errors.Wrap(err, "failed to write data to output file")
	}

	return nil
}
