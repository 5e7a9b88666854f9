// Package pipeline processes one uploaded file: load, optional cleaning
// and charting, then a single conversion.
//
// A Pipeline owns the file's current table and records every step applied
// to it, so repeating a step is always an explicit call. Conversion ends
// the pipeline; later steps are rejected.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nconklindev/datasweep/internal/apperr"
	"github.com/nconklindev/datasweep/internal/chart"
	"github.com/nconklindev/datasweep/internal/converter"
	"github.com/nconklindev/datasweep/internal/logging"
	"github.com/nconklindev/datasweep/internal/table"
	"github.com/nconklindev/datasweep/internal/types"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

type State int

const (
	StateLoaded State = iota
	StateCleaned
	StateVisualized
	StateConverted
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateCleaned:
		return "cleaned"
	case StateVisualized:
		return "visualized"
	case StateConverted:
		return "converted"
	default:
		return "unknown"
	}
}

type Step int

const (
	StepDeduplicate Step = iota
	StepFillMissing
	StepSelectColumns
	StepVisualize
	StepConvert
)

func (s Step) String() string {
	switch s {
	case StepDeduplicate:
		return "deduplicate"
	case StepFillMissing:
		return "fill_missing"
	case StepSelectColumns:
		return "select_columns"
	case StepVisualize:
		return "visualize"
	case StepConvert:
		return "convert"
	default:
		return "unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Applied is one recorded step and the confirmation shown for it.
type Applied struct {
	Step    Step   `json:"step"`
	Message string `json:"message"`
}

type Options struct {
	// StrictDirection rejects conversions whose source format differs from
	// the format the file was loaded as.
	StrictDirection bool
}

type Pipeline struct {
	id      string
	file    types.UploadedFile
	format  types.Format
	table   *table.Table
	state   State
	applied []Applied
	opts    Options
	logger  *slog.Logger
}

// Load parses file and starts its pipeline. Unsupported extensions and
// unparsable content fail here and produce no pipeline.
func Load(ctx context.Context, file types.UploadedFile, opts Options) (*Pipeline, error) {
	id := uuid.NewString()
	logger := logging.FromContext(ctx).With("file_id", id, "file", file.Name)

	t, format, err := converter.Load(file)
	if err != nil {
		logger.Warn("load failed", "code", apperr.CodeOf(err).String(), "error", err)
		return nil, err
	}

	logger.Info("file loaded",
		"format", format.String(),
		"size", humanize.Bytes(uint64(file.Size)),
		"rows", t.Rows(),
		"columns", t.Width(),
	)

	return &Pipeline{
		id:     id,
		file:   file,
		format: format,
		table:  t,
		state:  StateLoaded,
		opts:   opts,
		logger: logger,
	}, nil
}

func (p *Pipeline) ID() string { return p.id }
func (p *Pipeline) File() types.UploadedFile { return p.file }
func (p *Pipeline) Format() types.Format { return p.format }
func (p *Pipeline) State() State { return p.state }
func (p *Pipeline) Table() *table.Table { return p.table }

// Steps returns the applied steps in order.
func (p *Pipeline) Steps() []Applied {
	return append([]Applied(nil), p.applied...)
}

// Preview returns the first n rows of the current table.
func (p *Pipeline) Preview(n int) *table.Table {
	return p.table.Head(n)
}

func (p *Pipeline) checkOpen(step Step) error {
	if p.state == StateConverted {
		return apperr.NewConflict(fmt.Sprintf("%s: %s has already been converted", step, p.file.Name))
	}
	return nil
}

func (p *Pipeline) record(step Step, next State, msg string) string {
	p.applied = append(p.applied, Applied{Step: step, Message: msg})
	p.state = next
	p.logger.Info("step applied", "step", step.String(), "rows", p.table.Rows(), "columns", p.table.Width())
	return msg
}

// Deduplicate removes rows repeating an earlier row and returns the
// confirmation message.
func (p *Pipeline) Deduplicate() (string, error) {
	if err := p.checkOpen(StepDeduplicate); err != nil {
		return "", err
	}

	t, removed := table.Deduplicate(p.table)
	p.table = t

	return p.record(StepDeduplicate, StateCleaned,
		fmt.Sprintf("Duplicates removed! (%s %s dropped)", humanize.Comma(int64(removed)), plural(removed, "row"))), nil
}

// FillMissing fills missing numeric cells with their column mean. Numeric
// columns with nothing to average are left missing and named in the
// message.
func (p *Pipeline) FillMissing() (string, error) {
	if err := p.checkOpen(StepFillMissing); err != nil {
		return "", err
	}

	t, summary := table.FillMissing(p.table)
	p.table = t

	msg := fmt.Sprintf("Missing values have been filled! (%s %s)", humanize.Comma(int64(summary.Total())), plural(summary.Total(), "cell"))
	if len(summary.Undefined) > 0 {
		msg += fmt.Sprintf("; no values to average in %s", strings.Join(summary.Undefined, ", "))
		p.logger.Debug("mean undefined", "columns", summary.Undefined)
	}
	return p.record(StepFillMissing, StateCleaned, msg), nil
}

// SelectColumns keeps only the named columns, in table order.
func (p *Pipeline) SelectColumns(names []string) (string, error) {
	if err := p.checkOpen(StepSelectColumns); err != nil {
		return "", err
	}

	t, err := table.SelectColumns(p.table, names)
	if err != nil {
		return "", err
	}
	p.table = t

	return p.record(StepSelectColumns, StateCleaned,
		fmt.Sprintf("Keeping %d of the columns", t.Width())), nil
}

// Visualize charts the first two numeric columns. The table is unchanged.
func (p *Pipeline) Visualize() (chart.Chart, error) {
	if err := p.checkOpen(StepVisualize); err != nil {
		return chart.Chart{}, err
	}

	c := chart.FromTable(p.table)
	names := make([]string, len(c.Series))
	for i, s := range c.Series {
		names[i] = s.Name
	}

	msg := "No numeric columns to chart"
	if len(names) > 0 {
		msg = "Charted " + strings.Join(names, ", ")
	}
	p.record(StepVisualize, StateVisualized, msg)
	return c, nil
}

// DefaultConversion is the direction matching the loaded format.
func (p *Pipeline) DefaultConversion() types.Conversion {
	if p.format == types.FormatXLSX {
		return types.ExcelToCSV
	}
	return types.CSVToExcel
}

// Convert serializes the current table. It is the last step; the pipeline
// accepts nothing afterwards.
func (p *Pipeline) Convert(c types.Conversion) (*types.OutputArtifact, *types.ConversionResult, error) {
	if err := p.checkOpen(StepConvert); err != nil {
		return nil, nil, err
	}
	if p.opts.StrictDirection && c.Source() != p.format {
		return nil, nil, apperr.NewInvalidInput(fmt.Sprintf("%s is a %s file; %q does not apply", p.file.Name, p.format, c.String()))
	}

	artifact, result, err := converter.Convert(p.table, p.file.Name, c)
	if err != nil {
		p.logger.Error("conversion failed", "conversion", c.String(), "error", err)
		return nil, nil, err
	}

	p.record(StepConvert, StateConverted, fmt.Sprintf("%s has been converted!", artifact.FileName))
	p.logger.Info("file converted", "output", artifact.FileName, "bytes", artifact.Data.Size())
	return artifact, result, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
