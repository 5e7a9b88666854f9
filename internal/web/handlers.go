package web

import (
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/nconklindev/datasweep/internal/apperr"
	"github.com/nconklindev/datasweep/internal/chart"
	"github.com/nconklindev/datasweep/internal/logging"
	"github.com/nconklindev/datasweep/internal/pipeline"
	"github.com/nconklindev/datasweep/internal/types"
)

// cleaning holds the optional per-request steps, applied in field order.
type cleaning struct {
	dedupe  bool
	fill    bool
	columns []string
	chart   bool
}

type columnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type fileResponse struct {
	ID       string             `json:"id,omitempty"`
	Name     string             `json:"name"`
	SizeKB   float64            `json:"size_kb"`
	Format   string             `json:"format,omitempty"`
	Rows     int                `json:"rows"`
	Columns  []columnInfo       `json:"columns"`
	Preview  [][]string         `json:"preview"`
	Steps    []pipeline.Applied `json:"steps"`
	Messages []string           `json:"messages"`
	Chart    *chart.Chart       `json:"chart,omitempty"`
	Error    *errorBody         `json:"error,omitempty"`
}

type filesResponse struct {
	Files []fileResponse `json:"files"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFiles loads every uploaded file, applies the requested cleaning
// and reports each file separately. A failing file does not fail the
// request.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		respondError(w, r, err)
		return
	}

	opts, err := parseCleaning(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(w, r, apperr.NewInvalidInput("no files provided"))
		return
	}

	resp := filesResponse{Files: make([]fileResponse, 0, len(headers))}
	for _, fh := range headers {
		resp.Files = append(resp.Files, s.processFile(r, fh, opts))
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) processFile(r *http.Request, fh *multipart.FileHeader, opts cleaning) fileResponse {
	out := fileResponse{
		Name:     fh.Filename,
		SizeKB:   roundKB(fh.Size),
		Columns:  []columnInfo{},
		Preview:  [][]string{},
		Steps:    []pipeline.Applied{},
		Messages: []string{},
	}

	file, err := readUpload(fh)
	if err != nil {
		out.Error = newErrorBody(err)
		return out
	}

	p, err := pipeline.Load(r.Context(), file, s.pipelineOpt)
	if err != nil {
		out.Error = newErrorBody(err)
		return out
	}
	out.ID = p.ID()
	out.Format = p.Format().String()

	messages, c, err := apply(p, opts)
	out.Messages = append(out.Messages, messages...)
	if err != nil {
		out.Error = newErrorBody(err)
	}
	out.Chart = c

	t := p.Table()
	out.Rows = t.Rows()
	for _, col := range t.Columns() {
		out.Columns = append(out.Columns, columnInfo{Name: col.Name, Kind: col.Kind.String()})
	}
	out.Preview = append(out.Preview, p.Preview(s.previewRows).Records()[1:]...)
	out.Steps = append(out.Steps, p.Steps()...)

	return out
}

// handleConvert loads one file, applies the requested cleaning and
// returns the converted file as the response body.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		respondError(w, r, err)
		return
	}

	opts, err := parseCleaning(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	conversion, ok := types.ParseConversion(r.FormValue("conversion"))
	if !ok {
		respondError(w, r, apperr.NewInvalidInput(fmt.Sprintf("unknown conversion %q", r.FormValue("conversion"))))
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) != 1 {
		respondError(w, r, apperr.NewInvalidInput("exactly one file is required"))
		return
	}

	file, err := readUpload(headers[0])
	if err != nil {
		respondError(w, r, err)
		return
	}

	p, err := pipeline.Load(r.Context(), file, s.pipelineOpt)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// The chart is not part of a download.
	opts.chart = false
	if _, _, err := apply(p, opts); err != nil {
		respondError(w, r, err)
		return
	}

	artifact, result, err := p.Convert(conversion)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.FileName}))
	w.Header().Set("Content-Length", strconv.FormatInt(artifact.Data.Size(), 10))
	w.Header().Set("X-Rows-Written", strconv.Itoa(result.RowsWritten))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, artifact.Data); err != nil {
		logging.FromContext(r.Context()).Warn("write artifact", "error", err)
	}
}

// apply runs the requested steps in a fixed order: deduplicate, fill,
// select columns, chart. It stops at the first failing step.
func apply(p *pipeline.Pipeline, opts cleaning) ([]string, *chart.Chart, error) {
	var messages []string

	if opts.dedupe {
		msg, err := p.Deduplicate()
		if err != nil {
			return messages, nil, err
		}
		messages = append(messages, msg)
	}
	if opts.fill {
		msg, err := p.FillMissing()
		if err != nil {
			return messages, nil, err
		}
		messages = append(messages, msg)
	}
	if opts.columns != nil {
		msg, err := p.SelectColumns(opts.columns)
		if err != nil {
			return messages, nil, err
		}
		messages = append(messages, msg)
	}
	if opts.chart {
		c, err := p.Visualize()
		if err != nil {
			return messages, nil, err
		}
		return messages, &c, nil
	}

	return messages, nil, nil
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.NewInvalidInput(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		}
		return apperr.NewInvalidInput("invalid multipart form")
	}
	return nil
}

// parseCleaning reads the dedupe, fill and chart flags and the repeated
// columns field. An absent columns field keeps every column; a single
// empty value selects none.
func parseCleaning(r *http.Request) (cleaning, error) {
	var opts cleaning

	flags := []struct {
		name string
		dst  *bool
	}{
		{"dedupe", &opts.dedupe},
		{"fill", &opts.fill},
		{"chart", &opts.chart},
	}
	for _, f := range flags {
		v := r.FormValue(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperr.NewInvalidInput(fmt.Sprintf("%s: invalid boolean %q", f.name, v))
		}
		*f.dst = b
	}

	if values, ok := r.MultipartForm.Value["columns"]; ok {
		opts.columns = []string{}
		for _, v := range values {
			if v != "" {
				opts.columns = append(opts.columns, v)
			}
		}
	}

	return opts, nil
}

func readUpload(fh *multipart.FileHeader) (types.UploadedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return types.UploadedFile{}, apperr.NewInternal(err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return types.UploadedFile{}, apperr.NewInternal(err)
	}

	return types.UploadedFile{
		Name:    fh.Filename,
		Size:    int64(len(content)),
		Content: content,
	}, nil
}

func roundKB(size int64) float64 {
	return math.Round(float64(size)/1024*100) / 100
}
