package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/datasweep/internal/chart"
	"github.com/nconklindev/datasweep/internal/converter"
	"github.com/nconklindev/datasweep/internal/pipeline"
	"github.com/nconklindev/datasweep/internal/table"
	"github.com/nconklindev/datasweep/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

type state int

const (
	stateFilePicker state = iota
	stateLoading
	stateFile
	stateColumnSelection
	stateChart
	stateComplete
	stateError
)

// Options carries the configuration the interaction layer needs.
type Options struct {
	PreviewRows     int
	OutputDir       string
	StrictDirection bool
	ChartWidth      int
	ChartMaxRows    int
}

type Model struct {
	state      state
	opts       Options
	filepicker filepicker.Model
	progress   progress.Model

	// queue holds file paths in upload order; current indexes the file
	// being worked on.
	queue     []string
	current   int
	processed int

	pipeline     *pipeline.Pipeline
	conversion   types.Conversion
	status       string
	statusErr    bool
	cursor       int
	selectedCols map[int]bool
	chartView    string

	result    *types.ConversionResult
	savedPath string
	err       error
	errFile   string

	width  int
	height int
}

type fileLoadedMsg struct {
	path     string
	pipeline *pipeline.Pipeline
	err      error
}

type conversionCompleteMsg struct {
	result *types.ConversionResult
	path   string
	err    error
}

// InitialModel starts on the given files in order, or on the file picker
// when there are none.
func InitialModel(paths []string, opts Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv", ".xlsx"}
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(colorAccent)
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(colorWarm)
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(colorWarm)
	fp.Styles.File = UnselectedStyle
	fp.Styles.Permission = SubtitleStyle
	fp.Styles.FileSize = SubtitleStyle
	fp.Styles.Selected = SelectedStyle

	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	m := Model{
		state:        stateFilePicker,
		opts:         opts,
		filepicker:   fp,
		progress:     progress.New(progress.WithGradient(string(colorAccent), "#FF9F5A")),
		queue:        append([]string(nil), paths...),
		selectedCols: make(map[int]bool),
	}
	if len(m.queue) > 0 {
		m.state = stateLoading
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.state == stateLoading {
		return m.loadFile(m.queue[m.current])
	}
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		height := msg.Height - 14
		if height < 5 {
			height = 5
		}
		m.filepicker.SetHeight(height)

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker, stateLoading:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case stateFile:
			return m.updateFile(msg)

		case stateColumnSelection:
			return m.updateColumnSelection(msg)

		case stateChart:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "esc", "enter", "v":
				m.state = stateFile
			}
			return m, nil

		case stateComplete, stateError:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "enter", "n", "esc":
				return m.nextFile()
			}
			return m, nil
		}

	case fileLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.errFile = filepath.Base(msg.path)
			m.state = stateError
			return m, nil
		}
		m.pipeline = msg.pipeline
		m.conversion = msg.pipeline.DefaultConversion()
		m.status = ""
		m.statusErr = false
		m.result = nil
		m.savedPath = ""
		m.state = stateFile
		return m, nil

	case conversionCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.errFile = m.pipeline.File().Name
			m.state = stateError
			return m, nil
		}
		m.result = msg.result
		m.savedPath = msg.path
		m.state = stateComplete
		return m, nil
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.queue = append(m.queue, path)
			m.current = len(m.queue) - 1
			m.state = stateLoading
			return m, m.loadFile(path)
		}

		return m, cmd
	}

	return m, nil
}

func (m Model) updateFile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.pipeline

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "d":
		m.setStatus(p.Deduplicate())

	case "f":
		m.setStatus(p.FillMissing())

	case "c":
		m.selectedCols = make(map[int]bool)
		for i := range p.Table().Names() {
			m.selectedCols[i] = true
		}
		m.cursor = 0
		m.state = stateColumnSelection

	case "v":
		c, err := p.Visualize()
		if err != nil {
			m.setStatus("", err)
			return m, nil
		}
		m.chartView = chart.Render(c, chart.Options{Width: m.opts.ChartWidth, MaxRows: m.opts.ChartMaxRows})
		m.state = stateChart

	case "tab", "t", "left", "right":
		if m.conversion == types.CSVToExcel {
			m.conversion = types.ExcelToCSV
		} else {
			m.conversion = types.CSVToExcel
		}

	case "enter":
		artifact, result, err := p.Convert(m.conversion)
		if err != nil {
			m.setStatus("", err)
			return m, nil
		}
		m.status = ""
		return m, m.saveArtifact(artifact, result)

	case "n", "s":
		return m.nextFile()
	}

	return m, nil
}

func (m Model) updateColumnSelection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	names := m.pipeline.Table().Names()

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(names)-1 {
			m.cursor++
		}
	case " ":
		m.selectedCols[m.cursor] = !m.selectedCols[m.cursor]
	case "a":
		for i := range names {
			m.selectedCols[i] = true
		}
	case "x":
		for i := range names {
			m.selectedCols[i] = false
		}
	case "esc":
		m.state = stateFile
	case "enter":
		var keep []string
		for i, name := range names {
			if m.selectedCols[i] {
				keep = append(keep, name)
			}
		}
		m.setStatus(m.pipeline.SelectColumns(keep))
		m.state = stateFile
	}

	return m, nil
}

func (m *Model) setStatus(msg string, err error) {
	if err != nil {
		m.status = err.Error()
		m.statusErr = true
		return
	}
	m.status = msg
	m.statusErr = false
}

// nextFile moves on to the next queued file, or back to the picker when
// the queue is exhausted.
func (m Model) nextFile() (tea.Model, tea.Cmd) {
	m.processed++
	m.pipeline = nil
	m.err = nil
	m.current++

	if m.current < len(m.queue) {
		m.state = stateLoading
		return m, m.loadFile(m.queue[m.current])
	}

	m.current = len(m.queue)
	m.state = stateFilePicker
	return m, m.filepicker.Init()
}

func (m Model) loadFile(path string) tea.Cmd {
	opts := pipeline.Options{StrictDirection: m.opts.StrictDirection}
	return func() tea.Msg {
		content, err := os.ReadFile(path)
		if err != nil {
			return fileLoadedMsg{path: path, err: err}
		}

		file := types.UploadedFile{
			Name:    filepath.Base(path),
			Size:    int64(len(content)),
			Content: content,
		}
		p, err := pipeline.Load(context.Background(), file, opts)
		return fileLoadedMsg{path: path, pipeline: p, err: err}
	}
}

func (m Model) saveArtifact(artifact *types.OutputArtifact, result *types.ConversionResult) tea.Cmd {
	dir := m.opts.OutputDir
	return func() tea.Msg {
		path, err := converter.Save(dir, artifact)
		return conversionCompleteMsg{result: result, path: path, err: err}
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateLoading:
		return m.viewLoading()
	case stateFile:
		return m.viewFile()
	case stateColumnSelection:
		return m.viewColumnSelection()
	case stateChart:
		return m.viewChart()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	title := TitleStyle.Render("🧹 Data Sweeper")

	authorSpan := SubtitleStyle.Render("by Nick Conklin • ")
	githubSpan := LinkStyle.Render("https://github.com/nconklindev/datasweep")
	byLine := lipgloss.JoinHorizontal(lipgloss.Top, authorSpan, githubSpan)

	s.WriteString(lipgloss.JoinVertical(lipgloss.Left, title, byLine))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Transform your files between CSV and Excel formats with built-in data cleaning and visualization"))
	s.WriteString("\n")
	if m.processed > 0 && m.current >= len(m.queue) {
		s.WriteString(SuccessStyle.Render("🎉 All files processed!"))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select a CSV or XLSX file"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewLoading() string {
	name := ""
	if m.current < len(m.queue) {
		name = filepath.Base(m.queue[m.current])
	}
	return BoxStyle.Render(TitleStyle.Render("🧹 Loading " + name + "..."))
}

func (m Model) batchHeader() string {
	total := len(m.queue)
	if total == 0 {
		return ""
	}
	label := SubtitleStyle.Render(fmt.Sprintf("File %d of %d", m.current+1, total))
	return label + "\n" + m.progress.ViewAs(float64(m.processed)/float64(total))
}

func (m Model) viewFile() string {
	var s strings.Builder
	p := m.pipeline
	file := p.File()
	t := p.Table()

	s.WriteString(TitleStyle.Render("🧹 " + file.Name))
	s.WriteString("\n")
	s.WriteString(m.batchHeader())
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("File Name: %s\n", file.Name))
	s.WriteString(fmt.Sprintf("File Size: %.2f KB\n", file.SizeKB()))
	s.WriteString(fmt.Sprintf("Shape: %s rows × %d columns\n", humanize.Comma(int64(t.Rows())), t.Width()))
	s.WriteString("\n")

	s.WriteString(SubtitleStyle.Render("Preview the Head of the Dataframe"))
	s.WriteString("\n")
	s.WriteString(renderPreview(p.Preview(m.opts.PreviewRows)))
	s.WriteString("\n")

	if steps := p.Steps(); len(steps) > 0 {
		names := make([]string, len(steps))
		for i, st := range steps {
			names[i] = st.Step.String()
		}
		s.WriteString(StepStyle.Render("Applied: " + strings.Join(names, " → ")))
		s.WriteString("\n")
	}

	if m.status != "" {
		if m.statusErr {
			s.WriteString(ErrorStyle.Render("✗ " + m.status))
		} else {
			s.WriteString(SuccessStyle.Render("✓ " + m.status))
		}
		s.WriteString("\n")
	}

	s.WriteString("\nConvert to: ")
	for i, c := range types.Conversions {
		if i > 0 {
			s.WriteString("  ")
		}
		if c == m.conversion {
			s.WriteString(SelectedStyle.Render("(•) " + c.String()))
		} else {
			s.WriteString(UnselectedStyle.Render("( ) " + c.String()))
		}
	}
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("d: remove duplicates • f: fill missing • c: columns • v: chart • tab: conversion • enter: convert • n: skip • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewColumnSelection() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📌 Select Columns to Convert"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s", m.pipeline.File().Name)))
	s.WriteString("\n\n")

	cols := m.pipeline.Table().Columns()
	if len(cols) == 0 {
		s.WriteString(UnselectedStyle.Render("(no columns)"))
		s.WriteString("\n")
	}

	for i, col := range cols {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}

		checked := " "
		if m.selectedCols[i] {
			checked = "✓"
		}

		line := fmt.Sprintf("%s [%s] %s", cursor, checked, col.Name)

		if m.cursor == i {
			line = SelectedStyle.Render(line)
		} else if m.selectedCols[i] {
			line = CheckedStyle.Render(line)
		} else {
			line = UnselectedStyle.Render(line)
		}
		kind := kindStyle(col.Kind == table.KindNumeric).Render(" (" + col.Kind.String() + ")")

		s.WriteString(line + kind)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("↑/↓: navigate • space: toggle • a: all • x: none • enter: apply • esc: cancel • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewChart() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📊 Data Visualization"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s", m.pipeline.File().Name)))
	s.WriteString("\n\n")
	s.WriteString(m.chartView)
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("esc: back • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Conversion Complete!"))
	s.WriteString("\n\n")

	maxPathLen := m.width - 20
	if maxPathLen < 30 {
		maxPathLen = 30
	}

	outputPath := m.savedPath
	if len(outputPath) > maxPathLen {
		outputPath = "..." + outputPath[len(outputPath)-maxPathLen+3:]
	}

	s.WriteString(fmt.Sprintf("Input:  %s\n", m.result.InputFile))
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s\n", m.result.OutputFile)))
	s.WriteString(fmt.Sprintf("Saved:  %s\n", outputPath))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Columns written: %s\n", strings.Join(m.result.Columns, ", ")))
	s.WriteString(fmt.Sprintf("Rows written: %s\n", humanize.Comma(int64(m.result.RowsWritten))))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render(m.continueHint()))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	if m.errFile != "" {
		s.WriteString(ErrorStyle.Render(" in " + m.errFile))
	}
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render(m.continueHint()))

	return BoxStyle.Render(s.String())
}

func (m Model) continueHint() string {
	if m.current+1 < len(m.queue) {
		return "enter: next file • q: quit"
	}
	return "enter: open another file • q: quit"
}
