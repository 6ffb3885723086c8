package convert

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"office_word_mcp_server/pkg/circuitbreaker"
	"office_word_mcp_server/pkg/tools/word/ooxml"
)

// fakeRunner records calls and lets each command behave as scripted.
type fakeRunner struct {
	calls   []string
	perform map[string]func(args []string) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, name)
	if fn, ok := f.perform[name]; ok {
		return fn(args)
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

func newTestConverter(run *fakeRunner, goos string) *PDFConverter {
	c := NewPDFConverter(Options{Timeout: time.Second}, nil)
	c.run = run
	c.goos = goos
	return c
}

// writeOutdirPDF imitates LibreOffice: it writes <base>.pdf into --outdir.
func writeOutdirPDF(args []string) (string, error) {
	outDir := args[4]
	in := args[5]
	name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".pdf"
	return "", os.WriteFile(filepath.Join(outDir, name), []byte("%PDF-1.4 fake"), 0o644)
}

func TestCandidates(t *testing.T) {
	c := newTestConverter(&fakeRunner{}, "linux")
	assert.Equal(t, []string{"libreoffice", "soffice"}, c.LibreOfficeCandidates())
	c.goos = "darwin"
	assert.Equal(t, []string{"soffice", "/Applications/LibreOffice.app/Contents/MacOS/soffice"}, c.LibreOfficeCandidates())
	c.goos = "windows"
	c.opts.LibreOfficePaths = []string{"/opt/lo/soffice"}
	assert.Equal(t, []string{"/opt/lo/soffice"}, c.LibreOfficeCandidates())
}

func TestConvertFallsThroughCandidates(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "report.docx")
	output := filepath.Join(dir, "out", "final.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(output), 0o755))

	run := &fakeRunner{perform: map[string]func([]string) (string, error){
		"soffice": writeOutdirPDF,
	}}
	res, err := newTestConverter(run, "linux").Convert(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, "soffice", res.Command)
	assert.Equal(t, output, res.Output)
	assert.Equal(t, []string{"libreoffice", "soffice"}, run.calls)
	assert.FileExists(t, output)
	assert.NoFileExists(t, filepath.Join(dir, "out", "report.pdf"), "the produced file is moved")
}

func TestConvertDocx2PDFFallback(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "a.pdf")
	run := &fakeRunner{perform: map[string]func([]string) (string, error){
		"libreoffice": func([]string) (string, error) { return "", nil },
		"docx2pdf": func(args []string) (string, error) {
			return "", os.WriteFile(args[1], []byte("%PDF"), 0o644)
		},
	}}
	res, err := newTestConverter(run, "linux").Convert(context.Background(), filepath.Join(dir, "a.docx"), output)
	require.NoError(t, err)
	assert.Equal(t, "docx2pdf", res.Command)
}

func TestConvertFailureSummary(t *testing.T) {
	dir := t.TempDir()
	run := &fakeRunner{perform: map[string]func([]string) (string, error){
		"libreoffice": func([]string) (string, error) {
			return "source file could not be loaded", exec.Command("false").Run()
		},
	}}
	_, err := newTestConverter(run, "linux").Convert(context.Background(), filepath.Join(dir, "a.docx"), filepath.Join(dir, "a.pdf"))
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Len(t, failure.Errors, 3)
	assert.Equal(t, "libreoffice failed. Stderr: source file could not be loaded", failure.Errors[0])
	assert.Equal(t, "Command 'soffice' not found.", failure.Errors[1])
	assert.Equal(t, "Command 'docx2pdf' not found.", failure.Errors[2])
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to convert document to PDF using all available methods.\nRecorded errors: "))
}

func TestConvertBehindBreaker(t *testing.T) {
	dir := t.TempDir()
	cb := circuitbreaker.New(1, 1, time.Hour)
	c := NewPDFConverter(Options{Timeout: time.Second}, cb)
	run := &fakeRunner{}
	c.run = run
	c.goos = "linux"

	_, err := c.Convert(context.Background(), filepath.Join(dir, "a.docx"), filepath.Join(dir, "a.pdf"))
	require.Error(t, err)
	calls := len(run.calls)
	_, err = c.Convert(context.Background(), filepath.Join(dir, "a.docx"), filepath.Join(dir, "a.pdf"))
	require.True(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	assert.Equal(t, calls, len(run.calls), "no engine runs while the circuit is open")
}

func TestConvertWithLibreOffice(t *testing.T) {
	var found bool
	for _, name := range []string{"libreoffice", "soffice"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
		}
	}
	if !found {
		t.Skip("LibreOffice is not installed")
	}
	dir := t.TempDir()
	doc, err := ooxml.New()
	require.NoError(t, err)
	_, err = doc.AddParagraph("Hello PDF", "")
	require.NoError(t, err)
	data, err := doc.Bytes()
	require.NoError(t, err)
	input := filepath.Join(dir, "hello.docx")
	require.NoError(t, os.WriteFile(input, data, 0o644))

	c := NewPDFConverter(Options{Timeout: 2 * time.Minute, VerifyPDF: true}, nil)
	res, err := c.Convert(context.Background(), input, filepath.Join(dir, "hello.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown("<html><body><h1>Title</h1><p>Some <strong>bold</strong> text</p>" +
		"<ol><li>one</li><li>two</li></ol>" +
		"<table><tr><th>a</th><th>b</th></tr><tr><td>1</td><td>2</td></tr></table></body></html>")
	require.NoError(t, err)
	assert.Contains(t, md, "# Title")
	assert.Contains(t, md, "Some **bold** text")
	assert.Contains(t, md, "1. one")
	assert.Contains(t, md, "| a | b |")
}
