// Package convert turns documents into PDF through external engines and
// into Markdown through an HTML rendering.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"office_word_mcp_server/pkg/circuitbreaker"
)

// Runner executes an external command and returns its standard error.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return strings.TrimSpace(stderr.String()), err
}

// Options configure a PDFConverter.
type Options struct {
	// Timeout bounds each external command.
	Timeout time.Duration
	// LibreOfficePaths are tried before the platform defaults.
	LibreOfficePaths []string
	// Docx2PDFPath is the docx2pdf executable used as the last resort.
	Docx2PDFPath string
	// VerifyPDF opens the result and counts its pages.
	VerifyPDF bool
	// Runner executes the engines. Nil runs them with os/exec.
	Runner Runner
}

// PDFConverter converts documents with LibreOffice or docx2pdf.
type PDFConverter struct {
	opts    Options
	breaker *circuitbreaker.Breaker
	run     Runner
	goos    string
}

// NewPDFConverter builds a converter. breaker may be nil.
func NewPDFConverter(opts Options, breaker *circuitbreaker.Breaker) *PDFConverter {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Docx2PDFPath == "" {
		opts.Docx2PDFPath = "docx2pdf"
	}
	var run Runner = execRunner{}
	if opts.Runner != nil {
		run = opts.Runner
	}
	return &PDFConverter{opts: opts, breaker: breaker, run: run, goos: runtime.GOOS}
}

// Result describes a successful conversion.
type Result struct {
	// Command is the engine that produced the file.
	Command string
	Output  string
	// Pages is set when the PDF was verified.
	Pages int
}

// Failure lists why every engine failed.
type Failure struct {
	Errors []string
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString("Failed to convert document to PDF using all available methods.\n")
	b.WriteString("Recorded errors: " + strings.Join(f.Errors, "; ") + "\n")
	b.WriteString("To convert documents to PDF, please install either:\n")
	b.WriteString("1. LibreOffice (recommended for Linux/macOS)\n")
	b.WriteString("2. Microsoft Word (required for docx2pdf on Windows/macOS)")
	return b.String()
}

// LibreOfficeCandidates lists the executables tried on goos, configured
// paths first.
func (c *PDFConverter) LibreOfficeCandidates() []string {
	out := append([]string{}, c.opts.LibreOfficePaths...)
	switch c.goos {
	case "darwin":
		out = append(out, "soffice", "/Applications/LibreOffice.app/Contents/MacOS/soffice")
	case "windows":
	default:
		out = append(out, "libreoffice", "soffice")
	}
	return out
}

// Convert writes input as a PDF to output. The output directory must exist.
// All attempts together count as one call of the circuit breaker.
func (c *PDFConverter) Convert(ctx context.Context, input, output string) (Result, error) {
	attempt := func() (Result, error) { return c.convert(ctx, input, output) }
	if c.breaker == nil {
		return attempt()
	}
	return circuitbreaker.Execute(c.breaker, attempt)
}

func (c *PDFConverter) convert(ctx context.Context, input, output string) (Result, error) {
	var errs []string
	outDir := filepath.Dir(output)
	created := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))+".pdf")

	for _, name := range c.LibreOfficeCandidates() {
		stderr, err := c.runWithTimeout(ctx, name, "--headless", "--convert-to", "pdf", "--outdir", outDir, input)
		if err != nil {
			errs = append(errs, describeRunError(name, stderr, err))
			if ctx.Err() != nil {
				return Result{}, &Failure{Errors: errs}
			}
			continue
		}
		if !fileExists(created) {
			errs = append(errs, fmt.Sprintf("%s returned success code, but output file '%s' was not found.", name, created))
			continue
		}
		if created != output {
			if err := os.Rename(created, output); err != nil {
				errs = append(errs, fmt.Sprintf("%s output could not be moved to %s: %v", name, output, err))
				continue
			}
		}
		res, err := c.finish(name, output)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		return res, nil
	}

	stderr, err := c.runWithTimeout(ctx, c.opts.Docx2PDFPath, input, output)
	switch {
	case err != nil:
		errs = append(errs, describeRunError("docx2pdf", stderr, err))
	case !fileExists(output):
		errs = append(errs, "docx2pdf fallback was executed but failed to create a valid output file.")
	default:
		res, err := c.finish("docx2pdf", output)
		if err == nil {
			return res, nil
		}
		errs = append(errs, err.Error())
	}
	return Result{}, &Failure{Errors: errs}
}

func (c *PDFConverter) runWithTimeout(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	stderr, err := c.run.Run(ctx, name, args...)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stderr, fmt.Errorf("timed out after %s", c.opts.Timeout)
	}
	return stderr, err
}

func (c *PDFConverter) finish(name, output string) (Result, error) {
	res := Result{Command: name, Output: output}
	if !c.opts.VerifyPDF {
		return res, nil
	}
	pages, err := CountPages(output)
	if err != nil {
		return Result{}, fmt.Errorf("%s produced an unreadable PDF: %v", name, err)
	}
	res.Pages = pages
	return res, nil
}

func describeRunError(name, stderr string, err error) string {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Sprintf("Command '%s' not found.", name)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("%s failed. Stderr: %s", name, stderr)
	}
	return fmt.Sprintf("An error occurred with %s: %v", name, err)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// CountPages opens a PDF and returns its page count.
func CountPages(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n := r.NumPage()
	if n == 0 {
		return 0, fmt.Errorf("no pages")
	}
	return n, nil
}
