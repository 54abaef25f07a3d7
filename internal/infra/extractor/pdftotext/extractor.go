// Package pdftotext extracts PDF text with the poppler pdftotext CLI.
package pdftotext

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bryanwahyu/formc-review/internal/domain/document"
)

// CommandFunc builds the process that writes the text of the PDF at path to
// stdout.
type CommandFunc func(ctx context.Context, path string) *exec.Cmd

type Extractor struct {
	binPath string
	command CommandFunc
	log     *zap.Logger
}

// New creates an Extractor. If binPath is empty, "pdftotext" is used.
func New(binPath string, log *zap.Logger) *Extractor {
	if binPath == "" {
		binPath = "pdftotext"
	}
	if log == nil {
		log = zap.L()
	}
	e := &Extractor{binPath: binPath, log: log}
	e.command = e.local
	return e
}

// WithCommand replaces the local pdftotext invocation, e.g. with a
// containerized one.
func (e *Extractor) WithCommand(fn CommandFunc) *Extractor {
	if fn != nil {
		e.command = fn
	}
	return e
}

func (e *Extractor) local(ctx context.Context, path string) *exec.Cmd {
	return exec.CommandContext(ctx, e.binPath, "-layout", "-enc", "UTF-8", path, "-")
}

// Extract runs pdftotext -layout on path and splits the output into pages on
// form feeds. Failures are reported in the returned document, never as empty
// text with Success set.
func (e *Extractor) Extract(ctx context.Context, path string) document.Document {
	if _, err := os.Stat(path); err != nil {
		return document.Failed(eris.Wrapf(err, "pdftotext: open %s", path))
	}

	cmd := e.command(ctx, path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		e.log.Warn("pdftotext failed", zap.String("path", path), zap.String("stderr", msg), zap.Error(err))
		return document.Failed(eris.Wrapf(err, "pdftotext failed: %s", msg))
	}

	pages := SplitPages(stdout.String())
	return document.FromPages(len(pages), pages)
}

// SplitPages splits pdftotext output on form feeds. pdftotext ends every
// page with one, so a single trailing separator does not start a new page.
func SplitPages(out string) []string {
	if out == "" {
		return nil
	}
	out = strings.TrimSuffix(out, "\f")
	return strings.Split(out, "\f")
}
