// Package docker runs the text extraction tool inside a throwaway container
// for hosts without poppler installed.
package docker

import (
	"context"
	"os/exec"
	"path/filepath"
)

// DefaultImage ships pdftotext on its PATH.
const DefaultImage = "minidocks/poppler:latest"

type Runner struct {
	// Binary is the docker CLI, "docker" when empty.
	Binary string
	Image  string
}

func NewRunner(image string) *Runner {
	if image == "" {
		image = DefaultImage
	}
	return &Runner{Binary: "docker", Image: image}
}

// Command returns a docker invocation that mounts the PDF's directory read
// only, with networking disabled, and streams pdftotext output to stdout.
func (r *Runner) Command(ctx context.Context, path string) *exec.Cmd {
	bin := r.Binary
	if bin == "" {
		bin = "docker"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return exec.CommandContext(ctx, bin, r.Args(abs)...)
}

// Args is the docker argument list for an absolute PDF path.
func (r *Runner) Args(absPath string) []string {
	return []string{
		"run", "--rm",
		"--network", "none",
		"-v", filepath.Dir(absPath) + ":/in:ro",
		r.Image,
		"pdftotext", "-layout", "-enc", "UTF-8",
		"/in/" + filepath.Base(absPath),
		"-",
	}
}
