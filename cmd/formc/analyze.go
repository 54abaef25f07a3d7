package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/formc-review/internal/app"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
	"github.com/bryanwahyu/formc-review/internal/domain/document"
	domain "github.com/bryanwahyu/formc-review/internal/domain/reports"
)

var (
	analyzeIssuer      string
	analyzeOut         string
	analyzeConcurrency int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze --issuer NAME file.pdf [file.pdf...]",
	Short: "Review one or more Form C PDFs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx, cfg, zap.L())
		if err != nil {
			return err
		}
		defer a.Close()

		concurrency := analyzeConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Analysis.MaxConcurrent
		}
		return analyzeFiles(ctx, a.Reviews, analyzeIssuer, args, analyzeOut, concurrency, cmd.OutOrStdout())
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeIssuer, "issuer", "", "issuer name (required)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "directory for <file>.json reports (default stdout)")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 0, "files reviewed in parallel (default analysis.max_concurrent)")
	_ = analyzeCmd.MarkFlagRequired("issuer")
	rootCmd.AddCommand(analyzeCmd)
}

// fileReviewer is the part of the review service the CLI drives.
type fileReviewer interface {
	ReviewFile(ctx context.Context, issuer, fileName, path string) (*domain.Report, error)
}

// analyzeFiles reviews every path, writing each report as it completes. A
// failing file does not stop the others; the returned error counts failures.
func analyzeFiles(ctx context.Context, rev fileReviewer, issuer string, paths []string, outDir string, concurrency int, stdout io.Writer) error {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return eris.Wrap(compliance.ErrInvalidInput, "--issuer is required")
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
	}
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu                sync.Mutex
		succeeded, failed atomic.Int64
	)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			log := zap.L().With(zap.String("file", path))

			if err := checkPDF(path); err != nil {
				failed.Add(1)
				log.Error("skipping file", zap.Error(err))
				return nil
			}

			report, err := rev.ReviewFile(gctx, issuer, filepath.Base(path), path)
			if report == nil {
				failed.Add(1)
				log.Error("review failed", zap.Error(err))
				return nil
			}
			if err != nil {
				failed.Add(1)
				log.Error("analysis failed", zap.Error(err))
			} else {
				succeeded.Add(1)
				log.Info("review complete",
					zap.String("report_id", string(report.ID)),
					zap.Int("amendments", len(report.Structured.Amendments)),
				)
			}

			if outDir != "" {
				return writeReportFile(outputPath(outDir, path), report)
			}
			mu.Lock()
			defer mu.Unlock()
			return writeReport(stdout, report)
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "analyze")
	}

	zap.L().Info("analyze complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d reviews failed", n, len(paths))
	}
	return nil
}

func checkPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrap(err, "open")
	}
	defer f.Close()

	head := make([]byte, 5)
	n, _ := io.ReadFull(f, head)
	if !document.IsPDF(head[:n]) {
		return eris.Wrapf(compliance.ErrInvalidInput, "%s is not a PDF", filepath.Base(path))
	}
	return nil
}

// outputPath maps dir/in/formc.pdf to outDir/formc.json.
func outputPath(outDir, path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(outDir, base+".json")
}

func writeReport(w io.Writer, report *domain.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeReportFile(path string, report *domain.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create report file")
	}
	if err := writeReport(f, report); err != nil {
		f.Close()
		return eris.Wrap(err, "write report file")
	}
	return f.Close()
}
