// Package report serializes run results into the operator-facing artifacts:
// a working-links summary, a bare-URL quick-copy list, and a detailed JSON
// audit of every result.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkcheck/internal/domain"
)

// OutputPaths names the artifacts one run produced. Empty fields mean the
// artifact had nothing to hold and was not written.
type OutputPaths struct {
	WorkingFile string `json:"working_file,omitempty"`
	QuickFile   string `json:"quick_file,omitempty"`
	JSONFile    string `json:"json_file,omitempty"`
}

// Writer persists results once, after the run loop exits. Filenames carry a
// timestamp so repeated runs never collide.
type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// Write serializes all results. The working and quick-copy files exist only
// when at least one WORKING result does; the JSON report whenever any result
// does.
func (w *Writer) Write(working, nonWorking []domain.LinkResult) (*OutputPaths, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	stem := fmt.Sprintf("linkcheck_results_%s", w.now().Format("20060102_150405"))
	paths := &OutputPaths{}

	if len(working) > 0 {
		workingPath := filepath.Join(w.dir, stem+"_working.txt")
		var summary strings.Builder
		var quick strings.Builder
		for _, r := range working {
			url := r.FinalURL
			if url == "" {
				url = r.Link
			}
			fmt.Fprintf(&summary, "L%d | %s | Conf: %s | URL: %s | Details: %s\n",
				r.LineNum, r.Status, r.Confidence, url, r.ResultDetails)
			fmt.Fprintf(&quick, "%s\n", url)
		}
		if err := os.WriteFile(workingPath, []byte(summary.String()), 0o644); err != nil {
			return nil, fmt.Errorf("write working file: %w", err)
		}
		paths.WorkingFile = workingPath

		quickPath := filepath.Join(w.dir, stem+"_quick_copy.txt")
		if err := os.WriteFile(quickPath, []byte(quick.String()), 0o644); err != nil {
			return nil, fmt.Errorf("write quick copy file: %w", err)
		}
		paths.QuickFile = quickPath
		w.logger.Info("saved working links", zap.Int("count", len(working)), zap.String("path", workingPath))
	}

	all := make([]domain.LinkResult, 0, len(working)+len(nonWorking))
	all = append(all, working...)
	all = append(all, nonWorking...)
	if len(all) > 0 {
		jsonPath := filepath.Join(w.dir, stem+"_detailed.json")
		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal detailed report: %w", err)
		}
		if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("write detailed report: %w", err)
		}
		paths.JSONFile = jsonPath
		w.logger.Info("saved detailed report", zap.Int("entries", len(all)), zap.String("path", jsonPath))
	}

	return paths, nil
}
