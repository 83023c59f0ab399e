// Package links turns raw operator input into an ordered task list. Each line
// is scanned for the first URL-shaped substring; lines without one are skipped
// with a warning. Line numbers are 1-based and preserved for traceability.
package links

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"linkcheck/internal/domain"
)

var urlPattern = regexp.MustCompile(`https?://[^\s/$.?#].[^\s]*`)

// Parse reads candidate lines from r and returns the extracted tasks in input
// order.
func Parse(r io.Reader, logger *zap.Logger) ([]domain.LinkTask, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var tasks []domain.LinkTask
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := strings.TrimSpace(scanner.Text())
		match := urlPattern.FindString(raw)
		if match != "" {
			tasks = append(tasks, domain.LinkTask{URL: match, LineNum: lineNum, RawLine: raw})
		} else if raw != "" {
			logger.Warn("no url found in line", zap.Int("line", lineNum), zap.String("content", raw))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return tasks, nil
}

// ReadFile parses the link file at path.
func ReadFile(path string, logger *zap.Logger) ([]domain.LinkTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	tasks, err := Parse(f, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("read urls from input file", zap.Int("count", len(tasks)), zap.String("path", path))
	return tasks, nil
}
