package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkcheck/internal/accounts"
	"linkcheck/internal/config"
	"linkcheck/internal/domain"
	"linkcheck/internal/governor"
	"linkcheck/internal/monitoring"
	"linkcheck/internal/report"
	"linkcheck/internal/session"
)

const testLoginURL = "https://www.linkedin.com/login"

// fakeScript is the shared page world behind every driver a test spawns, so
// re-acquired sessions see the same remote state.
type fakeScript struct {
	pages      map[string]*domain.NavigationResult
	navErrOnce map[string]error
	navErrAll  error
	elements   []domain.InteractiveElement
	onNavigate func(url string)
	starts     int
}

func newFakeScript() *fakeScript {
	return &fakeScript{
		pages:      map[string]*domain.NavigationResult{},
		navErrOnce: map[string]error{},
	}
}

func (s *fakeScript) factory() session.DriverFactory {
	return func() session.Driver {
		s.starts++
		return &fakeDriver{script: s}
	}
}

type fakeDriver struct {
	script    *fakeScript
	submitted bool
}

func (d *fakeDriver) Start(ctx context.Context) error { return nil }

func (d *fakeDriver) Navigate(ctx context.Context, url string) (*domain.NavigationResult, error) {
	if url == testLoginURL {
		return &domain.NavigationResult{FinalURL: url, Title: "Sign In"}, nil
	}
	if d.script.onNavigate != nil {
		d.script.onNavigate(url)
	}
	if err, ok := d.script.navErrOnce[url]; ok {
		delete(d.script.navErrOnce, url)
		return nil, err
	}
	if d.script.navErrAll != nil {
		return nil, d.script.navErrAll
	}
	if page, ok := d.script.pages[url]; ok {
		cp := *page
		return &cp, nil
	}
	return &domain.NavigationResult{FinalURL: url, Title: "LinkedIn", HTMLSource: "<html></html>"}, nil
}

func (d *fakeDriver) Snapshot(ctx context.Context) (*domain.NavigationResult, error) {
	if d.submitted {
		return &domain.NavigationResult{FinalURL: "https://www.linkedin.com/feed/"}, nil
	}
	return &domain.NavigationResult{FinalURL: testLoginURL, Title: "Sign In"}, nil
}

func (d *fakeDriver) Fill(ctx context.Context, selector, value string) error { return nil }

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	d.submitted = true
	return nil
}

func (d *fakeDriver) InteractiveElements(ctx context.Context) ([]domain.InteractiveElement, error) {
	return d.script.elements, nil
}

func (d *fakeDriver) Quit() {}

type testHarness struct {
	orch   *Orchestrator
	pool   *accounts.Pool
	gov    *governor.Governor
	script *fakeScript
	outDir string
}

func newHarness(t *testing.T, inputLines string, extraAccounts ...string) *testHarness {
	t.Helper()
	dir := t.TempDir()
	inputFile := filepath.Join(dir, "links.txt")
	require.NoError(t, os.WriteFile(inputFile, []byte(inputLines), 0o644))
	outDir := filepath.Join(dir, "results")

	cfg := &config.Config{
		InputFile:              inputFile,
		OutputDir:              outDir,
		Headless:               true,
		Browser:                "chrome",
		MaxRetries:             2,
		AccountSwitchThreshold: 50,
		ErrorTripThreshold:     5,
		CooldownMinutes:        5,
		LoginTimeoutS:          1,
		NavTimeoutS:            1,
		ChallengeTimeoutS:      1,
		RecheckTTLHours:        1,
	}

	logger := zap.NewNop()
	pool := accounts.NewPool(logger)
	require.True(t, pool.SetPrimary("primary@example.com", "secret"))
	for _, email := range extraAccounts {
		pool.AddAdditional(email, "secret")
	}

	script := newFakeScript()
	controller := session.NewController(script.factory(), time.Second, logger)
	gov := governor.New(cfg.ErrorTripThreshold, cfg.Cooldown(), logger)
	writer := report.NewWriter(outDir, logger)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	orch := New(cfg, pool, gov, controller, writer, nil, nil, metrics, logger)
	orch.sleep = func(ctx context.Context, d time.Duration) bool { return true }

	return &testHarness{orch: orch, pool: pool, gov: gov, script: script, outDir: outDir}
}

func drainEvents(o *Orchestrator) []Event {
	var events []Event
	for ev := range o.Events() {
		events = append(events, ev)
	}
	return events
}

func readDetailedReport(t *testing.T, path string) []domain.LinkResult {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []domain.LinkResult
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestRunFullPass(t *testing.T) {
	input := "https://www.linkedin.com/premium/redeem?redeemToken=abc123\n" +
		"check this https://www.linkedin.com/gifts/expired-offer out\n" +
		"just some text with no link\n"
	h := newHarness(t, input)
	h.script.pages["https://www.linkedin.com/premium/redeem?redeemToken=abc123"] = &domain.NavigationResult{
		FinalURL:   "https://www.linkedin.com/premium/redeem?redeemToken=abc123",
		Title:      "Redeem your Premium gift",
		HTMLSource: "<html><body>claim your gift</body></html>",
	}
	h.script.pages["https://www.linkedin.com/gifts/expired-offer"] = &domain.NavigationResult{
		FinalURL:   "https://www.linkedin.com/gifts/expired-offer",
		Title:      "LinkedIn",
		HTMLSource: "<html>this offer has expired</html>",
	}

	paths, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, paths)

	assert.Equal(t, domain.RunCompleted, h.orch.State())
	stats := h.orch.Stats()
	assert.Equal(t, 2, stats.TotalProcessed)
	assert.Equal(t, 1, stats.WorkingFound)
	assert.Equal(t, 1, stats.FailedOrInvalid)
	assert.Equal(t, 0, stats.RateLimitSuspected)

	require.NotEmpty(t, paths.WorkingFile)
	require.NotEmpty(t, paths.QuickFile)
	require.NotEmpty(t, paths.JSONFile)

	entries := readDetailedReport(t, paths.JSONFile)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.StatusWorking, entries[0].Status)
	assert.Equal(t, domain.ConfidenceHigh, entries[0].Confidence)
	assert.Equal(t, 1, entries[0].LineNum)
	assert.Equal(t, domain.StatusFailed, entries[1].Status)
	assert.Equal(t, 2, entries[1].LineNum)

	quick, err := os.ReadFile(paths.QuickFile)
	require.NoError(t, err)
	assert.Equal(t, "https://www.linkedin.com/premium/redeem?redeemToken=abc123\n", string(quick))
}

func TestRunStopsBetweenTasks(t *testing.T) {
	input := "https://www.linkedin.com/premium/redeem?redeemToken=a\n" +
		"https://www.linkedin.com/premium/redeem?redeemToken=b\n"
	h := newHarness(t, input)
	h.script.onNavigate = func(url string) {
		h.orch.Stop()
	}

	paths, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunStopped, h.orch.State())
	assert.Equal(t, 1, h.orch.Stats().TotalProcessed, "task in flight finishes, next never starts")

	entries := readDetailedReport(t, paths.JSONFile)
	assert.Len(t, entries, 1)
}

func TestRunEmptyPool(t *testing.T) {
	dir := t.TempDir()
	inputFile := filepath.Join(dir, "links.txt")
	require.NoError(t, os.WriteFile(inputFile, []byte("https://example.com/a\n"), 0o644))
	outDir := filepath.Join(dir, "results")

	cfg := &config.Config{InputFile: inputFile, OutputDir: outDir, MaxRetries: 1}
	logger := zap.NewNop()
	script := newFakeScript()
	orch := New(cfg, accounts.NewPool(logger), governor.New(5, time.Minute, logger),
		session.NewController(script.factory(), time.Second, logger),
		report.NewWriter(outDir, logger), nil, nil,
		monitoring.NewMetrics(prometheus.NewRegistry()), logger)

	_, err := orch.Run(context.Background())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, domain.RunStopped, orch.State())

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "no artifacts on configuration error")
}

func TestRunMissingInputFile(t *testing.T) {
	h := newHarness(t, "https://example.com/a\n")
	h.orch.cfg.InputFile = filepath.Join(t.TempDir(), "missing.txt")

	_, err := h.orch.Run(context.Background())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRunNoValidURLs(t *testing.T) {
	h := newHarness(t, "no links in here\nnor here\n")

	paths, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, h.orch.State())
	assert.Equal(t, &report.OutputPaths{}, paths)
	assert.Equal(t, 0, h.script.starts, "no session for an empty task list")
}

func TestRunRecoversFromFatalSessionFault(t *testing.T) {
	url1 := "https://www.linkedin.com/premium/redeem?redeemToken=a"
	url2 := "https://www.linkedin.com/premium/redeem?redeemToken=b"
	h := newHarness(t, url1+"\n"+url2+"\n")
	h.script.navErrOnce[url1] = &session.SessionFault{Op: "navigate", Err: errors.New("target crashed")}

	paths, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, h.orch.State())
	assert.Equal(t, 2, h.script.starts, "session re-acquired after crash")

	stats := h.orch.Stats()
	assert.Equal(t, 2, stats.TotalProcessed)
	assert.Equal(t, 1, stats.WorkingFound)
	assert.Equal(t, 1, stats.FailedOrInvalid)

	entries := readDetailedReport(t, paths.JSONFile)
	require.Len(t, entries, 2)
	var crashed *domain.LinkResult
	for i := range entries {
		if entries[i].Status == domain.StatusError {
			crashed = &entries[i]
		}
	}
	require.NotNil(t, crashed)
	assert.Equal(t, "Browser session crashed or disconnected.", crashed.ResultDetails)
	assert.NotEmpty(t, crashed.Error)
}

func TestRunRotatesAtSwitchThreshold(t *testing.T) {
	input := "https://www.linkedin.com/premium/redeem?redeemToken=a\n" +
		"https://www.linkedin.com/premium/redeem?redeemToken=b\n"
	h := newHarness(t, input, "second@example.com")
	h.orch.cfg.AccountSwitchThreshold = 1

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, h.pool.CurrentIndex(), "rotated once after the first link")
	assert.Equal(t, 2, h.script.starts, "fresh session for the rotated account")

	var sawRotation bool
	for _, ev := range drainEvents(h.orch) {
		if ev.Kind == EventRotation {
			sawRotation = true
			assert.Equal(t, "second@example.com", ev.Account)
		}
	}
	assert.True(t, sawRotation)
}

func TestRunTripsCooldownAfterConsecutiveErrors(t *testing.T) {
	input := "https://www.linkedin.com/a1\nhttps://www.linkedin.com/a2\n" +
		"https://www.linkedin.com/a3\nhttps://www.linkedin.com/a4\nhttps://www.linkedin.com/a5\n"
	h := newHarness(t, input)
	h.script.navErrAll = errors.New("net::ERR_TIMED_OUT")

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, h.orch.Stats().TotalProcessed)
	assert.True(t, h.gov.CooldownFlagged(), "fifth consecutive error trips the governor")

	var sawCooldown bool
	for _, ev := range drainEvents(h.orch) {
		if ev.Kind == EventCooldown {
			sawCooldown = true
		}
	}
	assert.True(t, sawCooldown)
}

func TestRunEmitsProgressAndCompletion(t *testing.T) {
	h := newHarness(t, "https://www.linkedin.com/premium/redeem?redeemToken=a\n")

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	events := drainEvents(h.orch)
	require.NotEmpty(t, events)

	var progress, completed int
	for _, ev := range events {
		switch ev.Kind {
		case EventProgress:
			progress++
		case EventCompleted:
			completed++
			assert.Equal(t, domain.RunCompleted, ev.State)
			assert.NotNil(t, ev.Paths)
		}
	}
	assert.Equal(t, 1, progress)
	assert.Equal(t, 1, completed)
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, "https://example.com/a\n")
	h.orch.Stop()
	h.orch.Stop()
	assert.True(t, h.orch.stop.Load())
}
