package playlist

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/automation"
	"github.com/xkilldash9x/vatm-cli/internal/observability"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
	"github.com/xkilldash9x/vatm-cli/internal/terminal"
)

// Run statuses recorded for each transaction.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Index     int
	Screen    string
	Action    string
	StartedAt time.Time
	Elapsed   time.Duration
	Error     string
}

// Run is the outcome of one transaction execution.
type Run struct {
	ID          uuid.UUID
	Playlist    string
	Transaction string
	Cycle       int
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      string
	Error       string
	Steps       []StepResult
}

// Recorder persists run outcomes.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(context.Context, Run) error { return nil }

// Config tunes the runner.
type Config struct {
	// DownloadPath receives one folder of screenshots and receipts per run.
	DownloadPath string
	Screenshots  bool
	// ButtonEditDistance is the edit distance allowed when matching button labels.
	ButtonEditDistance int
}

// Dependencies are the collaborators a Runner drives.
type Dependencies struct {
	Automation *automation.Service
	VM         paragon.VirtualMachine
	Devices    paragon.Devices
	Keypad     *terminal.Keypad
	Dispatcher *terminal.Dispatcher
	Registry   *screen.Registry
	Catalog    *Catalog
	// Recorder may be nil.
	Recorder Recorder
}

// Runner executes transactions and playlists against one terminal.
type Runner struct {
	auto       *automation.Service
	vm         paragon.VirtualMachine
	devices    paragon.Devices
	keypad     *terminal.Keypad
	dispatcher *terminal.Dispatcher
	registry   *screen.Registry
	catalog    *Catalog
	recorder   Recorder
	cfg        Config
	logger     *zap.Logger
	shuffle    func(n int, swap func(i, j int))
}

// NewRunner builds a runner.
func NewRunner(deps Dependencies, cfg Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	rec := deps.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Runner{
		auto:       deps.Automation,
		vm:         deps.VM,
		devices:    deps.Devices,
		keypad:     deps.Keypad,
		dispatcher: deps.Dispatcher,
		registry:   deps.Registry,
		catalog:    deps.Catalog,
		recorder:   rec,
		cfg:        cfg,
		logger:     logger.Named("playlist"),
		shuffle:    rand.Shuffle,
	}
}

// execution is the per-run state threaded through actions.
type execution struct {
	run    Run
	folder string
	logger *zap.Logger
}

// RunTransaction validates and executes tx once and records the outcome.
func (r *Runner) RunTransaction(ctx context.Context, tx Transaction) error {
	if err := ValidateTransaction(tx, r.registry); err != nil {
		return err
	}
	return r.runAndRecord(ctx, "", 0, tx)
}

// RunPlaylist validates pl, then runs its transactions Cycles() times,
// returning the terminal to idle before each one. The first failure ends
// the playlist.
func (r *Runner) RunPlaylist(ctx context.Context, pl Playlist) error {
	log := r.logger.With(zap.String("playlist", pl.Name))
	log.Info("Validating playlist.")
	if err := r.catalog.Validate(pl, r.registry); err != nil {
		log.Error("Playlist validation failed.", zap.Error(err), zap.Strings("available", r.catalog.Names()))
		return err
	}

	cycles := pl.Options.Cycles()
	for cycle := 1; cycle <= cycles; cycle++ {
		order := append([]string(nil), pl.Transactions...)
		if pl.Options.Shuffle {
			r.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		log.Info("Starting cycle.", zap.Int("cycle", cycle), zap.Int("of", cycles), zap.Strings("order", order))

		for _, name := range order {
			tx, err := r.catalog.Lookup(name)
			if err != nil {
				return err
			}
			if err := r.dispatcher.DispatchToIdle(ctx); err != nil {
				return fmt.Errorf("before %q: %w", tx.Name, err)
			}
			if err := r.runAndRecord(ctx, pl.Name, cycle, tx); err != nil {
				return err
			}
		}

		if cycle < cycles {
			delay := time.Duration(pl.Options.RepeatDelay) * time.Millisecond
			log.Info("Cycle complete, pausing.", zap.Int("cycle", cycle), zap.Duration("delay", delay))
			if err := automation.Sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	log.Info("Playlist complete.", zap.Int("cycles", cycles))
	return nil
}

func (r *Runner) runAndRecord(ctx context.Context, playlist string, cycle int, tx Transaction) error {
	run, err := r.execute(ctx, playlist, cycle, tx)
	if recErr := r.recorder.RecordRun(context.WithoutCancel(ctx), run); recErr != nil {
		r.logger.Warn("Failed to record run.", zap.String("run_id", run.ID.String()), zap.Error(recErr))
	}
	return err
}

func (r *Runner) execute(ctx context.Context, playlist string, cycle int, tx Transaction) (Run, error) {
	ex := &execution{
		run: Run{
			ID:          uuid.New(),
			Playlist:    playlist,
			Transaction: tx.Name,
			Cycle:       cycle,
			StartedAt:   time.Now(),
		},
	}
	ex.logger = observability.ForRun(r.logger, ex.run.ID.String(), playlist, tx.Name)
	if r.cfg.DownloadPath != "" {
		ex.folder = filepath.Join(r.cfg.DownloadPath,
			fmt.Sprintf("%s-%s", ex.run.StartedAt.Format("2006-01-02--15.04.05"), ex.run.ID.String()[:8]))
	}

	ex.logger.Info("Starting transaction.", zap.Int("steps", len(tx.ScreenFlow)))
	r.screenshot(ctx, ex)

	err := r.steps(ctx, ex, tx)
	ex.run.FinishedAt = time.Now()
	switch {
	case err == nil:
		ex.run.Status = StatusSucceeded
		ex.logger.Info("Transaction complete.", zap.Duration("elapsed", ex.run.FinishedAt.Sub(ex.run.StartedAt)))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		ex.run.Status = StatusCancelled
		ex.run.Error = err.Error()
		ex.logger.Warn("Transaction cancelled.", zap.Error(err))
	default:
		ex.run.Status = StatusFailed
		ex.run.Error = err.Error()
		ex.logger.Error("Transaction failed.", zap.Error(err))
	}
	return ex.run, err
}

func (r *Runner) steps(ctx context.Context, ex *execution, tx Transaction) error {
	delay := time.Duration(tx.Options.StandardDelay) * time.Millisecond
	for i, step := range tx.ScreenFlow {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := StepResult{Index: i + 1, Screen: step.ScreenName(), Action: step.Action(), StartedAt: time.Now()}
		err := r.step(ctx, ex, step, delay)
		res.Elapsed = time.Since(res.StartedAt)
		if err != nil {
			res.Error = err.Error()
		}
		ex.run.Steps = append(ex.run.Steps, res)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", res.Index, res.Screen, err)
		}
	}
	return nil
}

func (r *Runner) step(ctx context.Context, ex *execution, step Step, delay time.Duration) error {
	def, err := r.registry.Lookup(step.ScreenName())
	if err != nil {
		return err
	}
	ex.logger.Info("Processing screen.", zap.String("screen", def.Name), zap.String("action", step.Action()))
	if err := r.auto.ExpectScreen(ctx, def, step.TimeoutDuration(), step.RefreshDuration()); err != nil {
		return err
	}

	act, ok := actions[step.Action()]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, step.ActionType)
	}
	if err := act(ctx, r, ex, step); err != nil {
		return err
	}
	if err := automation.Sleep(ctx, delay); err != nil {
		return err
	}
	r.screenshot(ctx, ex)
	return nil
}

// screenshot is best effort; a failed capture never fails a run.
func (r *Runner) screenshot(ctx context.Context, ex *execution) {
	if !r.cfg.Screenshots || ex.folder == "" || r.vm == nil {
		return
	}
	path, err := terminal.SaveScreenshot(ctx, r.vm, ex.folder)
	if err != nil {
		ex.logger.Warn("Failed to save screenshot.", zap.Error(err))
		return
	}
	ex.logger.Debug("Saved screenshot.", zap.String("path", path))
}
