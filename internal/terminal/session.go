package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/vatm-cli/internal/automation"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

// SessionConfig describes the terminal being driven.
type SessionConfig struct {
	Credentials    paragon.Credentials
	HwProfile      string
	StartupApps    []string
	StartupDelay   time.Duration
	StartupTimeout time.Duration
	StartupRefresh time.Duration
	// CloseTimeout bounds Disconnect's cleanup calls.
	CloseTimeout time.Duration
}

// Session owns the simulator session for one terminal.
type Session struct {
	agent      paragon.Agent
	conn       paragon.Connection
	devices    paragon.Devices
	auto       *automation.Service
	dispatcher *Dispatcher
	registry   *screen.Registry
	cfg        SessionConfig
	sem        *semaphore.Weighted
	logger     *zap.Logger
}

// NewSession wires a session. The dispatcher must have been built from
// the same registry.
func NewSession(agent paragon.Agent, conn paragon.Connection, devices paragon.Devices, auto *automation.Service, dispatcher *Dispatcher, registry *screen.Registry, cfg SessionConfig, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}
	return &Session{
		agent:      agent,
		conn:       conn,
		devices:    devices,
		auto:       auto,
		dispatcher: dispatcher,
		registry:   registry,
		cfg:        cfg,
		sem:        semaphore.NewWeighted(1),
		logger:     logger.Named("session"),
	}
}

// Dispatcher returns the session's recovery automaton.
func (s *Session) Dispatcher() *Dispatcher { return s.dispatcher }

// Exclusive runs fn while holding the terminal. Only one flow at a time
// may click or type on a terminal.
func (s *Session) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return fn(ctx)
}

// Connect attaches to the terminal and leaves the ATM application on an
// idle screen, starting it if necessary. When it fails after attaching, the
// connection and session are closed again before it returns.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.Attach(ctx); err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		if dErr := s.Detach(ctx); dErr != nil {
			return errors.Join(err, dErr)
		}
		return err
	}
	return nil
}

func (s *Session) settle(ctx context.Context) error {
	s.logger.Info("Checking whether the ATM application is running.")
	current, ok, err := s.auto.MatchAny(ctx, s.registry.All())
	if err != nil {
		return fmt.Errorf("read screen: %w", err)
	}
	if !ok || screen.NormalizeName(current.Name) == ScreenDesktop {
		return s.StartFromDesktop(ctx)
	}
	name := screen.NormalizeName(current.Name)
	if IsIdleScreen(name) {
		s.logger.Info("Terminal connected.", zap.String("screen", name))
		return nil
	}
	return s.dispatcher.DispatchToIdle(ctx)
}

// Attach acquires the agent and opens the terminal connection without
// looking at or acting on the screen. A session it opened is closed again
// if a later step fails.
func (s *Session) Attach(ctx context.Context) error {
	status, err := s.readyAgent(ctx)
	if err != nil {
		return err
	}
	resuming := status.Is(paragon.StatePaused)

	if err := s.agent.OpenSession(ctx, s.cfg.Credentials); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	if err := s.prepare(ctx, resuming); err != nil {
		if cErr := s.closeSession(ctx); cErr != nil {
			return errors.Join(err, cErr)
		}
		return err
	}
	return nil
}

// prepare runs the attach steps that need an open session.
func (s *Session) prepare(ctx context.Context, resuming bool) error {
	status, err := s.agent.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("agent status: %w", err)
	}
	if !status.Is(paragon.StateAPIControlled) {
		return fmt.Errorf("%w: session state %q, expected %s", ErrAgentState, status.State, paragon.StateAPIControlled)
	}

	if !resuming && s.cfg.HwProfile != "" {
		if err := s.agent.OpenHardwareProfile(ctx, s.cfg.HwProfile); err != nil {
			return fmt.Errorf("open hardware profile %q: %w", s.cfg.HwProfile, err)
		}
	}
	if err := s.conn.Open(ctx); err != nil {
		return fmt.Errorf("open connection: %w", err)
	}
	return nil
}

// readyAgent returns the agent status once it is IDLE or PAUSED. One
// device recovery is attempted when it is not.
func (s *Session) readyAgent(ctx context.Context) (*paragon.AgentStatus, error) {
	for attempt := 0; ; attempt++ {
		status, err := s.agent.GetStatus(ctx)
		if err != nil {
			return nil, fmt.Errorf("agent status: %w", err)
		}
		if status.Is(paragon.StateIdle) || status.Is(paragon.StatePaused) {
			return status, nil
		}
		if attempt > 0 {
			return nil, fmt.Errorf("%w: agent is %q, must be %s or %s", ErrAgentState, status.State, paragon.StateIdle, paragon.StatePaused)
		}
		s.logger.Warn("Agent not ready for a session, recovering.", zap.String("state", string(status.State)))
		if err := s.devices.Recover(ctx); err != nil {
			return nil, fmt.Errorf("recover: %w", err)
		}
	}
}

// StartFromDesktop launches the configured applications and waits for the
// welcome screen.
func (s *Session) StartFromDesktop(ctx context.Context) error {
	welcome, err := s.registry.Lookup(ScreenWelcome)
	if err != nil {
		return err
	}
	for _, app := range s.cfg.StartupApps {
		s.logger.Info("Starting application.", zap.String("app", app))
		if err := s.agent.StartApplication(ctx, app); err != nil {
			return fmt.Errorf("start %q: %w", app, err)
		}
	}

	s.logger.Info("Waiting for the ATM application to start.", zap.Duration("delay", s.cfg.StartupDelay))
	if err := automation.Sleep(ctx, s.cfg.StartupDelay); err != nil {
		return err
	}
	return s.auto.ExpectScreen(ctx, welcome, s.cfg.StartupTimeout, s.cfg.StartupRefresh)
}

// Disconnect returns the terminal to idle, then detaches. Detach runs even
// when dispatch fails.
func (s *Session) Disconnect(ctx context.Context) error {
	var errs []error
	if err := s.dispatcher.DispatchToIdle(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Detach(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("Disconnect finished with errors.", zap.Error(err))
		return err
	}
	s.logger.Info("Disconnected.")
	return nil
}

// Detach closes the connection and the session. The close calls run even
// when ctx is already cancelled.
func (s *Session) Detach(ctx context.Context) error {
	closeCtx, cancel := s.closeContext(ctx)
	defer cancel()

	var errs []error
	if err := s.conn.Close(closeCtx); err != nil {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	if err := s.agent.CloseSession(closeCtx); err != nil {
		errs = append(errs, fmt.Errorf("close session: %w", err))
	}
	return errors.Join(errs...)
}

// closeSession ends a session whose connection was never opened.
func (s *Session) closeSession(ctx context.Context) error {
	closeCtx, cancel := s.closeContext(ctx)
	defer cancel()

	s.logger.Warn("Attach failed, closing the session.")
	if err := s.agent.CloseSession(closeCtx); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (s *Session) closeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CloseTimeout)
}
