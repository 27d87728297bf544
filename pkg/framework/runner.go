package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Runner runs Runnables concurrently until Context is done, and collects
// their errors. When an essential Runnable returns, everything is stopped.
type Runner struct {
	Context context.Context
	Runners []Runnable

	cancel  context.CancelFunc
	errCh   chan error
	exitCh  chan struct{}
	closers []io.Closer
}

// NewRunner creates a runner with a default background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner stopped when ctx is done.
func NewRunnerWith(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		Context: ctx,
		cancel:  cancel,
		errCh:   make(chan error, 1),
		exitCh:  make(chan struct{}),
	}
}

// HandleSignals stops the runner on CtrlC and SIGTERM. A second signal
// makes Wait return immediately.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Go spawns Runnables.
func (r *Runner) Go(runners ...Runnable) *Runner {
	return r.spawn(false, runners)
}

// GoEssential spawns Runnables the others depend on, e.g. the link to a
// device. When any of them returns, the runner stops.
func (r *Runner) GoEssential(runners ...Runnable) *Runner {
	return r.spawn(true, runners)
}

// CloseOnExit registers closers called by Wait after all Runnables
// stopped, in reverse order.
func (r *Runner) CloseOnExit(closers ...io.Closer) *Runner {
	r.closers = append(r.closers, closers...)
	return r
}

// Stop cancels Context.
func (r *Runner) Stop() {
	r.cancel()
}

func (r *Runner) spawn(essential bool, runners []Runnable) *Runner {
	for _, runner := range runners {
		name := strconv.Itoa(len(r.Runners))
		if named, ok := runner.(Named); ok {
			name = named.Name()
		}
		r.Runners = append(r.Runners, runner)
		go func(runner Runnable, name string) {
			glog.V(4).Infof("Runner[%s] started", name)
			err := runner.Run(r.Context)
			if essential {
				r.cancel()
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				glog.V(4).Infof("Runner[%s] failed: %v", name, err)
				err = fmt.Errorf("%s: %w", name, err)
			} else {
				err = nil
			}
			glog.V(4).Infof("Runner[%s] stopped", name)
			r.errCh <- err
		}(runner, name)
	}
	return r
}

// Wait waits until all Runnables stop, runs the registered closers and
// returns the errors of the Runnables.
func (r *Runner) Wait() error {
	defer r.cancel()
	var errs AggregatedError
	for range r.Runners {
		select {
		case <-r.exitCh:
			return errors.New("forced exit")
		case err := <-r.errCh:
			errs.Add(err)
		}
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			glog.Warningf("close on exit: %v", err)
		}
	}
	return errs.Aggregate()
}

// RunOrFail waits for the runner and exits the program on error.
// It is intended to be used in main.
func (r *Runner) RunOrFail() {
	if err := r.Wait(); err != nil {
		log.Fatalln(err)
	}
}

// RunWithContextCloser runs fn which doesn't accept a context. closer is
// called when ctx is done to unblock fn, or after fn returns. The result is
// context.Canceled if fn is stopped by ctx.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case err := <-errCh:
		closer.Close()
		return err
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return context.Canceled
	}
}
