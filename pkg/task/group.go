package task

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

// Group runs a set of Runnables concurrently and collects their exit
// errors. The device restarts by restarting the process, so a Group is
// started once and waited on until an external stop.
type Group struct {
	Context context.Context

	runnables []Runnable
	errCh     chan error
	exitCh    chan struct{}
}

// NewGroup creates a Group with a background context.
func NewGroup() *Group {
	return NewGroupWith(context.Background())
}

// NewGroupWith creates a Group bound to ctx.
func NewGroupWith(ctx context.Context) *Group {
	return &Group{
		Context: ctx,
		errCh:   make(chan error, 1),
		exitCh:  make(chan struct{}),
	}
}

// HandleSignals cancels the group context on SIGINT/SIGTERM. A second
// signal forces exit.
func (g *Group) HandleSignals() *Group {
	ctx, cancel := context.WithCancel(g.Context)
	g.Context = ctx
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(g.exitCh)
	}()
	return g
}

// Go spawns runnables on the group context.
func (g *Group) Go(runnables ...Runnable) *Group {
	for _, runnable := range runnables {
		var name string
		if named, ok := runnable.(Named); ok {
			name = named.Name()
		} else {
			name = strconv.Itoa(len(g.runnables))
		}
		g.runnables = append(g.runnables, runnable)
		go func(runnable Runnable, name string) {
			glog.V(4).Infof("task[%s] started", name)
			g.errCh <- runnable.Run(g.Context)
			glog.V(4).Infof("task[%s] stopped", name)
		}(runnable, name)
	}
	return g
}

// Wait blocks until every runnable stops and aggregates their errors.
// Context cancellation is a normal stop, not an error.
func (g *Group) Wait() error {
	var errs Errors
	for range g.runnables {
		select {
		case <-g.exitCh:
			return errors.New("forced exit")
		case err := <-g.errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs.Add(err)
			}
		}
	}
	return errs.Aggregate()
}

// RunWithContextCancel runs fn, which does not take a context, and
// invokes onCancel when the context is canceled before fn returns.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		if onCancel != nil {
			onCancel()
		}
		<-errCh
		return context.Canceled
	case err := <-errCh:
		return err
	}
}
