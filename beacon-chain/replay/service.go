package replay

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var errNotFinished = errors.New("scenario replay has not finished")

// Service replays a scenario file once the node has started.
type Service struct {
	ctx      context.Context
	cancel   context.CancelFunc
	path     string
	ready    <-chan struct{}
	replayer *Replayer
	done     chan struct{}
	lock     sync.RWMutex
	err      error
	finished bool
}

// NewService returns a service replaying the scenario at path into chain.
// The replay waits for ready to be closed, when not nil.
func NewService(ctx context.Context, path string, chain Chain, ready <-chan struct{}) *Service {
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:      ctx,
		cancel:   cancel,
		path:     path,
		ready:    ready,
		replayer: NewReplayer(chain),
		done:     make(chan struct{}),
	}
}

// Start replays the scenario in the background.
func (s *Service) Start() {
	go func() {
		defer close(s.done)
		err := s.run()
		if err != nil {
			log.WithError(err).WithField("path", s.path).Error("Scenario replay failed")
		}
		s.lock.Lock()
		s.err = err
		s.finished = true
		s.lock.Unlock()
	}()
}

func (s *Service) run() error {
	if s.ready != nil {
		select {
		case <-s.ready:
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
	scenario, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	return s.replayer.Run(s.ctx, scenario)
}

// Done is closed once the replay finished.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Stop interrupts the replay.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns the replay error, if any.
func (s *Service) Status() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.err
}

// Result returns the outcome of a finished replay.
func (s *Service) Result() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if !s.finished {
		return errNotFinished
	}
	return s.err
}
