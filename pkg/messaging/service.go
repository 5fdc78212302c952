package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
)

// ====================================================================================
// This file contains the service that pulls messages from a MessageConsumer and
// feeds them to a pool of workers, each calling the Dispatcher.
// ====================================================================================

// SubscriptionService runs a pool of dispatch workers over one consumer.
type SubscriptionService struct {
	numWorkers   int
	consumer     MessageConsumer
	dispatcher   *Dispatcher
	logger       zerolog.Logger
	wg           sync.WaitGroup
	shutdownCtx  context.Context
	shutdownFunc context.CancelFunc
	// stopTimeout bounds the wait for the consumer to report it has stopped.
	stopTimeout time.Duration
}

// NewSubscriptionService creates a SubscriptionService.
func NewSubscriptionService(numWorkers int, consumer MessageConsumer, dispatcher *Dispatcher, logger zerolog.Logger) (*SubscriptionService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("message consumer cannot be nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if numWorkers <= 0 {
		numWorkers = 5
	}

	shutdownCtx, shutdownFunc := context.WithCancel(context.Background())

	return &SubscriptionService{
		numWorkers:   numWorkers,
		consumer:     consumer,
		dispatcher:   dispatcher,
		logger:       logger.With().Str("service", "SubscriptionService").Logger(),
		shutdownCtx:  shutdownCtx,
		shutdownFunc: shutdownFunc,
		stopTimeout:  30 * time.Second,
	}, nil
}

// Start starts the consumer and the worker pool.
func (s *SubscriptionService) Start() error {
	s.logger.Info().Msg("Starting SubscriptionService...")

	if err := s.consumer.Start(s.shutdownCtx); err != nil {
		return fmt.Errorf("failed to start message consumer: %w", err)
	}
	s.logger.Info().Msg("Message consumer started.")

	s.logger.Info().Int("worker_count", s.numWorkers).Msg("Starting dispatch workers...")
	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	return nil
}

func (s *SubscriptionService) worker(workerID int) {
	defer s.wg.Done()
	s.logger.Debug().Int("worker_id", workerID).Msg("Dispatch worker started.")

	for {
		select {
		case <-s.shutdownCtx.Done():
			s.logger.Debug().Int("worker_id", workerID).Msg("Dispatch worker shutting down.")
			return
		case msg, ok := <-s.consumer.Messages():
			if !ok {
				s.logger.Debug().Int("worker_id", workerID).Msg("Consumer channel closed, worker exiting.")
				return
			}
			s.dispatch(msg)
		}
	}
}

// dispatch gives each message its own context so a cancelled service does not
// abort a dispatch that is already running.
func (s *SubscriptionService) dispatch(msg types.ConsumedMessage) {
	s.dispatcher.OnReceive(context.Background(), msg)
}

// Stop shuts the service down: consumer first, then the workers. Messages still
// buffered once the workers have exited are nacked so the bus redelivers them.
func (s *SubscriptionService) Stop() {
	s.logger.Info().Msg("Stopping SubscriptionService...")
	s.shutdownFunc()

	if err := s.consumer.Stop(); err != nil {
		s.logger.Error().Err(err).Msg("Error stopping message consumer")
	}
	select {
	case <-s.consumer.Done():
		s.logger.Info().Msg("Message consumer stopped.")
	case <-time.After(s.stopTimeout):
		s.logger.Error().Dur("timeout", s.stopTimeout).Msg("Timeout waiting for message consumer to stop.")
	}

	s.wg.Wait()
	if n := s.nackBuffered(); n > 0 {
		s.logger.Warn().Int("count", n).Msg("Nacked messages left in the consumer buffer.")
	}
	s.logger.Info().Msg("SubscriptionService stopped gracefully.")
}

// nackBuffered settles whatever is left in the consumer channel without blocking.
func (s *SubscriptionService) nackBuffered() int {
	n := 0
	for {
		select {
		case msg, ok := <-s.consumer.Messages():
			if !ok {
				return n
			}
			if msg.Nack != nil {
				msg.Nack()
			}
			n++
		default:
			return n
		}
	}
}
