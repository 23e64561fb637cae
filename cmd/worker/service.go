package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/askservice/leadmarket-backend/pkg/logger"
)

type runner interface {
	Run(ctx context.Context) error
}

type pinger func(context.Context) error

// ServiceParams wires the worker's consumers and the dependencies they need.
type ServiceParams struct {
	Logger    *logger.Logger
	Consumers map[string]runner
	Checks    map[string]pinger
}

// Service runs every consumer until one stops or the context ends.
type Service struct {
	logg      *logger.Logger
	consumers map[string]runner
	checks    map[string]pinger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("consumer %s is nil", name)
		}
	}
	return &Service{logg: params.Logger, consumers: params.Consumers, checks: params.Checks}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

var errConsumerExited = errors.New("consumer exited")

// Run blocks until ctx ends or any consumer stops; the first failure cancels
// the rest.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, c := range s.consumers {
		g.Go(func() error {
			err := c.Run(s.logg.WithField(gctx, "consumer", name))
			switch {
			case err == nil && gctx.Err() == nil:
				return fmt.Errorf("%s: %w", name, errConsumerExited)
			case err != nil && !errors.Is(err, context.Canceled):
				return fmt.Errorf("consumer %s: %w", name, err)
			}
			return err
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		return err
	}
	s.logg.Info(ctx, "worker context canceled")
	if err == nil {
		err = ctx.Err()
	}
	return err
}
