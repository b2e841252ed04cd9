package marketplace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Service pushes listings to channels and tracks their state.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	channels map[string]Channel
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, repo Repository, channels []Channel) *Service {
	byName := make(map[string]Channel, len(channels))
	for _, c := range channels {
		byName[c.Name()] = c
	}
	return &Service{logger: logger, repo: repo, channels: byName, now: time.Now}
}

// Channels lists the configured channel names.
func (s *Service) Channels() []string {
	out := make([]string, 0, len(s.channels))
	for name := range s.channels {
		out = append(out, name)
	}
	return out
}

// List returns listings, optionally filtered by channel.
func (s *Service) List(ctx context.Context, channel string) ([]Listing, error) {
	if channel != "" {
		if _, ok := s.channels[channel]; !ok {
			return nil, ErrUnknownChannel
		}
	}
	return s.repo.List(ctx, channel)
}

// Publish creates a pending listing for an available vehicle. The actual
// channel push happens on the next sync pass.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (Listing, error) {
	if _, ok := s.channels[req.Channel]; !ok {
		return Listing{}, ErrUnknownChannel
	}
	return s.repo.Create(ctx, req.VehicleID, req.Channel)
}

// Delist removes a listing from its channel and marks it delisted.
func (s *Service) Delist(ctx context.Context, id int64) error {
	listing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if ch, ok := s.channels[listing.Channel]; ok && listing.ExternalRef != "" {
		if err := ch.Delist(ctx, listing.ExternalRef); err != nil {
			return err
		}
	}
	return s.repo.MarkDelisted(ctx, id)
}

// SyncChannel pushes every pending or previously failed listing on one
// channel. Publish failures mark the listing failed and continue; only
// storage errors abort the pass.
func (s *Service) SyncChannel(ctx context.Context, name string) (SyncReport, error) {
	ch, ok := s.channels[name]
	if !ok {
		return SyncReport{}, ErrUnknownChannel
	}

	pending, err := s.repo.PendingByChannel(ctx, name)
	if err != nil {
		return SyncReport{}, err
	}

	report := SyncReport{Channel: name}
	for _, listing := range pending {
		ref, err := ch.Publish(ctx, listing)
		if err != nil {
			report.Failed++
			if markErr := s.repo.MarkFailed(ctx, listing.ID, err.Error()); markErr != nil {
				return report, markErr
			}
			s.logger.Warn("listing sync failed",
				slog.String("channel", name),
				slog.Int64("listing_id", listing.ID),
				slog.Any("error", err))
			continue
		}
		if err := s.repo.MarkListed(ctx, listing.ID, ref, s.now()); err != nil {
			return report, err
		}
		report.Synced++
	}
	return report, nil
}

// SyncAll runs SyncChannel for every configured channel concurrently and
// returns the aggregated report. The first storage error cancels the rest.
func (s *Service) SyncAll(ctx context.Context) (SyncReport, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	total := SyncReport{}
	for name := range s.channels {
		g.Go(func() error {
			report, err := s.SyncChannel(ctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			total.Synced += report.Synced
			total.Failed += report.Failed
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}
