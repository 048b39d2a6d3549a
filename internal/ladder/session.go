package ladder

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Session holds the per-region credentials and current seasons for one run.
// It is built once before any fan-out and only read afterwards.
type Session struct {
	Regions []string
	tokens  map[string]string
	seasons map[string]int
}

// NewSession acquires a token and the current season for every region
// concurrently. Any region failing fails the session.
func NewSession(ctx context.Context, api LadderAPI, clientID, clientSecret string, regions []string) (*Session, error) {
	s := &Session{
		Regions: regions,
		tokens:  make(map[string]string, len(regions)),
		seasons: make(map[string]int, len(regions)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, region := range regions {
		g.Go(func() error {
			token, err := api.AccessToken(gctx, clientID, clientSecret, region)
			if err != nil {
				return fmt.Errorf("access token for %s: %w", region, err)
			}
			season, err := api.CurrentSeason(gctx, token, region)
			if err != nil {
				return fmt.Errorf("current season for %s: %w", region, err)
			}
			mu.Lock()
			s.tokens[region] = token
			s.seasons[region] = season
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Token(region string) string { return s.tokens[region] }

func (s *Session) Season(region string) int { return s.seasons[region] }

// GlobalSeason is the highest current season across regions.
func (s *Session) GlobalSeason() int {
	max := 0
	for _, season := range s.seasons {
		if season > max {
			max = season
		}
	}
	return max
}
