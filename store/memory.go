package store

import (
	"context"
	"sync"
	"time"
)

type result struct {
	gameID int64
	player string
	won    bool
	points int
}

// InMemoryStore keeps results for the lifetime of the process
type InMemoryStore struct {
	mu      sync.Mutex
	games   map[int64]*Game
	results []result
	nextID  int64
}

// NewInMemoryStore constructs an InMemoryStore
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{games: map[int64]*Game{}}
}

func (s *InMemoryStore) NewGame(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.games[s.nextID] = &Game{ID: s.nextID, StartedAt: time.Now()}
	return s.nextID, nil
}

func (s *InMemoryStore) game(id int64) (*Game, error) {
	g, ok := s.games[id]
	if !ok {
		return nil, ErrUnknownGame
	}
	return g, nil
}

func (s *InMemoryStore) PlayerWins(ctx context.Context, gameID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.game(gameID); err != nil {
		return err
	}
	s.results = append(s.results, result{gameID: gameID, player: name, won: true})
	return nil
}

func (s *InMemoryStore) PlayerLost(ctx context.Context, gameID int64, name string, at time.Time, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.game(gameID); err != nil {
		return err
	}
	s.results = append(s.results, result{gameID: gameID, player: name, points: points})
	return nil
}

func (s *InMemoryStore) GameEnded(ctx context.Context, gameID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.game(gameID)
	if err != nil {
		return err
	}
	now := time.Now()
	g.EndedAt = &now
	return nil
}

func (s *InMemoryStore) Turn(ctx context.Context, gameID int64, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.game(gameID)
	if err != nil {
		return err
	}
	g.Turns = n
	return nil
}

// Game returns the stored round with id
func (s *InMemoryStore) Game(ctx context.Context, id int64) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.game(id)
	if err != nil {
		return Game{}, err
	}
	return *g, nil
}

// Scores returns the best limit players, all of them when limit is zero
func (s *InMemoryStore) Scores(ctx context.Context, limit int) ([]Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPlayer := map[string]*Score{}
	seen := map[string]map[int64]bool{}
	for _, r := range s.results {
		sc, ok := byPlayer[r.player]
		if !ok {
			sc = &Score{Player: r.player}
			byPlayer[r.player] = sc
			seen[r.player] = map[int64]bool{}
		}
		if !seen[r.player][r.gameID] {
			seen[r.player][r.gameID] = true
			sc.Games++
		}
		if r.won {
			sc.Wins++
		}
		sc.Points += r.points
	}

	scores := make([]Score, 0, len(byPlayer))
	for _, sc := range byPlayer {
		scores = append(scores, *sc)
	}
	return rank(scores, limit), nil
}
