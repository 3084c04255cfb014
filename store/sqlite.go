package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at INTEGER NOT NULL,
	ended_at INTEGER,
	turns INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS results (
	game_id INTEGER NOT NULL REFERENCES games(id),
	player TEXT NOT NULL,
	won INTEGER NOT NULL,
	points INTEGER NOT NULL,
	at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS results_player ON results (player);
`

// SQLiteStore keeps results in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite serialises writers, and every connection to :memory: is a new database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	log.Info("score store ready", zap.String("path", path))
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) NewGame(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO games (started_at) VALUES (?)", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to create game: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.log.Debug("game stored", zap.Int64("game_id", id))
	return id, nil
}

func (s *SQLiteStore) PlayerWins(ctx context.Context, gameID int64, name string) error {
	return s.addResult(ctx, gameID, name, true, 0, time.Now())
}

func (s *SQLiteStore) PlayerLost(ctx context.Context, gameID int64, name string, at time.Time, points int) error {
	return s.addResult(ctx, gameID, name, false, points, at)
}

func (s *SQLiteStore) addResult(ctx context.Context, gameID int64, name string, won bool, points int, at time.Time) error {
	if err := s.exists(ctx, gameID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO results (game_id, player, won, points, at) VALUES (?, ?, ?, ?, ?)",
		gameID, name, won, points, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to store result of %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) exists(ctx context.Context, gameID int64) error {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM games WHERE id = ?", gameID).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrUnknownGame
	}
	return err
}

func (s *SQLiteStore) update(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUnknownGame
	}
	return nil
}

func (s *SQLiteStore) GameEnded(ctx context.Context, gameID int64) error {
	return s.update(ctx, "UPDATE games SET ended_at = ? WHERE id = ?", time.Now().Unix(), gameID)
}

func (s *SQLiteStore) Turn(ctx context.Context, gameID int64, n int) error {
	return s.update(ctx, "UPDATE games SET turns = ? WHERE id = ?", n, gameID)
}

// Game returns the stored round with id
func (s *SQLiteStore) Game(ctx context.Context, id int64) (Game, error) {
	var (
		started int64
		ended   sql.NullInt64
		g       = Game{ID: id}
	)
	err := s.db.QueryRowContext(ctx, "SELECT started_at, ended_at, turns FROM games WHERE id = ?", id).
		Scan(&started, &ended, &g.Turns)
	if err == sql.ErrNoRows {
		return Game{}, ErrUnknownGame
	}
	if err != nil {
		return Game{}, err
	}

	g.StartedAt = time.Unix(started, 0)
	if ended.Valid {
		t := time.Unix(ended.Int64, 0)
		g.EndedAt = &t
	}
	return g, nil
}

// Scores returns the best limit players, all of them when limit is zero
func (s *SQLiteStore) Scores(ctx context.Context, limit int) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player, COUNT(DISTINCT game_id), SUM(won), SUM(points)
		FROM results
		GROUP BY player`)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	defer rows.Close()

	var scores []Score
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.Player, &sc.Games, &sc.Wins, &sc.Points); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rank(scores, limit), nil
}
