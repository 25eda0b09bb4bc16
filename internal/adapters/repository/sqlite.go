package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/internal/domain/questionnaire"
	"github.com/okian/dons/internal/domain/scoring"
	"github.com/okian/dons/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SQLiteStore is a Store backed by SQLite through sqlx.
type SQLiteStore struct {
	db    *sqlx.DB
	codec *IDCodec
}

type assessmentRow struct {
	ID           int64          `db:"id"`
	SubmissionID string         `db:"submission_id"`
	Name         string         `db:"name"`
	Organization string         `db:"organization"`
	Email        sql.NullString `db:"email"`
	Answers      string         `db:"answers"`
	Ranking      string         `db:"ranking"`
	CreatedAt    time.Time      `db:"created_at"`
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = MemoryDSN
	}
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == MemoryDSN {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		for _, pragma := range []string{"PRAGMA busy_timeout=5000", "PRAGMA journal_mode=WAL"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("set %s: %w", pragma, err)
			}
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, codec: s.codec}, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, a model.Assessment) (string, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordPersistenceLatency("create", metrics.Milliseconds(time.Since(start)))
	}()

	a, err := prepare(a)
	if err != nil {
		return "", false, err
	}
	row, err := toRow(a)
	if err != nil {
		return "", false, err
	}

	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO assessments (submission_id, name, organization, email, answers, ranking, created_at)
		VALUES (:submission_id, :name, :organization, :email, :answers, :ranking, :created_at)
		ON CONFLICT (submission_id) DO NOTHING`, row)
	if err != nil {
		return "", false, fmt.Errorf("insert assessment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("insert assessment: %w", err)
	}

	var n int64
	created := affected > 0
	if created {
		if n, err = res.LastInsertId(); err != nil {
			return "", false, fmt.Errorf("insert assessment: %w", err)
		}
	} else if err := s.db.GetContext(ctx, &n,
		`SELECT id FROM assessments WHERE submission_id = ?`, a.SubmissionID); err != nil {
		return "", false, fmt.Errorf("lookup existing assessment: %w", err)
	}

	id, err := s.codec.Encode(n)
	if err != nil {
		return "", false, err
	}
	return id, created, nil
}

// GetByID implements Store.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (model.Assessment, error) {
	start := time.Now()
	defer func() {
		metrics.RecordPersistenceLatency("get", metrics.Milliseconds(time.Since(start)))
	}()

	n, err := s.codec.Decode(id)
	if err != nil {
		return model.Assessment{}, err
	}
	var row assessmentRow
	err = s.db.GetContext(ctx, &row, `SELECT * FROM assessments WHERE id = ?`, n)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Assessment{}, ErrNotFound
	}
	if err != nil {
		return model.Assessment{}, fmt.Errorf("get assessment: %w", err)
	}
	return s.fromRow(row)
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]model.Assessment, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecordPersistenceLatency("list", metrics.Milliseconds(time.Since(start)))
	}()

	var rows []assessmentRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM assessments ORDER BY created_at DESC, id DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	out := make([]model.Assessment, 0, len(rows))
	for _, r := range rows {
		a, err := s.fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM assessments`); err != nil {
		return 0, fmt.Errorf("count assessments: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toRow(a model.Assessment) (assessmentRow, error) {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return assessmentRow{}, fmt.Errorf("encode answers: %w", err)
	}
	ranking, err := json.Marshal(a.Ranking)
	if err != nil {
		return assessmentRow{}, fmt.Errorf("encode ranking: %w", err)
	}
	return assessmentRow{
		SubmissionID: a.SubmissionID,
		Name:         a.Participant.Name,
		Organization: a.Participant.Organization,
		Email:        sql.NullString{String: a.Participant.Email, Valid: a.Participant.Email != ""},
		Answers:      string(answers),
		Ranking:      string(ranking),
		CreatedAt:    a.CreatedAt,
	}, nil
}

func (s *SQLiteStore) fromRow(r assessmentRow) (model.Assessment, error) {
	id, err := s.codec.Encode(r.ID)
	if err != nil {
		return model.Assessment{}, err
	}
	var answers questionnaire.Answers
	if err := json.Unmarshal([]byte(r.Answers), &answers); err != nil {
		return model.Assessment{}, fmt.Errorf("decode answers: %w", err)
	}
	var ranking scoring.Ranking
	if err := json.Unmarshal([]byte(r.Ranking), &ranking); err != nil {
		return model.Assessment{}, fmt.Errorf("decode ranking: %w", err)
	}
	return model.Assessment{
		ID:           id,
		SubmissionID: r.SubmissionID,
		Participant: model.Participant{
			Name:         r.Name,
			Organization: r.Organization,
			Email:        r.Email.String,
		},
		Answers:   answers,
		Ranking:   ranking,
		CreatedAt: r.CreatedAt.UTC(),
	}, nil
}
