package llmcall

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists LLM call records in a SQLite database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the call database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serialises writers from concurrent stage workers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// init creates the necessary tables if they don't exist
func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS llm_calls (
			id             TEXT PRIMARY KEY,
			timestamp      TEXT NOT NULL,
			latency_ms     INTEGER NOT NULL,
			stage          TEXT NOT NULL DEFAULT '',
			source         TEXT NOT NULL DEFAULT '',
			prompt_key     TEXT NOT NULL DEFAULT '',
			prompt_hash    TEXT NOT NULL DEFAULT '',
			provider       TEXT NOT NULL DEFAULT '',
			model          TEXT NOT NULL DEFAULT '',
			temperature    REAL,
			input_tokens   INTEGER NOT NULL DEFAULT 0,
			output_tokens  INTEGER NOT NULL DEFAULT 0,
			cost_usd       REAL NOT NULL DEFAULT 0,
			attempts       INTEGER NOT NULL DEFAULT 0,
			response       TEXT,
			success        INTEGER NOT NULL,
			error_type     TEXT NOT NULL DEFAULT '',
			error          TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_llm_calls_timestamp ON llm_calls(timestamp);
		CREATE INDEX IF NOT EXISTS idx_llm_calls_stage ON llm_calls(stage);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores a call.
func (s *Store) Insert(ctx context.Context, c *Call) error {
	var temp sql.NullFloat64
	if c.Temperature != nil {
		temp = sql.NullFloat64{Float64: *c.Temperature, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_calls (
			id, timestamp, latency_ms, stage, source, prompt_key, prompt_hash,
			provider, model, temperature, input_tokens, output_tokens, cost_usd,
			attempts, response, success, error_type, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.Timestamp.UTC().Format(time.RFC3339Nano), c.LatencyMs, c.Stage, c.Source,
		c.PromptKey, c.PromptHash, c.Provider, c.Model, temp, c.InputTokens,
		c.OutputTokens, c.CostUSD, c.Attempts, c.Response, c.Success, c.ErrorType, c.Error,
	)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	Stage    string
	Source   string
	Provider string
	Success  *bool
	After    *time.Time
	Limit    int
	Offset   int
}

func (f QueryFilter) where() (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if f.Stage != "" {
		conditions = append(conditions, "stage = ?")
		args = append(args, f.Stage)
	}
	if f.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, f.Source)
	}
	if f.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, f.Provider)
	}
	if f.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *f.Success)
	}
	if f.After != nil {
		conditions = append(conditions, "timestamp > ?")
		args = append(args, f.After.UTC().Format(time.RFC3339Nano))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

const callColumns = `id, timestamp, latency_ms, stage, source, prompt_key, prompt_hash,
	provider, model, temperature, input_tokens, output_tokens, cost_usd,
	attempts, response, success, error_type, error`

// Get retrieves a single LLM call by ID. It returns nil when no call matches.
func (s *Store) Get(ctx context.Context, id string) (*Call, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+callColumns+` FROM llm_calls WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	calls, err := scanCalls(rows)
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, nil
	}
	return &calls[0], nil
}

// List retrieves LLM calls matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	where, args := filter.where()
	query := `SELECT ` + callColumns + ` FROM llm_calls` + where + ` ORDER BY timestamp DESC`
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return scanCalls(rows)
}

func scanCalls(rows *sql.Rows) ([]Call, error) {
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var (
			c        Call
			ts       string
			temp     sql.NullFloat64
			response sql.NullString
		)
		if err := rows.Scan(
			&c.ID, &ts, &c.LatencyMs, &c.Stage, &c.Source, &c.PromptKey, &c.PromptHash,
			&c.Provider, &c.Model, &temp, &c.InputTokens, &c.OutputTokens, &c.CostUSD,
			&c.Attempts, &response, &c.Success, &c.ErrorType, &c.Error,
		); err != nil {
			return nil, fmt.Errorf("scan llm call: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		c.Timestamp = parsed
		if temp.Valid {
			v := temp.Float64
			c.Temperature = &v
		}
		c.Response = response.String
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// Stats aggregates calls.
type Stats struct {
	Stage        string  `json:"stage" yaml:"stage"`
	Calls        int     `json:"calls" yaml:"calls"`
	Succeeded    int     `json:"succeeded" yaml:"succeeded"`
	Failed       int     `json:"failed" yaml:"failed"`
	InputTokens  int     `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int     `json:"output_tokens" yaml:"output_tokens"`
	CostUSD      float64 `json:"cost_usd" yaml:"cost_usd"`
	AvgLatencyMs float64 `json:"avg_latency_ms" yaml:"avg_latency_ms"`
}

// Stats returns per-stage aggregates for calls matching filter, ordered by
// stage name. Limit and Offset are ignored.
func (s *Store) Stats(ctx context.Context, filter QueryFilter) ([]Stats, error) {
	where, args := filter.where()
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage,
			COUNT(*),
			COALESCE(SUM(success), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(cost_usd), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM llm_calls`+where+`
		GROUP BY stage
		ORDER BY stage`, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []Stats
	for rows.Next() {
		var st Stats
		if err := rows.Scan(&st.Stage, &st.Calls, &st.Succeeded, &st.InputTokens,
			&st.OutputTokens, &st.CostUSD, &st.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		st.Failed = st.Calls - st.Succeeded
		out = append(out, st)
	}
	return out, rows.Err()
}
