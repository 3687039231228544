package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"storyreel/internal/render"
	"storyreel/internal/services"
)

// Record is one row of job history.
type Record struct {
	ID           string
	Title        string
	Source       string
	OutputPath   string
	PublishedURL string
	State        render.State
	FailedIn     render.State
	ErrorKind    string
	ErrorMessage string
	Elapsed      time.Duration
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// Terminal reports whether the job has finished.
func (r Record) Terminal() bool {
	return r.State.Terminal()
}

const selectColumns = `id, title, source, output_path, published_url, state, failed_in,
	error_kind, error_message, elapsed_ms, created_at, updated_at, finished_at`

// Enqueue inserts an accepted job in the QUEUED state.
func (s *Store) Enqueue(ctx context.Context, record render.JobRecord) error {
	return s.insert(ctx, "enqueue", record, render.StateQueued)
}

// Begin moves a queued job to INIT, or inserts it in INIT when it was
// never queued. Beginning a job that already started is an error.
func (s *Store) Begin(ctx context.Context, record render.JobRecord) error {
	return s.insert(ctx, "begin", record, render.StateInit)
}

func (s *Store) insert(ctx context.Context, op string, record render.JobRecord, state render.State) error {
	if strings.TrimSpace(record.ID) == "" {
		return services.Wrap(services.ErrValidation, "jobs", op, "job id is empty", nil)
	}
	created := record.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	now := s.timestamp()
	res, err := s.exec(ctx, `INSERT INTO render_jobs
		(id, title, source, output_path, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state, title = excluded.title, source = excluded.source,
			output_path = excluded.output_path, updated_at = excluded.updated_at
		WHERE render_jobs.state = ? AND excluded.state = ?`,
		record.ID, record.Title, record.Source, record.OutputPath, string(state),
		created.UTC().Format(timeLayout), now,
		string(render.StateQueued), string(render.StateInit))
	if err != nil {
		return fmt.Errorf("%s job %s: %w", op, record.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrValidation, "jobs", op, "job "+record.ID+" already exists", nil)
	}
	return nil
}

// Transition records the job's new pipeline state.
func (s *Store) Transition(ctx context.Context, jobID string, state render.State) error {
	res, err := s.exec(ctx, `UPDATE render_jobs SET state = ?, updated_at = ? WHERE id = ?`,
		string(state), s.timestamp(), jobID)
	if err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	return requireRow(res, jobID)
}

// Finish records the outcome of a job.
func (s *Store) Finish(ctx context.Context, result render.Result) error {
	var kind, message string
	if result.Err != nil {
		kind = services.Kind(result.Err)
		message = result.Err.Error()
	}
	now := s.timestamp()
	res, err := s.exec(ctx, `UPDATE render_jobs SET
		state = ?, failed_in = ?, output_path = CASE WHEN ? = '' THEN output_path ELSE ? END,
		published_url = ?, error_kind = ?, error_message = ?, elapsed_ms = ?,
		updated_at = ?, finished_at = ?
		WHERE id = ?`,
		string(result.State), string(result.FailedIn), result.OutputPath, result.OutputPath,
		result.PublishedURL, kind, message, result.Elapsed.Milliseconds(),
		now, now, result.JobID)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", result.JobID, err)
	}
	return requireRow(res, result.JobID)
}

func requireRow(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.Wrap(services.ErrNotFound, "jobs", "update", "job "+jobID, nil)
	}
	return nil
}

// Get returns a job by ID or a prefix of at least four characters.
func (s *Store) Get(ctx context.Context, idOrPrefix string) (Record, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if len(idOrPrefix) < 4 {
		return Record{}, services.Wrap(services.ErrValidation, "jobs", "get", "job id needs at least 4 characters", nil)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM render_jobs WHERE id = ? OR id LIKE ? ORDER BY created_at DESC LIMIT 2`,
		idOrPrefix, escapeLike(idOrPrefix)+"%")
	if err != nil {
		return Record{}, fmt.Errorf("get job: %w", err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return Record{}, err
	}
	switch {
	case len(records) == 0:
		return Record{}, services.Wrap(services.ErrNotFound, "jobs", "get", "job "+idOrPrefix, nil)
	case len(records) > 1 && records[0].ID != idOrPrefix && records[1].ID != idOrPrefix:
		return Record{}, services.Wrap(services.ErrValidation, "jobs", "get", "job id prefix "+idOrPrefix+" is ambiguous", nil)
	case len(records) > 1 && records[1].ID == idOrPrefix:
		return records[1], nil
	}
	return records[0], nil
}

// ListFilter narrows List.
type ListFilter struct {
	States []render.State
	Limit  int
}

// List returns jobs newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM render_jobs`
	var args []any
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		query += ` WHERE state IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return scanRecords(rows)
}

// Stats counts jobs per state.
func (s *Store) Stats(ctx context.Context) (map[render.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM render_jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[render.State]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[render.State(state)] = count
	}
	return stats, rows.Err()
}

// MarkInterrupted fails every job left in a non-terminal state, which only
// happens when a previous process died mid-render. It returns the number of
// jobs updated.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	now := s.timestamp()
	res, err := s.exec(ctx, `UPDATE render_jobs SET
		failed_in = state, state = ?, error_kind = 'interrupted',
		error_message = 'process exited before the job finished', updated_at = ?, finished_at = ?
		WHERE state NOT IN (?, ?)`,
		string(render.StateFailed), now, now, string(render.StateCleanedUp), string(render.StateFailed))
	if err != nil {
		return 0, fmt.Errorf("mark interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished jobs created before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM render_jobs WHERE finished_at IS NOT NULL AND created_at < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var (
			r                    Record
			state, failedIn      string
			elapsedMS            int64
			createdAt, updatedAt string
			finishedAt           sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Source, &r.OutputPath, &r.PublishedURL, &state, &failedIn,
			&r.ErrorKind, &r.ErrorMessage, &elapsedMS, &createdAt, &updatedAt, &finishedAt); err != nil {
			return nil, err
		}
		r.State = render.State(state)
		r.FailedIn = render.State(failedIn)
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		if finishedAt.Valid {
			t := parseTime(finishedAt.String)
			r.FinishedAt = &t
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func escapeLike(value string) string {
	return strings.NewReplacer(`%`, ``, `_`, ``).Replace(value)
}

var _ render.JobStore = (*Store)(nil)
