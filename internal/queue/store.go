package queue

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store persists render jobs. Every queue mutation writes through to
// sqlite before it is observable, so a restart can reconstruct the
// pending backlog.
type Store struct {
	conn *sql.DB
}

func NewStore(conn *sql.DB) *Store {
	return &Store{conn: conn}
}

const jobColumns = `id, status, hook_clip_id, hook_caption, body_script, body_audio_file,
	cta_tagline, output_name, source_file, start_sec, duration_sec, result, error,
	created_at, updated_at`

func (s *Store) Create(job Job) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.conn.Exec(
		`INSERT INTO render_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Status), job.HookClipID, job.HookCaption, job.BodyScript,
		job.BodyAudioFile, job.CTATagline, job.OutputName, job.SourceFile,
		job.StartSeconds, job.DurationSeconds, job.Result, job.Error, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *Store) Get(id string) (Job, error) {
	row := s.conn.QueryRow(`SELECT `+jobColumns+` FROM render_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Job{}, fmt.Errorf("load job: %w", err)
	}
	return job, nil
}

// List returns all jobs, most recently created first.
func (s *Store) List() ([]Job, error) {
	rows, err := s.conn.Query(`SELECT ` + jobColumns + ` FROM render_jobs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Pending returns queued jobs in submission order, for re-enqueueing
// after a restart.
func (s *Store) Pending() ([]Job, error) {
	rows, err := s.conn.Query(
		`SELECT `+jobColumns+` FROM render_jobs WHERE status = ? ORDER BY created_at ASC, id ASC`,
		string(StatusQueued))
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) Delete(id string) error {
	res, err := s.conn.Exec(`DELETE FROM render_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) SetStatus(id string, status Status) error {
	return s.update(id, `UPDATE render_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), nowText(), id)
}

func (s *Store) SetResult(id, result string) error {
	return s.update(id, `UPDATE render_jobs SET status = ?, result = ?, updated_at = ? WHERE id = ?`,
		string(StatusDone), result, nowText(), id)
}

func (s *Store) SetError(id, message string) error {
	return s.update(id, `UPDATE render_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(StatusError), message, nowText(), id)
}

// MarkInterrupted fails any job left running by a previous process.
func (s *Store) MarkInterrupted() (int64, error) {
	res, err := s.conn.Exec(
		`UPDATE render_jobs SET status = ?, error = 'interrupted by restart', updated_at = ? WHERE status = ?`,
		string(StatusError), nowText(), string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("mark interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) update(id, query string, args ...any) error {
	res, err := s.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var status, created, updated string
	err := row.Scan(
		&job.ID, &status, &job.HookClipID, &job.HookCaption, &job.BodyScript,
		&job.BodyAudioFile, &job.CTATagline, &job.OutputName, &job.SourceFile,
		&job.StartSeconds, &job.DurationSeconds, &job.Result, &job.Error,
		&created, &updated,
	)
	if err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return job, nil
}

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
