package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskhub/internal/model"
)

const selectTask = `
	SELECT t.id::text, t.title, t.description, t.due_date, t.priority, t.status,
	       t.creator_id::text, t.assigned_to_id::text, t.version, t.created_at, t.updated_at,
	       c.name, c.email, a.name, a.email
	FROM tasks t
	JOIN users c ON c.id = t.creator_id
	LEFT JOIN users a ON a.id = t.assigned_to_id
`

type TaskRepo struct { // Репозиторий задач поверх PostgreSQL
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, due_date, priority, status, creator_id, assigned_to_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text
	`, t.Title, t.Description, t.DueDate, string(t.Priority), string(t.Status), t.CreatorID, t.AssignedToID).Scan(&id)
	if err != nil {
		return t, mapError(err)
	}
	return r.Get(ctx, id)
}

func (r *TaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	if !validID(id) {
		return model.Task{}, ErrorNotFound
	}

	t, err := scanTask(r.pool.QueryRow(ctx, selectTask+`WHERE t.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, mapError(err)
}

func (r *TaskRepo) ListForUser(ctx context.Context, userID string) ([]model.Task, error) {
	tasks := make([]model.Task, 0)
	if !validID(userID) {
		return tasks, nil
	}

	rows, err := r.pool.Query(ctx, selectTask+`
		WHERE t.creator_id = $1 OR t.assigned_to_id = $1
		ORDER BY t.created_at DESC, t.id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update applies p in a single statement. Without p.Version the last
// writer wins; with it the row only changes if the stored version matches.
func (r *TaskRepo) Update(ctx context.Context, id string, p model.TaskPatch) (model.Task, error) {
	if !validID(id) {
		return model.Task{}, ErrorNotFound
	}

	var (
		assignSet bool
		assignee  *string
	)
	if p.AssignedToID != nil {
		assignSet = true
		if *p.AssignedToID != "" {
			assignee = p.AssignedToID
		}
	}

	var updatedID string
	err := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    due_date = COALESCE($4, due_date),
		    priority = COALESCE($5, priority),
		    status = COALESCE($6, status),
		    assigned_to_id = CASE WHEN $7 THEN $8::uuid ELSE assigned_to_id END,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND ($9::int IS NULL OR version = $9)
		RETURNING id::text
	`, id, p.Title, p.Description, p.DueDate, textPtr(p.Priority), textPtr(p.Status), assignSet, assignee, p.Version).Scan(&updatedID)

	if errors.Is(err, pgx.ErrNoRows) {
		if p.Version != nil {
			if _, getErr := r.Get(ctx, id); getErr == nil {
				return model.Task{}, ErrorConflict
			}
		}
		return model.Task{}, ErrorNotFound
	}
	if err != nil {
		return model.Task{}, mapError(err)
	}
	return r.Get(ctx, updatedID)
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrorNotFound
	}

	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, key, userID, taskID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, user_id, task_id) VALUES ($1, $2, $3)
		ON CONFLICT (key, user_id) DO NOTHING
	`, key, userID, taskID)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, key, userID string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT task_id::text FROM idempotency_keys WHERE key = $1 AND user_id = $2
	`, key, userID).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrorNotFound
	}
	return id, err
}

func (r *TaskRepo) GetStats(ctx context.Context, userID string) (model.TaskStats, error) {
	stats := newStats()
	if !validID(userID) {
		return stats, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM tasks
		WHERE creator_id = $1 OR assigned_to_id = $1
		GROUP BY status
	`, userID)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		stats.ByStatus[model.Status(status)] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t                           model.Task
		priority, status            string
		creatorName, creatorEmail   string
		assigneeName, assigneeEmail *string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.DueDate, &priority, &status,
		&t.CreatorID, &t.AssignedToID, &t.Version, &t.CreatedAt, &t.UpdatedAt,
		&creatorName, &creatorEmail, &assigneeName, &assigneeEmail,
	)
	if err != nil {
		return model.Task{}, err
	}

	t.Priority = model.Priority(priority)
	t.Status = model.Status(status)
	t.Creator = &model.UserRef{ID: t.CreatorID, Name: creatorName, Email: creatorEmail}
	if t.AssignedToID != nil && assigneeName != nil && assigneeEmail != nil {
		t.AssignedTo = &model.UserRef{ID: *t.AssignedToID, Name: *assigneeName, Email: *assigneeEmail}
	}
	return t, nil
}

func textPtr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrorConflict
		case "23503": // foreign_key_violation
			return ErrorInvalidReference
		case "22P02": // invalid_text_representation
			return ErrorNotFound
		}
	}
	return err
}
