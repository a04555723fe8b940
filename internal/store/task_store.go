package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/task-assistant/internal/model"
)

const taskColumns = `id, user_id, title, description, due_at, priority, status, origin, created_at, updated_at, completed_at`

// sortExpressions maps allowed sort fields to their ORDER BY expressions.
// Undated tasks always sort after dated ones.
var sortExpressions = map[string]func(dir string) string{
	"due_at": func(dir string) string {
		return "due_at IS NULL, due_at " + dir
	},
	"priority": func(dir string) string {
		return "CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END " + dir
	},
	"created_at": func(dir string) string { return "created_at " + dir },
	"updated_at": func(dir string) string { return "updated_at " + dir },
	"title":      func(dir string) string { return "title " + dir },
}

// CreateTask inserts a new task. Generates a UUID if ID is empty and fills
// default priority and status.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return nil, fmt.Errorf("task title must not be empty")
	}
	if task.UserID == "" {
		return nil, fmt.Errorf("task owner must not be empty")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if !task.Priority.Valid() {
		task.Priority = model.PriorityMedium
	}
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	task.CreatedAt = utc(task.CreatedAt)
	task.UpdatedAt = task.CreatedAt
	task.DueAt = utcPtr(task.DueAt)

	origin, err := model.MarshalOrigin(task.Origin)
	if err != nil {
		return nil, fmt.Errorf("marshaling origin for task %s: %w", task.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Description, task.DueAt,
		string(task.Priority), string(task.Status), origin,
		task.CreatedAt, task.UpdatedAt, utcPtr(task.CompletedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &task, nil
}

// GetTaskByID retrieves a single task by its ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &task, nil
}

// FindTasks retrieves tasks matching the provided filter.
func (s *SQLiteStore) FindTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query, args := buildTaskQuery(filter)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// buildTaskQuery constructs the SQL query and args for a TaskFilter.
func buildTaskQuery(filter TaskFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.DueFrom != nil {
		conditions = append(conditions, "due_at >= ?")
		args = append(args, utc(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		conditions = append(conditions, "due_at < ?")
		args = append(args, utc(*filter.DueTo))
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var order []string
	for _, key := range filter.Sort {
		expr, ok := sortExpressions[key.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		order = append(order, expr(dir))
	}
	// id keeps ties deterministic.
	order = append(order, "id ASC")
	query += " ORDER BY " + strings.Join(order, ", ")

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return query, args
}

// UpdateTask rewrites the editable fields of an existing task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.Task) error {
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if !task.Priority.Valid() {
		task.Priority = model.PriorityMedium
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, due_at = ?, priority = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, task.Description, utcPtr(task.DueAt), string(task.Priority),
		utc(task.UpdatedAt), task.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	rows, _ := result.RowsAffected()
	return notFoundIfNone(rows, "task", task.ID)
}

// TransitionTask moves a task from one status to another atomically. It
// fails with ErrInvalidTransition when the task is not currently in from,
// and with ErrNotFound when it does not exist.
func (s *SQLiteStore) TransitionTask(
	ctx context.Context,
	id string,
	from, to model.TaskStatus,
	at time.Time,
) error {
	if !allowedTransition(from, to) {
		return fmt.Errorf("task %s %s -> %s: %w", id, from, to, ErrInvalidTransition)
	}

	var completedAt *time.Time
	if to == model.TaskStatusDone {
		t := utc(at)
		completedAt = &t
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, updated_at = ?, completed_at = COALESCE(?, completed_at)
		WHERE id = ? AND status = ?`,
		string(to), utc(at), completedAt, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("transitioning task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 1 {
		return nil
	}

	if _, err := s.GetTaskByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("task %s is not %s: %w", id, from, ErrInvalidTransition)
}

func allowedTransition(from, to model.TaskStatus) bool {
	switch from {
	case model.TaskStatusPending:
		return to == model.TaskStatusDone || to == model.TaskStatusOverdue
	case model.TaskStatusOverdue:
		return to == model.TaskStatusDone
	default:
		return false
	}
}

// MarkOverdue flips every pending task whose due time has passed to overdue
// and returns the number of tasks changed.
func (s *SQLiteStore) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'overdue', updated_at = ?
		WHERE status = 'pending' AND due_at IS NOT NULL AND due_at < ?`,
		utc(now), utc(now),
	)
	if err != nil {
		return 0, fmt.Errorf("marking overdue tasks: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// DeleteTask removes a task by ID. Cascades to its reminders.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	return notFoundIfNone(rows, "task", id)
}

// scanTask scans a task row selected with taskColumns.
func scanTask(row rowScanner) (model.Task, error) {
	var (
		task        model.Task
		priority    string
		status      string
		origin      string
		dueAt       *time.Time
		completedAt *time.Time
	)

	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description, &dueAt,
		&priority, &status, &origin,
		&task.CreatedAt, &task.UpdatedAt, &completedAt,
	)
	if err != nil {
		return model.Task{}, err
	}

	task.Priority = model.Priority(priority)
	task.Status = model.TaskStatus(status)
	task.DueAt = dueAt
	task.CompletedAt = completedAt

	task.Origin, err = model.UnmarshalOrigin(origin)
	if err != nil {
		return model.Task{}, fmt.Errorf("unmarshaling origin: %w", err)
	}
	return task, nil
}
