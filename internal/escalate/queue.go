// Package escalate keeps a durable record of cases the pipeline could not
// resolve on its own. Tasks are only ever resolved by an operator and are
// never deleted, so the queue doubles as an audit trail.
package escalate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Task statuses.
const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
)

// Task is one case requiring manual follow-up.
type Task struct {
	ID          string          `json:"task_id"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	History     []string        `json:"history"`
}

// Queue is the durable escalation queue. It is not safe for concurrent use.
type Queue struct {
	path  string
	tasks []Task
}

// NewQueue loads the queue persisted at path, or starts empty when the file
// does not exist. An unreadable or corrupt queue file is fatal: silently
// dropping pending escalations would lose the audit trail.
func NewQueue(path string) (*Queue, error) {
	q := &Queue{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read escalation queue %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &q.tasks); err != nil {
		return nil, fmt.Errorf("corrupt escalation queue %s: %w", path, err)
	}
	return q, nil
}

// Enqueue records a new pending task. The payload is any JSON-encodable
// value; encoding failures fall back to a quoted string so an escalation is
// never dropped because its payload was awkward.
func (q *Queue) Enqueue(kind, description string, payload any) Task {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(fmt.Sprintf("%+v", payload))
	}
	task := Task{
		ID:          uuid.NewString(),
		Kind:        kind,
		Description: description,
		Payload:     raw,
		Status:      StatusPending,
	}
	q.tasks = append(q.tasks, task)
	return task
}

// Tasks returns every task in arrival order.
func (q *Queue) Tasks() []Task {
	out := make([]Task, len(q.tasks))
	copy(out, q.tasks)
	return out
}

// NextPending returns the oldest pending task, if any.
func (q *Queue) NextPending() (Task, bool) {
	for _, task := range q.tasks {
		if task.Status == StatusPending {
			return task, true
		}
	}
	return Task{}, false
}

// Resolve marks the task resolved and appends note to its history.
// Returns false when no task has the given id.
func (q *Queue) Resolve(id, note string) bool {
	for i := range q.tasks {
		if q.tasks[i].ID != id {
			continue
		}
		q.tasks[i].Status = StatusResolved
		if note != "" {
			q.tasks[i].History = append(q.tasks[i].History, note)
		}
		return true
	}
	return false
}

// Save persists the queue to its path.
func (q *Queue) Save() error {
	data, err := json.MarshalIndent(q.tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode escalation queue: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("failed to create queue directory: %w", err)
	}
	if err := os.WriteFile(q.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write escalation queue %s: %w", q.path, err)
	}
	return nil
}
