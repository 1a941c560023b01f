package allocator

import (
	"sort"

	"github.com/fentz26/allot/internal/models"
)

// Queue is an immutable, priority-ordered view of submitted tasks.
type Queue struct {
	tasks []models.Task
}

// NewQueue orders tasks by descending priority. Equal priorities keep their
// submission order.
func NewQueue(tasks []models.Task) *Queue {
	ordered := make([]models.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return &Queue{tasks: ordered}
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Tasks returns a copy of the queue in processing order.
func (q *Queue) Tasks() []models.Task {
	out := make([]models.Task, len(q.tasks))
	copy(out, q.tasks)
	return out
}

// Each visits the tasks in processing order.
func (q *Queue) Each(fn func(models.Task)) {
	for _, t := range q.tasks {
		fn(t)
	}
}
