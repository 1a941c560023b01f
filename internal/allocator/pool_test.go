package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/allot/internal/models"
)

func newTestPool(t *testing.T, resources ...models.Resource) *Pool {
	t.Helper()
	p, err := NewPool(resources)
	require.NoError(t, err)
	return p
}

func TestPool_AvailableUnknownIsZero(t *testing.T) {
	p := newTestPool(t, resource("wood", 10, 2))

	assert.Equal(t, 10.0, p.Available("wood"))
	assert.Equal(t, 0.0, p.Available("steel"))
	assert.False(t, p.Has("steel"))
	assert.Equal(t, 2.0, p.UnitCost("wood"))
}

func TestPool_Commit(t *testing.T) {
	p := newTestPool(t, resource("wood", 10, 2))

	assert.True(t, p.Commit("wood", 4))
	assert.Equal(t, 6.0, p.Available("wood"))

	assert.False(t, p.Commit("wood", 7), "over-commit rejected")
	assert.Equal(t, 6.0, p.Available("wood"), "failed commit leaves pool untouched")

	assert.False(t, p.Commit("wood", -1))
	assert.False(t, p.Commit("steel", 1))

	assert.True(t, p.Commit("wood", 6))
	assert.Equal(t, 0.0, p.Available("wood"))
}

func TestPool_Snapshot(t *testing.T) {
	p := newTestPool(t, resource("wood", 10, 2), resource("nails", 100, 0.1))
	require.True(t, p.Commit("wood", 5))

	snap := p.Snapshot()
	assert.Equal(t, models.ResourceUsage{Initial: 10, Used: 5, Remaining: 5, PercentUsed: 50}, snap["wood"])
	assert.Equal(t, models.ResourceUsage{Initial: 100, Used: 0, Remaining: 100, PercentUsed: 0}, snap["nails"])
	assert.Equal(t, []string{"wood", "nails"}, p.Names())
}

func TestPool_DuplicateName(t *testing.T) {
	_, err := NewPool([]models.Resource{resource("wood", 1, 1), resource("wood", 1, 1)})
	require.Error(t, err)
	assert.Equal(t, `duplicate resource "wood"`, err.Error())
}

func TestReservation_AllOrNothing(t *testing.T) {
	p := newTestPool(t, resource("wood", 10, 2), resource("nails", 5, 0.1))

	r := p.Reserve()
	require.True(t, r.Add("wood", 6))
	require.True(t, r.Add("nails", 5))
	assert.False(t, r.Add("wood", 5), "staged quantity counts against availability")
	assert.Equal(t, 10.0, p.Available("wood"), "staging does not mutate the pool")

	require.True(t, r.Apply())
	assert.Equal(t, 4.0, p.Available("wood"))
	assert.Equal(t, 0.0, p.Available("nails"))
	assert.Equal(t, map[string]float64{"wood": 6, "nails": 5}, r.Lines())
}

func TestReservation_ApplyFailsWithoutPartialCommit(t *testing.T) {
	p := newTestPool(t, resource("wood", 10, 2), resource("nails", 5, 0.1))

	r := p.Reserve()
	require.True(t, r.Add("wood", 6))
	require.True(t, r.Add("nails", 5))

	// Another commit lands between staging and applying.
	require.True(t, p.Commit("nails", 1))

	assert.False(t, r.Apply())
	assert.Equal(t, 10.0, p.Available("wood"))
	assert.Equal(t, 4.0, p.Available("nails"))
}

func TestReservation_RejectsUnknownAndNegative(t *testing.T) {
	p := newTestPool(t, resource("wood", 10, 2))
	r := p.Reserve()

	assert.False(t, r.Add("steel", 1))
	assert.False(t, r.Add("wood", -2))
	assert.Empty(t, r.Lines())
	assert.True(t, r.Apply(), "empty reservation applies trivially")
}

func TestQueue_StableDescendingPriority(t *testing.T) {
	q := NewQueue([]models.Task{
		task("a", 3, 0),
		task("b", 10, 0),
		task("c", 3, 0),
		task("d", 1, 0),
		task("e", 10, 0),
	})

	var names []string
	q.Each(func(t models.Task) { names = append(names, t.Name) })
	assert.Equal(t, []string{"b", "e", "a", "c", "d"}, names)
	assert.Equal(t, 5, q.Len())
}
