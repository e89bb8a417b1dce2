package lightenv

import (
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/google/uuid"
)

// Manager ticks every registered accumulator. The SH gather runs on a worker
// pool; light synthesis and sink calls run on the calling goroutine in
// registration order.
type Manager struct {
	pool  worker.DynamicWorkerPool
	order []uuid.UUID
	byID  map[uuid.UUID]*Accumulator

	// scratch for one tick
	run  []bool
	full []bool
}

// NewManager creates a manager with the given number of gather workers.
// workers <= 0 uses GOMAXPROCS.
func NewManager(workers int) *Manager {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Manager{
		pool: worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		byID: make(map[uuid.UUID]*Accumulator),
	}
}

func (m *Manager) Add(a *Accumulator) {
	if _, ok := m.byID[a.ID]; ok {
		panic("lightenv: accumulator " + a.ID.String() + " already registered")
	}
	m.byID[a.ID] = a
	m.order = append(m.order, a.ID)
}

// Remove destroys the accumulator's lights and forgets it.
func (m *Manager) Remove(id uuid.UUID) {
	a, ok := m.byID[id]
	if !ok {
		return
	}
	a.Destroy()
	delete(m.byID, id)
	m.order = slices.DeleteFunc(m.order, func(o uuid.UUID) bool { return o == id })
}

func (m *Manager) Get(id uuid.UUID) *Accumulator { return m.byID[id] }

func (m *Manager) Len() int { return len(m.order) }

// Tick advances all accumulators by dt at world time now.
func (m *Manager) Tick(dt float32, now float64) {
	n := len(m.order)
	m.run = slices.Grow(m.run[:0], n)[:n]
	m.full = slices.Grow(m.full[:0], n)[:n]

	var wg sync.WaitGroup
	for i, id := range m.order {
		a := m.byID[id]
		m.run[i], m.full[i] = a.beginTick(now)
		if !m.run[i] {
			continue
		}
		wg.Add(1)
		full := m.full[i]
		m.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				a.UpdateEnvironment(dt, now, full, false)
				return nil, nil
			},
		})
	}
	wg.Wait()

	for i, id := range m.order {
		if m.run[i] {
			m.byID[id].finishTick()
		}
	}
}

// Stop destroys every accumulator and releases the workers.
func (m *Manager) Stop() {
	for _, id := range m.order {
		m.byID[id].Destroy()
	}
	m.order = nil
	clear(m.byID)
	m.pool.Stop()
}
