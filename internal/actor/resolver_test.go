package actor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Tenderflow/internal/domain"
)

type fakeDirectory struct {
	users map[domain.Role][]domain.User
	err   error
}

func (d *fakeDirectory) ListActiveByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.users[role], nil
}

type fakeWorkload map[uuid.UUID]int

func (w fakeWorkload) CountActiveAssignments(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int)
	for _, id := range ids {
		if n, ok := w[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func users(n int, role domain.Role) []domain.User {
	out := make([]domain.User, n)
	for i := range out {
		out[i] = domain.User{ID: uuid.New(), Role: role, IsActive: true}
	}
	return out
}

func TestNew_Strategies(t *testing.T) {
	dir := &fakeDirectory{}

	r, err := New(Config{Directory: dir})
	require.NoError(t, err)
	assert.IsType(t, &FirstMatch{}, r)

	r, err = New(Config{Strategy: StrategyRoundRobin, Directory: dir})
	require.NoError(t, err)
	assert.IsType(t, &RoundRobin{}, r)

	_, err = New(Config{Strategy: StrategyLeastLoaded, Directory: dir})
	assert.Error(t, err, "least_loaded needs workload")

	_, err = New(Config{Strategy: "random", Directory: dir})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = New(Config{})
	assert.Error(t, err)
}

func TestFirstMatch_PicksFirstByStableOrder(t *testing.T) {
	treasurers := users(3, domain.RoleTreasurer)
	r, err := New(Config{Directory: &fakeDirectory{users: map[domain.Role][]domain.User{
		domain.RoleTreasurer: treasurers,
	}}})
	require.NoError(t, err)

	for range 3 {
		id, err := r.Resolve(context.Background(), domain.RoleTreasurer)
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, treasurers[0].ID, *id)
	}
}

func TestResolve_NoUsersIsUnassigned(t *testing.T) {
	dir := &fakeDirectory{users: map[domain.Role][]domain.User{}}

	for _, s := range []Strategy{StrategyFirstMatch, StrategyRoundRobin, StrategyLeastLoaded} {
		r, err := New(Config{Strategy: s, Directory: dir, Workload: fakeWorkload{}})
		require.NoError(t, err)

		id, err := r.Resolve(context.Background(), domain.RoleStateControl)
		assert.NoError(t, err, s)
		assert.Nil(t, id, s)
	}
}

func TestResolve_DirectoryErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	r, err := New(Config{Directory: &fakeDirectory{err: boom}})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), domain.RoleTreasurer)
	assert.ErrorIs(t, err, boom)
}

func TestRoundRobin_Cycles(t *testing.T) {
	markets := users(3, domain.RoleMarketsService)
	r, err := New(Config{Strategy: StrategyRoundRobin, Directory: &fakeDirectory{users: map[domain.Role][]domain.User{
		domain.RoleMarketsService: markets,
	}}})
	require.NoError(t, err)

	var got []uuid.UUID
	for range 6 {
		id, err := r.Resolve(context.Background(), domain.RoleMarketsService)
		require.NoError(t, err)
		got = append(got, *id)
	}

	assert.Equal(t, []uuid.UUID{
		markets[0].ID, markets[1].ID, markets[2].ID,
		markets[0].ID, markets[1].ID, markets[2].ID,
	}, got)
}

func TestRoundRobin_ConcurrentSafe(t *testing.T) {
	budget := users(4, domain.RoleBudgetService)
	r, err := New(Config{Strategy: StrategyRoundRobin, Directory: &fakeDirectory{users: map[domain.Role][]domain.User{
		domain.RoleBudgetService: budget,
	}}})
	require.NoError(t, err)

	var mu sync.Mutex
	hits := make(map[uuid.UUID]int)

	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Resolve(context.Background(), domain.RoleBudgetService)
			if err != nil || id == nil {
				return
			}
			mu.Lock()
			hits[*id]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, u := range budget {
		assert.Equal(t, 10, hits[u.ID])
	}
}

func TestLeastLoaded_PicksLowestWithStableTieBreak(t *testing.T) {
	tech := users(3, domain.RoleTechnicalService)
	dir := &fakeDirectory{users: map[domain.Role][]domain.User{domain.RoleTechnicalService: tech}}

	r, err := New(Config{
		Strategy:  StrategyLeastLoaded,
		Directory: dir,
		Workload:  fakeWorkload{tech[0].ID: 4, tech[1].ID: 1, tech[2].ID: 1},
	})
	require.NoError(t, err)

	id, err := r.Resolve(context.Background(), domain.RoleTechnicalService)
	require.NoError(t, err)
	assert.Equal(t, tech[1].ID, *id)

	r, err = New(Config{Strategy: StrategyLeastLoaded, Directory: dir, Workload: fakeWorkload{tech[0].ID: 2}})
	require.NoError(t, err)

	id, err = r.Resolve(context.Background(), domain.RoleTechnicalService)
	require.NoError(t, err)
	assert.Equal(t, tech[1].ID, *id, "missing count means zero")
}
