package repo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Tenderflow/internal/catalog"
	"github.com/shaiso/Tenderflow/internal/domain"
)

// testPool подключается к TENDERFLOW_TEST_DB_URL, применяет миграции
// и очищает таблицы. Без переменной тест пропускается.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TENDERFLOW_TEST_DB_URL")
	if dsn == "" {
		t.Skip("TENDERFLOW_TEST_DB_URL is not set")
	}

	require.NoError(t, Migrate(dsn, slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx := context.Background()
	pool, err := NewPool(ctx, PoolConfig{DSN: dsn, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE tender_step_history, tenders, users, step_definitions RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func createUser(t *testing.T, pool *pgxpool.Pool, role domain.Role) domain.User {
	t.Helper()
	u := domain.User{
		ID:        uuid.New(),
		Name:      string(role),
		Email:     uuid.NewString() + "@example.org",
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, NewUserRepo(pool).Create(context.Background(), &u))
	return u
}

func insertTestTender(t *testing.T, store *Store, creator uuid.UUID, actorID *uuid.UUID) domain.Tender {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	tender := domain.Tender{
		ID:             uuid.New(),
		Reference:      fmt.Sprintf("AO-TEST-%s", uuid.NewString()[:8]),
		Title:          "Travaux",
		CurrentPhase:   1,
		CurrentStep:    1,
		CurrentActorID: actorID,
		Status:         domain.TenderStatusActive,
		CreatedBy:      creator,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := store.WithinTx(context.Background(), func(tx Tx) error {
		return tx.InsertTender(context.Background(), &tender)
	})
	require.NoError(t, err)
	return tender
}

func TestIntegration_UpdateTenderRejectsStaleVersion(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewStore(pool)
	admin := createUser(t, pool, domain.RoleAdmin)
	tender := insertTestTender(t, store, admin.ID, nil)

	first := tender
	stale := tender

	first.CurrentStep = 2
	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateTender(ctx, &first)
	}))
	assert.Equal(t, 2, first.Version)

	stale.CurrentStep = 3
	err := store.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateTender(ctx, &stale)
	})
	require.ErrorIs(t, err, ErrVersionConflict)

	got, err := store.GetTender(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStep)
	assert.Equal(t, 2, got.Version)
}

func TestIntegration_SeedTwiceIsNoop(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	steps := NewStepRepo(pool)

	n, err := steps.Seed(ctx, catalog.Reference())
	require.NoError(t, err)
	assert.Equal(t, 38, n)

	n, err = steps.Seed(ctx, catalog.Reference())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	defs, err := steps.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.Reference(), defs)
}

func TestIntegration_SyncRejectsVariantOverStoredReference(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	steps := NewStepRepo(pool)

	_, n, err := steps.Sync(ctx, catalog.MustDefault())
	require.NoError(t, err)
	assert.Equal(t, 38, n)

	variant, err := catalog.Parse([]byte(twoPhaseYAML))
	require.NoError(t, err)

	_, _, err = steps.Sync(ctx, variant)
	require.ErrorIs(t, err, catalog.ErrCatalogMismatch)

	defs, err := steps.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 38)
}

func TestIntegration_HistoryTiesOrderedByID(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewStore(pool)
	admin := createUser(t, pool, domain.RoleAdmin)
	tender := insertTestTender(t, store, admin.ID, nil)

	at := time.Now().UTC().Truncate(time.Microsecond)
	var ids []int64
	require.NoError(t, store.WithinTx(ctx, func(tx Tx) error {
		for _, action := range []domain.HistoryAction{domain.ActionCreated, domain.ActionApproved, domain.ActionRejected} {
			e := domain.StepHistoryEntry{
				TenderID:  tender.ID,
				Step:      domain.StepRef{Phase: 1, Step: 1},
				ActorID:   &admin.ID,
				Action:    action,
				CreatedAt: at,
			}
			if err := tx.AppendHistory(ctx, &e); err != nil {
				return err
			}
			ids = append(ids, e.ID)
		}
		return nil
	}))

	entries, err := store.ListHistory(ctx, tender.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, ids[i], e.ID)
		assert.True(t, e.CreatedAt.Equal(at))
	}
	assert.Equal(t, domain.ActionRejected, entries[2].Action)
}

func TestIntegration_ListByRoleSkipsUnassigned(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewStore(pool)
	admin := createUser(t, pool, domain.RoleAdmin)
	budget := createUser(t, pool, domain.RoleBudgetService)
	tech := createUser(t, pool, domain.RoleTechnicalService)

	assigned := insertTestTender(t, store, admin.ID, &budget.ID)
	insertTestTender(t, store, admin.ID, nil)
	insertTestTender(t, store, admin.ID, &tech.ID)

	got, err := store.ListTenders(ctx, TenderFilter{
		Status:    domain.TenderStatusActive,
		ActorRole: domain.RoleBudgetService,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, assigned.ID, got[0].ID)

	all, err := store.ListTenders(ctx, TenderFilter{Status: domain.TenderStatusActive})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
