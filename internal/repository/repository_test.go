package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"problem-search-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Problem{}, &model.Domain{}))
	return db
}

func strPtr(s string) *string { return &s }

func seedProblems(t *testing.T, db *gorm.DB, domainID string, n int) {
	t.Helper()
	problems := make([]model.Problem, 0, n)
	for i := 1; i <= n; i++ {
		problems = append(problems, model.Problem{
			DomainID: domainID,
			DocID:    int64(i),
			PID:      strPtr(fmt.Sprintf("P%d", 1000+i)),
			Title:    strPtr(fmt.Sprintf("Problem %d", i)),
			Content:  strPtr("statement"),
			Tag:      []string{"dp"},
			Data:     "secret blob",
			Config:   "time: 1s",
			Stats:    map[string]int64{"AC": 3},
			Assign:   []string{"group-a"},
		})
	}
	require.NoError(t, db.CreateInBatches(problems, 50).Error)
}

func TestProblemRepository_ForEachPublic_ScopedToDomain(t *testing.T) {
	// Given: 250 problems in d1 and 30 in d2
	db := newTestDB(t)
	seedProblems(t, db, "d1", 250)
	seedProblems(t, db, "d2", 30)
	repo := NewProblemRepository(db, 100)

	// When: iterating d1
	var seen []int64
	err := repo.ForEachPublic(context.Background(), "d1", func(p *model.Problem) error {
		assert.Equal(t, "d1", p.DomainID)
		seen = append(seen, p.DocID)
		return nil
	})

	// Then: every d1 problem is visited exactly once
	require.NoError(t, err)
	assert.Len(t, seen, 250)
	uniq := make(map[int64]struct{}, len(seen))
	for _, id := range seen {
		uniq[id] = struct{}{}
	}
	assert.Len(t, uniq, 250)
}

func TestProblemRepository_ForEachPublic_AllDomains(t *testing.T) {
	db := newTestDB(t)
	seedProblems(t, db, "d1", 20)
	seedProblems(t, db, "d2", 30)
	repo := NewProblemRepository(db, 7)

	count := 0
	err := repo.ForEachPublic(context.Background(), "", func(*model.Problem) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestProblemRepository_ForEachPublic_UsesPublicProjection(t *testing.T) {
	db := newTestDB(t)
	seedProblems(t, db, "d1", 3)
	repo := NewProblemRepository(db, 0)

	err := repo.ForEachPublic(context.Background(), "d1", func(p *model.Problem) error {
		// internal fields are never read
		assert.Empty(t, p.Data)
		assert.Empty(t, p.Config)
		assert.Empty(t, p.Stats)
		assert.Empty(t, p.Assign)
		// public fields are
		require.NotNil(t, p.Title)
		require.NotNil(t, p.PID)
		assert.Equal(t, []string{"dp"}, p.Tag)
		return nil
	})
	require.NoError(t, err)
}

func TestProblemRepository_ForEachPublic_StopsOnCallbackError(t *testing.T) {
	db := newTestDB(t)
	seedProblems(t, db, "d1", 50)
	repo := NewProblemRepository(db, 10)
	boom := errors.New("boom")

	calls := 0
	err := repo.ForEachPublic(context.Background(), "d1", func(*model.Problem) error {
		calls++
		if calls == 15 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 15, calls)
}

func TestProblemRepository_FindByKeyAndCount(t *testing.T) {
	db := newTestDB(t)
	seedProblems(t, db, "d1", 5)
	repo := NewProblemRepository(db, 0)
	ctx := context.Background()

	p, err := repo.FindByKey(ctx, "d1", 3)
	require.NoError(t, err)
	assert.Equal(t, "P1003", *p.PID)
	assert.Empty(t, p.Data, "internal fields are not read")

	_, err = repo.FindByKey(ctx, "d1", 99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := repo.Count(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	seedProblems(t, db, "d2", 2)
	n, err = repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestDomainRepository_GetUnion(t *testing.T) {
	db := newTestDB(t)
	repo := NewDomainRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.Domain{DomainID: "a", Name: "A", Union: []string{"b", "c"}}).Error)
	require.NoError(t, db.Create(&model.Domain{DomainID: "lonely", Name: "Lonely"}).Error)

	union, err := repo.GetUnion(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, union)

	union, err = repo.GetUnion(ctx, "lonely")
	require.NoError(t, err)
	assert.Empty(t, union)

	// unknown domain: no union declared
	union, err = repo.GetUnion(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, union)
}
