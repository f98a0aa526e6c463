package dao

import (
	"context"
	"testing"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDao(t *testing.T) *Dao {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	return New(db)
}

func TestScheduleRepositoryCRUD(t *testing.T) {
	d := newTestDao(t)
	repo := NewScheduleRepository(d)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.BackupSchedule{
		TargetID:      1,
		Type:          domain.ScheduleDaily,
		Hour:          3,
		Minute:        30,
		RetentionDays: 7,
		Enabled:       true,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.ScheduleDaily, created.Type)

	// 按目标查询
	got, err := repo.GetByTargetID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	// 不存在的目标返回 nil
	missing, err := repo.GetByTargetID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// 更新
	got.Hour = 4
	got.RetentionDays = 14
	updated, err := repo.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Hour)
	assert.Equal(t, 14, updated.RetentionDays)

	// 删除
	require.NoError(t, repo.Delete(ctx, created.ID))
	gone, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestScheduleRepositoryUniqueTarget(t *testing.T) {
	d := newTestDao(t)
	repo := NewScheduleRepository(d)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.BackupSchedule{
		TargetID: 7, Type: domain.ScheduleDaily, Hour: 1, Minute: 0, RetentionDays: 7, Enabled: true,
	})
	require.NoError(t, err)

	// 同一目标的第二条计划应触发唯一索引冲突
	_, err = repo.Create(ctx, &domain.BackupSchedule{
		TargetID: 7, Type: domain.ScheduleWeekly, Hour: 2, Minute: 0, RetentionDays: 7, Enabled: true,
	})
	assert.Error(t, err)
}

func TestScheduleRepositoryUpdateLastRun(t *testing.T) {
	d := newTestDao(t)
	repo := NewScheduleRepository(d)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.BackupSchedule{
		TargetID: 2, Type: domain.ScheduleMonthly, Hour: 5, Minute: 15, RetentionDays: 30, Enabled: true,
	})
	require.NoError(t, err)
	assert.True(t, created.LastRun.IsZero())

	require.NoError(t, repo.UpdateLastRun(ctx, created.ID, domain.BackupStatusSuccess, "ok"))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.LastRun.IsZero())
	assert.Equal(t, domain.BackupStatusSuccess, got.LastStatus)
	assert.Equal(t, "ok", got.LastMessage)
}
