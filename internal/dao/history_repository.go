package dao

import (
	"context"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/internal/model"
	"github.com/craftops/game-backup-service/pkg/app"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// historyRepository 实现 domain.HistoryRepository 接口
type historyRepository struct {
	dao *Dao
}

// NewHistoryRepository 创建 HistoryRepository 实例
func NewHistoryRepository(dao *Dao) domain.HistoryRepository {
	return &historyRepository{dao: dao}
}

func (r *historyRepository) toDomain(m *model.BackupHistory) (*domain.BackupHistory, error) {
	if m == nil {
		return nil, nil
	}
	h := &domain.BackupHistory{}
	if err := copier.Copy(h, m); err != nil {
		return nil, err
	}
	return h, nil
}

func (r *historyRepository) Create(ctx context.Context, history *domain.BackupHistory) (*domain.BackupHistory, error) {
	m := &model.BackupHistory{}
	if err := copier.Copy(m, history); err != nil {
		return nil, err
	}
	m.ID = 0
	if err := r.dao.DB().WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, m.ID)
}

func (r *historyRepository) GetByID(ctx context.Context, id int64) (*domain.BackupHistory, error) {
	var m model.BackupHistory
	err := r.dao.DB().WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m)
}

func (r *historyRepository) ListByTarget(ctx context.Context, targetID int64, page, pageSize int) ([]*domain.BackupHistory, error) {
	var ms []*model.BackupHistory
	offset := app.GetPageOffset(page, pageSize)
	err := r.dao.DB().WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("start_time desc").
		Offset(offset).Limit(pageSize).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	histories := make([]*domain.BackupHistory, 0, len(ms))
	for _, m := range ms {
		h, err := r.toDomain(m)
		if err != nil {
			return nil, err
		}
		histories = append(histories, h)
	}
	return histories, nil
}

func (r *historyRepository) CountByTarget(ctx context.Context, targetID int64) (int64, error) {
	var count int64
	err := r.dao.DB().WithContext(ctx).Model(&model.BackupHistory{}).
		Where("target_id = ?", targetID).
		Count(&count).Error
	return count, err
}

func (r *historyRepository) DeleteByFilePath(ctx context.Context, filePath string) error {
	return r.dao.DB().WithContext(ctx).
		Where("file_path = ?", filePath).
		Delete(&model.BackupHistory{}).Error
}
