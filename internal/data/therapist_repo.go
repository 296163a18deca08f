package data

import (
	"context"
	"errors"

	"clinic-service/internal/biz"
	"clinic-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// therapistRepo 实现 biz.TherapistRepo 接口
type therapistRepo struct {
	data *Data
	log  *log.Helper
}

// NewTherapistRepo 创建理疗师 repo
func NewTherapistRepo(data *Data, logger log.Logger) biz.TherapistRepo {
	return &therapistRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateTherapist 创建理疗师
func (r *therapistRepo) CreateTherapist(ctx context.Context, t *biz.Therapist) error {
	return r.data.db.WithContext(ctx).Create(&model.Therapist{
		TherapistID: t.TherapistID,
		Name:        t.Name,
		Phone:       t.Phone,
		Level:       t.Level,
		Specialty:   t.Specialty,
		Active:      t.Active,
	}).Error
}

// GetTherapist 按 ID 获取理疗师，不存在返回 nil
func (r *therapistRepo) GetTherapist(ctx context.Context, therapistID string) (*biz.Therapist, error) {
	var m model.Therapist
	err := r.data.db.WithContext(ctx).
		Where("therapist_id = ?", therapistID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toBizTherapist(&m), nil
}

// ListTherapists 获取理疗师列表
func (r *therapistRepo) ListTherapists(ctx context.Context, activeOnly bool) ([]*biz.Therapist, error) {
	query := r.data.db.WithContext(ctx).Model(&model.Therapist{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var models []*model.Therapist
	if err := query.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	therapists := make([]*biz.Therapist, 0, len(models))
	for _, m := range models {
		therapists = append(therapists, toBizTherapist(m))
	}
	return therapists, nil
}

// toBizTherapist 数据库模型转领域对象
func toBizTherapist(m *model.Therapist) *biz.Therapist {
	return &biz.Therapist{
		TherapistID: m.TherapistID,
		Name:        m.Name,
		Phone:       m.Phone,
		Level:       m.Level,
		Specialty:   m.Specialty,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
	}
}
