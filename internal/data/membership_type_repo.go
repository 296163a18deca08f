package data

import (
	"context"
	"errors"

	"clinic-service/internal/biz"
	"clinic-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// membershipTypeRepo 实现 biz.MembershipTypeRepo 接口
type membershipTypeRepo struct {
	data *Data
	log  *log.Helper
}

// NewMembershipTypeRepo 创建卡种模板 repo
func NewMembershipTypeRepo(data *Data, logger log.Logger) biz.MembershipTypeRepo {
	return &membershipTypeRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateMembershipType 创建卡种模板
func (r *membershipTypeRepo) CreateMembershipType(ctx context.Context, t *biz.MembershipType) error {
	return r.data.db.WithContext(ctx).Create(&model.MembershipType{
		TypeID:       t.TypeID,
		Name:         t.Name,
		Category:     t.Category,
		Price:        t.Price,
		ValueAmount:  t.ValueAmount,
		ServiceCount: t.ServiceCount,
		ValidityDays: t.ValidityDays,
		Active:       t.Active,
	}).Error
}

// GetMembershipType 按 ID 获取卡种模板，不存在返回 nil
func (r *membershipTypeRepo) GetMembershipType(ctx context.Context, typeID string) (*biz.MembershipType, error) {
	var m model.MembershipType
	err := r.data.db.WithContext(ctx).
		Where("type_id = ?", typeID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toBizMembershipType(&m), nil
}

// ListMembershipTypes 获取卡种模板列表
func (r *membershipTypeRepo) ListMembershipTypes(ctx context.Context, activeOnly bool) ([]*biz.MembershipType, error) {
	query := r.data.db.WithContext(ctx).Model(&model.MembershipType{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var models []*model.MembershipType
	if err := query.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	types := make([]*biz.MembershipType, 0, len(models))
	for _, m := range models {
		types = append(types, toBizMembershipType(m))
	}
	return types, nil
}

// toBizMembershipType 数据库模型转领域对象
func toBizMembershipType(m *model.MembershipType) *biz.MembershipType {
	return &biz.MembershipType{
		TypeID:       m.TypeID,
		Name:         m.Name,
		Category:     m.Category,
		Price:        m.Price,
		ValueAmount:  m.ValueAmount,
		ServiceCount: m.ServiceCount,
		ValidityDays: m.ValidityDays,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
	}
}
