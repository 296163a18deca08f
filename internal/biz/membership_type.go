package biz

import (
	"context"
	"time"

	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// MembershipType 卡种模板领域对象（交易只引用，不修改）
type MembershipType struct {
	TypeID       string
	Name         string
	Category     string // count/period/mixed/value
	Price        float64
	ValueAmount  float64
	ServiceCount int
	ValidityDays int
	Active       bool
	CreatedAt    time.Time
}

// MembershipTypeRepo 卡种模板数据层接口（定义在 biz 层）
type MembershipTypeRepo interface {
	CreateMembershipType(ctx context.Context, t *MembershipType) error
	GetMembershipType(ctx context.Context, typeID string) (*MembershipType, error)
	ListMembershipTypes(ctx context.Context, activeOnly bool) ([]*MembershipType, error)
}

// MembershipTypeUseCase 卡种模板业务逻辑
type MembershipTypeUseCase struct {
	repo MembershipTypeRepo
	log  *log.Helper
}

// NewMembershipTypeUseCase 创建卡种模板 UseCase
func NewMembershipTypeUseCase(repo MembershipTypeRepo, logger log.Logger) *MembershipTypeUseCase {
	return &MembershipTypeUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// CreateMembershipType 创建卡种模板
func (uc *MembershipTypeUseCase) CreateMembershipType(ctx context.Context, t *MembershipType) (*MembershipType, error) {
	if t.Name == "" {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeTypeNameRequired, "卡种名称必填")
	}
	if !isValidCardType(t.Category) {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidCardType,
			"无效的卡类型: %s", t.Category)
	}
	t.TypeID = uuid.New().String()
	t.Active = true
	if err := uc.repo.CreateMembershipType(ctx, t); err != nil {
		uc.log.Errorf("CreateMembershipType failed: %v", err)
		return nil, err
	}
	return t, nil
}

// ListMembershipTypes 获取卡种模板列表
func (uc *MembershipTypeUseCase) ListMembershipTypes(ctx context.Context, activeOnly bool) ([]*MembershipType, error) {
	return uc.repo.ListMembershipTypes(ctx, activeOnly)
}

// isValidCardType 校验卡类型枚举
func isValidCardType(cardType string) bool {
	for _, t := range constants.CardTypes {
		if t == cardType {
			return true
		}
	}
	return false
}
