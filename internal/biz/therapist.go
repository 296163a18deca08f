package biz

import (
	"context"
	"time"

	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Therapist 理疗师领域对象
type Therapist struct {
	TherapistID string
	Name        string
	Phone       string
	Level       string
	Specialty   string
	Active      bool
	CreatedAt   time.Time
}

// TherapistRepo 理疗师数据层接口（定义在 biz 层）
type TherapistRepo interface {
	CreateTherapist(ctx context.Context, t *Therapist) error
	GetTherapist(ctx context.Context, therapistID string) (*Therapist, error)
	ListTherapists(ctx context.Context, activeOnly bool) ([]*Therapist, error)
}

// TherapistUseCase 理疗师业务逻辑
type TherapistUseCase struct {
	repo TherapistRepo
	log  *log.Helper
}

// NewTherapistUseCase 创建理疗师 UseCase
func NewTherapistUseCase(repo TherapistRepo, logger log.Logger) *TherapistUseCase {
	return &TherapistUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// CreateTherapist 创建理疗师档案
func (uc *TherapistUseCase) CreateTherapist(ctx context.Context, t *Therapist) (*Therapist, error) {
	if t.Name == "" {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeTherapistNameRequired, "理疗师姓名必填")
	}
	t.TherapistID = uuid.New().String()
	t.Active = true
	if err := uc.repo.CreateTherapist(ctx, t); err != nil {
		uc.log.Errorf("CreateTherapist failed: %v", err)
		return nil, err
	}
	return t, nil
}

// ListTherapists 获取理疗师列表
func (uc *TherapistUseCase) ListTherapists(ctx context.Context, activeOnly bool) ([]*Therapist, error) {
	return uc.repo.ListTherapists(ctx, activeOnly)
}
