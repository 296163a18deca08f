package biz

import (
	"context"
	"time"

	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"
	"clinic-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ServiceVisit 服务记录领域对象
type ServiceVisit struct {
	VisitID       string
	CustomerID    string
	ChildName     string
	MembershipID  string
	ServiceName   string
	ServiceFee    float64
	PaymentMethod string
	TherapistID   string
	TherapistName string
	Duration      int // 分钟
	Rating        int // 1-5，0 表示未评分
	VisitDate     time.Time
	Notes         string
	CreatedAt     time.Time
}

// VisitFilter 服务记录列表过滤条件
type VisitFilter struct {
	CustomerID    string
	TherapistName string
	Start         *time.Time
	End           *time.Time
}

// ServiceVisitRepo 服务记录数据层接口。
// 会员卡支付的记录在数据层事务内完成余额扣减。
type ServiceVisitRepo interface {
	CreateVisit(ctx context.Context, visit *ServiceVisit) (*ServiceVisit, error)
	CreateVisitWithDebit(ctx context.Context, visit *ServiceVisit) (*ServiceVisit, error)
	GetVisit(ctx context.Context, visitID string) (*ServiceVisit, error)
	ListVisits(ctx context.Context, filter *VisitFilter, page, pageSize int) ([]*ServiceVisit, int64, error)
	UpdateRating(ctx context.Context, visitID string, rating int) (*ServiceVisit, error)
}

// CreateVisitParams 创建服务记录参数
type CreateVisitParams struct {
	CustomerID    string
	MembershipID  string
	ServiceName   string
	ServiceFee    float64
	PaymentMethod string
	TherapistID   string
	TherapistName string
	Duration      int
	Rating        int
	VisitDate     *time.Time
	Notes         string
}

// ServiceVisitUseCase 服务记录业务逻辑
type ServiceVisitUseCase struct {
	repo           ServiceVisitRepo
	customerRepo   CustomerRepo
	membershipRepo MembershipRepo
	therapistRepo  TherapistRepo
	log            *log.Helper
	metrics        *metrics.ClinicMetrics
}

// NewServiceVisitUseCase 创建服务记录 UseCase
func NewServiceVisitUseCase(
	repo ServiceVisitRepo,
	customerRepo CustomerRepo,
	membershipRepo MembershipRepo,
	therapistRepo TherapistRepo,
	logger log.Logger,
) *ServiceVisitUseCase {
	return &ServiceVisitUseCase{
		repo:           repo,
		customerRepo:   customerRepo,
		membershipRepo: membershipRepo,
		therapistRepo:  therapistRepo,
		log:            log.NewHelper(logger),
		metrics:        metrics.GetMetrics(),
	}
}

// CreateVisit 创建服务记录。支付方式为 membership 时从指定会员卡余额直接扣减
// 服务费（不产生消费流水，扣减在事务内带余额充足校验）。
func (uc *ServiceVisitUseCase) CreateVisit(ctx context.Context, params *CreateVisitParams) (*ServiceVisit, error) {
	if params.ServiceName == "" {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeServiceNameRequired, "服务项目名称必填")
	}
	if params.ServiceFee < 0 {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidServiceFee, "服务费用不能为负")
	}

	customer, err := uc.customerRepo.GetCustomer(ctx, params.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeCustomerNotFound, "客户不存在")
	}

	therapistName := params.TherapistName
	if params.TherapistID != "" {
		therapist, err := uc.therapistRepo.GetTherapist(ctx, params.TherapistID)
		if err != nil {
			return nil, err
		}
		if therapist == nil {
			return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeTherapistNotFound, "理疗师不存在")
		}
		therapistName = therapist.Name
	}

	visitDate := time.Now()
	if params.VisitDate != nil {
		visitDate = *params.VisitDate
	}

	visit := &ServiceVisit{
		VisitID:       uuid.New().String(),
		CustomerID:    params.CustomerID,
		ChildName:     customer.ChildName,
		MembershipID:  params.MembershipID,
		ServiceName:   params.ServiceName,
		ServiceFee:    params.ServiceFee,
		PaymentMethod: params.PaymentMethod,
		TherapistID:   params.TherapistID,
		TherapistName: therapistName,
		Duration:      params.Duration,
		Rating:        params.Rating,
		VisitDate:     visitDate,
		Notes:         params.Notes,
	}

	if params.PaymentMethod == constants.PaymentMethodMembership {
		if params.MembershipID == "" {
			return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeVisitMembershipRequired,
				"会员卡支付需要指定会员卡")
		}
		card, err := uc.membershipRepo.GetMembership(ctx, params.MembershipID)
		if err != nil {
			return nil, err
		}
		if card == nil {
			return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
		}
		if card.Status != constants.CardStatusActive {
			return nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeCardStatusBlocked,
				"当前卡状态为 %s，不允许扣费", card.Status)
		}
		if params.ServiceFee > card.Balance {
			return nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientBalance,
				"卡余额不足：余额 %.2f，本次需 %.2f", card.Balance, params.ServiceFee)
		}
		visit, err = uc.repo.CreateVisitWithDebit(ctx, visit)
	} else {
		visit, err = uc.repo.CreateVisit(ctx, visit)
	}
	if err != nil {
		uc.log.Errorf("CreateVisit failed: customer_id=%s, error=%v", params.CustomerID, err)
		return nil, err
	}

	if uc.metrics != nil {
		method := params.PaymentMethod
		if method == "" {
			method = constants.PaymentMethodCash
		}
		uc.metrics.VisitTotal.WithLabelValues(method).Inc()
	}
	uc.log.Infof("Visit created: visit_id=%s, customer_id=%s, service=%s, fee=%.2f",
		visit.VisitID, visit.CustomerID, visit.ServiceName, visit.ServiceFee)
	return visit, nil
}

// GetVisit 获取服务记录
func (uc *ServiceVisitUseCase) GetVisit(ctx context.Context, visitID string) (*ServiceVisit, error) {
	visit, err := uc.repo.GetVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeVisitNotFound, "服务记录不存在")
	}
	return visit, nil
}

// ListVisits 获取服务记录列表
func (uc *ServiceVisitUseCase) ListVisits(ctx context.Context, filter *VisitFilter, page, pageSize int) ([]*ServiceVisit, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return uc.repo.ListVisits(ctx, filter, page, pageSize)
}

// UpdateRating 补录服务评分（1-5）
func (uc *ServiceVisitUseCase) UpdateRating(ctx context.Context, visitID string, rating int) (*ServiceVisit, error) {
	if rating < 1 || rating > 5 {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidRating, "评分必须在 1-5 之间")
	}
	visit, err := uc.repo.GetVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeVisitNotFound, "服务记录不存在")
	}
	return uc.repo.UpdateRating(ctx, visitID, rating)
}
