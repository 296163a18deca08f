package biz

import (
	"context"
	"time"

	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Customer 客户领域对象
type Customer struct {
	CustomerID       string
	ChildName        string
	Gender           string
	BirthDate        *time.Time
	ParentName       string
	Phone            string
	Address          string
	Source           string
	MembershipStatus string // none/active/expiring/expired，会员状态冗余缓存
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CustomerStatus 客户会员状态行（用于后台对账）
type CustomerStatus struct {
	CustomerID       string
	MembershipStatus string
}

// CustomerRepo 客户数据层接口（定义在 biz 层）
type CustomerRepo interface {
	CreateCustomer(ctx context.Context, customer *Customer) error
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	GetCustomerByPhone(ctx context.Context, phone string) (*Customer, error)
	ListCustomers(ctx context.Context, keyword string, page, pageSize int) ([]*Customer, int64, error)
	UpdateCustomer(ctx context.Context, customer *Customer) error
	UpdateMembershipStatus(ctx context.Context, customerID, status string) error
	ListStatuses(ctx context.Context) ([]*CustomerStatus, error)
}

// CustomerUseCase 客户业务逻辑
type CustomerUseCase struct {
	repo CustomerRepo
	log  *log.Helper
}

// NewCustomerUseCase 创建客户 UseCase
func NewCustomerUseCase(repo CustomerRepo, logger log.Logger) *CustomerUseCase {
	return &CustomerUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// CreateCustomer 创建客户档案
func (uc *CustomerUseCase) CreateCustomer(ctx context.Context, customer *Customer) (*Customer, error) {
	if customer.ChildName == "" {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeCustomerNameRequired, "孩子姓名必填")
	}
	if customer.Phone == "" {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeCustomerPhoneRequired, "联系电话必填")
	}

	existing, err := uc.repo.GetCustomerByPhone(ctx, customer.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, clinicErrors.NewDuplicate(clinicErrors.ErrCodeCustomerPhoneExists,
			"手机号 %s 已存在客户档案", customer.Phone)
	}

	customer.CustomerID = uuid.New().String()
	if customer.MembershipStatus == "" {
		customer.MembershipStatus = constants.MembershipStatusNone
	}
	if err := uc.repo.CreateCustomer(ctx, customer); err != nil {
		uc.log.Errorf("CreateCustomer failed: %v", err)
		return nil, err
	}
	return customer, nil
}

// GetCustomer 获取客户档案
func (uc *CustomerUseCase) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	customer, err := uc.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeCustomerNotFound, "客户不存在")
	}
	return customer, nil
}

// ListCustomers 按姓名/手机号搜索客户
func (uc *CustomerUseCase) ListCustomers(ctx context.Context, keyword string, page, pageSize int) ([]*Customer, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return uc.repo.ListCustomers(ctx, keyword, page, pageSize)
}

// UpdateCustomer 更新客户档案
func (uc *CustomerUseCase) UpdateCustomer(ctx context.Context, customer *Customer) (*Customer, error) {
	existing, err := uc.repo.GetCustomer(ctx, customer.CustomerID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeCustomerNotFound, "客户不存在")
	}
	if err := uc.repo.UpdateCustomer(ctx, customer); err != nil {
		uc.log.Errorf("UpdateCustomer failed: customer_id=%s, error=%v", customer.CustomerID, err)
		return nil, err
	}
	return uc.repo.GetCustomer(ctx, customer.CustomerID)
}
