package data

import (
	"context"
	"errors"

	"clinic-service/internal/biz"
	"clinic-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// customerRepo 实现 biz.CustomerRepo 接口
type customerRepo struct {
	data *Data
	log  *log.Helper
}

// NewCustomerRepo 创建客户 repo
func NewCustomerRepo(data *Data, logger log.Logger) biz.CustomerRepo {
	return &customerRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateCustomer 创建客户
func (r *customerRepo) CreateCustomer(ctx context.Context, customer *biz.Customer) error {
	m := toModelCustomer(customer)
	if err := r.data.db.WithContext(ctx).Create(m).Error; err != nil {
		r.log.Errorf("CreateCustomer failed: phone=%s, error=%v", customer.Phone, err)
		return err
	}
	return nil
}

// GetCustomer 按 ID 获取客户，不存在返回 nil
func (r *customerRepo) GetCustomer(ctx context.Context, customerID string) (*biz.Customer, error) {
	var m model.Customer
	err := r.data.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toBizCustomer(&m), nil
}

// GetCustomerByPhone 按手机号获取客户，不存在返回 nil
func (r *customerRepo) GetCustomerByPhone(ctx context.Context, phone string) (*biz.Customer, error) {
	var m model.Customer
	err := r.data.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toBizCustomer(&m), nil
}

// ListCustomers 分页获取客户列表，keyword 匹配孩子姓名/家长姓名/手机号
func (r *customerRepo) ListCustomers(ctx context.Context, keyword string, page, pageSize int) ([]*biz.Customer, int64, error) {
	query := r.data.db.WithContext(ctx).Model(&model.Customer{})
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("child_name LIKE ? OR parent_name LIKE ? OR phone LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*model.Customer
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	customers := make([]*biz.Customer, 0, len(models))
	for _, m := range models {
		customers = append(customers, toBizCustomer(m))
	}
	return customers, total, nil
}

// UpdateCustomer 更新客户档案
func (r *customerRepo) UpdateCustomer(ctx context.Context, customer *biz.Customer) error {
	return r.data.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("customer_id = ?", customer.CustomerID).
		Updates(map[string]interface{}{
			"child_name":  customer.ChildName,
			"gender":      customer.Gender,
			"birth_date":  customer.BirthDate,
			"parent_name": customer.ParentName,
			"phone":       customer.Phone,
			"address":     customer.Address,
			"source":      customer.Source,
			"notes":       customer.Notes,
		}).Error
}

// UpdateMembershipStatus 更新客户冗余的会员状态标签
func (r *customerRepo) UpdateMembershipStatus(ctx context.Context, customerID, status string) error {
	return r.data.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("customer_id = ?", customerID).
		Update("membership_status", status).Error
}

// ListStatuses 获取全部客户的会员状态标签（对账任务用）
func (r *customerRepo) ListStatuses(ctx context.Context) ([]*biz.CustomerStatus, error) {
	var rows []struct {
		CustomerID       string
		MembershipStatus string
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.Customer{}).
		Select("customer_id, membership_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	statuses := make([]*biz.CustomerStatus, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, &biz.CustomerStatus{
			CustomerID:       row.CustomerID,
			MembershipStatus: row.MembershipStatus,
		})
	}
	return statuses, nil
}

// toModelCustomer 领域对象转数据库模型
func toModelCustomer(c *biz.Customer) *model.Customer {
	return &model.Customer{
		CustomerID:       c.CustomerID,
		ChildName:        c.ChildName,
		Gender:           c.Gender,
		BirthDate:        c.BirthDate,
		ParentName:       c.ParentName,
		Phone:            c.Phone,
		Address:          c.Address,
		Source:           c.Source,
		MembershipStatus: c.MembershipStatus,
		Notes:            c.Notes,
	}
}

// toBizCustomer 数据库模型转领域对象
func toBizCustomer(m *model.Customer) *biz.Customer {
	return &biz.Customer{
		CustomerID:       m.CustomerID,
		ChildName:        m.ChildName,
		Gender:           m.Gender,
		BirthDate:        m.BirthDate,
		ParentName:       m.ParentName,
		Phone:            m.Phone,
		Address:          m.Address,
		Source:           m.Source,
		MembershipStatus: m.MembershipStatus,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
