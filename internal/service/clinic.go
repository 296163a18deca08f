package service

import (
	"context"

	"clinic-service/internal/biz"
	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// ClinicService 门店基础档案服务：客户、卡种模板、理疗师、服务记录
type ClinicService struct {
	customerUC  *biz.CustomerUseCase
	typeUC      *biz.MembershipTypeUseCase
	therapistUC *biz.TherapistUseCase
	visitUC     *biz.ServiceVisitUseCase
	log         *log.Helper
}

// NewClinicService 创建门店档案服务
func NewClinicService(
	customerUC *biz.CustomerUseCase,
	typeUC *biz.MembershipTypeUseCase,
	therapistUC *biz.TherapistUseCase,
	visitUC *biz.ServiceVisitUseCase,
	logger log.Logger,
) *ClinicService {
	return &ClinicService{
		customerUC:  customerUC,
		typeUC:      typeUC,
		therapistUC: therapistUC,
		visitUC:     visitUC,
		log:         log.NewHelper(logger),
	}
}

// CustomerRequest 客户档案请求
type CustomerRequest struct {
	ChildName  string `json:"childName"`
	Gender     string `json:"gender"`
	BirthDate  string `json:"birthDate"`
	ParentName string `json:"parentName"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Source     string `json:"source"`
	Notes      string `json:"notes"`
}

// CustomerReply 客户档案响应
type CustomerReply struct {
	CustomerID       string `json:"customerId"`
	ChildName        string `json:"childName"`
	Gender           string `json:"gender,omitempty"`
	BirthDate        string `json:"birthDate,omitempty"`
	ParentName       string `json:"parentName,omitempty"`
	Phone            string `json:"phone"`
	Address          string `json:"address,omitempty"`
	Source           string `json:"source,omitempty"`
	MembershipStatus string `json:"membershipStatus"`
	Notes            string `json:"notes,omitempty"`
	CreatedAt        string `json:"createdAt"`
}

// CreateCustomer 创建客户档案
func (s *ClinicService) CreateCustomer(ctx context.Context, req *CustomerRequest) (*CustomerReply, error) {
	customer, err := s.toBizCustomer(req)
	if err != nil {
		return nil, err
	}
	created, err := s.customerUC.CreateCustomer(ctx, customer)
	if err != nil {
		return nil, err
	}
	return toCustomerReply(created), nil
}

// GetCustomer 获取客户档案
func (s *ClinicService) GetCustomer(ctx context.Context, customerID string) (*CustomerReply, error) {
	customer, err := s.customerUC.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return toCustomerReply(customer), nil
}

// ListCustomersRequest 客户列表请求
type ListCustomersRequest struct {
	Keyword  string `json:"keyword"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// ListCustomersReply 客户列表响应
type ListCustomersReply struct {
	List     []*CustomerReply `json:"list"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

// ListCustomers 获取客户列表
func (s *ClinicService) ListCustomers(ctx context.Context, req *ListCustomersRequest) (*ListCustomersReply, error) {
	customers, total, err := s.customerUC.ListCustomers(ctx, req.Keyword, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	list := make([]*CustomerReply, 0, len(customers))
	for _, c := range customers {
		list = append(list, toCustomerReply(c))
	}
	return &ListCustomersReply{
		List:     list,
		Total:    total,
		Page:     normalizePage(req.Page),
		PageSize: normalizePageSize(req.PageSize),
	}, nil
}

// UpdateCustomer 更新客户档案
func (s *ClinicService) UpdateCustomer(ctx context.Context, customerID string, req *CustomerRequest) (*CustomerReply, error) {
	customer, err := s.toBizCustomer(req)
	if err != nil {
		return nil, err
	}
	customer.CustomerID = customerID
	updated, err := s.customerUC.UpdateCustomer(ctx, customer)
	if err != nil {
		return nil, err
	}
	return toCustomerReply(updated), nil
}

func (s *ClinicService) toBizCustomer(req *CustomerRequest) (*biz.Customer, error) {
	birthDate, err := parseDatePtr(req.BirthDate)
	if err != nil {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidDateRange, "无效的出生日期: %s", req.BirthDate)
	}
	return &biz.Customer{
		ChildName:  req.ChildName,
		Gender:     req.Gender,
		BirthDate:  birthDate,
		ParentName: req.ParentName,
		Phone:      req.Phone,
		Address:    req.Address,
		Source:     req.Source,
		Notes:      req.Notes,
	}, nil
}

// toCustomerReply 领域对象转响应
func toCustomerReply(c *biz.Customer) *CustomerReply {
	reply := &CustomerReply{
		CustomerID:       c.CustomerID,
		ChildName:        c.ChildName,
		Gender:           c.Gender,
		ParentName:       c.ParentName,
		Phone:            c.Phone,
		Address:          c.Address,
		Source:           c.Source,
		MembershipStatus: c.MembershipStatus,
		Notes:            c.Notes,
		CreatedAt:        c.CreatedAt.Format(constants.TimeFormatDateTime),
	}
	if c.BirthDate != nil {
		reply.BirthDate = c.BirthDate.Format(constants.TimeFormatDate)
	}
	return reply
}

// MembershipTypeRequest 卡种模板请求
type MembershipTypeRequest struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	ValueAmount  float64 `json:"valueAmount"`
	ServiceCount int     `json:"serviceCount"`
	ValidityDays int     `json:"validityDays"`
}

// MembershipTypeReply 卡种模板响应
type MembershipTypeReply struct {
	TypeID       string  `json:"typeId"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	ValueAmount  float64 `json:"valueAmount"`
	ServiceCount int     `json:"serviceCount"`
	ValidityDays int     `json:"validityDays"`
	Active       bool    `json:"active"`
}

// CreateMembershipType 创建卡种模板
func (s *ClinicService) CreateMembershipType(ctx context.Context, req *MembershipTypeRequest) (*MembershipTypeReply, error) {
	created, err := s.typeUC.CreateMembershipType(ctx, &biz.MembershipType{
		Name:         req.Name,
		Category:     req.Category,
		Price:        req.Price,
		ValueAmount:  req.ValueAmount,
		ServiceCount: req.ServiceCount,
		ValidityDays: req.ValidityDays,
	})
	if err != nil {
		return nil, err
	}
	return toMembershipTypeReply(created), nil
}

// ListMembershipTypes 获取卡种模板列表
func (s *ClinicService) ListMembershipTypes(ctx context.Context, activeOnly bool) ([]*MembershipTypeReply, error) {
	types, err := s.typeUC.ListMembershipTypes(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	list := make([]*MembershipTypeReply, 0, len(types))
	for _, t := range types {
		list = append(list, toMembershipTypeReply(t))
	}
	return list, nil
}

// toMembershipTypeReply 领域对象转响应
func toMembershipTypeReply(t *biz.MembershipType) *MembershipTypeReply {
	return &MembershipTypeReply{
		TypeID:       t.TypeID,
		Name:         t.Name,
		Category:     t.Category,
		Price:        t.Price,
		ValueAmount:  t.ValueAmount,
		ServiceCount: t.ServiceCount,
		ValidityDays: t.ValidityDays,
		Active:       t.Active,
	}
}

// TherapistRequest 理疗师档案请求
type TherapistRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Level     string `json:"level"`
	Specialty string `json:"specialty"`
}

// TherapistReply 理疗师档案响应
type TherapistReply struct {
	TherapistID string `json:"therapistId"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Level       string `json:"level,omitempty"`
	Specialty   string `json:"specialty,omitempty"`
	Active      bool   `json:"active"`
}

// CreateTherapist 创建理疗师档案
func (s *ClinicService) CreateTherapist(ctx context.Context, req *TherapistRequest) (*TherapistReply, error) {
	created, err := s.therapistUC.CreateTherapist(ctx, &biz.Therapist{
		Name:      req.Name,
		Phone:     req.Phone,
		Level:     req.Level,
		Specialty: req.Specialty,
	})
	if err != nil {
		return nil, err
	}
	return toTherapistReply(created), nil
}

// ListTherapists 获取理疗师列表
func (s *ClinicService) ListTherapists(ctx context.Context, activeOnly bool) ([]*TherapistReply, error) {
	therapists, err := s.therapistUC.ListTherapists(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	list := make([]*TherapistReply, 0, len(therapists))
	for _, t := range therapists {
		list = append(list, toTherapistReply(t))
	}
	return list, nil
}

// toTherapistReply 领域对象转响应
func toTherapistReply(t *biz.Therapist) *TherapistReply {
	return &TherapistReply{
		TherapistID: t.TherapistID,
		Name:        t.Name,
		Phone:       t.Phone,
		Level:       t.Level,
		Specialty:   t.Specialty,
		Active:      t.Active,
	}
}

// VisitRequest 服务记录请求
type VisitRequest struct {
	CustomerID    string  `json:"customerId"`
	MembershipID  string  `json:"membershipId"`
	ServiceName   string  `json:"serviceName"`
	ServiceFee    float64 `json:"serviceFee"`
	PaymentMethod string  `json:"paymentMethod"`
	TherapistID   string  `json:"therapistId"`
	TherapistName string  `json:"therapistName"`
	Duration      int     `json:"duration"`
	Rating        int     `json:"rating"`
	VisitDate     string  `json:"visitDate"`
	Notes         string  `json:"notes"`
}

// VisitReply 服务记录响应
type VisitReply struct {
	VisitID       string  `json:"visitId"`
	CustomerID    string  `json:"customerId"`
	ChildName     string  `json:"childName,omitempty"`
	MembershipID  string  `json:"membershipId,omitempty"`
	ServiceName   string  `json:"serviceName"`
	ServiceFee    float64 `json:"serviceFee"`
	PaymentMethod string  `json:"paymentMethod"`
	TherapistName string  `json:"therapistName,omitempty"`
	Duration      int     `json:"duration"`
	Rating        int     `json:"rating"`
	VisitDate     string  `json:"visitDate"`
	Notes         string  `json:"notes,omitempty"`
}

// CreateVisit 创建服务记录
func (s *ClinicService) CreateVisit(ctx context.Context, req *VisitRequest) (*VisitReply, error) {
	visitDate, err := parseDatePtr(req.VisitDate)
	if err != nil {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidDateRange, "无效的服务日期: %s", req.VisitDate)
	}

	visit, err := s.visitUC.CreateVisit(ctx, &biz.CreateVisitParams{
		CustomerID:    req.CustomerID,
		MembershipID:  req.MembershipID,
		ServiceName:   req.ServiceName,
		ServiceFee:    req.ServiceFee,
		PaymentMethod: req.PaymentMethod,
		TherapistID:   req.TherapistID,
		TherapistName: req.TherapistName,
		Duration:      req.Duration,
		Rating:        req.Rating,
		VisitDate:     visitDate,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return toVisitReply(visit), nil
}

// ListVisitsRequest 服务记录列表请求
type ListVisitsRequest struct {
	CustomerID    string `json:"customerId"`
	TherapistName string `json:"therapistName"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Page          int    `json:"page"`
	PageSize      int    `json:"pageSize"`
}

// ListVisitsReply 服务记录列表响应
type ListVisitsReply struct {
	List     []*VisitReply `json:"list"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// ListVisits 获取服务记录列表
func (s *ClinicService) ListVisits(ctx context.Context, req *ListVisitsRequest) (*ListVisitsReply, error) {
	start, end, err := parseLedgerRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	visits, total, err := s.visitUC.ListVisits(ctx, &biz.VisitFilter{
		CustomerID:    req.CustomerID,
		TherapistName: req.TherapistName,
		Start:         start,
		End:           end,
	}, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	list := make([]*VisitReply, 0, len(visits))
	for _, v := range visits {
		list = append(list, toVisitReply(v))
	}
	return &ListVisitsReply{
		List:     list,
		Total:    total,
		Page:     normalizePage(req.Page),
		PageSize: normalizePageSize(req.PageSize),
	}, nil
}

// RatingRequest 评分请求
type RatingRequest struct {
	Rating int `json:"rating"`
}

// UpdateVisitRating 补录服务评分
func (s *ClinicService) UpdateVisitRating(ctx context.Context, visitID string, req *RatingRequest) (*VisitReply, error) {
	visit, err := s.visitUC.UpdateRating(ctx, visitID, req.Rating)
	if err != nil {
		return nil, err
	}
	return toVisitReply(visit), nil
}

// toVisitReply 领域对象转响应
func toVisitReply(v *biz.ServiceVisit) *VisitReply {
	return &VisitReply{
		VisitID:       v.VisitID,
		CustomerID:    v.CustomerID,
		ChildName:     v.ChildName,
		MembershipID:  v.MembershipID,
		ServiceName:   v.ServiceName,
		ServiceFee:    v.ServiceFee,
		PaymentMethod: v.PaymentMethod,
		TherapistName: v.TherapistName,
		Duration:      v.Duration,
		Rating:        v.Rating,
		VisitDate:     v.VisitDate.Format(constants.TimeFormatDateTime),
		Notes:         v.Notes,
	}
}
