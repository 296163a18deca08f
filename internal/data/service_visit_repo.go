package data

import (
	"context"
	"errors"
	"time"

	"clinic-service/internal/biz"
	"clinic-service/internal/constants"
	"clinic-service/internal/data/model"
	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// serviceVisitRepo 实现 biz.ServiceVisitRepo 接口
type serviceVisitRepo struct {
	data *Data
	log  *log.Helper
	sync *redsync.Redsync
}

// NewServiceVisitRepo 创建服务记录 repo
func NewServiceVisitRepo(data *Data, sync *redsync.Redsync, logger log.Logger) biz.ServiceVisitRepo {
	return &serviceVisitRepo{
		data: data,
		log:  log.NewHelper(logger),
		sync: sync,
	}
}

// CreateVisit 创建服务记录（非会员卡支付，不动卡余额）
func (r *serviceVisitRepo) CreateVisit(ctx context.Context, visit *biz.ServiceVisit) (*biz.ServiceVisit, error) {
	m := toModelVisit(visit)
	if err := r.data.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return toBizVisit(m), nil
}

// CreateVisitWithDebit 创建会员卡支付的服务记录，事务内行锁复核后
// 直接从卡余额扣减服务费。不产生消费流水，与划卡消费是两条独立的账。
func (r *serviceVisitRepo) CreateVisitWithDebit(ctx context.Context, visit *biz.ServiceVisit) (*biz.ServiceVisit, error) {
	var mutex *redsync.Mutex
	if r.sync != nil {
		mutex = r.sync.NewMutex(constants.RedisKeyCardLock+visit.MembershipID, redsync.WithExpiry(5*time.Second))
		if err := mutex.Lock(); err != nil {
			r.log.Errorf("Failed to acquire card lock for visit debit: membership_id=%s, error=%v", visit.MembershipID, err)
			return nil, err
		}
		defer func() {
			if _, err := mutex.Unlock(); err != nil {
				r.log.Warnf("Failed to release card lock: %v", err)
			}
		}()
	}

	m := toModelVisit(visit)
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card model.Membership
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("membership_id = ?", visit.MembershipID).
			First(&card).Error; err != nil {
			return err
		}
		if card.Status != constants.CardStatusActive {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeCardStatusBlocked,
				"当前卡状态为 %s，不允许扣费", card.Status)
		}
		if visit.ServiceFee > card.Balance {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientBalance,
				"卡余额不足：余额 %.2f，本次需 %.2f", card.Balance, visit.ServiceFee)
		}

		if err := tx.Model(&model.Membership{}).
			Where("membership_id = ?", visit.MembershipID).
			Updates(map[string]interface{}{
				"balance":           gorm.Expr("balance - ?", visit.ServiceFee),
				"last_consume_date": time.Now(),
			}).Error; err != nil {
			return err
		}

		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}

	if r.data.rdb != nil {
		if err := r.data.rdb.Del(ctx, constants.RedisKeyCardBalance+visit.MembershipID).Err(); err != nil {
			r.log.Warnf("Failed to invalidate membership cache: membership_id=%s, error=%v", visit.MembershipID, err)
		}
	}
	return toBizVisit(m), nil
}

// GetVisit 按 ID 获取服务记录，不存在返回 nil
func (r *serviceVisitRepo) GetVisit(ctx context.Context, visitID string) (*biz.ServiceVisit, error) {
	var m model.ServiceVisit
	err := r.data.db.WithContext(ctx).
		Where("service_id = ?", visitID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toBizVisit(&m), nil
}

// ListVisits 分页获取服务记录列表
func (r *serviceVisitRepo) ListVisits(ctx context.Context, filter *biz.VisitFilter, page, pageSize int) ([]*biz.ServiceVisit, int64, error) {
	query := r.data.db.WithContext(ctx).Model(&model.ServiceVisit{})
	if filter != nil {
		if filter.CustomerID != "" {
			query = query.Where("customer_id = ?", filter.CustomerID)
		}
		if filter.TherapistName != "" {
			query = query.Where("therapist_name = ?", filter.TherapistName)
		}
		query = applyDateRange(query, "service_date", filter.Start, filter.End)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*model.ServiceVisit
	if err := query.
		Order("service_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	visits := make([]*biz.ServiceVisit, 0, len(models))
	for _, m := range models {
		visits = append(visits, toBizVisit(m))
	}
	return visits, total, nil
}

// UpdateRating 补录服务评分
func (r *serviceVisitRepo) UpdateRating(ctx context.Context, visitID string, rating int) (*biz.ServiceVisit, error) {
	if err := r.data.db.WithContext(ctx).
		Model(&model.ServiceVisit{}).
		Where("service_id = ?", visitID).
		Update("rating", rating).Error; err != nil {
		return nil, err
	}
	return r.GetVisit(ctx, visitID)
}

// toModelVisit 领域对象转数据库模型
func toModelVisit(v *biz.ServiceVisit) *model.ServiceVisit {
	return &model.ServiceVisit{
		ServiceID:     v.VisitID,
		CustomerID:    v.CustomerID,
		ChildName:     v.ChildName,
		MembershipID:  v.MembershipID,
		ServiceType:   v.ServiceName,
		ServiceFee:    v.ServiceFee,
		PaymentMethod: v.PaymentMethod,
		TherapistID:   v.TherapistID,
		TherapistName: v.TherapistName,
		Duration:      v.Duration,
		Rating:        v.Rating,
		ServiceDate:   v.VisitDate,
		Notes:         v.Notes,
	}
}

// toBizVisit 数据库模型转领域对象
func toBizVisit(m *model.ServiceVisit) *biz.ServiceVisit {
	return &biz.ServiceVisit{
		VisitID:       m.ServiceID,
		CustomerID:    m.CustomerID,
		ChildName:     m.ChildName,
		MembershipID:  m.MembershipID,
		ServiceName:   m.ServiceType,
		ServiceFee:    m.ServiceFee,
		PaymentMethod: m.PaymentMethod,
		TherapistID:   m.TherapistID,
		TherapistName: m.TherapistName,
		Duration:      m.Duration,
		Rating:        m.Rating,
		VisitDate:     m.ServiceDate,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
	}
}
