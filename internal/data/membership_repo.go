package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinic-service/internal/biz"
	"clinic-service/internal/conf"
	"clinic-service/internal/constants"
	"clinic-service/internal/data/model"
	clinicErrors "clinic-service/internal/errors"
	"clinic-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// membershipRepo 实现 biz.MembershipRepo 接口。
// 余额/次数变更统一走：分布式锁 -> 事务 -> 行锁 -> 复核 -> 落账。
type membershipRepo struct {
	data     *Data
	log      *log.Helper
	sync     *redsync.Redsync
	metrics  *metrics.ClinicMetrics
	cacheTTL time.Duration
}

// NewMembershipRepo 创建会员卡 repo
func NewMembershipRepo(data *Data, sync *redsync.Redsync, c *conf.Bootstrap, logger log.Logger) biz.MembershipRepo {
	ttl := 5 * time.Minute
	if c.Clinic != nil && c.Clinic.BalanceCacheTTLDuration() > 0 {
		ttl = c.Clinic.BalanceCacheTTLDuration()
	}
	return &membershipRepo{
		data:     data,
		log:      log.NewHelper(logger),
		sync:     sync,
		metrics:  metrics.GetMetrics(),
		cacheTTL: ttl,
	}
}

// lockCard 获取单卡分布式锁，调用方负责 Unlock
func (r *membershipRepo) lockCard(membershipID string) (*redsync.Mutex, error) {
	if r.sync == nil {
		return nil, nil
	}
	lockStartTime := time.Now()
	mutex := r.sync.NewMutex(constants.RedisKeyCardLock+membershipID, redsync.WithExpiry(5*time.Second))
	if err := mutex.Lock(); err != nil {
		r.log.Errorf("Failed to acquire card lock: membership_id=%s, error=%v", membershipID, err)
		if r.metrics != nil {
			r.metrics.LockAcquireTotal.WithLabelValues(constants.ResultFailed).Inc()
		}
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.LockAcquireTotal.WithLabelValues(constants.ResultSuccess).Inc()
		r.metrics.LockAcquireDuration.Observe(time.Since(lockStartTime).Seconds())
	}
	return mutex, nil
}

func (r *membershipRepo) unlockCard(mutex *redsync.Mutex) {
	if mutex == nil {
		return
	}
	if _, err := mutex.Unlock(); err != nil {
		r.log.Warnf("Failed to release card lock: %v", err)
	}
}

// IssueCard 开卡。卡号、开卡充值票据号在同一事务内分配，
// 开卡成功后客户会员状态置为 active。
func (r *membershipRepo) IssueCard(ctx context.Context, card *biz.Membership, initial *biz.RechargeRecord) (*biz.Membership, *biz.RechargeRecord, error) {
	now := time.Now()
	var created model.Membership
	var createdRecharge *model.RechargeRecord

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cardNumber, err := nextSerial(tx, cardSerialRule, now, maxSerialSeed("membership", "card_number"))
		if err != nil {
			return err
		}

		m := toModelMembership(card)
		m.CardNumber = cardNumber
		if initial != nil {
			m.LastRechargeDate = &now
		}
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		if initial != nil {
			receiptNumber, err := nextSerial(tx, rechargeSerialRule, now, maxSerialSeed("recharge_record", "receipt_number"))
			if err != nil {
				return err
			}
			rm := toModelRecharge(initial)
			rm.MembershipID = m.MembershipID
			rm.ReceiptNumber = receiptNumber
			if err := tx.Create(rm).Error; err != nil {
				return err
			}
			createdRecharge = rm
		}

		if err := tx.Model(&model.Customer{}).
			Where("customer_id = ?", card.CustomerID).
			Update("membership_status", constants.MembershipStatusActive).Error; err != nil {
			return err
		}

		created = *m
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, clinicErrors.NewDuplicate(clinicErrors.ErrCodeCardNumberConflict,
				"卡号或票据号冲突，请重试")
		}
		return nil, nil, err
	}

	var bizRecharge *biz.RechargeRecord
	if createdRecharge != nil {
		bizRecharge = toBizRecharge(createdRecharge)
	}
	return toBizMembership(&created), bizRecharge, nil
}

// GetMembership 按 ID 获取会员卡，带 Redis 读穿缓存。
// 缓存只服务展示与预检，真正的余量判定在事务内复核，短暂陈旧无碍。
func (r *membershipRepo) GetMembership(ctx context.Context, membershipID string) (*biz.Membership, error) {
	cacheKey := constants.RedisKeyCardBalance + membershipID
	if r.data.rdb != nil {
		if cached, err := r.data.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var m model.Membership
			if jsonErr := json.Unmarshal([]byte(cached), &m); jsonErr == nil {
				return toBizMembership(&m), nil
			}
		}
	}

	var m model.Membership
	err := r.data.db.WithContext(ctx).
		Where("membership_id = ?", membershipID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if r.data.rdb != nil {
		if payload, jsonErr := json.Marshal(&m); jsonErr == nil {
			if err := r.data.rdb.Set(ctx, cacheKey, payload, r.cacheTTL).Err(); err != nil {
				r.log.Warnf("Failed to cache membership: membership_id=%s, error=%v", membershipID, err)
			}
		}
	}
	return toBizMembership(&m), nil
}

func (r *membershipRepo) invalidateCache(ctx context.Context, membershipID string) {
	if r.data.rdb == nil {
		return
	}
	if err := r.data.rdb.Del(ctx, constants.RedisKeyCardBalance+membershipID).Err(); err != nil {
		r.log.Warnf("Failed to invalidate membership cache: membership_id=%s, error=%v", membershipID, err)
	}
}

// ListMemberships 分页获取会员卡列表
func (r *membershipRepo) ListMemberships(ctx context.Context, filter *biz.MembershipFilter, page, pageSize int) ([]*biz.Membership, int64, error) {
	query := r.data.db.WithContext(ctx).Model(&model.Membership{})
	if filter != nil {
		if filter.CustomerID != "" {
			query = query.Where("customer_id = ?", filter.CustomerID)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.CardType != "" {
			query = query.Where("card_type = ?", filter.CardType)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*model.Membership
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	cards := make([]*biz.Membership, 0, len(models))
	for _, m := range models {
		cards = append(cards, toBizMembership(m))
	}
	return cards, total, nil
}

// ApplyRecharge 落账一笔充值。事务内行锁复核卡状态，
// 过期卡延期后有效期落在未来则重新激活。
func (r *membershipRepo) ApplyRecharge(ctx context.Context, membershipID string, mut biz.RechargeMutation, rec *biz.RechargeRecord) (*biz.Membership, *biz.RechargeRecord, error) {
	mutex, err := r.lockCard(membershipID)
	if err != nil {
		return nil, nil, err
	}
	defer r.unlockCard(mutex)

	now := time.Now()
	var updated model.Membership
	var createdRecharge model.RechargeRecord

	err = r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Membership
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("membership_id = ?", membershipID).
			First(&m).Error; err != nil {
			return err
		}
		if m.Status != constants.CardStatusActive && m.Status != constants.CardStatusExpired {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeCardStatusBlocked,
				"当前卡状态为 %s，不允许充值", m.Status)
		}

		receiptNumber, err := nextSerial(tx, rechargeSerialRule, now, maxSerialSeed("recharge_record", "receipt_number"))
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"last_recharge_date": now,
		}
		if mut.AddCount > 0 {
			updates["count"] = gorm.Expr("count + ?", mut.AddCount)
		}
		if mut.AddBalance > 0 {
			updates["balance"] = gorm.Expr("balance + ?", mut.AddBalance)
		}
		if mut.ExtendMonths > 0 {
			// 已过期的卡从当前时间起算，未过期的在原有效期上顺延
			base := now
			if m.ExpiryDate != nil && m.ExpiryDate.After(now) {
				base = *m.ExpiryDate
			}
			newExpiry := base.AddDate(0, mut.ExtendMonths, 0)
			updates["expiry_date"] = newExpiry
			if m.Status == constants.CardStatusExpired && newExpiry.After(now) {
				updates["status"] = constants.CardStatusActive
			}
		}
		if err := tx.Model(&model.Membership{}).
			Where("membership_id = ?", membershipID).
			Updates(updates).Error; err != nil {
			return err
		}

		rm := toModelRecharge(rec)
		rm.MembershipID = membershipID
		rm.ReceiptNumber = receiptNumber
		if err := tx.Create(rm).Error; err != nil {
			return err
		}
		createdRecharge = *rm

		return tx.Where("membership_id = ?", membershipID).First(&updated).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, clinicErrors.NewDuplicate(clinicErrors.ErrCodeReceiptNumberConflict,
				"票据号冲突，请重试")
		}
		return nil, nil, err
	}

	r.invalidateCache(ctx, membershipID)
	return toBizMembership(&updated), toBizRecharge(&createdRecharge), nil
}

// ApplyConsumption 落账一笔消费。事务内行锁复核状态与余量，
// 纯次卡扣减到 0 时转为 depleted。余额/次数不会为负。
func (r *membershipRepo) ApplyConsumption(ctx context.Context, membershipID string, rec *biz.ConsumptionRecord) (*biz.Membership, *biz.ConsumptionRecord, error) {
	mutex, err := r.lockCard(membershipID)
	if err != nil {
		return nil, nil, err
	}
	defer r.unlockCard(mutex)

	now := time.Now()
	var updated model.Membership
	var createdConsumption model.ConsumptionRecord

	err = r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Membership
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("membership_id = ?", membershipID).
			First(&m).Error; err != nil {
			return err
		}
		if m.Status != constants.CardStatusActive {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeCardStatusBlocked,
				"当前卡状态为 %s，不允许消费", m.Status)
		}

		deductCount := m.CardType == constants.CardTypeCount || m.CardType == constants.CardTypeMixed
		deductBalance := (m.CardType == constants.CardTypeValue || m.CardType == constants.CardTypeMixed) && rec.Amount > 0
		if deductCount && rec.Count > m.Count {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientCount,
				"剩余次数不足：剩余 %d 次，本次需 %d 次", m.Count, rec.Count)
		}
		if deductBalance && rec.Amount > m.Balance {
			return clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientBalance,
				"卡余额不足：余额 %.2f，本次需 %.2f", m.Balance, rec.Amount)
		}

		receiptNumber, err := nextSerial(tx, consumptionSerialRule, now, maxSerialSeed("consumption_record", "receipt_number"))
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"last_consume_date": now,
		}
		if deductCount {
			updates["count"] = gorm.Expr("count - ?", rec.Count)
		}
		if deductBalance {
			updates["balance"] = gorm.Expr("balance - ?", rec.Amount)
		}
		if m.CardType == constants.CardTypeCount && m.Count-rec.Count == 0 {
			updates["status"] = constants.CardStatusDepleted
		}
		if err := tx.Model(&model.Membership{}).
			Where("membership_id = ?", membershipID).
			Updates(updates).Error; err != nil {
			return err
		}

		cm := toModelConsumption(rec)
		cm.MembershipID = membershipID
		cm.ReceiptNumber = receiptNumber
		if err := tx.Create(cm).Error; err != nil {
			return err
		}
		createdConsumption = *cm

		return tx.Where("membership_id = ?", membershipID).First(&updated).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, clinicErrors.NewDuplicate(clinicErrors.ErrCodeReceiptNumberConflict,
				"票据号冲突，请重试")
		}
		return nil, nil, err
	}

	r.invalidateCache(ctx, membershipID)
	return toBizMembership(&updated), toBizConsumption(&createdConsumption), nil
}

// UpdateStatus 改写卡状态，审计记录追加进备注
func (r *membershipRepo) UpdateStatus(ctx context.Context, membershipID, status, auditNote string) (*biz.Membership, error) {
	var updated model.Membership
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Membership
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("membership_id = ?", membershipID).
			First(&m).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"status": status}
		if auditNote != "" {
			notes := m.Notes
			if notes != "" {
				notes += "\n"
			}
			updates["notes"] = notes + auditNote
		}
		if err := tx.Model(&model.Membership{}).
			Where("membership_id = ?", membershipID).
			Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("membership_id = ?", membershipID).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidateCache(ctx, membershipID)
	return toBizMembership(&updated), nil
}

// LatestByCustomer 获取客户最近一张未注销的卡，没有返回 nil
func (r *membershipRepo) LatestByCustomer(ctx context.Context, customerID string) (*biz.Membership, error) {
	var m model.Membership
	err := r.data.db.WithContext(ctx).
		Where("customer_id = ? AND status <> ?", customerID, constants.CardStatusCancelled).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toBizMembership(&m), nil
}

// ListRecharges 分页获取充值流水，汇总不受分页影响
func (r *membershipRepo) ListRecharges(ctx context.Context, membershipID string, start, end *time.Time, page, pageSize int) ([]*biz.RechargeRecord, int64, *biz.LedgerSummary, error) {
	query := r.data.db.WithContext(ctx).
		Model(&model.RechargeRecord{}).
		Where("membership_id = ?", membershipID)
	query = applyDateRange(query, "recharge_date", start, end)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, nil, err
	}

	var summary struct {
		TotalAmount float64
		TotalCount  int
	}
	if err := query.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total_amount), 0) AS total_amount, COALESCE(SUM(recharge_count), 0) AS total_count").
		Scan(&summary).Error; err != nil {
		return nil, 0, nil, err
	}

	var models []*model.RechargeRecord
	if err := query.Session(&gorm.Session{}).
		Order("recharge_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, nil, err
	}

	records := make([]*biz.RechargeRecord, 0, len(models))
	for _, m := range models {
		records = append(records, toBizRecharge(m))
	}
	return records, total, &biz.LedgerSummary{
		TotalAmount: summary.TotalAmount,
		TotalCount:  summary.TotalCount,
	}, nil
}

// ListConsumptions 分页获取消费流水，汇总不受分页影响
func (r *membershipRepo) ListConsumptions(ctx context.Context, membershipID string, start, end *time.Time, page, pageSize int) ([]*biz.ConsumptionRecord, int64, *biz.LedgerSummary, error) {
	query := r.data.db.WithContext(ctx).
		Model(&model.ConsumptionRecord{}).
		Where("membership_id = ?", membershipID)
	query = applyDateRange(query, "consume_date", start, end)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, nil, err
	}

	var summary struct {
		TotalAmount float64
		TotalCount  int
	}
	if err := query.Session(&gorm.Session{}).
		Select("COALESCE(SUM(amount), 0) AS total_amount, COALESCE(SUM(count), 0) AS total_count").
		Scan(&summary).Error; err != nil {
		return nil, 0, nil, err
	}

	var models []*model.ConsumptionRecord
	if err := query.Session(&gorm.Session{}).
		Order("consume_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, nil, err
	}

	records := make([]*biz.ConsumptionRecord, 0, len(models))
	for _, m := range models {
		records = append(records, toBizConsumption(m))
	}
	return records, total, &biz.LedgerSummary{
		TotalAmount: summary.TotalAmount,
		TotalCount:  summary.TotalCount,
	}, nil
}

// ExpireOverdue 把有效期已过但仍为 active 的卡批量置为 expired
func (r *membershipRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.data.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date < ?", constants.CardStatusActive, now).
		Update("status", constants.CardStatusExpired)
	return result.RowsAffected, result.Error
}

// applyDateRange 给查询追加可选的日期范围条件
func applyDateRange(query *gorm.DB, column string, start, end *time.Time) *gorm.DB {
	if start != nil {
		query = query.Where(fmt.Sprintf("%s >= ?", column), *start)
	}
	if end != nil {
		query = query.Where(fmt.Sprintf("%s <= ?", column), *end)
	}
	return query
}

// toModelMembership 领域对象转数据库模型
func toModelMembership(c *biz.Membership) *model.Membership {
	return &model.Membership{
		MembershipID: c.MembershipID,
		CardNumber:   c.CardNumber,
		CustomerID:   c.CustomerID,
		TypeID:       c.TypeID,
		CardType:     c.CardType,
		Balance:      c.Balance,
		Count:        c.Count,
		ExpiryDate:   c.ExpiryDate,
		Status:       c.Status,
		Notes:        c.Notes,
	}
}

// toBizMembership 数据库模型转领域对象
func toBizMembership(m *model.Membership) *biz.Membership {
	return &biz.Membership{
		MembershipID:     m.MembershipID,
		CardNumber:       m.CardNumber,
		CustomerID:       m.CustomerID,
		TypeID:           m.TypeID,
		CardType:         m.CardType,
		Balance:          m.Balance,
		Count:            m.Count,
		ExpiryDate:       m.ExpiryDate,
		Status:           m.Status,
		LastRechargeDate: m.LastRechargeDate,
		LastConsumeDate:  m.LastConsumeDate,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// toModelRecharge 领域对象转数据库模型
func toModelRecharge(c *biz.RechargeRecord) *model.RechargeRecord {
	return &model.RechargeRecord{
		RechargeID:    c.RechargeID,
		MembershipID:  c.MembershipID,
		CustomerID:    c.CustomerID,
		RechargeType:  c.RechargeType,
		Amount:        c.Amount,
		RechargeCount: c.RechargeCount,
		ExtendMonths:  c.ExtendMonths,
		BonusAmount:   c.BonusAmount,
		TotalAmount:   c.TotalAmount,
		PaymentMethod: c.PaymentMethod,
		ReceiptNumber: c.ReceiptNumber,
		Source:        c.Source,
		RechargeDate:  c.RechargeDate,
		OperatorName:  c.OperatorName,
		Notes:         c.Notes,
	}
}

// toBizRecharge 数据库模型转领域对象
func toBizRecharge(m *model.RechargeRecord) *biz.RechargeRecord {
	return &biz.RechargeRecord{
		RechargeID:    m.RechargeID,
		MembershipID:  m.MembershipID,
		CustomerID:    m.CustomerID,
		RechargeType:  m.RechargeType,
		Amount:        m.Amount,
		RechargeCount: m.RechargeCount,
		ExtendMonths:  m.ExtendMonths,
		BonusAmount:   m.BonusAmount,
		TotalAmount:   m.TotalAmount,
		PaymentMethod: m.PaymentMethod,
		ReceiptNumber: m.ReceiptNumber,
		Source:        m.Source,
		RechargeDate:  m.RechargeDate,
		OperatorName:  m.OperatorName,
		Notes:         m.Notes,
	}
}

// toModelConsumption 领域对象转数据库模型
func toModelConsumption(c *biz.ConsumptionRecord) *model.ConsumptionRecord {
	return &model.ConsumptionRecord{
		ConsumptionID: c.ConsumptionID,
		MembershipID:  c.MembershipID,
		CustomerID:    c.CustomerID,
		ChildName:     c.ChildName,
		ServiceName:   c.ServiceName,
		Amount:        c.Amount,
		Count:         c.Count,
		ConsumeDate:   c.ConsumeDate,
		ReceiptNumber: c.ReceiptNumber,
		TherapistName: c.TherapistName,
		OperatorName:  c.OperatorName,
	}
}

// toBizConsumption 数据库模型转领域对象
func toBizConsumption(m *model.ConsumptionRecord) *biz.ConsumptionRecord {
	return &biz.ConsumptionRecord{
		ConsumptionID: m.ConsumptionID,
		MembershipID:  m.MembershipID,
		CustomerID:    m.CustomerID,
		ChildName:     m.ChildName,
		ServiceName:   m.ServiceName,
		Amount:        m.Amount,
		Count:         m.Count,
		ConsumeDate:   m.ConsumeDate,
		ReceiptNumber: m.ReceiptNumber,
		TherapistName: m.TherapistName,
		OperatorName:  m.OperatorName,
	}
}
