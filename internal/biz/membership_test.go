package biz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMembershipRepo 内存版会员卡仓储，复刻数据层的卡面变更语义
type fakeMembershipRepo struct {
	cards        map[string]*Membership
	recharges    map[string][]*RechargeRecord
	consumptions map[string][]*ConsumptionRecord
	serial       int
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{
		cards:        make(map[string]*Membership),
		recharges:    make(map[string][]*RechargeRecord),
		consumptions: make(map[string][]*ConsumptionRecord),
	}
}

func (f *fakeMembershipRepo) nextReceipt(prefix string) string {
	f.serial++
	return fmt.Sprintf("%s%s%04d", prefix, time.Now().Format("20060102"), f.serial)
}

func (f *fakeMembershipRepo) IssueCard(_ context.Context, card *Membership, initial *RechargeRecord) (*Membership, *RechargeRecord, error) {
	f.serial++
	card.CardNumber = fmt.Sprintf("MK%s%03d", time.Now().Format("200601"), f.serial)
	card.CreatedAt = time.Now()
	f.cards[card.MembershipID] = card
	if initial != nil {
		initial.MembershipID = card.MembershipID
		initial.ReceiptNumber = f.nextReceipt("RC")
		f.recharges[card.MembershipID] = append(f.recharges[card.MembershipID], initial)
		now := time.Now()
		card.LastRechargeDate = &now
	}
	return card, initial, nil
}

func (f *fakeMembershipRepo) GetMembership(_ context.Context, membershipID string) (*Membership, error) {
	card, ok := f.cards[membershipID]
	if !ok {
		return nil, nil
	}
	clone := *card
	return &clone, nil
}

func (f *fakeMembershipRepo) ListMemberships(_ context.Context, filter *MembershipFilter, page, pageSize int) ([]*Membership, int64, error) {
	var out []*Membership
	for _, card := range f.cards {
		if filter != nil && filter.CustomerID != "" && card.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, card)
	}
	return out, int64(len(out)), nil
}

func (f *fakeMembershipRepo) ApplyRecharge(_ context.Context, membershipID string, mut RechargeMutation, rec *RechargeRecord) (*Membership, *RechargeRecord, error) {
	card, ok := f.cards[membershipID]
	if !ok {
		return nil, nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
	}
	if card.Status != constants.CardStatusActive && card.Status != constants.CardStatusExpired {
		return nil, nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeCardStatusBlocked, "当前卡状态为 %s，不允许充值", card.Status)
	}
	now := time.Now()
	card.Count += mut.AddCount
	card.Balance += mut.AddBalance
	if mut.ExtendMonths > 0 {
		base := now
		if card.ExpiryDate != nil && card.ExpiryDate.After(now) {
			base = *card.ExpiryDate
		}
		newExpiry := base.AddDate(0, mut.ExtendMonths, 0)
		card.ExpiryDate = &newExpiry
	}
	if card.Status == constants.CardStatusExpired && card.ExpiryDate != nil && card.ExpiryDate.After(now) {
		card.Status = constants.CardStatusActive
	}
	card.LastRechargeDate = &now
	rec.MembershipID = membershipID
	rec.ReceiptNumber = f.nextReceipt("RC")
	f.recharges[membershipID] = append(f.recharges[membershipID], rec)
	clone := *card
	return &clone, rec, nil
}

func (f *fakeMembershipRepo) ApplyConsumption(_ context.Context, membershipID string, rec *ConsumptionRecord) (*Membership, *ConsumptionRecord, error) {
	card, ok := f.cards[membershipID]
	if !ok {
		return nil, nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
	}
	if card.Status != constants.CardStatusActive {
		return nil, nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeCardStatusBlocked, "当前卡状态为 %s，不允许消费", card.Status)
	}
	if err := checkSufficiency(card, rec.Amount, rec.Count); err != nil {
		return nil, nil, err
	}
	now := time.Now()
	switch card.CardType {
	case constants.CardTypeCount:
		card.Count -= rec.Count
		if card.Count == 0 {
			card.Status = constants.CardStatusDepleted
		}
	case constants.CardTypeValue:
		card.Balance -= rec.Amount
	case constants.CardTypeMixed:
		card.Count -= rec.Count
		card.Balance -= rec.Amount
	}
	card.LastConsumeDate = &now
	rec.MembershipID = membershipID
	rec.ReceiptNumber = f.nextReceipt("CS")
	f.consumptions[membershipID] = append(f.consumptions[membershipID], rec)
	clone := *card
	return &clone, rec, nil
}

func (f *fakeMembershipRepo) UpdateStatus(_ context.Context, membershipID, status, auditNote string) (*Membership, error) {
	card, ok := f.cards[membershipID]
	if !ok {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
	}
	card.Status = status
	if auditNote != "" {
		if card.Notes != "" {
			card.Notes += "\n"
		}
		card.Notes += auditNote
	}
	clone := *card
	return &clone, nil
}

func (f *fakeMembershipRepo) LatestByCustomer(_ context.Context, customerID string) (*Membership, error) {
	var latest *Membership
	for _, card := range f.cards {
		if card.CustomerID != customerID || card.Status == constants.CardStatusCancelled {
			continue
		}
		if latest == nil || card.CreatedAt.After(latest.CreatedAt) {
			latest = card
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (f *fakeMembershipRepo) ListRecharges(_ context.Context, membershipID string, _, _ *time.Time, _, _ int) ([]*RechargeRecord, int64, *LedgerSummary, error) {
	recs := f.recharges[membershipID]
	summary := &LedgerSummary{}
	for _, r := range recs {
		summary.TotalAmount += r.TotalAmount
		summary.TotalCount++
	}
	return recs, int64(len(recs)), summary, nil
}

func (f *fakeMembershipRepo) ListConsumptions(_ context.Context, membershipID string, _, _ *time.Time, _, _ int) ([]*ConsumptionRecord, int64, *LedgerSummary, error) {
	recs := f.consumptions[membershipID]
	summary := &LedgerSummary{}
	for _, r := range recs {
		summary.TotalAmount += r.Amount
		summary.TotalCount++
	}
	return recs, int64(len(recs)), summary, nil
}

func (f *fakeMembershipRepo) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, card := range f.cards {
		if card.Status == constants.CardStatusActive && card.ExpiryDate != nil && card.ExpiryDate.Before(now) {
			card.Status = constants.CardStatusExpired
			n++
		}
	}
	return n, nil
}

// fakeCustomerRepo 内存版客户仓储
type fakeCustomerRepo struct {
	customers map[string]*Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*Customer)}
}

func (f *fakeCustomerRepo) CreateCustomer(_ context.Context, c *Customer) error {
	f.customers[c.CustomerID] = c
	return nil
}

func (f *fakeCustomerRepo) GetCustomer(_ context.Context, customerID string) (*Customer, error) {
	return f.customers[customerID], nil
}

func (f *fakeCustomerRepo) GetCustomerByPhone(_ context.Context, phone string) (*Customer, error) {
	for _, c := range f.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCustomerRepo) ListCustomers(_ context.Context, _ string, _, _ int) ([]*Customer, int64, error) {
	var out []*Customer
	for _, c := range f.customers {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCustomerRepo) UpdateCustomer(_ context.Context, c *Customer) error {
	f.customers[c.CustomerID] = c
	return nil
}

func (f *fakeCustomerRepo) UpdateMembershipStatus(_ context.Context, customerID, status string) error {
	if c, ok := f.customers[customerID]; ok {
		c.MembershipStatus = status
	}
	return nil
}

func (f *fakeCustomerRepo) ListStatuses(_ context.Context) ([]*CustomerStatus, error) {
	var out []*CustomerStatus
	for _, c := range f.customers {
		out = append(out, &CustomerStatus{CustomerID: c.CustomerID, MembershipStatus: c.MembershipStatus})
	}
	return out, nil
}

// fakeTypeRepo 内存版卡种模板仓储
type fakeTypeRepo struct {
	types map[string]*MembershipType
}

func newFakeTypeRepo() *fakeTypeRepo {
	return &fakeTypeRepo{types: make(map[string]*MembershipType)}
}

func (f *fakeTypeRepo) CreateMembershipType(_ context.Context, t *MembershipType) error {
	f.types[t.TypeID] = t
	return nil
}

func (f *fakeTypeRepo) GetMembershipType(_ context.Context, typeID string) (*MembershipType, error) {
	return f.types[typeID], nil
}

func (f *fakeTypeRepo) ListMembershipTypes(_ context.Context, _ bool) ([]*MembershipType, error) {
	var out []*MembershipType
	for _, t := range f.types {
		out = append(out, t)
	}
	return out, nil
}

func testClinicConfig() *ClinicConfig {
	return &ClinicConfig{
		ExpiringSoonDays:    30,
		InactiveDefaultDays: 30,
		InactiveTopN:        10,
		BalanceCacheTTL:     5 * time.Minute,
	}
}

func newTestMembershipUseCase() (*MembershipUseCase, *fakeMembershipRepo, *fakeCustomerRepo, *fakeTypeRepo) {
	repo := newFakeMembershipRepo()
	customerRepo := newFakeCustomerRepo()
	typeRepo := newFakeTypeRepo()
	uc := NewMembershipUseCase(repo, customerRepo, typeRepo, testClinicConfig(), log.DefaultLogger)
	return uc, repo, customerRepo, typeRepo
}

func seedCustomer(customerRepo *fakeCustomerRepo, customerID string) {
	customerRepo.customers[customerID] = &Customer{
		CustomerID: customerID,
		ChildName:  "小明",
		ParentName: "王先生",
		Phone:      "13800000001",
	}
}

func TestIssueCard_WithInitialRecharge(t *testing.T) {
	uc, repo, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, initial, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeValue,
		InitialAmount: 100,
		BonusAmount:   20,
		OperatorName:  "前台A",
	})
	require.NoError(t, err)
	require.NotNil(t, card)
	require.NotNil(t, initial)

	assert.Equal(t, float64(120), card.Balance)
	assert.Equal(t, constants.CardStatusActive, card.Status)
	assert.Regexp(t, `^MK\d{6}\d{3}$`, card.CardNumber)

	assert.Equal(t, constants.RechargeSourceIssue, initial.Source)
	assert.Equal(t, float64(100), initial.TotalAmount)
	assert.Equal(t, float64(20), initial.BonusAmount)
	assert.Equal(t, constants.PaymentMethodCash, initial.PaymentMethod)
	assert.Regexp(t, `^RC\d{8}\d{4}$`, initial.ReceiptNumber)

	recs := repo.recharges[card.MembershipID]
	require.Len(t, recs, 1)
}

func TestIssueCard_WithoutInitialRecharge(t *testing.T) {
	uc, repo, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, initial, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:   "cust-1",
		CardType:     constants.CardTypeCount,
		InitialCount: 10,
	})
	require.NoError(t, err)
	assert.Nil(t, initial)
	assert.Equal(t, 10, card.Count)
	assert.Empty(t, repo.recharges[card.MembershipID])
}

func TestIssueCard_FillsFromTemplate(t *testing.T) {
	uc, _, customerRepo, typeRepo := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")
	typeRepo.types["type-1"] = &MembershipType{
		TypeID:       "type-1",
		Name:         "10 次卡",
		Category:     constants.CardTypeCount,
		ServiceCount: 10,
		ValidityDays: 365,
		Active:       true,
	}

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID: "cust-1",
		TypeID:     "type-1",
	})
	require.NoError(t, err)
	assert.Equal(t, constants.CardTypeCount, card.CardType)
	assert.Equal(t, 10, card.Count)
	require.NotNil(t, card.ExpiryDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 365), *card.ExpiryDate, time.Minute)
}

func TestIssueCard_CustomerNotFound(t *testing.T) {
	uc, _, _, _ := newTestMembershipUseCase()

	_, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID: "missing",
		CardType:   constants.CardTypeValue,
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCustomerNotFound))
}

func TestIssueCard_InvalidCardType(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	_, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID: "cust-1",
		CardType:   "platinum",
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidCardType))
}

func TestRecharge_ValueCardUsesTotalAmount(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeValue,
		InitialAmount: 100,
		BonusAmount:   20,
	})
	require.NoError(t, err)
	require.Equal(t, float64(120), card.Balance)

	card, rec, err := uc.Recharge(context.Background(), card.MembershipID, &RechargeParams{
		RechargeType:  constants.RechargeTypeAmount,
		TotalAmount:   50,
		PaymentMethod: constants.PaymentMethodWechat,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(170), card.Balance)
	assert.Equal(t, constants.RechargeSourceRecharge, rec.Source)
	assert.Regexp(t, `^RC\d{8}\d{4}$`, rec.ReceiptNumber)
}

func TestRecharge_CountCard(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:   "cust-1",
		CardType:     constants.CardTypeCount,
		InitialCount: 5,
	})
	require.NoError(t, err)

	card, _, err = uc.Recharge(context.Background(), card.MembershipID, &RechargeParams{
		RechargeType:  constants.RechargeTypeCount,
		Count:         10,
		TotalAmount:   880,
		PaymentMethod: constants.PaymentMethodAlipay,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, card.Count)
}

func TestRecharge_ExtendFromFutureExpiry(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	expiry := time.Now().AddDate(0, 2, 0)
	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID: "cust-1",
		CardType:   constants.CardTypePeriod,
		ExpiryDate: &expiry,
	})
	require.NoError(t, err)

	card, _, err = uc.Recharge(context.Background(), card.MembershipID, &RechargeParams{
		RechargeType:  constants.RechargeTypeExtend,
		ExtendMonths:  3,
		TotalAmount:   600,
		PaymentMethod: constants.PaymentMethodCash,
	})
	require.NoError(t, err)
	require.NotNil(t, card.ExpiryDate)
	// 未过期的卡从原有效期顺延
	assert.WithinDuration(t, expiry.AddDate(0, 3, 0), *card.ExpiryDate, time.Minute)
}

func TestRecharge_ExtendReactivatesExpiredCard(t *testing.T) {
	uc, repo, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	pastExpiry := time.Now().AddDate(0, -1, 0)
	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID: "cust-1",
		CardType:   constants.CardTypePeriod,
		ExpiryDate: &pastExpiry,
	})
	require.NoError(t, err)
	repo.cards[card.MembershipID].Status = constants.CardStatusExpired

	card, _, err = uc.Recharge(context.Background(), card.MembershipID, &RechargeParams{
		RechargeType:  constants.RechargeTypeExtend,
		ExtendMonths:  1,
		TotalAmount:   200,
		PaymentMethod: constants.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.CardStatusActive, card.Status)
	require.NotNil(t, card.ExpiryDate)
	// 已过期的卡从当前时间起算
	assert.WithinDuration(t, time.Now().AddDate(0, 1, 0), *card.ExpiryDate, time.Minute)
}

func TestRecharge_MixedAppliesAll(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeMixed,
		InitialAmount: 100,
		InitialCount:  5,
	})
	require.NoError(t, err)

	card, _, err = uc.Recharge(context.Background(), card.MembershipID, &RechargeParams{
		RechargeType:  constants.RechargeTypeMixed,
		Count:         10,
		Amount:        200,
		ExtendMonths:  6,
		TotalAmount:   1000,
		PaymentMethod: constants.PaymentMethodWechat,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, card.Count)
	assert.Equal(t, float64(300), card.Balance)
	require.NotNil(t, card.ExpiryDate)
}

func TestRecharge_RejectedOnFrozenCard(t *testing.T) {
	uc, repo, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeValue,
		InitialAmount: 100,
	})
	require.NoError(t, err)
	repo.cards[card.MembershipID].Status = constants.CardStatusFrozen

	_, _, err = uc.Recharge(context.Background(), card.MembershipID, &RechargeParams{
		RechargeType:  constants.RechargeTypeAmount,
		TotalAmount:   50,
		PaymentMethod: constants.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCardStatusBlocked))
	// 卡面未被修改
	assert.Equal(t, float64(100), repo.cards[card.MembershipID].Balance)
}

func TestRecharge_Validation(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeValue,
		InitialAmount: 100,
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		params   *RechargeParams
		wantCode int
	}{
		{
			name:     "无效充值类型",
			params:   &RechargeParams{RechargeType: "bonus", TotalAmount: 50, PaymentMethod: "cash"},
			wantCode: clinicErrors.ErrCodeInvalidRechargeType,
		},
		{
			name:     "实收金额为 0",
			params:   &RechargeParams{RechargeType: constants.RechargeTypeAmount, TotalAmount: 0, PaymentMethod: "cash"},
			wantCode: clinicErrors.ErrCodeRechargeAmountRequired,
		},
		{
			name:     "缺少支付方式",
			params:   &RechargeParams{RechargeType: constants.RechargeTypeAmount, TotalAmount: 50},
			wantCode: clinicErrors.ErrCodePaymentMethodRequired,
		},
		{
			name:     "次数充值但次数为 0",
			params:   &RechargeParams{RechargeType: constants.RechargeTypeCount, TotalAmount: 50, PaymentMethod: "cash"},
			wantCode: clinicErrors.ErrCodeInvalidRechargeType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := uc.Recharge(context.Background(), card.MembershipID, tt.params)
			require.Error(t, err)
			assert.True(t, clinicErrors.IsCode(err, tt.wantCode))
		})
	}
}

func TestRecordConsumption_ValueCardLifecycle(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeValue,
		InitialAmount: 100,
		BonusAmount:   20,
	})
	require.NoError(t, err)

	card, _, err = uc.Recharge(context.Background(), card.MembershipID, &RechargeParams{
		RechargeType:  constants.RechargeTypeAmount,
		TotalAmount:   50,
		PaymentMethod: constants.PaymentMethodCash,
	})
	require.NoError(t, err)
	require.Equal(t, float64(170), card.Balance)

	card, rec, err := uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{
		ServiceName: "小儿推拿",
		Amount:      30,
		Count:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(140), card.Balance)
	assert.Equal(t, "小明", rec.ChildName)
	assert.Regexp(t, `^CS\d{8}\d{4}$`, rec.ReceiptNumber)

	// 超额消费被拒，卡面不变
	_, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{
		ServiceName: "小儿推拿",
		Amount:      500,
		Count:       1,
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInsufficientBalance))

	card, err = uc.GetMembership(context.Background(), card.MembershipID)
	require.NoError(t, err)
	assert.Equal(t, float64(140), card.Balance)
}

func TestRecordConsumption_CountCardDepletes(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:   "cust-1",
		CardType:     constants.CardTypeCount,
		InitialCount: 2,
	})
	require.NoError(t, err)

	card, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{
		ServiceName: "捏脊",
		Count:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, card.Count)
	assert.Equal(t, constants.CardStatusActive, card.Status)

	// 扣到恰好 0 次转为 depleted
	card, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{
		ServiceName: "捏脊",
		Count:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, card.Count)
	assert.Equal(t, constants.CardStatusDepleted, card.Status)

	// 用尽后不再允许消费
	_, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{
		ServiceName: "捏脊",
		Count:       1,
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCardStatusBlocked))
}

func TestRecordConsumption_MixedCardChecksBoth(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeMixed,
		InitialAmount: 50,
		InitialCount:  3,
	})
	require.NoError(t, err)

	// 次数够但余额不够
	_, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{
		ServiceName: "艾灸",
		Amount:      80,
		Count:       1,
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInsufficientBalance))

	// 余额够但次数不够
	_, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{
		ServiceName: "艾灸",
		Amount:      10,
		Count:       5,
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInsufficientCount))

	// 两者都够
	card, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{
		ServiceName: "艾灸",
		Amount:      20,
		Count:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, card.Count)
	assert.Equal(t, float64(30), card.Balance)
}

func TestRecordConsumption_Validation(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeValue,
		InitialAmount: 100,
	})
	require.NoError(t, err)

	_, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{Count: 1})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeServiceNameRequired))

	_, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{ServiceName: "推拿", Count: 0})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidConsumeCount))

	_, _, err = uc.RecordConsumption(context.Background(), card.MembershipID, &ConsumptionParams{ServiceName: "推拿", Count: 1, Amount: -1})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidConsumeAmount))
}

func TestUpdateStatus_AppendsAuditNote(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeValue,
		InitialAmount: 100,
	})
	require.NoError(t, err)

	card, err = uc.UpdateStatus(context.Background(), card.MembershipID, constants.CardStatusFrozen, "家长要求暂停", "店长")
	require.NoError(t, err)
	assert.Equal(t, constants.CardStatusFrozen, card.Status)
	assert.Contains(t, card.Notes, "active -> frozen")
	assert.Contains(t, card.Notes, "家长要求暂停")
	assert.Contains(t, card.Notes, "店长")
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeValue,
		InitialAmount: 100,
	})
	require.NoError(t, err)

	_, err = uc.UpdateStatus(context.Background(), card.MembershipID, "paused", "", "")
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidCardStatus))
}

func TestListRecharges_Summary(t *testing.T) {
	uc, _, customerRepo, _ := newTestMembershipUseCase()
	seedCustomer(customerRepo, "cust-1")

	card, _, err := uc.IssueCard(context.Background(), &IssueCardParams{
		CustomerID:    "cust-1",
		CardType:      constants.CardTypeValue,
		InitialAmount: 100,
	})
	require.NoError(t, err)

	_, _, err = uc.Recharge(context.Background(), card.MembershipID, &RechargeParams{
		RechargeType:  constants.RechargeTypeAmount,
		TotalAmount:   50,
		PaymentMethod: constants.PaymentMethodCash,
	})
	require.NoError(t, err)

	recs, total, summary, err := uc.ListRecharges(context.Background(), card.MembershipID, nil, nil, 1, 20)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, int64(2), total)
	require.NotNil(t, summary)
	assert.Equal(t, float64(150), summary.TotalAmount)
}

func TestListRecharges_CardNotFound(t *testing.T) {
	uc, _, _, _ := newTestMembershipUseCase()

	_, _, _, err := uc.ListRecharges(context.Background(), "missing", nil, nil, 1, 20)
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeMembershipNotFound))
}

func TestDeriveMembershipLabel(t *testing.T) {
	now := time.Now()
	future := now.AddDate(1, 0, 0)
	soon := now.AddDate(0, 0, 10)
	past := now.AddDate(0, 0, -1)

	tests := []struct {
		name string
		card *Membership
		want string
	}{
		{"无卡", nil, constants.MembershipStatusNone},
		{"有效期已过", &Membership{Status: constants.CardStatusActive, ExpiryDate: &past}, constants.MembershipStatusExpired},
		{"状态已过期", &Membership{Status: constants.CardStatusExpired, ExpiryDate: &future}, constants.MembershipStatusExpired},
		{"即将到期", &Membership{Status: constants.CardStatusActive, ExpiryDate: &soon}, constants.MembershipStatusExpiring},
		{"正常", &Membership{Status: constants.CardStatusActive, ExpiryDate: &future}, constants.MembershipStatusActive},
		{"无有效期", &Membership{Status: constants.CardStatusActive}, constants.MembershipStatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveMembershipLabel(tt.card, now, 30))
		})
	}
}

func TestReconcileMemberships(t *testing.T) {
	repo := newFakeMembershipRepo()
	customerRepo := newFakeCustomerRepo()
	uc := NewMaintenanceUseCase(repo, customerRepo, testClinicConfig(), log.DefaultLogger)

	past := time.Now().AddDate(0, 0, -1)
	customerRepo.customers["cust-1"] = &Customer{CustomerID: "cust-1", MembershipStatus: constants.MembershipStatusActive}
	repo.cards["card-1"] = &Membership{
		MembershipID: "card-1",
		CustomerID:   "cust-1",
		CardType:     constants.CardTypePeriod,
		Status:       constants.CardStatusActive,
		ExpiryDate:   &past,
		CreatedAt:    time.Now(),
	}

	err := uc.ReconcileMemberships(context.Background())
	require.NoError(t, err)

	assert.Equal(t, constants.CardStatusExpired, repo.cards["card-1"].Status)
	assert.Equal(t, constants.MembershipStatusExpired, customerRepo.customers["cust-1"].MembershipStatus)
}
