package biz

import (
	"context"
	"testing"
	"time"

	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVisitRepo 内存版服务记录仓储，会员卡扣费直接作用于 fakeMembershipRepo
type fakeVisitRepo struct {
	visits         map[string]*ServiceVisit
	membershipRepo *fakeMembershipRepo
}

func newFakeVisitRepo(membershipRepo *fakeMembershipRepo) *fakeVisitRepo {
	return &fakeVisitRepo{
		visits:         make(map[string]*ServiceVisit),
		membershipRepo: membershipRepo,
	}
}

func (f *fakeVisitRepo) CreateVisit(_ context.Context, visit *ServiceVisit) (*ServiceVisit, error) {
	visit.CreatedAt = time.Now()
	f.visits[visit.VisitID] = visit
	return visit, nil
}

func (f *fakeVisitRepo) CreateVisitWithDebit(ctx context.Context, visit *ServiceVisit) (*ServiceVisit, error) {
	card, ok := f.membershipRepo.cards[visit.MembershipID]
	if !ok {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeMembershipNotFound, "会员卡不存在")
	}
	if card.Status != constants.CardStatusActive {
		return nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeCardStatusBlocked, "当前卡状态为 %s，不允许扣费", card.Status)
	}
	if visit.ServiceFee > card.Balance {
		return nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientBalance,
			"卡余额不足：余额 %.2f，本次需 %.2f", card.Balance, visit.ServiceFee)
	}
	card.Balance -= visit.ServiceFee
	now := time.Now()
	card.LastConsumeDate = &now
	return f.CreateVisit(ctx, visit)
}

func (f *fakeVisitRepo) GetVisit(_ context.Context, visitID string) (*ServiceVisit, error) {
	return f.visits[visitID], nil
}

func (f *fakeVisitRepo) ListVisits(_ context.Context, filter *VisitFilter, _, _ int) ([]*ServiceVisit, int64, error) {
	var out []*ServiceVisit
	for _, v := range f.visits {
		if filter != nil && filter.CustomerID != "" && v.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, v)
	}
	return out, int64(len(out)), nil
}

func (f *fakeVisitRepo) UpdateRating(_ context.Context, visitID string, rating int) (*ServiceVisit, error) {
	visit := f.visits[visitID]
	visit.Rating = rating
	return visit, nil
}

// fakeTherapistRepo 内存版理疗师仓储
type fakeTherapistRepo struct {
	therapists map[string]*Therapist
}

func newFakeTherapistRepo() *fakeTherapistRepo {
	return &fakeTherapistRepo{therapists: make(map[string]*Therapist)}
}

func (f *fakeTherapistRepo) CreateTherapist(_ context.Context, t *Therapist) error {
	f.therapists[t.TherapistID] = t
	return nil
}

func (f *fakeTherapistRepo) GetTherapist(_ context.Context, therapistID string) (*Therapist, error) {
	return f.therapists[therapistID], nil
}

func (f *fakeTherapistRepo) ListTherapists(_ context.Context, _ bool) ([]*Therapist, error) {
	var out []*Therapist
	for _, t := range f.therapists {
		out = append(out, t)
	}
	return out, nil
}

func newTestVisitUseCase() (*ServiceVisitUseCase, *fakeVisitRepo, *fakeMembershipRepo, *fakeCustomerRepo, *fakeTherapistRepo) {
	membershipRepo := newFakeMembershipRepo()
	customerRepo := newFakeCustomerRepo()
	therapistRepo := newFakeTherapistRepo()
	repo := newFakeVisitRepo(membershipRepo)
	uc := NewServiceVisitUseCase(repo, customerRepo, membershipRepo, therapistRepo, log.DefaultLogger)
	return uc, repo, membershipRepo, customerRepo, therapistRepo
}

func TestCreateVisit_CashPayment(t *testing.T) {
	uc, _, _, customerRepo, _ := newTestVisitUseCase()
	seedCustomer(customerRepo, "cust-1")

	visit, err := uc.CreateVisit(context.Background(), &CreateVisitParams{
		CustomerID:    "cust-1",
		ServiceName:   "小儿推拿",
		ServiceFee:    200,
		PaymentMethod: constants.PaymentMethodCash,
		Duration:      45,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, visit.VisitID)
	assert.Equal(t, "小明", visit.ChildName)
}

func TestCreateVisit_FillsTherapistName(t *testing.T) {
	uc, _, _, customerRepo, therapistRepo := newTestVisitUseCase()
	seedCustomer(customerRepo, "cust-1")
	therapistRepo.therapists["th-1"] = &Therapist{TherapistID: "th-1", Name: "李医师", Active: true}

	visit, err := uc.CreateVisit(context.Background(), &CreateVisitParams{
		CustomerID:  "cust-1",
		ServiceName: "捏脊",
		TherapistID: "th-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "李医师", visit.TherapistName)
}

func TestCreateVisit_MembershipDebit(t *testing.T) {
	uc, _, membershipRepo, customerRepo, _ := newTestVisitUseCase()
	seedCustomer(customerRepo, "cust-1")
	membershipRepo.cards["card-1"] = &Membership{
		MembershipID: "card-1",
		CustomerID:   "cust-1",
		CardType:     constants.CardTypeValue,
		Balance:      300,
		Status:       constants.CardStatusActive,
	}

	visit, err := uc.CreateVisit(context.Background(), &CreateVisitParams{
		CustomerID:    "cust-1",
		MembershipID:  "card-1",
		ServiceName:   "小儿推拿",
		ServiceFee:    120,
		PaymentMethod: constants.PaymentMethodMembership,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(120), visit.ServiceFee)
	// 卡余额直接扣减
	assert.Equal(t, float64(180), membershipRepo.cards["card-1"].Balance)
	// 不产生消费流水
	assert.Empty(t, membershipRepo.consumptions["card-1"])
}

func TestCreateVisit_MembershipRequired(t *testing.T) {
	uc, _, _, customerRepo, _ := newTestVisitUseCase()
	seedCustomer(customerRepo, "cust-1")

	_, err := uc.CreateVisit(context.Background(), &CreateVisitParams{
		CustomerID:    "cust-1",
		ServiceName:   "小儿推拿",
		ServiceFee:    120,
		PaymentMethod: constants.PaymentMethodMembership,
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeVisitMembershipRequired))
}

func TestCreateVisit_MembershipInsufficientBalance(t *testing.T) {
	uc, _, membershipRepo, customerRepo, _ := newTestVisitUseCase()
	seedCustomer(customerRepo, "cust-1")
	membershipRepo.cards["card-1"] = &Membership{
		MembershipID: "card-1",
		CustomerID:   "cust-1",
		CardType:     constants.CardTypeValue,
		Balance:      50,
		Status:       constants.CardStatusActive,
	}

	_, err := uc.CreateVisit(context.Background(), &CreateVisitParams{
		CustomerID:    "cust-1",
		MembershipID:  "card-1",
		ServiceName:   "小儿推拿",
		ServiceFee:    120,
		PaymentMethod: constants.PaymentMethodMembership,
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInsufficientBalance))
	assert.Equal(t, float64(50), membershipRepo.cards["card-1"].Balance)
}

func TestCreateVisit_MembershipCardBlocked(t *testing.T) {
	uc, _, membershipRepo, customerRepo, _ := newTestVisitUseCase()
	seedCustomer(customerRepo, "cust-1")
	membershipRepo.cards["card-1"] = &Membership{
		MembershipID: "card-1",
		CustomerID:   "cust-1",
		CardType:     constants.CardTypeValue,
		Balance:      300,
		Status:       constants.CardStatusFrozen,
	}

	_, err := uc.CreateVisit(context.Background(), &CreateVisitParams{
		CustomerID:    "cust-1",
		MembershipID:  "card-1",
		ServiceName:   "小儿推拿",
		ServiceFee:    120,
		PaymentMethod: constants.PaymentMethodMembership,
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCardStatusBlocked))
}

func TestCreateVisit_Validation(t *testing.T) {
	uc, _, _, customerRepo, _ := newTestVisitUseCase()
	seedCustomer(customerRepo, "cust-1")

	_, err := uc.CreateVisit(context.Background(), &CreateVisitParams{CustomerID: "cust-1"})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeServiceNameRequired))

	_, err = uc.CreateVisit(context.Background(), &CreateVisitParams{
		CustomerID: "cust-1", ServiceName: "推拿", ServiceFee: -1,
	})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidServiceFee))

	_, err = uc.CreateVisit(context.Background(), &CreateVisitParams{
		CustomerID: "missing", ServiceName: "推拿",
	})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCustomerNotFound))
}

func TestUpdateRating(t *testing.T) {
	uc, _, _, customerRepo, _ := newTestVisitUseCase()
	seedCustomer(customerRepo, "cust-1")

	visit, err := uc.CreateVisit(context.Background(), &CreateVisitParams{
		CustomerID:  "cust-1",
		ServiceName: "捏脊",
	})
	require.NoError(t, err)

	visit, err = uc.UpdateRating(context.Background(), visit.VisitID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, visit.Rating)

	_, err = uc.UpdateRating(context.Background(), visit.VisitID, 6)
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidRating))

	_, err = uc.UpdateRating(context.Background(), "missing", 3)
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeVisitNotFound))
}
