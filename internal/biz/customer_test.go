package biz

import (
	"context"
	"testing"

	"clinic-service/internal/constants"
	clinicErrors "clinic-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCustomerUseCase() (*CustomerUseCase, *fakeCustomerRepo) {
	repo := newFakeCustomerRepo()
	return NewCustomerUseCase(repo, log.DefaultLogger), repo
}

func TestCreateCustomer(t *testing.T) {
	uc, repo := newTestCustomerUseCase()

	customer, err := uc.CreateCustomer(context.Background(), &Customer{
		ChildName:  "小明",
		ParentName: "王先生",
		Phone:      "13800000001",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, customer.CustomerID)
	// 未显式给出会员状态时默认 none
	assert.Equal(t, constants.MembershipStatusNone, customer.MembershipStatus)
	assert.NotNil(t, repo.customers[customer.CustomerID])
}

func TestCreateCustomer_DuplicatePhone(t *testing.T) {
	uc, repo := newTestCustomerUseCase()

	first, err := uc.CreateCustomer(context.Background(), &Customer{
		ChildName: "小明",
		Phone:     "13800000001",
	})
	require.NoError(t, err)

	_, err = uc.CreateCustomer(context.Background(), &Customer{
		ChildName: "小红",
		Phone:     "13800000001",
	})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCustomerPhoneExists))
	// 原档案未被覆盖
	assert.Len(t, repo.customers, 1)
	assert.Equal(t, "小明", repo.customers[first.CustomerID].ChildName)
}

func TestCreateCustomer_Validation(t *testing.T) {
	uc, _ := newTestCustomerUseCase()

	_, err := uc.CreateCustomer(context.Background(), &Customer{Phone: "13800000001"})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCustomerNameRequired))

	_, err = uc.CreateCustomer(context.Background(), &Customer{ChildName: "小明"})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCustomerPhoneRequired))
}

func TestGetCustomer_NotFound(t *testing.T) {
	uc, _ := newTestCustomerUseCase()

	_, err := uc.GetCustomer(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCustomerNotFound))
}

func TestUpdateCustomer(t *testing.T) {
	uc, _ := newTestCustomerUseCase()

	customer, err := uc.CreateCustomer(context.Background(), &Customer{
		ChildName: "小明",
		Phone:     "13800000001",
	})
	require.NoError(t, err)

	customer.ParentName = "王女士"
	updated, err := uc.UpdateCustomer(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, "王女士", updated.ParentName)

	_, err = uc.UpdateCustomer(context.Background(), &Customer{CustomerID: "missing"})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeCustomerNotFound))
}
