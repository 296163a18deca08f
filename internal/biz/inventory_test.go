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

// fakeInventoryRepo 内存版库存仓储
type fakeInventoryRepo struct {
	items        map[string]*InventoryItem
	transactions []*InventoryTransaction
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{items: make(map[string]*InventoryItem)}
}

func (f *fakeInventoryRepo) CreateItem(_ context.Context, item *InventoryItem) (*InventoryItem, error) {
	item.CreatedAt = time.Now()
	f.items[item.ItemID] = item
	if item.Stock > 0 {
		f.transactions = append(f.transactions, &InventoryTransaction{
			ItemID:       item.ItemID,
			ItemName:     item.Name,
			Type:         constants.StockTypeIn,
			Quantity:     item.Stock,
			BalanceAfter: item.Stock,
			Reason:       "期初建账",
		})
	}
	return item, nil
}

func (f *fakeInventoryRepo) GetItem(_ context.Context, itemID string) (*InventoryItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, nil
	}
	clone := *item
	return &clone, nil
}

func (f *fakeInventoryRepo) ListItems(_ context.Context, category string, lowStockOnly bool, _, _ int) ([]*InventoryItem, int64, error) {
	var out []*InventoryItem
	for _, item := range f.items {
		if category != "" && item.Category != category {
			continue
		}
		if lowStockOnly && item.Stock >= item.MinStock {
			continue
		}
		out = append(out, item)
	}
	return out, int64(len(out)), nil
}

func (f *fakeInventoryRepo) UpdateItem(_ context.Context, item *InventoryItem) (*InventoryItem, error) {
	f.items[item.ItemID] = item
	return item, nil
}

func (f *fakeInventoryRepo) ApplyStockMove(_ context.Context, itemID string, trx *InventoryTransaction) (*InventoryItem, *InventoryTransaction, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeInventoryItemNotFound, "库存物品不存在")
	}
	if trx.Type == constants.StockTypeOut {
		if trx.Quantity > item.Stock {
			return nil, nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientStock,
				"库存不足：当前 %d，出库 %d", item.Stock, trx.Quantity)
		}
		item.Stock -= trx.Quantity
	} else {
		item.Stock += trx.Quantity
	}
	trx.ItemID = itemID
	trx.BalanceAfter = item.Stock
	trx.CreatedAt = time.Now()
	f.transactions = append(f.transactions, trx)
	clone := *item
	return &clone, trx, nil
}

func (f *fakeInventoryRepo) ListTransactions(_ context.Context, itemID string, _, _ *time.Time, _, _ int) ([]*InventoryTransaction, int64, error) {
	var out []*InventoryTransaction
	for _, trx := range f.transactions {
		if itemID != "" && trx.ItemID != itemID {
			continue
		}
		out = append(out, trx)
	}
	return out, int64(len(out)), nil
}

func newTestInventoryUseCase() (*InventoryUseCase, *fakeInventoryRepo) {
	repo := newFakeInventoryRepo()
	return NewInventoryUseCase(repo, log.DefaultLogger), repo
}

func TestCreateItem(t *testing.T) {
	uc, repo := newTestInventoryUseCase()

	item, err := uc.CreateItem(context.Background(), &InventoryItem{
		Name:     "小儿推拿油",
		Category: "耗材",
		Unit:     "瓶",
		Stock:    20,
		MinStock: 5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ItemID)

	// 初始库存生成期初流水
	require.Len(t, repo.transactions, 1)
	assert.Equal(t, constants.StockTypeIn, repo.transactions[0].Type)
	assert.Equal(t, 20, repo.transactions[0].Quantity)
}

func TestCreateItem_Validation(t *testing.T) {
	uc, _ := newTestInventoryUseCase()

	_, err := uc.CreateItem(context.Background(), &InventoryItem{Stock: 10})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeItemNameRequired))

	_, err = uc.CreateItem(context.Background(), &InventoryItem{Name: "艾条", Stock: -1})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidStockQuantity))
}

func TestStockInAndOut(t *testing.T) {
	uc, _ := newTestInventoryUseCase()

	item, err := uc.CreateItem(context.Background(), &InventoryItem{Name: "艾条", Stock: 10, MinStock: 3})
	require.NoError(t, err)

	item, trx, err := uc.StockIn(context.Background(), item.ItemID, &StockMoveParams{Quantity: 5, Reason: "采购入库"})
	require.NoError(t, err)
	assert.Equal(t, 15, item.Stock)
	assert.Equal(t, 15, trx.BalanceAfter)

	item, trx, err = uc.StockOut(context.Background(), item.ItemID, &StockMoveParams{Quantity: 12, Reason: "门店领用"})
	require.NoError(t, err)
	assert.Equal(t, 3, item.Stock)
	assert.Equal(t, 3, trx.BalanceAfter)
}

func TestStockOut_InsufficientStock(t *testing.T) {
	uc, repo := newTestInventoryUseCase()

	item, err := uc.CreateItem(context.Background(), &InventoryItem{Name: "艾条", Stock: 5})
	require.NoError(t, err)

	_, _, err = uc.StockOut(context.Background(), item.ItemID, &StockMoveParams{Quantity: 6})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInsufficientStock))
	// 库存不变
	assert.Equal(t, 5, repo.items[item.ItemID].Stock)
}

func TestStockMove_QuantityValidation(t *testing.T) {
	uc, _ := newTestInventoryUseCase()

	item, err := uc.CreateItem(context.Background(), &InventoryItem{Name: "艾条", Stock: 5})
	require.NoError(t, err)

	_, _, err = uc.StockIn(context.Background(), item.ItemID, &StockMoveParams{Quantity: 0})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidStockQuantity))

	_, _, err = uc.StockOut(context.Background(), item.ItemID, &StockMoveParams{Quantity: -1})
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInvalidStockQuantity))
}

func TestStockMove_ItemNotFound(t *testing.T) {
	uc, _ := newTestInventoryUseCase()

	_, _, err := uc.StockIn(context.Background(), "missing", &StockMoveParams{Quantity: 1})
	require.Error(t, err)
	assert.True(t, clinicErrors.IsCode(err, clinicErrors.ErrCodeInventoryItemNotFound))
}

func TestUpdateItem_PreservesStock(t *testing.T) {
	uc, _ := newTestInventoryUseCase()

	item, err := uc.CreateItem(context.Background(), &InventoryItem{Name: "艾条", Stock: 10, MinStock: 3})
	require.NoError(t, err)

	updated, err := uc.UpdateItem(context.Background(), &InventoryItem{
		ItemID:   item.ItemID,
		Name:     "五年陈艾条",
		MinStock: 5,
		Stock:    999, // 库存字段应被忽略
	})
	require.NoError(t, err)
	assert.Equal(t, "五年陈艾条", updated.Name)
	assert.Equal(t, 10, updated.Stock)
}

func TestListItems_LowStockOnly(t *testing.T) {
	uc, _ := newTestInventoryUseCase()

	_, err := uc.CreateItem(context.Background(), &InventoryItem{Name: "艾条", Stock: 2, MinStock: 5})
	require.NoError(t, err)
	_, err = uc.CreateItem(context.Background(), &InventoryItem{Name: "推拿油", Stock: 20, MinStock: 5})
	require.NoError(t, err)

	items, total, err := uc.ListItems(context.Background(), "", true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "艾条", items[0].Name)
}
