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

// InventoryItem 库存物品领域对象
type InventoryItem struct {
	ItemID    string
	Name      string
	Category  string
	Unit      string
	Stock     int
	MinStock  int
	UnitPrice float64
	Supplier  string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InventoryTransaction 出入库流水领域对象（只增不改）
type InventoryTransaction struct {
	TransactionID string
	ItemID        string
	ItemName      string
	Type          string // in/out
	Quantity      int
	BalanceAfter  int
	UnitPrice     float64
	Reason        string
	OperatorName  string
	CreatedAt     time.Time
}

// InventoryRepo 库存数据层接口。
// 出入库在数据层事务内完成库存变更与流水落账，出库带库存充足复核。
type InventoryRepo interface {
	CreateItem(ctx context.Context, item *InventoryItem) (*InventoryItem, error)
	GetItem(ctx context.Context, itemID string) (*InventoryItem, error)
	ListItems(ctx context.Context, category string, lowStockOnly bool, page, pageSize int) ([]*InventoryItem, int64, error)
	UpdateItem(ctx context.Context, item *InventoryItem) (*InventoryItem, error)
	ApplyStockMove(ctx context.Context, itemID string, trx *InventoryTransaction) (*InventoryItem, *InventoryTransaction, error)
	ListTransactions(ctx context.Context, itemID string, start, end *time.Time, page, pageSize int) ([]*InventoryTransaction, int64, error)
}

// StockMoveParams 出入库参数
type StockMoveParams struct {
	Quantity     int
	UnitPrice    float64
	Reason       string
	OperatorName string
}

// InventoryUseCase 库存业务逻辑
type InventoryUseCase struct {
	repo    InventoryRepo
	log     *log.Helper
	metrics *metrics.ClinicMetrics
}

// NewInventoryUseCase 创建库存 UseCase
func NewInventoryUseCase(repo InventoryRepo, logger log.Logger) *InventoryUseCase {
	return &InventoryUseCase{
		repo:    repo,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// CreateItem 新建库存物品
func (uc *InventoryUseCase) CreateItem(ctx context.Context, item *InventoryItem) (*InventoryItem, error) {
	if item.Name == "" {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeItemNameRequired, "物品名称必填")
	}
	if item.Stock < 0 {
		return nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidStockQuantity, "初始库存不能为负")
	}
	item.ItemID = uuid.New().String()
	return uc.repo.CreateItem(ctx, item)
}

// GetItem 获取库存物品
func (uc *InventoryUseCase) GetItem(ctx context.Context, itemID string) (*InventoryItem, error) {
	item, err := uc.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeInventoryItemNotFound, "库存物品不存在")
	}
	return item, nil
}

// ListItems 获取库存物品列表，可筛选分类或只看低于安全线的物品
func (uc *InventoryUseCase) ListItems(ctx context.Context, category string, lowStockOnly bool, page, pageSize int) ([]*InventoryItem, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return uc.repo.ListItems(ctx, category, lowStockOnly, page, pageSize)
}

// UpdateItem 更新库存物品基本信息（不含库存数量，库存只走出入库）
func (uc *InventoryUseCase) UpdateItem(ctx context.Context, item *InventoryItem) (*InventoryItem, error) {
	existing, err := uc.repo.GetItem(ctx, item.ItemID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeInventoryItemNotFound, "库存物品不存在")
	}
	item.Stock = existing.Stock
	return uc.repo.UpdateItem(ctx, item)
}

// StockIn 入库
func (uc *InventoryUseCase) StockIn(ctx context.Context, itemID string, params *StockMoveParams) (*InventoryItem, *InventoryTransaction, error) {
	return uc.stockMove(ctx, itemID, constants.StockTypeIn, params)
}

// StockOut 出库。出库数量不得超过当前库存。
func (uc *InventoryUseCase) StockOut(ctx context.Context, itemID string, params *StockMoveParams) (*InventoryItem, *InventoryTransaction, error) {
	return uc.stockMove(ctx, itemID, constants.StockTypeOut, params)
}

func (uc *InventoryUseCase) stockMove(ctx context.Context, itemID, moveType string, params *StockMoveParams) (*InventoryItem, *InventoryTransaction, error) {
	if params.Quantity <= 0 {
		return nil, nil, clinicErrors.NewValidation(clinicErrors.ErrCodeInvalidStockQuantity, "出入库数量必须大于 0")
	}

	item, err := uc.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, clinicErrors.NewNotFound(clinicErrors.ErrCodeInventoryItemNotFound, "库存物品不存在")
	}
	if moveType == constants.StockTypeOut && params.Quantity > item.Stock {
		uc.observeMove(moveType, constants.ResultRejected)
		return nil, nil, clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientStock,
			"库存不足：当前 %d，出库 %d", item.Stock, params.Quantity)
	}

	trx := &InventoryTransaction{
		TransactionID: uuid.New().String(),
		ItemName:      item.Name,
		Type:          moveType,
		Quantity:      params.Quantity,
		UnitPrice:     params.UnitPrice,
		Reason:        params.Reason,
		OperatorName:  params.OperatorName,
	}

	item, trx, err = uc.repo.ApplyStockMove(ctx, itemID, trx)
	if err != nil {
		uc.observeMove(moveType, constants.ResultFailed)
		uc.log.Errorf("StockMove failed: item_id=%s, type=%s, error=%v", itemID, moveType, err)
		return nil, nil, err
	}

	uc.observeMove(moveType, constants.ResultSuccess)
	if uc.metrics != nil {
		if item.Stock < item.MinStock {
			uc.metrics.StockLowAlert.WithLabelValues(item.Name).Set(1)
		} else {
			uc.metrics.StockLowAlert.WithLabelValues(item.Name).Set(0)
		}
	}
	uc.log.Infof("Stock moved: item=%s, type=%s, quantity=%d, balance=%d",
		item.Name, moveType, params.Quantity, item.Stock)
	return item, trx, nil
}

// ListTransactions 获取出入库流水
func (uc *InventoryUseCase) ListTransactions(ctx context.Context, itemID string, start, end *time.Time, page, pageSize int) ([]*InventoryTransaction, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if itemID != "" {
		item, err := uc.repo.GetItem(ctx, itemID)
		if err != nil {
			return nil, 0, err
		}
		if item == nil {
			return nil, 0, clinicErrors.NewNotFound(clinicErrors.ErrCodeInventoryItemNotFound, "库存物品不存在")
		}
	}
	return uc.repo.ListTransactions(ctx, itemID, start, end, page, pageSize)
}

func (uc *InventoryUseCase) observeMove(moveType, result string) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.StockMoveTotal.WithLabelValues(moveType, result).Inc()
}
