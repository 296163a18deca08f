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
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// inventoryRepo 实现 biz.InventoryRepo 接口
type inventoryRepo struct {
	data *Data
	log  *log.Helper
	sync *redsync.Redsync
}

// NewInventoryRepo 创建库存 repo
func NewInventoryRepo(data *Data, sync *redsync.Redsync, logger log.Logger) biz.InventoryRepo {
	return &inventoryRepo{
		data: data,
		log:  log.NewHelper(logger),
		sync: sync,
	}
}

// CreateItem 创建库存物品。初始库存大于 0 时同时落一条入库流水。
func (r *inventoryRepo) CreateItem(ctx context.Context, item *biz.InventoryItem) (*biz.InventoryItem, error) {
	m := toModelItem(item)
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		if item.Stock > 0 {
			return tx.Create(&model.InventoryTransaction{
				TransactionID:   uuid.New().String(),
				ItemID:          m.ItemID,
				ItemName:        m.Name,
				Type:            constants.StockTypeIn,
				Quantity:        item.Stock,
				BalanceAfter:    item.Stock,
				UnitPrice:       item.UnitPrice,
				Notes:           "期初建账",
				TransactionDate: time.Now(),
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toBizItem(m), nil
}

// GetItem 按 ID 获取库存物品，不存在返回 nil
func (r *inventoryRepo) GetItem(ctx context.Context, itemID string) (*biz.InventoryItem, error) {
	var m model.InventoryItem
	err := r.data.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toBizItem(&m), nil
}

// ListItems 分页获取库存物品列表
func (r *inventoryRepo) ListItems(ctx context.Context, category string, lowStockOnly bool, page, pageSize int) ([]*biz.InventoryItem, int64, error) {
	query := r.data.db.WithContext(ctx).Model(&model.InventoryItem{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if lowStockOnly {
		query = query.Where("stock < min_stock")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*model.InventoryItem
	if err := query.
		Order("name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	items := make([]*biz.InventoryItem, 0, len(models))
	for _, m := range models {
		items = append(items, toBizItem(m))
	}
	return items, total, nil
}

// UpdateItem 更新库存物品基本信息
func (r *inventoryRepo) UpdateItem(ctx context.Context, item *biz.InventoryItem) (*biz.InventoryItem, error) {
	if err := r.data.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("item_id = ?", item.ItemID).
		Updates(map[string]interface{}{
			"name":      item.Name,
			"category":  item.Category,
			"unit":      item.Unit,
			"min_stock": item.MinStock,
			"price":     item.UnitPrice,
			"supplier":  item.Supplier,
			"notes":     item.Notes,
		}).Error; err != nil {
		return nil, err
	}
	return r.GetItem(ctx, item.ItemID)
}

// ApplyStockMove 落账一次出入库。事务内行锁复核库存，
// 结存随流水记录，库存不会为负。
func (r *inventoryRepo) ApplyStockMove(ctx context.Context, itemID string, trx *biz.InventoryTransaction) (*biz.InventoryItem, *biz.InventoryTransaction, error) {
	var mutex *redsync.Mutex
	if r.sync != nil {
		mutex = r.sync.NewMutex(constants.RedisKeyStockLock+itemID, redsync.WithExpiry(5*time.Second))
		if err := mutex.Lock(); err != nil {
			r.log.Errorf("Failed to acquire stock lock: item_id=%s, error=%v", itemID, err)
			return nil, nil, err
		}
		defer func() {
			if _, err := mutex.Unlock(); err != nil {
				r.log.Warnf("Failed to release stock lock: %v", err)
			}
		}()
	}

	now := time.Now()
	var updated model.InventoryItem
	var createdTrx model.InventoryTransaction

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.InventoryItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("item_id = ?", itemID).
			First(&m).Error; err != nil {
			return err
		}

		newStock := m.Stock + trx.Quantity
		if trx.Type == constants.StockTypeOut {
			if trx.Quantity > m.Stock {
				return clinicErrors.NewPolicy(clinicErrors.ErrCodeInsufficientStock,
					"库存不足：当前 %d，出库 %d", m.Stock, trx.Quantity)
			}
			newStock = m.Stock - trx.Quantity
		}

		if err := tx.Model(&model.InventoryItem{}).
			Where("item_id = ?", itemID).
			Update("stock", newStock).Error; err != nil {
			return err
		}

		tm := &model.InventoryTransaction{
			TransactionID:   trx.TransactionID,
			ItemID:          itemID,
			ItemName:        trx.ItemName,
			Type:            trx.Type,
			Quantity:        trx.Quantity,
			BalanceAfter:    newStock,
			UnitPrice:       trx.UnitPrice,
			OperatorName:    trx.OperatorName,
			Notes:           trx.Reason,
			TransactionDate: now,
		}
		if err := tx.Create(tm).Error; err != nil {
			return err
		}
		createdTrx = *tm

		return tx.Where("item_id = ?", itemID).First(&updated).Error
	})
	if err != nil {
		return nil, nil, err
	}

	return toBizItem(&updated), toBizTransaction(&createdTrx), nil
}

// ListTransactions 分页获取出入库流水
func (r *inventoryRepo) ListTransactions(ctx context.Context, itemID string, start, end *time.Time, page, pageSize int) ([]*biz.InventoryTransaction, int64, error) {
	query := r.data.db.WithContext(ctx).Model(&model.InventoryTransaction{})
	if itemID != "" {
		query = query.Where("item_id = ?", itemID)
	}
	query = applyDateRange(query, "transaction_date", start, end)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*model.InventoryTransaction
	if err := query.
		Order("transaction_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	transactions := make([]*biz.InventoryTransaction, 0, len(models))
	for _, m := range models {
		transactions = append(transactions, toBizTransaction(m))
	}
	return transactions, total, nil
}

// toModelItem 领域对象转数据库模型
func toModelItem(i *biz.InventoryItem) *model.InventoryItem {
	return &model.InventoryItem{
		ItemID:   i.ItemID,
		Name:     i.Name,
		Category: i.Category,
		Unit:     i.Unit,
		Stock:    i.Stock,
		MinStock: i.MinStock,
		Price:    i.UnitPrice,
		Supplier: i.Supplier,
		Notes:    i.Notes,
	}
}

// toBizItem 数据库模型转领域对象
func toBizItem(m *model.InventoryItem) *biz.InventoryItem {
	return &biz.InventoryItem{
		ItemID:    m.ItemID,
		Name:      m.Name,
		Category:  m.Category,
		Unit:      m.Unit,
		Stock:     m.Stock,
		MinStock:  m.MinStock,
		UnitPrice: m.Price,
		Supplier:  m.Supplier,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// toBizTransaction 数据库模型转领域对象
func toBizTransaction(m *model.InventoryTransaction) *biz.InventoryTransaction {
	return &biz.InventoryTransaction{
		TransactionID: m.TransactionID,
		ItemID:        m.ItemID,
		ItemName:      m.ItemName,
		Type:          m.Type,
		Quantity:      m.Quantity,
		BalanceAfter:  m.BalanceAfter,
		UnitPrice:     m.UnitPrice,
		Reason:        m.Notes,
		OperatorName:  m.OperatorName,
		CreatedAt:     m.TransactionDate,
	}
}
