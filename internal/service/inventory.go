package service

import (
	"context"

	"clinic-service/internal/biz"
	"clinic-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// InventoryService 库存服务
type InventoryService struct {
	uc  *biz.InventoryUseCase
	log *log.Helper
}

// NewInventoryService 创建库存服务
func NewInventoryService(uc *biz.InventoryUseCase, logger log.Logger) *InventoryService {
	return &InventoryService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// InventoryItemRequest 库存物品请求
type InventoryItemRequest struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Unit      string  `json:"unit"`
	Stock     int     `json:"stock"`
	MinStock  int     `json:"minStock"`
	UnitPrice float64 `json:"unitPrice"`
	Supplier  string  `json:"supplier"`
	Notes     string  `json:"notes"`
}

// InventoryItemReply 库存物品响应
type InventoryItemReply struct {
	ItemID    string  `json:"itemId"`
	Name      string  `json:"name"`
	Category  string  `json:"category,omitempty"`
	Unit      string  `json:"unit,omitempty"`
	Stock     int     `json:"stock"`
	MinStock  int     `json:"minStock"`
	LowStock  bool    `json:"lowStock"`
	UnitPrice float64 `json:"unitPrice"`
	Supplier  string  `json:"supplier,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// CreateItem 新建库存物品
func (s *InventoryService) CreateItem(ctx context.Context, req *InventoryItemRequest) (*InventoryItemReply, error) {
	item, err := s.uc.CreateItem(ctx, &biz.InventoryItem{
		Name:      req.Name,
		Category:  req.Category,
		Unit:      req.Unit,
		Stock:     req.Stock,
		MinStock:  req.MinStock,
		UnitPrice: req.UnitPrice,
		Supplier:  req.Supplier,
		Notes:     req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return toItemReply(item), nil
}

// GetItem 获取库存物品
func (s *InventoryService) GetItem(ctx context.Context, itemID string) (*InventoryItemReply, error) {
	item, err := s.uc.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return toItemReply(item), nil
}

// ListItemsRequest 库存物品列表请求
type ListItemsRequest struct {
	Category     string `json:"category"`
	LowStockOnly bool   `json:"lowStockOnly"`
	Page         int    `json:"page"`
	PageSize     int    `json:"pageSize"`
}

// ListItemsReply 库存物品列表响应
type ListItemsReply struct {
	List     []*InventoryItemReply `json:"list"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
}

// ListItems 获取库存物品列表
func (s *InventoryService) ListItems(ctx context.Context, req *ListItemsRequest) (*ListItemsReply, error) {
	items, total, err := s.uc.ListItems(ctx, req.Category, req.LowStockOnly, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	list := make([]*InventoryItemReply, 0, len(items))
	for _, item := range items {
		list = append(list, toItemReply(item))
	}
	return &ListItemsReply{
		List:     list,
		Total:    total,
		Page:     normalizePage(req.Page),
		PageSize: normalizePageSize(req.PageSize),
	}, nil
}

// UpdateItem 更新库存物品基本信息
func (s *InventoryService) UpdateItem(ctx context.Context, itemID string, req *InventoryItemRequest) (*InventoryItemReply, error) {
	item, err := s.uc.UpdateItem(ctx, &biz.InventoryItem{
		ItemID:    itemID,
		Name:      req.Name,
		Category:  req.Category,
		Unit:      req.Unit,
		MinStock:  req.MinStock,
		UnitPrice: req.UnitPrice,
		Supplier:  req.Supplier,
		Notes:     req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return toItemReply(item), nil
}

// StockMoveRequest 出入库请求
type StockMoveRequest struct {
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	Reason       string  `json:"reason"`
	OperatorName string  `json:"operatorName"`
}

// StockTransactionReply 出入库流水响应
type StockTransactionReply struct {
	TransactionID string  `json:"transactionId"`
	ItemID        string  `json:"itemId"`
	ItemName      string  `json:"itemName"`
	Type          string  `json:"type"`
	Quantity      int     `json:"quantity"`
	BalanceAfter  int     `json:"balanceAfter"`
	UnitPrice     float64 `json:"unitPrice"`
	Reason        string  `json:"reason,omitempty"`
	OperatorName  string  `json:"operatorName,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

// StockMoveReply 出入库结果响应
type StockMoveReply struct {
	Item        *InventoryItemReply    `json:"item"`
	Transaction *StockTransactionReply `json:"transaction"`
}

// StockIn 入库
func (s *InventoryService) StockIn(ctx context.Context, itemID string, req *StockMoveRequest) (*StockMoveReply, error) {
	item, trx, err := s.uc.StockIn(ctx, itemID, &biz.StockMoveParams{
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		Reason:       req.Reason,
		OperatorName: req.OperatorName,
	})
	if err != nil {
		return nil, err
	}
	return &StockMoveReply{Item: toItemReply(item), Transaction: toTransactionReply(trx)}, nil
}

// StockOut 出库
func (s *InventoryService) StockOut(ctx context.Context, itemID string, req *StockMoveRequest) (*StockMoveReply, error) {
	item, trx, err := s.uc.StockOut(ctx, itemID, &biz.StockMoveParams{
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		Reason:       req.Reason,
		OperatorName: req.OperatorName,
	})
	if err != nil {
		return nil, err
	}
	return &StockMoveReply{Item: toItemReply(item), Transaction: toTransactionReply(trx)}, nil
}

// ListTransactionsRequest 出入库流水列表请求
type ListTransactionsRequest struct {
	ItemID    string `json:"itemId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Page      int    `json:"page"`
	PageSize  int    `json:"pageSize"`
}

// ListTransactionsReply 出入库流水列表响应
type ListTransactionsReply struct {
	List     []*StockTransactionReply `json:"list"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"pageSize"`
}

// ListTransactions 获取出入库流水
func (s *InventoryService) ListTransactions(ctx context.Context, req *ListTransactionsRequest) (*ListTransactionsReply, error) {
	start, end, err := parseLedgerRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	transactions, total, err := s.uc.ListTransactions(ctx, req.ItemID, start, end, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	list := make([]*StockTransactionReply, 0, len(transactions))
	for _, trx := range transactions {
		list = append(list, toTransactionReply(trx))
	}
	return &ListTransactionsReply{
		List:     list,
		Total:    total,
		Page:     normalizePage(req.Page),
		PageSize: normalizePageSize(req.PageSize),
	}, nil
}

// toItemReply 领域对象转响应
func toItemReply(i *biz.InventoryItem) *InventoryItemReply {
	return &InventoryItemReply{
		ItemID:    i.ItemID,
		Name:      i.Name,
		Category:  i.Category,
		Unit:      i.Unit,
		Stock:     i.Stock,
		MinStock:  i.MinStock,
		LowStock:  i.Stock < i.MinStock,
		UnitPrice: i.UnitPrice,
		Supplier:  i.Supplier,
		Notes:     i.Notes,
	}
}

// toTransactionReply 领域对象转响应
func toTransactionReply(t *biz.InventoryTransaction) *StockTransactionReply {
	return &StockTransactionReply{
		TransactionID: t.TransactionID,
		ItemID:        t.ItemID,
		ItemName:      t.ItemName,
		Type:          t.Type,
		Quantity:      t.Quantity,
		BalanceAfter:  t.BalanceAfter,
		UnitPrice:     t.UnitPrice,
		Reason:        t.Reason,
		OperatorName:  t.OperatorName,
		CreatedAt:     t.CreatedAt.Format(constants.TimeFormatDateTime),
	}
}
