package server

import (
	"encoding/json"
	nethttp "net/http"
	"strconv"

	"clinic-service/internal/conf"
	"clinic-service/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// envelope 统一响应结构
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// responseEncoder 成功响应包一层 {success: true, data: ...}
func responseEncoder(w nethttp.ResponseWriter, r *nethttp.Request, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(&envelope{Success: true, Data: v})
}

// errorEncoder 失败响应包一层 {success: false, message, code}。
// 意外失败不向外透出底层错误详情。
func errorEncoder(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
	se := kerrors.FromError(err)
	body := &envelope{Success: false, Message: se.Message}
	if se.Metadata != nil {
		body.Code = se.Metadata["code"]
	}
	status := int(se.Code)
	if status < 400 || status > 599 {
		status = nethttp.StatusInternalServerError
	}
	if status == nethttp.StatusInternalServerError {
		body.Message = "服务内部错误，请稍后重试"
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// NewHTTPServer 创建 HTTP 服务器并注册全部路由
func NewHTTPServer(
	c *conf.Bootstrap,
	membershipSvc *service.MembershipService,
	clinicSvc *service.ClinicService,
	statsSvc *service.StatisticsService,
	inventorySvc *service.InventoryService,
) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
		http.ResponseEncoder(responseEncoder),
		http.ErrorEncoder(errorEncoder),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if d := c.Server.Http.TimeoutDuration(); d > 0 {
			opts = append(opts, http.Timeout(d))
		}
	}
	srv := http.NewServer(opts...)

	srv.HandlePrefix("/metrics", promhttp.Handler())

	api := srv.Route("/api")
	registerMembershipRoutes(api, membershipSvc)
	registerClinicRoutes(api, clinicSvc)
	registerStatisticsRoutes(api, statsSvc)
	registerInventoryRoutes(api, inventorySvc)

	return srv
}

func registerMembershipRoutes(r *http.Router, svc *service.MembershipService) {
	r.POST("/memberships", func(ctx http.Context) error {
		var req service.IssueCardRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.IssueCard(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/memberships", func(ctx http.Context) error {
		var req service.ListMembershipsRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		reply, err := svc.ListMemberships(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/memberships/{id}", func(ctx http.Context) error {
		reply, err := svc.GetMembership(ctx, ctx.Vars().Get("id"))
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.POST("/memberships/{id}/recharge", func(ctx http.Context) error {
		var req service.RechargeRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.Recharge(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.POST("/memberships/{id}/consumption", func(ctx http.Context) error {
		var req service.ConsumptionRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.RecordConsumption(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.PATCH("/memberships/{id}/status", func(ctx http.Context) error {
		var req service.UpdateStatusRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.UpdateStatus(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/memberships/{id}/recharge", func(ctx http.Context) error {
		var req service.LedgerRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		reply, err := svc.ListRecharges(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/memberships/{id}/consumption", func(ctx http.Context) error {
		var req service.LedgerRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		reply, err := svc.ListConsumptions(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})
}

func registerClinicRoutes(r *http.Router, svc *service.ClinicService) {
	r.POST("/customers", func(ctx http.Context) error {
		var req service.CustomerRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.CreateCustomer(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/customers", func(ctx http.Context) error {
		var req service.ListCustomersRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		reply, err := svc.ListCustomers(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/customers/{id}", func(ctx http.Context) error {
		reply, err := svc.GetCustomer(ctx, ctx.Vars().Get("id"))
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.PUT("/customers/{id}", func(ctx http.Context) error {
		var req service.CustomerRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.UpdateCustomer(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.POST("/membership-types", func(ctx http.Context) error {
		var req service.MembershipTypeRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.CreateMembershipType(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/membership-types", func(ctx http.Context) error {
		activeOnly, _ := strconv.ParseBool(ctx.Query().Get("activeOnly"))
		reply, err := svc.ListMembershipTypes(ctx, activeOnly)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.POST("/therapists", func(ctx http.Context) error {
		var req service.TherapistRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.CreateTherapist(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/therapists", func(ctx http.Context) error {
		activeOnly, _ := strconv.ParseBool(ctx.Query().Get("activeOnly"))
		reply, err := svc.ListTherapists(ctx, activeOnly)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.POST("/visits", func(ctx http.Context) error {
		var req service.VisitRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.CreateVisit(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/visits", func(ctx http.Context) error {
		var req service.ListVisitsRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		reply, err := svc.ListVisits(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.PATCH("/visits/{id}/rating", func(ctx http.Context) error {
		var req service.RatingRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.UpdateVisitRating(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})
}

func registerStatisticsRoutes(r *http.Router, svc *service.StatisticsService) {
	bindWindow := func(ctx http.Context) (*service.StatsWindowRequest, error) {
		var req service.StatsWindowRequest
		if err := ctx.BindQuery(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	r.GET("/statistics", func(ctx http.Context) error {
		req, err := bindWindow(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.GetStatistics(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/statistics/overview", func(ctx http.Context) error {
		req, err := bindWindow(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.Overview(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/statistics/today-overview", func(ctx http.Context) error {
		reply, err := svc.TodayOverview(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/statistics/revenue-trend", func(ctx http.Context) error {
		req, err := bindWindow(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.RevenueTrend(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/statistics/income-composition", func(ctx http.Context) error {
		req, err := bindWindow(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.IncomeComposition(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/statistics/card-revenue", func(ctx http.Context) error {
		req, err := bindWindow(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.CardRevenue(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/statistics/therapist-performance", func(ctx http.Context) error {
		req, err := bindWindow(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.TherapistPerformance(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/statistics/customer-activity", func(ctx http.Context) error {
		req, err := bindWindow(ctx)
		if err != nil {
			return err
		}
		reply, err := svc.CustomerActivity(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/statistics/inactive-customers", func(ctx http.Context) error {
		days, _ := strconv.Atoi(ctx.Query().Get("days"))
		reply, err := svc.InactiveCustomers(ctx, days)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})
}

func registerInventoryRoutes(r *http.Router, svc *service.InventoryService) {
	r.POST("/inventory/items", func(ctx http.Context) error {
		var req service.InventoryItemRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.CreateItem(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/inventory/items", func(ctx http.Context) error {
		var req service.ListItemsRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		reply, err := svc.ListItems(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/inventory/items/{id}", func(ctx http.Context) error {
		reply, err := svc.GetItem(ctx, ctx.Vars().Get("id"))
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.PUT("/inventory/items/{id}", func(ctx http.Context) error {
		var req service.InventoryItemRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.UpdateItem(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.POST("/inventory/items/{id}/stock-in", func(ctx http.Context) error {
		var req service.StockMoveRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.StockIn(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.POST("/inventory/items/{id}/stock-out", func(ctx http.Context) error {
		var req service.StockMoveRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.StockOut(ctx, ctx.Vars().Get("id"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	r.GET("/inventory/transactions", func(ctx http.Context) error {
		var req service.ListTransactionsRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		reply, err := svc.ListTransactions(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})
}
