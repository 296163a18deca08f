package biz

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// MaintenanceUseCase 日终对账任务：
//  1. 把有效期已过但状态仍为 active 的卡批量置为 expired；
//  2. 重算每个客户冗余的会员状态标签。
type MaintenanceUseCase struct {
	membershipRepo MembershipRepo
	customerRepo   CustomerRepo
	cfg            *ClinicConfig
	log            *log.Helper
}

// NewMaintenanceUseCase 创建对账 UseCase
func NewMaintenanceUseCase(
	membershipRepo MembershipRepo,
	customerRepo CustomerRepo,
	cfg *ClinicConfig,
	logger log.Logger,
) *MaintenanceUseCase {
	return &MaintenanceUseCase{
		membershipRepo: membershipRepo,
		customerRepo:   customerRepo,
		cfg:            cfg,
		log:            log.NewHelper(logger),
	}
}

// ReconcileMemberships 执行一轮对账。逐客户重算，单个客户失败不中断整轮。
func (uc *MaintenanceUseCase) ReconcileMemberships(ctx context.Context) error {
	now := time.Now()

	expired, err := uc.membershipRepo.ExpireOverdue(ctx, now)
	if err != nil {
		uc.log.Errorf("ReconcileMemberships: expire overdue cards failed: %v", err)
		return err
	}
	if expired > 0 {
		uc.log.Infof("ReconcileMemberships: %d cards marked expired", expired)
	}

	statuses, err := uc.customerRepo.ListStatuses(ctx)
	if err != nil {
		uc.log.Errorf("ReconcileMemberships: list customer statuses failed: %v", err)
		return err
	}

	var updated int
	for _, cs := range statuses {
		card, err := uc.membershipRepo.LatestByCustomer(ctx, cs.CustomerID)
		if err != nil {
			uc.log.Warnf("ReconcileMemberships: load latest card failed: customer_id=%s, error=%v", cs.CustomerID, err)
			continue
		}
		label := DeriveMembershipLabel(card, now, uc.cfg.ExpiringSoonDays)
		if label == cs.MembershipStatus {
			continue
		}
		if err := uc.customerRepo.UpdateMembershipStatus(ctx, cs.CustomerID, label); err != nil {
			uc.log.Warnf("ReconcileMemberships: update status failed: customer_id=%s, error=%v", cs.CustomerID, err)
			continue
		}
		updated++
	}

	uc.log.Infof("ReconcileMemberships done: expired_cards=%d, relabeled_customers=%d", expired, updated)
	return nil
}
