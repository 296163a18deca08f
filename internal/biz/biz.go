package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewClinicConfig,
	NewCustomerUseCase,
	NewMembershipUseCase,
	NewMembershipTypeUseCase,
	NewTherapistUseCase,
	NewServiceVisitUseCase,
	NewInventoryUseCase,
	NewStatsUseCase,
	NewMaintenanceUseCase,
)
