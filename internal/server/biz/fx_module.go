package biz

import (
	"go.uber.org/fx"

	"github.com/looplj/lakegate/internal/ledger"
)

var Module = fx.Module("biz",
	fx.Provide(ledger.New),
	fx.Provide(NewGovernanceService),
	fx.Provide(NewLedgerService),
)
