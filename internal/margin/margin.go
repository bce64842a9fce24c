// Package margin computes initial/maintenance margin for an order, per
// spec.md §4.3's per-instrument-type rule table.
package margin

import (
	"context"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
	pipelineerrors "github.com/abdoElHodaky/mathematricks-pipeline/internal/errors"
)

// Method names the rule that produced a Result, for observability.
type Method string

const (
	MethodRegT        Method = "REG_T_25PCT"
	MethodForexLev    Method = "FOREX_2PCT"
	MethodCryptoLev   Method = "CRYPTO_50PCT"
	MethodBrokerPreview Method = "BROKER_PREVIEW"
	MethodFuturesMock  Method = "FUTURES_MOCK_10PCT"
)

// Input carries everything the margin rule needs to evaluate.
type Input struct {
	Instrument     string
	InstrumentType domain.InstrumentType
	Quantity       float64
	Price          float64
	Direction      domain.Direction
	Expiry         string
	Exchange       string
	AccountID      string
	Mock           bool
}

// Result is the computed margin requirement.
type Result struct {
	InitialMargin     float64
	MaintenanceMargin float64
	Method            Method
}

func (in Input) notional() float64 {
	return in.Quantity * in.Price
}

// Calculate evaluates spec.md §4.3's rule table. OPTION instruments, and
// FUTURE instruments outside mock mode, require the broker preview client;
// Calculate never silently falls back for them.
func Calculate(ctx context.Context, in Input, preview *PreviewClient) (Result, error) {
	switch in.InstrumentType {
	case domain.InstrumentStock, domain.InstrumentETF:
		n := in.notional()
		return Result{InitialMargin: n * 0.25, MaintenanceMargin: n * 0.25, Method: MethodRegT}, nil

	case domain.InstrumentForex:
		n := in.notional()
		return Result{InitialMargin: n * 0.02, MaintenanceMargin: n * 0.02, Method: MethodForexLev}, nil

	case domain.InstrumentCrypto:
		n := in.notional()
		return Result{InitialMargin: n * 0.50, MaintenanceMargin: n * 0.50, Method: MethodCryptoLev}, nil

	case domain.InstrumentFuture:
		if in.Expiry == "" || in.Exchange == "" {
			return Result{}, pipelineerrors.New(pipelineerrors.CodeInvalidSignal, "expiry and exchange required for futures margin")
		}
		if in.Mock {
			n := in.notional()
			return Result{InitialMargin: n * 0.10, MaintenanceMargin: n * 0.10, Method: MethodFuturesMock}, nil
		}
		return previewMargin(ctx, in, preview)

	case domain.InstrumentOption:
		// Never estimated, per spec.md §4.2(g): options always go through
		// the broker preview, mock or not.
		return previewMargin(ctx, in, preview)

	default:
		return Result{}, pipelineerrors.Newf(pipelineerrors.CodeInvalidSignal, "unsupported instrument type %q", in.InstrumentType)
	}
}

func previewMargin(ctx context.Context, in Input, preview *PreviewClient) (Result, error) {
	if preview == nil {
		return Result{}, pipelineerrors.New(pipelineerrors.CodeMarginUnavailable, "no margin preview client configured")
	}
	resp, err := preview.Preview(ctx, in)
	if err != nil {
		return Result{}, pipelineerrors.Wrap(err, pipelineerrors.CodeMarginPreviewFailed, "broker margin preview failed")
	}
	return Result{
		InitialMargin:     resp.InitMarginChange,
		MaintenanceMargin: resp.MaintMarginChange,
		Method:            MethodBrokerPreview,
	}, nil
}
