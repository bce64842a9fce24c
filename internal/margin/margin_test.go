package margin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
	pipelineerrors "github.com/abdoElHodaky/mathematricks-pipeline/internal/errors"
)

func TestCalculate_StockUsesRegT(t *testing.T) {
	res, err := Calculate(context.Background(), Input{
		InstrumentType: domain.InstrumentStock,
		Quantity:       100,
		Price:          50,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodRegT, res.Method)
	assert.InDelta(t, 1250, res.InitialMargin, 1e-6) // 100*50*0.25
}

func TestCalculate_ForexUsesLeverage(t *testing.T) {
	res, err := Calculate(context.Background(), Input{
		InstrumentType: domain.InstrumentForex,
		Quantity:       10000,
		Price:          1.1,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodForexLev, res.Method)
	assert.InDelta(t, 220, res.InitialMargin, 1e-6) // 10000*1.1*0.02
}

func TestCalculate_CryptoUsesHighLeverage(t *testing.T) {
	res, err := Calculate(context.Background(), Input{
		InstrumentType: domain.InstrumentCrypto,
		Quantity:       2,
		Price:          30000,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodCryptoLev, res.Method)
	assert.InDelta(t, 30000, res.InitialMargin, 1e-6) // 2*30000*0.5
}

func TestCalculate_FutureRequiresExpiryAndExchange(t *testing.T) {
	_, err := Calculate(context.Background(), Input{
		InstrumentType: domain.InstrumentFuture,
		Quantity:       1,
		Price:          100,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, pipelineerrors.CodeInvalidSignal, pipelineerrors.CodeOf(err))
}

func TestCalculate_FutureMockUsesFlatRate(t *testing.T) {
	res, err := Calculate(context.Background(), Input{
		InstrumentType: domain.InstrumentFuture,
		Quantity:       1,
		Price:          1000,
		Expiry:         "2026-12-19",
		Exchange:       "CME",
		Mock:           true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodFuturesMock, res.Method)
	assert.InDelta(t, 100, res.InitialMargin, 1e-6)
}

func TestCalculate_FutureLiveWithoutPreviewClientErrors(t *testing.T) {
	_, err := Calculate(context.Background(), Input{
		InstrumentType: domain.InstrumentFuture,
		Quantity:       1,
		Price:          1000,
		Expiry:         "2026-12-19",
		Exchange:       "CME",
		Mock:           false,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, pipelineerrors.CodeMarginUnavailable, pipelineerrors.CodeOf(err))
}

func TestCalculate_OptionAlwaysRequiresPreview(t *testing.T) {
	_, err := Calculate(context.Background(), Input{
		InstrumentType: domain.InstrumentOption,
		Quantity:       1,
		Price:          5,
		Mock:           true,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, pipelineerrors.CodeMarginUnavailable, pipelineerrors.CodeOf(err))
}

func TestCalculate_UnsupportedInstrumentType(t *testing.T) {
	_, err := Calculate(context.Background(), Input{
		InstrumentType: "BOND",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, pipelineerrors.CodeInvalidSignal, pipelineerrors.CodeOf(err))
}
