package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

func TestGrossPnL_Long(t *testing.T) {
	assert.InDelta(t, 500.0, grossPnL(domain.DirectionLong, 100, 105, 100), 1e-9)
}

func TestGrossPnL_Short(t *testing.T) {
	assert.InDelta(t, 500.0, grossPnL(domain.DirectionShort, 105, 100, 100), 1e-9)
}

func TestGrossPnL_LongLoss(t *testing.T) {
	assert.InDelta(t, -200.0, grossPnL(domain.DirectionLong, 50, 48, 100), 1e-9)
}
