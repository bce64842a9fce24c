package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_PreservesCauseAndCode(t *testing.T) {
	cause := errors.New("connection refused")
	pe := Wrap(cause, CodeDatabase, "query failed")

	assert.Equal(t, CodeDatabase, pe.Code)
	assert.ErrorIs(t, pe, cause)
	assert.Contains(t, pe.Error(), "query failed")
	assert.Contains(t, pe.Error(), "connection refused")
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeDatabase, "should not happen"))
}

func TestCodeOf_PlainErrorHasNoCode(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("not a pipeline error")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeTimeout, "slow")))
	assert.True(t, IsRetryable(New(CodeDatabase, "down")))
	assert.False(t, IsRetryable(New(CodeInvalidSignal, "bad")))
}

func TestIsCritical_DefaultSeverityByCode(t *testing.T) {
	assert.True(t, IsCritical(New(CodeDatabase, "down")))
	assert.False(t, IsCritical(New(CodeInvalidSignal, "bad")))
}

func TestWithDetail_Chains(t *testing.T) {
	pe := New(CodeOrderRejected, "rejected").WithDetail("order_id", "abc").WithDetail("reason", "insufficient margin")
	assert.Equal(t, "abc", pe.Details["order_id"])
	assert.Equal(t, "insufficient margin", pe.Details["reason"])
}
