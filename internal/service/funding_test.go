package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nymctl/internal/core"
)

func TestClassifyBalance(t *testing.T) {
	assert.Equal(t, FundingSufficient, ClassifyBalance(101, nil, 101))
	assert.Equal(t, FundingSufficient, ClassifyBalance(250.5, nil, 101))
	assert.Equal(t, FundingInsufficient, ClassifyBalance(100.999999, nil, 101))
	assert.Equal(t, FundingZero, ClassifyBalance(0, nil, 101))
	assert.Equal(t, FundingQueryFailed, ClassifyBalance(500, errors.New("timeout"), 101))
}

func TestWaitForFundingRetriesUntilFunded(t *testing.T) {
	balances := &fakeBalances{values: []float64{50, 101}}
	con := &scriptedConsole{answers: []string{"yes"}}
	var waits []time.Duration

	m := NewFundingMonitor(balances, con, 0, 0, testLogger())
	m.sleep = recordingSleep(&waits)

	ok, err := m.WaitForFunding(context.Background(), "n1qxyzabcdef123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, balances.calls)
	assert.Equal(t, []time.Duration{10 * time.Second}, waits)
	assert.True(t, con.said("need 101"))
}

func TestWaitForFundingDeclined(t *testing.T) {
	balances := &fakeBalances{values: []float64{0}}
	con := &scriptedConsole{answers: []string{"n"}}

	m := NewFundingMonitor(balances, con, 101, time.Second, testLogger())
	var waits []time.Duration
	m.sleep = recordingSleep(&waits)

	ok, err := m.WaitForFunding(context.Background(), "n1qxyzabcdef123")
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	assert.Empty(t, waits)
	assert.True(t, con.said("Balance: 0 NYM"))
}

func TestWaitForFundingQueryFailureIsRetryable(t *testing.T) {
	balances := &fakeBalances{values: []float64{0, 200}, errs: []error{core.ErrNetworkUnavailable}}
	con := &scriptedConsole{answers: []string{"y"}}

	m := NewFundingMonitor(balances, con, 101, time.Second, testLogger())
	var waits []time.Duration
	m.sleep = recordingSleep(&waits)

	ok, err := m.WaitForFunding(context.Background(), "n1qxyzabcdef123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, con.said("Balance check failed"))
	assert.Equal(t, []time.Duration{time.Second}, waits)
}

func TestWaitForFundingStopsOnCancelledContext(t *testing.T) {
	balances := &fakeBalances{values: []float64{1}}
	con := &scriptedConsole{answers: []string{"y"}}
	m := NewFundingMonitor(balances, con, 101, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := m.WaitForFunding(ctx, "n1qxyzabcdef123")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
