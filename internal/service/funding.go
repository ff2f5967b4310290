package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

const (
	DefaultMinBalance   = 101.0
	DefaultPollInterval = 10 * time.Second
)

// FundingStatus is how one balance check turned out
type FundingStatus int

const (
	FundingSufficient FundingStatus = iota
	FundingInsufficient
	FundingZero
	FundingQueryFailed
)

// ClassifyBalance sorts a balance check into one of the four outcomes
func ClassifyBalance(balance float64, err error, threshold float64) FundingStatus {
	switch {
	case err != nil:
		return FundingQueryFailed
	case balance >= threshold:
		return FundingSufficient
	case balance > 0:
		return FundingInsufficient
	default:
		return FundingZero
	}
}

// FundingMonitor polls a wallet balance until it reaches the threshold or the operator gives up
type FundingMonitor struct {
	balances  ports.BalanceQuerier
	console   ports.Console
	log       *logrus.Entry
	threshold float64
	interval  time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewFundingMonitor(balances ports.BalanceQuerier, console ports.Console, threshold float64, interval time.Duration, log *logrus.Entry) *FundingMonitor {
	if threshold <= 0 {
		threshold = DefaultMinBalance
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &FundingMonitor{
		balances:  balances,
		console:   console,
		log:       log,
		threshold: threshold,
		interval:  interval,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Threshold is the balance in NYM that counts as funded
func (f *FundingMonitor) Threshold() float64 {
	return f.threshold
}

// WaitForFunding returns true as soon as address holds the threshold. When the operator
// declines another check it returns false with ErrInsufficientFunds, bonding cannot go on without funds
func (f *FundingMonitor) WaitForFunding(ctx context.Context, address string) (bool, error) {
	for {
		f.console.Info(fmt.Sprintf("Checking balance: %s", address))
		balance, err := f.balances.Balance(ctx, address)

		switch ClassifyBalance(balance, err, f.threshold) {
		case FundingSufficient:
			f.console.Success(fmt.Sprintf("Balance: %.6f NYM", balance))
			f.log.WithFields(logrus.Fields{"address": address, "balance": balance}).Info("wallet funded")
			return true, nil
		case FundingInsufficient:
			f.console.Warn(fmt.Sprintf("Balance: %.6f NYM (need %g)", balance, f.threshold))
		case FundingZero:
			f.console.Error(fmt.Sprintf("Balance: 0 NYM (need at least %g)", f.threshold))
		case FundingQueryFailed:
			f.console.Error(fmt.Sprintf("Balance check failed: %v", err))
			f.log.WithError(err).Warn("balance query failed")
		}

		retry, err := f.console.Confirm("Check again? (y/N):")
		if err != nil {
			return false, err
		}
		if !retry {
			return false, core.ErrInsufficientFunds
		}
		f.console.Info(fmt.Sprintf("Waiting %s...", f.interval))
		if err := f.sleep(ctx, f.interval); err != nil {
			return false, err
		}
	}
}
