package inmemoryledger

import (
	"context"
	"sync"

	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/core/ports"
)

// Ledger is a process-local balance ledger for the home domain. Every
// account view returned by View shares the same balances, a transfer into
// the vault's view is visible to the engine's view and vice versa.
type Ledger struct {
	lock     *sync.Mutex
	balances map[string]map[domain.AssetID]uint64 // holder -> asset -> amount
}

func NewLedger() *Ledger {
	return &Ledger{
		lock:     &sync.Mutex{},
		balances: make(map[string]map[domain.AssetID]uint64),
	}
}

// Seed credits holder with amount of asset out of thin air, used at startup
// to provision reserves and in tests to fund accounts.
func (l *Ledger) Seed(holder string, asset domain.AssetID, amount uint64) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.credit(holder, asset, amount)
}

// View binds the ledger to an account and returns it as a BalanceLedger.
func (l *Ledger) View(account string) ports.BalanceLedger {
	return &accountView{ledger: l, account: account}
}

func (l *Ledger) transfer(from, to string, asset domain.AssetID, amount uint64) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.balanceOf(from, asset) < amount {
		return ports.ErrLedgerShortfall
	}
	l.balances[from][asset] -= amount
	l.credit(to, asset, amount)
	return nil
}

func (l *Ledger) balance(holder string, asset domain.AssetID) uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.balanceOf(holder, asset)
}

func (l *Ledger) balanceOf(holder string, asset domain.AssetID) uint64 {
	if assets, ok := l.balances[holder]; ok {
		return assets[asset]
	}
	return 0
}

func (l *Ledger) credit(holder string, asset domain.AssetID, amount uint64) {
	if _, ok := l.balances[holder]; !ok {
		l.balances[holder] = make(map[domain.AssetID]uint64)
	}
	l.balances[holder][asset] += amount
}

type accountView struct {
	ledger  *Ledger
	account string
}

func (v *accountView) TransferIn(
	_ context.Context, asset domain.AssetID, amount uint64, from string,
) error {
	return v.ledger.transfer(from, v.account, asset, amount)
}

func (v *accountView) TransferOut(
	_ context.Context, asset domain.AssetID, amount uint64, to string,
) error {
	return v.ledger.transfer(v.account, to, asset, amount)
}

func (v *accountView) Balance(_ context.Context, asset domain.AssetID) (uint64, error) {
	return v.ledger.balance(v.account, asset), nil
}

func (v *accountView) BalanceOf(
	_ context.Context, asset domain.AssetID, holder string,
) (uint64, error) {
	return v.ledger.balance(holder, asset), nil
}
