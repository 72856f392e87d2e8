package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// Epsilon is the magnitude below which a net balance counts as settled.
// It absorbs floating point accumulation error; it is not a business rule.
const Epsilon = 1e-4

// ExpenseForBalance represents an expense with the minimal information needed for balance calculations.
type ExpenseForBalance struct {
	Amount       float64
	PayerID      string
	Participants []string
}

// CalculateBalances folds expenses into signed balances between the viewer
// and every counterparty they share an expense with.
//
// Algorithm:
// - share = amount / len(participants); expenses with no participants or a
//   non-finite amount are skipped
// - viewer paid: every other participant owes the viewer one share
// - viewer participated but someone else paid: viewer owes the payer one share
// - viewer not involved: ignored
// - entries within Epsilon of zero are dropped
//
// Returned amounts are raw; callers round with RoundCents for display.
func CalculateBalances(viewerID string, expenses []ExpenseForBalance) map[string]float64 {
	balances := make(map[string]float64)

	for _, e := range expenses {
		if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
			continue
		}
		share, err := EqualShare(e.Amount, len(e.Participants))
		if err != nil {
			continue
		}

		if e.PayerID == viewerID {
			for _, p := range e.Participants {
				if p == viewerID {
					continue
				}
				balances[p] += share
			}
		} else if contains(e.Participants, viewerID) {
			balances[e.PayerID] -= share
		}
	}

	for id, amount := range balances {
		if math.Abs(amount) <= Epsilon {
			delete(balances, id)
		}
	}
	return balances
}

// RoundCents rounds to two decimal places, half away from zero, working on
// the shortest decimal representation of v so that 12.345 becomes 12.35.
func RoundCents(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
