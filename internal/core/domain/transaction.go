package domain

import "fmt"

// TxState is a step of the order transaction lifecycle.
type TxState string

const (
	TxValidating TxState = "validating"
	TxReserving  TxState = "reserving"
	TxPersisting TxState = "persisting"
	TxCommitted  TxState = "committed"
	TxRolledBack TxState = "rolled_back"
)

var txTransitions = map[TxState][]TxState{
	TxValidating: {TxReserving, TxRolledBack},
	TxReserving:  {TxPersisting, TxRolledBack},
	TxPersisting: {TxCommitted, TxRolledBack},
}

func (s TxState) Terminal() bool {
	return s == TxCommitted || s == TxRolledBack
}

// Next returns the target state if the move from s is legal.
func (s TxState) Next(to TxState) (TxState, error) {
	for _, allowed := range txTransitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("illegal transaction transition %s -> %s", s, to)
}
