// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"slices"

	"golang.org/x/exp/maps"

	"github.com/ava-labs/hypersim/blockchain"
)

// pendingWork holds submitted work that has not been assigned to a build
// request yet. It is not thread-safe; [TxPool] guards it.
type pendingWork struct {
	transactions [][]byte
	upward       map[uint32][][]byte
	downward     []blockchain.DownwardMessage
	horizontal   map[uint32][]blockchain.HorizontalMessage
}

func newPendingWork() *pendingWork {
	return &pendingWork{
		upward:     map[uint32][][]byte{},
		horizontal: map[uint32][]blockchain.HorizontalMessage{},
	}
}

func (p *pendingWork) addTransaction(tx []byte) {
	p.transactions = append(p.transactions, tx)
}

func (p *pendingWork) addUpward(origin uint32, msgs [][]byte) {
	p.upward[origin] = append(p.upward[origin], msgs...)
}

func (p *pendingWork) addDownward(msgs []blockchain.DownwardMessage) {
	p.downward = append(p.downward, msgs...)
}

func (p *pendingWork) addHorizontal(origin uint32, msgs []blockchain.HorizontalMessage) {
	p.horizontal[origin] = append(p.horizontal[origin], msgs...)
}

// requeue puts [txs] back at the front of the transaction queue, keeping
// their relative order, so the next build sees them first.
func (p *pendingWork) requeue(txs [][]byte) {
	if len(txs) == 0 {
		return
	}
	p.transactions = append(slices.Clone(txs), p.transactions...)
}

func (p *pendingWork) drainTransactions() [][]byte {
	txs := p.transactions
	p.transactions = nil
	return txs
}

func (p *pendingWork) drainDownward() []blockchain.DownwardMessage {
	msgs := p.downward
	p.downward = nil
	return msgs
}

func (p *pendingWork) peekUpward() map[uint32][][]byte {
	return maps.Clone(p.upward)
}

func (p *pendingWork) clearUpward() {
	maps.Clear(p.upward)
}

func (p *pendingWork) peekHorizontal() map[uint32][]blockchain.HorizontalMessage {
	return maps.Clone(p.horizontal)
}

func (p *pendingWork) clearHorizontal() {
	maps.Clear(p.horizontal)
}

// drainAll empties every category and returns what it held.
func (p *pendingWork) drainAll() BuildParams {
	return p.resolve(nil)
}

// resolve builds the params of a new request. Transactions and downward
// messages are consumed by the request. Upward and horizontal messages are
// copied and then cleared, and only when not overridden.
func (p *pendingWork) resolve(o *Overrides) BuildParams {
	if o == nil {
		o = &Overrides{}
	}
	params := BuildParams{
		Transactions:       o.Transactions,
		UpwardMessages:     o.UpwardMessages,
		DownwardMessages:   o.DownwardMessages,
		HorizontalMessages: o.HorizontalMessages,
	}
	if params.Transactions == nil {
		params.Transactions = p.drainTransactions()
	}
	if params.DownwardMessages == nil {
		params.DownwardMessages = p.drainDownward()
	}
	if params.UpwardMessages == nil {
		params.UpwardMessages = p.peekUpward()
		p.clearUpward()
	}
	if params.HorizontalMessages == nil {
		params.HorizontalMessages = p.peekHorizontal()
		p.clearHorizontal()
	}
	return params
}

// empty reports whether a build from [p] would carry no work.
func (p *pendingWork) empty() bool {
	return len(p.transactions) == 0 &&
		len(p.downward) == 0 &&
		len(p.upward) == 0 &&
		len(p.horizontal) == 0
}

func (p *pendingWork) pendingTransactions() [][]byte {
	return slices.Clone(p.transactions)
}
