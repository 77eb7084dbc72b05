package app

import (
	"container/heap"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
)

// side distinguishes which ordering rule a merge pass uses.
type side int

const (
	sideBid side = iota
	sideAsk
)

// mergeItem is one entry seeded into the priority queue: the current best
// unread level for one venue on one side, plus where to find that venue's
// next level if this one is popped.
type mergeItem struct {
	level    domain.PriceLevel
	exchange domain.Exchange
	nextIdx  int
}

// mergeHeap is a container/heap priority queue ordered so the best entry
// for the configured side always sits at index 0. Ties are broken by
// higher amount first, per the merge engine's strict total order.
type mergeHeap struct {
	items []mergeItem
	side  side
}

func (h mergeHeap) Len() int { return len(h.items) }

func (h mergeHeap) Less(i, j int) bool {
	return itemBetter(h.items[i], h.items[j], h.side)
}

func (h mergeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap) Push(x any) {
	h.items = append(h.items, x.(mergeItem))
}

func (h *mergeHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// itemBetter reports whether a should be popped before b under the side's
// ordering rule: for bids, higher price wins; for asks, lower price wins;
// ties on either side favor the higher amount. Every comparison goes
// through domain.CompareTotalOrder so a quiet NaN (rejected upstream, but
// never assumed absent here) can never make this return an inconsistent
// answer.
func itemBetter(a, b mergeItem, s side) bool {
	var priceCmp int
	if s == sideBid {
		priceCmp = domain.CompareTotalOrder(b.level.Price, a.level.Price)
	} else {
		priceCmp = domain.CompareTotalOrder(a.level.Price, b.level.Price)
	}
	if priceCmp != 0 {
		return priceCmp < 0
	}
	return domain.CompareTotalOrder(b.level.Amount, a.level.Amount) < 0
}

// mergeSide runs the K-way merge described for one side: seed one entry
// per venue with non-empty depth on this side, then repeatedly pop the
// best entry, emit it, and push that venue's next level until either the
// output reaches Depth or every venue is exhausted.
func mergeSide(images [domain.NumExchanges]domain.OrderBook, s side) []domain.Level {
	h := &mergeHeap{side: s}
	heap.Init(h)

	for e := domain.Exchange(0); e < domain.NumExchanges; e++ {
		levels := sideLevels(images[e], s)
		if len(levels) == 0 {
			continue
		}
		heap.Push(h, mergeItem{level: levels[0], exchange: e, nextIdx: 1})
	}

	out := make([]domain.Level, 0, domain.Depth)
	for h.Len() > 0 && len(out) < domain.Depth {
		best := heap.Pop(h).(mergeItem)
		out = append(out, domain.Level{
			Price:    best.level.Price,
			Amount:   best.level.Amount,
			Exchange: best.exchange.String(),
		})

		levels := sideLevels(images[best.exchange], s)
		if best.nextIdx < len(levels) {
			heap.Push(h, mergeItem{level: levels[best.nextIdx], exchange: best.exchange, nextIdx: best.nextIdx + 1})
		}
	}

	return out
}

func sideLevels(book domain.OrderBook, s side) []domain.PriceLevel {
	if s == sideBid {
		return book.Bids
	}
	return book.Asks
}
