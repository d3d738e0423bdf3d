package cart

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// MaxLineQuantity caps a single line. Adds that would exceed it saturate.
const MaxLineQuantity = 99

// Line is one product/size entry in the cart. Price is in whole rupees.
type Line struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image,omitempty"`
	Size      string `json:"size"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity"`
}

type lineKey struct {
	productID string
	size      string
}

func (l Line) key() lineKey {
	return lineKey{productID: l.ProductID, size: l.Size}
}

// State is a point-in-time view of a cart container.
type State struct {
	Lines   []Line         `json:"lines"`
	Mode    enums.CartMode `json:"mode"`
	Offline bool           `json:"offline"`
	UserID  string         `json:"userId,omitempty"`
}

// EventKind enumerates the reducer inputs.
type EventKind int

const (
	EventAdd EventKind = iota + 1
	EventSetQuantity
	EventRemove
	EventClear
	// EventReplace carries a full remote snapshot.
	EventReplace
)

// Event is a single cart transition fed to Reduce.
type Event struct {
	Kind      EventKind
	Line      Line
	ProductID string
	Size      string
	Quantity  int
	Lines     []Line
}

// Reduce applies ev to lines and returns the next collection. The input is
// never modified and insertion order is preserved.
func Reduce(lines []Line, ev Event) []Line {
	switch ev.Kind {
	case EventAdd:
		add := ev.Line
		if add.Quantity <= 0 {
			add.Quantity = 1
		}
		next := cloneLines(lines)
		for i := range next {
			if next[i].key() == add.key() {
				next[i].Quantity = min(next[i].Quantity+add.Quantity, MaxLineQuantity)
				return next
			}
		}
		add.Quantity = min(add.Quantity, MaxLineQuantity)
		return append(next, add)
	case EventSetQuantity:
		if ev.Quantity <= 0 {
			return Reduce(lines, Event{Kind: EventRemove, ProductID: ev.ProductID, Size: ev.Size})
		}
		next := cloneLines(lines)
		target := lineKey{productID: ev.ProductID, size: ev.Size}
		for i := range next {
			if next[i].key() == target {
				next[i].Quantity = min(ev.Quantity, MaxLineQuantity)
			}
		}
		return next
	case EventRemove:
		target := lineKey{productID: ev.ProductID, size: ev.Size}
		next := make([]Line, 0, len(lines))
		for _, l := range lines {
			if l.key() != target {
				next = append(next, l)
			}
		}
		return next
	case EventClear:
		return []Line{}
	case EventReplace:
		next := make([]Line, 0, len(ev.Lines))
		for _, l := range ev.Lines {
			if l.Quantity > 0 {
				next = append(next, l)
			}
		}
		return next
	default:
		return cloneLines(lines)
	}
}

// Total is the sum of price times quantity.
func Total(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.Price * int64(l.Quantity)
	}
	return total
}

// Count is the sum of quantities.
func Count(lines []Line) int {
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return count
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

// ToItems converts lines to their persisted representation.
func ToItems(lines []Line) []types.CartItem {
	items := make([]types.CartItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, types.CartItem(l))
	}
	return items
}

// FromItems converts persisted items back into lines.
func FromItems(items []types.CartItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line(it))
	}
	return lines
}

// ToOrderItems snapshots lines into order items at their current prices.
func ToOrderItems(lines []Line) []types.OrderItem {
	items := make([]types.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, types.OrderItem(l))
	}
	return items
}
