package kot

import "sort"

// Capture aggregates lines by item id, summing quantities of split lines.
// The first line seen for an item supplies its name and price.
func Capture(lines []Line) Snapshot {
	snap := make(Snapshot, len(lines))
	for _, l := range lines {
		agg, ok := snap[l.ItemID]
		if !ok {
			agg = Aggregate{Name: l.Name, Price: l.Price}
		}
		agg.Quantity += l.Quantity
		snap[l.ItemID] = agg
	}
	return snap
}

// Diff returns the per-item quantity change between the current cart and the
// last snapshot. Items whose totals are equal on both sides are omitted, so
// an empty result means the kitchen already knows the whole cart. Name and
// price come from the current side when present, else from the snapshot.
// Output is sorted by item id.
func Diff(current []Line, last Snapshot) []DeltaItem {
	return diffSnapshots(Capture(current), last)
}

func diffSnapshots(cur, last Snapshot) []DeltaItem {
	keys := make(map[string]struct{}, len(cur)+len(last))
	for id := range cur {
		keys[id] = struct{}{}
	}
	for id := range last {
		keys[id] = struct{}{}
	}

	deltas := make([]DeltaItem, 0, len(keys))
	for id := range keys {
		c, inCur := cur[id]
		l := last[id]
		delta := c.Quantity - l.Quantity
		if delta == 0 {
			continue
		}
		src := l
		if inCur {
			src = c
		}
		deltas = append(deltas, DeltaItem{
			ItemID:   id,
			Name:     src.Name,
			Price:    src.Price,
			Quantity: delta,
		})
	}

	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].ItemID < deltas[j].ItemID
	})
	return deltas
}
