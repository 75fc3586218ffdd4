package kot

import "time"

// Propose runs the differ and packages a non-empty delta as a new unprinted
// record. It returns the record and the snapshot the next diff must start
// from. With an empty delta it returns nil and last unchanged.
func Propose(current []Line, last Snapshot, at time.Time, newID IDFunc) (*Record, Snapshot) {
	deltas := Diff(current, last)
	if len(deltas) == 0 {
		return nil, last
	}
	if newID == nil {
		newID = NewID
	}
	rec := &Record{
		ID:        newID(),
		Items:     deltas,
		Timestamp: at,
		Printed:   false,
	}
	return rec, Capture(current)
}

// Numbered pairs a record with the display number staff see on screen.
type Numbered struct {
	Record
	Number int `json:"number"`
}

// Ledger is the append-only KOT history of one draft.
type Ledger struct {
	records []Record
}

func NewLedger(records []Record) *Ledger {
	l := &Ledger{records: make([]Record, 0, len(records))}
	for _, r := range records {
		l.records = append(l.records, r.clone())
	}
	return l
}

// TryCreate proposes a record and, when the delta is non-empty, appends it.
func (l *Ledger) TryCreate(current []Line, last Snapshot, at time.Time, newID IDFunc) (*Record, Snapshot) {
	rec, next := Propose(current, last, at, newID)
	if rec != nil {
		l.Append(*rec)
	}
	return rec, next
}

func (l *Ledger) Append(r Record) {
	l.records = append(l.records, r.clone())
}

func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of the history in creation order.
func (l *Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	for i, r := range l.records {
		out[i] = r.clone()
	}
	return out
}

// With returns a copy of the history with rec appended, leaving the ledger
// untouched. A nil rec yields a plain copy.
func (l *Ledger) With(rec *Record) []Record {
	out := l.Records()
	if rec != nil {
		out = append(out, rec.clone())
	}
	return out
}

func (l *Ledger) Find(id string) (Record, bool) {
	for _, r := range l.records {
		if r.ID == id {
			return r.clone(), true
		}
	}
	return Record{}, false
}

// NumberOf returns the display number of a record, or 0 when unknown.
func (l *Ledger) NumberOf(id string) int {
	for i, r := range l.records {
		if r.ID == id {
			return i + 1
		}
	}
	return 0
}

func (l *Ledger) Unprinted() []Record {
	var out []Record
	for _, r := range l.records {
		if !r.Printed {
			out = append(out, r.clone())
		}
	}
	return out
}

// MarkPrinted flips Printed on every record whose id is listed and returns
// the ids that actually changed. Unknown and already printed ids are
// ignored.
func (l *Ledger) MarkPrinted(ids []string) []string {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	var changed []string
	for i := range l.records {
		if _, ok := want[l.records[i].ID]; !ok || l.records[i].Printed {
			continue
		}
		l.records[i].Printed = true
		changed = append(changed, l.records[i].ID)
	}
	return changed
}

// Numbered lists records newest first; the newest is number Len().
func (l *Ledger) Numbered() []Numbered {
	total := len(l.records)
	out := make([]Numbered, 0, total)
	for i := total - 1; i >= 0; i-- {
		out = append(out, Numbered{Record: l.records[i].clone(), Number: i + 1})
	}
	return out
}
