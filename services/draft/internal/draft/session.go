package draft

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/appetiteclub/tablepos/pkg/enums/printmode"
	"github.com/appetiteclub/tablepos/pkg/enums/spice"
	"github.com/appetiteclub/tablepos/services/draft/internal/kot"
	"github.com/appetiteclub/tablepos/services/draft/internal/menu"
	"github.com/appetiteclub/tablepos/services/draft/internal/printing"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemCatalog resolves menu items when a line is first added.
type ItemCatalog interface {
	Item(ctx context.Context, restaurantID, itemID string) (menu.Item, error)
}

// Ref names the table a notification is about.
type Ref struct {
	Key       Key
	TableName string
}

// Observer is told about ledger changes after they are persisted.
type Observer interface {
	KotCreated(ctx context.Context, ref Ref, rec kot.Record, number int)
	KotsPrinted(ctx context.Context, ref Ref, kotIDs []string)
	DraftCleared(ctx context.Context, ref Ref)
}

// MaxLineQuantity caps a single line.
const MaxLineQuantity = 999

type SessionDeps struct {
	Store    Store
	Catalog  ItemCatalog
	Printer  printing.Printer
	Renderer *printing.Renderer
	Observer Observer
	NewID    kot.IDFunc
	Now      func() time.Time
	Logger   aqm.Logger
}

// Session is one terminal's working state for a table: the live cart, the
// KOT ledger and the snapshot the next diff starts from. Operations are
// serialized, so a save can never overlap another action on the same
// session.
type Session struct {
	mu sync.Mutex

	key       Key
	tableName string
	lines     []CartLine
	persons   int
	ledger    *kot.Ledger
	snapshot  kot.Snapshot
	lastSaved time.Time
	dirty     bool

	store    Store
	catalog  ItemCatalog
	printer  printing.Printer
	renderer *printing.Renderer
	observer Observer
	newID    kot.IDFunc
	now      func() time.Time
	logger   aqm.Logger
}

func NewSession(key Key, tableName string, deps SessionDeps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	s := &Session{
		key:       key,
		tableName: tableName,
		persons:   1,
		ledger:    kot.NewLedger(nil),
		store:     deps.Store,
		catalog:   deps.Catalog,
		printer:   deps.Printer,
		renderer:  deps.Renderer,
		observer:  deps.Observer,
		newID:     deps.NewID,
		now:       deps.Now,
		logger:    logger.With("restaurant_id", key.RestaurantID, "table_id", key.TableID, "user_id", key.UserID),
	}
	if s.printer == nil {
		s.printer = printing.NewLogPrinter(logger)
	}
	if s.renderer == nil {
		s.renderer = printing.NewRenderer(printing.DefaultWidth)
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	if s.newID == nil {
		s.newID = kot.NewID
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Restore replaces the session state with the persisted draft. The snapshot
// is set to the restored cart so the next diff only reports changes made
// after re-entry.
func (s *Session) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.store.Load(ctx, s.key)
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}
	s.apply(d)
	return nil
}

func (s *Session) apply(d *Draft) {
	if d == nil {
		s.reset()
		return
	}

	s.lines = restoreLines(d)
	s.persons = d.Persons
	if s.persons < 1 {
		s.persons = 1
	}
	s.ledger = kot.NewLedger(d.KotHistory)
	s.snapshot = kot.Capture(kotLines(s.lines))
	s.lastSaved = d.LastUpdated
	s.dirty = false
	if d.TableName != "" {
		s.tableName = d.TableName
	}
	s.logger.Debug("draft restored", "lines", len(s.lines), "kots", s.ledger.Len())
}

func (s *Session) reset() {
	s.lines = nil
	s.persons = 1
	s.ledger = kot.NewLedger(nil)
	s.snapshot = nil
	s.lastSaved = time.Time{}
	s.dirty = false
}

// AddItem adds one unit to the item's primary line, creating it from the
// menu when absent.
func (s *Session) AddItem(ctx context.Context, itemID string, by Actor) (CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if i := s.primaryIndex(itemID); i >= 0 {
		if s.lines[i].Quantity >= MaxLineQuantity {
			return CartLine{}, ErrInvalidQuantity
		}
		s.lines[i].Quantity++
		s.lines[i].touch(by, now)
		s.dirty = true
		return s.lines[i], nil
	}

	line, err := s.newLine(ctx, itemID, 1, by, now)
	if err != nil {
		return CartLine{}, err
	}
	s.lines = append(s.lines, line)
	s.dirty = true
	return line, nil
}

// SetQuantity sets the quantity of the item's primary line. Negative values
// clamp to zero and zero removes the line. Split lines of the same item are
// not affected.
func (s *Session) SetQuantity(ctx context.Context, itemID string, qty int, by Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty < 0 {
		qty = 0
	}
	if qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	now := s.now()

	i := s.primaryIndex(itemID)
	if i < 0 {
		if qty == 0 {
			return nil
		}
		line, err := s.newLine(ctx, itemID, qty, by, now)
		if err != nil {
			return err
		}
		s.lines = append(s.lines, line)
		s.dirty = true
		return nil
	}

	if qty == 0 {
		s.removeAt(i)
	} else {
		s.lines[i].Quantity = qty
		s.lines[i].touch(by, now)
	}
	s.dirty = true
	return nil
}

// AdjustLineAt changes one physical line by delta. A result of zero or less
// removes that line.
func (s *Session) AdjustLineAt(index, delta int, by Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validIndex(index) {
		return ErrLineNotFound
	}
	if delta == 0 {
		return nil
	}

	if delta > MaxLineQuantity-s.lines[index].Quantity {
		return ErrInvalidQuantity
	}
	q := s.lines[index].Quantity + delta
	if q <= 0 {
		s.removeAt(index)
	} else {
		s.lines[index].Quantity = q
		s.lines[index].touch(by, s.now())
	}
	s.dirty = true
	return nil
}

// SplitLineAt carves one unit out of a line into a new line inserted right
// after it. Note, spice and dietary flags are copied. Lines of quantity one
// or less are left alone.
func (s *Session) SplitLineAt(index int, by Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validIndex(index) {
		return ErrLineNotFound
	}
	if s.lines[index].Quantity <= 1 {
		return nil
	}

	now := s.now()
	s.lines[index].Quantity--
	s.lines[index].touch(by, now)

	split := s.lines[index]
	split.Quantity = 1
	split.Split = true
	split.AddedBy = by
	split.LastUpdatedBy = by.stamp(now)

	s.lines = append(s.lines, CartLine{})
	copy(s.lines[index+2:], s.lines[index+1:])
	s.lines[index+1] = split
	s.dirty = true
	return nil
}

// UpdateLineAt edits note, spice and the Jain flag of one line. A nil spice
// percent keeps the current level.
func (s *Session) UpdateLineAt(index int, details LineDetails, by Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validIndex(index) {
		return ErrLineNotFound
	}

	l := &s.lines[index]
	l.Note = strings.TrimSpace(details.Note)
	if details.SpicePercent != nil {
		l.setSpice(*details.SpicePercent)
	}
	l.IsJain = details.IsJain
	l.touch(by, s.now())
	s.dirty = true
	return nil
}

func (s *Session) SetPersons(n int) error {
	if n < 1 {
		return ErrInvalidPersons
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persons != n {
		s.persons = n
		s.dirty = true
	}
	return nil
}

// Save persists the cart and, when it differs from the last snapshot, a new
// KOT. The KOT is appended and the snapshot advanced only after the store
// accepts the document; on failure the session is unchanged.
func (s *Session) Save(ctx context.Context, by Actor) (*kot.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(ctx, by)
}

func (s *Session) save(ctx context.Context, by Actor) (*kot.Record, error) {
	now := s.now()
	rec, next := kot.Propose(kotLines(s.lines), s.snapshot, now, s.newID)

	doc := &Draft{
		RestaurantID: s.key.RestaurantID,
		TableID:      s.key.TableID,
		TableName:    s.tableName,
		CartItems:    storeLines(s.lines),
		Persons:      s.persons,
		KotHistory:   s.ledger.With(rec),
		UpdatedBy:    by.UserName,
		UserID:       by.UserID,
		LastUpdated:  now,
		ModelVersion: ModelVersion,
	}

	saved, err := s.store.Save(ctx, doc)
	if err != nil {
		s.logger.Error("cannot save draft", "error", err)
		return nil, &PersistenceError{Op: "save", Err: err}
	}

	if rec != nil {
		s.ledger.Append(*rec)
		s.snapshot = next
	}
	s.lastSaved = now
	if saved != nil && !saved.LastUpdated.IsZero() {
		s.lastSaved = saved.LastUpdated
	}
	s.dirty = false

	if rec == nil {
		s.logger.Debug("draft saved, no kitchen changes", "lines", len(s.lines))
		return nil, nil
	}

	number := s.ledger.Len()
	s.logger.Info("kot created", "kot_id", rec.ID, "number", number, "items", len(rec.Items))
	s.observer.KotCreated(ctx, s.ref(), *rec, number)
	return rec, nil
}

// Clear deletes the persisted draft and resets the session, including the
// snapshot. The next KOT will carry the whole cart.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(ctx, s.key); err != nil {
		s.logger.Error("cannot clear draft", "error", err)
		return &PersistenceError{Op: "clear", Err: err}
	}

	s.reset()
	s.logger.Info("draft cleared")
	s.observer.DraftCleared(ctx, s.ref())
	return nil
}

// MarkPrinted flags the listed KOTs as printed, in the store first and then
// locally. It returns the ids that changed locally.
func (s *Session) MarkPrinted(ctx context.Context, kotIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.markPrinted(ctx, kotIDs)
}

func (s *Session) markPrinted(ctx context.Context, kotIDs []string) ([]string, error) {
	if len(kotIDs) == 0 {
		return nil, nil
	}

	if err := s.store.MarkPrinted(ctx, s.key, kotIDs); err != nil {
		s.logger.Error("cannot mark kots printed", "error", err, "kot_ids", kotIDs)
		return nil, &PersistenceError{Op: "mark printed", Err: err}
	}

	changed := s.ledger.MarkPrinted(kotIDs)
	if len(changed) > 0 {
		s.observer.KotsPrinted(ctx, s.ref(), changed)
	}
	return changed, nil
}

// PrintUnprinted prints every KOT not yet printed. The KOTs are marked
// printed before the job is handed to the printer, so a transport failure
// leaves them flagged printed without paper.
func (s *Session) PrintUnprinted(ctx context.Context, by Actor) ([]kot.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.ledger.Unprinted()
	if len(pending) == 0 {
		return nil, ErrNothingToPrint
	}

	ids := make([]string, len(pending))
	for i, r := range pending {
		ids[i] = r.ID
	}
	if _, err := s.markPrinted(ctx, ids); err != nil {
		return nil, err
	}

	header := s.header(by)
	var body []byte
	for i := range pending {
		pending[i].Printed = true
		body = append(body, s.renderer.KOT(header, s.ledger.NumberOf(pending[i].ID), s.kotPrintLines(pending[i].Items))...)
	}

	if err := s.print(ctx, printmode.Modes.Unprinted, ids, body); err != nil {
		return pending, err
	}
	return pending, nil
}

// PrintAgain reprints one historical KOT. Its printed flag is not touched.
func (s *Session) PrintAgain(ctx context.Context, kotID string, by Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ledger.Find(kotID)
	if !ok {
		return ErrKotNotFound
	}

	body := s.renderer.KOT(s.header(by), s.ledger.NumberOf(kotID), s.kotPrintLines(rec.Items))
	return s.print(ctx, printmode.Modes.Again, []string{kotID}, body)
}

// PrintFull prints the whole current cart, outside of KOT tracking.
func (s *Session) PrintFull(ctx context.Context, by Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lines) == 0 {
		return ErrEmptyCart
	}

	body := s.renderer.Full(s.header(by), cartPrintLines(s.lines))
	return s.print(ctx, printmode.Modes.Full, nil, body)
}

// Bill validates the cart, saves it and prints the customer bill. Validation
// happens before any call to the store.
func (s *Session) Bill(ctx context.Context, by Actor) (*kot.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lines) == 0 {
		return nil, ErrEmptyCart
	}
	if s.persons < 1 {
		return nil, ErrInvalidPersons
	}

	rec, err := s.save(ctx, by)
	if err != nil {
		return nil, err
	}

	body := s.renderer.Bill(s.header(by), cartPrintLines(s.lines))
	if err := s.print(ctx, printmode.Modes.Bill, nil, body); err != nil {
		return rec, err
	}
	return rec, nil
}

// View is a read-only copy of the session state.
type View struct {
	RestaurantID      string         `json:"restaurant_id"`
	TableID           string         `json:"table_id"`
	TableName         string         `json:"table_name,omitempty"`
	CartLines         []CartLine     `json:"cart_lines"`
	Persons           int            `json:"persons"`
	KotHistory        []kot.Numbered `json:"kot_history"`
	HasUnsavedChanges bool           `json:"has_unsaved_changes"`
	LastSaved         *time.Time     `json:"last_saved,omitempty"`
	Total             string         `json:"total"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		RestaurantID:      s.key.RestaurantID,
		TableID:           s.key.TableID,
		TableName:         s.tableName,
		CartLines:         s.copyLines(),
		Persons:           s.persons,
		KotHistory:        s.ledger.Numbered(),
		HasUnsavedChanges: s.dirty,
	}
	if !s.lastSaved.IsZero() {
		saved := s.lastSaved
		v.LastSaved = &saved
	}

	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Total())
	}
	v.Total = total.StringFixed(2)
	return v
}

func (s *Session) Lines() []CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLines()
}

func (s *Session) History() []kot.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Records()
}

func (s *Session) Persons() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persons
}

func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) Key() Key {
	return s.key
}

func (s *Session) copyLines() []CartLine {
	out := make([]CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Session) primaryIndex(itemID string) int {
	for i, l := range s.lines {
		if l.ItemID == itemID && !l.Split {
			return i
		}
	}
	return -1
}

func (s *Session) validIndex(i int) bool {
	return i >= 0 && i < len(s.lines)
}

func (s *Session) removeAt(i int) {
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}

func (s *Session) newLine(ctx context.Context, itemID string, qty int, by Actor, now time.Time) (CartLine, error) {
	if s.catalog == nil {
		return CartLine{}, ErrUnknownItem
	}
	it, err := s.catalog.Item(ctx, s.key.RestaurantID, itemID)
	if errors.Is(err, menu.ErrItemNotFound) {
		return CartLine{}, ErrUnknownItem
	}
	if err != nil {
		return CartLine{}, fmt.Errorf("cannot look up menu item %s: %w", itemID, err)
	}
	return newCartLine(it.ID, it.Name, it.Price, qty, by, now), nil
}

func (s *Session) ref() Ref {
	return Ref{Key: s.key, TableName: s.tableName}
}

func (s *Session) header(by Actor) printing.Header {
	return printing.Header{
		TableName: s.tableName,
		Persons:   s.persons,
		Staff:     by.UserName,
		At:        s.now(),
	}
}

func (s *Session) print(ctx context.Context, mode printmode.Mode, kotIDs []string, body []byte) error {
	job := printing.Job{
		ID:           uuid.NewString(),
		Mode:         mode,
		RestaurantID: s.key.RestaurantID,
		TableID:      s.key.TableID,
		TableName:    s.tableName,
		KotIDs:       kotIDs,
		Body:         body,
	}
	if err := s.printer.Print(ctx, job); err != nil {
		s.logger.Error("print failed", "mode", mode.Code(), "error", err, "kot_ids", kotIDs)
		return &PrintError{Err: err}
	}
	s.logger.Info("print job sent", "mode", mode.Code(), "job_id", job.ID)
	return nil
}

// kotPrintLines attaches the current cart's notes and flags to added items
// so the kitchen sees them on the ticket.
func (s *Session) kotPrintLines(items []kot.DeltaItem) []printing.Line {
	out := make([]printing.Line, len(items))
	for i, d := range items {
		out[i] = printing.Line{Name: d.Name, Quantity: d.Quantity, Price: d.Price}
		if d.Quantity < 0 {
			continue
		}

		var notes []string
		for _, l := range s.lines {
			if l.ItemID != d.ItemID {
				continue
			}
			if l.Note != "" {
				notes = append(notes, l.Note)
			}
			if l.IsJain {
				out[i].Jain = true
			}
			if l.SpicePercent > 0 {
				out[i].Spice = spice.FromPercent(l.SpicePercent).Label()
			}
		}
		sort.Strings(notes)
		out[i].Note = strings.Join(notes, "; ")
	}
	return out
}

func cartPrintLines(lines []CartLine) []printing.Line {
	out := make([]printing.Line, len(lines))
	for i, l := range lines {
		out[i] = printing.Line{
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.UnitPrice,
			Note:     l.Note,
			Jain:     l.IsJain,
		}
		if l.SpicePercent > 0 {
			out[i].Spice = spice.FromPercent(l.SpicePercent).Label()
		}
	}
	return out
}

type noopObserver struct{}

func (noopObserver) KotCreated(context.Context, Ref, kot.Record, int) {}
func (noopObserver) KotsPrinted(context.Context, Ref, []string)       {}
func (noopObserver) DraftCleared(context.Context, Ref)                {}
