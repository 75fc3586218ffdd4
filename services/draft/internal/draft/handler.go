package draft

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/appetiteclub/tablepos/pkg/enums/spice"
	"github.com/appetiteclub/tablepos/services/draft/internal/menu"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 16

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// MenuReader serves the catalog passthrough routes.
type MenuReader interface {
	Items(ctx context.Context, restaurantID, categoryID string) ([]menu.Item, error)
	Categories(ctx context.Context, restaurantID string) ([]menu.Category, error)
}

type HandlerDeps struct {
	Sessions *Registry
	Menu     MenuReader
}

type Handler struct {
	sessions *Registry
	menu     MenuReader
	logger   aqm.Logger
	config   *aqm.Config
	tlm      *telemetry.HTTP
}

func NewHandler(hd HandlerDeps, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		sessions: hd.Sessions,
		menu:     hd.Menu,
		logger:   logger,
		config:   config,
		tlm:      telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/restaurants/{restaurantID}", func(r chi.Router) {
		r.Route("/tables/{tableID}/draft", func(r chi.Router) {
			r.Get("/", h.GetDraft)
			r.Delete("/", h.ClearDraft)
			r.Post("/items", h.AddItem)
			r.Put("/items/{itemID}", h.SetQuantity)
			r.Patch("/lines/{index}", h.AdjustLine)
			r.Post("/lines/{index}/split", h.SplitLine)
			r.Put("/lines/{index}/details", h.UpdateLine)
			r.Put("/persons", h.SetPersons)
			r.Post("/save", h.SaveDraft)
			r.Post("/kots/print", h.PrintUnprinted)
			r.Post("/kots/printed", h.MarkPrinted)
			r.Post("/kots/{kotID}/print", h.PrintAgain)
			r.Post("/print-full", h.PrintFull)
			r.Post("/bill", h.Bill)
		})

		r.Get("/menu/categories", h.ListCategories)
		r.Get("/menu/items", h.ListMenuItems)
	})
}

// GetDraft opens the terminal's session for the table. With ?restore=true
// the session is rebuilt from the stored draft, dropping unsaved changes.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetDraft")
	defer finish()
	log := h.log(r)

	key, actor, ok := h.identify(w, r)
	if !ok {
		return
	}

	var (
		s   *Session
		err error
	)
	if r.URL.Query().Get("restore") == "true" {
		s, err = h.sessions.Restore(r.Context(), key, r.URL.Query().Get("table_name"))
	} else {
		s, err = h.sessions.Open(r.Context(), key, r.URL.Query().Get("table_name"))
	}
	if err != nil {
		h.respondError(w, log, err)
		return
	}

	log.Debug("draft opened", "user", actor.UserName)
	aqm.Respond(w, http.StatusOK, s.View(), nil)
}

func (h *Handler) ClearDraft(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ClearDraft")
	defer finish()
	log := h.log(r)

	s, _, ok := h.session(w, r, log)
	if !ok {
		return
	}

	if err := s.Clear(r.Context()); err != nil {
		h.respondError(w, log, err)
		return
	}

	key := s.Key()
	if n := h.sessions.EvictTable(key.RestaurantID, key.TableID, key); n > 0 {
		log.Info("evicted sessions after clear", "table_id", key.TableID, "count", n)
	}

	aqm.Respond(w, http.StatusOK, s.View(), nil)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddItem")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}

	var req addItemRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if errs := validateAddItem(&req); len(errs) > 0 {
		h.respondValidationErrors(w, errs)
		return
	}

	if _, err := s.AddItem(r.Context(), strings.TrimSpace(req.ItemID), actor); err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, s.View(), nil)
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetQuantity")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}

	var req setQuantityRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if errs := validateSetQuantity(&req); len(errs) > 0 {
		h.respondValidationErrors(w, errs)
		return
	}

	if err := s.SetQuantity(r.Context(), chi.URLParam(r, "itemID"), *req.Quantity, actor); err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, s.View(), nil)
}

func (h *Handler) AdjustLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AdjustLine")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}
	index, ok := h.parseIndexParam(w, r, log)
	if !ok {
		return
	}

	var req adjustLineRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if errs := validateAdjustLine(&req); len(errs) > 0 {
		h.respondValidationErrors(w, errs)
		return
	}

	if err := s.AdjustLineAt(index, *req.Delta, actor); err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, s.View(), nil)
}

func (h *Handler) SplitLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SplitLine")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}
	index, ok := h.parseIndexParam(w, r, log)
	if !ok {
		return
	}

	if err := s.SplitLineAt(index, actor); err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, s.View(), nil)
}

func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateLine")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}
	index, ok := h.parseIndexParam(w, r, log)
	if !ok {
		return
	}

	var req lineDetailsRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if errs := validateLineDetails(&req); len(errs) > 0 {
		h.respondValidationErrors(w, errs)
		return
	}

	details := LineDetails{Note: req.Note, SpicePercent: req.SpicePercent, IsJain: req.IsJain}
	if req.SpiceLevel != nil {
		percent := spice.ByValue(*req.SpiceLevel).Percent()
		details.SpicePercent = &percent
	}
	if err := s.UpdateLineAt(index, details, actor); err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, s.View(), nil)
}

func (h *Handler) SetPersons(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetPersons")
	defer finish()
	log := h.log(r)

	s, _, ok := h.session(w, r, log)
	if !ok {
		return
	}

	var req personsRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if errs := validatePersons(&req); len(errs) > 0 {
		h.respondValidationErrors(w, errs)
		return
	}

	if err := s.SetPersons(*req.Persons); err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, s.View(), nil)
}

func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SaveDraft")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}

	rec, err := s.Save(r.Context(), actor)
	if err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"kot":   rec,
		"draft": s.View(),
	}, nil)
}

func (h *Handler) PrintUnprinted(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PrintUnprinted")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}

	printed, err := s.PrintUnprinted(r.Context(), actor)
	if err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"printed": printed,
	}, nil)
}

func (h *Handler) PrintAgain(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PrintAgain")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}

	kotID := chi.URLParam(r, "kotID")
	if err := s.PrintAgain(r.Context(), kotID, actor); err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"kot_id": kotID,
	}, nil)
}

func (h *Handler) MarkPrinted(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.MarkPrinted")
	defer finish()
	log := h.log(r)

	s, _, ok := h.session(w, r, log)
	if !ok {
		return
	}

	var req markPrintedRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if errs := validateMarkPrinted(&req); len(errs) > 0 {
		h.respondValidationErrors(w, errs)
		return
	}

	changed, err := s.MarkPrinted(r.Context(), req.KotIDs)
	if err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"changed": changed,
		"draft":   s.View(),
	}, nil)
}

func (h *Handler) PrintFull(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PrintFull")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}

	if err := s.PrintFull(r.Context(), actor); err != nil {
		h.respondError(w, log, err)
		return
	}

	aqm.RespondSuccess(w, map[string]string{"status": "sent"})
}

func (h *Handler) Bill(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Bill")
	defer finish()
	log := h.log(r)

	s, actor, ok := h.session(w, r, log)
	if !ok {
		return
	}

	rec, err := s.Bill(r.Context(), actor)
	if err != nil {
		h.respondError(w, log, err)
		return
	}

	// The bill saved the cart; every terminal restores from the store next.
	key := s.Key()
	if n := h.sessions.EvictTable(key.RestaurantID, key.TableID, Key{}); n > 0 {
		log.Info("evicted sessions after bill", "table_id", key.TableID, "count", n)
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"kot":   rec,
		"draft": s.View(),
	}, nil)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListCategories")
	defer finish()
	log := h.log(r)

	if h.menu == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, "Menu catalog not available")
		return
	}

	categories, err := h.menu.Categories(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		log.Errorf("cannot list menu categories: %v", err)
		aqm.RespondError(w, http.StatusBadGateway, "Could not load menu categories")
		return
	}

	aqm.Respond(w, http.StatusOK, categories, nil)
}

func (h *Handler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMenuItems")
	defer finish()
	log := h.log(r)

	if h.menu == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, "Menu catalog not available")
		return
	}

	items, err := h.menu.Items(r.Context(), chi.URLParam(r, "restaurantID"), r.URL.Query().Get("category_id"))
	if err != nil {
		log.Errorf("cannot list menu items: %v", err)
		aqm.RespondError(w, http.StatusBadGateway, "Could not load menu items")
		return
	}

	aqm.Respond(w, http.StatusOK, items, nil)
}

// Helper methods

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

func (h *Handler) identify(w http.ResponseWriter, r *http.Request) (Key, Actor, bool) {
	actor := Actor{
		UserID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
		UserName: strings.TrimSpace(r.Header.Get(HeaderUserName)),
	}
	if actor.UserID == "" {
		aqm.RespondError(w, http.StatusBadRequest, HeaderUserID+" header is required")
		return Key{}, Actor{}, false
	}
	if actor.UserName == "" {
		actor.UserName = actor.UserID
	}

	key := Key{
		RestaurantID: chi.URLParam(r, "restaurantID"),
		TableID:      chi.URLParam(r, "tableID"),
		UserID:       actor.UserID,
	}
	return key, actor, true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request, log aqm.Logger) (*Session, Actor, bool) {
	key, actor, ok := h.identify(w, r)
	if !ok {
		return nil, Actor{}, false
	}

	s, err := h.sessions.Open(r.Context(), key, r.URL.Query().Get("table_name"))
	if err != nil {
		h.respondError(w, log, err)
		return nil, Actor{}, false
	}
	return s, actor, true
}

func (h *Handler) parseIndexParam(w http.ResponseWriter, r *http.Request, log aqm.Logger) (int, bool) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		log.Debug("invalid line index", "index", raw)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid line index")
		return 0, false
	}
	return index, true
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log aqm.Logger, target interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("error reading request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return false
	}

	if err := json.Unmarshal(body, target); err != nil {
		log.Debug("error decoding JSON", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	return true
}

func (h *Handler) respondValidationErrors(w http.ResponseWriter, errs []ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  "Validation failed",
		"errors": errs,
	})
}

// respondError maps session errors to HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, log aqm.Logger, err error) {
	var (
		persistErr *PersistenceError
		printErr   *PrintError
	)

	switch {
	case errors.Is(err, ErrSubscriptionExpired):
		log.Info("subscription expired", "error", err)
		aqm.RespondError(w, http.StatusPaymentRequired, "Subscription expired. Renew the plan to keep saving orders")
	case errors.Is(err, ErrDraftNotFound), errors.Is(err, ErrLineNotFound), errors.Is(err, ErrKotNotFound):
		aqm.RespondError(w, http.StatusNotFound, capitalize(err))
	case errors.Is(err, ErrNothingToPrint):
		aqm.RespondError(w, http.StatusConflict, "Nothing to print")
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidPersons),
		errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrUnknownItem):
		aqm.RespondError(w, http.StatusBadRequest, capitalize(err))
	case errors.As(err, &persistErr):
		log.Errorf("draft persistence failed: %v", err)
		aqm.RespondError(w, http.StatusServiceUnavailable, "Could not reach draft storage, please retry")
	case errors.As(err, &printErr):
		log.Errorf("print failed: %v", err)
		aqm.RespondError(w, http.StatusBadGateway, "Printer unavailable, please retry")
	default:
		log.Errorf("draft operation failed: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not complete the request")
	}
}

func capitalize(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
