// Package api is the thin HTTP adapter (MOD-HTTP, ambient): chi
// routing, session-cookie auth, and JSON (de)serialization delegating
// every real decision to the core packages (identity/engine/resolve/
// snapshot). Grounded on the teacher's server.go route table and
// middleware stack, with bearer-JWT swapped for a DB-backed opaque
// session cookie per spec.md §3/§6 and hand-rolled CORS swapped for
// rs/cors.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"profecia/internal/apperr"
	"profecia/internal/db"
	"profecia/internal/engine"
	"profecia/internal/identity"
	"profecia/internal/ledger"
	"profecia/internal/metrics"
	"profecia/internal/model"
	"profecia/internal/percentage"
	"profecia/internal/resolve"
	"profecia/internal/snapshot"
	"profecia/internal/ws"
)

const sessionCookie = "sessionId"

type Server struct {
	store    *db.Store
	identity *identity.Service
	manager  *engine.Manager
	resolver *resolve.Resolver
	snap     *snapshot.Scheduler
	hub      *ws.Hub
	log      *zap.Logger
}

func NewServer(store *db.Store, ident *identity.Service, mgr *engine.Manager, res *resolve.Resolver,
	snap *snapshot.Scheduler, hub *ws.Hub, log *zap.Logger) *Server {
	return &Server{store: store, identity: ident, manager: mgr, resolver: res, snap: snap, hub: hub, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.AllowAll().Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json200(w, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Post("/user/register", s.register)
	r.Post("/user/login", s.login)

	r.Get("/ws", s.hub.HandleWS)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/user/logout", s.logout)
		r.Get("/user/me", s.me)
		r.Get("/user/airdrop", s.airdropStatus)
		r.Post("/user/airdrop", s.airdrop)
		r.Get("/user/positions", s.userPositions)

		r.Get("/event", s.listEvents)
		r.Get("/event/{id}", s.getEvent)
		r.Get("/event/percentages", s.allPercentages)
		r.Get("/event/percentages/{mid}", s.onePercentage)
		r.Get("/event/chart/{eid}", s.eventChart)
		r.Get("/event/position/{eid}", s.eventPositions)

		r.Post("/event/buyorder", s.placeOrder)
		r.Get("/event/buyorder/{mid}", s.listOrders)
		r.Post("/event/buyorder/cancel/{oid}", s.cancelOrder)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/event", s.createEvent)
			r.Post("/event/{id}/market", s.createMarket)
			r.Post("/event/resolve/{mid}", s.resolveMarket)
		})
	})

	return r
}

// ── Auth ─────────────────────────────────────────────

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, apperr.New(apperr.JSONDecode, "invalid json"))
		return
	}
	user, err := s.identity.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		jsonErr(w, err)
		return
	}
	json200(w, map[string]any{"user": model.UserToDto(*user)})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, apperr.New(apperr.JSONDecode, "invalid json"))
		return
	}
	sess, user, err := s.identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		jsonErr(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name: sessionCookie, Value: sess.ID, Path: "/", Expires: sess.ExpiresAt, HttpOnly: true,
	})
	json200(w, map[string]any{"sessionId": sess.ID, "user": model.UserToDto(*user)})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		_ = db.DeleteSession(r.Context(), s.store.DB, c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	json200(w, map[string]string{"status": "logged_out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user := userFromCtx(r)
	json200(w, model.UserToDto(*user))
}

// ── Middleware ────────────────────────────────────────

type ctxKey string

const ctxUser ctxKey = "user"

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			jsonErr(w, apperr.New(apperr.Unauthorized, "missing session cookie"))
			return
		}
		user, err := s.identity.Authenticate(r.Context(), c.Value)
		if err != nil {
			jsonErr(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminOnly rejects any caller whose session user isn't model.RoleAdmin
// (spec.md §4.4 precondition, §6 "(admin)" routes).
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFromCtx(r)
		if user.Role != model.RoleAdmin {
			jsonErr(w, apperr.New(apperr.Forbidden, "admin only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromCtx(r *http.Request) *model.User {
	u, _ := r.Context().Value(ctxUser).(*model.User)
	return u
}

// ── Wallet / Airdrop ─────────────────────────────────

func (s *Server) airdropStatus(w http.ResponseWriter, r *http.Request) {
	user := userFromCtx(r)
	json200(w, map[string]any{"lastAirdrop": user.LastAirdrop})
}

func (s *Server) airdrop(w http.ResponseWriter, r *http.Request) {
	user := userFromCtx(r)
	ref, err := s.identity.Airdrop(r.Context(), user.ID)
	if err != nil {
		jsonErr(w, err)
		return
	}
	json200(w, map[string]any{"transactionUrls": []string{string(ref)}})
}

// ── Events & Markets ─────────────────────────────────

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := db.ListEvents(r.Context(), s.store.DB)
	if err != nil {
		jsonErr(w, apperr.DatabaseErr(err))
		return
	}
	out := make([]model.EventDto, len(events))
	for i, e := range events {
		out[i] = s.eventToDto(r, e)
	}
	json200(w, out)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := db.GetEvent(r.Context(), s.store.DB, id)
	if err != nil {
		jsonErr(w, apperr.DatabaseErr(err))
		return
	}
	if e == nil {
		jsonErr(w, apperr.New(apperr.MarketNotFound, "event not found"))
		return
	}
	json200(w, s.eventToDto(r, *e))
}

func (s *Server) eventToDto(r *http.Request, e model.Event) model.EventDto {
	markets, _ := db.ListMarketsByEvent(r.Context(), s.store.DB, e.ID)
	dto := model.EventDto{ID: e.ID, DisplayName: e.DisplayName, Markets: make([]model.MarketDto, len(markets))}
	for i, m := range markets {
		dto.Markets[i] = model.MarketToDto(m)
	}
	return dto
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, apperr.New(apperr.JSONDecode, "invalid json"))
		return
	}
	v := &apperr.FieldValidator{}
	v.Require(req.DisplayName != "", "displayName", "required")
	if err := v.Err(); err != nil {
		jsonErr(w, err)
		return
	}

	event, err := db.CreateEvent(r.Context(), s.store.DB, req.DisplayName)
	if err != nil {
		jsonErr(w, apperr.DatabaseErr(err))
		return
	}
	eventUUID, _ := uuid.Parse(event.ID)
	if _, err := s.manager.Ledger().CreateEmptyEvent(r.Context(), eventUUID); err != nil {
		s.log.Error("ledger create empty event failed", zap.String("event_id", event.ID), zap.Error(err))
	}
	json200(w, event)
}

func (s *Server) createMarket(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	var req struct {
		DisplayName string `json:"displayName"`
		OptionAName string `json:"optionAName"`
		OptionBName string `json:"optionBName"`
		Rules       string `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, apperr.New(apperr.JSONDecode, "invalid json"))
		return
	}
	v := &apperr.FieldValidator{}
	v.Require(req.DisplayName != "", "displayName", "required")
	v.Require(req.OptionAName != "", "optionAName", "required")
	v.Require(req.OptionBName != "", "optionBName", "required")
	if err := v.Err(); err != nil {
		jsonErr(w, err)
		return
	}

	yesMint, err := ledger.NewMint()
	if err != nil {
		jsonErr(w, apperr.LedgerErr(err))
		return
	}
	noMint, err := ledger.NewMint()
	if err != nil {
		jsonErr(w, apperr.LedgerErr(err))
		return
	}

	mkt, err := db.CreateMarket(r.Context(), s.store.DB, model.Market{
		EventID: eventID, DisplayName: req.DisplayName,
		OptionAName: req.OptionAName, OptionBName: req.OptionBName, Rules: req.Rules,
		YesMint: string(yesMint), NoMint: string(noMint),
	})
	if err != nil {
		jsonErr(w, apperr.DatabaseErr(err))
		return
	}

	eventUUID, _ := uuid.Parse(eventID)
	marketUUID, _ := uuid.Parse(mkt.ID)
	if _, err := s.manager.Ledger().AddOption(r.Context(), eventUUID, marketUUID, yesMint, noMint); err != nil {
		s.log.Error("ledger add option failed", zap.String("market_id", mkt.ID), zap.Error(err))
	}
	json200(w, model.MarketToDto(*mkt))
}

func (s *Server) resolveMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "mid")
	admin := userFromCtx(r)
	var req struct {
		ResolvesTo model.SideDto `json:"resolvesTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, apperr.New(apperr.JSONDecode, "invalid json"))
		return
	}
	result, err := s.resolver.Resolve(r.Context(), marketID, req.ResolvesTo.ToSide(), admin.ID)
	if err != nil {
		jsonErr(w, err)
		return
	}
	json200(w, map[string]any{"transactionUrls": result.TxRefs, "errors": result.Errors})
}

// ── Percentages & Chart ──────────────────────────────

func (s *Server) allPercentages(w http.ResponseWriter, r *http.Request) {
	markets, err := db.ListMarkets(r.Context(), s.store.DB)
	if err != nil {
		jsonErr(w, apperr.DatabaseErr(err))
		return
	}
	out := make([]model.PercentagesDto, 0, len(markets))
	for _, m := range markets {
		out = append(out, s.percentagesFor(r, m.ID))
	}
	json200(w, out)
}

func (s *Server) onePercentage(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "mid")
	json200(w, s.percentagesFor(r, marketID))
}

func (s *Server) percentagesFor(r *http.Request, marketID string) model.PercentagesDto {
	orders, _ := db.FindByMarket(r.Context(), s.store.DB, marketID)
	a, b := percentage.Evaluate(orders)
	return model.PercentagesDto{MarketID: marketID, OptionAPercentage: a, OptionBPercentage: b}
}

func (s *Server) eventChart(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eid")
	chart, err := s.snap.EventChart(r.Context(), eventID)
	if err != nil {
		jsonErr(w, apperr.DatabaseErr(err))
		return
	}
	json200(w, chart)
}

// ── Orders & Positions ───────────────────────────────

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	user := userFromCtx(r)
	var req model.PlaceBuyOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, apperr.New(apperr.JSONDecode, "invalid json"))
		return
	}
	result, err := s.manager.PlaceOrder(r.Context(), req.MarketID, user.ID, req.Option.ToSide(), req.Shares, req.PricePerShare)
	if err != nil {
		jsonErr(w, err)
		return
	}
	json200(w, map[string]any{"transactionUrls": []string{}, "result": result})
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "oid")
	user := userFromCtx(r)
	ref, err := s.manager.CancelOrder(r.Context(), orderID, user.ID)
	if err != nil {
		jsonErr(w, err)
		return
	}
	json200(w, map[string]any{"transactionUrls": []string{string(ref)}})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "mid")
	orders, err := db.FindByMarket(r.Context(), s.store.DB, marketID)
	if err != nil {
		jsonErr(w, apperr.DatabaseErr(err))
		return
	}
	out := make([]model.BuyOrderDto, len(orders))
	for i, o := range orders {
		out[i] = model.BuyOrderToDto(o)
	}
	json200(w, out)
}

func (s *Server) userPositions(w http.ResponseWriter, r *http.Request) {
	user := userFromCtx(r)
	positions, err := db.ListPositionsByUser(r.Context(), s.store.DB, user.ID)
	if err != nil {
		jsonErr(w, apperr.DatabaseErr(err))
		return
	}
	json200(w, toPositionDtos(positions))
}

func (s *Server) eventPositions(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eid")
	markets, err := db.ListMarketsByEvent(r.Context(), s.store.DB, eventID)
	if err != nil {
		jsonErr(w, apperr.DatabaseErr(err))
		return
	}
	var all []model.Position
	for _, m := range markets {
		ps, err := db.ListPositionsByMarket(r.Context(), s.store.DB, m.ID)
		if err != nil {
			jsonErr(w, apperr.DatabaseErr(err))
			return
		}
		all = append(all, ps...)
	}
	json200(w, toPositionDtos(all))
}

func toPositionDtos(positions []model.Position) []model.PositionDto {
	out := make([]model.PositionDto, len(positions))
	for i, p := range positions {
		out[i] = model.PositionToDto(p)
	}
	return out
}

// ── Helpers ──────────────────────────────────────────

func json200(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// jsonErr renders err's AppError kind as the status+body spec.md §7
// mandates ({"error": "..."}), sending only the AppError's message so
// the client never sees internal detail. It does not log the cause.
func jsonErr(w http.ResponseWriter, err error) {
	ae := apperr.As(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.StatusFor(ae.Kind))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": ae.Message})
}
