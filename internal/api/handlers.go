package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xtrntr/otc/internal/auth"
	"github.com/xtrntr/otc/internal/db"
	"github.com/xtrntr/otc/internal/otc"
	"github.com/xtrntr/otc/internal/rates"
	"github.com/xtrntr/otc/internal/vault"
)

type ctxKey string

const principalKey ctxKey = "principal"

// Handler contains dependencies for HTTP handlers
type Handler struct {
	DB          *db.DB
	Engine      *otc.Engine
	AuthService *auth.AuthService
	Oracle      *rates.Oracle
	Vault       *vault.Postgres
}

// NewHandler creates a new handler
func NewHandler(db *db.DB, engine *otc.Engine, authService *auth.AuthService, oracle *rates.Oracle, v *vault.Postgres) *Handler {
	return &Handler{DB: db, Engine: engine, AuthService: authService, Oracle: oracle, Vault: v}
}

// Routes mounts every endpoint on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)

		r.Post("/profile", h.RegisterProfile)
		r.Put("/profile", h.UpdateProfile)
		r.Delete("/profile", h.DestroyProfile)
		r.Get("/profile/{address}", h.GetProfile)

		r.Get("/assets", h.ListAssets)
		r.Get("/params", h.GetParams)
		r.Get("/reputation/{address}", h.GetReputation)
		r.Get("/balances/{asset}/{address}", h.GetBalance)

		r.Post("/orders", h.OpenOrder)
		r.Post("/orders/increase", h.IncreaseAmount)
		r.Post("/orders/decrease", h.DecreaseAmount)
		r.Delete("/orders", h.CloseOrder)
		r.Get("/orders/{maker}", h.GetOrder)

		r.Post("/deals", h.MakeDeal)
		r.Post("/deals/{id}/cancel", h.CancelDeal)
		r.Post("/deals/{id}/confirm", h.ConfirmDeal)
		r.Post("/deals/{id}/redeem", h.RedeemCollateral)
		r.Get("/deals/{id}", h.GetDeal)
		r.Get("/deals/{id}/frozen-time", h.LeftFrozenTime)

		r.Post("/adjudications", h.ApplyAdjudication)
		r.Post("/adjudications/{id}/respond", h.RespondAdjudication)
		r.Post("/adjudications/{id}/judge", h.JudgeAdjudication)
		r.Get("/adjudications/{id}", h.GetAdjudication)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Post("/admin/assets", h.AddAssets)
			r.Delete("/admin/assets/{code}", h.RemoveAsset)
			r.Put("/admin/params", h.SetParams)
			r.Put("/admin/rates", h.SetRate)
			r.Post("/admin/vault/mint", h.MintBalance)
			r.Post("/admin/verify", h.AddToVerifyList)
			r.Delete("/admin/verify/{address}", h.RemoveFromVerifyList)
			r.Post("/admin/blacklist", h.AddToBlacklist)
			r.Delete("/admin/blacklist/{address}", h.RemoveFromBlacklist)
		})
	})
}

// Register handles account registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, `{"error": "Username and password required"}`, http.StatusBadRequest)
		return
	}

	account, err := h.AuthService.Register(r.Context(), req.Username, req.Password, "trader")
	if err != nil {
		http.Error(w, `{"error": "Failed to register account"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":       account.ID,
		"username": account.Username,
		"address":  account.Address,
	})
}

// Login handles account login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, `{"error": "Invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// JWTAuthMiddleware verifies JWT tokens
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, `{"error": "Authorization header required"}`, http.StatusUnauthorized)
			return
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		principal, err := h.AuthService.PrincipalFromToken(tokenString)
		if err != nil {
			http.Error(w, `{"error": "Invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin principals.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := r.Context().Value(principalKey).(auth.Principal)
		if !ok || !principal.IsAdmin() {
			http.Error(w, `{"error": "Admin role required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func principalFrom(r *http.Request) (auth.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(auth.Principal)
	return p, ok
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	reason := "internal"
	if kind, ok := otc.KindOf(err); ok {
		reason = kind.String()
		switch kind {
		case otc.KindNotFound:
			status = http.StatusNotFound
		case otc.KindUnauthorized, otc.KindPolicy:
			status = http.StatusForbidden
		case otc.KindInvalidState:
			status = http.StatusConflict
		case otc.KindConstraint:
			status = http.StatusBadRequest
		case otc.KindTiming:
			status = http.StatusTooEarly
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "reason": reason})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RegisterProfile creates the caller's identity record
func (h *Handler) RegisterProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.Engine.RegisterProfile(r.Context(), principal.Address, req.Hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// UpdateProfile replaces the caller's reference hash
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.Engine.UpdateProfile(r.Context(), principal.Address, req.Hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// DestroyProfile removes the caller's identity record
func (h *Handler) DestroyProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if err := h.Engine.DestroyProfile(r.Context(), principal.Address); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile destroyed"})
}

// GetProfile retrieves a profile by address
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Engine.GetProfile(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// AddAssets whitelists asset codes in batch
func (h *Handler) AddAssets(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	var req struct {
		Codes   []string `json:"codes"`
		Handles []string `json:"handles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := h.Engine.AddAssets(r.Context(), principal.Address, req.Codes, req.Handles); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"count": h.Engine.AssetCount()})
}

// RemoveAsset delists an asset code
func (h *Handler) RemoveAsset(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	if err := h.Engine.RemoveAsset(r.Context(), principal.Address, chi.URLParam(r, "code")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": h.Engine.AssetCount()})
}

// ListAssets lists registered assets
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Assets())
}

// GetParams returns the current engine parameters
func (h *Handler) GetParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Params())
}

// SetParams replaces the engine parameters
func (h *Handler) SetParams(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	var params otc.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := h.Engine.SetParams(r.Context(), principal.Address, params); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Engine.Params())
}

// SetRate feeds the exchange-rate oracle
func (h *Handler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Asset    string          `json:"asset"`
		Currency string          `json:"currency"`
		Rate     decimal.Decimal `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := h.Oracle.SetRate(req.Asset, req.Currency, req.Rate); err != nil {
		http.Error(w, `{"error": "`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Rate updated"})
}

// MintBalance credits a trading address with funds
func (h *Handler) MintBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Asset   string          `json:"asset"`
		Address string          `json:"address"`
		Amount  decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Asset == "" || req.Address == "" {
		http.Error(w, `{"error": "Asset and address required"}`, http.StatusBadRequest)
		return
	}

	if err := h.Vault.Mint(r.Context(), req.Asset, req.Address, req.Amount); err != nil {
		http.Error(w, `{"error": "`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	balance, err := h.Vault.Balance(r.Context(), req.Asset, req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"asset": req.Asset, "address": req.Address, "balance": balance,
	})
}

// GetBalance reports the holdings of an address in one asset
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	address := chi.URLParam(r, "address")

	balance, err := h.Vault.Balance(r.Context(), asset, address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"asset": asset, "address": address, "balance": balance,
	})
}

// GetReputation returns the reputation entry for an address
func (h *Handler) GetReputation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.GetReputation(chi.URLParam(r, "address")))
}

func (h *Handler) reputationOp(w http.ResponseWriter, r *http.Request, address string, op func(ctx context.Context, principal, address string) error) {
	principal, _ := principalFrom(r)
	if err := op(r.Context(), principal.Address, address); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Engine.GetReputation(address))
}

func addressFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		http.Error(w, `{"error": "Address required"}`, http.StatusBadRequest)
		return "", false
	}
	return req.Address, true
}

// AddToVerifyList grants the verified tier
func (h *Handler) AddToVerifyList(w http.ResponseWriter, r *http.Request) {
	address, ok := addressFromBody(w, r)
	if !ok {
		return
	}
	h.reputationOp(w, r, address, h.Engine.AddToVerifyList)
}

// RemoveFromVerifyList revokes the verified tier
func (h *Handler) RemoveFromVerifyList(w http.ResponseWriter, r *http.Request) {
	h.reputationOp(w, r, chi.URLParam(r, "address"), h.Engine.RemoveFromVerifyList)
}

// AddToBlacklist blocks an address from dealing
func (h *Handler) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	address, ok := addressFromBody(w, r)
	if !ok {
		return
	}
	h.reputationOp(w, r, address, h.Engine.AddToBlacklist)
}

// RemoveFromBlacklist lifts the block
func (h *Handler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	h.reputationOp(w, r, chi.URLParam(r, "address"), h.Engine.RemoveFromBlacklist)
}

// OpenOrder posts a standing order
func (h *Handler) OpenOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		AssetCode    string          `json:"asset_code"`
		CurrencyCode string          `json:"currency_code"`
		Price        decimal.Decimal `json:"price"`
		Amount       decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	order, err := h.Engine.OpenOrder(r.Context(), principal.Address, req.AssetCode, req.CurrencyCode, req.Price, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) adjustOrder(w http.ResponseWriter, r *http.Request, adjust func(ctx context.Context, principal string, delta decimal.Decimal) (interface{}, error)) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Delta decimal.Decimal `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	order, err := adjust(r.Context(), principal.Address, req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// IncreaseAmount adds escrow to the caller's order
func (h *Handler) IncreaseAmount(w http.ResponseWriter, r *http.Request) {
	h.adjustOrder(w, r, func(ctx context.Context, principal string, delta decimal.Decimal) (interface{}, error) {
		return h.Engine.IncreaseAmount(ctx, principal, delta)
	})
}

// DecreaseAmount returns escrow from the caller's order
func (h *Handler) DecreaseAmount(w http.ResponseWriter, r *http.Request) {
	h.adjustOrder(w, r, func(ctx context.Context, principal string, delta decimal.Decimal) (interface{}, error) {
		return h.Engine.DecreaseAmount(ctx, principal, delta)
	})
}

// CloseOrder refunds and deletes the caller's order
func (h *Handler) CloseOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if err := h.Engine.CloseOrder(r.Context(), principal.Address); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order closed"})
}

// GetOrder retrieves a maker's live order
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Engine.GetOrder(chi.URLParam(r, "maker"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// MakeDeal fills part of a maker's order
func (h *Handler) MakeDeal(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Maker           string          `json:"maker"`
		Amount          decimal.Decimal `json:"amount"`
		CollateralAsset string          `json:"collateral_asset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	deal, err := h.Engine.MakeDeal(r.Context(), principal.Address, req.Maker, req.Amount, req.CollateralAsset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deal)
}

func dealID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error": "Invalid deal ID"}`, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// CancelDeal backs the taker out of an unconfirmed deal
func (h *Handler) CancelDeal(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}

	deal, err := h.Engine.CancelDeal(r.Context(), principal.Address, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// ConfirmDeal settles a deal in completion
func (h *Handler) ConfirmDeal(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}

	deal, err := h.Engine.ConfirmDeal(r.Context(), principal.Address, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// RedeemCollateral releases the taker's collateral after the freeze
func (h *Handler) RedeemCollateral(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}

	if err := h.Engine.RedeemCollateral(r.Context(), principal.Address, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Collateral redeemed"})
}

// GetDeal retrieves a deal by id
func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := dealID(w, r)
	if !ok {
		return
	}

	deal, err := h.Engine.GetDeal(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// LeftFrozenTime reports the remaining collateral freeze for a deal
func (h *Handler) LeftFrozenTime(w http.ResponseWriter, r *http.Request) {
	id, ok := dealID(w, r)
	if !ok {
		return
	}

	left, err := h.Engine.LeftFrozenTime(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deal_id": id, "left_seconds": int64(left.Seconds())})
}

// ApplyAdjudication files a dispute over an expired deal
func (h *Handler) ApplyAdjudication(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		DealID   int64  `json:"deal_id"`
		Evidence string `json:"evidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	adj, err := h.Engine.ApplyAdjudication(r.Context(), principal.Address, req.DealID, req.Evidence)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, adj)
}

// RespondAdjudication records the defendant's rebuttal
func (h *Handler) RespondAdjudication(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}

	var req struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	adj, err := h.Engine.RespondAdjudication(r.Context(), principal.Address, id, req.Response)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adj)
}

// JudgeAdjudication issues the binding verdict
func (h *Handler) JudgeAdjudication(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}

	var req struct {
		Winner  string `json:"winner"`
		Verdict string `json:"verdict"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	adj, err := h.Engine.JudgeAdjudication(r.Context(), principal.Address, id, req.Winner, req.Verdict)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adj)
}

// GetAdjudication retrieves an adjudication by id
func (h *Handler) GetAdjudication(w http.ResponseWriter, r *http.Request) {
	id, ok := dealID(w, r)
	if !ok {
		return
	}

	adj, err := h.Engine.GetAdjudication(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adj)
}
