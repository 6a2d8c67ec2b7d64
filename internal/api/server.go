package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ArenaVault/internal/events"
	"ArenaVault/internal/ledger"
	"ArenaVault/internal/logger"
)

// maxBodySize is the maximum request body size in bytes.
const maxBodySize = 1 << 20 // 1 MB

// Ledger is the subset of ledger operations the API exposes.
type Ledger interface {
	Enter(principal ledger.Principal, asset ledger.AssetID, amount uint64) (uint64, error)
	UpdateState(caller, principal ledger.Principal, newStatus ledger.Status, rewardAssets []ledger.AssetID, rewardAmounts []uint64) error
	Claim(principal ledger.Principal) error
	SettleAttested(principal ledger.Principal, assets []ledger.AssetID, amounts []uint64, nonce uint64, signature []byte) error
	TransferAdministrator(caller, newID ledger.Principal) error
	SetAttestor(caller, newID ledger.Principal, pub []byte) error
	SetExitFloor(caller ledger.Principal, floor uint64) error
	Session(principal ledger.Principal) (*ledger.Session, error)
	Rewards(principal ledger.Principal) ([]ledger.AssetID, []uint64, error)
	CustodyBalance(asset ledger.AssetID) (uint64, error)
}

// Server is the HTTP API server.
type Server struct {
	addr    string
	ledger  Ledger
	journal *events.Journal // journal feeds /events; nil disables it
	server  *http.Server
}

// New creates a new HTTP API server.
func New(addr string, l Ledger, journal *events.Journal) *Server {
	return &Server{
		addr:    addr,
		ledger:  l,
		journal: journal,
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Handler builds the request mux. Exposed so tests and embedders can
// mount the API without binding a listener.
func (s *Server) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /enter", s.handleEnter)
	mux.HandleFunc("POST /claim", s.handleClaim)
	mux.HandleFunc("POST /update", s.handleUpdate)
	mux.HandleFunc("POST /attested", s.handleAttested)
	mux.HandleFunc("POST /admin/attestor", s.handleSetAttestor)
	mux.HandleFunc("POST /admin/transfer", s.handleTransferAdmin)
	mux.HandleFunc("POST /admin/floor", s.handleSetFloor)
	mux.HandleFunc("GET /session/{principal}", s.handleSession)
	mux.HandleFunc("GET /rewards/{principal}", s.handleRewards)
	mux.HandleFunc("GET /custody/{asset}", s.handleCustody)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleEnter handles POST /enter requests.
func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	principal, asset, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.ledger.Enter(principal, asset, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"session_id": id})
}

// handleClaim handles POST /claim requests.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !decodeBody(w, r, &req) {
		return
	}

	principal, err := parsePrincipal(req.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.Claim(principal); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "claimed"})
}

// handleUpdate handles POST /update requests (attestor-facing).
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	caller, principal, status, assets, amounts, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.UpdateState(caller, principal, status, assets, amounts); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status.String()})
}

// handleAttested handles POST /attested requests: the signed-message
// settlement path.
func (s *Server) handleAttested(w http.ResponseWriter, r *http.Request) {
	var req attestedRequest
	if !decodeBody(w, r, &req) {
		return
	}

	principal, assets, amounts, signature, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.SettleAttested(principal, assets, amounts, req.Nonce, signature); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "exited"})
}

// handleSetAttestor handles POST /admin/attestor requests.
func (s *Server) handleSetAttestor(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	caller, newID, pub, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.SetAttestor(caller, newID, pub); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTransferAdmin handles POST /admin/transfer requests.
func (s *Server) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	caller, newID, _, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.TransferAdministrator(caller, newID); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSetFloor handles POST /admin/floor requests.
func (s *Server) handleSetFloor(w http.ResponseWriter, r *http.Request) {
	var req floorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	caller, err := parsePrincipal(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.SetExitFloor(caller, req.Floor); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSession handles GET /session/{principal} requests.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	principal, err := parsePrincipal(r.PathValue("principal"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.ledger.Session(principal)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Status:        sess.Status.String(),
		SessionID:     sess.ID,
		EntryAsset:    sess.EntryAsset,
		EntryAmount:   sess.EntryAmount,
		OpenedAt:      sess.OpenedAt,
		RewardAssets:  sess.RewardAssets,
		RewardAmounts: sess.RewardAmounts,
	})
}

// handleRewards handles GET /rewards/{principal} requests.
func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	principal, err := parsePrincipal(r.PathValue("principal"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assets, amounts, err := s.ledger.Rewards(principal)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rewardsResponse{
		Assets:  assets,
		Amounts: amounts,
	})
}

// handleCustody handles GET /custody/{asset} requests.
func (s *Server) handleCustody(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAsset(r.PathValue("asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	held, err := s.ledger.CustodyBalance(asset)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"balance": held})
}

// handleEvents handles GET /events?after=N&limit=M requests.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal not available")
		return
	}

	after, _ := strconv.ParseUint(r.URL.Query().Get("after"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.journal.Entries(after, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// decodeBody reads and decodes a JSON request body, writing the error
// response itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	return true
}

// writeLedgerError maps a ledger error code to an HTTP status.
func writeLedgerError(w http.ResponseWriter, err error) {
	var lerr *ledger.Error
	if !errors.As(err, &lerr) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusConflict

	switch lerr.Code {
	case ledger.CodeInvalidAmount, ledger.CodeLengthMismatch:
		status = http.StatusBadRequest
	case ledger.CodeUnauthorized, ledger.CodeBadSignature:
		status = http.StatusForbidden
	case ledger.CodeStorage, ledger.CodeTransferFailed, ledger.CodePriceUnavailable:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": lerr.Error(),
		"code":  string(lerr.Code),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
