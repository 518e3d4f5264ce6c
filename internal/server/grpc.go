package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"ScySettle/internal/ingestion"
	"ScySettle/internal/instruction"
	"ScySettle/internal/observability"
	"ScySettle/internal/persistence"
	"ScySettle/internal/projection"
	"ScySettle/internal/query"
)

// Server hosts the gRPC endpoint and the HTTP/JSON API.
// gRPC carries health checks and reflection; the query and admin surface is
// served as HTTP/JSON on a gRPC-Gateway mux so dashboards and curl work
// without generated clients.
type Server struct {
	grpcServer    *grpc.Server
	httpServer    *http.Server
	grpcAddr      string
	httpAddr      string
	deps          *ServerDeps
	healthChecker *observability.HealthChecker
}

// ServerDeps holds the dependencies the API handlers need.
type ServerDeps struct {
	DB              *sql.DB
	QueryService    *query.QueryService
	Inject          *ingestion.InjectService
	SnapshotMgr     *persistence.SnapshotManager
	RecentPurchases *projection.PurchaseHistory
	StartTime       time.Time
	HealthChecker   *observability.HealthChecker
	Metrics         *observability.Metrics
}

// NewServer creates a server with health and reflection registered on gRPC.
func NewServer(grpcAddr, httpAddr string, deps *ServerDeps) *Server {
	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl / grpcui
	reflection.Register(grpcServer)

	return &Server{
		grpcServer:    grpcServer,
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		deps:          deps,
		healthChecker: deps.HealthChecker,
	}
}

// StartGRPC starts the gRPC server (blocking).
func (s *Server) StartGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: gRPC server shutting down...")
		s.grpcServer.GracefulStop()
	}()

	log.Printf("INFO: gRPC server listening on %s", s.grpcAddr)
	return s.grpcServer.Serve(lis)
}

// StartHTTP starts the HTTP/JSON API server (blocking).
func (s *Server) StartHTTP(ctx context.Context) error {
	mux := runtime.NewServeMux()

	routes := []struct {
		method  string
		path    string
		handler runtime.HandlerFunc
	}{
		{"GET", "/v1/vaults", s.handleVaultBalances},
		{"GET", "/v1/wallets/{owner}/{asset}", s.handleWalletBalance},
		{"GET", "/v1/purchases", s.handlePurchases},
		{"GET", "/v1/purchases/recent", s.handleRecentPurchases},
		{"GET", "/v1/sale/stats", s.handleSaleStats},
		{"GET", "/v1/journal", s.handleJournal},
		{"GET", "/v1/admin/integrity", s.handleIntegrity},
		{"GET", "/v1/admin/log", s.handleLogInfo},
		{"POST", "/v1/admin/projections/rebuild", s.handleRebuildProjections},
		{"POST", "/v1/inject/wallet_credit", s.handleInjectWalletCredit},
		{"POST", "/v1/inject/withdraw", s.handleInjectWithdraw},
		{"POST", "/v1/inject/sample", s.handleInjectSample},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, r.handler); err != nil {
			return fmt.Errorf("register %s %s: %w", r.method, r.path, err)
		}
	}

	httpMux := http.NewServeMux()
	if s.healthChecker != nil {
		httpMux.HandleFunc("/healthz", s.healthChecker.LivenessHandler)
		httpMux.HandleFunc("/readyz", s.healthChecker.ReadinessHandler)
	}
	httpMux.Handle("/metrics", promhttp.Handler())
	httpMux.Handle("/", mux)

	s.httpServer = &http.Server{
		Addr:    s.httpAddr,
		Handler: httpMux,
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: HTTP server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("INFO: HTTP API listening on %s", s.httpAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ============================================================================
// Query handlers
// ============================================================================

func (s *Server) handleVaultBalances(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	s.serve(w, r, "vaults", func(ctx context.Context) (interface{}, error) {
		return s.deps.QueryService.GetVaultBalances(ctx)
	})
}

func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	owner := pathParams["owner"]
	asset := pathParams["asset"]
	if owner == "" || asset == "" {
		writeError(w, http.StatusBadRequest, "owner and asset are required")
		return
	}

	s.serve(w, r, "wallet_balance", func(ctx context.Context) (interface{}, error) {
		return s.deps.QueryService.GetWalletBalance(ctx, owner, asset)
	})
}

func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var buyer *string
	if b := r.URL.Query().Get("buyer"); b != "" {
		buyer = &b
	}
	limit := parseLimit(r.URL.Query().Get("page_size"), 50, 500)
	afterSeq := parseCursor(r.URL.Query().Get("from_sequence"))

	s.serve(w, r, "purchases", func(ctx context.Context) (interface{}, error) {
		return s.deps.QueryService.GetPurchases(ctx, buyer, limit, afterSeq)
	})
}

// handleRecentPurchases serves from the projection worker's in-memory window,
// skipping Postgres entirely. Useful for dashboards polling at high frequency.
func (s *Server) handleRecentPurchases(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if s.deps.RecentPurchases == nil {
		writeError(w, http.StatusServiceUnavailable, "purchase history not available")
		return
	}
	limit := parseLimit(r.URL.Query().Get("page_size"), 50, 500)

	s.serve(w, r, "recent_purchases", func(ctx context.Context) (interface{}, error) {
		if buyer := r.URL.Query().Get("buyer"); buyer != "" {
			return s.deps.RecentPurchases.QueryByBuyer(buyer, limit), nil
		}
		return s.deps.RecentPurchases.Recent(limit), nil
	})
}

func (s *Server) handleSaleStats(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	s.serve(w, r, "sale_stats", func(ctx context.Context) (interface{}, error) {
		return s.deps.QueryService.GetSaleStats(ctx)
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	account := r.URL.Query().Get("account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "account query parameter is required")
		return
	}
	limit := parseLimit(r.URL.Query().Get("page_size"), 100, 500)
	afterSeq := parseCursor(r.URL.Query().Get("from_sequence"))

	s.serve(w, r, "journal", func(ctx context.Context) (interface{}, error) {
		return s.deps.QueryService.GetJournalHistory(ctx, account, limit, afterSeq)
	})
}

// ============================================================================
// Admin handlers
// ============================================================================

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	s.serve(w, r, "integrity", func(ctx context.Context) (interface{}, error) {
		return s.deps.QueryService.VerifyIntegrity(ctx)
	})
}

func (s *Server) handleLogInfo(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	s.serve(w, r, "log_info", func(ctx context.Context) (interface{}, error) {
		latest, err := s.deps.SnapshotMgr.GetLatestSequence(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"last_sequence": latest,
			"uptime_sec":    int64(time.Since(s.deps.StartTime).Seconds()),
		}, nil
	})
}

func (s *Server) handleRebuildProjections(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	s.serve(w, r, "rebuild_projections", func(ctx context.Context) (interface{}, error) {
		if err := projection.RebuildProjections(ctx, s.deps.DB); err != nil {
			return nil, err
		}
		return map[string]bool{"rebuilt": true}, nil
	})
}

// ============================================================================
// Inject handlers — admin/manual instruction submission
// ============================================================================

type injectWalletCreditRequest struct {
	Owner  string `json:"owner"`
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
	Slot   uint64 `json:"slot"`
}

func (s *Server) handleInjectWalletCredit(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req injectWalletCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	owner, err := solana.PublicKeyFromBase58(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner: "+err.Error())
		return
	}

	s.serve(w, r, "inject_wallet_credit", func(ctx context.Context) (interface{}, error) {
		if err := s.deps.Inject.InjectWalletCredit(ctx, owner, req.Asset, req.Amount, req.Slot); err != nil {
			return nil, err
		}
		return map[string]bool{"accepted": true}, nil
	})
}

type injectWithdrawRequest struct {
	Admin string `json:"admin"`
	Slot  uint64 `json:"slot"`
}

func (s *Server) handleInjectWithdraw(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req injectWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	admin, err := solana.PublicKeyFromBase58(req.Admin)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid admin: "+err.Error())
		return
	}

	s.serve(w, r, "inject_withdraw", func(ctx context.Context) (interface{}, error) {
		if err := s.deps.Inject.InjectWithdraw(ctx, admin, req.Slot); err != nil {
			return nil, err
		}
		return map[string]bool{"accepted": true}, nil
	})
}

type injectSampleRequest struct {
	Caller       string `json:"caller"`
	Slot         uint64 `json:"slot"`
	Observations []struct {
		Asset   string `json:"asset"`
		Account string `json:"account"`
		Data    []byte `json:"data"`
	} `json:"observations"`
}

func (s *Server) handleInjectSample(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req injectSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, err := solana.PublicKeyFromBase58(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller: "+err.Error())
		return
	}

	obs := make([]instruction.OracleObservation, 0, len(req.Observations))
	for _, o := range req.Observations {
		acct, err := solana.PublicKeyFromBase58(o.Account)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid observation account: "+err.Error())
			return
		}
		obs = append(obs, instruction.OracleObservation{
			Asset:   o.Asset,
			Account: acct,
			Data:    o.Data,
		})
	}

	s.serve(w, r, "inject_sample", func(ctx context.Context) (interface{}, error) {
		if err := s.deps.Inject.InjectSamplePrices(ctx, caller, obs, req.Slot); err != nil {
			return nil, err
		}
		return map[string]bool{"accepted": true}, nil
	})
}

// ============================================================================
// Helpers
// ============================================================================

// serve runs a handler, records query metrics, and writes the JSON response.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, endpoint string, fn func(ctx context.Context) (interface{}, error)) {
	start := time.Now()

	result, err := fn(r.Context())

	if s.deps.Metrics != nil {
		s.deps.Metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		if s.deps.Metrics != nil {
			s.deps.Metrics.QueryRequests.WithLabelValues(endpoint, "error").Inc()
			s.deps.Metrics.QueryErrors.WithLabelValues(endpoint, "internal").Inc()
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.QueryRequests.WithLabelValues(endpoint, "ok").Inc()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("WARN: encode response for %s: %v", endpoint, err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > max {
		return def
	}
	return n
}

func parseCursor(raw string) *int64 {
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
