package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xWizop/cypherx-engine/internal/api/handlers"
	"github.com/0xWizop/cypherx-engine/internal/api/middleware"
	"github.com/0xWizop/cypherx-engine/internal/application/ledger"
	"github.com/0xWizop/cypherx-engine/internal/application/orders"
	"github.com/0xWizop/cypherx-engine/internal/application/prediction"
	"github.com/0xWizop/cypherx-engine/internal/ports"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Orders    ports.OrderStore
	Pools     ports.PoolStore
	Oracle    ports.PriceOracle
	OrderJobs *orders.Engine
	PoolJobs  *prediction.Engine
	Ledger    *ledger.Service
}

// SetupRoutes wires every endpoint:
//
//	/api/v1/
//	  ├── /orders
//	  │     ├── POST   /            create order
//	  │     ├── GET    /?wallet=    list wallet's orders
//	  │     ├── GET    /{id}        get order
//	  │     └── DELETE /{id}        cancel (owner only)
//	  ├── /pools
//	  │     ├── POST   /            create pool
//	  │     ├── GET    /{id}        get pool with participants
//	  │     └── POST   /{id}/join   join pool
//	  ├── /jobs
//	  │     ├── POST   /monitor     run one monitor pass
//	  │     ├── POST   /execute     run one execution pass
//	  │     ├── POST   /resolve     run one resolution pass
//	  │     └── POST   /payouts     run one payout pass
//	  └── /wallets/{wallet}
//	        ├── GET /positions
//	        ├── GET /positions/{token}
//	        └── GET /tax-report?year=
//	/metrics   prometheus scrape
//	/healthz   liveness
func SetupRoutes(deps Dependencies) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)

	api := router.PathPrefix("/api/v1").Subrouter()

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	api.HandleFunc("/orders", orderHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/orders", orderHandler.ListByWallet).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", orderHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", orderHandler.Cancel).Methods(http.MethodDelete)

	poolHandler := handlers.NewPoolHandler(deps.Pools, deps.Oracle)
	api.HandleFunc("/pools", poolHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/pools/{id}", poolHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/pools/{id}/join", poolHandler.Join).Methods(http.MethodPost)

	jobHandler := handlers.NewJobHandler(deps.OrderJobs, deps.PoolJobs)
	api.HandleFunc("/jobs/monitor", jobHandler.Monitor).Methods(http.MethodPost)
	api.HandleFunc("/jobs/execute", jobHandler.Execute).Methods(http.MethodPost)
	api.HandleFunc("/jobs/resolve", jobHandler.Resolve).Methods(http.MethodPost)
	api.HandleFunc("/jobs/payouts", jobHandler.Payouts).Methods(http.MethodPost)

	reportHandler := handlers.NewReportHandler(deps.Ledger)
	api.HandleFunc("/wallets/{wallet}/positions", reportHandler.Positions).Methods(http.MethodGet)
	api.HandleFunc("/wallets/{wallet}/positions/{token}", reportHandler.Position).Methods(http.MethodGet)
	api.HandleFunc("/wallets/{wallet}/tax-report", reportHandler.TaxReport).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return router
}
