package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Portfolio routes
	api.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/mark", handler.MarkToMarket).Methods("POST")
	api.HandleFunc("/positions", handler.GetPositions).Methods("GET")
	api.HandleFunc("/positions/{symbol}", handler.GetPosition).Methods("GET")
	api.HandleFunc("/fills", handler.CreateFill).Methods("POST")
	api.HandleFunc("/fills", handler.GetFills).Methods("GET")
	api.HandleFunc("/fills/{id:[0-9]+}", handler.GetFill).Methods("GET")

	// History routes
	api.HandleFunc("/equity-curve", handler.GetEquityCurve).Methods("GET")
	api.HandleFunc("/equity-curve/latest", handler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/round-trips/stats", handler.GetRoundTripStats).Methods("GET")
	api.HandleFunc("/round-trips/{symbol}", handler.GetRoundTrips).Methods("GET")

	// Daily bars used by the bar price source
	api.HandleFunc("/bars", handler.CreateBars).Methods("POST")
	api.HandleFunc("/bars/{symbol}", handler.GetBars).Methods("GET")

	return r
}
