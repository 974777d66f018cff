package httpapi

import (
	"log/slog"

	"github.com/outstationguru/og-api/internal/app/rides"
	"github.com/outstationguru/og-api/internal/app/users"
	clockport "github.com/outstationguru/og-api/internal/ports/out/clock"
	"github.com/outstationguru/og-api/internal/ports/out/idempotency"
)

// ServiceInfo is reported by the health endpoint.
type ServiceInfo struct {
	Service   string
	ProjectID string
}

// Server holds the application services behind the HTTP handlers.
type Server struct {
	Users *users.Service
	Rides *rides.Service
	Idem  idempotency.Store

	info   ServiceInfo
	clk    clockport.Clock
	logger *slog.Logger
}

func NewServer(usersSvc *users.Service, ridesSvc *rides.Service, idem idempotency.Store, clk clockport.Clock, info ServiceInfo, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if info.Service == "" {
		info.Service = "api"
	}
	return &Server{
		Users:  usersSvc,
		Rides:  ridesSvc,
		Idem:   idem,
		info:   info,
		clk:    clk,
		logger: logger,
	}
}
