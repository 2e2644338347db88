package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/branchpay/checkout-backend/api/responses"
	"github.com/branchpay/checkout-backend/pkg/config"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
)

const (
	envHeader    = "X-BranchPay-Env"
	readyTimeout = 2 * time.Second
)

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]Pinger{"database": db, "redis": cache}
		failed := map[string]string{}
		for name, p := range checks {
			if p == nil {
				failed[name] = "not configured"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "failed", failed), "health.not_ready")
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnavailable, "dependencies unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
