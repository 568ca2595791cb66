package controllers

import (
	"net/http"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-KasiFlavors-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the backing stores answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-KasiFlavors-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				checks["database"] = "down"
				healthy = false
			} else {
				checks["database"] = "up"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				checks["redis"] = "down"
				healthy = false
			} else {
				checks["redis"] = "up"
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency check failed").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
