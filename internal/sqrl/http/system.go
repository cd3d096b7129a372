package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
	"github.com/aussiebroadwan/sqrl/pkg/httpx"
	"github.com/aussiebroadwan/sqrl/pkg/jwtx"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
)

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe endpoint returning basic service health status, uptime, and version information
//	@Description	This endpoint always returns 200 OK if the service is running
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	sqrlsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, sqrlsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint checking the identity store and the ticket signing keys
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	sqrlsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	sqrlsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeySet,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"signer":   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		// Check database connectivity
		if err := st.Ping(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if !keys.IsReady() {
			checks["signer"] = "error: no keys loaded"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, sqrlsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify session tickets.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	sqrlsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks := keys.PublicJWKS()
		resp := sqrlsdk.JWKSResponse{Keys: make([]sqrlsdk.JWK, 0, len(jwks.Keys))}
		for _, k := range jwks.Keys {
			resp.Keys = append(resp.Keys, sqrlsdk.JWK(k))
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

// DiagnosticsHandler godoc
//
//	@Summary		Nut registry statistics
//	@Description	Only registered when diagnostics are enabled.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	sqrlsdk.DiagnosticsResponse	"live_nuts, tombstones, awaiting_answer"
//	@Router			/sqrl/diag [get].
func DiagnosticsHandler(nuts *service.NutRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := nuts.Stats()
		httpx.WriteJSON(w, http.StatusOK, sqrlsdk.DiagnosticsResponse{
			LiveNuts:       st.Live,
			Tombstones:     st.Tombstones,
			AwaitingAnswer: st.AwaitingAnswer,
		})
	}
}
