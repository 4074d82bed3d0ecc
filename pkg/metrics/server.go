package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /metrics and /healthz over HTTP. Adapted from the teacher's
// pkg/rpc status server: same bare net/http ServeMux construction, but
// standing in for balance/tx/block query endpoints — which are out of scope
// here (non-goal: no query API over historical blocks) — with the two
// endpoints an indexer's operator actually needs.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a metrics/health server listening on addr (e.g. ":9102"),
// serving whatever is registered against gatherer. Callers must pass the
// same registry they handed to NewCollector — there is no implicit global
// registry involved, so the two can never drift apart.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", handleHealthz)

	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ListenAndServe blocks serving HTTP until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
