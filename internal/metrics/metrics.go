package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatrelay/go-chat-relay/internal/logging"
)

// Prometheus counters
var (
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_received_total",
		Help: "Total broadcast messages received from clients, by payload kind.",
	}, []string{"kind"})
	MessagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_delivered_total",
		Help: "Total messages queued for delivery to recipients.",
	})
	Broadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcasts_total",
		Help: "Total broadcast fan-outs performed by the dispatcher.",
	})
	HubDroppedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_hub_dropped_messages_total",
		Help: "Total messages dropped due to a full per-client outbound queue.",
	})
	HubRejectedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_hub_rejected_clients_total",
		Help: "Total connection attempts rejected (e.g., max-clients).",
	})
	HubActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_hub_active_clients",
		Help: "Current number of authenticated connected clients.",
	})
	HubBroadcastFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_hub_broadcast_fanout",
		Help: "Number of recipients targeted in the most recent broadcast.",
	})
	HubQueueDepthMax = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_hub_queue_depth_max",
		Help: "Observed max queued messages among clients in the last sample.",
	})
	HubQueueDepthAvg = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_hub_queue_depth_avg",
		Help: "Approximate average queued messages per client in the last sample.",
	})
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_auth_failures_total",
		Help: "Authentication handshake failures by reason.",
	}, []string{"reason"})
	RecordFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_record_failures_total",
		Help: "Broadcast audit records that failed to persist.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrTCPRead  = "tcp_read"
	ErrTCPWrite = "tcp_write"
	ErrAuth     = "auth"
	ErrStore    = "store"
)

// Auth failure reason labels.
const (
	ReasonWrongUser     = "wrong_user"
	ReasonWrongPassword = "wrong_password"
	ReasonUsernameTaken = "username_taken"
	ReasonNotAuth       = "not_authenticated"
	ReasonStore         = "store_error"
	ReasonTransport     = "transport"
)

// StartHTTP serves Prometheus metrics at /metrics plus a /ready probe on the
// given address.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// SetReadinessFunc installs the readiness probe callback.
func SetReadinessFunc(fn func() bool) {
	readinessMu.Lock()
	readinessFn = fn
	readinessMu.Unlock()
}

// IsReady reports readiness according to the installed callback.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	return fn != nil && fn()
}

// InitBuildInfo publishes build metadata.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
}

// Wrapper helpers to keep call sites simple.

func IncReceived(kind string) { MessagesReceived.WithLabelValues(kind).Inc() }

func AddDelivered(n int) { MessagesDelivered.Add(float64(n)) }

func IncBroadcast() { Broadcasts.Inc() }

func IncHubDrop() { HubDroppedMessages.Inc() }

func IncHubReject() { HubRejectedClients.Inc() }

func SetHubClients(n int) { HubActiveClients.Set(float64(n)) }

func SetBroadcastFanout(n int) { HubBroadcastFanout.Set(float64(n)) }

func SetQueueDepth(max, avg int) {
	HubQueueDepthMax.Set(float64(max))
	HubQueueDepthAvg.Set(float64(avg))
}

func IncAuthFailure(reason string) { AuthFailures.WithLabelValues(reason).Inc() }

func IncRecordFailure() { RecordFailures.Inc() }

func IncError(where string) { Errors.WithLabelValues(where).Inc() }
