package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors. All collectors register
// against the server's own registry so multiple servers can coexist in one
// process (tests spin up several).
type Metrics struct {
	activeSessions      prometheus.Gauge
	sessionsCreated     prometheus.Counter
	sessionsClosed      prometheus.Counter
	commandsReceived    *prometheus.CounterVec
	linesSent           prometheus.Counter
	logins              *prometheus.CounterVec
	registrations       *prometheus.CounterVec
	broadcastDeliveries prometheus.Counter
	directMessages      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "talkline_active_sessions",
			Help: "Number of currently connected sessions.",
		}),
		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "talkline_sessions_created_total",
			Help: "Total number of accepted connections.",
		}),
		sessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "talkline_sessions_closed_total",
			Help: "Total number of closed connections.",
		}),
		commandsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talkline_commands_received_total",
			Help: "Total commands received, by command name.",
		}, []string{"command"}),
		linesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "talkline_lines_sent_total",
			Help: "Total reply and broadcast lines written to clients.",
		}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talkline_logins_total",
			Help: "Total login attempts, by outcome.",
		}, []string{"outcome"}),
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talkline_registrations_total",
			Help: "Total registration attempts, by outcome.",
		}, []string{"outcome"}),
		broadcastDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "talkline_broadcast_deliveries_total",
			Help: "Total presence broadcast lines delivered to peers.",
		}),
		directMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "talkline_direct_messages_total",
			Help: "Total direct messages delivered.",
		}),
	}
}

// RecordActiveSessions sets the active-session gauge.
func (m *Metrics) RecordActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

// RecordSessionCreated counts an accepted connection.
func (m *Metrics) RecordSessionCreated() {
	m.sessionsCreated.Inc()
}

// RecordSessionDisconnected counts a closed connection.
func (m *Metrics) RecordSessionDisconnected() {
	m.sessionsClosed.Inc()
}

// RecordCommandReceived counts one dispatched command.
func (m *Metrics) RecordCommandReceived(command string) {
	m.commandsReceived.WithLabelValues(command).Inc()
}

// RecordLineSent counts one line written to a client.
func (m *Metrics) RecordLineSent() {
	m.linesSent.Inc()
}

// RecordLogin counts a login attempt.
func (m *Metrics) RecordLogin(success bool) {
	m.logins.WithLabelValues(outcomeLabel(success)).Inc()
}

// RecordRegistration counts a registration attempt.
func (m *Metrics) RecordRegistration(success bool) {
	m.registrations.WithLabelValues(outcomeLabel(success)).Inc()
}

// RecordBroadcastDelivery counts one delivered broadcast line.
func (m *Metrics) RecordBroadcastDelivery() {
	m.broadcastDeliveries.Inc()
}

// RecordDirectMessage counts one delivered direct message.
func (m *Metrics) RecordDirectMessage() {
	m.directMessages.Inc()
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
