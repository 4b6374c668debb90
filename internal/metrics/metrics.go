package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tutor_booking"

// Metrics набор prometheus-метрик движка бронирования.
// Все методы безопасны для nil-получателя.
type Metrics struct {
	claims           *prometheus.CounterVec
	releases         *prometheus.CounterVec
	generatedSlots   *prometheus.CounterVec
	conversations    *prometheus.CounterVec
	messages         prometheus.Counter
	fanoutDeliveries *prometheus.CounterVec
	slots            *prometheus.GaugeVec
	subscribers      prometheus.Gauge
}

// New создаёт и регистрирует метрики в reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_claims_total",
			Help:      "Slot claim attempts by outcome.",
		}, []string{"outcome"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_releases_total",
			Help:      "Slot release attempts by outcome.",
		}, []string{"outcome"}),
		generatedSlots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generated_slots_total",
			Help:      "Slots processed by schedule generation, by result.",
		}, []string{"result"}),
		conversations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_opened_total",
			Help:      "Conversation resolutions, split by whether a record was created.",
		}, []string{"created"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages persisted.",
		}),
		fanoutDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_deliveries_total",
			Help:      "Fan-out deliveries to live subscribers by result.",
		}, []string{"result"}),
		slots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots",
			Help:      "Current slots by state.",
		}, []string{"state"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Live conversation subscribers in this process.",
		}),
	}

	reg.MustRegister(
		m.claims,
		m.releases,
		m.generatedSlots,
		m.conversations,
		m.messages,
		m.fanoutDeliveries,
		m.slots,
		m.subscribers,
	)

	return m
}

func (m *Metrics) ObserveClaim(outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRelease(outcome string) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(outcome).Inc()
}

// ObserveGeneration учитывает созданные и пропущенные слоты
func (m *Metrics) ObserveGeneration(created, skipped int) {
	if m == nil {
		return
	}
	m.generatedSlots.WithLabelValues("created").Add(float64(created))
	m.generatedSlots.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) ObserveConversation(created bool) {
	if m == nil {
		return
	}
	label := "false"
	if created {
		label = "true"
	}
	m.conversations.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveMessage() {
	if m == nil {
		return
	}
	m.messages.Inc()
}

func (m *Metrics) ObserveDelivery(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.fanoutDeliveries.WithLabelValues("delivered").Inc()
		return
	}
	m.fanoutDeliveries.WithLabelValues("dropped").Inc()
}

// SetSlotCounts выставляет текущие значения счётчиков слотов
func (m *Metrics) SetSlotCounts(open, booked int64) {
	if m == nil {
		return
	}
	m.slots.WithLabelValues("open").Set(float64(open))
	m.slots.WithLabelValues("booked").Set(float64(booked))
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}
