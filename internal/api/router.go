// Package api HTTP-интерфейс движка: расписание, бронирование слотов, диалоги.
package api

import (
	"net/http"

	"github.com/Freeeeeet/tutor_booking/internal/auth"
	"github.com/Freeeeeet/tutor_booking/internal/fanout"
	"github.com/Freeeeeet/tutor_booking/internal/service"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Deps зависимости HTTP-слоя
type Deps struct {
	UserService         *service.UserService
	ScheduleService     *service.ScheduleService
	BookingService      *service.BookingService
	ConversationService *service.ConversationService
	MessageService      *service.MessageService
	Registry            *fanout.Registry
	Tokens              *auth.Tokens
	Gatherer            prometheus.Gatherer
	Logger              *zap.Logger
}

type Server struct {
	users         *service.UserService
	schedule      *service.ScheduleService
	booking       *service.BookingService
	conversations *service.ConversationService
	messages      *service.MessageService
	registry      *fanout.Registry
	logger        *zap.Logger
}

// NewRouter собирает маршруты и middleware
func NewRouter(deps Deps) http.Handler {
	s := &Server{
		users:         deps.UserService,
		schedule:      deps.ScheduleService,
		booking:       deps.BookingService,
		conversations: deps.ConversationService,
		messages:      deps.MessageService,
		registry:      deps.Registry,
		logger:        deps.Logger,
	}

	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.Health).Methods(http.MethodGet)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// Все /api маршруты требуют Bearer токен
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(deps.Tokens))

	api.HandleFunc("/me", s.Me).Methods(http.MethodGet)
	api.HandleFunc("/me/tutor", s.BecomeTutor).Methods(http.MethodPost)

	api.HandleFunc("/schedule", s.GenerateSchedule).Methods(http.MethodPut)
	api.HandleFunc("/slots", s.ListMySlots).Methods(http.MethodGet)
	api.HandleFunc("/slots/{id:[0-9]+}/claim", s.ClaimSlot).Methods(http.MethodPost)
	api.HandleFunc("/slots/{id:[0-9]+}/release", s.ReleaseSlot).Methods(http.MethodPost)
	api.HandleFunc("/tutors/{id:[0-9]+}/slots", s.ListTutorSlots).Methods(http.MethodGet)

	api.HandleFunc("/conversations", s.OpenConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations", s.ListConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id:[0-9]+}/messages", s.History).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id:[0-9]+}/messages", s.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id:[0-9]+}/events", s.Events).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(deps.Logger)),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CombinedLoggingHandler(zap.NewStdLog(deps.Logger).Writer(), h)

	return otelhttp.NewHandler(h, "http.server")
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
