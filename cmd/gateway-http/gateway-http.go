package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soiree/soiree/core"
	handler "github.com/soiree/soiree/handler/http"
	"github.com/soiree/soiree/platform/limiter"
	"github.com/soiree/soiree/platform/mailer"
	"github.com/soiree/soiree/platform/metrics"
	"github.com/soiree/soiree/platform/redis"
	"github.com/soiree/soiree/platform/renderer"
	"github.com/soiree/soiree/service/auditlog"
	"github.com/soiree/soiree/service/emaillog"
	"github.com/soiree/soiree/service/event"
	"github.com/soiree/soiree/service/guest"
	"github.com/soiree/soiree/service/invitation"
)

// Logging and telemetry identifiers.
const (
	component        = "gateway-http"
	namespaceService = "service"
	storeService     = "postgres"
)

// Versions.
const (
	versionCurrent = "0.1"
)

// Supported mail transports.
const (
	transportNop  = "nop"
	transportSMTP = "smtp"
)

// Prefixes.
const (
	prefixRateLimiter = "ratelimiter:send:"
)

// Timeouts.
const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 60 * time.Second
)

// Buildtime vars.
var (
	revision = "0000000-dev"
)

func main() {
	var (
		begin = time.Now()

		baseURL          = flag.String("base.url", "http://localhost:8083", "Public origin invite links are built on")
		listenAddr       = flag.String("listen.addr", ":8083", "HTTP bind address for main API")
		namespace        = flag.String("namespace", "soiree", "Storage namespace to operate on")
		postgresURL      = flag.String("postgres.url", "", "Postgres URL to connect to")
		redisAddr        = flag.String("redis.addr", ":6379", "Redis address to connect to")
		rendererEndpoint = flag.String("renderer.endpoint", "", "Screenshot service endpoint for invite cards")
		smtpFrom         = flag.String("smtp.from", "", "Sender address for outbound mail")
		smtpHost         = flag.String("smtp.host", "", "SMTP relay host")
		smtpPass         = flag.String("smtp.pass", "", "SMTP relay password")
		smtpPort         = flag.Int("smtp.port", 587, "SMTP relay port")
		smtpUser         = flag.String("smtp.user", "", "SMTP relay user")
		telemetryAddr    = flag.String("telemetry.addr", ":9000", "HTTP bind address where prometheus telemetry is exposed")
		transport        = flag.String("transport", transportNop, "Mail transport used for dispatch")
	)
	flag.Parse()

	// Setup logging.
	logger := log.With(
		log.NewJSONLogger(os.Stdout),
		"caller", log.Caller(3),
		"component", component,
		"revision", revision,
	)

	hostname, err := os.Hostname()
	if err != nil {
		_ = logger.Log("err", err, "lifecycle", "abort")
		os.Exit(1)
	}

	logger = log.With(logger, "host", hostname)

	// Setup instrumentation.
	go func(addr string) {
		_ = logger.Log(
			"duration", time.Since(begin).Nanoseconds(),
			"lifecycle", "start",
			"listen", addr,
			"sub", "telemetry",
		)

		http.Handle("/metrics", promhttp.Handler())

		err := http.ListenAndServe(addr, nil)
		if err != nil {
			_ = logger.Log("err", err, "lifecycle", "abort", "sub", "telemetry")
			os.Exit(1)
		}
	}(*telemetryAddr)

	serviceErrCount, serviceOpCount, serviceOpLatency := metrics.KeyMetrics(
		namespaceService,
		metrics.FieldComponent,
		metrics.FieldMethod,
		metrics.FieldNamespace,
		metrics.FieldService,
		metrics.FieldStore,
	)

	// Setup clients.
	var (
		redisPool   = redis.Pool(*redisAddr, "")
		rateLimiter = limiter.Redis(redisPool, prefixRateLimiter)
	)

	pgClient, err := sqlx.Connect(storeService, *postgresURL)
	if err != nil {
		_ = logger.Log("err", err, "lifecycle", "abort")
		os.Exit(1)
	}

	// Setup mail transport.
	var mail mailer.Service

	switch *transport {
	case transportNop:
		mail = mailer.NopService()
	case transportSMTP:
		mail = mailer.SMTPService(
			*smtpHost,
			*smtpPort,
			*smtpUser,
			*smtpPass,
			*smtpFrom,
		)
	default:
		_ = logger.Log(
			"err", fmt.Sprintf("transport '%s' not supported", *transport),
			"lifecycle", "abort",
		)
		os.Exit(1)
	}

	// Setup card renderer.
	var cards renderer.Service

	if *rendererEndpoint != "" {
		cards = renderer.HTTPService(*rendererEndpoint, &http.Client{
			Timeout: 10 * time.Second,
		})
	}

	// Setup services.
	var audits auditlog.Service
	audits = auditlog.PostgresService(pgClient)
	audits = auditlog.InstrumentServiceMiddleware(
		component,
		storeService,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(audits)
	audits = auditlog.LogServiceMiddleware(logger, storeService)(audits)

	var logs emaillog.Service
	logs = emaillog.PostgresService(pgClient)
	logs = emaillog.InstrumentServiceMiddleware(
		component,
		storeService,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(logs)
	logs = emaillog.LogServiceMiddleware(logger, storeService)(logs)

	var events event.Service
	events = event.PostgresService(pgClient)
	events = event.InstrumentServiceMiddleware(
		component,
		storeService,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(events)
	events = event.LogServiceMiddleware(logger, storeService)(events)

	var guests guest.Service
	guests = guest.PostgresService(pgClient)
	guests = guest.InstrumentServiceMiddleware(
		component,
		storeService,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(guests)
	guests = guest.LogServiceMiddleware(logger, storeService)(guests)

	var invitations invitation.Service
	invitations = invitation.PostgresService(pgClient)
	invitations = invitation.InstrumentServiceMiddleware(
		component,
		storeService,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(invitations)
	invitations = invitation.LogServiceMiddleware(logger, storeService)(invitations)

	// Setup core.
	deliveryConfig := core.DeliveryConfig{
		BaseURL:  *baseURL,
		Provider: *transport,
	}

	var (
		admit       = core.Admit(rateLimiter)
		emailLogs   = core.EmailLogList(events, logs)
		inviteOpen  = core.InviteOpen(invitations)
		inviteRetry = core.InviteRetry(
			events,
			guests,
			invitations,
			logs,
			mail,
			cards,
			deliveryConfig,
		)
		inviteSend = core.InviteSend(
			events,
			guests,
			invitations,
			logs,
			mail,
			cards,
			deliveryConfig,
		)
		respond = core.InviteRespond(audits, guests, invitations)
	)

	// Setup middlewares.
	var (
		withGuest = handler.Chain(
			handler.CtxPrepare(versionCurrent),
			handler.Log(logger),
			handler.Instrument(component),
			handler.SecureHeaders(),
			handler.DebugHeaders(revision, hostname),
			handler.CORS(),
			handler.Gzip(),
			handler.CtxNamespace(*namespace),
		)
		withOperator = handler.Chain(
			withGuest,
			handler.HasUserAgent(),
			handler.ValidateContent(),
			handler.CtxOrigin(),
		)
	)

	// Setup Router.
	router := mux.NewRouter().StrictSlash(true)

	router.Methods("GET").Path(`/health-45016490610398192`).Name("healthcheck").HandlerFunc(
		handler.Wrap(
			handler.CtxPrepare(versionCurrent),
			handler.Health(pgClient, redisPool),
		),
	)

	current := router.PathPrefix(fmt.Sprintf("/%s", versionCurrent)).Subrouter()

	// Operator routes.
	current.Methods("POST").Path(`/events/{eventID:[0-9]+}/invites`).Name("inviteSend").HandlerFunc(
		handler.Wrap(
			withOperator,
			handler.InviteSend(inviteSend, admit),
		),
	)
	current.Methods("POST").Path(`/events/{eventID:[0-9]+}/invites/retry`).Name("inviteRetry").HandlerFunc(
		handler.Wrap(
			withOperator,
			handler.InviteRetry(inviteRetry),
		),
	)
	current.Methods("GET").Path(`/events/{eventID:[0-9]+}/email-logs`).Name("emailLogList").HandlerFunc(
		handler.Wrap(
			withOperator,
			handler.EmailLogList(emailLogs),
		),
	)

	// Guest routes.
	current.Methods("GET").Path(`/invites/{token}/open.gif`).Name("inviteOpen").HandlerFunc(
		handler.Wrap(
			withGuest,
			handler.InviteOpen(inviteOpen),
		),
	)
	current.Methods("GET", "POST").Path(`/invites/{token}/confirm`).Name("inviteConfirm").HandlerFunc(
		handler.Wrap(
			withGuest,
			handler.InviteAnswer(respond, *baseURL, invitation.StatusConfirmed),
		),
	)
	current.Methods("GET", "POST").Path(`/invites/{token}/decline`).Name("inviteDecline").HandlerFunc(
		handler.Wrap(
			withGuest,
			handler.InviteAnswer(respond, *baseURL, invitation.StatusDeclined),
		),
	)
	current.Methods("POST").Path(`/invites/{token}/rsvp`).Name("inviteRSVP").HandlerFunc(
		handler.Wrap(
			withGuest,
			handler.InviteRSVP(respond),
		),
	)

	// Setup server.
	server := &http.Server{
		Addr:         *listenAddr,
		Handler:      router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	_ = logger.Log(
		"duration", time.Since(begin).Nanoseconds(),
		"lifecycle", "start",
		"listen", *listenAddr,
		"sub", "api",
	)

	err = server.ListenAndServe()
	if err != nil {
		_ = logger.Log("err", err, "lifecycle", "abort", "sub", "api")
		os.Exit(1)
	}
}
