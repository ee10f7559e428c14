package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nstc/opsdesk-backend/api/controllers"
	inventorycontrollers "github.com/nstc/opsdesk-backend/api/controllers/inventory"
	requestcontrollers "github.com/nstc/opsdesk-backend/api/controllers/requests"
	"github.com/nstc/opsdesk-backend/api/middleware"
	"github.com/nstc/opsdesk-backend/internal/attendance"
	"github.com/nstc/opsdesk-backend/internal/dashboard"
	"github.com/nstc/opsdesk-backend/internal/inventory"
	"github.com/nstc/opsdesk-backend/internal/localinventory"
	"github.com/nstc/opsdesk-backend/internal/requests"
	"github.com/nstc/opsdesk-backend/internal/stocklog"
	"github.com/nstc/opsdesk-backend/internal/transfers"
	"github.com/nstc/opsdesk-backend/pkg/config"
	"github.com/nstc/opsdesk-backend/pkg/db"
	"github.com/nstc/opsdesk-backend/pkg/logger"
	"github.com/nstc/opsdesk-backend/pkg/redis"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Inventory      inventory.Service
	Transfers      transfers.Service
	StockLogs      stocklog.Service
	Requests       requests.Service
	LocalInventory localinventory.Service
	Attendance     attendance.Service
	Dashboard      dashboard.Service
}

// Infra carries the shared clients. Redis and Gatherer may be nil; without
// Redis the idempotency guard is disabled.
type Infra struct {
	DB       db.Pinger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	now := infra.Now
	if now == nil {
		now = time.Now
	}

	// A nil *redis.Client must not reach the interface parameters as a
	// non-nil value.
	var (
		redisPinger redis.Pinger
		idemStore   redis.IdempotencyStore
	)
	if infra.Redis != nil {
		redisPinger = infra.Redis
		idemStore = infra.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.DB, redisPinger))
	})
	if infra.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", inventorycontrollers.List(svc.Inventory, logg))
			r.Post("/", inventorycontrollers.Create(svc.Inventory, logg))
			r.Post("/adjust", inventorycontrollers.Adjust(svc.Inventory, logg))
			r.Post("/transfer", inventorycontrollers.Transfer(svc.Transfers, logg))
			r.Post("/lend", inventorycontrollers.Lend(svc.Transfers, logg))
			r.Post("/return", inventorycontrollers.Return(svc.Transfers, logg))
			r.Get("/logs", inventorycontrollers.Logs(svc.StockLogs, logg))
			r.Get("/{itemId}", inventorycontrollers.Get(svc.Inventory, logg))
			r.Patch("/{itemId}", inventorycontrollers.Update(svc.Inventory, logg))
			r.Delete("/{itemId}", inventorycontrollers.Delete(svc.Inventory, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", requestcontrollers.List(svc.Requests, logg))
			r.Post("/", requestcontrollers.Create(svc.Requests, logg))
			r.Post("/bulk", requestcontrollers.CreateBulk(svc.Requests, logg))
			r.Post("/approve", requestcontrollers.ApproveBulk(svc.Requests, logg))
			r.Post("/reject", requestcontrollers.RejectBulk(svc.Requests, logg))
			r.Post("/issue", requestcontrollers.IssueBulk(svc.Requests, logg))
			r.Post("/receive", requestcontrollers.ReceiveBulk(svc.Requests, logg))

			r.Route("/{reqId}", func(r chi.Router) {
				r.Get("/", requestcontrollers.Get(svc.Requests, logg))
				r.Patch("/", requestcontrollers.Update(svc.Requests, logg))
				r.Delete("/", requestcontrollers.Delete(svc.Requests, logg))
				r.Post("/approve", requestcontrollers.Approve(svc.Requests, logg))
				r.Post("/reject", requestcontrollers.Reject(svc.Requests, logg))
				r.Post("/issue", requestcontrollers.Issue(svc.Requests, logg))
				r.Post("/receive", requestcontrollers.Receive(svc.Requests, logg))
			})
		})

		r.Route("/local-inventory", func(r chi.Router) {
			r.Get("/", controllers.LocalInventoryList(svc.LocalInventory, logg))
			r.Get("/lookup", controllers.LocalInventoryLookup(svc.LocalInventory, logg))
			r.Post("/stocktake", controllers.LocalInventoryStocktake(svc.LocalInventory, logg))
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", controllers.AttendanceList(svc.Attendance, logg, now))
			r.Post("/", controllers.AttendanceRecord(svc.Attendance, logg, now))
		})

		r.Get("/dashboard", controllers.DashboardSummary(svc.Dashboard, logg))
	})

	return r
}
