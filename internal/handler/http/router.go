package http

import (
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, payrollHandler PayrollHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// SSE stream; EventSource cannot set headers so the token may come as ?jwt=
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireCompany)
			r.Use(middleware.RequireManager)
			r.Get("/payroll/events", payrollHandler.StreamRunEvents)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireCompany)

			r.Route("/payroll", func(r chi.Router) {
				r.Use(middleware.RequireManager)

				r.Get("/tax-policy", payrollHandler.GetTaxPolicy)
				r.Get("/calendar/{periodKey}", payrollHandler.GetStandardHours)

				r.Route("/periods/{periodKey}", func(r chi.Router) {
					r.Get("/records", payrollHandler.ListPayrollRecords)
					r.Get("/summary", payrollHandler.GetPeriodSummary)
					r.Get("/export", payrollHandler.ExportPeriodRegister)
					r.Get("/employees/{employeeId}", payrollHandler.FindPayrollRecord)
					r.Get("/employees/{employeeId}/payslip", payrollHandler.DownloadPayslip)
				})

				r.Get("/records/{id}", payrollHandler.GetPayrollRecord)

				// Owner only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireOwner)
					r.Put("/tax-policy", payrollHandler.UpdateTaxPolicy)
					r.Post("/runs", payrollHandler.RunPayroll)
					r.Post("/records/status", payrollHandler.UpdateRecordStatus)
					r.Delete("/records/{id}", payrollHandler.DeletePayrollRecord)
				})
			})
		})
	})
	return r
}
