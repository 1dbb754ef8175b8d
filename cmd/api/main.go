package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/payroll-engine-go/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/payroll-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine-go/internal/messaging"
	"github.com/cmlabs-hris/payroll-engine-go/internal/messaging/kafka"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/workcalendar"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	payrollService "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
)

type stores struct {
	payrollRepo   payroll.PayrollRepository
	taxPolicyRepo payroll.TaxPolicyRepository
	employeeRepo  employee.EmployeeRepository
	timesheetRepo timesheet.TimesheetRepository
	transactor    payroll.Transactor
	companies     cron.CompanyLister
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	defaultPolicy := payroll.TaxPolicy{
		PersonalIncomeTaxRate:           cfg.Tax.PersonalIncomeTaxRate,
		MilitaryTaxRate:                 cfg.Tax.MilitaryTaxRate,
		EmployerPensionContributionRate: cfg.Tax.EmployerPensionContributionRate,
		EmployeePensionContributionRate: cfg.Tax.EmployeePensionContributionRate,
		MinimumWage:                     cfg.Tax.MinimumWage,
		TaxFreeMinimum:                  cfg.Tax.TaxFreeMinimum,
	}
	if err := defaultPolicy.Validate(); err != nil {
		return fmt.Errorf("invalid default tax policy: %w", err)
	}

	eventHub := sse.NewHub()
	brokerPublisher := kafka.NewNoopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		writer := kafka.NewWriter(cfg.Kafka.Brokers)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("Failed to close kafka writer", "error", err)
			}
		}()
		brokerPublisher = kafka.NewRunEventPublisher(writer, cfg.Kafka.Topic)
		logger.Info("Publishing run events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	publisher := messaging.Fanout(eventHub, brokerPublisher)

	calendar := workcalendar.New(workcalendar.WithHoursPerDay(cfg.Payroll.HoursPerDay))
	runner := payrollService.NewPayrollRunner(
		st.payrollRepo,
		st.employeeRepo,
		st.timesheetRepo,
		calendar,
		payrollService.NewPayrollCalculator(),
		cfg.Payroll.Concurrency,
		logger,
	)
	payrollSvc := payrollService.NewPayrollService(
		st.payrollRepo,
		st.taxPolicyRepo,
		st.employeeRepo,
		runner,
		calendar,
		publisher,
		st.transactor,
		defaultPolicy,
		logger,
	)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc, eventHub)
	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	}, JWTService, payrollHandler)

	scheduler := cron.NewScheduler(logger)
	if cfg.Payroll.AutoRunEnabled {
		cron.NewPayrollJobs(payrollSvc, st.companies, logger).RegisterJobs(scheduler, cfg.Payroll.AutoRunInterval)
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server running", "addr", server.Addr, "storage", cfg.App.Storage, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.App.Storage {
	case config.StoragePostgres:
		db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolConfig{
			MaxConns: int32(cfg.Database.MaxConns),
			MinConns: int32(cfg.Database.MinConns),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		taxPolicyRepo := postgresql.NewTaxPolicyRepository(db)
		return &stores{
			payrollRepo:   postgresql.NewPayrollRepository(db),
			taxPolicyRepo: taxPolicyRepo,
			employeeRepo:  postgresql.NewEmployeeRepository(db),
			timesheetRepo: postgresql.NewTimesheetRepository(db),
			transactor:    postgresql.NewTransactor(db),
			companies:     taxPolicyRepo,
			close:         db.Close,
		}, nil

	case config.StorageMemory:
		employeeRepo := memory.NewEmployeeRepository()
		timesheetRepo := memory.NewTimesheetRepository()
		taxPolicyRepo := memory.NewTaxPolicyRepository()

		if cfg.App.FixturesPath != "" {
			data, err := fixtures.LoadFile(cfg.App.FixturesPath)
			if err != nil {
				return nil, err
			}
			if err := data.Seed(ctx, employeeRepo, timesheetRepo, taxPolicyRepo); err != nil {
				return nil, err
			}
			logger.Info("Loaded fixtures", "path", cfg.App.FixturesPath, "employees", len(data.Employees), "timesheet_days", len(data.Days))
		}

		return &stores{
			payrollRepo:   memory.NewPayrollRepository(),
			taxPolicyRepo: taxPolicyRepo,
			employeeRepo:  employeeRepo,
			timesheetRepo: timesheetRepo,
			transactor:    memory.Transactor{},
			companies:     employeeRepo,
			close:         func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage: %s", cfg.App.Storage)
	}
}
