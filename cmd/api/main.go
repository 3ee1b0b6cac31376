package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/sri-facturacion/docs"
	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/application/usecase"
	infrapdf "github.com/jhoicas/sri-facturacion/internal/infrastructure/pdf"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/postgres"
	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/signer"
	httpRouter "github.com/jhoicas/sri-facturacion/internal/interfaces/http"
	"github.com/jhoicas/sri-facturacion/pkg/config"
	"github.com/jhoicas/sri-facturacion/pkg/logger"
)

// @title                       SRI Facturación API
// @version                     1.0
// @description                 Emisión de facturas electrónicas SRI Ecuador: clave de acceso, XML v1.1.0, firma XAdES-BES y envío a los web services.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
// @description                 Token JWT con el prefijo "Bearer "
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		panic("configuración inválida: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sri_environment", cfg.SRI.Environment).
		Str("sri_send_mode", cfg.SRI.SendMode).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	issuerRepo := postgres.NewIssuerRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	if !cfg.SRI.HasCertificate() {
		log.Warn().Msg("sin certificado de firma configurado: la emisión fallará hasta definir SRI_P12_BASE64 o SRI_P12_PATH")
	}
	certs := infrasri.NewConfigCertificateSource(cfg.SRI.P12Base64, cfg.SRI.P12Path, cfg.SRI.P12Password)

	// Pipeline: clave de acceso → XML factura v1.1.0 → PKCS#12 → XAdES-BES
	pipeline := billing.NewPipeline(
		infrasri.NewXMLBuilderService(),
		infrasri.NewP12Extractor(),
		signer.NewXAdESSigner(),
		cfg.SRI.NumericCode,
	)

	// Cliente SOAP SRI: solo en modo live. En modo dev el orquestador simula la autorización.
	var gateway infrasri.SRIGateway
	if cfg.SRI.SendMode == billing.SendModeLive {
		endpoints, err := infrasri.EndpointsFor(cfg.SRI.Environment)
		if err != nil {
			log.Fatal().Err(err).Msg("endpoints SRI")
		}
		if cfg.SRI.ReceptionURL != "" {
			endpoints.Reception = cfg.SRI.ReceptionURL
		}
		if cfg.SRI.AuthorizationURL != "" {
			endpoints.Authorization = cfg.SRI.AuthorizationURL
		}
		gateway = infrasri.NewSOAPSRIClient(endpoints, cfg.SRI.HTTPTimeout)
	}

	sriOrchestrator := billing.NewSRIOrchestrator(invoiceRepo, gateway, billing.SRIConfig{
		SendMode:              cfg.SRI.SendMode,
		Timeout:               cfg.SRI.SendBudget(),
		AuthorizationAttempts: cfg.SRI.AuthAttempts,
		AuthorizationInterval: cfg.SRI.AuthInterval,
	}, log)

	var sender billing.AsyncSender
	if cfg.SRI.AutoSend {
		sender = sriOrchestrator
	}

	issuerUC := usecase.NewIssuerUseCase(issuerRepo)
	accessKeyUC := usecase.NewAccessKeyUseCase()
	invoiceUC := billing.NewInvoiceUseCase(txRunner, issuerRepo, invoiceRepo)
	issueUC := billing.NewIssueInvoiceUseCase(txRunner, issuerRepo, invoiceRepo, pipeline, certs, sender, log)

	// RIDE: representación impresa de la factura
	rideUC := billing.NewRIDEUseCase(issuerRepo, invoiceRepo, infrapdf.NewRIDEGenerator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.SRI.SendBudget(),
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "SRI Facturación API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		IssuerUC:    issuerUC,
		AccessKeyUC: accessKeyUC,
		InvoiceUC:   invoiceUC,
		IssueUC:     issueUC,
		SRI:         sriOrchestrator,
		RIDEUC:      rideUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
