package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/askservice/leadmarket-backend/api/routes"
	"github.com/askservice/leadmarket-backend/internal/attachments"
	"github.com/askservice/leadmarket-backend/internal/categories"
	"github.com/askservice/leadmarket-backend/internal/credits"
	"github.com/askservice/leadmarket-backend/internal/leads"
	"github.com/askservice/leadmarket-backend/internal/ledger"
	"github.com/askservice/leadmarket-backend/internal/notifications"
	"github.com/askservice/leadmarket-backend/internal/quotes"
	"github.com/askservice/leadmarket-backend/internal/requests"
	"github.com/askservice/leadmarket-backend/internal/reviews"
	"github.com/askservice/leadmarket-backend/internal/unlocks"
	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/metrics"
	"github.com/askservice/leadmarket-backend/pkg/outbox"
	"github.com/askservice/leadmarket-backend/pkg/storage/gcs"
)

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, gcsClient *gcs.Client, reg prometheus.Registerer) (routes.Services, error) {
	gdb := dbClient.DB()
	leadMetrics := metrics.NewLeadMetrics(reg)

	currency, err := enums.ParseCurrency(cfg.Leads.QuoteCurrency)
	if err != nil {
		return routes.Services{}, fmt.Errorf("quote currency: %w", err)
	}

	sender, err := notifications.NewSender(dbClient, outbox.NewEmitter(outbox.NewStore(gdb), logg), logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("notification sender: %w", err)
	}
	notificationSvc, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, fmt.Errorf("notifications: %w", err)
	}

	ledgerSvc, err := ledger.NewService(dbClient, ledger.NewRepository(gdb), cfg.Leads.TransactionsMaxLimit)
	if err != nil {
		return routes.Services{}, fmt.Errorf("ledger: %w", err)
	}
	categorySvc, err := categories.NewService(categories.NewRepository(gdb), cfg.Leads.DefaultUnlockCost)
	if err != nil {
		return routes.Services{}, fmt.Errorf("categories: %w", err)
	}
	requestSvc, err := requests.NewService(dbClient, requests.NewRepository(gdb), categorySvc, sender, logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("requests: %w", err)
	}

	leadRepo := leads.NewRepository(gdb)
	leadSvc, err := leads.NewService(leadRepo, categorySvc, ledgerSvc)
	if err != nil {
		return routes.Services{}, fmt.Errorf("leads: %w", err)
	}
	unlockSvc, err := unlocks.NewService(dbClient, unlocks.NewRepository(gdb), ledgerSvc, leadRepo, sender, leadMetrics, logg, unlocks.Config{
		DefaultCost: cfg.Leads.DefaultUnlockCost,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("unlocks: %w", err)
	}
	quoteSvc, err := quotes.NewService(dbClient, quotes.NewRepository(gdb), reviews.NewRepository(gdb), sender, leadMetrics, logg, quotes.Config{
		MaxQuotesPerRequest: cfg.Leads.MaxQuotesPerRequest,
		DefaultCurrency:     currency,
		DefaultValidDays:    cfg.Leads.DefaultQuoteValidDays,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("quotes: %w", err)
	}
	creditSvc, err := credits.NewService(credits.NewRepository(gdb), ledgerSvc, sender, leadMetrics, logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("credits: %w", err)
	}
	attachmentSvc, err := attachments.NewService(gcsClient, cfg.Media.MaxUploadBytes(), logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("attachments: %w", err)
	}

	return routes.Services{
		Categories:    categorySvc,
		Requests:      requestSvc,
		Leads:         leadSvc,
		Unlocks:       unlockSvc,
		Quotes:        quoteSvc,
		Credits:       creditSvc,
		Attachments:   attachmentSvc,
		Notifications: notificationSvc,
	}, nil
}
