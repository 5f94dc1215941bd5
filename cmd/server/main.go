// cmd/server/main.go
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/donorcall-backend/internal/config"
	"github.com/unclebandit/donorcall-backend/internal/controller"
	"github.com/unclebandit/donorcall-backend/internal/db"
	"github.com/unclebandit/donorcall-backend/internal/handler"
	"github.com/unclebandit/donorcall-backend/internal/logger"
	"github.com/unclebandit/donorcall-backend/internal/queue"
	"github.com/unclebandit/donorcall-backend/internal/repository"
	"github.com/unclebandit/donorcall-backend/internal/service"
	"github.com/unclebandit/donorcall-backend/internal/twilio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load configuration: %v", err)
	}
	logger.Init(cfg)

	// Init DB
	db.Init(cfg.DatabaseURL)

	donorRepo := &repository.DonorRepository{DB: db.DB}
	callLogRepo := &repository.CallLogRepository{DB: db.DB}
	historyRepo := &repository.HistoryRepository{DB: db.DB}

	// Call events go through RabbitMQ when a broker is configured (see
	// cmd/worker for the consumer), otherwise through the in-memory queue.
	var q queue.Queue
	if cfg.AMQPURL != "" {
		rq, err := queue.NewRabbitQueue(cfg.AMQPURL)
		if err != nil {
			logger.Log.Fatalf("Could not connect to RabbitMQ: %v", err)
		}
		defer rq.Close()
		q = rq
	} else {
		mq := queue.NewInMemoryQueue()
		queue.StartCallLogSubscriber(mq, callLogRepo)
		q = mq
	}

	gateway := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.CallbackURL)

	campaignService := &service.CampaignService{
		DonorRepo:          donorRepo,
		HistoryRepo:        historyRepo,
		Gateway:            gateway,
		Queue:              q,
		State:              service.NewCampaignState(),
		MaxConcurrentCalls: cfg.MaxConcurrentCalls,
		ConfirmDigit:       cfg.ConfirmDigit,
		RemoveOnConfirm:    cfg.RemoveOnConfirm,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
	}

	webhookHandler := handler.NewWebhookHandler(campaignService, cfg.CallbackURL+"/process")

	r := chi.NewRouter()

	// Operator surface
	r.Post("/call_donors", campaignController.CallDonors)
	r.Post("/finalize_request", campaignController.FinalizeRequest)

	// Twilio callbacks
	r.Post("/voice", webhookHandler.Voice)
	r.Post("/process", webhookHandler.ProcessDigits)
	r.Post("/status", webhookHandler.Status)

	logger.Log.Infof("Server running on :%s", cfg.Port)
	logger.Log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
