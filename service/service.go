package service

import (
	"incident-reporter/config"
	"incident-reporter/database"
	"incident-reporter/fanout"
	"incident-reporter/handlers"
	"incident-reporter/rabbitmq"
	"incident-reporter/websocket"

	"github.com/apex/log"
)

// Service wires the report store, fan-out engine and push hub together
// and owns their lifecycle.
type Service struct {
	config    *config.Config
	db        *database.Database
	hub       *websocket.Hub
	publisher *rabbitmq.Publisher
	handlers  *handlers.Handlers
}

// NewService creates the incident reporter service
func NewService(cfg *config.Config) (*Service, error) {
	// Initialize database
	db, err := database.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize push hub
	hub := websocket.NewHub(cfg.HeartbeatInterval)

	// Optional broker mirror for lifecycle events
	var publisher *rabbitmq.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			// Mirror delivery is best-effort; the service runs without it.
			log.Errorf("RabbitMQ mirror unavailable, continuing without it: %v", err)
			publisher = nil
		}
	}

	// Initialize fan-out engine
	var engine *fanout.Engine
	if publisher != nil {
		engine = fanout.NewEngine(db, hub, publisher)
	} else {
		engine = fanout.NewEngine(db, hub, nil)
	}

	return &Service{
		config:    cfg,
		db:        db,
		hub:       hub,
		publisher: publisher,
		handlers:  handlers.NewHandlers(hub, db, engine),
	}, nil
}

// Start starts the service
func (s *Service) Start() error {
	log.Info("Starting incident reporter service...")

	if err := s.db.InitSchema(); err != nil {
		return err
	}

	// Start the push hub
	go s.hub.Run()

	log.Info("Incident reporter service started successfully")
	return nil
}

// Stop stops the service gracefully
func (s *Service) Stop() error {
	log.Info("Stopping incident reporter service...")

	s.hub.Stop()

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Errorf("Error closing publisher: %v", err)
		}
	}

	if err := s.db.Close(); err != nil {
		log.Errorf("Error closing database: %v", err)
	}

	log.Info("Incident reporter service stopped")
	return nil
}

// GetHandlers returns the HTTP handlers
func (s *Service) GetHandlers() *handlers.Handlers {
	return s.handlers
}
