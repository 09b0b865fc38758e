package bootstrap

import (
	"go_ingest_backend/config"
	"go_ingest_backend/handlers"
)

type Handlers struct {
	FileHandler   *handlers.FileHandler
	EventsHandler *handlers.EventsHandler
	WSHandler     *handlers.WSHandler
}

func NewHandlers(cfg *config.Config, services *Services) *Handlers {
	res := &Handlers{}
	if cfg.HasRole(config.RoleUpload) && services.UploadService != nil {
		res.FileHandler = handlers.NewFileHandler(services.UploadService, services.ProcessingService)
	}
	if services.Gateway != nil {
		res.EventsHandler = handlers.NewEventsHandler(services.Gateway)
		res.WSHandler = handlers.NewWSHandler(services.Gateway)
	}
	return res
}
