package bootstrap

import (
	"go_ingest_backend/config"
	"go_ingest_backend/parsers"
	"go_ingest_backend/platform/fanout"
	"go_ingest_backend/services"
)

type Services struct {
	UploadService     *services.UploadService
	ProcessingService *services.ProcessingService
	Gateway           *fanout.Gateway
}

func NewServices(cfg *config.Config, repos *Repositories, infra *Infrastructure) *Services {
	res := &Services{}

	if repos.FileRepository != nil {
		// the processing service is also built in upload-only processes; its Retry
		// only publishes and needs no running worker
		registry := parsers.NewRegistry(infra.Storage)
		res.ProcessingService = services.NewProcessingService(repos.FileRepository, infra.Bus, registry, cfg.WorkerConcurrency, infra.Metrics)
		res.UploadService = services.NewUploadService(repos.FileRepository, infra.Storage, infra.Bus, cfg)
	}

	if cfg.HasRole(config.RoleEvents) {
		registry := fanout.NewRegistry(cfg.StreamBuffer, infra.Metrics)
		res.Gateway = fanout.NewGateway(infra.Bus, registry, infra.Metrics, cfg.StreamHeartbeat)
	}
	return res
}
