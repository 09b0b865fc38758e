package bootstrap

import (
	"go_ingest_backend/config"
	"go_ingest_backend/repository"
)

type Repositories struct {
	FileRepository repository.FileRepository
}

func NewRepositories(cfg *config.Config, infra *Infrastructure) *Repositories {
	if infra.DB == nil {
		return &Repositories{}
	}
	store := repository.NewFileStore(infra.DB.GetDatabase())
	return &Repositories{
		FileRepository: repository.NewFilesRepository(store, infra.Cache, cfg.CacheTTL, infra.Metrics),
	}
}
