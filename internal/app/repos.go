package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/data/repos"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

type Repos struct {
	User     repos.UserRepo
	Artifact repos.ArtifactRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:     repos.NewUserRepo(db, log),
		Artifact: repos.NewArtifactRepo(db, log),
	}
}
