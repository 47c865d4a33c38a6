package repos

import (
	"github.com/yungbote/rastion-hub/internal/data/repos/artifact"
	"github.com/yungbote/rastion-hub/internal/data/repos/user"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo
type ArtifactRepo = artifact.ArtifactRepo
type ArtifactListFilter = artifact.ListFilter

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo { return user.NewUserRepo(db, log) }

func NewArtifactRepo(db *gorm.DB, log *logger.Logger) ArtifactRepo {
	return artifact.NewArtifactRepo(db, log)
}
