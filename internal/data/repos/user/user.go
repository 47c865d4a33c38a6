package user

import (
	"github.com/yungbote/rastion-hub/internal/domain/user"
	"github.com/yungbote/rastion-hub/internal/platform/dbctx"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo interface {
	Create(dbc dbctx.Context, u *user.User) error
	// GetByID returns nil, nil when no user has the id.
	GetByID(dbc dbctx.Context, id uint) (*user.User, error)
	GetByIDs(dbc dbctx.Context, ids []uint) ([]*user.User, error)
	GetByGitHubID(dbc dbctx.Context, githubID string) (*user.User, error)
	UpdateProfile(dbc dbctx.Context, id uint, username, avatarURL string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(dbc dbctx.Context, u *user.User) error {
	return dbc.DB(ur.db).Create(u).Error
}

func (ur *userRepo) GetByID(dbc dbctx.Context, id uint) (*user.User, error) {
	var results []*user.User
	if err := dbc.DB(ur.db).Where("id = ?", id).Limit(1).Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, ids []uint) ([]*user.User, error) {
	var results []*user.User
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(ur.db).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) GetByGitHubID(dbc dbctx.Context, githubID string) (*user.User, error) {
	var results []*user.User
	if err := dbc.DB(ur.db).Where("github_id = ?", githubID).Limit(1).Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (ur *userRepo) UpdateProfile(dbc dbctx.Context, id uint, username, avatarURL string) error {
	return dbc.DB(ur.db).
		Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"username":   username,
			"avatar_url": avatarURL,
		}).Error
}
