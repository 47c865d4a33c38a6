package artifact

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/platform/dbctx"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

// ListFilter narrows a listing. Query matches name or description
// case-insensitively; Category matches exactly.
type ListFilter struct {
	Query    string
	Category string
	Offset   int
	Limit    int
}

type ArtifactRepo interface {
	Create(dbc dbctx.Context, kind artifact.Kind, a *artifact.Artifact) error
	CreateVersion(dbc dbctx.Context, kind artifact.Kind, v *artifact.Version) error
	// GetByID returns nil, nil when no row has the id.
	GetByID(dbc dbctx.Context, kind artifact.Kind, id uint) (*artifact.Artifact, error)
	Exists(dbc dbctx.Context, kind artifact.Kind, ownerID uint, name, version string) (bool, error)
	List(dbc dbctx.Context, kind artifact.Kind, f ListFilter) ([]*artifact.Artifact, int64, error)
	ListVersions(dbc dbctx.Context, kind artifact.Kind, artifactID uint) ([]*artifact.Version, error)
	// LatestVersion returns the newest version row carrying label, or nil.
	LatestVersion(dbc dbctx.Context, kind artifact.Kind, artifactID uint, label string) (*artifact.Version, error)
	IncrementDownloads(dbc dbctx.Context, kind artifact.Kind, id uint) error
	// ApplyRating folds score into the running mean in one statement and
	// returns the updated row, or nil if the id is unknown.
	ApplyRating(dbc dbctx.Context, kind artifact.Kind, id uint, score float64) (*artifact.Artifact, error)
	Delete(dbc dbctx.Context, kind artifact.Kind, id uint) error
	ListUncategorized(dbc dbctx.Context, kind artifact.Kind) ([]*artifact.Artifact, error)
	SetCategory(dbc dbctx.Context, kind artifact.Kind, id uint, category string) error
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	repoLog := baseLog.With("repo", "ArtifactRepo")
	return &artifactRepo{db: db, log: repoLog}
}

func (r *artifactRepo) table(dbc dbctx.Context, kind artifact.Kind) *gorm.DB {
	return dbc.DB(r.db).Table(kind.Table())
}

func (r *artifactRepo) versions(dbc dbctx.Context, kind artifact.Kind) *gorm.DB {
	return dbc.DB(r.db).Table(kind.VersionTable())
}

func stamp(kind artifact.Kind, rows []*artifact.Artifact) {
	for _, a := range rows {
		a.Kind = kind
	}
}

func (r *artifactRepo) Create(dbc dbctx.Context, kind artifact.Kind, a *artifact.Artifact) error {
	if err := r.table(dbc, kind).Create(a).Error; err != nil {
		return err
	}
	a.Kind = kind
	return nil
}

func (r *artifactRepo) CreateVersion(dbc dbctx.Context, kind artifact.Kind, v *artifact.Version) error {
	return r.versions(dbc, kind).Create(v).Error
}

func (r *artifactRepo) GetByID(dbc dbctx.Context, kind artifact.Kind, id uint) (*artifact.Artifact, error) {
	var results []*artifact.Artifact
	if err := r.table(dbc, kind).Where("id = ?", id).Limit(1).Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	stamp(kind, results)
	return results[0], nil
}

func (r *artifactRepo) Exists(dbc dbctx.Context, kind artifact.Kind, ownerID uint, name, version string) (bool, error) {
	var count int64
	if err := r.table(dbc, kind).
		Where("owner_id = ? AND name = ? AND version = ?", ownerID, name, version).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *artifactRepo) List(dbc dbctx.Context, kind artifact.Kind, f ListFilter) ([]*artifact.Artifact, int64, error) {
	q := r.table(dbc, kind)
	if f.Query != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Query)) + "%"
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*artifact.Artifact
	if err := q.Order("created_at DESC").Order("id DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	stamp(kind, results)
	return results, total, nil
}

func (r *artifactRepo) ListVersions(dbc dbctx.Context, kind artifact.Kind, artifactID uint) ([]*artifact.Version, error) {
	var results []*artifact.Version
	if err := r.versions(dbc, kind).
		Where("artifact_id = ?", artifactID).
		Order("created_at DESC").Order("id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *artifactRepo) LatestVersion(dbc dbctx.Context, kind artifact.Kind, artifactID uint, label string) (*artifact.Version, error) {
	var results []*artifact.Version
	if err := r.versions(dbc, kind).
		Where("artifact_id = ? AND version = ?", artifactID, label).
		Order("created_at DESC").Order("id DESC").
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *artifactRepo) IncrementDownloads(dbc dbctx.Context, kind artifact.Kind, id uint) error {
	return r.table(dbc, kind).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

// ApplyRating folds score into the running mean and returns the row as this
// update left it. Update and read share one transaction so a concurrent
// rating cannot land in between. A missing row yields (nil, nil).
func (r *artifactRepo) ApplyRating(dbc dbctx.Context, kind artifact.Kind, id uint, score float64) (*artifact.Artifact, error) {
	var out *artifact.Artifact
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		res := r.table(txc, kind).
			Where("id = ?", id).
			UpdateColumns(map[string]any{
				"rating":       gorm.Expr("(rating * rating_count + ?) / (rating_count + 1)", score),
				"rating_count": gorm.Expr("rating_count + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		a, err := r.GetByID(txc, kind, id)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) Delete(dbc dbctx.Context, kind artifact.Kind, id uint) error {
	if err := r.versions(dbc, kind).Where("artifact_id = ?", id).Delete(&artifact.Version{}).Error; err != nil {
		return err
	}
	return r.table(dbc, kind).Where("id = ?", id).Delete(&artifact.Artifact{}).Error
}

func (r *artifactRepo) ListUncategorized(dbc dbctx.Context, kind artifact.Kind) ([]*artifact.Artifact, error) {
	var results []*artifact.Artifact
	if err := r.table(dbc, kind).
		Where("category IS NULL OR TRIM(category) = ''").
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	stamp(kind, results)
	return results, nil
}

func (r *artifactRepo) SetCategory(dbc dbctx.Context, kind artifact.Kind, id uint, category string) error {
	return r.table(dbc, kind).Where("id = ?", id).UpdateColumn("category", category).Error
}
