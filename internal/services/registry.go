package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/data/repos"
	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/domain/user"
	"github.com/yungbote/rastion-hub/internal/platform/apierr"
	"github.com/yungbote/rastion-hub/internal/platform/blobstore"
	"github.com/yungbote/rastion-hub/internal/platform/ctxutil"
	"github.com/yungbote/rastion-hub/internal/platform/dbctx"
	"github.com/yungbote/rastion-hub/internal/platform/events"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

const (
	maxNameLen        = 120
	maxVersionLen     = 60
	maxDescriptionLen = 5000
	maxCategoryLen    = 120

	DefaultPageSize = 20
	MaxPageSize     = 100
)

type CreateInput struct {
	Name        string
	Version     string
	Description string
	Category    string
	// Manifest is the raw JSON text supplied with the upload.
	Manifest string
	Filename string
	Body     io.Reader
}

type ListQuery struct {
	Q        string
	Category string
	Page     int
	PageSize int
}

type ListResult struct {
	Items    []*artifact.Artifact
	Total    int64
	Page     int
	PageSize int
}

// Download is an open archive. The caller must close Body.
type Download struct {
	Artifact    *artifact.Artifact
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

type RatingResult struct {
	ID          uint    `json:"id"`
	ItemType    string  `json:"item_type"`
	Rating      float64 `json:"rating"`
	RatingCount int64   `json:"rating_count"`
}

// RegistryService owns artifact metadata and archives and keeps the two
// consistent: a committed artifact always has a readable archive and a
// failed upload leaves no archive behind.
type RegistryService interface {
	Create(ctx context.Context, caller *user.User, kind artifact.Kind, in CreateInput) (*artifact.Artifact, error)
	List(ctx context.Context, kind artifact.Kind, q ListQuery) (*ListResult, error)
	Get(ctx context.Context, kind artifact.Kind, id uint) (*artifact.Artifact, error)
	ListVersions(ctx context.Context, kind artifact.Kind, id uint) ([]*artifact.Version, error)
	Download(ctx context.Context, kind artifact.Kind, id uint) (*Download, error)
	Delete(ctx context.Context, caller *user.User, kind artifact.Kind, id uint) error
	Rate(ctx context.Context, caller *user.User, tag string, id uint, score float64) (*RatingResult, error)
}

type registryService struct {
	db           *gorm.DB
	log          *logger.Logger
	artifactRepo repos.ArtifactRepo
	userRepo     repos.UserRepo
	blobs        blobstore.Store
	publisher    events.Publisher
	now          func() time.Time
}

func NewRegistryService(
	db *gorm.DB,
	log *logger.Logger,
	artifactRepo repos.ArtifactRepo,
	userRepo repos.UserRepo,
	blobs blobstore.Store,
	publisher events.Publisher,
) RegistryService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &registryService{
		db:           db,
		log:          log.With("service", "RegistryService"),
		artifactRepo: artifactRepo,
		userRepo:     userRepo,
		blobs:        blobs,
		publisher:    publisher,
		now:          time.Now,
	}
}

func validateCreate(in CreateInput) (name, version string, err error) {
	name = strings.TrimSpace(in.Name)
	version = strings.TrimSpace(in.Version)
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLen {
		return "", "", apierr.BadRequest("name must be between 1 and %d characters", maxNameLen)
	}
	if n := utf8.RuneCountInString(version); n < 1 || n > maxVersionLen {
		return "", "", apierr.BadRequest("version must be between 1 and %d characters", maxVersionLen)
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		return "", "", apierr.BadRequest("description must be at most %d characters", maxDescriptionLen)
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Category)) > maxCategoryLen {
		return "", "", apierr.BadRequest("category must be at most %d characters", maxCategoryLen)
	}
	if !strings.EqualFold(path.Ext(strings.TrimSpace(in.Filename)), ".zip") {
		return "", "", apierr.BadRequest("Only .zip uploads are supported.")
	}
	if in.Body == nil {
		return "", "", apierr.BadRequest("missing upload file")
	}
	return name, version, nil
}

func (s *registryService) Create(ctx context.Context, caller *user.User, kind artifact.Kind, in CreateInput) (*artifact.Artifact, error) {
	if caller == nil {
		return nil, apierr.Unauthenticated("missing caller")
	}
	name, version, err := validateCreate(in)
	if err != nil {
		return nil, err
	}

	manifest := ParseManifest(in.Manifest)
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = InferCategory(kind, name, in.Description, manifest)
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	exists, err := s.artifactRepo.Exists(dbc, kind, caller.ID, name, version)
	if err != nil {
		return nil, fmt.Errorf("check existing %s: %w", kind, err)
	}
	if exists {
		return nil, apierr.Conflict("%s %q version %q already exists", kind, name, version)
	}

	key := artifact.BlobKey(kind, caller.ID, name, version)
	if err := s.blobs.Create(ctx, key, in.Body); err != nil {
		if errors.Is(err, blobstore.ErrExists) {
			return nil, apierr.Conflict("%s %q version %q already exists", kind, name, version)
		}
		return nil, fmt.Errorf("store archive: %w", err)
	}

	a := &artifact.Artifact{
		OwnerID:     caller.ID,
		Name:        name,
		Version:     version,
		Description: in.Description,
		Category:    &category,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.artifactRepo.Create(txc, kind, a); err != nil {
			return fmt.Errorf("insert %s: %w", kind, err)
		}
		v := &artifact.Version{
			ArtifactID:  a.ID,
			Version:     version,
			Description: in.Description,
			FilePath:    key,
			Manifest:    datatypes.JSON(manifestJSON),
		}
		if err := s.artifactRepo.CreateVersion(txc, kind, v); err != nil {
			return fmt.Errorf("insert %s version: %w", kind, err)
		}
		return nil
	})
	if err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Error("Failed to remove orphaned archive", "key", key, "error", delErr)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("%s %q version %q already exists", kind, name, version)
		}
		return nil, err
	}

	a.Owner = caller
	s.log.With(ctxutil.LogFields(ctx)...).Info("Artifact created", "kind", kind, "artifact_id", a.ID, "owner_id", caller.ID, "category", category)
	s.publish(ctx, events.ArtifactCreated, a, caller.ID)
	return a, nil
}

func (s *registryService) List(ctx context.Context, kind artifact.Kind, q ListQuery) (*ListResult, error) {
	if q.Page < 1 {
		return nil, apierr.BadRequest("page must be >= 1")
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return nil, apierr.BadRequest("page_size must be between 1 and %d", MaxPageSize)
	}

	dbc := dbctx.Context{Ctx: ctx}
	items, total, err := s.artifactRepo.List(dbc, kind, repos.ArtifactListFilter{
		Query:    strings.TrimSpace(q.Q),
		Category: strings.TrimSpace(q.Category),
		Offset:   (q.Page - 1) * q.PageSize,
		Limit:    q.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Table(), err)
	}
	if err := s.attachOwners(dbc, items); err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *registryService) Get(ctx context.Context, kind artifact.Kind, id uint) (*artifact.Artifact, error) {
	dbc := dbctx.Context{Ctx: ctx}
	a, err := s.load(dbc, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachOwners(dbc, []*artifact.Artifact{a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *registryService) ListVersions(ctx context.Context, kind artifact.Kind, id uint) ([]*artifact.Version, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.load(dbc, kind, id); err != nil {
		return nil, err
	}
	versions, err := s.artifactRepo.ListVersions(dbc, kind, id)
	if err != nil {
		return nil, fmt.Errorf("list %s versions: %w", kind, err)
	}
	return versions, nil
}

func (s *registryService) Download(ctx context.Context, kind artifact.Kind, id uint) (*Download, error) {
	dbc := dbctx.Context{Ctx: ctx}
	a, err := s.load(dbc, kind, id)
	if err != nil {
		return nil, err
	}

	key, err := s.resolveArchive(dbc, a)
	if err != nil {
		return nil, err
	}
	if err := s.artifactRepo.IncrementDownloads(dbc, kind, a.ID); err != nil {
		return nil, fmt.Errorf("count download: %w", err)
	}
	a.DownloadCount++

	body, err := s.blobs.Open(ctx, key)
	if errors.Is(err, blobstore.ErrNotExist) {
		return nil, apierr.NotFound("%s file not found", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	s.publish(ctx, events.ArtifactDownloaded, a, 0)
	return &Download{
		Artifact:    a,
		Filename:    artifact.DownloadFilename(a.Name, a.Version),
		ContentType: "application/zip",
		Body:        body,
	}, nil
}

// resolveArchive prefers the recorded key of the newest matching version and
// falls back to the key computed from the current metadata.
func (s *registryService) resolveArchive(dbc dbctx.Context, a *artifact.Artifact) (string, error) {
	latest, err := s.artifactRepo.LatestVersion(dbc, a.Kind, a.ID, a.Version)
	if err != nil {
		return "", fmt.Errorf("load latest version: %w", err)
	}
	if latest != nil && latest.FilePath != "" {
		ok, err := s.blobs.Exists(dbc.Ctx, latest.FilePath)
		if err != nil {
			return "", fmt.Errorf("stat archive: %w", err)
		}
		if ok {
			return latest.FilePath, nil
		}
	}
	fallback := artifact.BlobKey(a.Kind, a.OwnerID, a.Name, a.Version)
	ok, err := s.blobs.Exists(dbc.Ctx, fallback)
	if err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}
	if !ok {
		return "", apierr.NotFound("%s file not found", a.Kind)
	}
	return fallback, nil
}

func (s *registryService) Delete(ctx context.Context, caller *user.User, kind artifact.Kind, id uint) error {
	if caller == nil {
		return apierr.Unauthenticated("missing caller")
	}
	dbc := dbctx.Context{Ctx: ctx}
	a, err := s.load(dbc, kind, id)
	if err != nil {
		return err
	}
	if a.OwnerID != caller.ID {
		return apierr.Forbidden("Owner access required.")
	}

	versions, err := s.artifactRepo.ListVersions(dbc, kind, id)
	if err != nil {
		return fmt.Errorf("list %s versions: %w", kind, err)
	}
	removed := 0
	for _, v := range versions {
		if v.FilePath == "" {
			continue
		}
		ok, err := s.blobs.Exists(ctx, v.FilePath)
		if err != nil {
			return fmt.Errorf("stat archive: %w", err)
		}
		if !ok {
			continue
		}
		if err := s.blobs.Delete(ctx, v.FilePath); err != nil {
			return fmt.Errorf("delete archive: %w", err)
		}
		removed++
	}
	fallback := artifact.BlobKey(kind, a.OwnerID, a.Name, a.Version)
	if removed == 0 {
		if err := s.blobs.Delete(ctx, fallback); err != nil {
			return fmt.Errorf("delete archive: %w", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.artifactRepo.Delete(dbctx.Context{Ctx: ctx, Tx: tx}, kind, id)
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}

	if p, ok := s.blobs.(blobstore.Pruner); ok {
		if err := p.PruneEmptyParents(ctx, fallback, kind.Table()); err != nil {
			s.log.Warn("Failed to prune archive directories", "key", fallback, "error", err)
		}
	}
	s.log.With(ctxutil.LogFields(ctx)...).Info("Artifact deleted", "kind", kind, "artifact_id", id, "owner_id", caller.ID)
	s.publish(ctx, events.ArtifactDeleted, a, caller.ID)
	return nil
}

func (s *registryService) Rate(ctx context.Context, caller *user.User, tag string, id uint, score float64) (*RatingResult, error) {
	kind, ok := artifact.ParseTag(tag)
	if !ok {
		return nil, apierr.BadRequest("Unsupported item type %q", tag)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > 5 {
		return nil, apierr.BadRequest("rating must be between 0 and 5")
	}

	a, err := s.artifactRepo.ApplyRating(dbctx.Context{Ctx: ctx}, kind, id, score)
	if err != nil {
		return nil, fmt.Errorf("apply rating: %w", err)
	}
	if a == nil {
		return nil, apierr.NotFound("%s not found", kind)
	}

	var actor uint
	if caller != nil {
		actor = caller.ID
	}
	s.publish(ctx, events.ArtifactRated, a, actor)
	return &RatingResult{
		ID:          a.ID,
		ItemType:    kind.Tag(),
		Rating:      math.Round(a.Rating*1e4) / 1e4,
		RatingCount: a.RatingCount,
	}, nil
}

func (s *registryService) load(dbc dbctx.Context, kind artifact.Kind, id uint) (*artifact.Artifact, error) {
	a, err := s.artifactRepo.GetByID(dbc, kind, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	if a == nil {
		return nil, apierr.NotFound("%s not found", strings.ToUpper(string(kind[:1]))+string(kind[1:]))
	}
	return a, nil
}

func (s *registryService) attachOwners(dbc dbctx.Context, items []*artifact.Artifact) error {
	if len(items) == 0 {
		return nil
	}
	seen := map[uint]bool{}
	ids := make([]uint, 0, len(items))
	for _, a := range items {
		if !seen[a.OwnerID] {
			seen[a.OwnerID] = true
			ids = append(ids, a.OwnerID)
		}
	}
	owners, err := s.userRepo.GetByIDs(dbc, ids)
	if err != nil {
		return fmt.Errorf("load owners: %w", err)
	}
	byID := make(map[uint]*user.User, len(owners))
	for _, u := range owners {
		byID[u.ID] = u
	}
	for _, a := range items {
		a.Owner = byID[a.OwnerID]
	}
	return nil
}

func (s *registryService) publish(ctx context.Context, typ events.Type, a *artifact.Artifact, actorID uint) {
	ev := events.Event{
		Type:       typ,
		Kind:       string(a.Kind),
		ArtifactID: a.ID,
		Name:       a.Name,
		Version:    a.Version,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("Failed to publish registry event", "type", typ, "artifact_id", a.ID, "error", err)
	}
}
