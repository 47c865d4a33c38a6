package testutil

import (
	"context"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/domain/user"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username string) *user.User {
	tb.Helper()
	u := &user.User{
		GitHubID:  "gh-" + username,
		Username:  username,
		AvatarURL: "https://avatars.example/" + username,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedArtifact inserts an artifact row and a matching first version row.
func SeedArtifact(tb testing.TB, ctx context.Context, tx *gorm.DB, kind artifact.Kind, ownerID uint, name, version, description string) *artifact.Artifact {
	tb.Helper()
	a := &artifact.Artifact{
		OwnerID:     ownerID,
		Name:        name,
		Version:     version,
		Description: description,
	}
	if err := tx.WithContext(ctx).Table(kind.Table()).Create(a).Error; err != nil {
		tb.Fatalf("seed %s: %v", kind, err)
	}
	v := &artifact.Version{
		ArtifactID:  a.ID,
		Version:     version,
		Description: description,
		FilePath:    artifact.BlobKey(kind, ownerID, name, version),
		Manifest:    datatypes.JSON(`{}`),
	}
	if err := tx.WithContext(ctx).Table(kind.VersionTable()).Create(v).Error; err != nil {
		tb.Fatalf("seed %s version: %v", kind, err)
	}
	a.Kind = kind
	return a
}
