package handlers

import (
	"time"

	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/domain/user"
	"github.com/yungbote/rastion-hub/internal/services"
)

type UserOut struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

type ArtifactOut struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Version       string  `json:"version"`
	Description   string  `json:"description"`
	Category      *string `json:"category"`
	DownloadCount int64   `json:"download_count"`
	Rating        float64 `json:"rating"`
	Owner         UserOut `json:"owner"`
}

type ArtifactListOut struct {
	Items    []ArtifactOut `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type VersionOut struct {
	ID          uint           `json:"id"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Manifest    map[string]any `json:"manifest"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toUserOut(u *user.User) UserOut {
	if u == nil {
		return UserOut{}
	}
	return UserOut{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

func toArtifactOut(a *artifact.Artifact) ArtifactOut {
	return ArtifactOut{
		ID:            a.ID,
		Name:          a.Name,
		Version:       a.Version,
		Description:   a.Description,
		Category:      a.Category,
		DownloadCount: a.DownloadCount,
		Rating:        a.Rating,
		Owner:         toUserOut(a.Owner),
	}
}

func toArtifactListOut(res *services.ListResult) ArtifactListOut {
	out := ArtifactListOut{
		Items:    make([]ArtifactOut, 0, len(res.Items)),
		Total:    res.Total,
		Page:     res.Page,
		PageSize: res.PageSize,
	}
	for _, a := range res.Items {
		out.Items = append(out.Items, toArtifactOut(a))
	}
	return out
}

func toVersionOut(v *artifact.Version) VersionOut {
	return VersionOut{
		ID:          v.ID,
		Version:     v.Version,
		Description: v.Description,
		Manifest:    services.ParseManifest(string(v.Manifest)),
		CreatedAt:   v.CreatedAt,
	}
}
