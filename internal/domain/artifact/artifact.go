package artifact

import (
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/rastion-hub/internal/domain/user"
)

// Artifact is a row in the problems or solvers table. Version is the
// current label; the full history lives in Version rows.
type Artifact struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       uint      `gorm:"column:owner_id;not null" json:"owner_id"`
	Name          string    `gorm:"column:name;size:120;not null" json:"name"`
	Version       string    `gorm:"column:version;size:60;not null" json:"version"`
	Description   string    `gorm:"column:description;type:text;not null;default:''" json:"description"`
	Category      *string   `gorm:"column:category;size:120" json:"category"`
	DownloadCount int64     `gorm:"column:download_count;not null;default:0" json:"download_count"`
	Rating        float64   `gorm:"column:rating;not null;default:0" json:"rating"`
	RatingCount   int64     `gorm:"column:rating_count;not null;default:0" json:"rating_count"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`

	Kind  Kind       `gorm:"-" json:"-"`
	Owner *user.User `gorm:"-" json:"owner,omitempty"`
}

// Version is an append-only upload record.
type Version struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ArtifactID  uint           `gorm:"column:artifact_id;not null" json:"artifact_id"`
	Version     string         `gorm:"column:version;size:60;not null" json:"version"`
	Description string         `gorm:"column:description;type:text;not null;default:''" json:"description"`
	FilePath    string         `gorm:"column:file_path;not null" json:"-"`
	Manifest    datatypes.JSON `gorm:"column:manifest" json:"manifest"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
}

// CategoryOrEmpty dereferences Category.
func (a *Artifact) CategoryOrEmpty() string {
	if a == nil || a.Category == nil {
		return ""
	}
	return *a.Category
}
