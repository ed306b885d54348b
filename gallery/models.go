/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package gallery implements photo sharing: gorm models, a blob store for
// image bytes, and the service that ties them together.
package gallery

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Models lists every table owned by the gallery, in migration order.
var Models = []any{
	&Photo{},
	&Comment{},
	&Like{},
}

// Photo is an uploaded image plus its denormalized like count.
type Photo struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	URL         string         `gorm:"size:1024;not null" json:"url"`
	Title       string         `gorm:"size:400;not null" json:"title"`
	Description *string        `gorm:"size:2000" json:"description,omitempty"`
	LikeCount   int            `gorm:"not null;default:0" json:"like_count"`
	Blob        datatypes.JSON `json:"-"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`

	Comments []Comment `gorm:"foreignKey:PhotoID" json:"comments"`
	Likes    []Like    `gorm:"foreignKey:PhotoID" json:"-"`

	IsLiked bool `gorm:"-" json:"is_liked"`
}

// BlobInfo is what Photo.Blob holds.
type BlobInfo struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// BlobInfo decodes the stored blob metadata.
func (p *Photo) BlobInfo() (BlobInfo, error) {
	var info BlobInfo
	if len(p.Blob) == 0 {
		return info, nil
	}
	err := json.Unmarshal(p.Blob, &info)
	return info, err
}

// Comment is a named remark left on a photo.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PhotoID   string    `gorm:"size:36;not null;index" json:"photo_id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Content   string    `gorm:"size:4000;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Like records one client identity liking one photo.
type Like struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ClientID  string    `gorm:"size:64;not null;uniqueIndex:idx_like_client_photo" json:"client_id"`
	PhotoID   string    `gorm:"size:36;not null;uniqueIndex:idx_like_client_photo;index" json:"photo_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeResult is returned by ToggleLike.
type LikeResult struct {
	IsLiked   bool `json:"is_liked"`
	LikeCount int  `json:"like_count"`
}
