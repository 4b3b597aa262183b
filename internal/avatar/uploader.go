// Package avatar はアバター画像の検証とアップロードを提供する。
package avatar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/hitoshi/socialboard/internal/model"
)

// DefaultMaxSize はアバター画像の既定の最大サイズ（10MB）。
const DefaultMaxSize int64 = 10 * 1024 * 1024

// uploadTimeout は1回のアップロードに許容する時間。
const uploadTimeout = 30 * time.Second

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// File はアップロード対象の画像ファイル。
type File struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Uploader はアバター画像を外部ストレージに保存し、公開URLを返す。
type Uploader interface {
	Upload(ctx context.Context, file File) (string, error)
}

// Validate はファイル名の拡張子とサイズを検証する。
// maxSizeが0以下の場合はDefaultMaxSizeを使用する。
func Validate(filename string, size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return model.NewValidationError("Unsupported image format. Use JPG, PNG, GIF, WEBP or BMP")
	}
	if size <= 0 {
		return model.NewValidationError("Avatar file is empty")
	}
	if size > maxSize {
		return model.NewValidationError(fmt.Sprintf("Avatar is too large. Maximum %dMB allowed", maxSize/(1024*1024)))
	}
	return nil
}

// sniffImage は先頭512バイトからコンテンツタイプを判定し、画像でなければエラーを返す。
// 読み取った先頭部分を戻したReaderを返す。
func sniffImage(r io.Reader) (io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	head = head[:n]

	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		return nil, model.NewValidationError("Avatar must be an image file")
	}
	return io.MultiReader(bytes.NewReader(head), r), nil
}

// uploadAPI はCloudinaryのアップロードAPIの抽象化。
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryUploader はCloudinaryにアバター画像をアップロードする。
type CloudinaryUploader struct {
	api     uploadAPI
	folder  string
	maxSize int64
}

// NewCloudinaryUploader はCLOUDINARY_URL形式の接続文字列からCloudinaryUploaderを生成する。
// 例: "cloudinary://<api_key>:<api_secret>@<cloud_name>"
func NewCloudinaryUploader(cloudinaryURL string, maxSize int64) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &CloudinaryUploader{
		api:     &cld.Upload,
		folder:  "avatars",
		maxSize: maxSize,
	}, nil
}

// Upload は画像を検証してアップロードし、HTTPSの公開URLを返す。
func (u *CloudinaryUploader) Upload(ctx context.Context, file File) (string, error) {
	if err := Validate(file.Filename, file.Size, u.maxSize); err != nil {
		return "", err
	}
	content, err := sniffImage(file.Content)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	publicID := uuid.New().String()
	result, err := u.api.Upload(ctx, content, uploader.UploadParams{
		Folder:         u.folder,
		PublicID:       publicID,
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
		ResourceType:   "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected avatar upload: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary returned empty secure url for %s", publicID)
	}

	slog.Info("avatar uploaded",
		slog.String("public_id", result.PublicID),
		slog.Int64("size", file.Size),
	)
	return result.SecureURL, nil
}

// NopUploader は画像を保存しないUploader。
// Cloudinaryが未設定の環境で使用し、検証のみを行って空のURLを返す。
type NopUploader struct {
	MaxSize int64
}

// Upload は画像を検証し、保存せずに空文字列を返す。
func (u NopUploader) Upload(_ context.Context, file File) (string, error) {
	if err := Validate(file.Filename, file.Size, u.MaxSize); err != nil {
		return "", err
	}
	slog.Warn("avatar storage is not configured; discarding upload",
		slog.String("filename", file.Filename),
	)
	return "", nil
}

var (
	_ Uploader = (*CloudinaryUploader)(nil)
	_ Uploader = NopUploader{}
)
