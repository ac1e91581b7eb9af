package uploads

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryUploader stores attachments in Cloudinary, one folder per kind.
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader builds an uploader from a CLOUDINARY_URL-style URL.
func NewCloudinaryUploader(url, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

// Upload pushes the blob and returns its secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, ownerID string, blob io.Reader, kind Kind) (string, error) {
	params := uploader.UploadParams{
		Folder: u.folder + "/" + string(kind) + "/" + ownerID,
	}
	// Audio and generic files need the raw/video pipeline, not image.
	switch kind {
	case KindAudio:
		params.ResourceType = "video"
	case KindFile:
		params.ResourceType = "raw"
	}

	result, err := u.cld.Upload.Upload(ctx, blob, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}
