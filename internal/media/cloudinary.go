package media

import (
	"bytes"
	"context"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Cloudinary uploads to a remote bucket; the stored reference is the secure
// delivery URL so Open has nothing to serve.
type Cloudinary struct {
	uploader *uploader.API
	folder   string
}

func NewCloudinary(cfg CloudinaryConfig) (*Cloudinary, error) {
	c, err := config.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(c)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{uploader: up, folder: cfg.Folder}, nil
}

func (c *Cloudinary) Save(ctx context.Context, file File) (string, error) {
	if len(file.Data) == 0 {
		return "", ErrInvalidData
	}
	folder := c.folder
	if file.Folder != "" {
		folder += "/" + file.Folder
	}
	result, err := c.uploader.Upload(ctx, bytes.NewReader(file.Data), uploader.UploadParams{
		Folder:       folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", err
	}
	return result.SecureURL, nil
}

func (c *Cloudinary) Open(context.Context, string) (File, error) {
	return File{}, ErrNotFound
}
