package utils

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path"

	"github.com/google/uuid"
)

const MaxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// ImageKey builds the object key for an uploaded image, e.g. "avatars/<owner>/<uuid>.png".
func ImageKey(prefix, ownerID, contentType string) (string, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}
	return path.Join(prefix, ownerID, uuid.NewString()+ext), nil
}

// ReadImage validates and buffers an uploaded image.
func ReadImage(fh *multipart.FileHeader) (io.Reader, string, error) {
	if fh.Size > MaxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	contentType := fh.Header.Get("Content-Type")
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, "", fmt.Errorf("unsupported image type %q", contentType)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(f, MaxImageBytes+1)); err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	if buf.Len() > MaxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	return buf, contentType, nil
}
