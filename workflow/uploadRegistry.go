package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/closing_backend/models"
	"github.com/sirupsen/logrus"
)

// UploadRegistry tracks the required supporting-data slots per entry.
// Only metadata moves here; blob storage is out of scope.
type UploadRegistry struct {
	store   *models.Store
	logger  *logrus.Logger
	latency time.Duration
}

func NewUploadRegistry(store *models.Store, logger *logrus.Logger, latency time.Duration) *UploadRegistry {
	return &UploadRegistry{store: store, logger: logger, latency: latency}
}

// Attach records a file against the slot.
func (r *UploadRegistry) Attach(ctx context.Context, assetId, uploadId, fileName string) error {
	if fileName == "" {
		return errors.New("file name is required")
	}
	sleep(r.latency)
	return r.store.WithEntry(assetId, func() error {
		u, err := r.store.Upload(assetId, uploadId)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		u.FileName = fileName
		u.FileAttached = true
		u.AttachedAt = &now
		return nil
	})
}

// Detach clears the slot back to pending.
func (r *UploadRegistry) Detach(ctx context.Context, assetId, uploadId string) error {
	sleep(r.latency)
	return r.store.WithEntry(assetId, func() error {
		u, err := r.store.Upload(assetId, uploadId)
		if err != nil {
			return err
		}
		u.FileName = ""
		u.FileAttached = false
		u.AttachedAt = nil
		return nil
	})
}
