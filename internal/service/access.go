package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
)

type alumniReader interface {
	FindByID(ctx context.Context, id string) (*models.AlumniRecord, error)
}

// loadViewer reads the caller's stored record. Authorisation is decided on this, never on token claims.
func loadViewer(ctx context.Context, repo alumniReader, viewerID string) (*models.AlumniRecord, error) {
	if viewerID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	viewer, err := repo.FindByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no alumni profile for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrRemoteService.Code, appErrors.ErrRemoteService.Status, "failed to load viewer profile")
	}
	return viewer, nil
}

func requirePrivileged(viewer *models.AlumniRecord) error {
	if viewer == nil || !viewer.UserRole.IsPrivileged() {
		return appErrors.Clone(appErrors.ErrForbidden, "privileged role required")
	}
	return nil
}

func requireRole(viewer *models.AlumniRecord, roles ...models.UserRole) error {
	if viewer != nil {
		for _, r := range roles {
			if viewer.UserRole == r {
				return nil
			}
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
}

func requireDirectoryAccess(viewer *models.AlumniRecord) error {
	if viewer == nil || !viewer.CanViewDirectory() {
		return appErrors.Clone(appErrors.ErrForbidden, "directory is available to approved members only")
	}
	return nil
}

func remoteError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrRemoteService.Code, appErrors.ErrRemoteService.Status, message)
}
