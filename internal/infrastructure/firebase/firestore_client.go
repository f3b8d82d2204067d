package firebase

import (
	"context"

	"cloud.google.com/go/firestore"
)

// NewFirestoreClient opens a Firestore client for projectID with the same
// service account resolution as NewAuthClient.
func NewFirestoreClient(ctx context.Context, projectID, serviceAccountJSON, serviceAccountPath string) (*firestore.Client, error) {
	opt, err := credentials(serviceAccountJSON, serviceAccountPath)
	if err != nil {
		return nil, err
	}
	return firestore.NewClient(ctx, projectID, opt)
}
