package firebase

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// FirestoreProbe checks that Firestore answers a one-document read.
type FirestoreProbe struct {
	Client *firestore.Client
}

func (p FirestoreProbe) Ping(ctx context.Context) error {
	iter := p.Client.Collection("chats").Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}
