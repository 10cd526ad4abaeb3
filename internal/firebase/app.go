// Package firebase connects the API to Firebase: ID token verification, push
// notifications and the Firestore mirror used by the sync worker.
package firebase

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	firebasesdk "firebase.google.com/go"
	"google.golang.org/api/option"
)

// Clients holds the Firebase services the API uses.
type Clients struct {
	Verifier  *TokenVerifier
	Notifier  *Notifier
	Firestore *firestore.Client
}

// Connect initializes the Firebase app from a service account file. The
// Firestore client is only created when withFirestore is set.
func Connect(ctx context.Context, credentialsFile string, withFirestore bool) (*Clients, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("firebase credentials file is not set")
	}

	app, err := firebasesdk.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	clients := &Clients{
		Verifier: NewTokenVerifier(authClient),
		Notifier: NewNotifier(messagingClient),
	}

	if withFirestore {
		clients.Firestore, err = app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting firestore client: %w", err)
		}
	}

	log.Println("Firebase connection successful")
	return clients, nil
}

// Close releases the Firestore client if one was opened.
func (c *Clients) Close() error {
	if c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}
