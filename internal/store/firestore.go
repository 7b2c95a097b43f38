package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fitLadderAPI/internal/ladder"
)

type FirestoreConfig struct {
	ProjectID string
	// CredentialsJSON is a base64 encoded service account key.
	CredentialsJSON string
	CredentialsFile string
	Collection      string
}

type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore connects to Firestore. With FIRESTORE_EMULATOR_HOST set
// it talks to the emulator without credentials.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	collection := cfg.Collection
	if collection == "" {
		collection = UsersCollection
	}

	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		client, err := firestore.NewClient(ctx, cfg.ProjectID, option.WithoutAuthentication())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to firestore emulator: %w", err)
		}
		log.Println("Firestore: connected to emulator")
		return &FirestoreStore{client: client, collection: collection}, nil
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
		log.Println("Firestore: initializing from FIREBASE_SERVICE_ACCOUNT_JSON")
	case cfg.CredentialsFile != "":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file not found: %s", cfg.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		log.Printf("Firestore: initializing from %s", cfg.CredentialsFile)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

func (s *FirestoreStore) QueryTop(ctx context.Context, field string, limit int) ([]*ladder.Record, error) {
	iter := s.client.Collection(s.collection).
		OrderBy(field, firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var records []*ladder.Record
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", s.collection, err)
		}
		records = append(records, ladder.FromDocument(doc.Ref.ID, doc.Data()))
	}
	return records, nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*ladder.Record, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", s.collection, id, err)
	}
	return ladder.FromDocument(snap.Ref.ID, snap.Data()), nil
}

func (s *FirestoreStore) Merge(ctx context.Context, id string, fields map[string]any) error {
	if _, err := s.client.Collection(s.collection).Doc(id).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to merge %s/%s: %w", s.collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
