package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

type Params struct {
	ProjectID string
	// CredentialsFile is a service account JSON file. When empty, the application
	// default credentials are used (GOOGLE_APPLICATION_CREDENTIALS, metadata server).
	CredentialsFile string
}

// NewFirestoreClient initializes the Firebase app and returns its Firestore client.
func NewFirestoreClient(ctx context.Context, params Params) (*firestore.Client, error) {
	config := &firebase.Config{
		ProjectID: params.ProjectID,
	}

	var opts []option.ClientOption
	if params.CredentialsFile != "" {
		log.Debugf("firebase: using credentials file [%s]", params.CredentialsFile)
		opts = append(opts, option.WithCredentialsFile(params.CredentialsFile))
	} else {
		log.Debugln("firebase: using application default credentials")
	}

	app, err := firebase.NewApp(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firestore client: %w", err)
	}

	return client, nil
}
