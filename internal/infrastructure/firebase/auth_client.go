package firebase

import (
	"context"
	"fmt"

	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"installerhub/internal/domain/entity"
)

// FirebaseAuthClient verifies Firebase ID tokens issued to portal users.
// The viewer role and display name come from the "role" and "name" claims.
type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// Dial creates the Firebase app and its auth client for projectID.
func Dial(ctx context.Context, projectID, credentialsPath string) (*FirebaseAuthClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %v", err)
	}
	return NewFirebaseAuthClient(client), nil
}

func (f *FirebaseAuthClient) Verify(ctx context.Context, raw string) (entity.Participant, error) {
	token, err := f.client.VerifyIDToken(ctx, raw)
	if err != nil {
		return entity.Participant{}, err
	}
	return ViewerFromClaims(token.UID, token.Claims)
}

// ViewerFromClaims maps Firebase custom claims onto a participant. Tokens
// without a role claim belong to installers.
func ViewerFromClaims(uid string, claims map[string]interface{}) (entity.Participant, error) {
	viewer := entity.Participant{ID: uid, Type: entity.SenderInstaller}

	if name, ok := claims["name"].(string); ok {
		viewer.Name = name
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		viewer.Type = entity.SenderType(role)
	}
	if !viewer.Type.IsValid() {
		return entity.Participant{}, fmt.Errorf("unsupported role %q", viewer.Type)
	}
	if viewer.Name == "" {
		viewer.Name = uid
	}
	return viewer, nil
}
