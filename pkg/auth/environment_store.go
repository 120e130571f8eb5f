package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads a single read-only profile from EMMAKIT_* variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve builds credentials from the environment; profile only labels the result
func (e *EnvironmentStore) Retrieve(profile string) (*Credentials, error) {
	if profile == "" {
		profile = "default"
	}

	creds := &Credentials{
		Profile:         profile,
		ConsumerKey:     os.Getenv("EMMAKIT_TWITTER_CONSUMER_KEY"),
		ConsumerSecret:  os.Getenv("EMMAKIT_TWITTER_CONSUMER_SECRET"),
		AccessToken:     os.Getenv("EMMAKIT_TWITTER_ACCESS_TOKEN"),
		AccessSecret:    os.Getenv("EMMAKIT_TWITTER_ACCESS_SECRET"),
		AppID:           os.Getenv("EMMAKIT_FACEBOOK_APP_ID"),
		AppSecret:       os.Getenv("EMMAKIT_FACEBOOK_APP_SECRET"),
		PageAccessToken: os.Getenv("EMMAKIT_FACEBOOK_PAGE_ACCESS_TOKEN"),
		LastModified:    time.Now(),
	}

	if !creds.HasTwitter() && !creds.HasFacebook() {
		return nil, ErrCredentialsNotFound
	}

	return creds, nil
}

// List returns a single profile if the environment carries credentials
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(profile string) bool {
	_, err := e.Retrieve(profile)
	return err == nil
}
