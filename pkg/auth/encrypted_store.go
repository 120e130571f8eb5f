package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	credentialFileVersion = 2
	saltSize              = 32
	keySize               = 32
	kdfIterations         = 100000
	passphraseEnv         = "EMMAKIT_PASSPHRASE"
)

const (
	providerTwitter  = "twitter"
	providerFacebook = "facebook"
)

// EncryptedFileStore keeps each profile's Twitter and Facebook key sets in a
// local file. Every key set is sealed on its own with AES-GCM under a key
// derived by PBKDF2 from EMMAKIT_PASSPHRASE (or a generated key file), and
// bound to its profile and provider so sealed sets cannot be swapped.
type EncryptedFileStore struct {
	path       string
	passphrase []byte
	mu         sync.RWMutex
}

// credentialFile is the on-disk layout; profile names stay readable
type credentialFile struct {
	Version  int                      `json:"version"`
	Salt     []byte                   `json:"salt"`
	Profiles map[string]sealedProfile `json:"profiles"`
}

type sealedProfile struct {
	Twitter  []byte    `json:"twitter,omitempty"`
	Facebook []byte    `json:"facebook,omitempty"`
	Modified time.Time `json:"modified"`
}

type twitterKeys struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	AccessToken    string `json:"access_token"`
	AccessSecret   string `json:"access_secret"`
}

type facebookKeys struct {
	AppID           string `json:"app_id"`
	AppSecret       string `json:"app_secret"`
	PageAccessToken string `json:"page_access_token,omitempty"`
}

// NewEncryptedFileStore opens (or prepares) the credential file at path
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}

	passphrase, err := loadPassphrase()
	if err != nil {
		return nil, err
	}

	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store seals the provider key sets present in creds. A provider the
// profile already holds keys for and creds leaves empty is kept.
func (e *EncryptedFileStore) Store(creds *Credentials) error {
	if creds == nil {
		return ErrInvalidCredentials
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := e.load()
	if err != nil {
		return err
	}
	key := e.deriveKey(file.Salt)

	sealed := file.Profiles[creds.Profile]
	if creds.HasTwitter() {
		sealed.Twitter, err = seal(key, binding(creds.Profile, providerTwitter), twitterKeys{
			ConsumerKey:    creds.ConsumerKey,
			ConsumerSecret: creds.ConsumerSecret,
			AccessToken:    creds.AccessToken,
			AccessSecret:   creds.AccessSecret,
		})
		if err != nil {
			return err
		}
	}
	if creds.HasFacebook() {
		sealed.Facebook, err = seal(key, binding(creds.Profile, providerFacebook), facebookKeys{
			AppID:           creds.AppID,
			AppSecret:       creds.AppSecret,
			PageAccessToken: creds.PageAccessToken,
		})
		if err != nil {
			return err
		}
	}

	sealed.Modified = creds.LastModified
	if sealed.Modified.IsZero() {
		sealed.Modified = time.Now()
	}
	file.Profiles[creds.Profile] = sealed

	return e.save(file)
}

// Retrieve opens every key set stored for profile
func (e *EncryptedFileStore) Retrieve(profile string) (*Credentials, error) {
	if profile == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	file, err := e.load()
	if err != nil {
		return nil, err
	}
	sealed, ok := file.Profiles[profile]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return open(e.deriveKey(file.Salt), profile, sealed)
}

// List opens every stored profile, ordered by name
func (e *EncryptedFileStore) List() ([]*Credentials, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	file, err := e.load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(file.Profiles))
	for name := range file.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	key := e.deriveKey(file.Salt)
	list := make([]*Credentials, 0, len(names))
	for _, name := range names {
		creds, err := open(key, name, file.Profiles[name])
		if err != nil {
			return nil, err
		}
		list = append(list, creds)
	}
	return list, nil
}

// Delete removes profile; the file goes away with its last profile
func (e *EncryptedFileStore) Delete(profile string) error {
	if profile == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := e.load()
	if err != nil {
		return err
	}
	if _, ok := file.Profiles[profile]; !ok {
		return ErrCredentialsNotFound
	}
	delete(file.Profiles, profile)

	if len(file.Profiles) == 0 {
		return os.Remove(e.path)
	}
	return e.save(file)
}

// Exists reports whether profile has an entry, without decrypting it
func (e *EncryptedFileStore) Exists(profile string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	file, err := e.load()
	if err != nil {
		return false
	}
	_, ok := file.Profiles[profile]
	return ok
}

// load reads the credential file, or returns an empty one with a fresh salt
func (e *EncryptedFileStore) load() (*credentialFile, error) {
	content, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		return &credentialFile{
			Version:  credentialFileVersion,
			Salt:     salt,
			Profiles: make(map[string]sealedProfile),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var file credentialFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}
	if file.Version != credentialFileVersion {
		return nil, fmt.Errorf("unsupported credential file version %d", file.Version)
	}
	if len(file.Salt) != saltSize {
		return nil, errors.New("credential file has an invalid salt")
	}
	if file.Profiles == nil {
		file.Profiles = make(map[string]sealedProfile)
	}
	return &file, nil
}

// save writes the file atomically with owner-only permissions
func (e *EncryptedFileStore) save(file *credentialFile) error {
	content, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential file: %w", err)
	}

	tempFile := e.path + ".tmp"
	if err := os.WriteFile(tempFile, content, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return os.Rename(tempFile, e.path)
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(e.passphrase, salt, kdfIterations, keySize, sha256.New)
}

// binding is the additional data a key set is sealed with
func binding(profile, provider string) []byte {
	return []byte(provider + "/" + profile)
}

func open(key []byte, profile string, sealed sealedProfile) (*Credentials, error) {
	creds := &Credentials{Profile: profile, LastModified: sealed.Modified}

	if len(sealed.Twitter) > 0 {
		var keys twitterKeys
		if err := unseal(key, binding(profile, providerTwitter), sealed.Twitter, &keys); err != nil {
			return nil, fmt.Errorf("failed to open twitter keys of %q: %w", profile, err)
		}
		creds.ConsumerKey = keys.ConsumerKey
		creds.ConsumerSecret = keys.ConsumerSecret
		creds.AccessToken = keys.AccessToken
		creds.AccessSecret = keys.AccessSecret
	}
	if len(sealed.Facebook) > 0 {
		var keys facebookKeys
		if err := unseal(key, binding(profile, providerFacebook), sealed.Facebook, &keys); err != nil {
			return nil, fmt.Errorf("failed to open facebook keys of %q: %w", profile, err)
		}
		creds.AppID = keys.AppID
		creds.AppSecret = keys.AppSecret
		creds.PageAccessToken = keys.PageAccessToken
	}
	return creds, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts the JSON form of v, prefixed with its nonce
func seal(key, additional []byte, v interface{}) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, additional), nil
}

func unseal(key, additional, sealed []byte, v interface{}) error {
	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	if len(sealed) < gcm.NonceSize() {
		return errors.New("sealed key set too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}

// loadPassphrase reads EMMAKIT_PASSPHRASE, falling back to a key file in
// the config directory that is generated on first use.
func loadPassphrase() ([]byte, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return []byte(p), nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, err
	}
	keyFile := filepath.Join(configDir, "credentials.key")

	if content, err := os.ReadFile(keyFile); err == nil && len(content) > 0 {
		return content, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	generated := []byte(base64.RawURLEncoding.EncodeToString(raw))
	if err := os.WriteFile(keyFile, generated, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return generated, nil
}
