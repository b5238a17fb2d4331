package models

import "github.com/google/uuid"

// User is the authoritative relational-store row for a registered account.
// A shadow User{id} node exists in the graph solely to anchor the
// :COLLECTED and :WANTS relationships.
type User struct {
	BaseUUIDModel
	Email          string `gorm:"type:text;not null;uniqueIndex" json:"email"`
	HashedPassword string `gorm:"type:text;not null"             json:"-"`
	IsActive       bool   `gorm:"not null;default:true"          json:"isActive"`
}

// TableName pins the table name explicitly rather than relying on GORM's
// pluralization, matching the minimum schema named in the external
// interfaces contract.
func (User) TableName() string { return "users" }

// OAuthToken holds one user's linked Discogs credentials. Secrets are
// expected to be stored encrypted under an at-rest key distinct from the
// JWT signing key; encryption at that layer is the deployment's
// responsibility, this model stores whatever ciphertext it is given.
type OAuthToken struct {
	BaseUUIDModel
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_oauth_tokens_user_provider" json:"userId"`
	Provider         string    `gorm:"type:text;not null;default:'discogs';uniqueIndex:idx_oauth_tokens_user_provider" json:"provider"`
	AccessToken      string    `gorm:"type:text;not null" json:"-"`
	AccessSecret     string    `gorm:"type:text;not null" json:"-"`
	ProviderUsername string    `gorm:"type:text"          json:"providerUsername"`
}

func (OAuthToken) TableName() string { return "oauth_tokens" }

// AppConfig holds deployment-wide key/value settings, notably the Discogs
// application consumer key/secret written once at deployment.
type AppConfig struct {
	Key   string `gorm:"type:text;primaryKey" json:"key"`
	Value string `gorm:"type:text;not null"   json:"value"`
}

func (AppConfig) TableName() string { return "app_config" }

const (
	AppConfigDiscogsConsumerKey    = "discogs_consumer_key"
	AppConfigDiscogsConsumerSecret = "discogs_consumer_secret"
)
