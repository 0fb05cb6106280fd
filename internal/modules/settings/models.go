package settings

// Preference keys stored in user_settings
const (
	KeyBaseCurrency     = "base_currency"
	KeyDefaultAccountID = "default_account_id"
)

// Preferences are the per-user settings exposed by the API.
// Empty fields mean "use the service default".
type Preferences struct {
	BaseCurrency     string `json:"base_currency"`
	DefaultAccountID string `json:"default_account_id,omitempty"`
}

// GlobalKeys are the settings-table keys that override environment
// configuration. Overrides apply on the next start.
var GlobalKeys = map[string]bool{
	"base_currency":            false,
	"exchange_rate_api_key":    true,
	"gemini_api_key":           true,
	"backup_enabled":           false,
	"backup_access_key_id":     true,
	"backup_secret_access_key": true,
}

// IsSecret reports whether a global key holds a credential that must not be
// echoed back.
func IsSecret(key string) bool {
	return GlobalKeys[key]
}
