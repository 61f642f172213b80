package config

import (
	"fmt"

	"github.com/byAyes/wbot/internal/core/secrets"
)

// SecretEnv holds the passphrase for sealed ("enc:") config values
const SecretEnv = "WBOT_SECRET"

// sealable lists every credential that may be stored sealed
func (c *Config) sealable() map[string]*string {
	return map[string]*string{
		"providers.primary.api_key":   &c.Providers.Primary.APIKey,
		"providers.secondary.api_key": &c.Providers.Secondary.APIKey,
		"telegram.app_hash":           &c.Telegram.AppHash,
		"telegram.bot_token":          &c.Telegram.BotToken,
		"server.api_key":              &c.Server.APIKey,
	}
}

// Unseal decrypts sealed credentials in place. Plain values are left alone.
func (c *Config) Unseal(passphrase string) error {
	for name, field := range c.sealable() {
		if !secrets.IsSealed(*field) {
			continue
		}
		if passphrase == "" {
			return fmt.Errorf("%s is sealed; set %s", name, SecretEnv)
		}
		plain, err := secrets.Open(*field, passphrase)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*field = plain
	}
	return nil
}
