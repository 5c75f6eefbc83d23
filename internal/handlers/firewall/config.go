package firewall

import (
	"slices"
	"time"

	fw "github.com/charleshuang3/firewall"
	"github.com/creasty/defaults"
)

type ForgivableError struct {
	DurationInMinute uint `yaml:"duration_in_minute" default:"10"`
	Count            uint `yaml:"count" default:"3"`
}

type FirewallConfig struct {
	// Provider empty disables the firewall, "none" only logs.
	Provider         string          `yaml:"provider"`
	ProviderIP       string          `yaml:"provider_ip"`
	ProviderUser     string          `yaml:"provider_user"`
	ProviderPassword string          `yaml:"provider_password" env:"INVITEGATE_FIREWALL_PASSWORD"`
	ListUUID         string          `yaml:"list_uuid"`
	BanMinutes       uint            `yaml:"ban_minutes" default:"10"`
	Whitelist        []string        `yaml:"whitelist"`
	Forgivable       ForgivableError `yaml:"forgivable"`

	// Geo databases are optional, all four files or none.
	CityDBFile        string `yaml:"city_db_file"`
	UpdatedCityDBFile string `yaml:"updated_city_db_file"`
	ASNDBFile         string `yaml:"asn_db_file"`
	UpdatedASNDBFile  string `yaml:"updated_asn_db_file"`

	GoogleKeyFile   string `yaml:"google_key_file"`
	GoogleProjectID string `yaml:"google_project_id"`
}

var (
	supportedProviders = []string{"none", "ros", "opn", "pf"}
)

func (c *FirewallConfig) Enabled() bool {
	return c.Provider != ""
}

func (c *FirewallConfig) geoFiles() []string {
	return []string{c.CityDBFile, c.UpdatedCityDBFile, c.ASNDBFile, c.UpdatedASNDBFile}
}

func (c *FirewallConfig) hasGeo() bool {
	return slices.ContainsFunc(c.geoFiles(), func(f string) bool { return f != "" })
}

// missing lists the yaml keys an enabled firewall still needs.
func (c *FirewallConfig) missing() []string {
	var keys []string
	if c.Provider != "none" {
		required := []struct {
			key   string
			value string
		}{
			{"provider_ip", c.ProviderIP},
			{"provider_user", c.ProviderUser},
			{"provider_password", c.ProviderPassword},
		}
		if c.Provider == "opn" {
			required = append(required, struct {
				key   string
				value string
			}{"list_uuid", c.ListUUID})
		}
		for _, r := range required {
			if r.value == "" {
				keys = append(keys, r.key)
			}
		}
	}

	if c.hasGeo() && slices.Contains(c.geoFiles(), "") {
		keys = append(keys, "geo db files")
	}
	if c.GoogleKeyFile != "" && c.GoogleProjectID == "" {
		keys = append(keys, "google_project_id")
	}
	return keys
}

// Validate does nothing for a disabled firewall. Zero durations and counts
// fall back to their defaults.
func (c *FirewallConfig) Validate() {
	if !c.Enabled() {
		return
	}

	if !slices.Contains(supportedProviders, c.Provider) {
		logger.Fatal().Strs("supported", supportedProviders).Msgf("FirewallConfig: unknown provider %q", c.Provider)
	}

	if keys := c.missing(); len(keys) > 0 {
		logger.Fatal().Strs("missing", keys).Msgf("FirewallConfig: incomplete %q provider", c.Provider)
	}

	if err := defaults.Set(c); err != nil {
		logger.Fatal().Err(err).Msg("FirewallConfig: failed to apply defaults")
	}
}

func (c *FirewallConfig) forgivable() fw.ForgivableError {
	return fw.ForgivableError{
		Duration:    time.Duration(c.Forgivable.DurationInMinute) * time.Minute,
		Count:       int(c.Forgivable.Count),
		BanInMinute: int(c.BanMinutes),
	}
}
