package config

import (
	"fmt"

	"agendazap/models"

	"github.com/spf13/viper"
)

// LoadTenants reads the static tenant configuration file. The file maps
// tenant ids to their bridge endpoint, bot numbers, admin chat ids, flow name
// and payment credentials:
//
//	tenants:
//	  empresa1:
//	    bridge_url: http://waha:3000
//	    session: default
//	    numbers: ["5511999999999"]
//	    admins: ["5511888888888@c.us"]
//	    flow: barber
//	    mp_access_token: APP_USR-...
//
// Tenants are immutable for the process lifetime.
func LoadTenants(path string) (map[string]models.Tenant, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading tenants file %s: %w", path, err)
	}

	var raw struct {
		Tenants map[string]models.Tenant `mapstructure:"tenants"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("parsing tenants file %s: %w", path, err)
	}
	if len(raw.Tenants) == 0 {
		return nil, fmt.Errorf("tenants file %s declares no tenants", path)
	}

	for id, t := range raw.Tenants {
		t.ID = id
		if t.Session == "" {
			t.Session = "default"
		}
		raw.Tenants[id] = t
	}
	return raw.Tenants, nil
}
