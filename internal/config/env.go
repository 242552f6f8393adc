package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/sweeney/triggerpi/internal/status"
)

// Environment variables written by pi-helper.
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// ReadNetworkEnv reads network info from the pi-helper env file at path,
// falling back to the process environment when the file can't be read.
// Returns nil when no network status is known.
func ReadNetworkEnv(path string) *status.NetworkInfo {
	env, err := godotenv.Read(path)
	if err != nil {
		env = map[string]string{}
	}
	get := func(k string) string {
		if v, ok := env[k]; ok {
			return v
		}
		return os.Getenv(k)
	}

	s := get(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       get(envNetworkType),
		IP:         get(envNetworkIP),
		Status:     s,
		Gateway:    get(envNetworkGateway),
		WifiStatus: get(envNetworkWifiStatus),
		SSID:       get(envNetworkWifiSSID),
	}
}
