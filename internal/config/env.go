package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvHome           = "CHAINPAY_HOME"
	EnvNetwork        = "CHAINPAY_NETWORK"
	EnvRPCPrefix      = "CHAINPAY_RPC_"
	EnvKeystore       = "CHAINPAY_KEYSTORE"
	EnvOutputFormat   = "CHAINPAY_OUTPUT_FORMAT"
	EnvVerbose        = "CHAINPAY_VERBOSE"
	EnvLogLevel       = "CHAINPAY_LOG_LEVEL"
	EnvConfirmTimeout = "CHAINPAY_CONFIRM_TIMEOUT"
	EnvNoColor        = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
func ApplyEnvironment(cfg *Config) {
	applyEnvironment(cfg, os.Environ())
}

//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func applyEnvironment(cfg *Config, environ []string) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}

	if v := env[EnvHome]; v != "" {
		cfg.Home = v
	}

	if v := env[EnvNetwork]; v != "" {
		cfg.Network = strings.TrimSpace(v)
	}

	if v := env[EnvKeystore]; v != "" {
		cfg.Wallet.Keystore = v
	}

	if v := env[EnvOutputFormat]; v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := env[EnvVerbose]; v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := env[EnvLogLevel]; v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// Accepts Go durations ("90s") or whole seconds
	if v := env[EnvConfirmTimeout]; v != "" {
		if d, ok := parseDuration(v); ok {
			cfg.Payment.ConfirmTimeout = d
		}
	}

	// NO_COLOR disables colored output
	if _, ok := env[EnvNoColor]; ok {
		cfg.Output.Color = "never"
	}

	// CHAINPAY_RPC_<CHAINID> overrides a network's RPC endpoint
	for k, v := range env {
		id, ok := strings.CutPrefix(k, EnvRPCPrefix)
		if !ok || v == "" {
			continue
		}
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			continue
		}
		u := SanitizeURL(v)
		if u == "" {
			continue
		}
		if cfg.Networks == nil {
			cfg.Networks = map[string]NetworkOverride{}
		}
		o := cfg.Networks[id]
		o.RPC = u
		cfg.Networks[id] = o
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

func parseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// SanitizeURL trims copy-paste artifacts from an RPC URL and returns ""
// unless it is an absolute http(s) or ws(s) URL.
func SanitizeURL(raw string) string {
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		return u.String()
	default:
		return ""
	}
}
