package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// File mirrors the configuration file. Keys named after the original line
// format keep their names in YAML.
type File struct {
	HTTPURL       string `yaml:"http_url" env:"FTP2HTTP_HTTP_URL"`
	HTTPBasicAuth bool   `yaml:"http_basic_auth" env:"FTP2HTTP_HTTP_BASIC_AUTH"`
	// AuthenticationBackends may be relative to HTTPURL.
	AuthenticationBackends []string `yaml:"authentication_backend"`
	Users                  []User   `yaml:"users"`

	ListenHost        string `yaml:"listen_host" env:"FTP2HTTP_LISTEN_HOST"`
	ListenPort        int    `yaml:"listen_port" env:"FTP2HTTP_LISTEN_PORT"`
	ListenFD          int    `yaml:"listen_fd" env:"FTP2HTTP_LISTEN_FD"`
	PassivePortMin    int    `yaml:"passive_port_min" env:"FTP2HTTP_PASSIVE_PORT_MIN"`
	PassivePortMax    int    `yaml:"passive_port_max" env:"FTP2HTTP_PASSIVE_PORT_MAX"`
	MasqueradeAddress string `yaml:"masquerade_address" env:"FTP2HTTP_MASQUERADE_ADDRESS"`
	SSLCertPath       string `yaml:"ssl_cert_path" env:"FTP2HTTP_SSL_CERT_PATH"`

	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"FTP2HTTP_IDLE_TIMEOUT"`
	Banner         string        `yaml:"banner" env:"FTP2HTTP_BANNER"`
	RelayTimeout   time.Duration `yaml:"relay_timeout" env:"FTP2HTTP_RELAY_TIMEOUT"`
	SpoolThreshold int64         `yaml:"spool_threshold" env:"FTP2HTTP_SPOOL_THRESHOLD"`
	TempDir        string        `yaml:"temp_dir" env:"FTP2HTTP_TEMP_DIR"`
	MetricsAddr    string        `yaml:"metrics_addr" env:"FTP2HTTP_METRICS_ADDR"`
	RedisAddr      string        `yaml:"redis_addr" env:"FTP2HTTP_REDIS_ADDR"`
	AuditLog       string        `yaml:"audit_log" env:"FTP2HTTP_AUDIT_LOG"`

	LoginThrottle Throttle    `yaml:"login_throttle"`
	UploadToken   UploadToken `yaml:"upload_token"`
}

// User is one local account.
type User struct {
	Name         string `yaml:"name"`
	Hash         string `yaml:"hash"`
	Perm         string `yaml:"perm"`
	LoginMessage string `yaml:"login_message"`
	QuitMessage  string `yaml:"quit_message"`
}

// Throttle enables redis-backed failed-login throttling.
type Throttle struct {
	Enabled     bool          `yaml:"enabled" env:"FTP2HTTP_LOGIN_THROTTLE"`
	PerIP       bool          `yaml:"per_ip"`
	MaxAttempts int           `yaml:"max_attempts"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// UploadToken enables the signed token header on relays.
type UploadToken struct {
	Enabled bool          `yaml:"enabled" env:"FTP2HTTP_UPLOAD_TOKEN"`
	Method  string        `yaml:"signing_method"`
	KeyPath string        `yaml:"key_path" env:"FTP2HTTP_UPLOAD_TOKEN_KEY_PATH"`
	Header  string        `yaml:"header"`
	TTL     time.Duration `yaml:"ttl"`
	Issuer  string        `yaml:"issuer"`
	KeyID   string        `yaml:"key_id"`
}

const defaultListenPort = 21

func defaults() File {
	return File{
		ListenPort: defaultListenPort,
		ListenFD:   -1,
	}
}

// Load reads path, then applies environment overrides.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("cannot find configuration file: %s", path)
		}
		return nil, err
	}

	var f *File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err = ParseYAML(data)
	default:
		f, err = ParseLegacy(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := f.applyEnv(); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseYAML decodes a YAML configuration.
func ParseYAML(data []byte) (*File, error) {
	f := defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &f, nil
}

// ParseLegacy decodes the line format.
func ParseLegacy(r io.Reader) (*File, error) {
	f := defaults()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key: value", lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := f.setLegacy(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) setLegacy(key, value string) error {
	var err error
	switch key {
	case "user":
		name, hash, ok := strings.Cut(value, ":")
		if !ok || name == "" {
			return errors.New("user must be name:hash")
		}
		f.Users = append(f.Users, User{Name: name, Hash: hash})
	case "http_basic_auth":
		f.HTTPBasicAuth, err = parseBool(key, value)
	case "authentication_backend":
		f.AuthenticationBackends = append(f.AuthenticationBackends, value)
	case "http_url":
		f.HTTPURL = value
	case "masquerade_address":
		f.MasqueradeAddress = value
	case "ssl_cert_path":
		f.SSLCertPath = value
	case "listen_host":
		f.ListenHost = value
	case "listen_port":
		f.ListenPort, err = atoi(key, value)
	case "listen_fd":
		f.ListenFD, err = atoi(key, value)
	case "passive_port_min":
		f.PassivePortMin, err = atoi(key, value)
	case "passive_port_max":
		f.PassivePortMax, err = atoi(key, value)
	case "idle_timeout":
		f.IdleTimeout, err = parseDuration(key, value)
	case "banner":
		f.Banner = value
	case "relay_timeout":
		f.RelayTimeout, err = parseDuration(key, value)
	case "spool_threshold":
		f.SpoolThreshold, err = strconv.ParseInt(value, 10, 64)
		if err != nil {
			err = fmt.Errorf("%s must be an integer: %q", key, value)
		}
	case "temp_dir":
		f.TempDir = value
	case "metrics_addr":
		f.MetricsAddr = value
	case "redis_addr":
		f.RedisAddr = value
	case "audit_log":
		f.AuditLog = value
	case "login_throttle":
		f.LoginThrottle.Enabled, err = parseBool(key, value)
	case "upload_token":
		f.UploadToken.Enabled, err = parseBool(key, value)
	case "upload_token_key_path":
		f.UploadToken.KeyPath = value
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return err
}

func parseBool(key, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("unknown value for %s: %s", key, value)
	}
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %q", key, value)
	}
	return d, nil
}

func atoi(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", key, value)
	}
	return n, nil
}

func (f *File) applyEnv() error {
	err := envdecode.Decode(f)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}
