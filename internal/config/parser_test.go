package config

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/zabbix-maintenance/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LoadReader_MinimalConfig(t *testing.T) {
	yaml := `
user: "Admin"
password: "zabbix"
server: "zabbix.example.com"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "Admin", cfg.Zabbix.User)
	assert.Equal(t, "zabbix", cfg.Zabbix.Password)
	assert.Equal(t, "zabbix.example.com", cfg.Zabbix.Server)
	// Check defaults
	assert.Equal(t, DefaultScheme, cfg.Zabbix.Scheme)
	assert.Equal(t, DefaultAPIPath, cfg.Zabbix.APIPath)
	assert.Equal(t, DefaultTimeout, cfg.Zabbix.Timeout)
	assert.False(t, cfg.Zabbix.Insecure)
	assert.False(t, cfg.Zabbix.LegacyAPI)
	assert.False(t, cfg.Zabbix.AuthHeader)
	assert.Nil(t, cfg.Notify)
	assert.Equal(t, "https://zabbix.example.com/api_jsonrpc.php", cfg.Zabbix.URL())
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
user: "maintenance"
password: "s3cret"
server: "monitor.internal:8443"
scheme: "http"
api_path: "zabbix/api_jsonrpc.php"
timeout: 12s
insecure: true
legacy_api: true
auth_header: true
hostname: "web01"

notify:
  urls:
    - "telegram://token@telegram?chats=@ops"
    - "generic://hooks.example.com/zabbix"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "maintenance", cfg.Zabbix.User)
	assert.Equal(t, "s3cret", cfg.Zabbix.Password)
	assert.Equal(t, "monitor.internal:8443", cfg.Zabbix.Server)
	assert.Equal(t, "http", cfg.Zabbix.Scheme)
	assert.Equal(t, "/zabbix/api_jsonrpc.php", cfg.Zabbix.APIPath)
	assert.Equal(t, 12*time.Second, cfg.Zabbix.Timeout)
	assert.True(t, cfg.Zabbix.Insecure)
	assert.True(t, cfg.Zabbix.LegacyAPI)
	assert.True(t, cfg.Zabbix.AuthHeader)
	assert.Equal(t, "web01", cfg.Hostname)
	assert.Equal(t, "http://monitor.internal:8443/zabbix/api_jsonrpc.php", cfg.Zabbix.URL())

	require.NotNil(t, cfg.Notify)
	assert.Equal(t, []string{
		"telegram://token@telegram?chats=@ops",
		"generic://hooks.example.com/zabbix",
	}, cfg.Notify.URLs)
}

func TestParser_LoadReader_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_ZABBIX_PASSWORD", "env_secret")
	t.Setenv("TEST_ZABBIX_SERVER", "env.example.com")

	yaml := `
user: "Admin"
password: "${TEST_ZABBIX_PASSWORD}"
server: "${TEST_ZABBIX_SERVER}"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "env_secret", cfg.Zabbix.Password)
	assert.Equal(t, "env.example.com", cfg.Zabbix.Server)
}

func TestParser_LoadReader_DollarInPassword(t *testing.T) {
	t.Setenv("ZBX_TEST_SECRET", "from_env")

	tests := []struct {
		password string
		want     string
	}{
		{password: "S3cr$et", want: "S3cr$et"},
		{password: "$$pa$$word", want: "$$pa$$word"},
		{password: "trailing$", want: "trailing$"},
		{password: "${UNSET_ZBX_TEST_VAR}", want: "${UNSET_ZBX_TEST_VAR}"},
		{password: "open${brace", want: "open${brace"},
		{password: "${ZBX_TEST_SECRET}", want: "from_env"},
		{password: "x${ZBX_TEST_SECRET}$y", want: "xfrom_env$y"},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			yaml := "user: Admin\npassword: '" + tt.password + "'\nserver: zabbix.example.com\n"

			cfg, err := NewParser().LoadReader(yaml)

			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Zabbix.Password)
		})
	}
}

func TestParser_LoadReader_Timeout(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{value: "5", want: 5 * time.Second},
		{value: "2.5", want: 2500 * time.Millisecond},
		{value: "5s", want: 5 * time.Second},
		{value: "1m30s", want: 90 * time.Second},
		{value: `"7"`, want: 7 * time.Second},
		{value: "abc", wantErr: true},
		{value: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			yaml := "user: Admin\npassword: zabbix\nserver: zabbix.example.com\ntimeout: " + tt.value + "\n"

			cfg, err := NewParser().LoadReader(yaml)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Zabbix.Timeout)
		})
	}
}

func TestParser_LoadReader_MissingKeys(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "missing user",
			yaml:   "password: zabbix\nserver: zabbix.example.com\n",
			errMsg: "user is required",
		},
		{
			name:   "missing password",
			yaml:   "user: Admin\nserver: zabbix.example.com\n",
			errMsg: "password is required",
		},
		{
			name:   "missing server",
			yaml:   "user: Admin\npassword: zabbix\n",
			errMsg: "server is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().LoadReader(tt.yaml)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParser_LoadReader_InvalidScheme(t *testing.T) {
	yaml := `
user: "Admin"
password: "zabbix"
server: "zabbix.example.com"
scheme: "ftp"
`
	_, err := NewParser().LoadReader(yaml)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "scheme must be one of")
}

func TestParser_LoadReader_NegativeTimeout(t *testing.T) {
	yaml := `
user: "Admin"
password: "zabbix"
server: "zabbix.example.com"
timeout: -1s
`
	_, err := NewParser().LoadReader(yaml)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParser_LoadReader_MalformedYAML(t *testing.T) {
	_, err := NewParser().LoadReader("user: [Admin\npassword")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParser_LoadReader_Notify_MissingURLs(t *testing.T) {
	yaml := `
user: "Admin"
password: "zabbix"
server: "zabbix.example.com"
notify:
  urls: []
`
	_, err := NewParser().LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify.urls is required")
}

func TestParser_LoadReader_DefaultHostname(t *testing.T) {
	lookupCNAME = func(string) (string, error) { return "", errors.New("no such host") }
	t.Cleanup(func() { lookupCNAME = net.LookupCNAME })

	yaml := `
user: "Admin"
password: "zabbix"
server: "zabbix.example.com"
`
	cfg, err := NewParser().LoadReader(yaml)

	require.NoError(t, err)
	expectedHost, _ := os.Hostname()
	assert.Equal(t, expectedHost, cfg.Hostname)
}

func TestParser_LoadReader_EnvOverrides(t *testing.T) {
	yaml := `
user: "Admin"
password: "zabbix"
server: "zabbix.example.com"
timeout: 3s
`
	parser := NewParserWithEnv(Env{Timeout: 30 * time.Second, Insecure: true})
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Zabbix.Timeout)
	assert.True(t, cfg.Zabbix.Insecure)
}

func TestParser_LoadReader_EncryptedPassword(t *testing.T) {
	encrypted, err := EncryptPassword("zabbix", "seckey")
	require.NoError(t, err)

	yaml := `
user: "Admin"
password: "` + encrypted + `"
server: "zabbix.example.com"
`
	t.Run("decrypts with key", func(t *testing.T) {
		cfg, err := NewParserWithEnv(Env{SecretKey: "seckey"}).LoadReader(yaml)

		require.NoError(t, err)
		assert.Equal(t, "zabbix", cfg.Zabbix.Password)
	})

	t.Run("fails without key", func(t *testing.T) {
		_, err := NewParser().LoadReader(yaml)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.ErrorIs(t, err, ErrNoSecretKey)
	})

	t.Run("fails with wrong key", func(t *testing.T) {
		_, err := NewParserWithEnv(Env{SecretKey: "other"}).LoadReader(yaml)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestParser_LoadFile(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "zabbix_maintenance.yml")
		content := "user: Admin\npassword: zabbix\nserver: zabbix.example.com\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := NewParser().LoadFile(path)

		require.NoError(t, err)
		assert.Equal(t, "Admin", cfg.Zabbix.User)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewParser().LoadFile(filepath.Join(t.TempDir(), "nope.yml"))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigNotFound)
		assert.NotErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *models.Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "nil config",
			cfg:     nil,
			wantErr: true,
			errMsg:  "configuration is nil",
		},
		{
			name: "missing user",
			cfg: &models.Config{
				Zabbix: models.ZabbixConfig{Password: "zabbix", Server: "zabbix.example.com"},
			},
			wantErr: true,
			errMsg:  "user is required",
		},
		{
			name: "missing password",
			cfg: &models.Config{
				Zabbix: models.ZabbixConfig{User: "Admin", Server: "zabbix.example.com"},
			},
			wantErr: true,
			errMsg:  "password is required",
		},
		{
			name: "missing server",
			cfg: &models.Config{
				Zabbix: models.ZabbixConfig{User: "Admin", Password: "zabbix"},
			},
			wantErr: true,
			errMsg:  "server is required",
		},
		{
			name: "valid config",
			cfg: &models.Config{
				Zabbix: models.ZabbixConfig{User: "Admin", Password: "zabbix", Server: "zabbix.example.com"},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
