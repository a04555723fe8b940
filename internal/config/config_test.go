package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "America/Mexico_City", cfg.Timezone)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "08:00", cfg.Scheduler.DigestTime)
	assert.Equal(t, 300, cfg.Scheduler.ReminderIntervalSec)
	assert.Equal(t, "INBOX", cfg.Email.IMAP.Mailbox)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.NotEmpty(t, cfg.Database.Path)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: America/Bogota
whatsapp:
  phone_number_id: "12345"
scheduler:
  digest_time: "07:30"
`), 0o600))

	t.Setenv("WHATSAPP_ACCESS_TOKEN", "from-env")
	t.Setenv("ASSISTANT_SERVER_ADDR", ":9000")
	t.Setenv("ASSISTANT_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "America/Bogota", cfg.Timezone)
	assert.Equal(t, "12345", cfg.WhatsApp.PhoneNumberID)
	assert.Equal(t, "from-env", cfg.WhatsApp.AccessToken)
	assert.True(t, cfg.WhatsApp.Enabled())
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "07:30", cfg.Scheduler.DigestTime)
	assert.Equal(t, "America/Bogota", cfg.Location().String())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"tz.yaml":    "timezone: Mars/Olympus_Mons\n",
		"clock.yaml": "scheduler:\n  digest_time: \"8am\"\n",
		"yaml.yaml":  "timezone: [unclosed\n",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.WhatsApp.PhoneNumberID = "999"
	cfg.WhatsApp.AccessToken = SecretPrefix + "whatsapp_token"
	cfg.Scheduler.DigestTime = "09:15"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "999", loaded.WhatsApp.PhoneNumberID)
	assert.Equal(t, "keyring:whatsapp_token", loaded.WhatsApp.AccessToken)
	assert.Equal(t, "09:15", loaded.Scheduler.DigestTime)
	assert.Equal(t, cfg.Timezone, loaded.Timezone)
}

func TestResolveSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.WhatsApp.AccessToken = "keyring:wa"
	cfg.WhatsApp.VerifyToken = "plain"
	cfg.Email.SMTP.Password = "keyring:smtp"

	lookups := map[string]string{"wa": "token-1", "smtp": "pw"}
	require.NoError(t, cfg.ResolveSecrets(func(name string) (string, error) {
		v, ok := lookups[name]
		if !ok {
			return "", errors.New("missing")
		}
		return v, nil
	}))
	assert.Equal(t, "token-1", cfg.WhatsApp.AccessToken)
	assert.Equal(t, "plain", cfg.WhatsApp.VerifyToken)
	assert.Equal(t, "pw", cfg.Email.SMTP.Password)

	cfg.Email.IMAP.Password = "keyring:imap"
	assert.Error(t, cfg.ResolveSecrets(func(string) (string, error) {
		return "", errors.New("missing")
	}))
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("08:05")
	require.NoError(t, err)
	assert.Equal(t, 8, h)
	assert.Equal(t, 5, m)

	_, _, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 5*time.Second, Seconds(5, time.Minute))
	assert.Equal(t, time.Minute, Seconds(0, time.Minute))
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o600))

	levels := make(chan string, 16)
	require.NoError(t, Watch(path,
		func(cfg *Config) { levels <- cfg.Logging.Level },
		func(error) {},
	))

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case level := <-levels:
			if level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
