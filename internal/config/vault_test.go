package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"skrut/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

// fakeVault serves the two endpoints the client touches: health and one KVv2 read
func fakeVault(t *testing.T, secretPath string, data map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sys/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"initialized":  true,
			"sealed":       false,
			"standby":      false,
			"version":      "1.15.0",
			"cluster_name": "skrut-test",
		})
	})
	mux.HandleFunc("/v1/"+secretPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "json number", input: json.Number("7"), expected: 7},
		{name: "int64", input: int64(42), expected: 42},
		{name: "float64", input: float64(42.0), expected: 42},
		{name: "string", input: "42", expected: 42},
		{name: "bad string", input: "not-a-number", expectError: true},
		{name: "bad json number", input: json.Number("1.5"), expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/skrut")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestApplyModelKeysToConfig(t *testing.T) {
	t.Run("shared key fills empty roles", func(t *testing.T) {
		cfg := &Config{AI: AIConfig{APIKey: "from-env"}}
		applied := applyModelKeysToConfig(cfg, &VaultSecret{Data: map[string]any{"api_key": "vault-key"}}, nil)

		assert.Equal(t, 1, applied)
		assert.Equal(t, "vault-key", cfg.AI.APIKey)
		assert.Equal(t, "vault-key", cfg.AI.Reviewer.APIKey)
		assert.Equal(t, "vault-key", cfg.AI.Auditor.APIKey)
	})

	t.Run("role keys override shared key", func(t *testing.T) {
		cfg := &Config{AI: AIConfig{Auditor: OperationAIConfig{APIKey: "configured-auditor"}}}
		applied := applyModelKeysToConfig(cfg, &VaultSecret{Data: map[string]any{
			"api_key":          "vault-key",
			"reviewer_api_key": "vault-reviewer",
		}}, newTestLogger())

		assert.Equal(t, 2, applied)
		assert.Equal(t, "vault-reviewer", cfg.AI.Reviewer.APIKey)
		assert.Equal(t, "configured-auditor", cfg.AI.Auditor.APIKey)
	})

	t.Run("non-string values ignored", func(t *testing.T) {
		cfg := &Config{}
		assert.Zero(t, applyModelKeysToConfig(cfg, &VaultSecret{Data: map[string]any{"api_key": 12345}}, newTestLogger()))
		assert.Empty(t, cfg.AI.APIKey)
	})
}

func TestResolveVaultToken(t *testing.T) {
	logger := newTestLogger()

	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		require.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"}, logger)
		assert.ErrorContains(t, err, "failed to read vault token file")
	})

	t.Run("no token", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{}, logger)
		assert.ErrorContains(t, err, "vault token is required")
	})
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{AI: AIConfig{APIKey: "unchanged"}}
	require.NoError(t, ApplyVaultSecrets(cfg, newTestLogger()))
	assert.Equal(t, "unchanged", cfg.AI.APIKey)
}

func TestApplyVaultSecretsReadsModelKey(t *testing.T) {
	srv := fakeVault(t, "secret/data/skrut", map[string]any{"api_key": "sk-from-vault"})

	cfg := &Config{
		Vault: VaultConfig{
			Enabled: true,
			Address: srv.URL,
			Token:   "test-token",
			Secrets: VaultSecrets{ModelKey: "secret/data/skrut"},
		},
	}

	require.NoError(t, ApplyVaultSecrets(cfg, newTestLogger()))
	assert.Equal(t, "sk-from-vault", cfg.AI.APIKey)
	assert.Equal(t, "sk-from-vault", cfg.GetReviewerConfig().APIKey)
	assert.Equal(t, "sk-from-vault", cfg.GetAuditorConfig().APIKey)
}

func TestVaultSecretStringValue(t *testing.T) {
	srv := fakeVault(t, "secret/data/skrut", map[string]any{"api_key": "sk-123456789", "count": 3})

	vc, err := NewVaultClient(VaultConfig{Enabled: true, Address: srv.URL, Token: "test-token"}, newTestLogger())
	require.NoError(t, err)

	secret, err := vc.GetSecretV2("secret/data/skrut")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)

	value, err := secret.StringValue("api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-123456789", value)

	_, err = secret.StringValue("missing")
	assert.ErrorContains(t, err, "not found")

	_, err = secret.StringValue("count")
	assert.ErrorContains(t, err, "not a string")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "sk-1****6789", maskSecret("sk-123456789"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Empty(t, maskSecret(""))
}

func TestApplyVaultSecretsRoleKeys(t *testing.T) {
	srv := fakeVault(t, "secret/data/skrut", map[string]any{
		"api_key":          "sk-shared-key",
		"auditor_api_key":  "sk-auditor-key",
		"reviewer_api_key": 42,
	})

	cfg := &Config{
		Vault: VaultConfig{
			Enabled: true,
			Address: srv.URL,
			Token:   "test-token",
			Secrets: VaultSecrets{ModelKey: "secret/data/skrut"},
		},
	}

	require.NoError(t, ApplyVaultSecrets(cfg, newTestLogger()))
	assert.Equal(t, "sk-shared-key", cfg.GetReviewerConfig().APIKey, "non-string role key falls back to the shared key")
	assert.Equal(t, "sk-auditor-key", cfg.GetAuditorConfig().APIKey)
}

func TestGetSecretV2NilClient(t *testing.T) {
	var vc *VaultClient
	_, err := vc.GetSecretV2("secret/data/skrut")
	assert.ErrorContains(t, err, "not initialized")
}
