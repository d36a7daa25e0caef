package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	type want struct {
		apiURL  string
		key     string
		prefs   string
		timeout time.Duration
		feeRate float64
		feeMin  int64
	}

	tests := []struct {
		name  string
		env   map[string]string
		flags []string
		want  want
	}{
		{
			name:  "defaults with key flag",
			env:   map[string]string{},
			flags: []string{"-k", "pk_test_1"},
			want: want{
				apiURL:  DefaultAPIURL,
				key:     "pk_test_1",
				prefs:   DefaultPrefs(),
				timeout: DefaultTimeout,
				feeRate: DefaultFeeRate,
				feeMin:  DefaultFeeMinimumCents,
			},
		},
		{
			name: "env only",
			env: map[string]string{
				"GOLDY_API_URL":           "https://api.goldy.test/",
				"GOLDY_PUBLISHABLE_KEY":   "pk_env",
				"GOLDY_PREFS":             "memory://",
				"GOLDY_TIMEOUT":           "10s",
				"GOLDY_FEE_RATE":          "0",
				"GOLDY_FEE_MINIMUM_CENTS": "0",
			},
			flags: []string{},
			want: want{
				apiURL:  "https://api.goldy.test",
				key:     "pk_env",
				prefs:   "memory://",
				timeout: 10 * time.Second,
			},
		},
		{
			name: "flags only",
			env:  map[string]string{},
			flags: []string{
				"-a", "http://flag:8080",
				"-k", "pk_flag",
				"-p", "sqlite:///tmp/goldy.db",
				"-t", "5s",
				"--fee-rate", "0.05",
				"--fee-minimum-cents", "100",
			},
			want: want{
				apiURL:  "http://flag:8080",
				key:     "pk_flag",
				prefs:   "sqlite:///tmp/goldy.db",
				timeout: 5 * time.Second,
				feeRate: 0.05,
				feeMin:  100,
			},
		},
		{
			name: "env overrides flags",
			env: map[string]string{
				"GOLDY_API_URL":         "http://env:9000",
				"GOLDY_PUBLISHABLE_KEY": "pk_env",
				"GOLDY_TIMEOUT":         "20s",
			},
			flags: []string{
				"-a", "http://flag:8000",
				"-k", "pk_flag",
				"-t", "5s",
			},
			want: want{
				apiURL:  "http://env:9000",
				key:     "pk_env",
				prefs:   DefaultPrefs(),
				timeout: 20 * time.Second,
				feeRate: DefaultFeeRate,
				feeMin:  DefaultFeeMinimumCents,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := &Config{}
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			cfg.BindFlags(fs)
			require.NoError(t, fs.Parse(tt.flags))

			require.NoError(t, cfg.Load())

			assert.Equal(t, tt.want.apiURL, cfg.APIURL)
			assert.Equal(t, tt.want.key, cfg.PublishableKey)
			assert.Equal(t, tt.want.prefs, cfg.Prefs)
			assert.Equal(t, tt.want.timeout, cfg.Timeout)
			assert.InDelta(t, tt.want.feeRate, cfg.FeeRate, 1e-9)
			assert.Equal(t, tt.want.feeMin, cfg.FeeMinimumCents)
		})
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		err   error
	}{
		{name: "missing publishable key", flags: []string{}, err: ErrMissingPublishableKey},
		{name: "blank publishable key", flags: []string{"-k", "   "}, err: ErrMissingPublishableKey},
		{name: "timeout too long", flags: []string{"-k", "pk", "-t", "2m"}},
		{name: "timeout too short", flags: []string{"-k", "pk", "-t", "10ms"}},
		{name: "bad url", flags: []string{"-k", "pk", "-a", "not a url"}},
		{name: "bad fee rate", flags: []string{"-k", "pk", "--fee-rate", "1.5"}},
		{name: "bad log level", flags: []string{"-k", "pk", "--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			cfg.BindFlags(fs)
			require.NoError(t, fs.Parse(tt.flags))

			err := cfg.Load()
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}
