package password

import (
	"os"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"CARAPI_BCRYPT_COST",
		"CARAPI_PASSWORD_MIN_LEN",
		"CARAPI_PASSWORD_REJECT_VERY_WEAK",
	} {
		_ = os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Cost != 10 {
		t.Fatalf("expected cost 10, got %d", cfg.Cost)
	}
	if cfg.Policy.MinLength != 6 || cfg.Policy.MaxBytes != 72 {
		t.Fatalf("policy defaults mismatch: %+v", cfg.Policy)
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("CARAPI_BCRYPT_COST", "12")
	t.Setenv("CARAPI_PASSWORD_MIN_LEN", "10")
	t.Setenv("CARAPI_PASSWORD_REJECT_VERY_WEAK", "on")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Cost != 12 || cfg.Policy.MinLength != 10 || !cfg.Policy.RejectVeryWeak {
		t.Fatalf("override failed: %+v", cfg)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"CARAPI_BCRYPT_COST":               "3",
		"CARAPI_PASSWORD_MIN_LEN":          "0",
		"CARAPI_PASSWORD_REJECT_VERY_WEAK": "maybe",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%q", k, v)
			}
		})
	}
}
