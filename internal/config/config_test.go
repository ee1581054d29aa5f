package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAIL_TRANSPORT", "")
	t.Setenv("RATE_LIMIT_BACKEND", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OTP.TTL() != 10*time.Minute {
		t.Fatalf("otp ttl = %s", cfg.OTP.TTL())
	}
	if cfg.OTP.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d", cfg.OTP.MaxAttempts)
	}
	if cfg.OTP.ResendGap() != time.Minute {
		t.Fatalf("resend gap = %s", cfg.OTP.ResendGap())
	}
	if cfg.Mail.Transport != MailTransportLog {
		t.Fatalf("mail transport = %s", cfg.Mail.Transport)
	}
	if cfg.RateLimit.Backend != RateLimitRedis {
		t.Fatalf("rate limit backend = %s", cfg.RateLimit.Backend)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"redis db", map[string]string{"REDIS_DB": "x"}},
		{"transport", map[string]string{"MAIL_TRANSPORT": "pigeon"}},
		{"kafka without brokers", map[string]string{"MAIL_TRANSPORT": "kafka", "KAFKA_BROKERS": ""}},
		{"limiter backend", map[string]string{"RATE_LIMIT_BACKEND": "etcd"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %v", tc.env)
			}
		})
	}
}

func TestLoadKafkaBrokers(t *testing.T) {
	t.Setenv("MAIL_TRANSPORT", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
}
