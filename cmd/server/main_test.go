package main

import (
	"testing"

	"mustawda/backend/internal/config"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := []config.Config{
		{AuthSecret: "short", SeedAdminPassword: "Wx9!kq2mLp"},
		{AuthSecret: strongSecret, SeedAdminPassword: "admin123"},
		{AuthSecret: strongSecret, SeedAdminPassword: "abcdefgh"},
		{AuthSecret: strongSecret, SeedAdminPassword: "zzzzzzzzzz"},
		{AuthSecret: strongSecret, SeedAdminPassword: "Ab1!"},
	}
	for _, cfg := range cases {
		if err := validateSecurityConfig(cfg); err == nil {
			t.Fatalf("expected config %+v to be rejected", cfg)
		}
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: strongSecret, SeedAdminPassword: "Wx9!kq2mLp"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidateSecurityConfigAllowsMissingSeedPassword(t *testing.T) {
	if err := validateSecurityConfig(config.Config{AuthSecret: strongSecret}); err != nil {
		t.Fatalf("expected empty seed password to be allowed, got %v", err)
	}
}
