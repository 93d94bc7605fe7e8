package validation

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type endpoint struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	Addr    string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

type settings struct {
	Level    string   `mapstructure:"level" validate:"omitempty,oneof=debug info"`
	Ratio    float64  `mapstructure:"ratio" validate:"gte=0,lte=1"`
	Endpoint endpoint `mapstructure:"endpoint"`
	Name     string   `validate:"required"`
}

func TestStructValid(t *testing.T) {
	s := settings{Level: "info", Ratio: 0.5, Name: "x", Endpoint: endpoint{BaseURL: "https://a.example.com", Addr: "localhost:4318"}}
	if err := Struct(s); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Struct(&s); err != nil {
		t.Errorf("unexpected error for pointer: %v", err)
	}
}

func TestStructInvalid(t *testing.T) {
	s := settings{Level: "trace", Ratio: 2, Endpoint: endpoint{BaseURL: "not a url", Addr: "nohost"}}

	err := Struct(s)
	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected Errors, got %T: %v", err, err)
	}

	want := []string{"level", "ratio", "endpoint.base_url", "endpoint.addr", "name"}
	if got := verrs.Fields(); !reflect.DeepEqual(got, want) {
		t.Errorf("Fields() = %v, want %v", got, want)
	}

	msg := err.Error()
	for _, part := range []string{
		"level: must be one of: debug info",
		"ratio: must be at most 1",
		"endpoint.base_url: must be a valid URL",
		"endpoint.addr: must be host:port",
		"name: is required",
	} {
		if !strings.Contains(msg, part) {
			t.Errorf("error %q does not contain %q", msg, part)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":      "name",
		"BaseURL":   "base_u_r_l",
		"UserAgent": "user_agent",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFieldPath(t *testing.T) {
	if got := fieldPath("Config.client.base_url"); got != "client.base_url" {
		t.Errorf("fieldPath() = %q", got)
	}
	if got := fieldPath("name"); got != "name" {
		t.Errorf("fieldPath() = %q", got)
	}
}
