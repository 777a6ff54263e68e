package server

import (
	"time"
)

type Config struct {
	Port        int           `conf:"port" yaml:"port" json:"port"`
	Name        string        `conf:"name" yaml:"name" json:"name"`
	BasePath    string        `conf:"base_path" yaml:"base_path" json:"base_path"`
	ReadTimeout time.Duration `conf:"read_timeout" yaml:"read_timeout" json:"read_timeout"`

	// RequestTimeout is the maximum duration for processing a request.
	RequestTimeout time.Duration `conf:"request_timeout" yaml:"request_timeout" json:"request_timeout"`

	Debug bool `conf:"debug" yaml:"debug" json:"debug"`
	CORS  CORS `conf:"cors" yaml:"cors" json:"cors"`
	Auth  Auth `conf:"auth" yaml:"auth" json:"auth"`
}

// Auth controls how the transport resolves the caller's role.
//
// lakegate does not authenticate callers itself: it sits behind the
// surrounding platform's gateway, which authenticates and forwards the
// resolved role in a header. Header resolution is therefore off unless the
// deployment declares the hop trusted; with it off (or with an unknown role
// value) requests carry no principal and every operation fails closed.
type Auth struct {
	// TrustRoleHeader must only be enabled when the role header is set by a
	// trusted proxy that strips the client-supplied value.
	TrustRoleHeader bool `conf:"trust_role_header" yaml:"trust_role_header" json:"trust_role_header"`
	// RoleHeader names the header carrying the resolved role.
	RoleHeader string `conf:"role_header" yaml:"role_header" json:"role_header"`
	// SubjectHeader names the header carrying the caller identity for audit logs.
	SubjectHeader string `conf:"subject_header" yaml:"subject_header" json:"subject_header"`
}

type CORS struct {
	Enabled          bool          `conf:"enabled" yaml:"enabled" json:"enabled"`
	AllowedOrigins   []string      `conf:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods   []string      `conf:"allowed_methods" yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders   []string      `conf:"allowed_headers" yaml:"allowed_headers" json:"allowed_headers"`
	ExposedHeaders   []string      `conf:"exposed_headers" yaml:"exposed_headers" json:"exposed_headers"`
	AllowCredentials bool          `conf:"allow_credentials" yaml:"allow_credentials" json:"allow_credentials"`
	MaxAge           time.Duration `conf:"max_age" yaml:"max_age" json:"max_age"`
}

// DefaultRoleHeader is used when Auth.RoleHeader is unset.
const DefaultRoleHeader = "X-Lakegate-Role"

// DefaultSubjectHeader is used when Auth.SubjectHeader is unset.
const DefaultSubjectHeader = "X-Lakegate-Subject"
