package types

type RunMode string

const (
	// ModeLocal runs the API server against the in-memory store unless configured otherwise
	ModeLocal RunMode = "local"
	// ModeAPI is the production API server mode
	ModeAPI RunMode = "api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// AuthProvider selects how bearer tokens are verified
type AuthProvider string

const (
	// AuthProviderSupabase asks the Supabase auth server about every token
	AuthProviderSupabase AuthProvider = "supabase"
	// AuthProviderJWT verifies Supabase access tokens locally with the project JWT secret
	AuthProviderJWT AuthProvider = "jwt"
)

// StoreDriver selects the subscription store backend
type StoreDriver string

const (
	StoreDriverPostgres StoreDriver = "postgres"
	StoreDriverMemory   StoreDriver = "memory"
)
