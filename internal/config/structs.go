package config

import (
	"github.com/infodir/opa-permission-api/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	OPA       OPA
	S3        S3
	Auth      Auth
	Webserver Webserver
}

// OPA holds the Open Policy Agent server settings.
type OPA struct {
	URL     string // base URL of the OPA server, e.g. http://localhost:8181
	Timeout int    // request timeout in seconds for all OPA calls
}

// S3 holds the object storage settings for custom policy files.
type S3 struct {
	Bucket          string
	Region          string
	EndpointURL     string // optional, for LocalStack or custom S3 endpoints
	AccessKeyID     string
	SecretAccessKey string
}

// Auth holds the bearer token and admin authorization settings.
type Auth struct {
	JWTSecret       string // secret key for token signature verification
	JWTAlgorithm    string // signing algorithm, defaults to HS256
	VerifySignature bool   // set to true in production with a proper secret
	AdminADGroup    string // AD group that grants admin privileges
}

// Webserver implement webserver settings.
type Webserver struct {
	Port         int    // listening port for the webserver
	ShutDownTime int    // wait time for shutdown
	URL          string // base url for the webserver
}
