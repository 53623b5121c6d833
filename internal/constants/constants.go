package constants

import "time"

// for api auth
type ContextKey string

const (
	AuthorizationHeaderKey  ContextKey = "authorization"
	AuthorizationTypeBearer ContextKey = "bearer"
	AdminTokenKey           ContextKey = "admin_token"
)

type RequestID string

const (
	RequestIDKey    RequestID = "request_id"
	RequestIDHeader           = "X-Request-Id"
)

type ENV string

const (
	Debug ENV = "debug"
	Dev   ENV = "development"
	Prod  ENV = "production"
)

const (
	ShutdownTimeout   = 30 * time.Second
	ReadHeaderTimeout = 10 * time.Second
	// 助理回覆含工具呼叫，需要較長時間
	WriteTimeout = 90 * time.Second
)

// ApiVersionPrefix 所有業務路由的前綴
const ApiVersionPrefix = "/api/v1"
