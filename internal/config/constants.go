// internal/config/constants.go
package config

// アプリケーション情報
const (
	AppName    = "keep_up_backend"
	AppVersion = "0.4.0"
)

// デフォルト設定値
const (
	DefaultServerPort        = ":8080"
	DefaultLogLevel          = "info"
	DefaultGeminiModel       = "gemini-2.5-flash"
	DefaultCatchUpWindowDays = 3
	DefaultCatchUpFetchLimit = 7
)
