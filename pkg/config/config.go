package config

import "time"

// Notifier definition notifier YAML structure
type Notifier struct {
	Server        ServerConfig        `mapstructure:"server"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	ServiceWorker ServiceWorkerConfig `mapstructure:"service_worker"`
	WebPush       WebPushConfig       `mapstructure:"webpush"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Render        string              `mapstructure:"render"` // terminal | html | none
	Debug         bool                `mapstructure:"debug"`
}

// NotifyServer definition notify_server YAML structure
type NotifyServer struct {
	Port      string      `mapstructure:"port"`
	JWTSecret string      `mapstructure:"jwt_secret"`
	Redis     RedisConfig `mapstructure:"redis"`
	Store     string      `mapstructure:"store"` // memory | redis
	// PreviewLength 訊息預覽截斷長度
	PreviewLength int          `mapstructure:"preview_length"`
	Users         []UserConfig `mapstructure:"users"`
	Debug         bool         `mapstructure:"debug"`
}

// UserConfig a dev server account, password_hash is bcrypt
type UserConfig struct {
	ID           int    `mapstructure:"id"`
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// ServerConfig where the chat server lives and who we are on it
type ServerConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserID    int    `mapstructure:"user_id"`
	Username  string `mapstructure:"username"`
	AuthToken string `mapstructure:"auth_token"`
	CSRFToken string `mapstructure:"csrf_token"`
}

// NotificationConfig notification socket and permission setting
type NotificationConfig struct {
	// ReconnectInterval 0 表示斷線後不重連
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
	// Permission initial permission: default | granted | denied
	Permission string `mapstructure:"permission"`
	// Prompt how a default permission is resolved: interactive | form | grant | deny
	Prompt          string `mapstructure:"prompt"`
	PermissionStore string `mapstructure:"permission_store"` // memory | redis
	Icon            string `mapstructure:"icon"`
}

// ServiceWorkerConfig registration and display backend
type ServiceWorkerConfig struct {
	ScriptURL string `mapstructure:"script_url"`
	Scope     string `mapstructure:"scope"`
	Display   string `mapstructure:"display"` // console | webpush
	InboxSize int    `mapstructure:"inbox_size"`
	// OpenWindows 允許 notification click 開啟瀏覽器
	OpenWindows bool `mapstructure:"open_windows"`
}

// WebPushConfig VAPID keys and the single subscription notifications are pushed to
type WebPushConfig struct {
	VAPIDPublicKey  string        `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string        `mapstructure:"vapid_private_key"`
	Subscriber      string        `mapstructure:"subscriber"`
	Endpoint        string        `mapstructure:"endpoint"`
	P256dh          string        `mapstructure:"p256dh"`
	Auth            string        `mapstructure:"auth"`
	TTL             time.Duration `mapstructure:"ttl"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr          string        `mapstructure:"addr"`
	RedisDB       int           `mapstructure:"redis_db"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// ApplyDefaults fill zero values the way the web client behaved
func (n *Notifier) ApplyDefaults() {
	if n.Notification.Permission == "" {
		n.Notification.Permission = "default"
	}
	if n.Notification.Prompt == "" {
		n.Notification.Prompt = "interactive"
	}
	if n.Notification.PermissionStore == "" {
		n.Notification.PermissionStore = "memory"
	}
	if n.Notification.Icon == "" {
		n.Notification.Icon = "/static/assets/icon.png"
	}
	if n.ServiceWorker.ScriptURL == "" {
		n.ServiceWorker.ScriptURL = "/service_worker/sw.js"
	}
	if n.ServiceWorker.Scope == "" {
		n.ServiceWorker.Scope = "/"
	}
	if n.ServiceWorker.Display == "" {
		n.ServiceWorker.Display = "console"
	}
	if n.ServiceWorker.InboxSize <= 0 {
		n.ServiceWorker.InboxSize = 64
	}
	if n.WebPush.TTL == 0 {
		n.WebPush.TTL = 24 * time.Hour
	}
	n.Redis.applyDefaults()
	if n.Render == "" {
		n.Render = "terminal"
	}
}

// ApplyDefaults fill zero values for the dev server
func (s *NotifyServer) ApplyDefaults() {
	if s.Port == "" {
		s.Port = "8000"
	}
	if s.PreviewLength <= 0 {
		s.PreviewLength = 50
	}
	if s.Store == "" {
		s.Store = "memory"
	}
	s.Redis.applyDefaults()
}

func (r *RedisConfig) applyDefaults() {
	if r.Addr == "" {
		r.Addr = "localhost:6379"
	}
	if r.RetryInterval == 0 {
		r.RetryInterval = 2 * time.Second
	}
}
