package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	SUNAT   SUNATConfig
	Worker  WorkerConfig
	Storage StorageConfig
	Redis   RedisConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	ForceIPv4   bool // contenedores sin IPv6
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SUNATConfig endpoints por defecto de la autoridad tributaria. Cada tenant puede
// sobreescribirlos en sus propiedades (ElectronicBilling.SOAP.Endpoint, etc.).
// Vacío = endpoint oficial según Environment.
type SUNATConfig struct {
	Environment     string // beta | production
	SOAPEndpoint    string
	ConsultEndpoint string
	RESTAuthURL     string
	RESTBaseURL     string
	RESTPath        string
	PublishURL      string
	HTTPTimeout     time.Duration
	TokenSkew       time.Duration
}

// WorkerConfig configuración del scheduler de reconciliación.
type WorkerConfig struct {
	Interval     time.Duration
	TenantBudget time.Duration
}

// StorageConfig selección del blob store ("postgres" o "gcs").
type StorageConfig struct {
	Provider           string
	GCSBucket          string
	GCSCredentialsJSON string
}

// RedisConfig lock distribuido opcional por tenant. Addr vacío = sin lock.
type RedisConfig struct {
	Addr     string
	Password string
	LockTTL  time.Duration
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, SUNAT_ENV, WORKER_INTERVAL_SECONDS, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	env, err := sunatEnv(getString(v, "SUNAT_ENV", "beta"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "ebilling"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "ebilling"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 10),
			ForceIPv4:   getBool(v, "DB_FORCE_IPV4", false),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "ebilling"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		SUNAT: SUNATConfig{
			Environment:     env,
			SOAPEndpoint:    getString(v, "SUNAT_SOAP_URL", ""),
			ConsultEndpoint: getString(v, "SUNAT_SOAP_CONSULT_URL", ""),
			RESTAuthURL:     getString(v, "SUNAT_REST_AUTH_URL", ""),
			RESTBaseURL:     getString(v, "SUNAT_REST_BASE_URL", ""),
			RESTPath:        getString(v, "SUNAT_REST_PATH", ""),
			PublishURL:      getString(v, "PUBLISH_URL", ""),
			HTTPTimeout:     seconds(getInt(v, "SUNAT_HTTP_TIMEOUT_SECONDS", 60)),
			TokenSkew:       seconds(getInt(v, "SUNAT_TOKEN_SKEW_SECONDS", 30)),
		},
		Worker: WorkerConfig{
			Interval:     seconds(getInt(v, "WORKER_INTERVAL_SECONDS", 300)),
			TenantBudget: seconds(getInt(v, "WORKER_TENANT_BUDGET_SECONDS", 120)),
		},
		Storage: StorageConfig{
			Provider:           strings.ToLower(getString(v, "STORAGE_PROVIDER", "postgres")),
			GCSBucket:          getString(v, "GCS_BUCKET", ""),
			GCSCredentialsJSON: getString(v, "GCS_CREDENTIALS_JSON", ""),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			LockTTL:  seconds(getInt(v, "REDIS_LOCK_TTL_SECONDS", 600)),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Provider {
	case "postgres":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("config: GCS_BUCKET es obligatorio con STORAGE_PROVIDER=gcs")
		}
	default:
		return fmt.Errorf("config: STORAGE_PROVIDER %q no soportado", c.Storage.Provider)
	}
	if c.Worker.Interval <= 0 {
		return fmt.Errorf("config: WORKER_INTERVAL_SECONDS debe ser positivo")
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL < c.Worker.TenantBudget {
		return fmt.Errorf("config: REDIS_LOCK_TTL_SECONDS no puede ser menor que WORKER_TENANT_BUDGET_SECONDS")
	}
	return nil
}

// sunatEnv acepta "prod" como alias de production.
func sunatEnv(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "beta":
		return "beta", nil
	case "prod", "production":
		return "production", nil
	}
	return "", fmt.Errorf("config: SUNAT_ENV %q desconocido (beta | production)", s)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	b, err := strconv.ParseBool(v.GetString(key))
	if err != nil {
		return def
	}
	return b
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
