package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DBUrl         string
	DBName        string
	TokenSecret   string
	TokenTTL      time.Duration
	CORSOrigins   []string
	StrictAnswers bool
	PublicRate    float64
	PublicBurst   int
	PublicMaxBody int64
	TrustProxy    bool
	Debug         bool
}

// ParseFlags loads .env (if any) and parses the command line.
func ParseFlags() (Config, error) {
	_ = godotenv.Load()
	return Parse(os.Args[1:])
}

// Parse reads the configuration from args. Every flag falls back to an
// environment variable, so a bare invocation works in containers.
func Parse(args []string) (cfg Config, err error) {
	fs := flag.NewFlagSet("quick-forms", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", getenv("HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", getenvUint("PORT", 5000), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", getenv("MONGO_URI", getenv("DB_URL", "qforms.sqlite")), "mongodb:// URI or path to SQLite3 DB file")
	fs.StringVar(&cfg.DBName, "db-name", getenv("MONGO_DB", "quickforms"), "MongoDB database name")
	fs.StringVar(&cfg.TokenSecret, "token-secret", os.Getenv("JWT_SECRET"), "secret key for token signing")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", getenvUint("TOKEN_TTL", 3600), "token TTL in seconds")
	var origins string
	fs.StringVar(&origins, "cors-origins", getenv("CORS_ORIGIN", "*"), "comma separated list of allowed origins")
	fs.BoolVar(&cfg.StrictAnswers, "strict-answers", os.Getenv("STRICT_ANSWERS") == "true", "reject mcq answers that are not one of the options")
	fs.Float64Var(&cfg.PublicRate, "public-rate", 5, "requests per second allowed per IP on public endpoints")
	fs.IntVar(&cfg.PublicBurst, "public-burst", 20, "burst allowed per IP on public endpoints")
	fs.Int64Var(&cfg.PublicMaxBody, "public-max-body", 64<<10, "max request body size in bytes on public endpoints")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", os.Getenv("TRUST_PROXY") == "true", "take the client IP from X-Forwarded-For / X-Real-IP")
	fs.BoolVar(&cfg.Debug, "debug", os.Getenv("DEBUG") == "true", "log at DEBUG level")

	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.TokenTTL <= 0:
		err = errors.New("parameter -token-ttl must be positive")
	case cfg.PublicMaxBody <= 0:
		err = errors.New("parameter -public-max-body must be positive")
	}

	return
}

// IsMongo reports whether DBUrl points to a MongoDB deployment.
func (cfg Config) IsMongo() bool {
	return strings.HasPrefix(cfg.DBUrl, "mongodb://") || strings.HasPrefix(cfg.DBUrl, "mongodb+srv://")
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvUint(key string, fallback uint) uint {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint(n)
		}
	}
	return fallback
}
