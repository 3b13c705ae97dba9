package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Relay struct {
	ListenAddr string   // libp2p multiaddr; empty picks an ephemeral port
	Bootstrap  []string // peers dialed at startup
	Topic      string   // gossip topic override; empty uses the default
}

type Node struct {
	APIAddr  string
	DataDir  string
	LogFile  string
	Identity string // hex private key; empty generates a fresh one

	// StrictValidation turns unknown side/status strings into hard decode
	// errors. Off by default: the observed protocol is permissive.
	StrictValidation bool

	// ExpireSweep enables periodic eviction of orders whose expiration has
	// passed. Off by default: the protocol never evicts.
	ExpireSweep   bool
	SweepInterval time.Duration
}

type Rates struct {
	URL       string // ticker base URL; empty disables price derivation
	RedisAddr string // shared rate cache; empty uses in-memory
	TTL       time.Duration
}

type Config struct {
	Relay Relay
	Node  Node
	Rates Rates
}

func Default() Config {
	return Config{
		Node: Node{
			APIAddr:       ":8080",
			DataDir:       "data",
			LogFile:       "data/node.log",
			SweepInterval: time.Minute,
		},
		Rates: Rates{
			TTL: 30 * time.Second,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("LISTEN"); v != "" {
		cfg.Relay.ListenAddr = v
	}
	if v := os.Getenv("BOOTSTRAP"); v != "" {
		cfg.Relay.Bootstrap = strings.Split(v, ",")
	}
	if v := os.Getenv("TOPIC"); v != "" {
		cfg.Relay.Topic = v
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Node.APIAddr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Node.DataDir = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}
	if v := os.Getenv("IDENTITY_KEY"); v != "" {
		cfg.Node.Identity = v
	}
	cfg.Node.StrictValidation = os.Getenv("STRICT_VALIDATION") == "true"
	cfg.Node.ExpireSweep = os.Getenv("EXPIRE_SWEEP") == "true"
	if ms := envMillis("SWEEP_INTERVAL_MS"); ms > 0 {
		cfg.Node.SweepInterval = ms
	}

	if v := os.Getenv("RATES_URL"); v != "" {
		cfg.Rates.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Rates.RedisAddr = v
	}
	if ms := envMillis("RATE_TTL_MS"); ms > 0 {
		cfg.Rates.TTL = ms
	}

	return cfg
}

func envMillis(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
