package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server          ServerConfig      `yaml:"server"`
	Redis           RedisConfig       `yaml:"redis"`
	Ethereum        EthereumConfig    `yaml:"ethereum"`
	Storage         StorageConfig     `yaml:"storage"`
	SupportedTokens []string          `yaml:"supported_tokens"`
	TokenSymbols    map[string]string `yaml:"token_symbols"`
	Performance     PerformanceConfig `yaml:"performance"`
}

type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EthereumConfig struct {
	RPCURL  string `yaml:"rpc_url"`
	ChainID int64  `yaml:"chain_id"`
	Factory string `yaml:"factory"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // file | redis | twolevel
	WorkingDir  string `yaml:"working_dir"`
	PairFile    string `yaml:"pair_file"`
	PathMapFile string `yaml:"pathmap_file"`
	PoolMapFile string `yaml:"poolmap_file"`
}

type PerformanceConfig struct {
	MaxConcurrentFetches  int `yaml:"max_concurrent_fetches"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

var AppConfig *Config

// loadConfigFromFile loads default configuration from a YAML file.
func loadConfigFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warning: YAML config file not found at %s. Using env vars and defaults only.", path)
			return nil
		}
		return err
	}
	if err = yaml.Unmarshal(data, config); err != nil {
		return err
	}
	log.Printf("Loaded configuration defaults from %s", path)
	return nil
}

func Init() error {
	AppConfig = &Config{}

	if err := loadConfigFromFile("config/config.yaml", AppConfig); err != nil {
		log.Printf("Warning: Failed to load config.yaml: %v. Using defaults.", err)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	AppConfig.Server.Port = getEnv("SERVER_PORT", AppConfig.Server.Port, "8080")
	AppConfig.Server.ReadTimeout = getEnvAsInt("SERVER_READ_TIMEOUT", AppConfig.Server.ReadTimeout, 15)
	AppConfig.Server.WriteTimeout = getEnvAsInt("SERVER_WRITE_TIMEOUT", AppConfig.Server.WriteTimeout, 15)

	AppConfig.Redis.Addr = getEnv("REDIS_ADDR", AppConfig.Redis.Addr, "localhost:6379")
	AppConfig.Redis.Password = getEnv("REDIS_PASSWORD", AppConfig.Redis.Password, "")
	AppConfig.Redis.DB = getEnvAsInt("REDIS_DB", AppConfig.Redis.DB, 0)

	AppConfig.Ethereum.RPCURL = getEnv("ETH_RPC_URL", AppConfig.Ethereum.RPCURL, "https://mainnet.infura.io/v3/YOUR-PROJECT-ID")
	AppConfig.Ethereum.ChainID = getEnvAsInt64("ETH_CHAIN_ID", AppConfig.Ethereum.ChainID, 1)
	AppConfig.Ethereum.Factory = getEnv("FACTORY_ADDRESS", AppConfig.Ethereum.Factory,
		"0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")

	AppConfig.Storage.Backend = getEnv("STORE_BACKEND", AppConfig.Storage.Backend, "file")
	AppConfig.Storage.WorkingDir = getEnv("WORKING_DIR", AppConfig.Storage.WorkingDir, "working_dir")
	AppConfig.Storage.PairFile = getEnv("PAIR_FILE", AppConfig.Storage.PairFile, "all_token_pairs.csv")
	AppConfig.Storage.PathMapFile = getEnv("PATHMAP_FILE", AppConfig.Storage.PathMapFile, "pathmap.json")
	AppConfig.Storage.PoolMapFile = getEnv("POOLMAP_FILE", AppConfig.Storage.PoolMapFile, "poolmap.json")

	defaultSupportedTokens := []string{
		"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", // WETH
		"0xdac17f958d2ee523a2206206994597c13d831ec7", // USDT
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", // USDC
		"0x6b175474e89094c44da98b954eedeac495271d0f", // DAI
	}
	AppConfig.SupportedTokens = getEnvAsSlice("SUPPORTED_TOKENS", ",", AppConfig.SupportedTokens, defaultSupportedTokens)

	if AppConfig.TokenSymbols == nil {
		AppConfig.TokenSymbols = map[string]string{
			"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2": "WETH",
			"0xdac17f958d2ee523a2206206994597c13d831ec7": "USDT",
			"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": "USDC",
			"0x6b175474e89094c44da98b954eedeac495271d0f": "DAI",
		}
	}

	// Token addresses are compared as strings throughout the pipeline:
	// normalize whatever the operator configured to lowercase so checksummed
	// values still match the indexer output and the request handler
	for i, token := range AppConfig.SupportedTokens {
		AppConfig.SupportedTokens[i] = strings.ToLower(token)
	}
	symbols := make(map[string]string, len(AppConfig.TokenSymbols))
	for token, symbol := range AppConfig.TokenSymbols {
		symbols[strings.ToLower(token)] = symbol
	}
	AppConfig.TokenSymbols = symbols

	AppConfig.Performance.MaxConcurrentFetches = getEnvAsInt("MAX_CONCURRENT_FETCHES", AppConfig.Performance.MaxConcurrentFetches, 50)
	AppConfig.Performance.RequestTimeoutSeconds = getEnvAsInt("REQUEST_TIMEOUT_SECONDS", AppConfig.Performance.RequestTimeoutSeconds, 30)

	return nil
}

// getEnv returns env value if set, otherwise yamlValue if not empty, otherwise fallback.
func getEnv(key string, yamlValue string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if yamlValue != "" {
		return yamlValue
	}
	return fallback
}

// getEnvAsInt returns env int if set, otherwise yamlValue if non-zero, otherwise fallback.
func getEnvAsInt(key string, yamlValue int, fallback int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	if yamlValue != 0 {
		return yamlValue
	}
	return fallback
}

// getEnvAsInt64 returns env int64 if set, otherwise yamlValue if non-zero, otherwise fallback.
func getEnvAsInt64(key string, yamlValue int64, fallback int64) int64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	if yamlValue != 0 {
		return yamlValue
	}
	return fallback
}

// getEnvAsSlice returns env slice if set, otherwise yamlValue if non-empty, otherwise fallback.
func getEnvAsSlice(key, separator string, yamlValue []string, fallback []string) []string {
	valueStr := os.Getenv(key)
	if valueStr != "" {
		return strings.Split(valueStr, separator)
	}
	if len(yamlValue) > 0 {
		return yamlValue
	}
	return fallback
}
