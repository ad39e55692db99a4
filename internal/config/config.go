package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/learner-ns/lns/internal/networks"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yaml"
	defaultHomeDir = ".lns"
)

// WalletChain is an RPC endpoint the wallet already knows about.
type WalletChain struct {
	ChainID int64  `yaml:"chainId"`
	RPCURL  string `yaml:"rpcUrl"`
}

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
		Encoding  string `yaml:"encoding"`
	} `yaml:"logger"`
	Wallet struct {
		Keyfile string        `yaml:"keyfile"`
		Chains  []WalletChain `yaml:"chains"`
	} `yaml:"wallet"`
	Network  networks.Descriptor `yaml:"network"`
	Contract struct {
		Address string `yaml:"address"`
		TLD     string `yaml:"tld"`
	} `yaml:"contract"`
	Marketplace struct {
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"marketplace"`
	Registry struct {
		RefreshDelay time.Duration `yaml:"refreshDelay"`
		PollInterval time.Duration `yaml:"pollInterval"`
		Concurrency  int           `yaml:"concurrency"`
	} `yaml:"registry"`
	Tx struct {
		ConfirmTimeout time.Duration `yaml:"confirmTimeout"`
	} `yaml:"tx"`
	TxLog struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"txlog"`
}

// GetDefaultConfigHome returns ~/.lns, falling back to the working directory.
func GetDefaultConfigHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultHomeDir
	}
	return filepath.Join(home, defaultHomeDir)
}

// LoadConfig reads the yaml config at path. Relative keyfile paths are
// resolved against the directory holding the config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}

	if config.Wallet.Keyfile != "" && !filepath.IsAbs(config.Wallet.Keyfile) {
		config.Wallet.Keyfile = filepath.Join(filepath.Dir(path), config.Wallet.Keyfile)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Default returns the settings used for anything the config file leaves out.
func Default() *Config {
	config := &Config{}
	config.Logger.Verbosity = "info"
	config.Logger.Encoding = "console"
	config.Network = networks.Mumbai
	config.Contract.Address = "0x8405653C638acd1DBED603FC39d2EAdCB75d208B"
	config.Contract.TLD = ".learner"
	config.Marketplace.BaseURL = "https://testnets.opensea.io/assets/mumbai"
	config.Registry.RefreshDelay = time.Second
	config.Registry.Concurrency = 8
	config.TxLog.TTL = time.Hour
	return config
}

func (c *Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if c.Contract.Address == "" {
		return fmt.Errorf("contract address is not configured")
	}
	if c.Registry.Concurrency < 1 {
		return fmt.Errorf("registry concurrency must be at least 1, got %d", c.Registry.Concurrency)
	}
	for _, chain := range c.Wallet.Chains {
		if chain.ChainID <= 0 || chain.RPCURL == "" {
			return fmt.Errorf("wallet chain entry needs chainId and rpcUrl: %+v", chain)
		}
	}
	return nil
}
