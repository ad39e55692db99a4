package networks

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Currency describes the native token of a chain.
type Currency struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Decimals int    `yaml:"decimals"`
}

// Descriptor is everything a wallet needs to learn about a chain it has never seen.
type Descriptor struct {
	ChainID        int64    `yaml:"chainId"`
	Name           string   `yaml:"name"`
	RPCURL         string   `yaml:"rpcUrl"`
	NativeCurrency Currency `yaml:"nativeCurrency"`
	ExplorerURL    string   `yaml:"explorerUrl"`
}

// Mumbai is the network the name service contract is deployed on.
var Mumbai = Descriptor{
	ChainID: 80001,
	Name:    "Polygon Mumbai Testnet",
	RPCURL:  "https://rpc-mumbai.maticvigil.com/",
	NativeCurrency: Currency{
		Name:     "Mumbai Matic",
		Symbol:   "MATIC",
		Decimals: 18,
	},
	ExplorerURL: "https://mumbai.polygonscan.com/",
}

// HexChainID returns the chain id the way wallets spell it, e.g. "0x13881".
func (d Descriptor) HexChainID() string {
	return hexutil.EncodeUint64(uint64(d.ChainID))
}

// Validate reports whether the descriptor can be handed to a wallet.
func (d Descriptor) Validate() error {
	if d.ChainID <= 0 {
		return fmt.Errorf("invalid chain id %d", d.ChainID)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("chain %d has no name", d.ChainID)
	}
	if strings.TrimSpace(d.RPCURL) == "" {
		return fmt.Errorf("chain %d has no rpc url", d.ChainID)
	}
	return nil
}

var labels = map[int64]string{
	1:        "Mainnet",
	3:        "Ropsten",
	4:        "Rinkeby",
	5:        "Goerli",
	42:       "Kovan",
	56:       "BSC Mainnet",
	97:       "BSC Testnet",
	137:      "Polygon Mainnet",
	80001:    "Polygon Mumbai Testnet",
	43113:    "AVAX Testnet",
	43114:    "AVAX Mainnet",
	11155111: "Sepolia",
}

// Label maps a chain id to its display name. Unknown ids map to "".
func Label(chainID int64) string {
	return labels[chainID]
}

// TxURL builds the block explorer link for a transaction.
func TxURL(explorerBase, txHash string) string {
	return strings.TrimRight(explorerBase, "/") + "/tx/" + txHash
}

// AssetURL builds the marketplace link for a minted name.
func AssetURL(marketBase, contract string, tokenID int) string {
	return fmt.Sprintf("%s/%s/%d", strings.TrimRight(marketBase, "/"), contract, tokenID)
}

// ShortenAddress shortens an address for display: 0x1234...abcd.
func ShortenAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
