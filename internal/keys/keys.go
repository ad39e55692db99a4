package keys

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrKeyfileNotFound means no wallet has been created at the given path.
var ErrKeyfileNotFound = errors.New("wallet key file not found")

// KeyFile is the on-disk wallet format.
type KeyFile struct {
	PublicKey  string `json:"public_key"`
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

// Exists reports whether a key file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func LoadPrivateKey(path string) (*ecdsa.PrivateKey, common.Address, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.Address{}, fmt.Errorf("%w: %s", ErrKeyfileNotFound, path)
		}
		return nil, common.Address{}, err
	}

	var key KeyFile
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to parse key file %s: %w", path, err)
	}

	privateKey, err := crypto.HexToECDSA(key.PrivateKey)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("invalid private key in %s: %w", path, err)
	}

	return privateKey, crypto.PubkeyToAddress(privateKey.PublicKey), nil
}

// GenerateKeyFile creates a fresh wallet at path. It refuses to overwrite an existing one.
func GenerateKeyFile(path string) (common.Address, error) {
	if Exists(path) {
		return common.Address{}, fmt.Errorf("key file already exists: %s", path)
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, err
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	keyFile := KeyFile{
		PublicKey:  common.Bytes2Hex(crypto.FromECDSAPub(&privateKey.PublicKey)),
		Address:    address.Hex(),
		PrivateKey: common.Bytes2Hex(crypto.FromECDSA(privateKey)),
	}

	data, err := json.MarshalIndent(keyFile, "", "  ")
	if err != nil {
		return common.Address{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return common.Address{}, err
	}
	return address, os.WriteFile(path, data, 0600)
}
