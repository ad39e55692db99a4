package fixtures

import (
	_ "embed"
)

//go:embed abi/Domains.json
var DomainsABI string

//go:embed config/config.yaml.template
var ConfigTemplate []byte
