package domain

import "strconv"

type ChainKind string

const (
	ChainSource      ChainKind = "source"
	ChainDestination ChainKind = "destination"
)

type ChainID string

const (
	// Chain IDs
	ChainIDEthereum ChainID = "1"
	ChainIDSepolia  ChainID = "11155111"
	ChainIDHardhat  ChainID = "31337"

	// Sui chain selectors as understood by wallets
	SuiMainnet = "sui:mainnet"
	SuiTestnet = "sui:testnet"
	SuiDevnet  = "sui:devnet"
)

// ChainIDToName maps ChainID to its human-readable name.
var ChainIDToName = map[ChainID]string{
	ChainIDEthereum: "ETHEREUM_MAINNET",
	ChainIDSepolia:  "ETHEREUM_SEPOLIA",
	ChainIDHardhat:  "HARDHAT_LOCAL",
}

// ChainName returns the human-readable name of an EVM chain id, falling back
// to "EVM_<id>" for chains without a registered name.
func ChainName(id int64) string {
	if name, ok := ChainIDToName[ChainID(strconv.FormatInt(id, 10))]; ok {
		return name
	}
	return "EVM_" + strconv.FormatInt(id, 10)
}
