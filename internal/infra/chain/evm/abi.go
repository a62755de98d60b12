package evm

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Method names on the source-chain bridge token contract.
const (
	MethodConvert  = "convertETHToIBT"
	MethodApprove  = "approveTokenForBridge"
	MethodTransfer = "transferTokensToBridge"
)

const bridgeTokenABI = `[
	{
		"inputs": [],
		"name": "convertETHToIBT",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "spender", "type": "address", "internalType": "address"},
			{"name": "amount", "type": "uint256", "internalType": "uint256"}
		],
		"name": "approveTokenForBridge",
		"outputs": [{"name": "", "type": "bool", "internalType": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "bridgeContract", "type": "address", "internalType": "address"},
			{"name": "amount", "type": "uint256", "internalType": "uint256"}
		],
		"name": "transferTokensToBridge",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// BridgeTokenABI returns the parsed contract interface.
func BridgeTokenABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(bridgeTokenABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse bridge token abi: %w", err)
	}
	return parsed, nil
}
