package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const MoveCallKind = "moveCall"

var (
	packageIDPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// MoveCall describes a destination-chain function invocation. Build it with
// NewMoveCall so malformed identifiers are rejected before submission.
type MoveCall struct {
	Kind          string   `json:"kind"`
	PackageID     string   `json:"packageId"`
	Module        string   `json:"module"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"typeArguments"`
	Arguments     []string `json:"arguments"`
}

// NewMoveCall validates and returns a call descriptor. Numeric arguments must
// already be rendered as decimal strings.
func NewMoveCall(packageID, module, function string, typeArgs, args []string) (*MoveCall, error) {
	packageID = strings.TrimSpace(packageID)
	if !packageIDPattern.MatchString(packageID) {
		return nil, fmt.Errorf("invalid package id %q", packageID)
	}
	if !identifierPattern.MatchString(module) {
		return nil, fmt.Errorf("invalid module identifier %q", module)
	}
	if !identifierPattern.MatchString(function) {
		return nil, fmt.Errorf("invalid function identifier %q", function)
	}
	for i, t := range typeArgs {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("type argument %d is empty", i)
		}
	}
	for i, a := range args {
		if a == "" {
			return nil, fmt.Errorf("argument %d is empty", i)
		}
	}

	return &MoveCall{
		Kind:          MoveCallKind,
		PackageID:     packageID,
		Module:        module,
		Function:      function,
		TypeArguments: append([]string(nil), typeArgs...),
		Arguments:     append([]string(nil), args...),
	}, nil
}

// Target returns "package::module::function".
func (c *MoveCall) Target() string {
	return fmt.Sprintf("%s::%s::%s", c.PackageID, c.Module, c.Function)
}

// TypeTag formats a struct type tag inside the call's package and module.
func TypeTag(packageID, module, name string) string {
	return fmt.Sprintf("%s::%s::%s", strings.TrimSpace(packageID), module, name)
}
