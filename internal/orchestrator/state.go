package orchestrator

import (
	"errors"
	"fmt"
)

type State int

const (
	StateIdle State = iota
	StateAwaitingWalletConnection
	StateAwaitingNetworkSwitch
	StateAwaitingRegisterConfirmation
	StateAwaitingSetRecordConfirmation
	StateRefreshingRegistry
	StateEditing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingWalletConnection:
		return "AwaitingWalletConnection"
	case StateAwaitingNetworkSwitch:
		return "AwaitingNetworkSwitch"
	case StateAwaitingRegisterConfirmation:
		return "AwaitingRegisterConfirmation"
	case StateAwaitingSetRecordConfirmation:
		return "AwaitingSetRecordConfirmation"
	case StateRefreshingRegistry:
		return "RefreshingRegistry"
	case StateEditing:
		return "Editing"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Reason qualifies StateFailed and failure notices.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonNoWallet             Reason = "NoWallet"
	ReasonConnectionRejected   Reason = "ConnectionRejected"
	ReasonUnsupportedNetwork   Reason = "UnsupportedNetwork"
	ReasonChainUnknownToWallet Reason = "ChainUnknownToWallet"
	ReasonSwitchFailed         Reason = "SwitchFailed"
	ReasonRegisterFailed       Reason = "RegisterFailed"
	ReasonSetRecordFailed      Reason = "SetRecordFailed"
	ReasonPartialMint          Reason = "PartialMint"
	ReasonReadFailure          Reason = "ReadFailure"
)

type Status struct {
	State  State
	Reason Reason
}

func (s Status) String() string {
	if s.State == StateFailed {
		return fmt.Sprintf("Failed(%s)", s.Reason)
	}
	return s.State.String()
}

// Form is the pending mint input. It is cleared after a successful flow and
// kept after a failed one.
type Form struct {
	Name                string
	Record              string
	EditingExistingName bool
}

var (
	ErrBusy               = errors.New("a mint or record update is already in progress")
	ErrEmptyName          = errors.New("name is empty")
	ErrEmptyRecord        = errors.New("record is empty")
	ErrNameLocked         = errors.New("name cannot change while editing an existing name")
	ErrUnsupportedNetwork = errors.New("wallet is on an unsupported network")
	ErrNotConnected       = errors.New("wallet is not connected")
	ErrUnknownName        = errors.New("name is not registered")
	ErrNotOwner           = errors.New("name is owned by another account")
)

// PartialMintError means the name was registered but its record was not set.
type PartialMintError struct {
	Name string
	Err  error
}

func (e *PartialMintError) Error() string {
	return fmt.Sprintf("%s was minted but its record was not set: %v", e.Name, e.Err)
}

func (e *PartialMintError) Unwrap() error {
	return e.Err
}
