package revshare

import "errors"

// Authorization failures.
var (
	// ErrUnauthorized indicates the caller may not perform the operation.
	ErrUnauthorized = errors.New("revshare: unauthorized")

	// ErrNotWhitelisted indicates the contributor has not been cleared to contribute.
	ErrNotWhitelisted = errors.New("revshare: wallet not whitelisted")
)

// State-machine violations.
var (
	// ErrInvalidPhaseState indicates the contribution phase does not allow the operation.
	ErrInvalidPhaseState = errors.New("revshare: invalid phase state")

	// ErrLocked indicates shares are locked and can no longer be assigned.
	ErrLocked = errors.New("revshare: shares are locked")
)

// Quantity violations.
var (
	// ErrNotDivisible indicates a contribution is not a multiple of the minimum unit.
	ErrNotDivisible = errors.New("revshare: amount not divisible by minimum unit")

	// ErrZeroAmount indicates an amount of zero where a positive amount is required.
	ErrZeroAmount = errors.New("revshare: zero amount")

	// ErrHardCapExceeded indicates a contribution would take the total past the hard cap.
	ErrHardCapExceeded = errors.New("revshare: hard cap exceeded")

	// ErrSupplyCapExceeded indicates total supply would exceed the configured maximum.
	ErrSupplyCapExceeded = errors.New("revshare: supply cap exceeded")

	// ErrPrecisionViolation indicates a transfer would move or leave less than the precision unit.
	ErrPrecisionViolation = errors.New("revshare: precision violation")

	// ErrInsufficientUnstakedBalance indicates the unstaked balance does not cover the amount.
	ErrInsufficientUnstakedBalance = errors.New("revshare: insufficient unstaked balance")

	// ErrInsufficientStake indicates an unstake larger than the delegation.
	ErrInsufficientStake = errors.New("revshare: insufficient stake")

	// ErrAllowanceExceeded indicates a delegated transfer above the approved allowance.
	ErrAllowanceExceeded = errors.New("revshare: allowance exceeded")

	// ErrInsufficientClaimable indicates a withdrawal above the claimable balance.
	ErrInsufficientClaimable = errors.New("revshare: insufficient claimable balance")

	// ErrOverflow indicates an amount computation overflowed 256 bits.
	ErrOverflow = errors.New("revshare: amount overflow")
)

// Asset-policy violations.
var (
	// ErrAssetNotWhitelisted indicates the asset is not enabled for distribution.
	ErrAssetNotWhitelisted = errors.New("revshare: asset not whitelisted")

	// ErrBelowMinimumDistribution indicates the undistributed inflow is below the asset minimum.
	ErrBelowMinimumDistribution = errors.New("revshare: below minimum distribution")
)

// External collaborators.
var (
	// ErrUnknownAsset indicates the resolver has no asset at the address.
	ErrUnknownAsset = errors.New("revshare: unknown asset")

	// ErrUnknownReceiver indicates the resolver has no staking receiver at the address.
	ErrUnknownReceiver = errors.New("revshare: unknown staking receiver")

	// ErrAssetTransferFailed indicates an asset transfer was rejected or errored.
	ErrAssetTransferFailed = errors.New("revshare: asset transfer failed")

	// ErrReceiverFailed indicates a staking receiver rejected a notification.
	ErrReceiverFailed = errors.New("revshare: staking receiver failed")

	// ErrValueTransferFailed indicates forwarding contributed value to the treasury failed.
	ErrValueTransferFailed = errors.New("revshare: value transfer failed")

	// ErrReentrant indicates a collaborator called back into an operation
	// that moves value while another operation was still running.
	ErrReentrant = errors.New("revshare: reentrant call")
)

// Everything else.
var (
	// ErrInvalidAddress indicates the zero address was used where a real one is required.
	ErrInvalidAddress = errors.New("revshare: invalid address")

	// ErrNoShares indicates there is no ownership to distribute against.
	ErrNoShares = errors.New("revshare: no shares issued")

	// ErrIndexOutOfRange indicates a registry index outside [0, TotalOwners).
	ErrIndexOutOfRange = errors.New("revshare: registry index out of range")

	// ErrInvariantViolation indicates the ledger state is internally inconsistent.
	ErrInvariantViolation = errors.New("revshare: invariant violation")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("revshare: required parameter is nil")

	// ErrInvalidSnapshot indicates snapshot bytes are malformed.
	ErrInvalidSnapshot = errors.New("revshare: invalid snapshot data")

	// ErrNoState indicates the store holds no committed state yet.
	ErrNoState = errors.New("revshare: no stored state")

	// ErrPersist indicates a committed operation could not be written to the store.
	ErrPersist = errors.New("revshare: persist state")

	// ErrExecutorClosed indicates the executor no longer accepts operations.
	ErrExecutorClosed = errors.New("revshare: executor closed")
)
