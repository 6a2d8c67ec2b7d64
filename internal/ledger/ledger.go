package ledger

import (
	"sync"
	"time"

	"ArenaVault/internal/logger"
	"ArenaVault/internal/storage"
)

// TransferPort moves fungible value between principals and ledger
// custody. Both calls are atomic with respect to the enclosing
// operation: a failed transfer aborts it with no ledger state change.
type TransferPort interface {
	// Deposit moves amount of asset from the principal into custody.
	Deposit(from Principal, asset AssetID, amount uint64) error
	// Release moves amount of asset from custody to the principal.
	Release(to Principal, asset AssetID, amount uint64) error
	// CustodyBalance returns the amount of asset held in custody.
	CustodyBalance(asset AssetID) (uint64, error)
}

// Oracle values a reward basket in the common denomination.
type Oracle interface {
	TotalValue(assets []AssetID, amounts []uint64) (uint64, error)
}

// AttestationChecker validates a signed settlement attestation and
// consumes its nonce. Implementations must record the nonce before
// returning success.
type AttestationChecker interface {
	Verify(principal Principal, assets []AssetID, amounts []uint64, nonce uint64, signature []byte) error
}

// Ledger owns per-principal session records and enforces the session
// state machine. The top-level mutating operations run one at a time
// under opMu, so the session counter and custody movements never
// interleave; the per-principal busy flag exists purely to turn a
// nested call arriving through the transfer port into Reentrant
// instead of a self-deadlock.
type Ledger struct {
	sessions *sessionStore
	access   *accessConfig
	port     TransferPort
	oracle   Oracle             // nil disables the exit floor check
	checker  AttestationChecker // nil disables the signed-attestation path
	emitter  Emitter

	opMu sync.Mutex // held for the full duration of each mutating operation

	mu   sync.Mutex // guards busy and access
	busy map[Principal]bool

	now func() int64 // now returns unix seconds; swapped in tests
}

// Option configures optional ledger collaborators.
type Option func(*Ledger)

// WithOracle wires the price oracle used for the exit floor check.
func WithOracle(o Oracle) Option {
	return func(l *Ledger) { l.oracle = o }
}

// WithAttestationChecker wires the verifier for the delegated-authority
// settlement path.
func WithAttestationChecker(c AttestationChecker) Option {
	return func(l *Ledger) { l.checker = c }
}

// WithEmitter wires the event sink.
func WithEmitter(e Emitter) Option {
	return func(l *Ledger) { l.emitter = e }
}

// New creates a ledger over the given storage and transfer port.
// admin and attestor are bootstrap identities used until roles are
// rotated; persisted roles take precedence on restart.
func New(db *storage.Storage, port TransferPort, admin, attestor Principal, attestorPub []byte, opts ...Option) (*Ledger, error) {
	access, err := loadAccessConfig(db, admin, attestor, attestorPub)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		sessions: newSessionStore(db),
		access:   access,
		port:     port,
		emitter:  nopEmitter{},
		busy:     make(map[Principal]bool),
		now:      func() int64 { return time.Now().Unix() },
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// acquire marks the principal busy for the duration of an operation.
// A nested call while the flag is held fails with Reentrant. The flag
// must be taken before opMu: a reentrant call holds opMu already, and
// the busy check is what turns it into an error instead of a deadlock.
func (l *Ledger) acquire(p Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy[p] {
		return ErrReentrant
	}

	l.busy[p] = true

	return nil
}

// release clears the busy flag on every exit path.
func (l *Ledger) release(p Principal) {
	l.mu.Lock()
	delete(l.busy, p)
	l.mu.Unlock()
}

// Enter opens a session for the principal by depositing amount of asset
// into custody. Returns the assigned session ID.
func (l *Ledger) Enter(principal Principal, asset AssetID, amount uint64) (uint64, error) {
	if err := l.acquire(principal); err != nil {
		return 0, err
	}
	defer l.release(principal)

	l.opMu.Lock()
	defer l.opMu.Unlock()

	if amount == 0 {
		return 0, ErrInvalidAmount
	}

	s, err := l.sessions.get(principal)
	if err != nil {
		return 0, err
	}

	if s.open() {
		return 0, wrapf(ErrAlreadyOpen, "principal %s has a session in status %s", principal, s.Status)
	}

	// The deposit is the only external call; it happens before any state
	// write so a failure aborts with nothing to undo.
	if err := l.port.Deposit(principal, asset, amount); err != nil {
		return 0, wrap(ErrTransferFailed, err)
	}

	id, err := l.sessions.nextSessionID()
	if err != nil {
		return 0, err
	}

	openedAt := l.now()

	// Prior Terminated/Claimed records are reinitialized here, never
	// deleted independently.
	fresh := &Session{
		Status:      StatusActive,
		EntryAsset:  asset,
		EntryAmount: amount,
		OpenedAt:    openedAt,
		ID:          id,
	}

	if err := l.sessions.put(principal, fresh); err != nil {
		return 0, err
	}

	logger.Info("session opened", "principal", principal, "asset", asset, "amount", amount, "session_id", id)
	l.emitter.Emit(EntryRecorded{
		Principal: principal,
		Asset:     asset,
		Amount:    amount,
		SessionID: id,
		Timestamp: openedAt,
	})

	return id, nil
}

// UpdateState moves a session from Active to a terminal outcome.
// Callable only by the attestor. Exited stores the reward basket
// verbatim; Terminated forfeits it.
func (l *Ledger) UpdateState(caller, principal Principal, newStatus Status, rewardAssets []AssetID, rewardAmounts []uint64) error {
	if err := l.acquire(principal); err != nil {
		return err
	}
	defer l.release(principal)

	l.opMu.Lock()
	defer l.opMu.Unlock()

	if caller != l.Attestor() {
		return ErrUnauthorized
	}

	return l.settle(principal, newStatus, rewardAssets, rewardAmounts)
}

// SettleAttested drives the same Active→Exited transition as
// UpdateState, authorized by a signed attestation instead of a direct
// attestor call. The verifier consumes the nonce before the transition.
func (l *Ledger) SettleAttested(principal Principal, assets []AssetID, amounts []uint64, nonce uint64, signature []byte) error {
	if l.checker == nil {
		return ErrUnauthorized
	}

	if err := l.acquire(principal); err != nil {
		return err
	}
	defer l.release(principal)

	l.opMu.Lock()
	defer l.opMu.Unlock()

	// Check the transition is possible and the basket clears the exit
	// floor before burning the nonce: a mistimed attestation stays
	// replayable once the session opens, and a floor-rejected one stays
	// replayable once the floor is lowered.
	s, err := l.sessions.get(principal)
	if err != nil {
		return err
	}
	if s.Status != StatusActive {
		return wrapf(ErrInvalidTransition, "cannot settle session in status %s", s.Status)
	}

	if len(assets) != len(amounts) {
		return wrapf(ErrLengthMismatch, "%d assets vs %d amounts", len(assets), len(amounts))
	}

	if err := l.checkExitFloor(assets, amounts); err != nil {
		return err
	}

	if err := l.checker.Verify(principal, assets, amounts, nonce, signature); err != nil {
		return err
	}

	return l.settle(principal, StatusExited, assets, amounts)
}

// settle applies a terminal transition. Authorization and the busy flag
// are the caller's responsibility.
func (l *Ledger) settle(principal Principal, newStatus Status, rewardAssets []AssetID, rewardAmounts []uint64) error {
	if newStatus != StatusExited && newStatus != StatusTerminated {
		return wrapf(ErrInvalidTransition, "target status %s is not terminal", newStatus)
	}

	if len(rewardAssets) != len(rewardAmounts) {
		return wrapf(ErrLengthMismatch, "%d assets vs %d amounts", len(rewardAssets), len(rewardAmounts))
	}

	s, err := l.sessions.get(principal)
	if err != nil {
		return err
	}

	if s.Status != StatusActive {
		return wrapf(ErrInvalidTransition, "cannot update session in status %s", s.Status)
	}

	s.Status = newStatus

	if newStatus == StatusExited {
		if err := l.checkExitFloor(rewardAssets, rewardAmounts); err != nil {
			return err
		}

		// The attestor is solely responsible for reward correctness;
		// the ledger stores the basket verbatim.
		s.RewardAssets = rewardAssets
		s.RewardAmounts = rewardAmounts
	} else {
		// Termination forfeits the reward regardless of what was passed.
		s.RewardAssets = nil
		s.RewardAmounts = nil
	}

	if err := l.sessions.put(principal, s); err != nil {
		return err
	}

	logger.Info("session updated", "principal", principal, "status", newStatus, "session_id", s.ID, "rewards", len(s.RewardAssets))
	l.emitter.Emit(StateUpdated{
		Principal:     principal,
		SessionID:     s.ID,
		NewStatus:     newStatus.String(),
		RewardAssets:  s.RewardAssets,
		RewardAmounts: s.RewardAmounts,
	})

	return nil
}

// checkExitFloor enforces the governed minimum exit value when an
// oracle is configured.
func (l *Ledger) checkExitFloor(assets []AssetID, amounts []uint64) error {
	floor := l.exitFloor()
	if floor == 0 || l.oracle == nil {
		return nil
	}

	value, err := l.oracle.TotalValue(assets, amounts)
	if err != nil {
		return err
	}

	if value < floor {
		return wrapf(ErrBelowMinimum, "reward value %d below floor %d", value, floor)
	}

	return nil
}

// exitFloor reads the governed threshold under the config lock.
func (l *Ledger) exitFloor() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.access.exitFloor
}

// Claim releases the recorded rewards of an Exited session to the
// principal. The status flips to Claimed before any outbound transfer,
// so a reentrant call observed mid-release fails the NotEligible check
// on top of the busy-flag rejection.
func (l *Ledger) Claim(principal Principal) error {
	if err := l.acquire(principal); err != nil {
		return err
	}
	defer l.release(principal)

	l.opMu.Lock()
	defer l.opMu.Unlock()

	s, err := l.sessions.get(principal)
	if err != nil {
		return err
	}

	if s.Status != StatusExited {
		return wrapf(ErrNotEligible, "cannot claim session in status %s", s.Status)
	}

	if len(s.RewardAssets) == 0 {
		return ErrNothingToClaim
	}

	// Verify custody can cover every reward before the first release, so
	// an underfunded custody aborts with no state change. Claim can then
	// be re-driven once custody is funded.
	if err := l.checkCustody(s.RewardAssets, s.RewardAmounts); err != nil {
		return err
	}

	rewardAssets := s.RewardAssets
	rewardAmounts := s.RewardAmounts

	// Checks-Effects-Interactions: commit Claimed before releasing.
	s.Status = StatusClaimed
	s.RewardAssets = nil
	s.RewardAmounts = nil

	if err := l.sessions.put(principal, s); err != nil {
		return err
	}

	released, releaseErr := l.releaseRewards(principal, rewardAssets, rewardAmounts)

	logger.Info("claim settled", "principal", principal, "session_id", s.ID, "released", released)
	l.emitter.Emit(ClaimSettled{
		Principal: principal,
		SessionID: s.ID,
		Assets:    rewardAssets[:released],
		Amounts:   rewardAmounts[:released],
	})

	if releaseErr != nil {
		// Custody was pre-checked, so this is a recipient-side rejection.
		// The session stays Claimed: settlement happens at most once.
		return wrap(ErrTransferFailed, releaseErr)
	}

	return nil
}

// checkCustody verifies custody holds every reward amount.
func (l *Ledger) checkCustody(assets []AssetID, amounts []uint64) error {
	for i, asset := range assets {
		held, err := l.port.CustodyBalance(asset)
		if err != nil {
			return wrap(ErrTransferFailed, err)
		}

		if held < amounts[i] {
			return wrapf(ErrInsufficientFunds, "custody holds %d of asset %s, reward needs %d", held, asset, amounts[i])
		}
	}

	return nil
}

// releaseRewards transfers each positive reward amount to the
// principal. Returns how many pairs were fully processed; zero amounts
// are skipped without error.
func (l *Ledger) releaseRewards(to Principal, assets []AssetID, amounts []uint64) (int, error) {
	for i, asset := range assets {
		if amounts[i] == 0 {
			continue
		}

		if err := l.port.Release(to, asset, amounts[i]); err != nil {
			return i, err
		}
	}

	return len(assets), nil
}

// Status returns the current status of the principal's session.
func (l *Ledger) Status(principal Principal) (Status, error) {
	s, err := l.sessions.get(principal)
	if err != nil {
		return StatusInactive, err
	}

	return s.Status, nil
}

// Session returns a copy of the principal's session record.
func (l *Ledger) Session(principal Principal) (*Session, error) {
	return l.sessions.get(principal)
}

// Rewards returns the recorded reward basket of the principal's session.
func (l *Ledger) Rewards(principal Principal) ([]AssetID, []uint64, error) {
	s, err := l.sessions.get(principal)
	if err != nil {
		return nil, nil, err
	}

	return s.RewardAssets, s.RewardAmounts, nil
}

// CustodyBalance returns the amount of asset held in custody.
func (l *Ledger) CustodyBalance(asset AssetID) (uint64, error) {
	return l.port.CustodyBalance(asset)
}

// Sessions returns a snapshot of every session record, for inspection
// and operator tooling.
func (l *Ledger) Sessions() (map[Principal]*Session, error) {
	return l.sessions.export()
}
