// Package runner drives every configured wallet through login, the mining
// eligibility check, the mining trigger and the on-chain confirmation, one
// wallet at a time, once per cycle, until its context is cancelled.
package runner

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"takerminer/api"
	"takerminer/logger"
	"takerminer/wallet"
)

const (
	// CycleInterval is the pause between two passes over all wallets.
	CycleInterval = time.Hour
	// MiningCooldown is how long a mining session lasts before the next
	// one may be started.
	MiningCooldown = 24 * time.Hour
)

// API is the subset of *api.Client the loop drives.
type API interface {
	GetNonce(ctx context.Context, address string) (string, error)
	Login(ctx context.Context, address, message, signature string) (string, error)
	GetUser(ctx context.Context, token string) (*api.UserProfile, error)
	GetMinerStatus(ctx context.Context, token string) (*api.MinerStatus, error)
	StartMining(ctx context.Context, token string) error
}

// Activator confirms a mining session on-chain.
type Activator interface {
	Activate(ctx context.Context, privateKey string) (common.Hash, error)
}

// Signer signs a login nonce with a wallet key.
type Signer func(ctx context.Context, message, privateKey string) (string, error)

// Runner owns the wallet list and the clients used to process it.
type Runner struct {
	api       API
	activator Activator
	sign      Signer
	wallets   []wallet.Record

	interval time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithSleep replaces the context-aware sleep between cycles.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// New creates a Runner over wallets. Signing defaults to wallet.Sign when
// sign is nil.
func New(client API, activator Activator, sign Signer, wallets []wallet.Record, opts ...Option) *Runner {
	if sign == nil {
		sign = wallet.Sign
	}
	r := &Runner{
		api:       client,
		activator: activator,
		sign:      sign,
		wallets:   wallets,
		interval:  CycleInterval,
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every wallet, sleeps CycleInterval and starts over. It only
// returns once ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	for cycle := 1; ; cycle++ {
		r.RunCycle(ctx, cycle)
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.InfoContext(ctx, "All wallets processed", "cooldown", r.interval, "next_cycle", r.now().Add(r.interval).Format(time.DateTime))
		if err := r.sleep(ctx, r.interval); err != nil {
			return err
		}
	}
}

// RunCycle processes every wallet once, in order, and logs a summary.
func (r *Runner) RunCycle(ctx context.Context, cycle int) Summary {
	logger.InfoContext(ctx, "Starting wallet processing", "cycle", cycle, "wallets", len(r.wallets))

	var summary Summary
	for _, w := range r.wallets {
		if ctx.Err() != nil {
			logger.WarnContext(ctx, "Cycle interrupted", "cycle", cycle, "processed", summary.Total)
			break
		}
		summary.add(r.ProcessWallet(ctx, w))
	}

	logger.InfoContext(ctx, "Cycle summary",
		"cycle", cycle,
		"total", summary.Total,
		"mined", summary.Mined,
		"activated", summary.Activated,
		"activation_failed", summary.ActivationFailed,
		"skipped", summary.Skipped)
	return summary
}

// ProcessWallet runs one pass for w. It stops at the first step that fails
// or finds the wallet ineligible; a failed on-chain activation does not undo
// the server-side mining trigger.
func (r *Runner) ProcessWallet(ctx context.Context, w wallet.Record) Result {
	ctx = logger.WithWallet(ctx, w.Address)
	res := Result{Address: w.Address}
	var sess Session

	logger.InfoContext(ctx, "Processing wallet")

	nonce, err := r.api.GetNonce(ctx, w.Address)
	if err != nil {
		logger.ErrorContext(ctx, "Nonce retrieval failed", "error", err)
		return res.skip(err)
	}
	sess.Nonce = nonce
	res.Stage = StageNonceRequested

	sess.Signature, err = r.sign(ctx, sess.Nonce, w.PrivateKey)
	if err != nil {
		logger.ErrorContext(ctx, "Message signing failed", "error", err)
		return res.skip(err)
	}
	res.Stage = StageSigned

	logger.InfoContext(ctx, "Attempting login")
	sess.Token, err = r.api.Login(ctx, w.Address, sess.Nonce, sess.Signature)
	if err != nil {
		logger.ErrorContext(ctx, "Login failed", "error", err)
		return res.skip(err)
	}
	res.Stage = StageLoggedIn
	logger.SuccessContext(ctx, "Login successful")

	logger.InfoContext(ctx, "Fetching user info")
	profile, err := r.api.GetUser(ctx, sess.Token)
	if err != nil {
		logger.ErrorContext(ctx, "User data fetch failed", "error", err)
		return res.skip(err)
	}
	name := profile.TwitterName
	if name == "" {
		name = "N/A"
	}
	logger.SuccessContext(ctx, "User info retrieved",
		"id", profile.UserID.String(),
		"name", name,
		"reward", profile.TotalReward.String())
	if profile.TwitterName == "" {
		logger.WarnContext(ctx, "Twitter/X not bound, skipping wallet")
		return res.skip(ErrSocialNotBound)
	}
	res.Stage = StageProfileFetched

	logger.InfoContext(ctx, "Checking miner status")
	status, err := r.api.GetMinerStatus(ctx, sess.Token)
	if err != nil {
		logger.ErrorContext(ctx, "Miner status fetch failed", "error", err)
		return res.skip(err)
	}

	now := r.now()
	eligible, next := Eligible(status.LastMiningTime, now)
	res.NextEligible = next
	logger.InfoContext(ctx, "Last mining time", "at", time.Unix(status.LastMiningTime, 0).Format(time.DateTime))
	if !eligible {
		logger.WarnContext(ctx, "Mining in progress",
			"next_mining", next.Format(time.DateTime),
			"wait", next.Sub(now).Round(time.Second))
		return res.skip(ErrCoolingDown)
	}
	res.Stage = StageEligibilityChecked

	logger.InfoContext(ctx, "Starting mining")
	if err := r.api.StartMining(ctx, sess.Token); err != nil {
		logger.ErrorContext(ctx, "Mining start failed", "error", err)
		return res.skip(err)
	}
	res.Stage = StageMiningTriggered
	res.Outcome = OutcomeCompleted
	logger.SuccessContext(ctx, "Mining started")

	logger.InfoContext(ctx, "Activating on-chain mining")
	hash, err := r.activator.Activate(ctx, w.PrivateKey)
	if err != nil {
		logger.ErrorContext(ctx, "On-chain mining failed", "reason", "insufficient balance or already mined", "error", err)
		res.Err = err
		return res
	}
	res.Stage = StageOnChainConfirmed
	res.TxHash = hash
	logger.SuccessContext(ctx, "On-chain mining confirmed", "tx", hash.Hex())
	return res
}

func (r Result) skip(err error) Result {
	r.Outcome = OutcomeSkipped
	r.Err = err
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
