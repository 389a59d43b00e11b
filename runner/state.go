package runner

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Stage is how far a wallet got in one pass. A pass moves through the
// stages in declaration order and stops at the first failure.
type Stage int

const (
	StageNone Stage = iota
	StageNonceRequested
	StageSigned
	StageLoggedIn
	StageProfileFetched
	StageEligibilityChecked
	StageMiningTriggered
	StageOnChainConfirmed
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "None"
	case StageNonceRequested:
		return "NonceRequested"
	case StageSigned:
		return "Signed"
	case StageLoggedIn:
		return "LoggedIn"
	case StageProfileFetched:
		return "ProfileFetched"
	case StageEligibilityChecked:
		return "EligibilityChecked"
	case StageMiningTriggered:
		return "MiningTriggered"
	case StageOnChainConfirmed:
		return "OnChainConfirmed"
	default:
		return "Unknown"
	}
}

// Outcome is the terminal state of a pass.
type Outcome int

const (
	// OutcomeSkipped means the pass stopped before mining was triggered.
	OutcomeSkipped Outcome = iota
	// OutcomeCompleted means mining was triggered server-side. The on-chain
	// activation may still have failed; see Result.Err.
	OutcomeCompleted
)

func (o Outcome) String() string {
	if o == OutcomeCompleted {
		return "Completed"
	}
	return "Skipped"
}

// Reasons a wallet is skipped without anything having gone wrong.
var (
	ErrSocialNotBound = errors.New("twitter/x account not bound")
	ErrCoolingDown    = errors.New("mining session still running")
)

// Session is the per-pass login state. It never outlives the pass.
type Session struct {
	Nonce     string
	Signature string
	Token     string
}

// Result describes one wallet pass.
type Result struct {
	Address string
	Stage   Stage // last stage reached
	Outcome Outcome
	// Err is why the pass was skipped, or the activation failure of a
	// completed pass.
	Err          error
	TxHash       common.Hash
	NextEligible time.Time
}

// Activated reports whether the on-chain confirmation went through.
func (r Result) Activated() bool {
	return r.Stage == StageOnChainConfirmed
}

// Summary tallies one full cycle over the wallets.
type Summary struct {
	Total            int
	Mined            int
	Activated        int
	ActivationFailed int
	Skipped          int
}

func (s *Summary) add(r Result) {
	s.Total++
	if r.Outcome == OutcomeSkipped {
		s.Skipped++
		return
	}
	s.Mined++
	if r.Activated() {
		s.Activated++
	} else {
		s.ActivationFailed++
	}
}

// Eligible reports whether a wallet whose last session started at
// lastMiningTime (unix seconds) may start a new one at now, along with the
// time it becomes eligible, in now's location. The boundary itself is not
// yet eligible.
func Eligible(lastMiningTime int64, now time.Time) (bool, time.Time) {
	next := time.Unix(lastMiningTime, 0).In(now.Location()).Add(MiningCooldown)
	return now.After(next), next
}
