package pipeline

// Branch history counter levels.
const (
	counterStrongTaken  uint8 = 3
	counterWeakTaken    uint8 = 2
	counterWeakNotTaken uint8 = 1
)

// DefaultBHTSize is the number of counters in the branch history table.
const DefaultBHTSize = 10

// BranchPredictorConfig holds configuration for the branch predictor.
type BranchPredictorConfig struct {
	// BHTSize is the number of entries in the Branch History Table.
	// Any positive size is allowed; entries are selected by pc % BHTSize.
	BHTSize uint32
}

// DefaultBranchPredictorConfig returns a default configuration.
func DefaultBranchPredictorConfig() BranchPredictorConfig {
	return BranchPredictorConfig{
		BHTSize: DefaultBHTSize,
	}
}

// BranchPredictorStats holds statistics for the branch predictor.
type BranchPredictorStats struct {
	// Lookups is the number of conditional branches seen at dec0.
	Lookups uint64
	// PredictedTaken is the number of lookups that redirected fetch.
	PredictedTaken uint64
	// Updates is the number of resolved conditional branches.
	Updates uint64
}

// TakenRate returns the share of lookups predicted taken as a percentage.
func (s BranchPredictorStats) TakenRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.PredictedTaken) / float64(s.Lookups) * 100
}

// BranchPredictor is a table of 2-bit saturating counters indexed by the
// branch PC. Counters start at 0, count up to 3 on taken and down to a floor
// of 1 on not taken. A counter of 2 or more predicts taken.
//
// The table is double-buffered like the pipeline registers: Predict reads
// the committed table, Update writes the next one, Commit publishes it.
type BranchPredictor struct {
	cur  []uint8
	next []uint8
	size uint32

	stats BranchPredictorStats
}

// NewBranchPredictor creates a new branch predictor with the given configuration.
func NewBranchPredictor(config BranchPredictorConfig) *BranchPredictor {
	size := config.BHTSize
	if size == 0 {
		size = DefaultBHTSize
	}

	return &BranchPredictor{
		cur:  make([]uint8, size),
		next: make([]uint8, size),
		size: size,
	}
}

func (bp *BranchPredictor) index(pc uint16) uint32 {
	return uint32(pc) % bp.size
}

// Predict returns true if the branch at pc is predicted taken.
func (bp *BranchPredictor) Predict(pc uint16) bool {
	taken := bp.cur[bp.index(pc)] >= counterWeakTaken

	bp.stats.Lookups++
	if taken {
		bp.stats.PredictedTaken++
	}

	return taken
}

// Update trains the counter of the branch at pc with its outcome.
func (bp *BranchPredictor) Update(pc uint16, taken bool) {
	idx := bp.index(pc)
	counter := bp.cur[idx]

	if taken {
		if counter < counterStrongTaken {
			bp.next[idx] = counter + 1
		}
	} else if counter > counterWeakNotTaken {
		bp.next[idx] = counter - 1
	}

	bp.stats.Updates++
}

// Commit publishes the updates of the current cycle.
func (bp *BranchPredictor) Commit() {
	copy(bp.cur, bp.next)
}

// Reset clears every counter.
func (bp *BranchPredictor) Reset() {
	for i := range bp.cur {
		bp.cur[i] = 0
		bp.next[i] = 0
	}
	bp.stats = BranchPredictorStats{}
}

// Counter returns the committed counter used for pc.
func (bp *BranchPredictor) Counter(pc uint16) uint8 {
	return bp.cur[bp.index(pc)]
}

// Counters returns a copy of the committed table.
func (bp *BranchPredictor) Counters() []uint8 {
	out := make([]uint8, len(bp.cur))
	copy(out, bp.cur)
	return out
}

// Size returns the number of table entries.
func (bp *BranchPredictor) Size() uint32 {
	return bp.size
}

// Stats returns the branch predictor statistics.
func (bp *BranchPredictor) Stats() BranchPredictorStats {
	return bp.stats
}
