package dice

import "go.uber.org/zap"

// Roller wraps a Source and logs every draw at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller over src.
//
// Precondition: src must be non-nil; logger may be nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil {
		panic("dice.NewRoller: precondition violated: src must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Intn forwards to the underlying Source so a Roller is itself a Source.
func (r *Roller) Intn(n int) int { return r.src.Intn(n) }

// Chance performs one Chance draw and logs it under reason.
func (r *Roller) Chance(reason string, p float64) bool {
	ok := Chance(r.src, p)
	r.logger.Debug("chance draw",
		zap.String("reason", reason),
		zap.Float64("p", p),
		zap.Bool("success", ok),
	)
	return ok
}

// Roll evaluates e and logs the result.
func (r *Roller) Roll(e Expression) Result {
	res := Roll(e, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", res.Expression),
		zap.Ints("dice", res.Dice),
		zap.Int("modifier", res.Modifier),
		zap.Int("total", res.Total()),
	)
	return res
}
