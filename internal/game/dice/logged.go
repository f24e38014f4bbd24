package dice

import "go.uber.org/zap"

// Evaluator wraps Evaluate and logs every check at debug level with chance,
// bonus, roll and outcome.
type Evaluator struct {
	logger *zap.Logger
}

// NewLoggedEvaluator creates an Evaluator logging to logger. A nil logger disables logging.
func NewLoggedEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

// Evaluate resolves a check like the package-level Evaluate and logs the result.
//
// Postcondition: rejected rolls are logged at warn level and returned as *InvalidRollError.
func (e *Evaluator) Evaluate(baseChance, bonus, rolled int) (Result, error) {
	res, err := Evaluate(baseChance, bonus, rolled)
	if err != nil {
		e.logger.Warn("roll rejected",
			zap.Int("base_chance", baseChance),
			zap.Int("bonus", bonus),
			zap.Int("rolled", rolled),
			zap.Error(err),
		)
		return Result{}, err
	}
	e.logger.Debug("check evaluated",
		zap.Int("base_chance", baseChance),
		zap.Int("bonus", bonus),
		zap.Int("final_chance", res.FinalChance),
		zap.Int("rolled", res.Rolled),
		zap.Int("crit_success_threshold", res.CritSuccessThreshold),
		zap.Int("crit_fail_threshold", res.CritFailThreshold),
		zap.Stringer("outcome", res.Outcome()),
	)
	return res, nil
}
