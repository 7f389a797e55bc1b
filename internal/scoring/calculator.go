package scoring

// Config holds configurable scoring constants (defaults match requirements).
type Config struct {
	MinAward         int // floor awarded for any answer before expiry; default: 10
	DefaultTimeLimit int // seconds, used when a question carries no time limit; default: 20
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MinAward:         10,
		DefaultTimeLimit: 20,
	}
}

// Calculator computes time-decayed point awards for quiz answers.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator with the provided config.
// Zero-valued config fields fall back to defaults.
func NewCalculator(config Config) *Calculator {
	defaults := DefaultConfig()
	if config.MinAward <= 0 {
		config.MinAward = defaults.MinAward
	}
	if config.DefaultTimeLimit <= 0 {
		config.DefaultTimeLimit = defaults.DefaultTimeLimit
	}
	return &Calculator{config: config}
}

// DefaultTimeLimit returns the fallback per-question time limit in seconds.
func (c *Calculator) DefaultTimeLimit() int {
	return c.config.DefaultTimeLimit
}

// AwardedPoints computes the points earned for a correct answer submitted
// elapsedSeconds into the countdown.
// Formula: max(minAward, basePoints - floor(basePoints/timeLimit) * elapsedSeconds)
// - at elapsed 0 the full base value is awarded
// - the award decays linearly per second, never dropping below the floor
// - at or after the time limit the award is 0
// Base values below the floor skip the floor policy and award nothing.
// Negative inputs are clamped to 0; the function never fails, so it is safe
// to call from a render/tick loop.
func (c *Calculator) AwardedPoints(basePoints, elapsedSeconds, timeLimit int) int {
	if basePoints < 0 {
		basePoints = 0
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	if timeLimit <= 0 {
		timeLimit = c.config.DefaultTimeLimit
	}

	if elapsedSeconds >= timeLimit {
		return 0
	}
	if basePoints < c.config.MinAward {
		return 0
	}

	rate := c.DeductionRate(basePoints, timeLimit)
	award := basePoints - rate*elapsedSeconds
	if award < c.config.MinAward {
		award = c.config.MinAward
	}
	return award
}

// DeductionRate returns the points removed per elapsed countdown second.
func (c *Calculator) DeductionRate(basePoints, timeLimit int) int {
	if timeLimit <= 0 {
		timeLimit = c.config.DefaultTimeLimit
	}
	if basePoints < 0 {
		return 0
	}
	return basePoints / timeLimit
}
