package cache

// Keyer generates cache keys for the derived-result stages.
// Implementations must be deterministic: equal inputs yield equal keys.
type Keyer interface {
	// LayoutKey generates a key for computed node positions.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// ArtifactKey generates a key for rendered artifacts.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts captures every option that affects a layout solve.
// A changed frame or spacing must never reuse stale positions.
type LayoutKeyOpts struct {
	Provider string
	Width    float64
	Height   float64
	Spacing  float64
}

// ArtifactKeyOpts captures every option that affects a rendered artifact.
type ArtifactKeyOpts struct {
	Format string
	Width  float64
	Height float64
}

// DefaultKeyer generates hash-based keys with stage prefixes.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// LayoutKey generates a key for computed node positions.
func (k *DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// ArtifactKey generates a key for rendered artifacts.
func (k *DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}
