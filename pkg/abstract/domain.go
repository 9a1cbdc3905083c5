package abstract

// Scalar is the common algebra shared by Interval and Raf: the
// abstract classifier (pkg/classify) and the abstract-distance
// computation (pkg/distance) are written once, generically, against
// this interface and instantiated for both domains. T is always the
// concrete implementing type itself (Interval or Raf), so methods
// like Add take and return a same-domain value.
type Scalar[T any] interface {
	Add(T) T
	AddScalar(float64) T
	Sub(T) T
	SubScalar(float64) T
	Mul(T) T
	MulScalar(float64) T
	Neg() T
	Square() T
	Abs() T

	LowerBound() float64
	UpperBound() float64

	Dominates(T) bool
	StrictlyDominates(T) bool
	DominatedBy(T) bool
	StrictlyDominatedBy(T) bool

	DominatesScalar(float64) bool
	StrictlyDominatesScalar(float64) bool
	DominatedByScalar(float64) bool
	StrictlyDominatedByScalar(float64) bool

	// Less is the total order used only for heap placement (see
	// pkg/heap); it is unrelated to the partial dominance relations
	// above, which are what soundness actually rests on.
	Less(T) bool
}

var (
	_ Scalar[Interval] = Interval{}
	_ Scalar[Raf]      = Raf{}
)
