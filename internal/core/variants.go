package core

// EmptyStateIcon selects the illustration of an empty list.
type EmptyStateIcon int

const (
	EmptyBinder EmptyStateIcon = iota
	EmptyCategory
	EmptyTransaction
)

var emptyStates = map[EmptyStateIcon]struct{ glyph, text string }{
	EmptyBinder:      {"📁", "Nessun binder. Creane uno per iniziare."},
	EmptyCategory:    {"🏷", "Nessuna categoria in questo binder."},
	EmptyTransaction: {"🧾", "Nessuna transazione in questa categoria."},
}

// Glyph returns the icon, falling back to the binder icon.
func (i EmptyStateIcon) Glyph() string {
	if e, ok := emptyStates[i]; ok {
		return e.glyph
	}
	return emptyStates[EmptyBinder].glyph
}

// Text is the default message shown next to the icon.
func (i EmptyStateIcon) Text() string {
	if e, ok := emptyStates[i]; ok {
		return e.text
	}
	return emptyStates[EmptyBinder].text
}

// LoaderVariant selects a loading indicator. The zero value is the spinner.
type LoaderVariant int

const (
	LoaderSpinner LoaderVariant = iota
	LoaderHeart
	LoaderWallet
	LoaderCard
	LoaderCoin
	LoaderReceipt
	LoaderDollar
)

var loaderFrames = map[LoaderVariant][]string{
	LoaderSpinner: {"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	LoaderHeart:   {"♡", "♥"},
	LoaderWallet:  {"👛", "💰"},
	LoaderCard:    {"💳", "▭"},
	LoaderCoin:    {"🪙", "●"},
	LoaderReceipt: {"🧾", "▤"},
	LoaderDollar:  {"$", "💲"},
}

var loaderNames = map[string]LoaderVariant{
	"spinner": LoaderSpinner,
	"heart":   LoaderHeart,
	"wallet":  LoaderWallet,
	"card":    LoaderCard,
	"coin":    LoaderCoin,
	"receipt": LoaderReceipt,
	"dollar":  LoaderDollar,
}

// ParseLoaderVariant maps a name to a variant; unknown names give the
// spinner.
func ParseLoaderVariant(name string) LoaderVariant {
	return loaderNames[name]
}

// Frame returns the glyph for animation step n.
func (v LoaderVariant) Frame(n int) string {
	frames, ok := loaderFrames[v]
	if !ok {
		frames = loaderFrames[LoaderSpinner]
	}
	if n < 0 {
		n = -n
	}
	return frames[n%len(frames)]
}
