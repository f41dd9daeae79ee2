package types

import "fmt"

// StateKind names a variant of ItemState
type StateKind string

const (
	StateInitial       StateKind = "initial"
	StateLoading       StateKind = "loading"
	StateNeedsDownload StateKind = "needsDownload"
	StateDownloading   StateKind = "downloading"
	StateSuccess       StateKind = "success"
	StateFailure       StateKind = "failure"
)

// ItemState is the display-readiness state of a wallpaper item.
// The set of implementations is closed: Initial, Loading, NeedsDownload,
// Downloading, Success and Failure.
type ItemState interface {
	Kind() StateKind
	isItemState()
}

// Initial is the state of a freshly created item.
type Initial struct{}

// Loading means local files exist and must be resolved.
type Loading struct{}

// NeedsDownload means the assets have to be fetched first.
type NeedsDownload struct{}

// Downloading means a download is in flight.
type Downloading struct{}

// Success holds the resolved asset.
type Success struct {
	Asset DisplayableAsset
}

// Failure holds the reason the item could not be displayed.
type Failure struct {
	Err error
}

func (Initial) Kind() StateKind       { return StateInitial }
func (Loading) Kind() StateKind       { return StateLoading }
func (NeedsDownload) Kind() StateKind { return StateNeedsDownload }
func (Downloading) Kind() StateKind   { return StateDownloading }
func (Success) Kind() StateKind       { return StateSuccess }
func (Failure) Kind() StateKind       { return StateFailure }

func (Initial) isItemState()       {}
func (Loading) isItemState()       {}
func (NeedsDownload) isItemState() {}
func (Downloading) isItemState()   {}
func (Success) isItemState()       {}
func (Failure) isItemState()       {}

// Error returns the failure reason, falling back to ErrFileMissing.
func (f Failure) Error() string {
	if f.Err == nil {
		return ErrFileMissing.Error()
	}
	return f.Err.Error()
}

// ValidTransitions defines allowed state transitions
var ValidTransitions = map[StateKind][]StateKind{
	StateInitial:       {StateLoading, StateNeedsDownload},
	StateLoading:       {StateSuccess, StateFailure},
	StateNeedsDownload: {StateDownloading, StateFailure},
	StateDownloading:   {StateSuccess, StateFailure},
	StateSuccess:       {StateInitial},
	StateFailure:       {StateInitial, StateLoading, StateNeedsDownload},
}

// CanTransition reports whether moving from one state kind to another is legal.
func CanTransition(from, to StateKind) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrIllegalTransition when CanTransition is false.
func ValidateTransition(from, to StateKind) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// IsTerminal reports whether the kind ends a fetch attempt.
func (k StateKind) IsTerminal() bool {
	return k == StateSuccess || k == StateFailure
}

// StateView is the JSON representation of an ItemState
type StateView struct {
	State StateKind         `json:"state"`
	Asset *DisplayableAsset `json:"asset,omitempty"`
	Error string            `json:"error,omitempty"`
}

// ViewOf converts a state into its JSON view.
func ViewOf(state ItemState) StateView {
	switch s := state.(type) {
	case Success:
		asset := s.Asset
		return StateView{State: StateSuccess, Asset: &asset}
	case Failure:
		return StateView{State: StateFailure, Error: s.Error()}
	case Initial, Loading, NeedsDownload, Downloading:
		return StateView{State: s.Kind()}
	default:
		panic(fmt.Sprintf("unknown item state %T", state))
	}
}
