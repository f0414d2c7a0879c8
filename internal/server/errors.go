package server

import "errors"

// Kind classifies why a request was refused.
type Kind int

const (
	KindInput    Kind = iota // malformed request
	KindAuth                 // unknown nick or bad credentials
	KindTurn                 // not the caller's turn or game
	KindSequence             // right player, wrong moment
	KindIllegal              // move breaks a game rule
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindAuth:
		return "auth"
	case KindTurn:
		return "turn"
	case KindSequence:
		return "sequence"
	case KindIllegal:
		return "illegal"
	case KindNotFound:
		return "not_found"
	}
	return "internal"
}

// Error is a refused request with a human-readable reason.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

// KindOf extracts the kind of err; unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrInvalidSize    = newErr(KindInput, "size must be a positive odd integer")
	ErrInvalidNick    = newErr(KindInput, "nick is required")
	ErrInvalidCell    = newErr(KindInput, "cell must be an integer inside the board")
	ErrGameNotFound   = newErr(KindNotFound, "game not found")
	ErrNotInGame      = newErr(KindTurn, "you are not playing this game")
	ErrNotYourTurn    = newErr(KindTurn, "not your turn")
	ErrGameOver       = newErr(KindSequence, "game is over")
	ErrNotStarted     = newErr(KindSequence, "waiting for an opponent")
	ErrAlreadyRolled  = newErr(KindSequence, "already rolled")
	ErrRollFirst      = newErr(KindSequence, "roll the sticks first")
	ErrMustPass       = newErr(KindSequence, "no moves available: pass the turn")
	ErrNoPassOnBonus  = newErr(KindSequence, "an extra-turn roll cannot be passed")
	ErrNoPiece        = newErr(KindIllegal, "no piece on that cell")
	ErrNotYourPiece   = newErr(KindIllegal, "that piece is not yours")
	ErrNeedsTab       = newErr(KindIllegal, "a piece that never moved needs a tâb (1)")
	ErrPieceStuck     = newErr(KindIllegal, "that piece cannot move with this roll")
	ErrInvalidMove    = newErr(KindIllegal, "invalid move")
	ErrHasMoves       = newErr(KindIllegal, "you still have legal moves")
)
