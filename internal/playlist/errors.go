package playlist

import "errors"

var (
	// ErrUnknownTransaction means a playlist names a transaction that is not loaded.
	ErrUnknownTransaction = errors.New("unknown transaction")
	// ErrUnknownPlaylist means a playlist was requested by a name that is not loaded.
	ErrUnknownPlaylist = errors.New("unknown playlist")
	// ErrUnknownAction means a step uses an action type the runner cannot perform.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrInvalidActionValue means a keyword action was given a value it does not take.
	ErrInvalidActionValue = errors.New("invalid action value")
	// ErrTargetNotFound means a button step found nothing to click.
	ErrTargetNotFound = errors.New("click target not found")
	// ErrNoDefinitions means a directory held no loadable files.
	ErrNoDefinitions = errors.New("no definitions loaded")
)
