package script

import "errors"

// Kind classifies why a scene failed to load.
type Kind int

const (
	KindEmptyInput Kind = iota + 1
	KindRuntimeNotInitialized
	KindModuleNotFound
	KindScriptCompile
	KindScriptRuntime
	KindMissingExport
	KindInvalidExport
)

var kindNames = map[Kind]string{
	KindEmptyInput:            "EmptyInput",
	KindRuntimeNotInitialized: "RuntimeNotInitialized",
	KindModuleNotFound:        "ModuleNotFound",
	KindScriptCompile:         "ScriptCompileError",
	KindScriptRuntime:         "ScriptRuntimeException",
	KindMissingExport:         "MissingExport",
	KindInvalidExport:         "InvalidExport",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Sentinels for errors.Is. A *LoadError matches the sentinel of its Kind.
var (
	ErrEmptyInput            = errors.New("script: empty input")
	ErrRuntimeNotInitialized = errors.New("script: runtime not initialized")
	ErrModuleNotFound        = errors.New("script: module not found")
	ErrScriptCompile         = errors.New("script: compile error")
	ErrScriptRuntime         = errors.New("script: runtime exception")
	ErrMissingExport         = errors.New("script: missing scene export")
	ErrInvalidExport         = errors.New("script: scene export is not a solid")

	ErrAlreadyInitialized = errors.New("script: runtime already initialized")
)

var kindSentinels = map[Kind]error{
	KindEmptyInput:            ErrEmptyInput,
	KindRuntimeNotInitialized: ErrRuntimeNotInitialized,
	KindModuleNotFound:        ErrModuleNotFound,
	KindScriptCompile:         ErrScriptCompile,
	KindScriptRuntime:         ErrScriptRuntime,
	KindMissingExport:         ErrMissingExport,
	KindInvalidExport:         ErrInvalidExport,
}

const (
	// MainModule is the logical name scene source is compiled under.
	MainModule = "scene.js"

	SuccessMessage = "Scene loaded successfully"

	msgEmptyInput     = "No scene code provided"
	msgNotInitialized = "Runtime not initialized"
	msgMissingExport  = "Scene module must export 'scene'"
	msgInvalidExport  = "Exported 'scene' is not a manifold"
)

// LoadError is returned by LoadScene. Error returns Message unchanged so it
// can be shown to the user as is.
type LoadError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	if e == nil {
		return false
	}
	return kindSentinels[e.Kind] == target
}

func newLoadError(k Kind, msg string, cause error) *LoadError {
	return &LoadError{Kind: k, Message: msg, Err: cause}
}

// KindOf returns the Kind of err, or 0 if err is not a *LoadError.
func KindOf(err error) Kind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}
