// Package machineerr defines the error taxonomy used across the component
// virtual machine: a closed set of error kinds, each optionally tagged with
// the (component, line) location it occurred at.
package machineerr

import "fmt"

// Kind enumerates the closed set of error conditions the engine can
// surface. Construction errors abort model build; runtime errors surface as
// a CommandResult and halt only the offending component's program for the
// tick (see spec §7).
type Kind int

const (
	// KindOther is a catch-all with free-form context.
	KindOther Kind = iota
	// KindFailedGettingVariable marks an address resolution miss.
	KindFailedGettingVariable
	// KindNoCommandPresent marks a prototype with no command head.
	KindNoCommandPresent
	// KindUnknownCommand marks a prototype whose head isn't in the dispatch table.
	KindUnknownCommand
	// KindInvalidCommandBody marks a prototype whose arguments don't match its head.
	KindInvalidCommandBody
	// KindParseError marks a failure to parse an address or argument string.
	KindParseError
	// KindScenarioMissingModules marks a scenario whose manifest lists a mod
	// that isn't present (or whose dependencies aren't satisfiable) under mods/.
	KindScenarioMissingModules
	// KindVersionMismatch marks an engine/mod version requirement that isn't met.
	KindVersionMismatch
	// KindFeatureUnsatisfied marks a required engine feature that isn't available.
	KindFeatureUnsatisfied
)

func (k Kind) String() string {
	switch k {
	case KindFailedGettingVariable:
		return "FailedGettingVariable"
	case KindNoCommandPresent:
		return "NoCommandPresent"
	case KindUnknownCommand:
		return "UnknownCommand"
	case KindInvalidCommandBody:
		return "InvalidCommandBody"
	case KindParseError:
		return "ParseError"
	case KindScenarioMissingModules:
		return "ScenarioMissingModules"
	case KindVersionMismatch:
		return "VersionMismatch"
	case KindFeatureUnsatisfied:
		return "FeatureUnsatisfied"
	default:
		return "Other"
	}
}

// Location is the (component, line) pair carried alongside diagnosable
// errors, per spec §4.D / §7. Both fields are optional since not every
// error (e.g. a model-load failure) has an owning component or line.
type Location struct {
	Component string
	Line      int
	HasLine   bool
}

func (l Location) String() string {
	if l.Component == "" && !l.HasLine {
		return ""
	}
	if l.HasLine {
		return fmt.Sprintf("%s:%d", l.Component, l.Line)
	}
	return l.Component
}

// Error is the structured error type returned by model construction and
// command execution. It implements the error interface so it composes with
// errors.Is/errors.As like any other Go error, while letting callers that
// need the structured fields recover them without string matching.
type Error struct {
	Location Location
	Kind     Kind
	Message  string
}

func New(loc Location, kind Kind, message string) *Error {
	return &Error{Location: loc, Kind: kind, Message: message}
}

// Other builds a Kind-Other error with no location, for contexts (e.g.
// scenario load) that predate any component/line context.
func Other(format string, args ...any) *Error {
	return &Error{Kind: KindOther, Message: fmt.Sprintf(format, args...)}
}

// AtLine builds an error tagged with a component and line, the common case
// for command-execution-time failures.
func AtLine(component string, line int, kind Kind, format string, args ...any) *Error {
	return &Error{
		Location: Location{Component: component, Line: line, HasLine: true},
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	loc := e.Location.String()
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, loc, e.Message)
}

// FailedGettingVariable builds the address-resolution-miss error named
// explicitly in spec §7, keyed by the address's string form.
func FailedGettingVariable(addr string) *Error {
	return &Error{Kind: KindFailedGettingVariable, Message: addr}
}

// Is allows errors.Is(err, machineerr.KindOf(k)) style matching by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf constructs a sentinel *Error carrying only a Kind, for use with
// errors.Is to test an error chain's kind without caring about message or
// location.
func KindOf(k Kind) *Error {
	return &Error{Kind: k}
}
