package assets

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Type classifies an asset name.
type Type int

const (
	Invalid Type = iota
	Root
	Sub
	Unique
	MsgChannel
	Owner
	Vote
	Qualifier
	SubQualifier
	Restricted
)

func (t Type) String() string {
	switch t {
	case Root:
		return "ROOT"
	case Sub:
		return "SUB"
	case Unique:
		return "UNIQUE"
	case MsgChannel:
		return "MSGCHANNEL"
	case Owner:
		return "OWNER"
	case Vote:
		return "VOTE"
	case Qualifier:
		return "QUALIFIER"
	case SubQualifier:
		return "SUB_QUALIFIER"
	case Restricted:
		return "RESTRICTED"
	default:
		return "INVALID"
	}
}

const (
	MaxNameLength    = 32
	MaxChannelLength = 12
	minRootLength    = 3
)

// ErrInvalidName is wrapped by every validation failure.
var ErrInvalidName = errors.New("invalid asset name")

var (
	rootChars    = regexp.MustCompile(`^[A-Z0-9._]+$`)
	doublePunct  = regexp.MustCompile(`[._]{2,}`)
	uniqueChars  = regexp.MustCompile(`^[-A-Za-z0-9@$%&*()\[\]{}_.?:]+$`)
	channelChars = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	reserved     = map[string]struct{}{"RVN": {}, "RAVEN": {}, "RAVENCOIN": {}}
)

// Classify validates name and returns its type.
func Classify(name string) (Type, error) {
	if name == "" {
		return Invalid, fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return Invalid, fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidName, name, MaxNameLength)
	}

	switch {
	case strings.HasSuffix(name, "!"):
		if _, err := classifyHierarchy(strings.TrimSuffix(name, "!")); err != nil {
			return Invalid, err
		}
		return Owner, nil
	case strings.HasPrefix(name, "#"):
		return classifyQualifier(name)
	case strings.HasPrefix(name, "$"):
		if err := checkRootSegment(name[1:]); err != nil {
			return Invalid, err
		}
		return Restricted, nil
	}

	if base, tag, ok := strings.Cut(name, "#"); ok {
		if _, err := classifyHierarchy(base); err != nil {
			return Invalid, err
		}
		if !uniqueChars.MatchString(tag) {
			return Invalid, fmt.Errorf("%w: unique tag %q has unsupported characters", ErrInvalidName, tag)
		}
		return Unique, nil
	}
	if base, channel, ok := strings.Cut(name, "~"); ok {
		if _, err := classifyHierarchy(base); err != nil {
			return Invalid, err
		}
		if len(channel) > MaxChannelLength || !channelChars.MatchString(channel) {
			return Invalid, fmt.Errorf("%w: message channel %q", ErrInvalidName, channel)
		}
		return MsgChannel, nil
	}
	if base, vote, ok := strings.Cut(name, "^"); ok {
		if _, err := classifyHierarchy(base); err != nil {
			return Invalid, err
		}
		if err := checkSubSegment(vote); err != nil {
			return Invalid, err
		}
		return Vote, nil
	}
	return classifyHierarchy(name)
}

// Valid reports whether name parses under any asset type.
func Valid(name string) bool {
	_, err := Classify(name)
	return err == nil
}

func classifyHierarchy(name string) (Type, error) {
	segments := strings.Split(name, "/")
	if err := checkRootSegment(segments[0]); err != nil {
		return Invalid, err
	}
	for _, segment := range segments[1:] {
		if err := checkSubSegment(segment); err != nil {
			return Invalid, err
		}
	}
	if len(segments) > 1 {
		return Sub, nil
	}
	return Root, nil
}

func classifyQualifier(name string) (Type, error) {
	segments := strings.Split(name[1:], "/#")
	if err := checkRootSegment(segments[0]); err != nil {
		return Invalid, err
	}
	for _, segment := range segments[1:] {
		if err := checkSubSegment(segment); err != nil {
			return Invalid, err
		}
	}
	if len(segments) > 1 {
		return SubQualifier, nil
	}
	return Qualifier, nil
}

func checkRootSegment(segment string) error {
	if len(segment) < minRootLength {
		return fmt.Errorf("%w: %q is shorter than %d characters", ErrInvalidName, segment, minRootLength)
	}
	if _, ok := reserved[segment]; ok {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, segment)
	}
	return checkSubSegment(segment)
}

func checkSubSegment(segment string) error {
	switch {
	case segment == "":
		return fmt.Errorf("%w: empty name segment", ErrInvalidName)
	case !rootChars.MatchString(segment):
		return fmt.Errorf("%w: %q may only contain A-Z, 0-9, '.' and '_'", ErrInvalidName, segment)
	case strings.ContainsAny(segment[:1], "._") || strings.ContainsAny(segment[len(segment)-1:], "._"):
		return fmt.Errorf("%w: %q starts or ends with punctuation", ErrInvalidName, segment)
	case doublePunct.MatchString(segment):
		return fmt.Errorf("%w: %q has consecutive punctuation", ErrInvalidName, segment)
	}
	return nil
}
