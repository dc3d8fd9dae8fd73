package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName               = "bool"
	booleanFlagTrueLiteral            = "true"
	booleanFlagUnsetLiteral           = "unset"
	booleanFlagAcceptedValuesListing  = "true, false, yes, no, on, off, 1, 0"
	booleanFlagInvalidValueErrorLabel = "invalid boolean value"
	booleanFlagInvalidFormat          = "%s %q for --%s; accepted values: %s"
)

var booleanFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// optionalBooleanFlagValue leaves its target nil until the flag is given so
// that unset flags do not override configuration files. Inverted flags such
// as --no-files store the negation of the parsed value.
type optionalBooleanFlagValue struct {
	target   **bool
	flagKey  string
	inverted bool
}

func (value *optionalBooleanFlagValue) Set(input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = booleanFlagTrueLiteral
	}
	parsed, ok := booleanFlagLiterals[normalized]
	if !ok {
		return fmt.Errorf(booleanFlagInvalidFormat, booleanFlagInvalidValueErrorLabel, input, value.flagKey, booleanFlagAcceptedValuesListing)
	}
	if value.inverted {
		parsed = !parsed
	}
	*value.target = &parsed
	return nil
}

func (value *optionalBooleanFlagValue) String() string {
	if value == nil || value.target == nil || *value.target == nil {
		return booleanFlagUnsetLiteral
	}
	stored := **value.target
	if value.inverted {
		stored = !stored
	}
	return strconv.FormatBool(stored)
}

func (value *optionalBooleanFlagValue) Type() string {
	return booleanFlagTypeName
}

func registerOptionalBooleanFlag(flagSet *pflag.FlagSet, target **bool, name string, usage string) {
	registerBooleanValue(flagSet, &optionalBooleanFlagValue{target: target, flagKey: name}, name, usage)
}

func registerInvertedBooleanFlag(flagSet *pflag.FlagSet, target **bool, name string, usage string) {
	registerBooleanValue(flagSet, &optionalBooleanFlagValue{target: target, flagKey: name, inverted: true}, name, usage)
}

func registerBooleanValue(flagSet *pflag.FlagSet, value *optionalBooleanFlagValue, name string, usage string) {
	if flagSet == nil || value.target == nil {
		return
	}
	*value.target = nil
	flagSet.Var(value, name, usage)
	if lookup := flagSet.Lookup(name); lookup != nil {
		lookup.DefValue = booleanFlagUnsetLiteral
		lookup.NoOptDefVal = booleanFlagTrueLiteral
	}
}

// normalizeBooleanFlagArguments joins "--flag yes" into "--flag=yes" for
// boolean flags so that the value is not mistaken for a directory.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	if command == nil || len(arguments) == 0 {
		return arguments
	}
	booleanFlags := map[string]struct{}{}
	collectFlagNames(command, booleanFlagTypeName, booleanFlags)
	if len(booleanFlags) == 0 {
		return arguments
	}
	return joinFlagValues(arguments, booleanFlags, func(candidate string) bool {
		_, valid := booleanFlagLiterals[strings.ToLower(strings.TrimSpace(candidate))]
		return valid
	})
}

func joinFlagValues(arguments []string, flagNames map[string]struct{}, acceptsValue func(string) bool) []string {
	normalized := make([]string, 0, len(arguments))
	index := 0
	for index < len(arguments) {
		currentArgument := arguments[index]
		if currentArgument == "--" {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		if strings.HasPrefix(currentArgument, "--") && !strings.Contains(currentArgument, "=") {
			flagName := strings.TrimPrefix(currentArgument, "--")
			if _, exists := flagNames[flagName]; exists && index+1 < len(arguments) {
				nextArgument := arguments[index+1]
				if !strings.HasPrefix(nextArgument, "-") && acceptsValue(nextArgument) {
					normalized = append(normalized, fmt.Sprintf("--%s=%s", flagName, nextArgument))
					index += 2
					continue
				}
			}
		}
		normalized = append(normalized, currentArgument)
		index++
	}
	return normalized
}

func collectFlagNames(command *cobra.Command, typeName string, target map[string]struct{}) {
	if command == nil || target == nil {
		return
	}
	visit := func(flagSet *pflag.FlagSet) {
		if flagSet == nil {
			return
		}
		flagSet.VisitAll(func(flag *pflag.Flag) {
			if flag == nil || flag.Value == nil {
				return
			}
			if flag.Value.Type() == typeName {
				target[flag.Name] = struct{}{}
			}
		})
	}
	visit(command.PersistentFlags())
	visit(command.Flags())
	for _, child := range command.Commands() {
		collectFlagNames(child, typeName, target)
	}
}
