package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	thresholdFlagTypeName        = "threshold"
	thresholdFlagDefaultLiteral  = "0"
	thresholdFlagUnsetLiteral    = "unset"
	invalidThresholdValueMessage = "invalid value %q for --%s; expected a non-negative integer"
)

// optionalThresholdFlagValue backs flags such as --token-count-tree that may
// be given alone or with a non-negative integer.
type optionalThresholdFlagValue struct {
	target  **int
	flagKey string
}

func parseThreshold(input string) (int, bool) {
	parsed, parseError := strconv.Atoi(strings.TrimSpace(input))
	if parseError != nil || parsed < 0 {
		return 0, false
	}
	return parsed, true
}

func (value *optionalThresholdFlagValue) Set(input string) error {
	parsed, ok := parseThreshold(input)
	if !ok {
		return fmt.Errorf(invalidThresholdValueMessage, input, value.flagKey)
	}
	*value.target = &parsed
	return nil
}

func (value *optionalThresholdFlagValue) String() string {
	if value == nil || value.target == nil || *value.target == nil {
		return thresholdFlagUnsetLiteral
	}
	return strconv.Itoa(**value.target)
}

func (value *optionalThresholdFlagValue) Type() string {
	return thresholdFlagTypeName
}

func registerThresholdFlag(flagSet *pflag.FlagSet, target **int, name string, usage string) {
	if flagSet == nil || target == nil {
		return
	}
	*target = nil
	flagSet.Var(&optionalThresholdFlagValue{target: target, flagKey: name}, name, usage)
	if lookup := flagSet.Lookup(name); lookup != nil {
		lookup.DefValue = thresholdFlagUnsetLiteral
		lookup.NoOptDefVal = thresholdFlagDefaultLiteral
	}
}

// normalizeThresholdFlagArguments joins "--token-count-tree 1000" into
// "--token-count-tree=1000". Non-numeric followers stay positional.
func normalizeThresholdFlagArguments(command *cobra.Command, arguments []string) []string {
	if command == nil || len(arguments) == 0 {
		return arguments
	}
	thresholdFlags := map[string]struct{}{}
	collectFlagNames(command, thresholdFlagTypeName, thresholdFlags)
	if len(thresholdFlags) == 0 {
		return arguments
	}
	return joinFlagValues(arguments, thresholdFlags, func(candidate string) bool {
		_, ok := parseThreshold(candidate)
		return ok
	})
}
