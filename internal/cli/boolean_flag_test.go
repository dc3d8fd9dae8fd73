package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestOptionalBooleanFlagParsesValues(t *testing.T) {
	testCases := []struct {
		name      string
		inverted  bool
		arguments []string
		expected  *bool
	}{
		{name: "unset_stays_nil", arguments: []string{}},
		{name: "sets_true_without_value", arguments: []string{"--feature"}, expected: boolPointer(true)},
		{name: "sets_false_with_equals", arguments: []string{"--feature=false"}, expected: boolPointer(false)},
		{name: "sets_false_with_no_literal", arguments: []string{"--feature", "no"}, expected: boolPointer(false)},
		{name: "sets_true_with_on_literal", arguments: []string{"--feature", "on"}, expected: boolPointer(true)},
		{name: "ignores_non_boolean_trailing_value", arguments: []string{"--feature", "src"}, expected: boolPointer(true)},
		{name: "inverted_flag_stores_negation", inverted: true, arguments: []string{"--feature"}, expected: boolPointer(false)},
		{name: "inverted_flag_with_off_literal", inverted: true, arguments: []string{"--feature", "off"}, expected: boolPointer(true)},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			command := &cobra.Command{Use: "boolean-test"}
			var flagValue *bool
			if testCase.inverted {
				registerInvertedBooleanFlag(command.Flags(), &flagValue, "feature", "toggle feature behaviour")
			} else {
				registerOptionalBooleanFlag(command.Flags(), &flagValue, "feature", "toggle feature behaviour")
			}
			if parseErr := command.ParseFlags(normalizeBooleanFlagArguments(command, testCase.arguments)); parseErr != nil {
				t.Fatalf("unexpected parse error: %v", parseErr)
			}
			if testCase.expected == nil {
				if flagValue != nil {
					t.Fatalf("expected unset value, got %t", *flagValue)
				}
				return
			}
			if flagValue == nil || *flagValue != *testCase.expected {
				t.Fatalf("expected %t, got %v", *testCase.expected, flagValue)
			}
		})
	}
}

func TestOptionalBooleanFlagRejectsUnknownLiteral(t *testing.T) {
	command := &cobra.Command{Use: "boolean-test"}
	var flagValue *bool
	registerOptionalBooleanFlag(command.Flags(), &flagValue, "feature", "toggle feature behaviour")
	if parseErr := command.ParseFlags([]string{"--feature=maybe"}); parseErr == nil {
		t.Fatalf("expected parse error for unknown literal")
	}
}

func boolPointer(value bool) *bool {
	return &value
}
