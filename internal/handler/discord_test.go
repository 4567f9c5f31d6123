package handler_test

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/tempo/internal/handler"
)

func TestCommandToPlayRequest(t *testing.T) {
	tc := []struct {
		name     string
		options  []*discordgo.ApplicationCommandInteractionDataOption
		expected *handler.PlayRequest
		err      bool
	}{
		{
			name:     "Command with no options should return error",
			options:  []*discordgo.ApplicationCommandInteractionDataOption{},
			expected: nil,
			err:      true,
		},
		{
			name: "Command with a query option should return a request",
			options: []*discordgo.ApplicationCommandInteractionDataOption{
				{
					Name:  "query",
					Type:  discordgo.ApplicationCommandOptionString,
					Value: "never gonna give you up",
				},
			},
			expected: &handler.PlayRequest{Query: "never gonna give you up"},
			err:      false,
		},
		{
			name: "Command with a non-string query should return error",
			options: []*discordgo.ApplicationCommandInteractionDataOption{
				{
					Name:  "query",
					Type:  discordgo.ApplicationCommandOptionInteger,
					Value: float64(42),
				},
			},
			expected: nil,
			err:      true,
		},
	}

	for _, testCase := range tc {
		t.Run(testCase.name, func(t *testing.T) {
			result, err := handler.CommandToPlayRequest(testCase.options)
			if testCase.err {
				if err == nil {
					t.Errorf("expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if result == nil {
					t.Errorf("expected non-nil result but got nil")
				} else if result.Query != testCase.expected.Query {
					t.Errorf("expected query %q, got %q", testCase.expected.Query, result.Query)
				}
			}
		})
	}
}

func TestParsePosition(t *testing.T) {
	tc := []struct {
		name     string
		input    string
		expected int64
		err      bool
	}{
		{name: "plain seconds", input: "90", expected: 90000},
		{name: "minutes and seconds", input: "1:30", expected: 90000},
		{name: "hours", input: "1:02:03", expected: 3723000},
		{name: "zero", input: "0", expected: 0},
		{name: "too many segments", input: "1:2:3:4", err: true},
		{name: "not a number", input: "abc", err: true},
		{name: "negative", input: "-5", err: true},
		{name: "empty", input: "", err: true},
	}

	for _, testCase := range tc {
		t.Run(testCase.name, func(t *testing.T) {
			result, err := handler.ParsePosition(testCase.input)
			if testCase.err {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != testCase.expected {
				t.Errorf("expected %d, got %d", testCase.expected, result)
			}
		})
	}
}
